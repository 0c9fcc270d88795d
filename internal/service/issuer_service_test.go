package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/shreyasgurav/Zest-Prototype-sub001/internal/domain"
	"github.com/shreyasgurav/Zest-Prototype-sub001/internal/dto"
	"github.com/shreyasgurav/Zest-Prototype-sub001/internal/ticketnumber"
	"github.com/shreyasgurav/Zest-Prototype-sub001/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 11, 2, 18, 30, 0, 0, time.UTC)

func newTestIssuer(store *memStore) *issuerService {
	gen := ticketnumber.NewGenerator(ticketnumber.Config{}, store)
	svc := NewIssuerService(store, store, store, gen, &Config{}).(*issuerService)
	svc.lookupPolicy = retry.Immediate(3)
	svc.now = func() time.Time { return testNow }
	return svc
}

func eventRequest() *dto.CreateTicketsRequest {
	return &dto.CreateTicketsRequest{
		BookingID:    "bk-1",
		Type:         "event",
		EventID:      "evt-1",
		UserID:       "user-1",
		UserName:     "Asha",
		UserEmail:    "asha@example.com",
		SelectedDate: "2026-11-02",
		SelectedTimeSlot: &dto.TimeSlotRequest{
			StartTime: "18:00",
			EndTime:   "23:00",
		},
		TicketTypes: map[string]int{"VIP": 2, "General": 1},
		TotalAmount: decimal.RequireFromString("1000"),
	}
}

func activityRequest() *dto.CreateTicketsRequest {
	return &dto.CreateTicketsRequest{
		BookingID:    "bk-2",
		Type:         "activity",
		ActivityID:   "act-1",
		UserID:       "user-2",
		UserName:     "Ravi",
		UserEmail:    "ravi@example.com",
		SelectedDate: "2026-11-03",
		Quantity:     1,
		TotalAmount:  decimal.RequireFromString("499.50"),
		Currency:     "inr",
	}
}

func testParent() *domain.Parent {
	return &domain.Parent{
		Ref:             domain.EventRef("evt-1"),
		Title:           "Sunburn Night",
		Venue:           "Mahalaxmi Lawns",
		OrganizationID:  "org-1",
		AuthorizedStaff: []string{"staff-1"},
	}
}

func TestApportion(t *testing.T) {
	tests := []struct {
		name  string
		total string
		n     int
		want  []string
	}{
		{"even split", "1000", 4, []string{"250", "250", "250", "250"}},
		{"remainder to first", "100", 3, []string{"33.34", "33.33", "33.33"}},
		{"single ticket", "499.50", 1, []string{"499.5"}},
		{"free booking", "0", 2, []string{"0", "0"}},
		{"tiny amount", "0.05", 3, []string{"0.03", "0.01", "0.01"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			total := decimal.RequireFromString(tt.total)
			shares := Apportion(total, tt.n)
			require.Len(t, shares, tt.n)

			sum := decimal.Zero
			for i, s := range shares {
				assert.True(t, decimal.RequireFromString(tt.want[i]).Equal(s), "share %d = %s", i, s)
				assert.False(t, s.IsNegative())
				sum = sum.Add(s)
			}
			assert.True(t, total.Equal(sum), "shares sum to %s, want %s", sum, total)
		})
	}

	assert.Nil(t, Apportion(decimal.NewFromInt(10), 0))
}

func TestCreateTicketsForBooking_EventExpandsTicketTypes(t *testing.T) {
	store := newMemStore()
	store.addParent(testParent())
	svc := newTestIssuer(store)

	result, err := svc.CreateTicketsForBooking(context.Background(), eventRequest())
	require.NoError(t, err)
	assert.False(t, result.AlreadyIssued)
	require.Len(t, result.Tickets, 3)

	numbers := map[string]struct{}{}
	sum := decimal.Zero
	for i, tk := range result.Tickets {
		assert.Equal(t, i+1, tk.BookingIndex)
		assert.Equal(t, domain.TicketStatusActive, tk.Status)
		assert.Equal(t, "Sunburn Night", tk.Title)
		assert.Equal(t, "Mahalaxmi Lawns", tk.Venue)
		assert.Equal(t, "user-1", tk.UserID)
		assert.Equal(t, DefaultCurrency, tk.Currency)
		assert.Equal(t, "18:00", tk.TimeSlot.StartTime)
		assert.Equal(t, 0, tk.Quantity)
		assert.True(t, ticketnumber.Valid(tk.TicketNumber, ticketnumber.DefaultPrefix), tk.TicketNumber)

		require.NotNil(t, tk.Group)
		assert.Equal(t, "bk-1", tk.Group.BookingReference)
		assert.Equal(t, 3, tk.Group.TotalTicketsInBooking)
		assert.Equal(t, i+1, tk.Group.Index)

		require.Len(t, tk.ValidationHistory, 1)
		assert.Equal(t, domain.ActionCreated, tk.ValidationHistory[0].Action)

		numbers[tk.TicketNumber] = struct{}{}
		sum = sum.Add(tk.Amount)
	}
	assert.Len(t, numbers, 3, "ticket numbers must be unique")
	assert.True(t, decimal.NewFromInt(1000).Equal(sum))

	// types expand in name order
	assert.Equal(t, "General", result.Tickets[0].TicketType)
	assert.Equal(t, "VIP", result.Tickets[1].TicketType)
	assert.Equal(t, "VIP", result.Tickets[2].TicketType)

	assert.Equal(t, []string{
		string(domain.TicketEventIssued),
		string(domain.TicketEventIssued),
		string(domain.TicketEventIssued),
	}, store.outboxTypes())
}

func TestCreateTicketsForBooking_SingleActivityTicket(t *testing.T) {
	store := newMemStore()
	store.addParent(&domain.Parent{Ref: domain.ActivityRef("act-1"), Title: "Pottery Workshop", Venue: "Studio 4"})
	svc := newTestIssuer(store)

	result, err := svc.CreateTicketsForBooking(context.Background(), activityRequest())
	require.NoError(t, err)
	require.Len(t, result.Tickets, 1)

	tk := result.Tickets[0]
	assert.Nil(t, tk.Group, "single-ticket bookings carry no group info")
	assert.Equal(t, 1, tk.Quantity)
	assert.Equal(t, "INR", tk.Currency)
	assert.True(t, decimal.RequireFromString("499.50").Equal(tk.Amount))
	assert.Equal(t, domain.ActivityRef("act-1"), tk.Parent)
	assert.Equal(t, "", tk.BookingReference())
}

func TestCreateTicketsForBooking_AttendeesNameHolders(t *testing.T) {
	store := newMemStore()
	store.addParent(testParent())
	svc := newTestIssuer(store)

	req := eventRequest()
	req.BookingReference = "ZEST-42"
	req.Attendees = []dto.AttendeeRequest{
		{Name: "Meera", Email: "meera@example.com"},
		{UserID: "user-9", Name: "Kabir", Email: "kabir@example.com"},
	}

	result, err := svc.CreateTicketsForBooking(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, result.Tickets, 3)

	assert.Equal(t, "meera@example.com", result.Tickets[0].UserEmail)
	assert.Equal(t, "user-1", result.Tickets[0].UserID, "holder without id inherits the buyer's")
	assert.Equal(t, "user-9", result.Tickets[1].UserID)
	assert.Equal(t, "asha@example.com", result.Tickets[2].UserEmail, "unnamed ticket falls back to the buyer")
	for _, tk := range result.Tickets {
		assert.Equal(t, "ZEST-42", tk.BookingReference())
	}
}

func TestCreateTicketsForBooking_Idempotent(t *testing.T) {
	store := newMemStore()
	store.addParent(testParent())
	svc := newTestIssuer(store)

	first, err := svc.CreateTicketsForBooking(context.Background(), eventRequest())
	require.NoError(t, err)

	second, err := svc.CreateTicketsForBooking(context.Background(), eventRequest())
	require.NoError(t, err)
	assert.True(t, second.AlreadyIssued)
	assert.Equal(t, first.TicketIDs(), second.TicketIDs())
	assert.Equal(t, 1, store.batchCalls)
	assert.Len(t, store.outboxTypes(), 3)
}

func TestCreateTicketsForBooking_PlaceholderParent(t *testing.T) {
	t.Run("parent missing", func(t *testing.T) {
		store := newMemStore()
		svc := newTestIssuer(store)

		result, err := svc.CreateTicketsForBooking(context.Background(), eventRequest())
		require.NoError(t, err)
		for _, tk := range result.Tickets {
			assert.Equal(t, DefaultPlaceholderTitle, tk.Title)
			assert.Equal(t, DefaultPlaceholderVenue, tk.Venue)
		}
		assert.Equal(t, 1, store.parentCalls, "not-found is not retried")
	})

	t.Run("lookup keeps failing", func(t *testing.T) {
		store := newMemStore()
		store.GetParentFunc = func(ctx context.Context, ref domain.ParentRef) (*domain.Parent, error) {
			return nil, errors.New("connection refused")
		}
		svc := newTestIssuer(store)

		result, err := svc.CreateTicketsForBooking(context.Background(), eventRequest())
		require.NoError(t, err)
		assert.Equal(t, DefaultPlaceholderTitle, result.Tickets[0].Title)
		assert.Equal(t, 3, store.parentCalls)
	})

	t.Run("lookup recovers", func(t *testing.T) {
		store := newMemStore()
		calls := 0
		store.GetParentFunc = func(ctx context.Context, ref domain.ParentRef) (*domain.Parent, error) {
			calls++
			if calls == 1 {
				return nil, errors.New("timeout")
			}
			return testParent(), nil
		}
		svc := newTestIssuer(store)

		result, err := svc.CreateTicketsForBooking(context.Background(), eventRequest())
		require.NoError(t, err)
		assert.Equal(t, "Sunburn Night", result.Tickets[0].Title)
	})
}

func TestCreateTicketsForBooking_InvalidRequest(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *dto.CreateTicketsRequest)
	}{
		{"missing user", func(r *dto.CreateTicketsRequest) { r.UserID = "" }},
		{"bad date", func(r *dto.CreateTicketsRequest) { r.SelectedDate = "02/11/2026" }},
		{"no tickets", func(r *dto.CreateTicketsRequest) { r.TicketTypes = map[string]int{"VIP": 0} }},
		{"negative amount", func(r *dto.CreateTicketsRequest) { r.TotalAmount = decimal.NewFromInt(-1) }},
		{"missing booking id", func(r *dto.CreateTicketsRequest) { r.BookingID = "" }},
		{"huge ticket type", func(r *dto.CreateTicketsRequest) { r.TicketTypes = map[string]int{"VIP": 1 << 40} }},
		{"over booking limit", func(r *dto.CreateTicketsRequest) { r.TicketTypes = map[string]int{"VIP": 60, "General": 41} }},
		{"huge activity quantity", func(r *dto.CreateTicketsRequest) {
			r.Type = "activity"
			r.EventID = ""
			r.ActivityID = "act-1"
			r.TicketTypes = nil
			r.Quantity = 1 << 40
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			svc := newTestIssuer(store)

			req := eventRequest()
			tt.mutate(req)
			_, err := svc.CreateTicketsForBooking(context.Background(), req)
			require.Error(t, err)
			assert.True(t, domain.IsValidationError(err), "got %v", err)
			assert.Equal(t, 0, store.batchCalls)
		})
	}
}

func TestCreateTicketsForBooking_ConfiguredTicketLimit(t *testing.T) {
	store := newMemStore()
	store.addParent(testParent())
	svc := newTestIssuer(store)
	svc.cfg.MaxTicketsPerBooking = 2

	_, err := svc.CreateTicketsForBooking(context.Background(), eventRequest())
	require.ErrorIs(t, err, domain.ErrInvalidQuantity)
	assert.Equal(t, 0, store.batchCalls)

	svc.cfg.MaxTicketsPerBooking = 3
	result, err := svc.CreateTicketsForBooking(context.Background(), eventRequest())
	require.NoError(t, err)
	assert.Len(t, result.Tickets, 3)
}

func TestCreateTicketsForBooking_RetriesNumberCollision(t *testing.T) {
	store := newMemStore()
	store.addParent(testParent())
	attempts := 0
	store.CreateBatchFunc = func(tickets []*domain.Ticket) error {
		attempts++
		if attempts == 1 {
			return domain.ErrDuplicateTicketNumber
		}
		return nil
	}
	svc := newTestIssuer(store)

	result, err := svc.CreateTicketsForBooking(context.Background(), eventRequest())
	require.NoError(t, err)
	assert.Len(t, result.Tickets, 3)
	assert.Equal(t, 2, attempts)
}

func TestCreateTicketsForBooking_FailsAtomically(t *testing.T) {
	store := newMemStore()
	store.addParent(testParent())
	store.CreateBatchFunc = func(tickets []*domain.Ticket) error {
		return domain.ErrDuplicateTicketNumber
	}
	svc := newTestIssuer(store)

	_, err := svc.CreateTicketsForBooking(context.Background(), eventRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTicketCreationFailed)
	assert.Equal(t, batchAttempts, store.batchCalls)

	existing, err := store.ListByBooking(context.Background(), "bk-1")
	require.NoError(t, err)
	assert.Empty(t, existing, "no partial batch is stored")
	assert.Empty(t, store.outboxTypes())
}

func TestCreateTicketsForBooking_ConcurrentCallReturnsWinner(t *testing.T) {
	store := newMemStore()
	store.addParent(testParent())

	winner := &domain.Ticket{ID: "winner-1", BookingID: "bk-1", BookingIndex: 1, TicketNumber: "TKT-WIN", UserID: "user-1"}
	store.CreateBatchFunc = func(tickets []*domain.Ticket) error {
		// another request commits between the existence check and our insert
		store.addTicket(winner)
		return nil
	}
	svc := newTestIssuer(store)

	result, err := svc.CreateTicketsForBooking(context.Background(), eventRequest())
	require.NoError(t, err)
	assert.True(t, result.AlreadyIssued)
	assert.Equal(t, []string{"winner-1"}, result.TicketIDs())
}
