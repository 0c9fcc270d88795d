package dto

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/shreyasgurav/Zest-Prototype-sub001/internal/domain"
)

// DateLayout is the wire format of selected dates
const DateLayout = "2006-01-02"

// TimeSlotRequest is the admission window inside the selected date
type TimeSlotRequest struct {
	StartTime string `json:"start_time" validate:"max=16"`
	EndTime   string `json:"end_time" validate:"max=16"`
}

// AttendeeRequest names the holder of one ticket
type AttendeeRequest struct {
	UserID string `json:"user_id" validate:"max=64"`
	Name   string `json:"name" validate:"max=255"`
	Email  string `json:"email" validate:"omitempty,email"`
	Phone  string `json:"phone" validate:"max=32"`
}

// CreateTicketsRequest is a confirmed booking to expand into tickets
type CreateTicketsRequest struct {
	BookingID        string            `json:"-"`
	Type             string            `json:"type" validate:"required,oneof=event events activity activities"`
	EventID          string            `json:"event_id" validate:"required_without=ActivityID,excluded_with=ActivityID,max=64"`
	ActivityID       string            `json:"activity_id" validate:"required_without=EventID,excluded_with=EventID,max=64"`
	BookingReference string            `json:"booking_reference" validate:"max=64"`
	PaymentID        string            `json:"payment_id" validate:"max=128"`
	UserID           string            `json:"user_id" validate:"required,max=64"`
	UserName         string            `json:"user_name" validate:"max=255"`
	UserEmail        string            `json:"user_email" validate:"omitempty,email"`
	UserPhone        string            `json:"user_phone" validate:"max=32"`
	SelectedDate     string            `json:"selected_date" validate:"required,datetime=2006-01-02"`
	SelectedTimeSlot *TimeSlotRequest  `json:"selected_time_slot"`
	TicketTypes      map[string]int    `json:"tickets" validate:"omitempty,dive,keys,required,max=100,endkeys,gte=0,max=1000"`
	Quantity         int               `json:"quantity" validate:"gte=0,max=1000"`
	TotalAmount      decimal.Decimal   `json:"total_amount"`
	Currency         string            `json:"currency" validate:"omitempty,len=3"`
	Attendees        []AttendeeRequest `json:"attendees" validate:"omitempty,dive"`
}

// ParentRef resolves the event or activity the booking belongs to
func (r *CreateTicketsRequest) ParentRef() (domain.ParentRef, error) {
	kind, err := domain.ParseParentKind(r.Type)
	if err != nil {
		return domain.ParentRef{}, err
	}
	id := r.EventID
	if kind == domain.ParentKindActivity {
		id = r.ActivityID
	}
	ref := domain.ParentRef{Kind: kind, ID: strings.TrimSpace(id)}
	return ref, ref.Validate()
}

// ToBooking converts the request into the issuance input
func (r *CreateTicketsRequest) ToBooking() (*domain.Booking, error) {
	ref, err := r.ParentRef()
	if err != nil {
		return nil, err
	}
	date, err := time.Parse(DateLayout, r.SelectedDate)
	if err != nil {
		return nil, domain.ErrInvalidSelectedDate
	}

	b := &domain.Booking{
		ID:               strings.TrimSpace(r.BookingID),
		Parent:           ref,
		BookingReference: r.BookingReference,
		PaymentID:        r.PaymentID,
		Buyer: domain.HolderDetails{
			UserID: r.UserID,
			Name:   r.UserName,
			Email:  r.UserEmail,
			Phone:  r.UserPhone,
		},
		SelectedDate: date,
		TotalAmount:  r.TotalAmount,
		Currency:     strings.ToUpper(r.Currency),
	}
	if r.SelectedTimeSlot != nil {
		b.TimeSlot = domain.TimeSlot{
			StartTime: r.SelectedTimeSlot.StartTime,
			EndTime:   r.SelectedTimeSlot.EndTime,
		}
	}
	if ref.IsEvent() {
		b.TicketTypes = r.TicketTypes
	} else {
		b.Quantity = r.Quantity
	}
	for _, a := range r.Attendees {
		b.Attendees = append(b.Attendees, domain.HolderDetails{
			UserID: a.UserID,
			Name:   a.Name,
			Email:  a.Email,
			Phone:  a.Phone,
		})
	}
	return b, nil
}

// CreateTicketsResponse lists the tickets of a booking
type CreateTicketsResponse struct {
	BookingID     string            `json:"booking_id"`
	TicketIDs     []string          `json:"ticket_ids"`
	Tickets       []*TicketResponse `json:"tickets"`
	AlreadyIssued bool              `json:"already_issued"`
}

// TimeSlotResponse is the admission window of a ticket
type TimeSlotResponse struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// GroupResponse links a ticket to the other tickets of its booking
type GroupResponse struct {
	BookingReference      string `json:"booking_reference"`
	TotalTicketsInBooking int    `json:"total_tickets_in_booking"`
	Index                 int    `json:"index"`
}

// ValidationEntryResponse is one audit step
type ValidationEntryResponse struct {
	Timestamp string `json:"timestamp"`
	Action    string `json:"action"`
	Location  string `json:"location"`
}

// TicketResponse represents a ticket
type TicketResponse struct {
	ID                string                    `json:"id"`
	TicketNumber      string                    `json:"ticket_number"`
	Type              string                    `json:"type"`
	EventID           string                    `json:"event_id,omitempty"`
	ActivityID        string                    `json:"activity_id,omitempty"`
	Title             string                    `json:"title"`
	Venue             string                    `json:"venue"`
	BookingID         string                    `json:"booking_id"`
	Group             *GroupResponse            `json:"original_booking_data,omitempty"`
	SelectedDate      string                    `json:"selected_date"`
	SelectedTimeSlot  TimeSlotResponse          `json:"selected_time_slot"`
	Amount            string                    `json:"amount"`
	Currency          string                    `json:"currency"`
	TicketType        string                    `json:"ticket_type,omitempty"`
	Quantity          int                       `json:"quantity,omitempty"`
	Status            string                    `json:"status"`
	UsedAt            *string                   `json:"used_at,omitempty"`
	UsedBy            string                    `json:"used_by,omitempty"`
	EntryTime         *string                   `json:"entry_time,omitempty"`
	CancelledAt       *string                   `json:"cancelled_at,omitempty"`
	ValidationHistory []ValidationEntryResponse `json:"validation_history"`
	UserID            string                    `json:"user_id"`
	UserName          string                    `json:"user_name"`
	UserEmail         string                    `json:"user_email"`
	UserPhone         string                    `json:"user_phone,omitempty"`
	CreatedAt         string                    `json:"created_at"`
}

// NewTicketResponse converts a domain ticket
func NewTicketResponse(t *domain.Ticket) *TicketResponse {
	resp := &TicketResponse{
		ID:           t.ID,
		TicketNumber: t.TicketNumber,
		Type:         t.Parent.Kind.String(),
		EventID:      t.Parent.EventID(),
		ActivityID:   t.Parent.ActivityID(),
		Title:        t.Title,
		Venue:        t.Venue,
		BookingID:    t.BookingID,
		SelectedDate: t.SelectedDate.Format(DateLayout),
		SelectedTimeSlot: TimeSlotResponse{
			StartTime: t.TimeSlot.StartTime,
			EndTime:   t.TimeSlot.EndTime,
		},
		Amount:            t.Amount.StringFixed(2),
		Currency:          t.Currency,
		TicketType:        t.TicketType,
		Quantity:          t.Quantity,
		Status:            t.Status.String(),
		UsedAt:            formatTimePtr(t.UsedAt),
		UsedBy:            t.UsedBy,
		EntryTime:         formatTimePtr(t.EntryTime),
		CancelledAt:       formatTimePtr(t.CancelledAt),
		ValidationHistory: make([]ValidationEntryResponse, 0, len(t.ValidationHistory)),
		UserID:            t.UserID,
		UserName:          t.UserName,
		UserEmail:         t.UserEmail,
		UserPhone:         t.UserPhone,
		CreatedAt:         t.CreatedAt.Format(time.RFC3339),
	}
	if t.Group != nil {
		resp.Group = &GroupResponse{
			BookingReference:      t.Group.BookingReference,
			TotalTicketsInBooking: t.Group.TotalTicketsInBooking,
			Index:                 t.Group.Index,
		}
	}
	for _, v := range t.ValidationHistory {
		resp.ValidationHistory = append(resp.ValidationHistory, ValidationEntryResponse{
			Timestamp: v.Timestamp.Format(time.RFC3339),
			Action:    v.Action,
			Location:  v.Location,
		})
	}
	return resp
}

// NewTicketResponses converts a list of tickets
func NewTicketResponses(tickets []*domain.Ticket) []*TicketResponse {
	out := make([]*TicketResponse, len(tickets))
	for i, t := range tickets {
		out[i] = NewTicketResponse(t)
	}
	return out
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}
