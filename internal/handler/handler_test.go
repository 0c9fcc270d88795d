package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/shreyasgurav/Zest-Prototype-sub001/internal/domain"
	"github.com/shreyasgurav/Zest-Prototype-sub001/internal/dto"
	"github.com/shreyasgurav/Zest-Prototype-sub001/internal/service"
	"github.com/shreyasgurav/Zest-Prototype-sub001/pkg/middleware"
	"github.com/shreyasgurav/Zest-Prototype-sub001/pkg/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockIssuerService is a mock implementation of IssuerService
type MockIssuerService struct {
	CreateTicketsForBookingFunc func(ctx context.Context, req *dto.CreateTicketsRequest) (*service.IssueResult, error)
}

func (m *MockIssuerService) CreateTicketsForBooking(ctx context.Context, req *dto.CreateTicketsRequest) (*service.IssueResult, error) {
	if m.CreateTicketsForBookingFunc != nil {
		return m.CreateTicketsForBookingFunc(ctx, req)
	}
	return &service.IssueResult{}, nil
}

// MockVerifierService is a mock implementation of VerifierService
type MockVerifierService struct {
	VerifyEntryFunc func(ctx context.Context, req *dto.VerifyEntryRequest) (*domain.Ticket, error)
}

func (m *MockVerifierService) VerifyEntry(ctx context.Context, req *dto.VerifyEntryRequest) (*domain.Ticket, error) {
	if m.VerifyEntryFunc != nil {
		return m.VerifyEntryFunc(ctx, req)
	}
	return nil, domain.Deny(domain.ReasonTicketNotFound)
}

// MockTicketQueryService is a mock implementation of TicketQueryService
type MockTicketQueryService struct {
	ListUserTicketsFunc   func(ctx context.Context, userID string) ([]*domain.Ticket, error)
	GetTicketFunc         func(ctx context.Context, caller service.Caller, id string) (*domain.Ticket, error)
	GetTicketByNumberFunc func(ctx context.Context, caller service.Caller, number string) (*domain.Ticket, error)
	CancelTicketFunc      func(ctx context.Context, caller service.Caller, id string) (*domain.Ticket, error)
	RenderQRFunc          func(ctx context.Context, caller service.Caller, id string) ([]byte, error)
	ListEntryLogsFunc     func(ctx context.Context, caller service.Caller, ref domain.ParentRef, filter *dto.EntryLogListFilter) ([]*domain.EntryLog, int64, error)
}

func (m *MockTicketQueryService) ListUserTickets(ctx context.Context, userID string) ([]*domain.Ticket, error) {
	if m.ListUserTicketsFunc != nil {
		return m.ListUserTicketsFunc(ctx, userID)
	}
	return []*domain.Ticket{}, nil
}

func (m *MockTicketQueryService) GetTicket(ctx context.Context, caller service.Caller, id string) (*domain.Ticket, error) {
	if m.GetTicketFunc != nil {
		return m.GetTicketFunc(ctx, caller, id)
	}
	return nil, domain.ErrTicketNotFound
}

func (m *MockTicketQueryService) GetTicketByNumber(ctx context.Context, caller service.Caller, number string) (*domain.Ticket, error) {
	if m.GetTicketByNumberFunc != nil {
		return m.GetTicketByNumberFunc(ctx, caller, number)
	}
	return nil, domain.ErrTicketNotFound
}

func (m *MockTicketQueryService) CancelTicket(ctx context.Context, caller service.Caller, id string) (*domain.Ticket, error) {
	if m.CancelTicketFunc != nil {
		return m.CancelTicketFunc(ctx, caller, id)
	}
	return nil, domain.ErrTicketNotFound
}

func (m *MockTicketQueryService) RenderQR(ctx context.Context, caller service.Caller, id string) ([]byte, error) {
	if m.RenderQRFunc != nil {
		return m.RenderQRFunc(ctx, caller, id)
	}
	return nil, domain.ErrTicketNotFound
}

func (m *MockTicketQueryService) ListEntryLogs(ctx context.Context, caller service.Caller, ref domain.ParentRef, filter *dto.EntryLogListFilter) ([]*domain.EntryLog, int64, error) {
	if m.ListEntryLogsFunc != nil {
		return m.ListEntryLogsFunc(ctx, caller, ref, filter)
	}
	return []*domain.EntryLog{}, 0, nil
}

// withCaller stands in for JWTMiddleware, reading the identity from test headers
func withCaller() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := c.GetHeader("X-Test-User"); id != "" {
			c.Set(middleware.ContextKeyUserID, id)
		}
		if role := c.GetHeader("X-Test-Role"); role != "" {
			c.Set(middleware.ContextKeyRole, role)
		}
		c.Next()
	}
}

func setupRouter(issuer service.IssuerService, verifier service.VerifierService, query service.TicketQueryService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(withCaller())

	tickets := NewTicketHandler(issuer, query)
	entry := NewEntryHandler(verifier, query)

	router.POST("/bookings/:bookingId/tickets", tickets.CreateForBooking)
	router.POST("/entry/verify", entry.Verify)
	router.GET("/me/tickets", tickets.ListMine)
	router.GET("/tickets/number/:ticketNumber", tickets.GetByNumber)
	router.GET("/tickets/:id", tickets.Get)
	router.GET("/tickets/:id/qr", tickets.QR)
	router.POST("/tickets/:id/cancel", tickets.Cancel)
	router.GET("/parents/:kind/:id/entry-logs", entry.ListLogs)
	return router
}

func doRequest(router *gin.Engine, method, path, user string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func decode(t *testing.T, resp *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var out response.Response
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	return out
}

func sampleTicket() *domain.Ticket {
	used := time.Date(2026, 11, 2, 19, 5, 0, 0, time.UTC)
	return &domain.Ticket{
		ID:           "t-1",
		TicketNumber: "TKT-1",
		Parent:       domain.EventRef("evt-1"),
		Title:        "Sunburn Night",
		BookingID:    "bk-1",
		SelectedDate: time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC),
		Amount:       decimal.RequireFromString("333.34"),
		Currency:     "INR",
		Status:       domain.TicketStatusUsed,
		UsedAt:       &used,
		EntryTime:    &used,
		UsedBy:       "staff-1",
		UserID:       "user-1",
		UserName:     "Asha",
	}
}

func TestTicketHandler_CreateForBooking(t *testing.T) {
	var got *dto.CreateTicketsRequest
	issuer := &MockIssuerService{
		CreateTicketsForBookingFunc: func(ctx context.Context, req *dto.CreateTicketsRequest) (*service.IssueResult, error) {
			got = req
			return &service.IssueResult{Tickets: []*domain.Ticket{sampleTicket()}}, nil
		},
	}
	router := setupRouter(issuer, &MockVerifierService{}, &MockTicketQueryService{})

	body := map[string]interface{}{
		"type":          "event",
		"event_id":      "evt-1",
		"user_id":       "user-1",
		"selected_date": "2026-11-02",
		"tickets":       map[string]int{"VIP": 1},
		"total_amount":  "333.34",
	}
	resp := doRequest(router, http.MethodPost, "/bookings/bk-1/tickets", "system", body)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	require.NotNil(t, got)
	assert.Equal(t, "bk-1", got.BookingID)
	assert.Equal(t, map[string]int{"VIP": 1}, got.TicketTypes)
	assert.True(t, decimal.RequireFromString("333.34").Equal(got.TotalAmount))

	data := decode(t, resp).Data.(map[string]interface{})
	assert.Equal(t, []interface{}{"t-1"}, data["ticket_ids"])
	assert.Equal(t, false, data["already_issued"])
}

func TestTicketHandler_CreateForBooking_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		alreadyHit bool
		wantStatus int
		wantCode   string
	}{
		{"already issued", nil, true, http.StatusOK, ""},
		{"validation", fmt.Errorf("%w: %w", domain.ErrInvalidBooking, dto.FieldErrors{"user_id": "required"}), false, http.StatusBadRequest, response.ErrCodeValidation},
		{"bad quantity", domain.ErrInvalidQuantity, false, http.StatusBadRequest, response.ErrCodeBadRequest},
		{"infra", fmt.Errorf("%w: %w", domain.ErrTicketCreationFailed, errors.New("db down")), false, http.StatusInternalServerError, response.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issuer := &MockIssuerService{
				CreateTicketsForBookingFunc: func(ctx context.Context, req *dto.CreateTicketsRequest) (*service.IssueResult, error) {
					if tt.err != nil {
						return nil, tt.err
					}
					return &service.IssueResult{Tickets: []*domain.Ticket{sampleTicket()}, AlreadyIssued: tt.alreadyHit}, nil
				},
			}
			router := setupRouter(issuer, &MockVerifierService{}, &MockTicketQueryService{})

			resp := doRequest(router, http.MethodPost, "/bookings/bk-1/tickets", "system", map[string]string{"type": "event"})
			assert.Equal(t, tt.wantStatus, resp.Code)
			if tt.wantCode != "" {
				out := decode(t, resp)
				require.NotNil(t, out.Error)
				assert.Equal(t, tt.wantCode, out.Error.Code)
			}
		})
	}
}

func TestEntryHandler_Verify(t *testing.T) {
	var scanner string
	verifier := &MockVerifierService{
		VerifyEntryFunc: func(ctx context.Context, req *dto.VerifyEntryRequest) (*domain.Ticket, error) {
			scanner = req.ScannerID
			return sampleTicket(), nil
		},
	}
	router := setupRouter(&MockIssuerService{}, verifier, &MockTicketQueryService{})

	body := map[string]string{
		"ticket_number": "TKT-1",
		"event_id":      "evt-1",
		"scanner_id":    "spoofed",
	}
	resp := doRequest(router, http.MethodPost, "/entry/verify", "staff-1", body)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "staff-1", scanner, "scanner identity comes from the token")

	data := decode(t, resp).Data.(map[string]interface{})
	assert.Equal(t, true, data["success"])
	assert.Equal(t, "Asha", data["holder_name"])
	assert.Equal(t, "333.34", data["amount"])
	assert.Equal(t, "2026-11-02T19:05:00Z", data["entry_time"])
}

func TestEntryHandler_VerifyDenials(t *testing.T) {
	usedAt := time.Date(2026, 11, 2, 19, 5, 0, 0, time.UTC)
	tests := []struct {
		reason     domain.DenialReason
		wantStatus int
	}{
		{domain.ReasonInvalidRequest, http.StatusBadRequest},
		{domain.ReasonTicketNotFound, http.StatusNotFound},
		{domain.ReasonWrongEvent, http.StatusBadRequest},
		{domain.ReasonAlreadyUsed, http.StatusConflict},
		{domain.ReasonCancelled, http.StatusGone},
		{domain.ReasonWrongDate, http.StatusBadRequest},
		{domain.ReasonUnauthorized, http.StatusForbidden},
		{domain.ReasonDuplicateHolder, http.StatusConflict},
		{domain.ReasonBookingFullyUsed, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.reason.String(), func(t *testing.T) {
			verifier := &MockVerifierService{
				VerifyEntryFunc: func(ctx context.Context, req *dto.VerifyEntryRequest) (*domain.Ticket, error) {
					if tt.reason == domain.ReasonAlreadyUsed {
						return nil, domain.DenyAlreadyUsed(&domain.Ticket{UsedAt: &usedAt, UsedBy: "staff-2"})
					}
					return nil, domain.Deny(tt.reason)
				},
			}
			router := setupRouter(&MockIssuerService{}, verifier, &MockTicketQueryService{})

			resp := doRequest(router, http.MethodPost, "/entry/verify", "staff-1",
				map[string]string{"ticket_number": "TKT-1", "event_id": "evt-1"})
			assert.Equal(t, tt.wantStatus, resp.Code)

			out := decode(t, resp)
			assert.False(t, out.Success)
			require.NotNil(t, out.Error)
			assert.Equal(t, tt.reason.String(), out.Error.Code)
			assert.Equal(t, tt.reason.DefaultMessage(), out.Error.Message)

			if tt.reason == domain.ReasonAlreadyUsed {
				details := out.Error.Details.(map[string]interface{})
				assert.Equal(t, "2026-11-02T19:05:00Z", details["used_at"])
				assert.Equal(t, "staff-2", details["used_by"])
			}
		})
	}
}

func TestEntryHandler_VerifyMalformedBody(t *testing.T) {
	router := setupRouter(&MockIssuerService{}, &MockVerifierService{}, &MockTicketQueryService{})

	req, _ := http.NewRequest(http.MethodPost, "/entry/verify", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, domain.ReasonInvalidRequest.String(), decode(t, resp).Error.Code)
}

func TestTicketHandler_Reads(t *testing.T) {
	query := &MockTicketQueryService{
		ListUserTicketsFunc: func(ctx context.Context, userID string) ([]*domain.Ticket, error) {
			return []*domain.Ticket{sampleTicket()}, nil
		},
		GetTicketFunc: func(ctx context.Context, caller service.Caller, id string) (*domain.Ticket, error) {
			if caller.UserID != "user-1" {
				return nil, domain.ErrNotTicketHolder
			}
			if id != "t-1" {
				return nil, domain.ErrTicketNotFound
			}
			return sampleTicket(), nil
		},
		GetTicketByNumberFunc: func(ctx context.Context, caller service.Caller, number string) (*domain.Ticket, error) {
			return sampleTicket(), nil
		},
	}
	router := setupRouter(&MockIssuerService{}, &MockVerifierService{}, query)

	tests := []struct {
		name       string
		path       string
		user       string
		wantStatus int
	}{
		{"my tickets", "/me/tickets", "user-1", http.StatusOK},
		{"my tickets anonymous", "/me/tickets", "", http.StatusUnauthorized},
		{"get own ticket", "/tickets/t-1", "user-1", http.StatusOK},
		{"get someone else's", "/tickets/t-1", "user-2", http.StatusForbidden},
		{"missing ticket", "/tickets/t-404", "user-1", http.StatusNotFound},
		{"by number", "/tickets/number/TKT-1", "staff-1", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doRequest(router, http.MethodGet, tt.path, tt.user, nil)
			assert.Equal(t, tt.wantStatus, resp.Code, resp.Body.String())
		})
	}
}

func TestTicketHandler_QR(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a}
	query := &MockTicketQueryService{
		RenderQRFunc: func(ctx context.Context, caller service.Caller, id string) ([]byte, error) {
			return png, nil
		},
	}
	router := setupRouter(&MockIssuerService{}, &MockVerifierService{}, query)

	resp := doRequest(router, http.MethodGet, "/tickets/t-1/qr", "user-1", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "image/png", resp.Header().Get("Content-Type"))
	assert.Equal(t, png, resp.Body.Bytes())
}

func TestTicketHandler_Cancel(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"cancelled", nil, http.StatusOK, ""},
		{"already used", domain.ErrInvalidTicketStatus, http.StatusConflict, "INVALID_STATUS"},
		{"not holder", domain.ErrNotTicketHolder, http.StatusForbidden, response.ErrCodeForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query := &MockTicketQueryService{
				CancelTicketFunc: func(ctx context.Context, caller service.Caller, id string) (*domain.Ticket, error) {
					if tt.err != nil {
						return nil, tt.err
					}
					tk := sampleTicket()
					tk.Status = domain.TicketStatusCancelled
					return tk, nil
				},
			}
			router := setupRouter(&MockIssuerService{}, &MockVerifierService{}, query)

			resp := doRequest(router, http.MethodPost, "/tickets/t-1/cancel", "user-1", nil)
			assert.Equal(t, tt.wantStatus, resp.Code)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decode(t, resp).Error.Code)
			}
		})
	}
}

func TestEntryHandler_ListLogs(t *testing.T) {
	var (
		gotRef    domain.ParentRef
		gotFilter dto.EntryLogListFilter
	)
	query := &MockTicketQueryService{
		ListEntryLogsFunc: func(ctx context.Context, caller service.Caller, ref domain.ParentRef, filter *dto.EntryLogListFilter) ([]*domain.EntryLog, int64, error) {
			gotRef = ref
			gotFilter = *filter
			return []*domain.EntryLog{{ID: "log-1", Parent: ref, Timestamp: time.Now()}}, 11, nil
		},
	}
	router := setupRouter(&MockIssuerService{}, &MockVerifierService{}, query)

	resp := doRequest(router, http.MethodGet, "/parents/activities/act-1/entry-logs?page=2&per_page=5", "org-1", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, domain.ActivityRef("act-1"), gotRef)
	assert.Equal(t, 2, gotFilter.Page)
	assert.Equal(t, 5, gotFilter.PerPage)

	out := decode(t, resp)
	require.NotNil(t, out.Meta)
	assert.Equal(t, int64(11), out.Meta.Total)
	assert.Equal(t, 3, out.Meta.TotalPages)

	resp = doRequest(router, http.MethodGet, "/parents/concerts/x/entry-logs", "org-1", nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

type stubChecker struct{ err error }

func (s stubChecker) HealthCheck(context.Context) error { return s.err }

func TestHealthHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		db         HealthChecker
		redis      HealthChecker
		wantStatus int
	}{
		{"all healthy", stubChecker{}, stubChecker{}, http.StatusOK},
		{"redis not configured", stubChecker{}, nil, http.StatusOK},
		{"database down", stubChecker{err: errors.New("refused")}, stubChecker{}, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.db, tt.redis)
			router := gin.New()
			router.GET("/health", h.Health)
			router.GET("/ready", h.Ready)

			resp := doRequest(router, http.MethodGet, "/health", "", nil)
			assert.Equal(t, http.StatusOK, resp.Code)

			resp = doRequest(router, http.MethodGet, "/ready", "", nil)
			assert.Equal(t, tt.wantStatus, resp.Code)
		})
	}
}
