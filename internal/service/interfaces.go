package service

import (
	"context"
	"time"

	"github.com/shreyasgurav/Zest-Prototype-sub001/internal/domain"
	"github.com/shreyasgurav/Zest-Prototype-sub001/internal/dto"
	"github.com/shreyasgurav/Zest-Prototype-sub001/internal/ticketnumber"
)

// IssuerService expands confirmed bookings into tickets
type IssuerService interface {
	// CreateTicketsForBooking issues every ticket of a booking in one atomic batch.
	// Calling it again for the same booking returns the tickets already issued.
	CreateTicketsForBooking(ctx context.Context, req *dto.CreateTicketsRequest) (*IssueResult, error)
}

// VerifierService decides entry at the gate
type VerifierService interface {
	// VerifyEntry admits the ticket or returns a *domain.EntryDenied
	VerifyEntry(ctx context.Context, req *dto.VerifyEntryRequest) (*domain.Ticket, error)
}

// TicketQueryService serves holder and staff reads plus cancellation
type TicketQueryService interface {
	// ListUserTickets lists a user's tickets, active and upcoming first, then newest date first
	ListUserTickets(ctx context.Context, userID string) ([]*domain.Ticket, error)
	// GetTicket retrieves a ticket visible to the caller
	GetTicket(ctx context.Context, caller Caller, id string) (*domain.Ticket, error)
	// GetTicketByNumber retrieves a ticket by its scan-facing number
	GetTicketByNumber(ctx context.Context, caller Caller, number string) (*domain.Ticket, error)
	// CancelTicket moves an active ticket to cancelled
	CancelTicket(ctx context.Context, caller Caller, id string) (*domain.Ticket, error)
	// RenderQR returns the PNG QR code of a ticket the caller holds
	RenderQR(ctx context.Context, caller Caller, id string) ([]byte, error)
	// ListEntryLogs lists check-ins for an event or activity the caller owns or staffs
	ListEntryLogs(ctx context.Context, caller Caller, ref domain.ParentRef, filter *dto.EntryLogListFilter) ([]*domain.EntryLog, int64, error)
}

// IssueResult is the outcome of an issuance call
type IssueResult struct {
	Tickets       []*domain.Ticket
	AlreadyIssued bool
}

// TicketIDs returns the ids in booking order
func (r *IssueResult) TicketIDs() []string {
	ids := make([]string, len(r.Tickets))
	for i, t := range r.Tickets {
		ids[i] = t.ID
	}
	return ids
}

// Caller is the authenticated identity behind a request
type Caller struct {
	UserID string
	Role   string
}

// Roles with elevated access
const (
	RoleAdmin  = "admin"
	RoleSystem = "system"
)

// IsAdmin reports whether the caller bypasses ownership checks
func (c Caller) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// Config holds settings shared by the ticket services
type Config struct {
	Location             *time.Location
	DateGraceDays        int
	ParentLookupAttempts int
	PlaceholderTitle     string
	PlaceholderVenue     string
	Currency             string
	OutboxTopic          string
	QRSize               int
	MaxTicketsPerBooking int
}

// Defaults
const (
	DefaultDateGraceDays        = 1
	DefaultParentLookupAttempts = 3
	DefaultPlaceholderTitle     = "Event"
	DefaultPlaceholderVenue     = "Venue to be announced"
	DefaultCurrency             = "INR"
	DefaultOutboxTopic          = "ticket-events"
)

func (c *Config) withDefaults() Config {
	out := Config{DateGraceDays: DefaultDateGraceDays}
	if c != nil {
		out = *c
	}
	if out.Location == nil {
		out.Location = time.UTC
	}
	if out.DateGraceDays < 0 {
		out.DateGraceDays = DefaultDateGraceDays
	}
	if out.ParentLookupAttempts <= 0 {
		out.ParentLookupAttempts = DefaultParentLookupAttempts
	}
	if out.PlaceholderTitle == "" {
		out.PlaceholderTitle = DefaultPlaceholderTitle
	}
	if out.PlaceholderVenue == "" {
		out.PlaceholderVenue = DefaultPlaceholderVenue
	}
	if out.Currency == "" {
		out.Currency = DefaultCurrency
	}
	if out.OutboxTopic == "" {
		out.OutboxTopic = DefaultOutboxTopic
	}
	if out.MaxTicketsPerBooking <= 0 {
		out.MaxTicketsPerBooking = domain.DefaultMaxTicketsPerBooking
	}
	if out.QRSize <= 0 {
		out.QRSize = ticketnumber.DefaultQRSize
	}
	return out
}
