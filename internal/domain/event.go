package domain

import (
	"time"

	"github.com/google/uuid"
)

// TicketEventType names a ticket lifecycle event
type TicketEventType string

const (
	TicketEventIssued    TicketEventType = "ticket.issued"
	TicketEventCheckedIn TicketEventType = "ticket.checked_in"
	TicketEventCancelled TicketEventType = "ticket.cancelled"
)

// TicketEvent is the payload published for ticket lifecycle changes
type TicketEvent struct {
	EventID      string          `json:"event_id"`
	EventType    TicketEventType `json:"event_type"`
	OccurredAt   time.Time       `json:"occurred_at"`
	TicketID     string          `json:"ticket_id"`
	TicketNumber string          `json:"ticket_number"`
	BookingID    string          `json:"booking_id"`
	ParentKind   ParentKind      `json:"parent_kind"`
	ParentID     string          `json:"parent_id"`
	UserID       string          `json:"user_id"`
	Status       TicketStatus    `json:"status"`
	Amount       string          `json:"amount"`
	Currency     string          `json:"currency,omitempty"`
	ScannerID    string          `json:"scanner_id,omitempty"`
	ScannerType  string          `json:"scanner_type,omitempty"`
}

// NewTicketEvent snapshots t for publication
func NewTicketEvent(eventType TicketEventType, t *Ticket, at time.Time) *TicketEvent {
	return &TicketEvent{
		EventID:      uuid.NewString(),
		EventType:    eventType,
		OccurredAt:   at,
		TicketID:     t.ID,
		TicketNumber: t.TicketNumber,
		BookingID:    t.BookingID,
		ParentKind:   t.Parent.Kind,
		ParentID:     t.Parent.ID,
		UserID:       t.UserID,
		Status:       t.Status,
		Amount:       t.Amount.StringFixed(2),
		Currency:     t.Currency,
		ScannerID:    t.UsedBy,
		ScannerType:  t.ScannerType,
	}
}

// TicketOutboxEvent wraps a ticket event in an outbox message keyed by booking,
// so all events of one booking stay ordered on one partition
func TicketOutboxEvent(eventType TicketEventType, t *Ticket, topic string, at time.Time) (*OutboxMessage, error) {
	return NewOutboxMessage("ticket", t.ID, string(eventType), topic, t.BookingID, NewTicketEvent(eventType, t, at))
}
