package domain

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// HolderDetails identifies the person a ticket admits
type HolderDetails struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone,omitempty"`
}

// Booking is a confirmed purchase handed over by the booking flow
type Booking struct {
	ID               string
	Parent           ParentRef
	BookingReference string
	PaymentID        string
	Buyer            HolderDetails
	SelectedDate     time.Time
	TimeSlot         TimeSlot
	// TicketTypes maps ticket type name to quantity; used for events
	TicketTypes map[string]int
	// Quantity is the flat count for activities
	Quantity    int
	TotalAmount decimal.Decimal
	Currency    string
	// Attendees optionally names the holder of each ticket, in issuance order
	Attendees []HolderDetails
	// MaxTickets bounds TicketCount; zero means DefaultMaxTicketsPerBooking
	MaxTickets int
}

// DefaultMaxTicketsPerBooking caps the expansion of one booking when no limit is set
const DefaultMaxTicketsPerBooking = 100

// TicketLine is one ticket the booking expands into, before numbering
type TicketLine struct {
	TicketType string
	Index      int
}

// Validate checks the fields issuance depends on
func (b *Booking) Validate() error {
	if strings.TrimSpace(b.ID) == "" {
		return ErrInvalidBookingID
	}
	if err := b.Parent.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(b.Buyer.UserID) == "" {
		return ErrInvalidUserID
	}
	if b.SelectedDate.IsZero() {
		return ErrInvalidSelectedDate
	}
	if b.TotalAmount.IsNegative() {
		return ErrInvalidAmount
	}
	return b.validateCount()
}

// validateCount sums quantities against the limit, stopping before the sum can overflow
func (b *Booking) validateCount() error {
	limit := b.MaxTickets
	if limit <= 0 {
		limit = DefaultMaxTicketsPerBooking
	}
	if !b.Parent.IsEvent() {
		if b.Quantity <= 0 || b.Quantity > limit {
			return ErrInvalidQuantity
		}
		return nil
	}

	total := 0
	for name, qty := range b.TicketTypes {
		if strings.TrimSpace(name) == "" || qty < 0 || qty > limit-total {
			return ErrInvalidQuantity
		}
		total += qty
	}
	if total == 0 {
		return ErrInvalidQuantity
	}
	return nil
}

// TicketCount is the number of tickets the booking expands into
func (b *Booking) TicketCount() int {
	if !b.Parent.IsEvent() {
		return b.Quantity
	}
	total := 0
	for _, qty := range b.TicketTypes {
		if qty > 0 {
			total += qty
		}
	}
	return total
}

// Lines expands the booking in a stable order: ticket types by name, then quantity.
// Activities yield untyped lines. Index is 1-based across the whole booking.
func (b *Booking) Lines() []TicketLine {
	lines := make([]TicketLine, 0, b.TicketCount())
	if !b.Parent.IsEvent() {
		for i := 0; i < b.Quantity; i++ {
			lines = append(lines, TicketLine{Index: i + 1})
		}
		return lines
	}

	names := make([]string, 0, len(b.TicketTypes))
	for name := range b.TicketTypes {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		for i := 0; i < b.TicketTypes[name]; i++ {
			lines = append(lines, TicketLine{TicketType: name, Index: len(lines) + 1})
		}
	}
	return lines
}

// GroupReference is the reference shared by all tickets of the booking
func (b *Booking) GroupReference() string {
	if ref := strings.TrimSpace(b.BookingReference); ref != "" {
		return ref
	}
	return b.ID
}

// HolderFor returns the holder of the ticket at 1-based index
func (b *Booking) HolderFor(index int) HolderDetails {
	if index >= 1 && index <= len(b.Attendees) {
		h := b.Attendees[index-1]
		if h.UserID == "" {
			h.UserID = b.Buyer.UserID
		}
		if h.Name != "" || h.Email != "" {
			return h
		}
	}
	return b.Buyer
}
