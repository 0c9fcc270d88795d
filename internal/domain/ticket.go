package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TicketStatus represents the lifecycle state of a ticket
type TicketStatus string

const (
	TicketStatusActive    TicketStatus = "active"
	TicketStatusUsed      TicketStatus = "used"
	TicketStatusCancelled TicketStatus = "cancelled"
)

// IsValid checks if the status is a valid TicketStatus
func (s TicketStatus) IsValid() bool {
	switch s {
	case TicketStatusActive, TicketStatusUsed, TicketStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of TicketStatus
func (s TicketStatus) String() string {
	return string(s)
}

// CanTransitionTo reports whether s may move to next. Only active tickets move, and never back.
func (s TicketStatus) CanTransitionTo(next TicketStatus) bool {
	return s == TicketStatusActive && (next == TicketStatusUsed || next == TicketStatusCancelled)
}

// Validation history actions
const (
	ActionCreated   = "created"
	ActionCheckedIn = "checked_in"
	ActionCancelled = "cancelled"
)

// ValidationEntry is one append-only audit step on a ticket
type ValidationEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Location  string    `json:"location"`
}

// TimeSlot is the admission window within the selected date
type TimeSlot struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// GroupBooking links tickets that were issued from one purchase
type GroupBooking struct {
	BookingReference      string `json:"booking_reference"`
	TotalTicketsInBooking int    `json:"total_tickets_in_booking"`
	Index                 int    `json:"index"`
}

// Ticket is one admission unit
type Ticket struct {
	ID           string          `json:"id"`
	TicketNumber string          `json:"ticket_number"`
	Parent       ParentRef       `json:"parent"`
	Title        string          `json:"title"`
	Venue        string          `json:"venue"`
	BookingID    string          `json:"booking_id"`
	BookingIndex int             `json:"booking_index"`
	Group        *GroupBooking   `json:"group,omitempty"`
	SelectedDate time.Time       `json:"selected_date"`
	TimeSlot     TimeSlot        `json:"time_slot"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	TicketType   string          `json:"ticket_type,omitempty"`
	Quantity     int             `json:"quantity,omitempty"`

	Status      TicketStatus `json:"status"`
	UsedAt      *time.Time   `json:"used_at,omitempty"`
	UsedBy      string       `json:"used_by,omitempty"`
	ScannerType string       `json:"scanner_type,omitempty"`
	EntryTime   *time.Time   `json:"entry_time,omitempty"`
	CancelledAt *time.Time   `json:"cancelled_at,omitempty"`

	ValidationHistory []ValidationEntry `json:"validation_history"`

	UserID    string `json:"user_id"`
	UserName  string `json:"user_name"`
	UserEmail string `json:"user_email"`
	UserPhone string `json:"user_phone,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BookingReference returns the group reference, or "" for single-ticket bookings
func (t *Ticket) BookingReference() string {
	if t.Group == nil {
		return ""
	}
	return t.Group.BookingReference
}

// IsActive checks if the ticket can still be used
func (t *Ticket) IsActive() bool {
	return t.Status == TicketStatusActive
}

// MarkUsed admits the ticket. usedAt, entryTime and the history entry share one instant.
func (t *Ticket) MarkUsed(scannerID, scannerType, location string, at time.Time) error {
	if !t.Status.CanTransitionTo(TicketStatusUsed) {
		return ErrInvalidTicketStatus
	}
	t.Status = TicketStatusUsed
	t.UsedAt = &at
	t.EntryTime = &at
	t.UsedBy = scannerID
	t.ScannerType = scannerType
	t.UpdatedAt = at
	t.ValidationHistory = append(t.ValidationHistory, ValidationEntry{
		Timestamp: at,
		Action:    ActionCheckedIn,
		Location:  location,
	})
	return nil
}

// Cancel flags the ticket as cancelled; cancelled tickets are never deleted
func (t *Ticket) Cancel(at time.Time) error {
	if !t.Status.CanTransitionTo(TicketStatusCancelled) {
		return ErrInvalidTicketStatus
	}
	t.Status = TicketStatusCancelled
	t.CancelledAt = &at
	t.UpdatedAt = at
	t.ValidationHistory = append(t.ValidationHistory, ValidationEntry{
		Timestamp: at,
		Action:    ActionCancelled,
		Location:  "",
	})
	return nil
}

// IsUpcoming reports whether the selected date is today or later in loc
func (t *Ticket) IsUpcoming(now time.Time, loc *time.Location) bool {
	return DayOffset(t.SelectedDate, now, loc) >= 0
}

// DayOffset returns how many calendar days date lies after now's date in loc.
// date is a calendar date; its own zone is ignored.
func DayOffset(date, now time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := now.In(loc).Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	dy, dm, dd := date.Date()
	day := time.Date(dy, dm, dd, 0, 0, 0, 0, time.UTC)
	return int(day.Sub(today).Hours() / 24)
}

// CalendarDate strips the clock and zone from t
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// HolderMatches reports whether two identities are the same person (same email and same user id)
func HolderMatches(userID, email, otherUserID, otherEmail string) bool {
	return userID != "" && email != "" && userID == otherUserID && equalFoldEmail(email, otherEmail)
}
