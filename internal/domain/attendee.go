package domain

import (
	"strings"
	"time"
)

// Attendee is a check-in record produced by the booking flow or by a successful scan.
// Legacy group records carry per-type counts in Tickets instead of one holder.
type Attendee struct {
	ID                      string         `json:"id"`
	Parent                  ParentRef      `json:"parent"`
	TicketID                string         `json:"ticket_id,omitempty"`
	BookingReference        string         `json:"booking_reference,omitempty"`
	UserID                  string         `json:"user_id"`
	Name                    string         `json:"name"`
	Email                   string         `json:"email"`
	Phone                   string         `json:"phone,omitempty"`
	TicketType              string         `json:"ticket_type,omitempty"`
	CanCheckInIndependently bool           `json:"can_check_in_independently"`
	Tickets                 map[string]int `json:"tickets,omitempty"`
	CheckedIn               bool           `json:"checked_in"`
	CheckedInAt             *time.Time     `json:"checked_in_at,omitempty"`
	CreatedAt               time.Time      `json:"created_at"`
}

// IsLegacyGroup reports whether the record stands for several admissions
func (a *Attendee) IsLegacyGroup() bool {
	return len(a.Tickets) > 0
}

// Admissions is how many entries the record counts for against a booking quota
func (a *Attendee) Admissions() int {
	if !a.IsLegacyGroup() {
		return 1
	}
	n := 0
	for _, c := range a.Tickets {
		if c > 0 {
			n += c
		}
	}
	return n
}

// CountAdmissions sums the admissions of checked-in records
func CountAdmissions(attendees []*Attendee) int {
	n := 0
	for _, a := range attendees {
		if a.CheckedIn {
			n += a.Admissions()
		}
	}
	return n
}

// NewCheckedInAttendee records a ticket holder admitted at a scan
func NewCheckedInAttendee(t *Ticket, at time.Time) *Attendee {
	return &Attendee{
		Parent:                  t.Parent,
		TicketID:                t.ID,
		BookingReference:        t.BookingReference(),
		UserID:                  t.UserID,
		Name:                    t.UserName,
		Email:                   t.UserEmail,
		Phone:                   t.UserPhone,
		TicketType:              t.TicketType,
		CanCheckInIndependently: true,
		CheckedIn:               true,
		CheckedInAt:             &at,
		CreatedAt:               at,
	}
}

func equalFoldEmail(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
