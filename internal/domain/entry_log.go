package domain

import "time"

// EntryLog is the permanent record of a successful check-in. It is never updated.
type EntryLog struct {
	ID           string    `json:"id"`
	TicketID     string    `json:"ticket_id"`
	TicketNumber string    `json:"ticket_number"`
	Parent       ParentRef `json:"parent"`
	ScannerID    string    `json:"scanner_id"`
	ScannerType  string    `json:"scanner_type"`
	Location     string    `json:"location,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	UserID       string    `json:"user_id"`
	UserName     string    `json:"user_name"`
	UserEmail    string    `json:"user_email"`
}

// NewEntryLog builds the log entry for a ticket that was just marked used
func NewEntryLog(t *Ticket, location string) *EntryLog {
	var at time.Time
	if t.EntryTime != nil {
		at = *t.EntryTime
	}
	return &EntryLog{
		TicketID:     t.ID,
		TicketNumber: t.TicketNumber,
		Parent:       t.Parent,
		ScannerID:    t.UsedBy,
		ScannerType:  t.ScannerType,
		Location:     location,
		Timestamp:    at,
		UserID:       t.UserID,
		UserName:     t.UserName,
		UserEmail:    t.UserEmail,
	}
}
