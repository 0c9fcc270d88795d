package dto

import (
	"strings"
	"time"

	"github.com/shreyasgurav/Zest-Prototype-sub001/internal/domain"
)

// DefaultScannerType is used when the scanner does not say what it is
const DefaultScannerType = "staff"

// VerifyEntryRequest is one scan at a venue gate
type VerifyEntryRequest struct {
	TicketNumber string `json:"ticket_number" validate:"required,max=64"`
	EventID      string `json:"event_id" validate:"required_without=ActivityID,excluded_with=ActivityID,max=64"`
	ActivityID   string `json:"activity_id" validate:"required_without=EventID,excluded_with=EventID,max=64"`
	ScannerID    string `json:"-"`
	ScannerType  string `json:"scanner_type" validate:"omitempty,max=32"`
	Location     string `json:"location" validate:"max=255"`
}

// Target is the event or activity being scanned for
func (r *VerifyEntryRequest) Target() domain.ParentRef {
	if id := strings.TrimSpace(r.ActivityID); id != "" {
		return domain.ActivityRef(id)
	}
	return domain.EventRef(strings.TrimSpace(r.EventID))
}

// ScannerKind returns the scanner type, defaulting to staff
func (r *VerifyEntryRequest) ScannerKind() string {
	if r.ScannerType == "" {
		return DefaultScannerType
	}
	return r.ScannerType
}

// VerifyEntryResponse is returned when the bearer is admitted
type VerifyEntryResponse struct {
	Success          bool             `json:"success"`
	TicketID         string           `json:"ticket_id"`
	TicketNumber     string           `json:"ticket_number"`
	HolderName       string           `json:"holder_name"`
	Title            string           `json:"title"`
	TicketType       string           `json:"ticket_type,omitempty"`
	Amount           string           `json:"amount"`
	Currency         string           `json:"currency"`
	SelectedDate     string           `json:"selected_date"`
	SelectedTimeSlot TimeSlotResponse `json:"selected_time_slot"`
	EntryTime        string           `json:"entry_time"`
	BookingReference string           `json:"booking_reference,omitempty"`
}

// NewVerifyEntryResponse summarizes an admitted ticket for the scanner
func NewVerifyEntryResponse(t *domain.Ticket) *VerifyEntryResponse {
	resp := &VerifyEntryResponse{
		Success:      true,
		TicketID:     t.ID,
		TicketNumber: t.TicketNumber,
		HolderName:   t.UserName,
		Title:        t.Title,
		TicketType:   t.TicketType,
		Amount:       t.Amount.StringFixed(2),
		Currency:     t.Currency,
		SelectedDate: t.SelectedDate.Format(DateLayout),
		SelectedTimeSlot: TimeSlotResponse{
			StartTime: t.TimeSlot.StartTime,
			EndTime:   t.TimeSlot.EndTime,
		},
		BookingReference: t.BookingReference(),
	}
	if t.EntryTime != nil {
		resp.EntryTime = t.EntryTime.Format(time.RFC3339)
	}
	return resp
}

// EntryLogResponse represents one check-in
type EntryLogResponse struct {
	ID           string `json:"id"`
	TicketID     string `json:"ticket_id"`
	TicketNumber string `json:"ticket_number"`
	Type         string `json:"type"`
	ParentID     string `json:"parent_id"`
	ScannerID    string `json:"scanner_id"`
	ScannerType  string `json:"scanner_type"`
	Location     string `json:"location,omitempty"`
	Timestamp    string `json:"timestamp"`
	UserID       string `json:"user_id"`
	UserName     string `json:"user_name"`
	UserEmail    string `json:"user_email"`
}

// NewEntryLogResponses converts entry logs
func NewEntryLogResponses(logs []*domain.EntryLog) []*EntryLogResponse {
	out := make([]*EntryLogResponse, len(logs))
	for i, e := range logs {
		out[i] = &EntryLogResponse{
			ID:           e.ID,
			TicketID:     e.TicketID,
			TicketNumber: e.TicketNumber,
			Type:         e.Parent.Kind.String(),
			ParentID:     e.Parent.ID,
			ScannerID:    e.ScannerID,
			ScannerType:  e.ScannerType,
			Location:     e.Location,
			Timestamp:    e.Timestamp.Format(time.RFC3339),
			UserID:       e.UserID,
			UserName:     e.UserName,
			UserEmail:    e.UserEmail,
		}
	}
	return out
}

// EntryLogListFilter represents pagination for entry log listing
type EntryLogListFilter struct {
	Page    int `form:"page"`
	PerPage int `form:"per_page"`
}

// SetDefaults sets default values for pagination
func (f *EntryLogListFilter) SetDefaults() {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.PerPage <= 0 || f.PerPage > 100 {
		f.PerPage = 50
	}
}

// Offset is the row offset of the page
func (f *EntryLogListFilter) Offset() int {
	return (f.Page - 1) * f.PerPage
}
