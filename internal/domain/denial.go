package domain

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// DenialReason is the machine-readable code a scanner receives when entry is refused
type DenialReason string

const (
	ReasonInvalidRequest   DenialReason = "INVALID_REQUEST"
	ReasonTicketNotFound   DenialReason = "TICKET_NOT_FOUND"
	ReasonWrongEvent       DenialReason = "WRONG_EVENT"
	ReasonAlreadyUsed      DenialReason = "ALREADY_USED"
	ReasonCancelled        DenialReason = "CANCELLED"
	ReasonWrongDate        DenialReason = "WRONG_DATE"
	ReasonUnauthorized     DenialReason = "UNAUTHORIZED"
	ReasonDuplicateHolder  DenialReason = "DUPLICATE_HOLDER"
	ReasonBookingFullyUsed DenialReason = "BOOKING_FULLY_USED"
	ReasonRateLimited      DenialReason = "RATE_LIMITED"
)

// String returns the string representation of DenialReason
func (r DenialReason) String() string {
	return string(r)
}

// HTTPStatus maps the reason to the status scanners receive
func (r DenialReason) HTTPStatus() int {
	switch r {
	case ReasonTicketNotFound:
		return http.StatusNotFound
	case ReasonAlreadyUsed, ReasonDuplicateHolder, ReasonBookingFullyUsed:
		return http.StatusConflict
	case ReasonCancelled:
		return http.StatusGone
	case ReasonUnauthorized:
		return http.StatusForbidden
	case ReasonRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusBadRequest
	}
}

// DefaultMessage is the short text shown on the scanner
func (r DenialReason) DefaultMessage() string {
	switch r {
	case ReasonInvalidRequest:
		return "Invalid verification request"
	case ReasonTicketNotFound:
		return "Ticket not found"
	case ReasonWrongEvent:
		return "Ticket is not valid for this event"
	case ReasonAlreadyUsed:
		return "Ticket already used"
	case ReasonCancelled:
		return "Ticket has been cancelled"
	case ReasonWrongDate:
		return "Ticket is not valid for today"
	case ReasonUnauthorized:
		return "You are not authorized to scan tickets for this event"
	case ReasonDuplicateHolder:
		return "Already checked in with another ticket from this booking"
	case ReasonBookingFullyUsed:
		return "All tickets from this booking already used"
	case ReasonRateLimited:
		return "Too many scans, slow down"
	}
	return "Entry denied"
}

// EntryDenied is returned by verification when the bearer must not be admitted
type EntryDenied struct {
	Reason  DenialReason
	Message string
	// UsedAt and UsedBy are set for ALREADY_USED so staff can resolve disputes
	UsedAt *time.Time
	UsedBy string
}

// Deny builds an EntryDenied with the reason's default message
func Deny(reason DenialReason) *EntryDenied {
	return &EntryDenied{Reason: reason, Message: reason.DefaultMessage()}
}

// DenyAlreadyUsed carries who admitted the ticket and when
func DenyAlreadyUsed(t *Ticket) *EntryDenied {
	d := Deny(ReasonAlreadyUsed)
	d.UsedAt = t.UsedAt
	d.UsedBy = t.UsedBy
	return d
}

func (e *EntryDenied) Error() string {
	return fmt.Sprintf("entry denied: %s: %s", e.Reason, e.Message)
}

// Details returns the extra context shown with the denial
func (e *EntryDenied) Details() map[string]interface{} {
	if e.UsedAt == nil && e.UsedBy == "" {
		return nil
	}
	details := map[string]interface{}{}
	if e.UsedAt != nil {
		details["used_at"] = e.UsedAt.UTC().Format(time.RFC3339)
	}
	if e.UsedBy != "" {
		details["used_by"] = e.UsedBy
	}
	return details
}

// AsEntryDenied unwraps err into an EntryDenied
func AsEntryDenied(err error) (*EntryDenied, bool) {
	var denied *EntryDenied
	if errors.As(err, &denied) {
		return denied, true
	}
	return nil, false
}
