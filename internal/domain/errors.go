package domain

import "errors"

// Domain errors
var (
	// Ticket errors
	ErrTicketNotFound        = errors.New("ticket not found")
	ErrTicketCreationFailed  = errors.New("ticket creation failed")
	ErrTicketsAlreadyIssued  = errors.New("tickets already issued for booking")
	ErrDuplicateTicketNumber = errors.New("ticket number already exists")
	ErrInvalidTicketStatus   = errors.New("invalid ticket status")
	ErrNotTicketHolder       = errors.New("caller is not allowed to access this ticket")

	// Booking input errors
	ErrInvalidBooking      = errors.New("invalid booking")
	ErrInvalidBookingID    = errors.New("invalid booking id")
	ErrInvalidUserID       = errors.New("invalid user id")
	ErrInvalidSelectedDate = errors.New("invalid selected date")
	ErrInvalidQuantity     = errors.New("invalid ticket quantity")
	ErrInvalidAmount       = errors.New("invalid booking amount")

	// Parent errors
	ErrParentNotFound    = errors.New("event or activity not found")
	ErrInvalidParentKind = errors.New("invalid parent kind")
	ErrInvalidParentID   = errors.New("invalid parent id")
	ErrNotParentStaff    = errors.New("caller is not owner or staff of this event")

	// Entry log errors
	ErrEntryLogNotFound = errors.New("entry log not found")
)

// IsNotFoundError reports whether err is a not-found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrTicketNotFound) ||
		errors.Is(err, ErrParentNotFound) ||
		errors.Is(err, ErrEntryLogNotFound)
}

// IsValidationError reports whether err is caused by bad input
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidBooking) ||
		errors.Is(err, ErrInvalidBookingID) ||
		errors.Is(err, ErrInvalidUserID) ||
		errors.Is(err, ErrInvalidSelectedDate) ||
		errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidParentKind) ||
		errors.Is(err, ErrInvalidParentID)
}

// IsConflictError reports whether err is a state conflict
func IsConflictError(err error) bool {
	return errors.Is(err, ErrInvalidTicketStatus) ||
		errors.Is(err, ErrTicketsAlreadyIssued) ||
		errors.Is(err, ErrDuplicateTicketNumber)
}

// IsForbiddenError reports whether err is an authorization failure
func IsForbiddenError(err error) bool {
	return errors.Is(err, ErrNotTicketHolder) || errors.Is(err, ErrNotParentStaff)
}
