package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shreyasgurav/Zest-Prototype-sub001/internal/domain"
)

// TicketRepository defines read access to tickets
type TicketRepository interface {
	// ExistsByNumber reports whether a ticket number is taken
	ExistsByNumber(ctx context.Context, number string) (bool, error)
	// GetByID retrieves a ticket by internal id
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	// GetByNumber retrieves a ticket by its scan-facing number
	GetByNumber(ctx context.Context, number string) (*domain.Ticket, error)
	// ListByBooking lists the tickets of a booking in booking order
	ListByBooking(ctx context.Context, bookingID string) ([]*domain.Ticket, error)
	// ListByUser lists the tickets held by a user
	ListByUser(ctx context.Context, userID string) ([]*domain.Ticket, error)
}

// ParentRepository resolves event and activity metadata
type ParentRepository interface {
	GetByRef(ctx context.Context, ref domain.ParentRef) (*domain.Parent, error)
}

// EntryLogRepository reads the check-in ledger
type EntryLogRepository interface {
	ListByParent(ctx context.Context, ref domain.ParentRef, limit, offset int) ([]*domain.EntryLog, int64, error)
}

// TicketWriter performs every ticket state change together with its outbox event
type TicketWriter interface {
	// CreateBatchWithOutbox inserts all tickets and their events in one transaction
	CreateBatchWithOutbox(ctx context.Context, tickets []*domain.Ticket, events []*domain.OutboxMessage) error
	// CancelWithOutbox persists a cancelled ticket if it is still active
	CancelWithOutbox(ctx context.Context, ticket *domain.Ticket, event *domain.OutboxMessage) error
	// RunCheckIn runs fn inside one transaction; any error from fn rolls everything back
	RunCheckIn(ctx context.Context, fn func(tx CheckInTx) error) error
}

// CheckInTx is the transactional view the verifier commits a check-in through
type CheckInTx interface {
	// LockBookingReference serializes check-ins of one booking until the transaction ends
	LockBookingReference(ctx context.Context, bookingReference string) error
	// GetTicketForUpdate reads and row-locks a ticket
	GetTicketForUpdate(ctx context.Context, id string) (*domain.Ticket, error)
	// ListCheckedInAttendees lists checked-in attendees sharing the booking reference
	ListCheckedInAttendees(ctx context.Context, parent domain.ParentRef, bookingReference string) ([]*domain.Attendee, error)
	// MarkUsed persists a used ticket; it fails with ErrInvalidTicketStatus unless the row was active
	MarkUsed(ctx context.Context, ticket *domain.Ticket) error
	// InsertEntryLog appends to the entry ledger
	InsertEntryLog(ctx context.Context, log *domain.EntryLog) error
	// UpsertAttendeeCheckIn records the holder as checked in
	UpsertAttendeeCheckIn(ctx context.Context, attendee *domain.Attendee) error
	// InsertOutbox stores an event for the relay
	InsertOutbox(ctx context.Context, msg *domain.OutboxMessage) error
}

// OutboxRepository defines the interface for outbox data access
type OutboxRepository interface {
	// CreateTx creates a new outbox message within a transaction
	CreateTx(ctx context.Context, tx pgx.Tx, msg *domain.OutboxMessage) error
	// GetPendingMessages gets pending messages to be published
	GetPendingMessages(ctx context.Context, limit int) ([]*domain.OutboxMessage, error)
	// GetFailedMessages gets failed messages that can be retried
	GetFailedMessages(ctx context.Context, limit int) ([]*domain.OutboxMessage, error)
	// MarkAsPublished marks a message as successfully published
	MarkAsPublished(ctx context.Context, id string) error
	// MarkAsFailed marks a message as failed
	MarkAsFailed(ctx context.Context, id string, reason string) error
	// DeletePublished deletes published messages older than the given days
	DeletePublished(ctx context.Context, olderThanDays int) (int64, error)
}

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
