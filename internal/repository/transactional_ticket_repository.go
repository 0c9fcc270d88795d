package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shreyasgurav/Zest-Prototype-sub001/internal/domain"
	"github.com/shreyasgurav/Zest-Prototype-sub001/pkg/database"
	"github.com/shreyasgurav/Zest-Prototype-sub001/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// TransactionalTicketRepository implements TicketWriter; every state change
// commits together with its outbox rows
type TransactionalTicketRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionalTicketRepository creates a new TransactionalTicketRepository
func NewTransactionalTicketRepository(pool *pgxpool.Pool) *TransactionalTicketRepository {
	return &TransactionalTicketRepository{pool: pool}
}

// CreateBatchWithOutbox inserts all tickets of a booking and their events atomically.
// A concurrent issuance of the same booking surfaces as ErrTicketsAlreadyIssued.
func (r *TransactionalTicketRepository) CreateBatchWithOutbox(ctx context.Context, tickets []*domain.Ticket, events []*domain.OutboxMessage) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.ticket.create_batch")
	defer span.End()
	span.SetAttributes(attribute.Int("ticket_count", len(tickets)))

	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, t := range tickets {
			if err := insertTicket(ctx, tx, t); err != nil {
				return err
			}
		}
		for _, msg := range events {
			if err := insertOutbox(ctx, tx, msg); err != nil {
				return err
			}
		}
		return nil
	})

	switch {
	case err == nil:
		return nil
	case database.IsUniqueViolation(err, constraintBookingIndex):
		return domain.ErrTicketsAlreadyIssued
	case database.IsUniqueViolation(err, constraintTicketNumber):
		return domain.ErrDuplicateTicketNumber
	default:
		telemetry.RecordError(span, err, "batch insert failed")
		return err
	}
}

// CancelWithOutbox persists a cancelled ticket if it is still active
func (r *TransactionalTicketRepository) CancelWithOutbox(ctx context.Context, ticket *domain.Ticket, event *domain.OutboxMessage) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.ticket.cancel")
	defer span.End()
	span.SetAttributes(attribute.String("ticket_id", ticket.ID))

	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := updateTicketState(ctx, tx, ticket); err != nil {
			return err
		}
		return insertOutbox(ctx, tx, event)
	})
}

// RunCheckIn runs fn inside one transaction
func (r *TransactionalTicketRepository) RunCheckIn(ctx context.Context, fn func(tx CheckInTx) error) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.ticket.check_in")
	defer span.End()

	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&postgresCheckInTx{tx: tx})
	})
}

// postgresCheckInTx implements CheckInTx on an open transaction
type postgresCheckInTx struct {
	tx pgx.Tx
}

// LockBookingReference takes a transaction-scoped advisory lock keyed by the reference
func (c *postgresCheckInTx) LockBookingReference(ctx context.Context, bookingReference string) error {
	if _, err := c.tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, bookingReference); err != nil {
		return fmt.Errorf("failed to lock booking reference: %w", err)
	}
	return nil
}

func (c *postgresCheckInTx) GetTicketForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	return getTicket(ctx, c.tx, `SELECT `+ticketColumns+` FROM tickets WHERE id = $1 FOR UPDATE`, id)
}

func (c *postgresCheckInTx) ListCheckedInAttendees(ctx context.Context, parent domain.ParentRef, bookingReference string) ([]*domain.Attendee, error) {
	query := `
		SELECT id, COALESCE(ticket_id::text, '') AS ticket_id, booking_reference,
			COALESCE(user_id, '') AS user_id,
			COALESCE(name, '') AS name,
			COALESCE(email, '') AS email,
			COALESCE(phone, '') AS phone,
			COALESCE(ticket_type, '') AS ticket_type,
			can_check_in_independently, tickets, checked_in, checked_in_at, created_at
		FROM attendees
		WHERE parent_kind = $1 AND parent_id = $2 AND booking_reference = $3 AND checked_in = true
	`
	rows, err := c.tx.Query(ctx, query, parent.Kind.String(), parent.ID, bookingReference)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendees: %w", err)
	}
	defer rows.Close()

	attendees := make([]*domain.Attendee, 0)
	for rows.Next() {
		a := &domain.Attendee{Parent: parent}
		var ticketsJSON []byte
		err := rows.Scan(
			&a.ID,
			&a.TicketID,
			&a.BookingReference,
			&a.UserID,
			&a.Name,
			&a.Email,
			&a.Phone,
			&a.TicketType,
			&a.CanCheckInIndependently,
			&ticketsJSON,
			&a.CheckedIn,
			&a.CheckedInAt,
			&a.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendee: %w", err)
		}
		if len(ticketsJSON) > 0 {
			if err := json.Unmarshal(ticketsJSON, &a.Tickets); err != nil {
				return nil, fmt.Errorf("failed to decode attendee tickets: %w", err)
			}
		}
		attendees = append(attendees, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attendees: %w", err)
	}
	return attendees, nil
}

func (c *postgresCheckInTx) MarkUsed(ctx context.Context, ticket *domain.Ticket) error {
	return updateTicketState(ctx, c.tx, ticket)
}

func (c *postgresCheckInTx) InsertEntryLog(ctx context.Context, log *domain.EntryLog) error {
	if log.ID == "" {
		log.ID = uuid.New().String()
	}
	return insertEntryLog(ctx, c.tx, log)
}

func (c *postgresCheckInTx) UpsertAttendeeCheckIn(ctx context.Context, a *domain.Attendee) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}

	query := `
		INSERT INTO attendees (
			id, parent_kind, parent_id, ticket_id, booking_reference,
			user_id, name, email, phone, ticket_type,
			can_check_in_independently, checked_in, checked_in_at, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)
		ON CONFLICT (ticket_id) DO UPDATE SET
			checked_in = true,
			checked_in_at = EXCLUDED.checked_in_at
	`
	_, err := c.tx.Exec(ctx, query,
		a.ID,
		a.Parent.Kind.String(),
		a.Parent.ID,
		a.TicketID,
		nullStringPtr(a.BookingReference),
		nullStringPtr(a.UserID),
		nullStringPtr(a.Name),
		nullStringPtr(a.Email),
		nullStringPtr(a.Phone),
		nullStringPtr(a.TicketType),
		a.CanCheckInIndependently,
		a.CheckedIn,
		a.CheckedInAt,
		a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert attendee: %w", err)
	}
	return nil
}

func (c *postgresCheckInTx) InsertOutbox(ctx context.Context, msg *domain.OutboxMessage) error {
	return insertOutbox(ctx, c.tx, msg)
}
