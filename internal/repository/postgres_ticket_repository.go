package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/shreyasgurav/Zest-Prototype-sub001/internal/domain"
	"github.com/shreyasgurav/Zest-Prototype-sub001/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// Constraint names from migrations/001_ticketing.sql
const (
	constraintTicketNumber = "tickets_ticket_number_key"
	constraintBookingIndex = "tickets_booking_id_booking_index_key"
)

// ticketColumns selects a ticket; nullable text columns are coalesced to avoid scan errors
const ticketColumns = `id, ticket_number, parent_kind, parent_id, title, venue,
	booking_id, booking_index,
	COALESCE(booking_reference, '') AS booking_reference,
	COALESCE(total_tickets_in_booking, 0) AS total_tickets_in_booking,
	selected_date,
	COALESCE(time_slot_start, '') AS time_slot_start,
	COALESCE(time_slot_end, '') AS time_slot_end,
	amount::text, currency,
	COALESCE(ticket_type, '') AS ticket_type,
	quantity, status, used_at,
	COALESCE(used_by, '') AS used_by,
	COALESCE(scanner_type, '') AS scanner_type,
	entry_time, cancelled_at,
	COALESCE(validation_history, '[]'::jsonb) AS validation_history,
	user_id,
	COALESCE(user_name, '') AS user_name,
	COALESCE(user_email, '') AS user_email,
	COALESCE(user_phone, '') AS user_phone,
	created_at, updated_at`

// PostgresTicketRepository implements TicketRepository using PostgreSQL
type PostgresTicketRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresTicketRepository creates a new PostgresTicketRepository
func NewPostgresTicketRepository(pool *pgxpool.Pool) *PostgresTicketRepository {
	return &PostgresTicketRepository{pool: pool}
}

// ExistsByNumber reports whether a ticket number is taken
func (r *PostgresTicketRepository) ExistsByNumber(ctx context.Context, number string) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.ticket.exists_by_number")
	defer span.End()

	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tickets WHERE ticket_number = $1)`, number).Scan(&exists)
	if err != nil {
		telemetry.RecordError(span, err, "exists query failed")
		return false, fmt.Errorf("failed to check ticket number: %w", err)
	}
	return exists, nil
}

// GetByID retrieves a ticket by internal id
func (r *PostgresTicketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.ticket.get_by_id")
	defer span.End()
	span.SetAttributes(attribute.String("ticket_id", id))

	return getTicket(ctx, r.pool, `SELECT `+ticketColumns+` FROM tickets WHERE id = $1`, id)
}

// GetByNumber retrieves a ticket by its scan-facing number
func (r *PostgresTicketRepository) GetByNumber(ctx context.Context, number string) (*domain.Ticket, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.ticket.get_by_number")
	defer span.End()

	return getTicket(ctx, r.pool, `SELECT `+ticketColumns+` FROM tickets WHERE ticket_number = $1`, number)
}

// ListByBooking lists the tickets of a booking in booking order
func (r *PostgresTicketRepository) ListByBooking(ctx context.Context, bookingID string) ([]*domain.Ticket, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.ticket.list_by_booking")
	defer span.End()
	span.SetAttributes(attribute.String("booking_id", bookingID))

	return listTickets(ctx, r.pool,
		`SELECT `+ticketColumns+` FROM tickets WHERE booking_id = $1 ORDER BY booking_index`, bookingID)
}

// ListByUser lists the tickets held by a user, newest date first
func (r *PostgresTicketRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Ticket, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.ticket.list_by_user")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", userID))

	return listTickets(ctx, r.pool,
		`SELECT `+ticketColumns+` FROM tickets WHERE user_id = $1 ORDER BY selected_date DESC, booking_index`, userID)
}

func getTicket(ctx context.Context, db dbtx, query string, args ...any) (*domain.Ticket, error) {
	ticket, err := scanTicket(db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTicketNotFound
		}
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	return ticket, nil
}

func listTickets(ctx context.Context, db dbtx, query string, args ...any) ([]*domain.Ticket, error) {
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	defer rows.Close()

	tickets := make([]*domain.Ticket, 0)
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		tickets = append(tickets, ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tickets: %w", err)
	}
	return tickets, nil
}

// scanTicket scans a row selected with ticketColumns
func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	t := &domain.Ticket{}
	var (
		bookingReference string
		totalInBooking   int
		amount           string
		historyJSON      []byte
	)

	err := row.Scan(
		&t.ID,
		&t.TicketNumber,
		&t.Parent.Kind,
		&t.Parent.ID,
		&t.Title,
		&t.Venue,
		&t.BookingID,
		&t.BookingIndex,
		&bookingReference,
		&totalInBooking,
		&t.SelectedDate,
		&t.TimeSlot.StartTime,
		&t.TimeSlot.EndTime,
		&amount,
		&t.Currency,
		&t.TicketType,
		&t.Quantity,
		&t.Status,
		&t.UsedAt,
		&t.UsedBy,
		&t.ScannerType,
		&t.EntryTime,
		&t.CancelledAt,
		&historyJSON,
		&t.UserID,
		&t.UserName,
		&t.UserEmail,
		&t.UserPhone,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("failed to parse amount %q: %w", amount, err)
	}
	if err := json.Unmarshal(historyJSON, &t.ValidationHistory); err != nil {
		return nil, fmt.Errorf("failed to decode validation history: %w", err)
	}
	if bookingReference != "" {
		t.Group = &domain.GroupBooking{
			BookingReference:      bookingReference,
			TotalTicketsInBooking: totalInBooking,
			Index:                 t.BookingIndex,
		}
	}
	t.SelectedDate = domain.CalendarDate(t.SelectedDate)
	return t, nil
}

// insertTicket writes a new ticket within tx
func insertTicket(ctx context.Context, tx pgx.Tx, t *domain.Ticket) error {
	history, err := json.Marshal(t.ValidationHistory)
	if err != nil {
		return fmt.Errorf("failed to encode validation history: %w", err)
	}

	var (
		bookingReference *string
		totalInBooking   *int
	)
	if t.Group != nil {
		bookingReference = &t.Group.BookingReference
		totalInBooking = &t.Group.TotalTicketsInBooking
	}

	query := `
		INSERT INTO tickets (
			id, ticket_number, parent_kind, parent_id, title, venue,
			booking_id, booking_index, booking_reference, total_tickets_in_booking,
			selected_date, time_slot_start, time_slot_end,
			amount, currency, ticket_type, quantity, status,
			validation_history, user_id, user_name, user_email, user_phone,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10,
			$11, $12, $13,
			$14, $15, $16, $17, $18,
			$19, $20, $21, $22, $23,
			$24, $25
		)
	`

	_, err = tx.Exec(ctx, query,
		t.ID,
		t.TicketNumber,
		t.Parent.Kind.String(),
		t.Parent.ID,
		t.Title,
		t.Venue,
		t.BookingID,
		t.BookingIndex,
		bookingReference,
		totalInBooking,
		t.SelectedDate,
		nullStringPtr(t.TimeSlot.StartTime),
		nullStringPtr(t.TimeSlot.EndTime),
		t.Amount,
		t.Currency,
		nullStringPtr(t.TicketType),
		t.Quantity,
		t.Status.String(),
		history,
		t.UserID,
		nullStringPtr(t.UserName),
		nullStringPtr(t.UserEmail),
		nullStringPtr(t.UserPhone),
		t.CreatedAt,
		t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert ticket: %w", err)
	}
	return nil
}

// updateTicketState writes a status change, only if the stored ticket is still active
func updateTicketState(ctx context.Context, tx pgx.Tx, t *domain.Ticket) error {
	history, err := json.Marshal(t.ValidationHistory)
	if err != nil {
		return fmt.Errorf("failed to encode validation history: %w", err)
	}

	query := `
		UPDATE tickets SET
			status = $2,
			used_at = $3,
			used_by = $4,
			scanner_type = $5,
			entry_time = $6,
			cancelled_at = $7,
			validation_history = $8,
			updated_at = $9
		WHERE id = $1 AND status = 'active'
	`

	result, err := tx.Exec(ctx, query,
		t.ID,
		t.Status.String(),
		t.UsedAt,
		nullStringPtr(t.UsedBy),
		nullStringPtr(t.ScannerType),
		t.EntryTime,
		t.CancelledAt,
		history,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to update ticket: %w", err)
	}

	if result.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tickets WHERE id = $1)`, t.ID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check ticket existence: %w", err)
		}
		if !exists {
			return domain.ErrTicketNotFound
		}
		return domain.ErrInvalidTicketStatus
	}
	return nil
}

// nullStringPtr converts string to *string, returning nil for empty strings
func nullStringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
