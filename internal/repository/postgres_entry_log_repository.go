package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shreyasgurav/Zest-Prototype-sub001/internal/domain"
	"github.com/shreyasgurav/Zest-Prototype-sub001/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// PostgresEntryLogRepository implements EntryLogRepository using PostgreSQL
type PostgresEntryLogRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresEntryLogRepository creates a new PostgresEntryLogRepository
func NewPostgresEntryLogRepository(pool *pgxpool.Pool) *PostgresEntryLogRepository {
	return &PostgresEntryLogRepository{pool: pool}
}

// ListByParent lists check-ins for an event or activity, newest first
func (r *PostgresEntryLogRepository) ListByParent(ctx context.Context, ref domain.ParentRef, limit, offset int) ([]*domain.EntryLog, int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.entry_log.list_by_parent")
	defer span.End()
	span.SetAttributes(
		attribute.String("parent", ref.String()),
		attribute.Int("limit", limit),
		attribute.Int("offset", offset),
	)

	var total int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM entry_logs WHERE parent_kind = $1 AND parent_id = $2`,
		ref.Kind.String(), ref.ID,
	).Scan(&total)
	if err != nil {
		telemetry.RecordError(span, err, "count failed")
		return nil, 0, fmt.Errorf("failed to count entry logs: %w", err)
	}

	query := `
		SELECT id, ticket_id, ticket_number, parent_kind, parent_id,
			scanner_id, scanner_type, COALESCE(location, '') AS location, timestamp,
			user_id, COALESCE(user_name, '') AS user_name, COALESCE(user_email, '') AS user_email
		FROM entry_logs
		WHERE parent_kind = $1 AND parent_id = $2
		ORDER BY timestamp DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.pool.Query(ctx, query, ref.Kind.String(), ref.ID, limit, offset)
	if err != nil {
		telemetry.RecordError(span, err, "list failed")
		return nil, 0, fmt.Errorf("failed to list entry logs: %w", err)
	}
	defer rows.Close()

	logs := make([]*domain.EntryLog, 0)
	for rows.Next() {
		entry, err := scanEntryLog(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan entry log: %w", err)
		}
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate entry logs: %w", err)
	}
	return logs, total, nil
}

func scanEntryLog(row pgx.Row) (*domain.EntryLog, error) {
	e := &domain.EntryLog{}
	err := row.Scan(
		&e.ID,
		&e.TicketID,
		&e.TicketNumber,
		&e.Parent.Kind,
		&e.Parent.ID,
		&e.ScannerID,
		&e.ScannerType,
		&e.Location,
		&e.Timestamp,
		&e.UserID,
		&e.UserName,
		&e.UserEmail,
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// insertEntryLog appends a check-in within tx
func insertEntryLog(ctx context.Context, tx pgx.Tx, e *domain.EntryLog) error {
	query := `
		INSERT INTO entry_logs (
			id, ticket_id, ticket_number, parent_kind, parent_id,
			scanner_id, scanner_type, location, timestamp,
			user_id, user_name, user_email
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
	`
	_, err := tx.Exec(ctx, query,
		e.ID,
		e.TicketID,
		e.TicketNumber,
		e.Parent.Kind.String(),
		e.Parent.ID,
		e.ScannerID,
		e.ScannerType,
		nullStringPtr(e.Location),
		e.Timestamp,
		e.UserID,
		nullStringPtr(e.UserName),
		nullStringPtr(e.UserEmail),
	)
	if err != nil {
		return fmt.Errorf("failed to insert entry log: %w", err)
	}
	return nil
}
