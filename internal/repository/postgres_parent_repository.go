package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shreyasgurav/Zest-Prototype-sub001/internal/domain"
	"github.com/shreyasgurav/Zest-Prototype-sub001/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// parentTables maps a kind to its table; both tables share one column layout
var parentTables = map[domain.ParentKind]string{
	domain.ParentKindEvent:    "events",
	domain.ParentKindActivity: "activities",
}

// PostgresParentRepository implements ParentRepository using PostgreSQL
type PostgresParentRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresParentRepository creates a new PostgresParentRepository
func NewPostgresParentRepository(pool *pgxpool.Pool) *PostgresParentRepository {
	return &PostgresParentRepository{pool: pool}
}

// GetByRef retrieves an event or activity
func (r *PostgresParentRepository) GetByRef(ctx context.Context, ref domain.ParentRef) (*domain.Parent, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.parent.get_by_ref")
	defer span.End()
	span.SetAttributes(
		attribute.String("parent_kind", ref.Kind.String()),
		attribute.String("parent_id", ref.ID),
	)

	table, ok := parentTables[ref.Kind]
	if !ok {
		return nil, domain.ErrInvalidParentKind
	}

	query := fmt.Sprintf(`
		SELECT title,
			COALESCE(venue, '') AS venue,
			COALESCE(organization_id, '') AS organization_id,
			COALESCE(creator_user_id, '') AS creator_user_id,
			COALESCE(authorized_staff, '{}') AS authorized_staff
		FROM %s
		WHERE id = $1
	`, table)

	parent := &domain.Parent{Ref: ref}
	err := r.pool.QueryRow(ctx, query, ref.ID).Scan(
		&parent.Title,
		&parent.Venue,
		&parent.OrganizationID,
		&parent.CreatorUserID,
		&parent.AuthorizedStaff,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrParentNotFound
		}
		telemetry.RecordError(span, err, "parent query failed")
		return nil, fmt.Errorf("failed to get %s: %w", ref.Kind, err)
	}
	return parent, nil
}
