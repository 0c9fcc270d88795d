package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shreyasgurav/Zest-Prototype-sub001/internal/domain"
	"github.com/shreyasgurav/Zest-Prototype-sub001/internal/dto"
	"github.com/shreyasgurav/Zest-Prototype-sub001/internal/metrics"
	"github.com/shreyasgurav/Zest-Prototype-sub001/internal/repository"
	"github.com/shreyasgurav/Zest-Prototype-sub001/pkg/logger"
	"github.com/shreyasgurav/Zest-Prototype-sub001/pkg/retry"
	"github.com/shreyasgurav/Zest-Prototype-sub001/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// NumberGenerator produces unique ticket numbers
type NumberGenerator interface {
	Generate(ctx context.Context, taken map[string]struct{}) (string, error)
}

// batchAttempts bounds whole-batch retries when a number is taken between check and insert
const batchAttempts = 2

// issuerService implements IssuerService
type issuerService struct {
	tickets      repository.TicketRepository
	parents      repository.ParentRepository
	writer       repository.TicketWriter
	numbers      NumberGenerator
	cfg          Config
	lookupPolicy retry.Policy
	now          func() time.Time
}

// NewIssuerService creates a new IssuerService
func NewIssuerService(
	tickets repository.TicketRepository,
	parents repository.ParentRepository,
	writer repository.TicketWriter,
	numbers NumberGenerator,
	cfg *Config,
) IssuerService {
	c := cfg.withDefaults()
	policy := retry.DefaultPolicy()
	policy.MaxAttempts = c.ParentLookupAttempts

	return &issuerService{
		tickets:      tickets,
		parents:      parents,
		writer:       writer,
		numbers:      numbers,
		cfg:          c,
		lookupPolicy: policy,
		now:          time.Now,
	}
}

// CreateTicketsForBooking issues every ticket of a booking
func (s *issuerService) CreateTicketsForBooking(ctx context.Context, req *dto.CreateTicketsRequest) (*IssueResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.issuer.create_tickets")
	defer span.End()

	if err := dto.Validate(req); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidBooking, err)
	}
	booking, err := req.ToBooking()
	if err != nil {
		return nil, err
	}
	booking.MaxTickets = s.cfg.MaxTicketsPerBooking
	if err := booking.Validate(); err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("booking_id", booking.ID),
		attribute.String("parent", booking.Parent.String()),
		attribute.Int("ticket_count", booking.TicketCount()),
	)

	existing, err := s.tickets.ListByBooking(ctx, booking.ID)
	if err != nil {
		return nil, s.fail(booking, err)
	}
	if len(existing) > 0 {
		return &IssueResult{Tickets: existing, AlreadyIssued: true}, nil
	}

	parent := s.resolveParent(ctx, booking.Parent)

	var (
		tickets []*domain.Ticket
		events  []*domain.OutboxMessage
	)
	for attempt := 1; ; attempt++ {
		tickets, err = s.buildTickets(ctx, booking, parent)
		if err != nil {
			return nil, s.fail(booking, err)
		}
		events, err = s.issuedEvents(tickets)
		if err != nil {
			return nil, s.fail(booking, err)
		}

		err = s.writer.CreateBatchWithOutbox(ctx, tickets, events)
		if errors.Is(err, domain.ErrDuplicateTicketNumber) && attempt < batchAttempts {
			continue
		}
		if errors.Is(err, domain.ErrTicketsAlreadyIssued) {
			// a concurrent call for the same booking won
			existing, rerr := s.tickets.ListByBooking(ctx, booking.ID)
			if rerr != nil {
				return nil, s.fail(booking, rerr)
			}
			return &IssueResult{Tickets: existing, AlreadyIssued: true}, nil
		}
		if err != nil {
			telemetry.RecordError(span, err, "batch write failed")
			return nil, s.fail(booking, err)
		}
		break
	}

	metrics.RecordTicketsIssued(booking.Parent.Kind.String(), len(tickets))
	logger.Get().Info("tickets issued",
		zap.String("booking_id", booking.ID),
		zap.String("parent", booking.Parent.String()),
		zap.Int("count", len(tickets)),
		zap.Bool("placeholder_parent", parent.Placeholder),
	)
	return &IssueResult{Tickets: tickets}, nil
}

// resolveParent looks up title and venue, falling back to placeholder text
func (s *issuerService) resolveParent(ctx context.Context, ref domain.ParentRef) *domain.Parent {
	parent, err := retry.Value(ctx, s.lookupPolicy, func(ctx context.Context) (*domain.Parent, error) {
		p, err := s.parents.GetByRef(ctx, ref)
		if errors.Is(err, domain.ErrParentNotFound) {
			return nil, retry.Permanent(err)
		}
		return p, err
	})
	if err != nil {
		logger.Get().Warn("parent lookup failed, issuing with placeholder",
			zap.String("parent", ref.String()),
			zap.Error(err),
		)
		return domain.PlaceholderParent(ref, s.cfg.PlaceholderTitle, s.cfg.PlaceholderVenue)
	}
	return parent
}

func (s *issuerService) buildTickets(ctx context.Context, b *domain.Booking, parent *domain.Parent) ([]*domain.Ticket, error) {
	lines := b.Lines()
	amounts := Apportion(b.TotalAmount, len(lines))
	currency := b.Currency
	if currency == "" {
		currency = s.cfg.Currency
	}

	now := s.now()
	taken := make(map[string]struct{}, len(lines))
	tickets := make([]*domain.Ticket, 0, len(lines))

	for i, line := range lines {
		number, err := s.numbers.Generate(ctx, taken)
		if err != nil {
			return nil, fmt.Errorf("failed to generate ticket number: %w", err)
		}
		holder := b.HolderFor(line.Index)

		t := &domain.Ticket{
			ID:           uuid.New().String(),
			TicketNumber: number,
			Parent:       b.Parent,
			Title:        parent.Title,
			Venue:        parent.Venue,
			BookingID:    b.ID,
			BookingIndex: line.Index,
			SelectedDate: domain.CalendarDate(b.SelectedDate),
			TimeSlot:     b.TimeSlot,
			Amount:       amounts[i],
			Currency:     currency,
			TicketType:   line.TicketType,
			Status:       domain.TicketStatusActive,
			ValidationHistory: []domain.ValidationEntry{
				{Timestamp: now, Action: domain.ActionCreated},
			},
			UserID:    holder.UserID,
			UserName:  holder.Name,
			UserEmail: holder.Email,
			UserPhone: holder.Phone,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if !b.Parent.IsEvent() {
			t.Quantity = 1
		}
		if len(lines) > 1 {
			t.Group = &domain.GroupBooking{
				BookingReference:      b.GroupReference(),
				TotalTicketsInBooking: len(lines),
				Index:                 line.Index,
			}
		}
		tickets = append(tickets, t)
	}
	return tickets, nil
}

func (s *issuerService) issuedEvents(tickets []*domain.Ticket) ([]*domain.OutboxMessage, error) {
	events := make([]*domain.OutboxMessage, 0, len(tickets))
	for _, t := range tickets {
		msg, err := domain.TicketOutboxEvent(domain.TicketEventIssued, t, s.cfg.OutboxTopic, t.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to build ticket event: %w", err)
		}
		events = append(events, msg)
	}
	return events, nil
}

// fail records a booking that needs manual reconciliation
func (s *issuerService) fail(b *domain.Booking, err error) error {
	metrics.RecordIssuanceFailure()
	logger.Get().Error("ticket creation failed",
		zap.String("booking_id", b.ID),
		zap.String("parent", b.Parent.String()),
		zap.Error(err),
	)
	return fmt.Errorf("%w: %w", domain.ErrTicketCreationFailed, err)
}
