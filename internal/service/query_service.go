package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shreyasgurav/Zest-Prototype-sub001/internal/domain"
	"github.com/shreyasgurav/Zest-Prototype-sub001/internal/dto"
	"github.com/shreyasgurav/Zest-Prototype-sub001/internal/repository"
	"github.com/shreyasgurav/Zest-Prototype-sub001/internal/ticketnumber"
	"github.com/shreyasgurav/Zest-Prototype-sub001/pkg/logger"
	"github.com/shreyasgurav/Zest-Prototype-sub001/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ticketQueryService implements TicketQueryService
type ticketQueryService struct {
	tickets   repository.TicketRepository
	parents   repository.ParentRepository
	entryLogs repository.EntryLogRepository
	writer    repository.TicketWriter
	cfg       Config
	now       func() time.Time
}

// NewTicketQueryService creates a new TicketQueryService
func NewTicketQueryService(
	tickets repository.TicketRepository,
	parents repository.ParentRepository,
	entryLogs repository.EntryLogRepository,
	writer repository.TicketWriter,
	cfg *Config,
) TicketQueryService {
	return &ticketQueryService{
		tickets:   tickets,
		parents:   parents,
		entryLogs: entryLogs,
		writer:    writer,
		cfg:       cfg.withDefaults(),
		now:       time.Now,
	}
}

// ListUserTickets lists a user's tickets for the wallet view
func (s *ticketQueryService) ListUserTickets(ctx context.Context, userID string) ([]*domain.Ticket, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.ticket.list_user")
	defer span.End()

	tickets, err := s.tickets.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	current := func(t *domain.Ticket) bool {
		return t.IsActive() && t.IsUpcoming(now, s.cfg.Location)
	}
	sort.SliceStable(tickets, func(i, j int) bool {
		ci, cj := current(tickets[i]), current(tickets[j])
		if ci != cj {
			return ci
		}
		return tickets[i].SelectedDate.After(tickets[j].SelectedDate)
	})
	return tickets, nil
}

// GetTicket retrieves a ticket visible to the caller
func (s *ticketQueryService) GetTicket(ctx context.Context, caller Caller, id string) (*domain.Ticket, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.ticket.get")
	defer span.End()
	span.SetAttributes(attribute.String("ticket_id", id))

	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeRead(ctx, caller, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// GetTicketByNumber retrieves a ticket by its scan-facing number
func (s *ticketQueryService) GetTicketByNumber(ctx context.Context, caller Caller, number string) (*domain.Ticket, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.ticket.get_by_number")
	defer span.End()

	ticket, err := s.tickets.GetByNumber(ctx, ticketnumber.Normalize(number))
	if err != nil {
		return nil, err
	}
	if err := s.authorizeRead(ctx, caller, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// CancelTicket cancels an active ticket. Only the holder, the parent's owner or an admin may cancel.
func (s *ticketQueryService) CancelTicket(ctx context.Context, caller Caller, id string) (*domain.Ticket, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.ticket.cancel")
	defer span.End()
	span.SetAttributes(attribute.String("ticket_id", id))

	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin() && ticket.UserID != caller.UserID {
		parent, err := s.parents.GetByRef(ctx, ticket.Parent)
		if err != nil {
			return nil, err
		}
		if !parent.IsOwner(caller.UserID) {
			return nil, domain.ErrNotTicketHolder
		}
	}

	now := s.now()
	if err := ticket.Cancel(now); err != nil {
		return nil, err
	}
	event, err := domain.TicketOutboxEvent(domain.TicketEventCancelled, ticket, s.cfg.OutboxTopic, now)
	if err != nil {
		return nil, fmt.Errorf("failed to build ticket event: %w", err)
	}
	if err := s.writer.CancelWithOutbox(ctx, ticket, event); err != nil {
		telemetry.RecordError(span, err, "cancel failed")
		return nil, err
	}

	logger.Get().Info("ticket cancelled",
		zap.String("ticket_id", ticket.ID),
		zap.String("booking_id", ticket.BookingID),
		zap.String("cancelled_by", caller.UserID),
	)
	return ticket, nil
}

// RenderQR returns the PNG QR code encoding the ticket number
func (s *ticketQueryService) RenderQR(ctx context.Context, caller Caller, id string) ([]byte, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.ticket.render_qr")
	defer span.End()

	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin() && ticket.UserID != caller.UserID {
		return nil, domain.ErrNotTicketHolder
	}
	return ticketnumber.RenderQR(ticket.TicketNumber, s.cfg.QRSize)
}

// ListEntryLogs lists check-ins for a parent the caller owns or staffs
func (s *ticketQueryService) ListEntryLogs(ctx context.Context, caller Caller, ref domain.ParentRef, filter *dto.EntryLogListFilter) ([]*domain.EntryLog, int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.ticket.list_entry_logs")
	defer span.End()
	span.SetAttributes(attribute.String("parent", ref.String()))

	if err := ref.Validate(); err != nil {
		return nil, 0, err
	}
	if !caller.IsAdmin() {
		parent, err := s.parents.GetByRef(ctx, ref)
		if err != nil {
			return nil, 0, err
		}
		if !parent.CanScan(caller.UserID) {
			return nil, 0, domain.ErrNotParentStaff
		}
	}

	if filter == nil {
		filter = &dto.EntryLogListFilter{}
	}
	filter.SetDefaults()
	return s.entryLogs.ListByParent(ctx, ref, filter.PerPage, filter.Offset())
}

// authorizeRead allows the holder, anyone who may scan for the parent, and admins
func (s *ticketQueryService) authorizeRead(ctx context.Context, caller Caller, t *domain.Ticket) error {
	if caller.IsAdmin() || (caller.UserID != "" && t.UserID == caller.UserID) {
		return nil
	}
	parent, err := s.parents.GetByRef(ctx, t.Parent)
	if err != nil {
		return err
	}
	if !parent.CanScan(caller.UserID) {
		return domain.ErrNotTicketHolder
	}
	return nil
}
