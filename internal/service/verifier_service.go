package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shreyasgurav/Zest-Prototype-sub001/internal/domain"
	"github.com/shreyasgurav/Zest-Prototype-sub001/internal/dto"
	"github.com/shreyasgurav/Zest-Prototype-sub001/internal/metrics"
	"github.com/shreyasgurav/Zest-Prototype-sub001/internal/repository"
	"github.com/shreyasgurav/Zest-Prototype-sub001/internal/ticketnumber"
	"github.com/shreyasgurav/Zest-Prototype-sub001/pkg/logger"
	"github.com/shreyasgurav/Zest-Prototype-sub001/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// verifierService implements VerifierService
type verifierService struct {
	tickets repository.TicketRepository
	parents repository.ParentRepository
	writer  repository.TicketWriter
	cfg     Config
	now     func() time.Time
}

// NewVerifierService creates a new VerifierService
func NewVerifierService(
	tickets repository.TicketRepository,
	parents repository.ParentRepository,
	writer repository.TicketWriter,
	cfg *Config,
) VerifierService {
	return &verifierService{
		tickets: tickets,
		parents: parents,
		writer:  writer,
		cfg:     cfg.withDefaults(),
		now:     time.Now,
	}
}

// VerifyEntry runs the admission pipeline. Checks short-circuit on the first denial.
func (s *verifierService) VerifyEntry(ctx context.Context, req *dto.VerifyEntryRequest) (*domain.Ticket, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.verifier.verify_entry")
	defer span.End()

	start := time.Now()
	ticket, err := s.verify(ctx, req)

	log := logger.Get().With(
		zap.String("ticket_number", req.TicketNumber),
		zap.String("scanner_id", req.ScannerID),
	)
	if denied, ok := domain.AsEntryDenied(err); ok {
		span.SetAttributes(attribute.String("denial_reason", denied.Reason.String()))
		metrics.RecordScan(metrics.ScanDenied, denied.Reason.String(), time.Since(start))
		log.Info("entry denied", zap.String("reason", denied.Reason.String()))
		return nil, err
	}
	if err != nil {
		telemetry.RecordError(span, err, "verification failed")
		metrics.RecordScan(metrics.ScanError, "", time.Since(start))
		log.Error("entry verification failed", zap.Error(err))
		return nil, err
	}

	metrics.RecordScan(metrics.ScanAdmitted, "", time.Since(start))
	log.Info("entry admitted",
		zap.String("ticket_id", ticket.ID),
		zap.String("parent", ticket.Parent.String()),
	)
	return ticket, nil
}

func (s *verifierService) verify(ctx context.Context, req *dto.VerifyEntryRequest) (*domain.Ticket, error) {
	if err := dto.Validate(req); err != nil {
		denied := domain.Deny(domain.ReasonInvalidRequest)
		denied.Message = err.Error()
		return nil, denied
	}
	if req.ScannerID == "" {
		return nil, domain.Deny(domain.ReasonUnauthorized)
	}

	// Lookup
	ticket, err := s.tickets.GetByNumber(ctx, ticketnumber.Normalize(req.TicketNumber))
	if errors.Is(err, domain.ErrTicketNotFound) {
		return nil, domain.Deny(domain.ReasonTicketNotFound)
	}
	if err != nil {
		return nil, err
	}

	// Event match
	target := req.Target()
	if ticket.Parent != target {
		return nil, domain.Deny(domain.ReasonWrongEvent)
	}

	// Status
	if denied := statusDenial(ticket); denied != nil {
		return nil, denied
	}

	// Date window
	now := s.now()
	offset := domain.DayOffset(ticket.SelectedDate, now, s.cfg.Location)
	if offset < -s.cfg.DateGraceDays || offset > s.cfg.DateGraceDays {
		return nil, domain.Deny(domain.ReasonWrongDate)
	}

	// Scanner authorization
	parent, err := s.parents.GetByRef(ctx, target)
	if err != nil {
		return nil, err
	}
	if !parent.CanScan(req.ScannerID) {
		return nil, domain.Deny(domain.ReasonUnauthorized)
	}

	var admitted *domain.Ticket
	err = s.writer.RunCheckIn(ctx, func(tx repository.CheckInTx) error {
		t, err := s.checkIn(ctx, tx, ticket, req, now)
		if err != nil {
			return err
		}
		admitted = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return admitted, nil
}

// checkIn runs the fraud checks and the commit inside one transaction. The booking
// reference lock serializes scans of the same group booking across gates.
func (s *verifierService) checkIn(ctx context.Context, tx repository.CheckInTx, scanned *domain.Ticket, req *dto.VerifyEntryRequest, now time.Time) (*domain.Ticket, error) {
	if ref := scanned.BookingReference(); ref != "" {
		if err := tx.LockBookingReference(ctx, ref); err != nil {
			return nil, err
		}
	}
	ticket, err := tx.GetTicketForUpdate(ctx, scanned.ID)
	if err != nil {
		return nil, err
	}

	if denied := statusDenial(ticket); denied != nil {
		return nil, denied
	}

	if ref := ticket.BookingReference(); ref != "" {
		checkedIn, err := tx.ListCheckedInAttendees(ctx, ticket.Parent, ref)
		if err != nil {
			return nil, err
		}
		if denied := groupDenial(ticket, checkedIn); denied != nil {
			return nil, denied
		}
	}

	if err := ticket.MarkUsed(req.ScannerID, req.ScannerKind(), req.Location, now); err != nil {
		return nil, err
	}
	if err := tx.MarkUsed(ctx, ticket); err != nil {
		if errors.Is(err, domain.ErrInvalidTicketStatus) {
			return nil, domain.Deny(domain.ReasonAlreadyUsed)
		}
		return nil, err
	}
	if err := tx.InsertEntryLog(ctx, domain.NewEntryLog(ticket, req.Location)); err != nil {
		return nil, err
	}
	if err := tx.UpsertAttendeeCheckIn(ctx, domain.NewCheckedInAttendee(ticket, now)); err != nil {
		return nil, err
	}

	msg, err := domain.TicketOutboxEvent(domain.TicketEventCheckedIn, ticket, s.cfg.OutboxTopic, now)
	if err != nil {
		return nil, fmt.Errorf("failed to build ticket event: %w", err)
	}
	if err := tx.InsertOutbox(ctx, msg); err != nil {
		return nil, err
	}
	return ticket, nil
}

func statusDenial(t *domain.Ticket) *domain.EntryDenied {
	switch t.Status {
	case domain.TicketStatusUsed:
		return domain.DenyAlreadyUsed(t)
	case domain.TicketStatusCancelled:
		return domain.Deny(domain.ReasonCancelled)
	}
	return nil
}

// groupDenial applies the cross-ticket checks of a group booking
func groupDenial(t *domain.Ticket, checkedIn []*domain.Attendee) *domain.EntryDenied {
	for _, a := range checkedIn {
		if a.TicketID == t.ID {
			continue
		}
		if domain.HolderMatches(t.UserID, t.UserEmail, a.UserID, a.Email) {
			return domain.Deny(domain.ReasonDuplicateHolder)
		}
	}
	if t.Group != nil && t.Group.TotalTicketsInBooking > 0 &&
		domain.CountAdmissions(checkedIn) >= t.Group.TotalTicketsInBooking {
		return domain.Deny(domain.ReasonBookingFullyUsed)
	}
	return nil
}
