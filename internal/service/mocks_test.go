package service

import (
	"context"
	"sort"
	"sync"

	"github.com/shreyasgurav/Zest-Prototype-sub001/internal/domain"
	"github.com/shreyasgurav/Zest-Prototype-sub001/internal/repository"
)

// memStore is an in-memory stand-in for the postgres repositories. RunCheckIn holds
// a store-wide lock so concurrent check-ins serialize the way row and advisory locks do.
type memStore struct {
	mu        sync.Mutex
	checkInMu sync.Mutex

	tickets   map[string]*domain.Ticket
	parents   map[string]*domain.Parent
	attendees []*domain.Attendee
	entryLogs []*domain.EntryLog
	outbox    []*domain.OutboxMessage

	// GetParentFunc overrides parent lookups when set
	GetParentFunc func(ctx context.Context, ref domain.ParentRef) (*domain.Parent, error)
	// CreateBatchFunc runs before a batch is stored; a non-nil error aborts the batch
	CreateBatchFunc func(tickets []*domain.Ticket) error

	parentCalls int
	batchCalls  int
}

var (
	_ repository.TicketRepository   = (*memStore)(nil)
	_ repository.ParentRepository   = (*memStore)(nil)
	_ repository.EntryLogRepository = (*memStore)(nil)
	_ repository.TicketWriter       = (*memStore)(nil)
)

func newMemStore() *memStore {
	return &memStore{
		tickets: make(map[string]*domain.Ticket),
		parents: make(map[string]*domain.Parent),
	}
}

func copyTicket(t *domain.Ticket) *domain.Ticket {
	c := *t
	c.ValidationHistory = append([]domain.ValidationEntry(nil), t.ValidationHistory...)
	return &c
}

func (m *memStore) addParent(p *domain.Parent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.parents[p.Ref.String()] = p
}

func (m *memStore) addTicket(t *domain.Ticket) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tickets[t.ID] = copyTicket(t)
}

func (m *memStore) addAttendee(a *domain.Attendee) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attendees = append(m.attendees, a)
}

func (m *memStore) ticket(id string) *domain.Ticket {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tickets[id]; ok {
		return copyTicket(t)
	}
	return nil
}

func (m *memStore) ExistsByNumber(_ context.Context, number string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tickets {
		if t.TicketNumber == number {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	if t := m.ticket(id); t != nil {
		return t, nil
	}
	return nil, domain.ErrTicketNotFound
}

func (m *memStore) GetByNumber(_ context.Context, number string) (*domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tickets {
		if t.TicketNumber == number {
			return copyTicket(t), nil
		}
	}
	return nil, domain.ErrTicketNotFound
}

func (m *memStore) ListByBooking(_ context.Context, bookingID string) ([]*domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Ticket, 0)
	for _, t := range m.tickets {
		if t.BookingID == bookingID {
			out = append(out, copyTicket(t))
		}
	}
	sortByIndex(out)
	return out, nil
}

func (m *memStore) ListByUser(_ context.Context, userID string) ([]*domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Ticket, 0)
	for _, t := range m.tickets {
		if t.UserID == userID {
			out = append(out, copyTicket(t))
		}
	}
	return out, nil
}

func (m *memStore) GetByRef(ctx context.Context, ref domain.ParentRef) (*domain.Parent, error) {
	m.mu.Lock()
	m.parentCalls++
	override := m.GetParentFunc
	p, ok := m.parents[ref.String()]
	m.mu.Unlock()

	if override != nil {
		return override(ctx, ref)
	}
	if !ok {
		return nil, domain.ErrParentNotFound
	}
	return p, nil
}

func (m *memStore) ListByParent(_ context.Context, ref domain.ParentRef, limit, offset int) ([]*domain.EntryLog, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []*domain.EntryLog
	for _, e := range m.entryLogs {
		if e.Parent == ref {
			matched = append(matched, e)
		}
	}
	total := int64(len(matched))
	if offset >= len(matched) {
		return []*domain.EntryLog{}, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (m *memStore) CreateBatchWithOutbox(_ context.Context, tickets []*domain.Ticket, events []*domain.OutboxMessage) error {
	m.mu.Lock()
	m.batchCalls++
	hook := m.CreateBatchFunc
	m.mu.Unlock()

	if hook != nil {
		if err := hook(tickets); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range tickets {
		for _, existing := range m.tickets {
			if existing.BookingID == t.BookingID && existing.BookingIndex == t.BookingIndex {
				return domain.ErrTicketsAlreadyIssued
			}
		}
	}
	for _, t := range tickets {
		m.tickets[t.ID] = copyTicket(t)
	}
	m.outbox = append(m.outbox, events...)
	return nil
}

func (m *memStore) CancelWithOutbox(_ context.Context, ticket *domain.Ticket, event *domain.OutboxMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.tickets[ticket.ID]
	if !ok {
		return domain.ErrTicketNotFound
	}
	if !stored.IsActive() {
		return domain.ErrInvalidTicketStatus
	}
	m.tickets[ticket.ID] = copyTicket(ticket)
	m.outbox = append(m.outbox, event)
	return nil
}

func (m *memStore) RunCheckIn(ctx context.Context, fn func(tx repository.CheckInTx) error) error {
	m.checkInMu.Lock()
	defer m.checkInMu.Unlock()

	tx := &memCheckInTx{store: m}
	if err := fn(tx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range tx.used {
		m.tickets[t.ID] = copyTicket(t)
	}
	m.entryLogs = append(m.entryLogs, tx.logs...)
	m.attendees = append(m.attendees, tx.attendees...)
	m.outbox = append(m.outbox, tx.outbox...)
	return nil
}

func (m *memStore) outboxTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.outbox))
	for i, msg := range m.outbox {
		out[i] = msg.EventType
	}
	return out
}

// memCheckInTx stages writes until RunCheckIn commits them
type memCheckInTx struct {
	store     *memStore
	used      []*domain.Ticket
	logs      []*domain.EntryLog
	attendees []*domain.Attendee
	outbox    []*domain.OutboxMessage
	locked    []string
}

func (tx *memCheckInTx) LockBookingReference(_ context.Context, ref string) error {
	tx.locked = append(tx.locked, ref)
	return nil
}

func (tx *memCheckInTx) GetTicketForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	return tx.store.GetByID(ctx, id)
}

func (tx *memCheckInTx) ListCheckedInAttendees(_ context.Context, parent domain.ParentRef, ref string) ([]*domain.Attendee, error) {
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	var out []*domain.Attendee
	for _, a := range tx.store.attendees {
		if a.Parent == parent && a.BookingReference == ref && a.CheckedIn {
			out = append(out, a)
		}
	}
	return out, nil
}

func (tx *memCheckInTx) MarkUsed(_ context.Context, ticket *domain.Ticket) error {
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	stored, ok := tx.store.tickets[ticket.ID]
	if !ok {
		return domain.ErrTicketNotFound
	}
	if !stored.IsActive() {
		return domain.ErrInvalidTicketStatus
	}
	tx.used = append(tx.used, ticket)
	return nil
}

func (tx *memCheckInTx) InsertEntryLog(_ context.Context, log *domain.EntryLog) error {
	tx.logs = append(tx.logs, log)
	return nil
}

func (tx *memCheckInTx) UpsertAttendeeCheckIn(_ context.Context, a *domain.Attendee) error {
	tx.attendees = append(tx.attendees, a)
	return nil
}

func (tx *memCheckInTx) InsertOutbox(_ context.Context, msg *domain.OutboxMessage) error {
	tx.outbox = append(tx.outbox, msg)
	return nil
}

func sortByIndex(tickets []*domain.Ticket) {
	sort.Slice(tickets, func(i, j int) bool {
		return tickets[i].BookingIndex < tickets[j].BookingIndex
	})
}
