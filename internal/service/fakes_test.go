package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/notifier"
	"github.com/spec-kit/helpdesk-service/pkg/util"
)

type memTicketRepo struct {
	mu      sync.Mutex
	tickets map[int64]domain.Ticket
	nextID  int64
	fail    bool
}

func newMemTicketRepo() *memTicketRepo {
	return &memTicketRepo{tickets: make(map[int64]domain.Ticket)}
}

func (r *memTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return util.NewStorageError(errors.New("store down"))
	}
	r.nextID++
	ticket.ID = r.nextID
	now := time.Now()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	r.tickets[ticket.ID] = *ticket
	return nil
}

func (r *memTicketRepo) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return nil, util.NewStorageError(errors.New("store down"))
	}
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, util.NewNotFound("ticket", map[string]any{"id": id})
	}
	copied := ticket
	return &copied, nil
}

func (r *memTicketRepo) ListAll(_ context.Context) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]domain.Ticket, 0, len(r.tickets))
	for _, ticket := range r.tickets {
		result = append(result, ticket)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (r *memTicketRepo) ListByRequester(_ context.Context, email string) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Ticket
	for _, ticket := range r.tickets {
		if ticket.RequesterEmail == email {
			result = append(result, ticket)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (r *memTicketRepo) UpdateState(_ context.Context, ticket *domain.Ticket, expected domain.TicketState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return util.NewStorageError(errors.New("store down"))
	}
	stored, ok := r.tickets[ticket.ID]
	if !ok || stored.State != expected {
		return util.NewNotFound("ticket", map[string]any{"id": ticket.ID})
	}
	stored.State = ticket.State
	stored.AutoClosed = ticket.AutoClosed
	stored.ResolvedAt = ticket.ResolvedAt
	stored.ClosedAt = ticket.ClosedAt
	stored.UpdatedAt = time.Now()
	r.tickets[ticket.ID] = stored
	return nil
}

func (r *memTicketRepo) ListResolvedBefore(_ context.Context, cutoff time.Time) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return nil, util.NewStorageError(errors.New("store down"))
	}
	var result []domain.Ticket
	for _, ticket := range r.tickets {
		if ticket.State == domain.TicketStateResolved && ticket.ResolvedAt != nil && ticket.ResolvedAt.Before(cutoff) {
			result = append(result, ticket)
		}
	}
	return result, nil
}

type memReplyRepo struct {
	mu      sync.Mutex
	replies []domain.Reply
	nextID  int64
}

func (r *memReplyRepo) Create(_ context.Context, reply *domain.Reply) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	reply.ID = r.nextID
	reply.CreatedAt = time.Now()
	for i := range reply.Attachments {
		reply.Attachments[i].ReplyID = reply.ID
	}
	r.replies = append(r.replies, *reply)
	return nil
}

func (r *memReplyRepo) ListByTicket(_ context.Context, ticketID int64) ([]domain.Reply, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Reply
	for _, reply := range r.replies {
		if reply.TicketID == ticketID {
			result = append(result, reply)
		}
	}
	return result, nil
}

type memAuditRepo struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
	nextID  int64
}

func (r *memAuditRepo) Create(_ context.Context, entry *domain.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	entry.ID = r.nextID
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *memAuditRepo) ListRecent(_ context.Context, limit int) ([]domain.AuditEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := append([]domain.AuditEntry{}, r.entries...)
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *memAuditRepo) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []domain.AuditEntry
	var deleted int64
	for _, entry := range r.entries {
		if entry.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, entry)
	}
	r.entries = kept
	return deleted, nil
}

func (r *memAuditRepo) TrimToMostRecent(_ context.Context, keep int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if keep <= 0 || len(r.entries) <= keep {
		return 0, nil
	}
	sort.Slice(r.entries, func(i, j int) bool { return r.entries[i].CreatedAt.After(r.entries[j].CreatedAt) })
	trimmed := int64(len(r.entries) - keep)
	r.entries = r.entries[:keep]
	return trimmed, nil
}

type captureNotifier struct {
	mu   sync.Mutex
	sent []notifier.Message
	fail bool
}

func (n *captureNotifier) Send(_ context.Context, msg notifier.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("smtp unavailable")
	}
	n.sent = append(n.sent, msg)
	return nil
}

func (n *captureNotifier) messages() []notifier.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notifier.Message{}, n.sent...)
}
