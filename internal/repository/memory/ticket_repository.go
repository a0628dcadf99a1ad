// Package memory holds map-backed implementations of the repository
// interfaces. They serve deployments without a configured database and the
// test suite. All methods copy aggregates on the way in and out so callers
// never share state with the store.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-platform/internal/domain"
	"github.com/spec-kit/support-platform/internal/repository"
)

type ticketRepository struct {
	mu       sync.RWMutex
	byID     map[string]*domain.Ticket
	byTicket map[string]string // ticket_id -> system id
}

// NewTicketRepository builds an in-memory ticket store.
func NewTicketRepository() repository.TicketRepository {
	return &ticketRepository{
		byID:     make(map[string]*domain.Ticket),
		byTicket: make(map[string]string),
	}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byTicket[ticket.TicketID]; exists {
		return repository.ErrDuplicate
	}
	r.byTicket[ticket.TicketID] = ticket.ID
	r.byID[ticket.ID] = copyTicket(ticket)
	return nil
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byID[ticket.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	updated := copyTicket(ticket)
	updated.Messages = stored.Messages // message log is append-only, owned by AppendMessage
	r.byID[ticket.ID] = updated
	return nil
}

func (r *ticketRepository) AppendMessage(ctx context.Context, ticketID string, msg *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byID[ticketID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.Messages = append(stored.Messages, *msg)
	return nil
}

func (r *ticketRepository) GetByTicketID(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byTicket[ticketID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return copyTicket(r.byID[id]), nil
}

func (r *ticketRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Ticket
	for _, t := range r.byID {
		if t.OwnerID == ownerID {
			result = append(result, *copyTicket(t))
		}
	}
	sortTickets(result)
	return result, nil
}

func (r *ticketRepository) ListAll(ctx context.Context) ([]domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]domain.Ticket, 0, len(r.byID))
	for _, t := range r.byID {
		result = append(result, *copyTicket(t))
	}
	sortTickets(result)
	return result, nil
}

func sortTickets(tickets []domain.Ticket) {
	sort.Slice(tickets, func(i, j int) bool {
		if !tickets[i].CreatedAt.Equal(tickets[j].CreatedAt) {
			return tickets[i].CreatedAt.After(tickets[j].CreatedAt)
		}
		return tickets[i].ID < tickets[j].ID
	})
}

func copyTicket(t *domain.Ticket) *domain.Ticket {
	dup := *t
	dup.Messages = append([]domain.Message(nil), t.Messages...)
	if t.AssigneeID != nil {
		assignee := *t.AssigneeID
		dup.AssigneeID = &assignee
	}
	if t.Resolution != nil {
		res := *t.Resolution
		dup.Resolution = &res
	}
	return &dup
}
