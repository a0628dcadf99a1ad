package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-platform/internal/domain"
	"github.com/spec-kit/support-platform/internal/events"
	"github.com/spec-kit/support-platform/internal/repository"
	apperrors "github.com/spec-kit/support-platform/pkg/util"
)

// TicketService owns the ticket lifecycle state machine. Every mutation runs
// under a per-ticket lock and stamps UpdatedAt itself.
type TicketService struct {
	tickets    repository.TicketRepository
	dispatcher events.Dispatcher
	locks      *keyedMutex
	now        func() time.Time
}

// TicketDependencies bundles requirements for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	Dispatcher events.Dispatcher
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		dispatcher: deps.Dispatcher,
		locks:      newKeyedMutex(),
		now:        time.Now,
	}
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Subject     string
	Description string
	Category    string
	Priority    domain.TicketPriority
}

// TicketUpdateInput carries optional field updates. Nil means unchanged.
type TicketUpdateInput struct {
	Subject     *string
	Description *string
	Category    *string
	Priority    *domain.TicketPriority
	Status      *domain.TicketStatus
	AssigneeID  *string
}

// Create validates input and persists a new ticket owned by the actor.
func (s *TicketService) Create(ctx context.Context, actor domain.Actor, input TicketCreateInput) (*domain.Ticket, error) {
	subject := strings.TrimSpace(input.Subject)
	description := strings.TrimSpace(input.Description)
	category := strings.TrimSpace(input.Category)
	if subject == "" || description == "" || category == "" {
		return nil, apperrors.NewValidationError("subject, description, category required", nil)
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !domain.ValidTicketPriority(priority) {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": priority})
	}

	now := s.now()
	ticket := &domain.Ticket{
		ID:          uuid.NewString(),
		TicketID:    generateTicketID(now),
		OwnerID:     actor.ID,
		Subject:     subject,
		Description: description,
		Category:    category,
		Priority:    priority,
		Status:      domain.TicketStatusOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("ticket id collision", map[string]any{"ticket_id": ticket.TicketID})
		}
		return nil, apperrors.MapError(err)
	}
	s.publish(ctx, events.EventTicketCreated, actor, events.TicketCreatedPayload{
		TicketID: ticket.TicketID,
		Subject:  ticket.Subject,
		Category: ticket.Category,
		Priority: ticket.Priority,
	})
	return ticket, nil
}

// Get fetches a ticket by its human-facing id. Non-staff callers must own it.
func (s *TicketService) Get(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.fetch(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !actor.IsStaff() && ticket.OwnerID != actor.ID {
		return nil, apperrors.NewForbidden("not the ticket owner")
	}
	return ticket, nil
}

// ListForOwner returns the actor's tickets, newest first.
func (s *TicketService) ListForOwner(ctx context.Context, ownerID string) ([]domain.Ticket, error) {
	tickets, err := s.tickets.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// ListAll returns every ticket. Staff only.
func (s *TicketService) ListAll(ctx context.Context, actor domain.Actor) ([]domain.Ticket, error) {
	if !actor.IsStaff() {
		return nil, apperrors.NewForbidden("staff required")
	}
	tickets, err := s.tickets.ListAll(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// Assign sets the assignee. An open ticket moves to in-progress; a closed
// ticket rejects the mutation entirely.
func (s *TicketService) Assign(ctx context.Context, actor domain.Actor, ticketID, agentID string) (*domain.Ticket, error) {
	if !actor.IsStaff() {
		return nil, apperrors.NewForbidden("staff required")
	}
	if strings.TrimSpace(agentID) == "" {
		return nil, apperrors.NewValidationError("agent id required", nil)
	}

	s.locks.Lock(ticketID)
	defer s.locks.Unlock(ticketID)

	ticket, err := s.fetch(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status == domain.TicketStatusClosed {
		return nil, apperrors.NewInvalidState("cannot assign a closed ticket", map[string]any{"ticket_id": ticketID})
	}
	ticket.AssigneeID = &agentID
	if ticket.Status == domain.TicketStatusOpen {
		ticket.Status = domain.TicketStatusInProgress
	}
	ticket.UpdatedAt = s.now()
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publish(ctx, events.EventTicketAssigned, actor, events.TicketAssignedPayload{
		TicketID:   ticket.TicketID,
		AssigneeID: agentID,
	})
	return ticket, nil
}

// SetStatus is the administrative override to any lifecycle state. Entering
// resolved stamps the resolution record; leaving resolved keeps it.
func (s *TicketService) SetStatus(ctx context.Context, actor domain.Actor, ticketID string, newStatus domain.TicketStatus) (*domain.Ticket, error) {
	if !actor.IsStaff() {
		return nil, apperrors.NewForbidden("staff required")
	}
	if !domain.ValidTicketStatus(newStatus) {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": newStatus})
	}

	s.locks.Lock(ticketID)
	defer s.locks.Unlock(ticketID)

	ticket, err := s.fetch(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	oldStatus := ticket.Status
	s.applyStatus(ticket, actor, newStatus)
	ticket.UpdatedAt = s.now()
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publish(ctx, events.EventTicketStatusChanged, actor, events.TicketStatusChangedPayload{
		TicketID:  ticket.TicketID,
		OldStatus: oldStatus,
		NewStatus: newStatus,
	})
	return ticket, nil
}

// SetResolutionNotes attaches notes to an existing resolution record.
func (s *TicketService) SetResolutionNotes(ctx context.Context, actor domain.Actor, ticketID, notes string) (*domain.Ticket, error) {
	if !actor.IsStaff() {
		return nil, apperrors.NewForbidden("staff required")
	}

	s.locks.Lock(ticketID)
	defer s.locks.Unlock(ticketID)

	ticket, err := s.fetch(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Resolution == nil {
		return nil, apperrors.NewInvalidState("ticket has no resolution record", map[string]any{"ticket_id": ticketID})
	}
	ticket.Resolution.Notes = notes
	ticket.UpdatedAt = s.now()
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

// Close forces the ticket into the closed state. Owners may close their own
// tickets; staff may close any.
func (s *TicketService) Close(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	s.locks.Lock(ticketID)
	defer s.locks.Unlock(ticketID)

	ticket, err := s.fetch(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !actor.IsStaff() && ticket.OwnerID != actor.ID {
		return nil, apperrors.NewForbidden("not the ticket owner")
	}
	oldStatus := ticket.Status
	ticket.Status = domain.TicketStatusClosed
	ticket.UpdatedAt = s.now()
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publish(ctx, events.EventTicketStatusChanged, actor, events.TicketStatusChangedPayload{
		TicketID:  ticket.TicketID,
		OldStatus: oldStatus,
		NewStatus: ticket.Status,
	})
	return ticket, nil
}

// Update mutates ticket fields scoped by actor capability: owners may change
// subject, description, category and priority; staff may additionally change
// status and assignee.
func (s *TicketService) Update(ctx context.Context, actor domain.Actor, ticketID string, input TicketUpdateInput) (*domain.Ticket, error) {
	if (input.Status != nil || input.AssigneeID != nil) && !actor.IsStaff() {
		return nil, apperrors.NewForbidden("status and assignee are staff-only fields")
	}
	if input.Priority != nil && !domain.ValidTicketPriority(*input.Priority) {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": *input.Priority})
	}
	if input.Status != nil && !domain.ValidTicketStatus(*input.Status) {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": *input.Status})
	}

	s.locks.Lock(ticketID)
	defer s.locks.Unlock(ticketID)

	ticket, err := s.fetch(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !actor.IsStaff() && ticket.OwnerID != actor.ID {
		return nil, apperrors.NewForbidden("not the ticket owner")
	}

	if input.Subject != nil && strings.TrimSpace(*input.Subject) != "" {
		ticket.Subject = strings.TrimSpace(*input.Subject)
	}
	if input.Description != nil && strings.TrimSpace(*input.Description) != "" {
		ticket.Description = strings.TrimSpace(*input.Description)
	}
	if input.Category != nil && strings.TrimSpace(*input.Category) != "" {
		ticket.Category = strings.TrimSpace(*input.Category)
	}
	if input.Priority != nil {
		ticket.Priority = *input.Priority
	}
	oldStatus := ticket.Status
	if input.Status != nil {
		s.applyStatus(ticket, actor, *input.Status)
	}
	if input.AssigneeID != nil {
		ticket.AssigneeID = input.AssigneeID
	}
	ticket.UpdatedAt = s.now()
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	if input.Status != nil && oldStatus != ticket.Status {
		s.publish(ctx, events.EventTicketStatusChanged, actor, events.TicketStatusChangedPayload{
			TicketID:  ticket.TicketID,
			OldStatus: oldStatus,
			NewStatus: ticket.Status,
		})
	}
	return ticket, nil
}

// AppendMessage adds a message to the ticket thread and applies the
// reopening rule against the pre-mutation status: a staff message on a
// closed ticket reopens it, an owner message on a resolved ticket reopens
// it, every other combination leaves the status untouched.
func (s *TicketService) AppendMessage(ctx context.Context, actor domain.Actor, ticketID, body string) (*domain.Ticket, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidationError("message body required", nil)
	}

	s.locks.Lock(ticketID)
	defer s.locks.Unlock(ticketID)

	ticket, err := s.fetch(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !actor.IsStaff() && ticket.OwnerID != actor.ID {
		return nil, apperrors.NewForbidden("not the ticket owner")
	}

	now := s.now()
	senderID := actor.ID
	msg := domain.Message{
		ID:        uuid.NewString(),
		SenderID:  &senderID,
		Role:      actor.TicketRole(),
		Body:      body,
		Timestamp: now,
	}

	reopened := false
	switch {
	case ticket.Status == domain.TicketStatusClosed && actor.IsStaff():
		reopened = true
	case ticket.Status == domain.TicketStatusResolved && !actor.IsStaff() && ticket.OwnerID == actor.ID:
		reopened = true
	}

	if err := s.tickets.AppendMessage(ctx, ticket.ID, &msg); err != nil {
		return nil, apperrors.MapError(err)
	}
	if reopened {
		ticket.Status = domain.TicketStatusOpen
	}
	ticket.UpdatedAt = now
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	ticket.Messages = append(ticket.Messages, msg)

	s.publish(ctx, events.EventTicketMessageAdded, actor, events.TicketMessageAddedPayload{
		TicketID:    ticket.TicketID,
		MessageID:   msg.ID,
		Role:        msg.Role,
		BodyPreview: stringPreview(body, 120),
		Reopened:    reopened,
	})
	return ticket, nil
}

func (s *TicketService) applyStatus(ticket *domain.Ticket, actor domain.Actor, newStatus domain.TicketStatus) {
	if newStatus == domain.TicketStatusResolved && ticket.Status != domain.TicketStatusResolved {
		ticket.Resolution = &domain.Resolution{
			ResolvedBy: actor.ID,
			ResolvedAt: s.now(),
		}
	}
	ticket.Status = newStatus
}

func (s *TicketService) fetch(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByTicketID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func (s *TicketService) publish(ctx context.Context, eventType events.EventType, actor domain.Actor, payload any) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Actor:     actor,
		Timestamp: s.now(),
		Payload:   payload,
	})
}

// generateTicketID builds the human-facing key. Uniqueness is best-effort
// entropy; the store rejects collisions instead of overwriting.
func generateTicketID(now time.Time) string {
	return fmt.Sprintf("TKT-%d-%d", now.UnixMilli(), rand.Intn(10000))
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
