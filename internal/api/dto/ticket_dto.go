package dto

import (
	"time"

	"github.com/spec-kit/support-platform/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Subject     string                `json:"subject"`
	Description string                `json:"description"`
	Category    string                `json:"category"`
	Priority    domain.TicketPriority `json:"priority,omitempty"`
}

// UpdateTicketRequest carries field-scoped updates; absent fields stay
// unchanged. Status and assignedTo are staff-only.
type UpdateTicketRequest struct {
	Subject     *string                `json:"subject"`
	Description *string                `json:"description"`
	Category    *string                `json:"category"`
	Priority    *domain.TicketPriority `json:"priority"`
	Status      *domain.TicketStatus   `json:"status"`
	AssigneeID  *string                `json:"assignedTo"`
}

// TicketMessageRequest appends a ticket message.
type TicketMessageRequest struct {
	Content string `json:"content"`
}

// AssignTicketRequest sets the assignee.
type AssignTicketRequest struct {
	AgentID string `json:"agentId"`
}

// TicketStatusRequest overrides the lifecycle status.
type TicketStatusRequest struct {
	Status domain.TicketStatus `json:"status"`
	Notes  string              `json:"notes,omitempty"`
}

// ResolutionResponse mirrors the resolution audit record.
type ResolutionResponse struct {
	ResolvedBy string    `json:"resolvedBy"`
	Notes      string    `json:"notes,omitempty"`
	ResolvedAt time.Time `json:"resolvedAt"`
}

// TicketResponse represents a ticket aggregate.
type TicketResponse struct {
	ID          string                `json:"id"`
	TicketID    string                `json:"ticketId"`
	OwnerID     string                `json:"userId"`
	Subject     string                `json:"subject"`
	Description string                `json:"description"`
	Category    string                `json:"category"`
	Priority    domain.TicketPriority `json:"priority"`
	Status      domain.TicketStatus   `json:"status"`
	AssigneeID  *string               `json:"assignedTo"`
	Messages    []MessageResponse     `json:"messages"`
	Resolution  *ResolutionResponse   `json:"resolutionDetails,omitempty"`
	CreatedAt   time.Time             `json:"createdAt"`
	UpdatedAt   time.Time             `json:"updatedAt"`
}

// TicketFromDomain maps a ticket into its wire shape.
func TicketFromDomain(ticket *domain.Ticket) TicketResponse {
	resp := TicketResponse{
		ID:          ticket.ID,
		TicketID:    ticket.TicketID,
		OwnerID:     ticket.OwnerID,
		Subject:     ticket.Subject,
		Description: ticket.Description,
		Category:    ticket.Category,
		Priority:    ticket.Priority,
		Status:      ticket.Status,
		AssigneeID:  ticket.AssigneeID,
		Messages:    MessagesFromDomain(ticket.Messages),
		CreatedAt:   ticket.CreatedAt,
		UpdatedAt:   ticket.UpdatedAt,
	}
	if ticket.Resolution != nil {
		resp.Resolution = &ResolutionResponse{
			ResolvedBy: ticket.Resolution.ResolvedBy,
			Notes:      ticket.Resolution.Notes,
			ResolvedAt: ticket.Resolution.ResolvedAt,
		}
	}
	return resp
}

// TicketsFromDomain maps a ticket list.
func TicketsFromDomain(tickets []domain.Ticket) []TicketResponse {
	result := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		result = append(result, TicketFromDomain(&tickets[i]))
	}
	return result
}
