package events

import (
	"time"

	"github.com/spec-kit/support-platform/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketMessageAdded  EventType = "ticket_message_added"
	EventChatMessageAdded    EventType = "chat_message_added"
	EventChatEscalated       EventType = "chat_escalated"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string       `json:"id"`
	Type      EventType    `json:"type"`
	Actor     domain.Actor `json:"actor"`
	Timestamp time.Time    `json:"timestamp"`
	Payload   interface{}  `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	TicketID string                `json:"ticket_id"`
	Subject  string                `json:"subject"`
	Category string                `json:"category"`
	Priority domain.TicketPriority `json:"priority"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	TicketID  string              `json:"ticket_id"`
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	TicketID   string `json:"ticket_id"`
	AssigneeID string `json:"assignee_id"`
}

// TicketMessageAddedPayload payload.
type TicketMessageAddedPayload struct {
	TicketID    string             `json:"ticket_id"`
	MessageID   string             `json:"message_id"`
	Role        domain.MessageRole `json:"role"`
	BodyPreview string             `json:"body_preview"`
	Reopened    bool               `json:"reopened"`
}

// ChatMessageAddedPayload payload.
type ChatMessageAddedPayload struct {
	ChatID    string             `json:"chat_id"`
	MessageID string             `json:"message_id"`
	Role      domain.MessageRole `json:"role"`
	Sentiment domain.Sentiment   `json:"sentiment"`
}

// ChatEscalatedPayload payload.
type ChatEscalatedPayload struct {
	ChatID   string `json:"chat_id"`
	TicketID string `json:"ticket_id"`
	Category string `json:"category"`
}
