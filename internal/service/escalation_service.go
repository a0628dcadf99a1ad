package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/spec-kit/support-platform/internal/domain"
	"github.com/spec-kit/support-platform/internal/events"
)

const (
	escalationSubjectLimit  = 50
	escalationFallbackTitle = "Support Request"
	transcriptHeader        = "Customer Support Chat Transcript:\n\n"
	transcriptTimeLayout    = "2006-01-02 15:04:05"
	defaultCategory         = "General Inquiry"
)

// categoryRule maps transcript keywords to a ticket category. Rules are
// checked in order; the first match wins.
type categoryRule struct {
	keywords []string
	category string
}

var categoryRules = []categoryRule{
	{keywords: []string{"bug", "error", "issue"}, category: "Technical Issue"},
	{keywords: []string{"payment", "bill", "charge"}, category: "Billing"},
	{keywords: []string{"account", "profile", "login"}, category: "Account"},
	{keywords: []string{"refund", "return"}, category: "Refund/Return"},
}

// EscalationService derives a new ticket from an existing chat transcript.
// The derivation is pure text heuristics over message bodies, roles and
// timestamps; the resulting ticket holds no reference back to the chat.
type EscalationService struct {
	chats      *ChatService
	tickets    *TicketService
	dispatcher events.Dispatcher
}

// NewEscalationService constructs the service.
func NewEscalationService(chats *ChatService, tickets *TicketService, dispatcher events.Dispatcher) *EscalationService {
	return &EscalationService{chats: chats, tickets: tickets, dispatcher: dispatcher}
}

// EscalationInput carries optional explicit overrides. Empty fields are
// derived from the transcript.
type EscalationInput struct {
	Subject     string
	Description string
	Category    string
	Priority    domain.TicketPriority
}

// CreateTicketFromChat reads the chat (the actor must be a participant) and
// delegates ticket creation to the ticket store. A stale snapshot of a chat
// being appended to concurrently is acceptable.
func (s *EscalationService) CreateTicketFromChat(ctx context.Context, actor domain.Actor, chatID string, input EscalationInput) (*domain.Ticket, error) {
	chat, err := s.chats.Get(ctx, actor, chatID)
	if err != nil {
		return nil, err
	}

	subject := strings.TrimSpace(input.Subject)
	if subject == "" {
		subject = DeriveSubject(chat.Messages)
	}
	description := strings.TrimSpace(input.Description)
	if description == "" {
		description = RenderTranscript(chat.Messages)
	}
	category := strings.TrimSpace(input.Category)
	if category == "" {
		category = DeriveCategory(chat.Messages)
	}

	ticket, err := s.tickets.Create(ctx, actor, TicketCreateInput{
		Subject:     subject,
		Description: description,
		Category:    category,
		Priority:    input.Priority,
	})
	if err != nil {
		return nil, err
	}

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventChatEscalated,
			Actor:     actor,
			Timestamp: ticket.CreatedAt,
			Payload: events.ChatEscalatedPayload{
				ChatID:   chat.ID,
				TicketID: ticket.TicketID,
				Category: ticket.Category,
			},
		})
	}
	return ticket, nil
}

// DeriveSubject takes the first user-authored message body, truncated to 50
// characters with a trailing ellipsis marker when cut. Truncation counts
// runes so a multibyte body is never split mid-sequence.
func DeriveSubject(messages []domain.Message) string {
	for _, msg := range messages {
		if msg.Role != domain.MessageRoleUser {
			continue
		}
		if runes := []rune(msg.Body); len(runes) > escalationSubjectLimit {
			return string(runes[:escalationSubjectLimit]) + "..."
		}
		return msg.Body
	}
	return escalationFallbackTitle
}

// RenderTranscript renders the full message log as a ticket description,
// one line per message in chat order.
func RenderTranscript(messages []domain.Message) string {
	var b strings.Builder
	b.WriteString(transcriptHeader)
	for _, msg := range messages {
		sender := "Customer"
		if msg.Role == domain.MessageRoleAI {
			sender = "AI Support"
		}
		b.WriteString("[")
		b.WriteString(msg.Timestamp.Format(transcriptTimeLayout))
		b.WriteString("] ")
		b.WriteString(sender)
		b.WriteString(": ")
		b.WriteString(msg.Body)
		b.WriteString("\n\n")
	}
	return b.String()
}

// DeriveCategory checks keyword rules in priority order against the
// lowercased concatenation of all message bodies.
func DeriveCategory(messages []domain.Message) string {
	bodies := make([]string, 0, len(messages))
	for _, msg := range messages {
		bodies = append(bodies, strings.ToLower(msg.Body))
	}
	allText := strings.Join(bodies, " ")
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(allText, kw) {
				return rule.category
			}
		}
	}
	return defaultCategory
}
