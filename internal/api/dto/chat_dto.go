package dto

import (
	"time"

	"github.com/spec-kit/support-platform/internal/domain"
)

// CreateChatRequest opens (or returns) the chat with another user.
type CreateChatRequest struct {
	UserID string `json:"userId"`
}

// ChatMessageRequest appends a chat message.
type ChatMessageRequest struct {
	Content   string           `json:"content"`
	Sentiment domain.Sentiment `json:"sentiment,omitempty"`
}

// EscalateChatRequest optionally overrides derived ticket fields.
type EscalateChatRequest struct {
	Subject     string                `json:"subject,omitempty"`
	Description string                `json:"description,omitempty"`
	Category    string                `json:"category,omitempty"`
	Priority    domain.TicketPriority `json:"priority,omitempty"`
}

// ChatResponse represents a chat aggregate.
type ChatResponse struct {
	ID           string            `json:"id"`
	Participants []string          `json:"participants"`
	Messages     []MessageResponse `json:"messages"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

// ChatFromDomain maps a chat into its wire shape.
func ChatFromDomain(chat *domain.Chat) ChatResponse {
	return ChatResponse{
		ID:           chat.ID,
		Participants: chat.Participants,
		Messages:     MessagesFromDomain(chat.Messages),
		CreatedAt:    chat.CreatedAt,
		UpdatedAt:    chat.UpdatedAt,
	}
}
