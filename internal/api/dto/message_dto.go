package dto

import (
	"time"

	"github.com/spec-kit/support-platform/internal/domain"
)

// MessageResponse represents a thread message on the wire.
type MessageResponse struct {
	ID        string             `json:"id"`
	Sender    *string            `json:"sender"`
	Role      domain.MessageRole `json:"role"`
	Content   string             `json:"content"`
	Sentiment domain.Sentiment   `json:"sentiment,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
	Read      bool               `json:"read"`
}

// MessageFromDomain maps a message into its wire shape.
func MessageFromDomain(msg *domain.Message) MessageResponse {
	return MessageResponse{
		ID:        msg.ID,
		Sender:    msg.SenderID,
		Role:      msg.Role,
		Content:   msg.Body,
		Sentiment: msg.Sentiment,
		Timestamp: msg.Timestamp,
		Read:      msg.Read,
	}
}

// MessagesFromDomain maps a message log.
func MessagesFromDomain(msgs []domain.Message) []MessageResponse {
	result := make([]MessageResponse, 0, len(msgs))
	for i := range msgs {
		result = append(result, MessageFromDomain(&msgs[i]))
	}
	return result
}
