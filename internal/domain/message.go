package domain

import "time"

// MessageRole indicates the authoring tier of a thread message. It is
// assigned from the authenticated actor, never inferred from the sender id.
type MessageRole string

const (
	MessageRoleUser  MessageRole = "user"
	MessageRoleAdmin MessageRole = "admin"
	MessageRoleAI    MessageRole = "ai"
)

// Sentiment is an advisory classification attached to chat messages.
// It never drives state transitions.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// ValidSentiment reports whether s is a known sentiment value.
func ValidSentiment(s Sentiment) bool {
	switch s {
	case SentimentPositive, SentimentNeutral, SentimentNegative:
		return true
	}
	return false
}

// Message is a single authored entry in a chat or ticket thread.
// SenderID is nil for system-authored messages.
type Message struct {
	ID        string
	SenderID  *string
	Role      MessageRole
	Body      string
	Sentiment Sentiment
	Timestamp time.Time
	Read      bool
}
