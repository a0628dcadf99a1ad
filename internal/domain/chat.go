package domain

import (
	"sort"
	"strings"
	"time"
)

// Chat is a live conversation between two or more participants. The
// participant set is immutable after creation and a chat for a given
// unordered pair of participants is unique.
type Chat struct {
	ID           string
	Participants []string
	Messages     []Message
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasParticipant reports whether userID belongs to the chat.
func (c *Chat) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// ParticipantPairKey canonicalizes an unordered participant pair into a
// single lookup key. Order of arguments is not significant.
func ParticipantPairKey(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return strings.Join(pair, ":")
}
