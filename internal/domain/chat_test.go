package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParticipantPairKey(t *testing.T) {
	assert.Equal(t, ParticipantPairKey("alice", "bob"), ParticipantPairKey("bob", "alice"))
	assert.NotEqual(t, ParticipantPairKey("alice", "bob"), ParticipantPairKey("alice", "carol"))
}

func TestHasParticipant(t *testing.T) {
	chat := &Chat{Participants: []string{"alice", "bob"}}
	assert.True(t, chat.HasParticipant("alice"))
	assert.False(t, chat.HasParticipant("carol"))
}
