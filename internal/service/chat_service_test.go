package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-platform/internal/domain"
	"github.com/spec-kit/support-platform/internal/repository/memory"
)

var assistant = domain.Actor{ID: "responder", Kind: domain.ActorAssistant}

func newChatService() *ChatService {
	return NewChatService(ChatDependencies{ChatRepo: memory.NewChatRepository()})
}

func TestGetOrCreateIsOrderInsensitive(t *testing.T) {
	svc := newChatService()
	ctx := context.Background()

	first, err := svc.GetOrCreate(ctx, owner, stranger.ID)
	require.NoError(t, err)

	second, err := svc.GetOrCreate(ctx, stranger, owner.ID)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.ElementsMatch(t, []string{owner.ID, stranger.ID}, first.Participants)
}

func TestGetOrCreateValidation(t *testing.T) {
	svc := newChatService()
	ctx := context.Background()

	_, err := svc.GetOrCreate(ctx, owner, "")
	require.Error(t, err)
	assert.Equal(t, 400, httpStatus(err))

	_, err = svc.GetOrCreate(ctx, owner, owner.ID)
	require.Error(t, err)
	assert.Equal(t, 400, httpStatus(err))
}

func TestChatParticipantScoping(t *testing.T) {
	svc := newChatService()
	ctx := context.Background()

	chat, err := svc.GetOrCreate(ctx, owner, stranger.ID)
	require.NoError(t, err)

	_, err = svc.Get(ctx, owner, chat.ID)
	require.NoError(t, err)

	outsider := domain.Actor{ID: "user-3", Kind: domain.ActorEndUser}
	_, err = svc.Get(ctx, outsider, chat.ID)
	require.Error(t, err)
	assert.Equal(t, 403, httpStatus(err))

	_, err = svc.AppendMessage(ctx, outsider, chat.ID, "let me in", "")
	require.Error(t, err)
	assert.Equal(t, 403, httpStatus(err))
}

func TestAppendChatMessage(t *testing.T) {
	svc := newChatService()
	ctx := context.Background()

	chat, err := svc.GetOrCreate(ctx, owner, stranger.ID)
	require.NoError(t, err)

	msg, err := svc.AppendMessage(ctx, owner, chat.ID, "my bill is wrong", domain.SentimentNegative)
	require.NoError(t, err)
	assert.Equal(t, domain.MessageRoleUser, msg.Role)
	assert.Equal(t, domain.SentimentNegative, msg.Sentiment)
	require.NotNil(t, msg.SenderID)
	assert.Equal(t, owner.ID, *msg.SenderID)

	// sentiment defaults to neutral and is validated
	msg, err = svc.AppendMessage(ctx, owner, chat.ID, "hello again", "")
	require.NoError(t, err)
	assert.Equal(t, domain.SentimentNeutral, msg.Sentiment)

	_, err = svc.AppendMessage(ctx, owner, chat.ID, "hm", "grumpy")
	require.Error(t, err)
	assert.Equal(t, 400, httpStatus(err))

	got, err := svc.Get(ctx, owner, chat.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "my bill is wrong", got.Messages[0].Body)
}

func TestAssistantBypassesMembership(t *testing.T) {
	svc := newChatService()
	ctx := context.Background()

	chat, err := svc.GetOrCreate(ctx, owner, stranger.ID)
	require.NoError(t, err)

	msg, err := svc.AppendMessage(ctx, assistant, chat.ID, "how can I help?", "")
	require.NoError(t, err)
	assert.Equal(t, domain.MessageRoleAI, msg.Role)
	assert.Nil(t, msg.SenderID)
}

func TestListForParticipantOrdering(t *testing.T) {
	svc := newChatService()
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	step := 0
	svc.now = func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Minute)
	}

	older, err := svc.GetOrCreate(ctx, owner, "user-3")
	require.NoError(t, err)
	newer, err := svc.GetOrCreate(ctx, owner, "user-4")
	require.NoError(t, err)

	// touching the older chat moves it to the front
	_, err = svc.AppendMessage(ctx, owner, older.ID, "ping", "")
	require.NoError(t, err)

	chats, err := svc.ListForParticipant(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, chats, 2)
	assert.Equal(t, older.ID, chats[0].ID)
	assert.Equal(t, newer.ID, chats[1].ID)
}
