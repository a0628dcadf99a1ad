package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-platform/internal/domain"
	"github.com/spec-kit/support-platform/internal/events"
	"github.com/spec-kit/support-platform/internal/repository"
	apperrors "github.com/spec-kit/support-platform/pkg/util"
)

// ChatService owns live conversations: participant-pair uniqueness,
// participant-checked appends and recency-ordered listings.
type ChatService struct {
	chats      repository.ChatRepository
	dispatcher events.Dispatcher
	locks      *keyedMutex
	now        func() time.Time
}

// ChatDependencies bundles requirements for the chat service.
type ChatDependencies struct {
	ChatRepo   repository.ChatRepository
	Dispatcher events.Dispatcher
}

// NewChatService constructs the service.
func NewChatService(deps ChatDependencies) *ChatService {
	return &ChatService{
		chats:      deps.ChatRepo,
		dispatcher: deps.Dispatcher,
		locks:      newKeyedMutex(),
		now:        time.Now,
	}
}

// GetOrCreate returns the chat for the unordered participant pair, creating
// it on first use. Calling with the pair in either order yields the same chat.
func (s *ChatService) GetOrCreate(ctx context.Context, caller domain.Actor, otherID string) (*domain.Chat, error) {
	otherID = strings.TrimSpace(otherID)
	if otherID == "" {
		return nil, apperrors.NewValidationError("user id required", nil)
	}
	if otherID == caller.ID {
		return nil, apperrors.NewValidationError("cannot open a chat with yourself", nil)
	}

	pairKey := domain.ParticipantPairKey(caller.ID, otherID)

	s.locks.Lock(pairKey)
	defer s.locks.Unlock(pairKey)

	chat, err := s.chats.GetByPairKey(ctx, pairKey)
	if err == nil {
		return chat, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	now := s.now()
	chat = &domain.Chat{
		ID:           uuid.NewString(),
		Participants: []string{caller.ID, otherID},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.chats.Create(ctx, chat, pairKey); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// lost a race with a concurrent creator; return theirs
			return s.chats.GetByPairKey(ctx, pairKey)
		}
		return nil, apperrors.MapError(err)
	}
	return chat, nil
}

// Get fetches a chat the actor participates in.
func (s *ChatService) Get(ctx context.Context, actor domain.Actor, chatID string) (*domain.Chat, error) {
	chat, err := s.fetch(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(actor.ID) {
		return nil, apperrors.NewForbidden("not a chat participant")
	}
	return chat, nil
}

// ListForParticipant returns the actor's chats ordered by most recent
// activity, with a stable id tie-break for equal timestamps.
func (s *ChatService) ListForParticipant(ctx context.Context, userID string) ([]domain.Chat, error) {
	chats, err := s.chats.ListByParticipant(ctx, userID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return chats, nil
}

// AppendMessage appends to the chat thread. Human senders always write with
// the user role; the AI responder passes an assistant actor through the same
// interface. Participant membership is enforced here, not in the relay.
func (s *ChatService) AppendMessage(ctx context.Context, actor domain.Actor, chatID, body string, sentiment domain.Sentiment) (*domain.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidationError("message body required", nil)
	}
	if sentiment == "" {
		sentiment = domain.SentimentNeutral
	}
	if !domain.ValidSentiment(sentiment) {
		return nil, apperrors.NewValidationError("unknown sentiment", map[string]any{"sentiment": sentiment})
	}

	s.locks.Lock(chatID)
	defer s.locks.Unlock(chatID)

	chat, err := s.fetch(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if actor.Kind != domain.ActorAssistant && !chat.HasParticipant(actor.ID) {
		return nil, apperrors.NewForbidden("not a chat participant")
	}

	now := s.now()
	msg := domain.Message{
		ID:        uuid.NewString(),
		Role:      actor.ChatRole(),
		Body:      body,
		Sentiment: sentiment,
		Timestamp: now,
	}
	if actor.Kind != domain.ActorAssistant {
		senderID := actor.ID
		msg.SenderID = &senderID
	}

	if err := s.chats.AppendMessage(ctx, chat.ID, &msg); err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := s.chats.Touch(ctx, chat.ID, now); err != nil {
		return nil, apperrors.MapError(err)
	}

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventChatMessageAdded,
			Actor:     actor,
			Timestamp: now,
			Payload: events.ChatMessageAddedPayload{
				ChatID:    chat.ID,
				MessageID: msg.ID,
				Role:      msg.Role,
				Sentiment: msg.Sentiment,
			},
		})
	}
	return &msg, nil
}

func (s *ChatService) fetch(ctx context.Context, chatID string) (*domain.Chat, error) {
	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("chat", map[string]any{"chat_id": chatID})
		}
		return nil, apperrors.MapError(err)
	}
	return chat, nil
}
