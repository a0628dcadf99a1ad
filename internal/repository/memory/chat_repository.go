package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-platform/internal/domain"
	"github.com/spec-kit/support-platform/internal/repository"
)

type chatRepository struct {
	mu     sync.RWMutex
	byID   map[string]*domain.Chat
	byPair map[string]string // pair key -> chat id
}

// NewChatRepository builds an in-memory chat store.
func NewChatRepository() repository.ChatRepository {
	return &chatRepository{
		byID:   make(map[string]*domain.Chat),
		byPair: make(map[string]string),
	}
}

func (r *chatRepository) Create(ctx context.Context, chat *domain.Chat, pairKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byPair[pairKey]; exists {
		return repository.ErrDuplicate
	}
	r.byPair[pairKey] = chat.ID
	r.byID[chat.ID] = copyChat(chat)
	return nil
}

func (r *chatRepository) GetByID(ctx context.Context, id string) (*domain.Chat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	chat, ok := r.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return copyChat(chat), nil
}

func (r *chatRepository) GetByPairKey(ctx context.Context, pairKey string) (*domain.Chat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byPair[pairKey]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return copyChat(r.byID[id]), nil
}

func (r *chatRepository) AppendMessage(ctx context.Context, chatID string, msg *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	chat, ok := r.byID[chatID]
	if !ok {
		return pgx.ErrNoRows
	}
	chat.Messages = append(chat.Messages, *msg)
	return nil
}

func (r *chatRepository) Touch(ctx context.Context, chatID string, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	chat, ok := r.byID[chatID]
	if !ok {
		return pgx.ErrNoRows
	}
	chat.UpdatedAt = updatedAt
	return nil
}

func (r *chatRepository) ListByParticipant(ctx context.Context, userID string) ([]domain.Chat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Chat
	for _, chat := range r.byID {
		if chat.HasParticipant(userID) {
			result = append(result, *copyChat(chat))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].UpdatedAt.Equal(result[j].UpdatedAt) {
			return result[i].UpdatedAt.After(result[j].UpdatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func copyChat(c *domain.Chat) *domain.Chat {
	dup := *c
	dup.Participants = append([]string(nil), c.Participants...)
	dup.Messages = append([]domain.Message(nil), c.Messages...)
	return &dup
}
