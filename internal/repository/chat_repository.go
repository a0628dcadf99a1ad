package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-platform/internal/domain"
)

// ChatRepository encapsulates chat persistence. The participant pair key
// enforces unordered-pair uniqueness at the storage level.
type ChatRepository interface {
	Create(ctx context.Context, chat *domain.Chat, pairKey string) error
	GetByID(ctx context.Context, id string) (*domain.Chat, error)
	GetByPairKey(ctx context.Context, pairKey string) (*domain.Chat, error)
	AppendMessage(ctx context.Context, chatID string, msg *domain.Message) error
	Touch(ctx context.Context, chatID string, updatedAt time.Time) error
	ListByParticipant(ctx context.Context, userID string) ([]domain.Chat, error)
}

type chatRepository struct {
	pool *pgxpool.Pool
}

// NewChatRepository instantiates repository.
func NewChatRepository(pool *pgxpool.Pool) ChatRepository {
	return &chatRepository{pool: pool}
}

func (r *chatRepository) Create(ctx context.Context, chat *domain.Chat, pairKey string) error {
	const query = `
        INSERT INTO chats (id, participant_pair, participants, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5)`
	_, err := r.pool.Exec(ctx, query,
		chat.ID,
		pairKey,
		chat.Participants,
		chat.CreatedAt,
		chat.UpdatedAt,
	)
	return mapDuplicate(err)
}

func (r *chatRepository) GetByID(ctx context.Context, id string) (*domain.Chat, error) {
	const query = `
        SELECT id, participants, created_at, updated_at FROM chats WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *chatRepository) GetByPairKey(ctx context.Context, pairKey string) (*domain.Chat, error) {
	const query = `
        SELECT id, participants, created_at, updated_at FROM chats WHERE participant_pair=$1`
	return r.fetchSingle(ctx, query, pairKey)
}

func (r *chatRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Chat, error) {
	var chat domain.Chat
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&chat.ID,
		&chat.Participants,
		&chat.CreatedAt,
		&chat.UpdatedAt,
	); err != nil {
		return nil, err
	}
	msgs, err := r.listMessages(ctx, chat.ID)
	if err != nil {
		return nil, err
	}
	chat.Messages = msgs
	return &chat, nil
}

func (r *chatRepository) AppendMessage(ctx context.Context, chatID string, msg *domain.Message) error {
	const query = `
        INSERT INTO chat_messages (id, chat_id, sender_id, role, body, sentiment, created_at, read)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	_, err := r.pool.Exec(ctx, query,
		msg.ID,
		chatID,
		msg.SenderID,
		msg.Role,
		msg.Body,
		msg.Sentiment,
		msg.Timestamp,
		msg.Read,
	)
	return err
}

func (r *chatRepository) Touch(ctx context.Context, chatID string, updatedAt time.Time) error {
	const query = `UPDATE chats SET updated_at=$1 WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, updatedAt, chatID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *chatRepository) ListByParticipant(ctx context.Context, userID string) ([]domain.Chat, error) {
	const query = `
        SELECT id, participants, created_at, updated_at
        FROM chats WHERE $1 = ANY(participants)
        ORDER BY updated_at DESC, id ASC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Chat
	for rows.Next() {
		var chat domain.Chat
		if err := rows.Scan(&chat.ID, &chat.Participants, &chat.CreatedAt, &chat.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, chat)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range result {
		msgs, err := r.listMessages(ctx, result[i].ID)
		if err != nil {
			return nil, err
		}
		result[i].Messages = msgs
	}
	return result, nil
}

func (r *chatRepository) listMessages(ctx context.Context, chatID string) ([]domain.Message, error) {
	const query = `
        SELECT id, sender_id, role, body, sentiment, created_at, read
        FROM chat_messages WHERE chat_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []domain.Message
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(&msg.ID, &msg.SenderID, &msg.Role, &msg.Body, &msg.Sentiment, &msg.Timestamp, &msg.Read); err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}
