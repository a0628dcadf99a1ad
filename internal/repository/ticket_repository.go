package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-platform/internal/domain"
)

// ErrDuplicate signals a unique-key violation (ticket id, chat pair, email).
var ErrDuplicate = errors.New("duplicate key")

// TicketRepository encapsulates ticket persistence. Aggregates are loaded
// with their full message log; identifiers and timestamps are assigned by
// the service layer, never by the store.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	AppendMessage(ctx context.Context, ticketID string, msg *domain.Message) error
	GetByTicketID(ctx context.Context, ticketID string) (*domain.Ticket, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Ticket, error)
	ListAll(ctx context.Context) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (id, ticket_id, owner_id, subject, description, category,
            priority, status, assignee_id, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`
	_, err := r.pool.Exec(ctx, query,
		ticket.ID,
		ticket.TicketID,
		ticket.OwnerID,
		ticket.Subject,
		ticket.Description,
		ticket.Category,
		ticket.Priority,
		ticket.Status,
		ticket.AssigneeID,
		ticket.CreatedAt,
		ticket.UpdatedAt,
	)
	return mapDuplicate(err)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET subject=$1, description=$2, category=$3, priority=$4, status=$5,
            assignee_id=$6, resolved_by=$7, resolution_notes=$8, resolved_at=$9, updated_at=$10
        WHERE id=$11`
	var resolvedBy, notes *string
	var resolvedAt *time.Time
	if ticket.Resolution != nil {
		resolvedBy = &ticket.Resolution.ResolvedBy
		notes = &ticket.Resolution.Notes
		resolvedAt = &ticket.Resolution.ResolvedAt
	}
	cmd, err := r.pool.Exec(ctx, query,
		ticket.Subject,
		ticket.Description,
		ticket.Category,
		ticket.Priority,
		ticket.Status,
		ticket.AssigneeID,
		resolvedBy,
		notes,
		resolvedAt,
		ticket.UpdatedAt,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) AppendMessage(ctx context.Context, ticketID string, msg *domain.Message) error {
	const query = `
        INSERT INTO ticket_messages (id, ticket_id, sender_id, role, body, created_at, read)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`
	_, err := r.pool.Exec(ctx, query,
		msg.ID,
		ticketID,
		msg.SenderID,
		msg.Role,
		msg.Body,
		msg.Timestamp,
		msg.Read,
	)
	return err
}

func (r *ticketRepository) GetByTicketID(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	const query = `
        SELECT id, ticket_id, owner_id, subject, description, category, priority, status,
               assignee_id, resolved_by, resolution_notes, resolved_at, created_at, updated_at
        FROM tickets WHERE ticket_id=$1`
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, ticketID))
	if err != nil {
		return nil, err
	}
	msgs, err := r.listMessages(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}
	ticket.Messages = msgs
	return ticket, nil
}

func (r *ticketRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Ticket, error) {
	const query = `
        SELECT id, ticket_id, owner_id, subject, description, category, priority, status,
               assignee_id, resolved_by, resolution_notes, resolved_at, created_at, updated_at
        FROM tickets WHERE owner_id=$1 ORDER BY created_at DESC`
	return r.list(ctx, query, ownerID)
}

func (r *ticketRepository) ListAll(ctx context.Context) ([]domain.Ticket, error) {
	const query = `
        SELECT id, ticket_id, owner_id, subject, description, category, priority, status,
               assignee_id, resolved_by, resolution_notes, resolved_at, created_at, updated_at
        FROM tickets ORDER BY created_at DESC`
	return r.list(ctx, query)
}

func (r *ticketRepository) list(ctx context.Context, query string, args ...any) ([]domain.Ticket, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
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

func (r *ticketRepository) listMessages(ctx context.Context, id string) ([]domain.Message, error) {
	const query = `
        SELECT id, sender_id, role, body, created_at, read
        FROM ticket_messages WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []domain.Message
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(&msg.ID, &msg.SenderID, &msg.Role, &msg.Body, &msg.Timestamp, &msg.Read); err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		ticket     domain.Ticket
		resolvedBy *string
		notes      *string
		resolvedAt *time.Time
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.TicketID,
		&ticket.OwnerID,
		&ticket.Subject,
		&ticket.Description,
		&ticket.Category,
		&ticket.Priority,
		&ticket.Status,
		&ticket.AssigneeID,
		&resolvedBy,
		&notes,
		&resolvedAt,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if resolvedBy != nil {
		res := domain.Resolution{ResolvedBy: *resolvedBy}
		if resolvedAt != nil {
			res.ResolvedAt = *resolvedAt
		}
		if notes != nil {
			res.Notes = *notes
		}
		ticket.Resolution = &res
	}
	return &ticket, nil
}

func mapDuplicate(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}
