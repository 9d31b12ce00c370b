package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/pkg/util"
)

// TicketRepository encapsulates ticket persistence. Reads always hit
// the store; ticket state is never cached in-process.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	ListAll(ctx context.Context) ([]domain.Ticket, error)
	ListByRequester(ctx context.Context, email string) ([]domain.Ticket, error)
	// UpdateState persists the ticket's state, timestamps and auto_closed
	// flag. The expected previous state is part of the WHERE clause, so a
	// concurrent transition that already moved the ticket makes this a
	// no-op reported as not found.
	UpdateState(ctx context.Context, ticket *domain.Ticket, expected domain.TicketState) error
	ListResolvedBefore(ctx context.Context, cutoff time.Time) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, external_key, title, description, category, priority, state,
               requester_name, requester_email, auto_closed, created_at, updated_at, resolved_at, closed_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (external_key, title, description, category, priority, state, requester_name, requester_email)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		ticket.ExternalKey,
		ticket.Title,
		ticket.Description,
		ticket.Category,
		ticket.Priority,
		ticket.State,
		ticket.RequesterName,
		ticket.RequesterEmail,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
	if err != nil {
		return util.NewStorageError(err)
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	var ticket domain.Ticket
	if err := scanTicket(r.pool.QueryRow(ctx, query, id), &ticket); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("ticket", map[string]any{"id": id})
		}
		return nil, util.NewStorageError(err)
	}
	return &ticket, nil
}

func (r *ticketRepository) ListAll(ctx context.Context) ([]domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, util.NewStorageError(err)
	}
	defer rows.Close()
	return collectTickets(rows)
}

func (r *ticketRepository) ListByRequester(ctx context.Context, email string) ([]domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets WHERE requester_email=$1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, email)
	if err != nil {
		return nil, util.NewStorageError(err)
	}
	defer rows.Close()
	return collectTickets(rows)
}

func (r *ticketRepository) UpdateState(ctx context.Context, ticket *domain.Ticket, expected domain.TicketState) error {
	const query = `
        UPDATE tickets SET state=$1, auto_closed=$2, resolved_at=$3, closed_at=$4, updated_at=NOW()
        WHERE id=$5 AND state=$6`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.State,
		ticket.AutoClosed,
		ticket.ResolvedAt,
		ticket.ClosedAt,
		ticket.ID,
		expected,
	)
	if err != nil {
		return util.NewStorageError(err)
	}
	if cmd.RowsAffected() == 0 {
		return util.NewNotFound("ticket", map[string]any{"id": ticket.ID, "expected_state": expected})
	}
	return nil
}

func (r *ticketRepository) ListResolvedBefore(ctx context.Context, cutoff time.Time) ([]domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + `
        FROM tickets WHERE state=$1 AND resolved_at < $2 ORDER BY resolved_at ASC`
	rows, err := r.pool.Query(ctx, query, domain.TicketStateResolved, cutoff)
	if err != nil {
		return nil, util.NewStorageError(err)
	}
	defer rows.Close()
	return collectTickets(rows)
}

func scanTicket(row pgx.Row, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.ExternalKey,
		&ticket.Title,
		&ticket.Description,
		&ticket.Category,
		&ticket.Priority,
		&ticket.State,
		&ticket.RequesterName,
		&ticket.RequesterEmail,
		&ticket.AutoClosed,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ResolvedAt,
		&ticket.ClosedAt,
	)
}

func collectTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, util.NewStorageError(err)
		}
		result = append(result, ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, util.NewStorageError(err)
	}
	return result, nil
}
