package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/pkg/util"
)

// ReplyRepository manages ticket thread replies and their attachment rows.
type ReplyRepository interface {
	Create(ctx context.Context, reply *domain.Reply) error
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.Reply, error)
}

type replyRepository struct {
	pool *pgxpool.Pool
}

// NewReplyRepository builds repository.
func NewReplyRepository(pool *pgxpool.Pool) ReplyRepository {
	return &replyRepository{pool: pool}
}

func (r *replyRepository) Create(ctx context.Context, reply *domain.Reply) error {
	const query = `
        INSERT INTO ticket_replies (ticket_id, message, sender_label)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, query,
		reply.TicketID,
		reply.Message,
		reply.SenderLabel,
	).Scan(&reply.ID, &reply.CreatedAt)
	if err != nil {
		return util.NewStorageError(err)
	}

	const attQuery = `
        INSERT INTO reply_attachments (reply_id, url, name, storage_id, kind)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	for i := range reply.Attachments {
		att := &reply.Attachments[i]
		att.ReplyID = reply.ID
		if err := r.pool.QueryRow(ctx, attQuery,
			att.ReplyID,
			att.URL,
			att.Name,
			att.StorageID,
			att.Kind,
		).Scan(&att.ID, &att.CreatedAt); err != nil {
			return util.NewStorageError(err)
		}
	}
	return nil
}

func (r *replyRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.Reply, error) {
	const query = `
        SELECT id, ticket_id, message, sender_label, created_at
        FROM ticket_replies WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, util.NewStorageError(err)
	}
	defer rows.Close()

	var result []domain.Reply
	for rows.Next() {
		var reply domain.Reply
		if err := rows.Scan(
			&reply.ID,
			&reply.TicketID,
			&reply.Message,
			&reply.SenderLabel,
			&reply.CreatedAt,
		); err != nil {
			return nil, util.NewStorageError(err)
		}
		result = append(result, reply)
	}
	if err := rows.Err(); err != nil {
		return nil, util.NewStorageError(err)
	}

	for i := range result {
		attachments, err := r.listAttachments(ctx, result[i].ID)
		if err != nil {
			return nil, err
		}
		result[i].Attachments = attachments
	}
	return result, nil
}

func (r *replyRepository) listAttachments(ctx context.Context, replyID int64) ([]domain.AttachmentRef, error) {
	const query = `
        SELECT id, reply_id, url, name, storage_id, kind, created_at
        FROM reply_attachments WHERE reply_id=$1 ORDER BY id ASC`
	rows, err := r.pool.Query(ctx, query, replyID)
	if err != nil {
		return nil, util.NewStorageError(err)
	}
	defer rows.Close()

	var result []domain.AttachmentRef
	for rows.Next() {
		var att domain.AttachmentRef
		if err := rows.Scan(
			&att.ID,
			&att.ReplyID,
			&att.URL,
			&att.Name,
			&att.StorageID,
			&att.Kind,
			&att.CreatedAt,
		); err != nil {
			return nil, util.NewStorageError(err)
		}
		result = append(result, att)
	}
	if err := rows.Err(); err != nil {
		return nil, util.NewStorageError(err)
	}
	return result, nil
}
