package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/pkg/util"
)

// AuditRepository appends portal audit entries and enforces retention.
type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditEntry) error
	ListRecent(ctx context.Context, limit int) ([]domain.AuditEntry, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	TrimToMostRecent(ctx context.Context, keep int) (int64, error)
}

type auditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository constructs repository.
func NewAuditRepository(pool *pgxpool.Pool) AuditRepository {
	return &auditRepository{pool: pool}
}

func (r *auditRepository) Create(ctx context.Context, entry *domain.AuditEntry) error {
	const query = `
        INSERT INTO audit_log (actor_id, action, section, link)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, query,
		entry.ActorID,
		entry.Action,
		entry.Section,
		entry.Link,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return util.NewStorageError(err)
	}
	return nil
}

func (r *auditRepository) ListRecent(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
        SELECT id, actor_id, action, section, link, created_at
        FROM audit_log ORDER BY created_at DESC LIMIT $1`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, util.NewStorageError(err)
	}
	defer rows.Close()

	var result []domain.AuditEntry
	for rows.Next() {
		var entry domain.AuditEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.ActorID,
			&entry.Action,
			&entry.Section,
			&entry.Link,
			&entry.CreatedAt,
		); err != nil {
			return nil, util.NewStorageError(err)
		}
		result = append(result, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, util.NewStorageError(err)
	}
	return result, nil
}

func (r *auditRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM audit_log WHERE created_at < $1`
	cmd, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, util.NewStorageError(err)
	}
	return cmd.RowsAffected(), nil
}

func (r *auditRepository) TrimToMostRecent(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	const query = `
        DELETE FROM audit_log WHERE id NOT IN (
            SELECT id FROM audit_log ORDER BY created_at DESC LIMIT $1
        )`
	cmd, err := r.pool.Exec(ctx, query, keep)
	if err != nil {
		return 0, util.NewStorageError(err)
	}
	return cmd.RowsAffected(), nil
}
