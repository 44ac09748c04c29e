package audit

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Service reads and trims the audit trail. Writing goes through
// shared.AuditLogger; this side is read-only plus retention.
type Service struct {
	pool *pgxpool.Pool
}

// NewService builds a Service instance.
func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

// ListFilter narrows audit listings.
type ListFilter struct {
	Entity  string
	Action  string
	ActorID int64
	Limit   int
}

// List returns audit entries, newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Entry, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
SELECT id, actor_id, action, entity, entity_id, meta, occurred_at
FROM audit_logs
WHERE ($1 = '' OR entity = $1)
  AND ($2 = '' OR action = $2)
  AND ($3 = 0 OR actor_id = $3)
ORDER BY occurred_at DESC, id DESC
LIMIT $4`, filter.Entity, filter.Action, filter.ActorID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.Entity, &e.EntityID, &e.Meta, &e.OccurredAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// TrimOlderThan hard-deletes entries older than the cutoff and returns the
// number of rows removed. The trail is the one table that is not
// soft-deleted; retention is its only eviction.
func (s *Service) TrimOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM audit_logs WHERE occurred_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
