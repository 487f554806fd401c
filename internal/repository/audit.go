package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/lulius2021/alarmbriefing-server-go/internal/database"
	"github.com/lulius2021/alarmbriefing-server-go/internal/model"
)

type AuditRepository interface {
	// InsertBatch is idempotent on entry id and skips entries whose owner no longer exists.
	InsertBatch(ctx context.Context, entries []model.AuditEntry) (int64, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]model.AuditEntry, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type auditRepo struct {
	db database.DBTX
}

func NewAuditRepository(db *sqlx.DB) AuditRepository {
	return &auditRepo{db: db}
}

func (r *auditRepo) InsertBatch(ctx context.Context, entries []model.AuditEntry) (int64, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	n := len(entries)
	ids := make(pq.StringArray, n)
	userIDs := make(pq.StringArray, n)
	actors := make(pq.StringArray, n)
	actions := make(pq.StringArray, n)
	targets := make(pq.StringArray, n)
	details := make(pq.StringArray, n)
	timestamps := make(pq.StringArray, n)
	for i, e := range entries {
		ids[i] = e.ID
		userIDs[i] = e.UserID
		actors[i] = string(e.Actor)
		actions[i] = e.Action
		if e.Target != nil {
			targets[i] = *e.Target
		}
		details[i] = e.Details
		timestamps[i] = e.Timestamp.UTC().Format(time.RFC3339Nano)
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, user_id, actor, action, target, details, timestamp)
		SELECT e.id::uuid, e.user_id::uuid, e.actor, e.action, NULLIF(e.target, ''), e.details, e.ts::timestamptz
		FROM unnest($1::text[], $2::text[], $3::text[], $4::text[], $5::text[], $6::text[], $7::text[])
			AS e(id, user_id, actor, action, target, details, ts)
		WHERE EXISTS (SELECT 1 FROM users u WHERE u.id = e.user_id::uuid)
		ON CONFLICT (id) DO NOTHING
	`, ids, userIDs, actors, actions, targets, details, timestamps)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *auditRepo) ListByUser(ctx context.Context, userID string, limit int) ([]model.AuditEntry, error) {
	var entries []model.AuditEntry
	err := r.db.SelectContext(ctx, &entries, `
		SELECT * FROM audit_log
		WHERE user_id = $1
		ORDER BY timestamp DESC
		LIMIT $2
	`, userID, limit)
	return entries, err
}

func (r *auditRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM audit_log WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
