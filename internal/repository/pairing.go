package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/lulius2021/alarmbriefing-server-go/internal/database"
	"github.com/lulius2021/alarmbriefing-server-go/internal/model"
)

// Index names from the schema, used to tell code collisions from owner races.
const (
	PendingCodeIndex  = "bot_pairings_pending_code"
	PendingOwnerIndex = "bot_pairings_one_pending_per_user"
)

type PairingRepository interface {
	// LockOwner takes a transaction-scoped advisory lock for the owner.
	LockOwner(ctx context.Context, userID string) error
	RevokePendingByUser(ctx context.Context, userID string) (int64, error)
	PendingCodeExists(ctx context.Context, code string) (bool, error)
	Create(ctx context.Context, params model.CreatePairingParams) (*model.Pairing, error)
	// Claim moves a pending, unexpired pairing to active in one statement.
	// It returns nil when no such pairing exists, including when another claim won.
	Claim(ctx context.Context, params model.ClaimPairingParams) (*model.Pairing, error)
	FindActiveByTokenHash(ctx context.Context, tokenHash string) (*model.Pairing, error)
	ListByUser(ctx context.Context, userID string) ([]model.Pairing, error)
	// Revoke returns the status the pairing had before, or found=false when the
	// pairing does not exist or belongs to someone else.
	Revoke(ctx context.Context, userID, id string) (previous model.PairingStatus, found bool, err error)
	ExpireStale(ctx context.Context) (int64, error)
	WithTx(tx *sqlx.Tx) PairingRepository
}

type pairingRepo struct {
	db database.DBTX
}

func NewPairingRepository(db *sqlx.DB) PairingRepository {
	return &pairingRepo{db: db}
}

func (r *pairingRepo) WithTx(tx *sqlx.Tx) PairingRepository {
	return &pairingRepo{db: tx}
}

func (r *pairingRepo) LockOwner(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, userID)
	return err
}

func (r *pairingRepo) RevokePendingByUser(ctx context.Context, userID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE bot_pairings SET status = 'revoked'
		WHERE user_id = $1 AND status = 'pending'
	`, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *pairingRepo) PendingCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS(SELECT 1 FROM bot_pairings WHERE pairing_code = $1 AND status = 'pending')
	`, code)
	return exists, err
}

func (r *pairingRepo) Create(ctx context.Context, params model.CreatePairingParams) (*model.Pairing, error) {
	var pairing model.Pairing
	err := r.db.GetContext(ctx, &pairing, `
		INSERT INTO bot_pairings (user_id, pairing_code, status, scopes, expires_at)
		VALUES ($1, $2, 'pending', $3, NOW() + make_interval(secs => $4))
		RETURNING *
	`, params.UserID, params.Code, pq.StringArray(params.Scopes), params.TTL.Seconds())
	if err != nil {
		return nil, err
	}
	return &pairing, nil
}

func (r *pairingRepo) Claim(ctx context.Context, params model.ClaimPairingParams) (*model.Pairing, error) {
	var pairing model.Pairing
	err := r.db.GetContext(ctx, &pairing, `
		UPDATE bot_pairings SET
			status = 'active',
			bot_token_hash = $2,
			bot_name = $3,
			paired_at = NOW()
		WHERE pairing_code = $1 AND status = 'pending' AND expires_at > NOW()
		RETURNING *
	`, params.Code, params.BotTokenHash, params.BotName)
	return HandleNotFound(&pairing, err)
}

func (r *pairingRepo) FindActiveByTokenHash(ctx context.Context, tokenHash string) (*model.Pairing, error) {
	var pairing model.Pairing
	err := r.db.GetContext(ctx, &pairing, `
		SELECT * FROM bot_pairings
		WHERE bot_token_hash = $1 AND status = 'active'
	`, tokenHash)
	return HandleNotFound(&pairing, err)
}

func (r *pairingRepo) ListByUser(ctx context.Context, userID string) ([]model.Pairing, error) {
	var pairings []model.Pairing
	err := r.db.SelectContext(ctx, &pairings, `
		SELECT * FROM bot_pairings
		WHERE user_id = $1
		  AND (status = 'active' OR (status = 'pending' AND expires_at > NOW()))
		ORDER BY created_at DESC
	`, userID)
	return pairings, err
}

func (r *pairingRepo) Revoke(ctx context.Context, userID, id string) (model.PairingStatus, bool, error) {
	var previous model.PairingStatus
	err := r.db.GetContext(ctx, &previous, `
		WITH target AS (
			SELECT id, status FROM bot_pairings
			WHERE id = $1 AND user_id = $2
			FOR UPDATE
		)
		UPDATE bot_pairings p SET status = 'revoked', bot_token_hash = NULL
		FROM target
		WHERE p.id = target.id
		RETURNING target.status
	`, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return previous, true, nil
}

func (r *pairingRepo) ExpireStale(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE bot_pairings SET status = 'expired'
		WHERE status = 'pending' AND expires_at <= NOW()
	`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
