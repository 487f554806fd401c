package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/lulius2021/alarmbriefing-server-go/internal/database"
	"github.com/lulius2021/alarmbriefing-server-go/internal/model"
)

type SettingsRepository interface {
	// Get returns the stored overrides, or an empty map when nothing was saved.
	Get(ctx context.Context, userID string) (model.Settings, error)
	// Merge shallow-merges patch into the stored settings and returns the result.
	Merge(ctx context.Context, userID string, patch model.Settings) (model.Settings, error)
}

type settingsRepo struct {
	db database.DBTX
}

func NewSettingsRepository(db *sqlx.DB) SettingsRepository {
	return &settingsRepo{db: db}
}

func (r *settingsRepo) Get(ctx context.Context, userID string) (model.Settings, error) {
	var raw []byte
	err := r.db.GetContext(ctx, &raw, `SELECT data FROM user_settings WHERE user_id = $1`, userID)
	found, err := HandleNotFound(&raw, err)
	if err != nil {
		return nil, err
	}
	if found == nil {
		return model.Settings{}, nil
	}
	return decodeSettings(raw)
}

func (r *settingsRepo) Merge(ctx context.Context, userID string, patch model.Settings) (model.Settings, error) {
	body, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}

	var raw []byte
	err = r.db.GetContext(ctx, &raw, `
		INSERT INTO user_settings (user_id, data, updated_at)
		VALUES ($1, $2::jsonb, NOW())
		ON CONFLICT (user_id) DO UPDATE
			SET data = user_settings.data || EXCLUDED.data, updated_at = NOW()
		RETURNING data
	`, userID, string(body))
	if err != nil {
		return nil, err
	}
	return decodeSettings(raw)
}

func decodeSettings(raw []byte) (model.Settings, error) {
	settings := model.Settings{}
	if err := json.Unmarshal(raw, &settings); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	return settings, nil
}
