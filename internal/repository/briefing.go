package repository

import (
	"context"
	"encoding/json"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/lulius2021/alarmbriefing-server-go/internal/database"
	"github.com/lulius2021/alarmbriefing-server-go/internal/model"
)

type BriefingRepository interface {
	Create(ctx context.Context, params model.CreateBriefingParams) (*model.Briefing, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]model.Briefing, error)
	LatestForAlarm(ctx context.Context, userID, alarmID string) (*model.Briefing, error)
}

type briefingRepo struct {
	db database.DBTX
}

func NewBriefingRepository(db *sqlx.DB) BriefingRepository {
	return &briefingRepo{db: db}
}

func (r *briefingRepo) Create(ctx context.Context, p model.CreateBriefingParams) (*model.Briefing, error) {
	var briefing model.Briefing
	err := r.db.GetContext(ctx, &briefing, `
		INSERT INTO briefings (
			alarm_id, user_id, modules, content_text, content_ssml, audio_url, weather_data, news_data, cached
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8::jsonb, TRUE)
		RETURNING *
	`, p.AlarmID, p.UserID, pq.StringArray(p.Modules), p.ContentText, p.ContentSSML, p.AudioURL,
		jsonArg(p.WeatherData), jsonArg(p.NewsData))
	if err != nil {
		return nil, err
	}
	return &briefing, nil
}

func (r *briefingRepo) ListByUser(ctx context.Context, userID string, limit int) ([]model.Briefing, error) {
	var briefings []model.Briefing
	err := r.db.SelectContext(ctx, &briefings, `
		SELECT * FROM briefings
		WHERE user_id = $1
		ORDER BY generated_at DESC
		LIMIT $2
	`, userID, limit)
	return briefings, err
}

func (r *briefingRepo) LatestForAlarm(ctx context.Context, userID, alarmID string) (*model.Briefing, error) {
	var briefing model.Briefing
	err := r.db.GetContext(ctx, &briefing, `
		SELECT * FROM briefings
		WHERE user_id = $1 AND alarm_id = $2
		ORDER BY generated_at DESC
		LIMIT 1
	`, userID, alarmID)
	return HandleNotFound(&briefing, err)
}

// jsonArg sends JSON as text so the driver never encodes it as bytea.
func jsonArg(raw *json.RawMessage) *string {
	if raw == nil || len(*raw) == 0 {
		return nil
	}
	s := string(*raw)
	return &s
}
