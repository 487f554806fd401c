package model

import (
	"encoding/json"
	"time"

	"github.com/lib/pq"
)

type Briefing struct {
	ID          string           `db:"id" json:"id"`
	AlarmID     string           `db:"alarm_id" json:"alarmId"`
	UserID      string           `db:"user_id" json:"userId"`
	Modules     pq.StringArray   `db:"modules" json:"modules"`
	ContentText *string          `db:"content_text" json:"contentText,omitempty"`
	ContentSSML *string          `db:"content_ssml" json:"contentSsml,omitempty"`
	AudioURL    *string          `db:"audio_url" json:"audioUrl,omitempty"`
	WeatherData *json.RawMessage `db:"weather_data" json:"weatherData,omitempty"`
	NewsData    *json.RawMessage `db:"news_data" json:"newsData,omitempty"`
	Cached      bool             `db:"cached" json:"cached"`
	GeneratedAt time.Time        `db:"generated_at" json:"generatedAt"`
}

type CreateBriefingParams struct {
	AlarmID     string
	UserID      string
	Modules     []string
	ContentText *string
	ContentSSML *string
	AudioURL    *string
	WeatherData *json.RawMessage
	NewsData    *json.RawMessage
}
