package model

import (
	"time"

	"github.com/lib/pq"
)

type Alarm struct {
	ID             string        `db:"id" json:"id"`
	UserID         string        `db:"user_id" json:"userId"`
	Name           string        `db:"name" json:"name"`
	Active         bool          `db:"active" json:"active"`
	Time           string        `db:"time" json:"time"`
	Days           pq.Int64Array `db:"days" json:"days"`
	SnoozeEnabled  bool          `db:"snooze_enabled" json:"snoozeEnabled"`
	SnoozeDuration int           `db:"snooze_duration" json:"snoozeDuration"`
	Sound          string        `db:"sound" json:"sound"`
	Vibration      bool          `db:"vibration" json:"vibration"`
	BriefingMode   string        `db:"briefing_mode" json:"briefingMode"`
	ManagedBy      AlarmManager  `db:"managed_by" json:"managedBy"`
	BotPairingID   *string       `db:"bot_pairing_id" json:"botPairingId,omitempty"`
	CreatedAt      time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time     `db:"updated_at" json:"updatedAt"`
}

type CreateAlarmParams struct {
	UserID         string
	Name           string
	Active         bool
	Time           string
	Days           []int64
	SnoozeEnabled  bool
	SnoozeDuration int
	Sound          string
	Vibration      bool
	BriefingMode   string
	ManagedBy      AlarmManager
	BotPairingID   *string
}

// AlarmInput holds client-supplied alarm fields. Nil fields keep their
// current value on update and take a default on create.
type AlarmInput struct {
	Name           *string  `json:"name"`
	Active         *bool    `json:"active"`
	Time           *string  `json:"time"`
	Days           *[]int64 `json:"days"`
	SnoozeEnabled  *bool    `json:"snoozeEnabled"`
	SnoozeDuration *int     `json:"snoozeDuration"`
	Sound          *string  `json:"sound"`
	Vibration      *bool    `json:"vibration"`
	BriefingMode   *string  `json:"briefingMode"`
}
