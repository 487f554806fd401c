package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/lulius2021/alarmbriefing-server-go/internal/database"
	"github.com/lulius2021/alarmbriefing-server-go/internal/model"
)

type AlarmRepository interface {
	ListByUser(ctx context.Context, userID string) ([]model.Alarm, error)
	FindByID(ctx context.Context, userID, id string) (*model.Alarm, error)
	// CreateWithinLimit inserts the alarm only while the owner has fewer than
	// limit alarms; it returns nil when the cap is reached.
	CreateWithinLimit(ctx context.Context, params model.CreateAlarmParams, limit int) (*model.Alarm, error)
	Update(ctx context.Context, userID, id string, params model.AlarmInput) (*model.Alarm, error)
	Delete(ctx context.Context, userID, id string) (bool, error)
}

type alarmRepo struct {
	db database.DBTX
}

func NewAlarmRepository(db *sqlx.DB) AlarmRepository {
	return &alarmRepo{db: db}
}

func (r *alarmRepo) ListByUser(ctx context.Context, userID string) ([]model.Alarm, error) {
	var alarms []model.Alarm
	err := r.db.SelectContext(ctx, &alarms, `
		SELECT * FROM alarms WHERE user_id = $1 ORDER BY time ASC
	`, userID)
	return alarms, err
}

func (r *alarmRepo) FindByID(ctx context.Context, userID, id string) (*model.Alarm, error) {
	var alarm model.Alarm
	err := r.db.GetContext(ctx, &alarm, `
		SELECT * FROM alarms WHERE id = $1 AND user_id = $2
	`, id, userID)
	return HandleNotFound(&alarm, err)
}

func (r *alarmRepo) CreateWithinLimit(ctx context.Context, p model.CreateAlarmParams, limit int) (*model.Alarm, error) {
	var alarm model.Alarm
	err := r.db.GetContext(ctx, &alarm, `
		INSERT INTO alarms (
			user_id, name, active, time, days, snooze_enabled, snooze_duration,
			sound, vibration, briefing_mode, managed_by, bot_pairing_id
		)
		SELECT $1::uuid, $2::text, $3::boolean, $4::text, $5::smallint[], $6::boolean, $7::integer,
			$8::text, $9::boolean, $10::text, $11::text, $12::uuid
		WHERE (SELECT COUNT(*) FROM alarms WHERE user_id = $1) < $13
		RETURNING *
	`, p.UserID, p.Name, p.Active, p.Time, pq.Int64Array(p.Days), p.SnoozeEnabled, p.SnoozeDuration,
		p.Sound, p.Vibration, p.BriefingMode, string(p.ManagedBy), p.BotPairingID, limit)
	return HandleNotFound(&alarm, err)
}

func (r *alarmRepo) Update(ctx context.Context, userID, id string, p model.AlarmInput) (*model.Alarm, error) {
	sets := []string{}
	args := []any{id, userID}
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if p.Name != nil {
		add("name", *p.Name)
	}
	if p.Active != nil {
		add("active", *p.Active)
	}
	if p.Time != nil {
		add("time", *p.Time)
	}
	if p.Days != nil {
		add("days", pq.Int64Array(*p.Days))
	}
	if p.SnoozeEnabled != nil {
		add("snooze_enabled", *p.SnoozeEnabled)
	}
	if p.SnoozeDuration != nil {
		add("snooze_duration", *p.SnoozeDuration)
	}
	if p.Sound != nil {
		add("sound", *p.Sound)
	}
	if p.Vibration != nil {
		add("vibration", *p.Vibration)
	}
	if p.BriefingMode != nil {
		add("briefing_mode", *p.BriefingMode)
	}

	if len(sets) == 0 {
		return r.FindByID(ctx, userID, id)
	}
	sets = append(sets, "updated_at = NOW()")

	var alarm model.Alarm
	query := `UPDATE alarms SET ` + strings.Join(sets, ", ") + ` WHERE id = $1 AND user_id = $2 RETURNING *`
	err := r.db.GetContext(ctx, &alarm, query, args...)
	return HandleNotFound(&alarm, err)
}

func (r *alarmRepo) Delete(ctx context.Context, userID, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM alarms WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	return n > 0, err
}
