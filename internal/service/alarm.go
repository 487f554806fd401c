package service

import (
	"context"
	"slices"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/lulius2021/alarmbriefing-server-go/internal/config"
	apperrors "github.com/lulius2021/alarmbriefing-server-go/internal/errors"
	"github.com/lulius2021/alarmbriefing-server-go/internal/model"
	"github.com/lulius2021/alarmbriefing-server-go/internal/repository"
	"github.com/lulius2021/alarmbriefing-server-go/internal/util"
)

const (
	maxAlarmNameLength  = 100
	maxSoundLength      = 50
	minSnoozeMinutes    = 1
	maxSnoozeMinutes    = 60
	defaultAlarmTime    = "07:00:00"
	defaultSnoozeMinute = 5
)

type AlarmService struct {
	alarms repository.AlarmRepository
}

func NewAlarmService(alarms repository.AlarmRepository) *AlarmService {
	return &AlarmService{alarms: alarms}
}

func (s *AlarmService) List(ctx context.Context, identity model.Identity) ([]model.Alarm, error) {
	alarms, err := s.alarms.ListByUser(ctx, identity.OwnerID())
	if err != nil {
		log.Error().Err(err).Str("userId", identity.OwnerID()).Msg("failed to list alarms")
		return nil, apperrors.Database(err)
	}
	if alarms == nil {
		alarms = []model.Alarm{}
	}
	return alarms, nil
}

func (s *AlarmService) Get(ctx context.Context, identity model.Identity, alarmID string) (*model.Alarm, error) {
	return s.find(ctx, identity.OwnerID(), alarmID)
}

// Create inserts an alarm owned by the identity. Alarms created by a bot are
// marked as bot-managed and linked to the pairing that created them.
func (s *AlarmService) Create(ctx context.Context, identity model.Identity, in model.AlarmInput) (*model.Alarm, error) {
	in, err := normalizeAlarmInput(in)
	if err != nil {
		return nil, err
	}

	params := model.CreateAlarmParams{
		UserID:         identity.OwnerID(),
		Name:           "Alarm",
		Active:         true,
		Time:           defaultAlarmTime,
		Days:           []int64{1, 2, 3, 4, 5},
		SnoozeEnabled:  true,
		SnoozeDuration: defaultSnoozeMinute,
		Sound:          "default",
		Vibration:      true,
		BriefingMode:   "standard",
		ManagedBy:      model.AlarmManagedManual,
	}
	if bot, ok := botOf(identity); ok {
		params.Name = "Bot-Alarm"
		params.Days = []int64{}
		params.ManagedBy = model.AlarmManagedBot
		params.BotPairingID = &bot.PairingID
	}
	applyAlarmInput(&params, in)

	alarm, err := s.alarms.CreateWithinLimit(ctx, params, config.MaxAlarmsPerOwner)
	if err != nil {
		log.Error().Err(err).Str("userId", params.UserID).Msg("failed to create alarm")
		return nil, apperrors.Database(err)
	}
	if alarm == nil {
		return nil, apperrors.LimitExceeded("Maximum number of alarms reached").
			WithDetails(map[string]int{"max": config.MaxAlarmsPerOwner})
	}

	log.Info().
		Str("userId", alarm.UserID).
		Str("alarmId", alarm.ID).
		Str("managedBy", string(alarm.ManagedBy)).
		Msg("alarm created")

	return alarm, nil
}

func (s *AlarmService) Update(ctx context.Context, identity model.Identity, alarmID string, in model.AlarmInput) (*model.Alarm, error) {
	in, err := normalizeAlarmInput(in)
	if err != nil {
		return nil, err
	}
	if err := s.checkModifiable(ctx, identity, alarmID); err != nil {
		return nil, err
	}

	alarm, err := s.alarms.Update(ctx, identity.OwnerID(), alarmID, in)
	if err != nil {
		log.Error().Err(err).Str("alarmId", alarmID).Msg("failed to update alarm")
		return nil, apperrors.Database(err)
	}
	if alarm == nil {
		return nil, apperrors.NotFound("Alarm")
	}
	return alarm, nil
}

func (s *AlarmService) Delete(ctx context.Context, identity model.Identity, alarmID string) error {
	if err := s.checkModifiable(ctx, identity, alarmID); err != nil {
		return err
	}

	deleted, err := s.alarms.Delete(ctx, identity.OwnerID(), alarmID)
	if err != nil {
		log.Error().Err(err).Str("alarmId", alarmID).Msg("failed to delete alarm")
		return apperrors.Database(err)
	}
	if !deleted {
		return apperrors.NotFound("Alarm")
	}

	log.Info().Str("userId", identity.OwnerID()).Str("alarmId", alarmID).Msg("alarm deleted")
	return nil
}

// checkModifiable loads the alarm and, for bots, rejects alarms the user created.
func (s *AlarmService) checkModifiable(ctx context.Context, identity model.Identity, alarmID string) error {
	alarm, err := s.find(ctx, identity.OwnerID(), alarmID)
	if err != nil {
		return err
	}
	if _, ok := botOf(identity); ok && alarm.ManagedBy != model.AlarmManagedBot {
		return apperrors.Forbidden("Cannot modify user-created alarm")
	}
	return nil
}

func (s *AlarmService) find(ctx context.Context, ownerID, alarmID string) (*model.Alarm, error) {
	if !util.IsValidUUID(alarmID) {
		return nil, apperrors.NotFound("Alarm")
	}

	alarm, err := s.alarms.FindByID(ctx, ownerID, alarmID)
	if err != nil {
		log.Error().Err(err).Str("alarmId", alarmID).Msg("failed to load alarm")
		return nil, apperrors.Database(err)
	}
	if alarm == nil {
		return nil, apperrors.NotFound("Alarm")
	}
	return alarm, nil
}

func normalizeAlarmInput(in model.AlarmInput) (model.AlarmInput, error) {
	if in.Name != nil {
		name := util.StripHTML(*in.Name)
		if n := utf8.RuneCountInString(name); n == 0 || n > maxAlarmNameLength {
			return in, apperrors.InvalidInput("name", "must be 1-100 characters")
		}
		in.Name = &name
	}
	if in.Time != nil {
		if !util.IsValidTime(*in.Time) {
			return in, apperrors.InvalidInput("time", "expected HH:MM or HH:MM:SS")
		}
		t := util.NormalizeTime(*in.Time)
		in.Time = &t
	}
	if in.Days != nil {
		days := slices.Clone(*in.Days)
		for _, d := range days {
			if d < 0 || d > 6 {
				return in, apperrors.InvalidInput("days", "values must be between 0 and 6")
			}
		}
		slices.Sort(days)
		days = slices.Compact(days)
		in.Days = &days
	}
	if in.SnoozeDuration != nil && (*in.SnoozeDuration < minSnoozeMinutes || *in.SnoozeDuration > maxSnoozeMinutes) {
		return in, apperrors.InvalidInput("snoozeDuration", "must be between 1 and 60 minutes")
	}
	if in.Sound != nil && (*in.Sound == "" || utf8.RuneCountInString(*in.Sound) > maxSoundLength) {
		return in, apperrors.InvalidInput("sound", "must be 1-50 characters")
	}
	if in.BriefingMode != nil && !slices.Contains(model.BriefingModes, *in.BriefingMode) {
		return in, apperrors.InvalidInput("briefingMode", "must be one of none, short, standard, auto")
	}
	return in, nil
}

func applyAlarmInput(p *model.CreateAlarmParams, in model.AlarmInput) {
	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Active != nil {
		p.Active = *in.Active
	}
	if in.Time != nil {
		p.Time = *in.Time
	}
	if in.Days != nil {
		p.Days = *in.Days
	}
	if in.SnoozeEnabled != nil {
		p.SnoozeEnabled = *in.SnoozeEnabled
	}
	if in.SnoozeDuration != nil {
		p.SnoozeDuration = *in.SnoozeDuration
	}
	if in.Sound != nil {
		p.Sound = *in.Sound
	}
	if in.Vibration != nil {
		p.Vibration = *in.Vibration
	}
	if in.BriefingMode != nil {
		p.BriefingMode = *in.BriefingMode
	}
}

func botOf(identity model.Identity) (model.BotIdentity, bool) {
	switch id := identity.(type) {
	case model.BotIdentity:
		return id, true
	case *model.BotIdentity:
		if id != nil {
			return *id, true
		}
	}
	return model.BotIdentity{}, false
}
