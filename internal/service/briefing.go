package service

import (
	"context"
	"encoding/json"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/lulius2021/alarmbriefing-server-go/internal/config"
	apperrors "github.com/lulius2021/alarmbriefing-server-go/internal/errors"
	"github.com/lulius2021/alarmbriefing-server-go/internal/model"
	"github.com/lulius2021/alarmbriefing-server-go/internal/repository"
	"github.com/lulius2021/alarmbriefing-server-go/internal/util"
)

const (
	maxBriefingContentLength = 50000
	maxBriefingModules       = 20
	maxAudioURLLength        = 2000
)

type BriefingInput struct {
	AlarmID     string           `json:"alarmId"`
	Modules     []string         `json:"modules"`
	ContentText *string          `json:"contentText"`
	ContentSSML *string          `json:"contentSsml"`
	AudioURL    *string          `json:"audioUrl"`
	WeatherData *json.RawMessage `json:"weatherData"`
	NewsData    *json.RawMessage `json:"newsData"`
}

type BriefingService struct {
	briefings repository.BriefingRepository
	alarms    repository.AlarmRepository
}

func NewBriefingService(briefings repository.BriefingRepository, alarms repository.AlarmRepository) *BriefingService {
	return &BriefingService{briefings: briefings, alarms: alarms}
}

// Create stores a briefing for one of the owner's alarms.
func (s *BriefingService) Create(ctx context.Context, identity model.Identity, in BriefingInput) (*model.Briefing, error) {
	if in.AlarmID == "" {
		return nil, apperrors.MissingRequired("alarmId")
	}
	if err := validateBriefing(in); err != nil {
		return nil, err
	}

	ownerID := identity.OwnerID()
	if err := s.requireAlarm(ctx, ownerID, in.AlarmID); err != nil {
		return nil, err
	}

	modules := in.Modules
	if modules == nil {
		modules = []string{}
	}

	briefing, err := s.briefings.Create(ctx, model.CreateBriefingParams{
		AlarmID:     in.AlarmID,
		UserID:      ownerID,
		Modules:     modules,
		ContentText: in.ContentText,
		ContentSSML: in.ContentSSML,
		AudioURL:    in.AudioURL,
		WeatherData: in.WeatherData,
		NewsData:    in.NewsData,
	})
	if err != nil {
		log.Error().Err(err).Str("alarmId", in.AlarmID).Msg("failed to store briefing")
		return nil, apperrors.Database(err)
	}

	log.Info().
		Str("userId", ownerID).
		Str("alarmId", in.AlarmID).
		Str("briefingId", briefing.ID).
		Str("actor", string(identity.Actor())).
		Msg("briefing stored")

	return briefing, nil
}

func (s *BriefingService) List(ctx context.Context, identity model.Identity) ([]model.Briefing, error) {
	briefings, err := s.briefings.ListByUser(ctx, identity.OwnerID(), config.BriefingHistorySize)
	if err != nil {
		log.Error().Err(err).Str("userId", identity.OwnerID()).Msg("failed to list briefings")
		return nil, apperrors.Database(err)
	}
	if briefings == nil {
		briefings = []model.Briefing{}
	}
	return briefings, nil
}

func (s *BriefingService) Latest(ctx context.Context, identity model.Identity, alarmID string) (*model.Briefing, error) {
	if !util.IsValidUUID(alarmID) {
		return nil, apperrors.NotFound("Briefing")
	}

	briefing, err := s.briefings.LatestForAlarm(ctx, identity.OwnerID(), alarmID)
	if err != nil {
		log.Error().Err(err).Str("alarmId", alarmID).Msg("failed to load briefing")
		return nil, apperrors.Database(err)
	}
	if briefing == nil {
		return nil, apperrors.NotFound("Briefing")
	}
	return briefing, nil
}

func (s *BriefingService) requireAlarm(ctx context.Context, ownerID, alarmID string) error {
	if !util.IsValidUUID(alarmID) {
		return apperrors.NotFound("Alarm")
	}
	alarm, err := s.alarms.FindByID(ctx, ownerID, alarmID)
	if err != nil {
		log.Error().Err(err).Str("alarmId", alarmID).Msg("failed to load alarm")
		return apperrors.Database(err)
	}
	if alarm == nil {
		return apperrors.NotFound("Alarm")
	}
	return nil
}

func validateBriefing(in BriefingInput) error {
	if len(in.Modules) > maxBriefingModules {
		return apperrors.InvalidInput("modules", "at most 20 entries")
	}
	if in.ContentText != nil && utf8.RuneCountInString(*in.ContentText) > maxBriefingContentLength {
		return apperrors.InvalidInput("contentText", "too long")
	}
	if in.ContentSSML != nil && utf8.RuneCountInString(*in.ContentSSML) > maxBriefingContentLength {
		return apperrors.InvalidInput("contentSsml", "too long")
	}
	if in.AudioURL != nil && len(*in.AudioURL) > maxAudioURLLength {
		return apperrors.InvalidInput("audioUrl", "too long")
	}
	return nil
}
