package service

import (
	"context"

	"github.com/rs/zerolog/log"

	apperrors "github.com/lulius2021/alarmbriefing-server-go/internal/errors"
	"github.com/lulius2021/alarmbriefing-server-go/internal/model"
	"github.com/lulius2021/alarmbriefing-server-go/internal/repository"
)

const maxSettingsKeys = 50

type SettingsService struct {
	settings repository.SettingsRepository
}

func NewSettingsService(settings repository.SettingsRepository) *SettingsService {
	return &SettingsService{settings: settings}
}

// Get returns the stored settings laid over the defaults.
func (s *SettingsService) Get(ctx context.Context, identity model.Identity) (model.Settings, error) {
	stored, err := s.settings.Get(ctx, identity.OwnerID())
	if err != nil {
		log.Error().Err(err).Str("userId", identity.OwnerID()).Msg("failed to load settings")
		return nil, apperrors.Database(err)
	}
	return model.DefaultSettings().Merge(stored), nil
}

// Update merges patch into the stored settings key by key.
func (s *SettingsService) Update(ctx context.Context, identity model.Identity, patch model.Settings) (model.Settings, error) {
	if len(patch) == 0 {
		return nil, apperrors.ValidationError("No settings provided")
	}
	if len(patch) > maxSettingsKeys {
		return nil, apperrors.ValidationError("Too many settings in one update")
	}

	stored, err := s.settings.Merge(ctx, identity.OwnerID(), patch)
	if err != nil {
		log.Error().Err(err).Str("userId", identity.OwnerID()).Msg("failed to save settings")
		return nil, apperrors.Database(err)
	}

	log.Info().
		Str("userId", identity.OwnerID()).
		Str("actor", string(identity.Actor())).
		Int("keys", len(patch)).
		Msg("settings updated")

	return model.DefaultSettings().Merge(stored), nil
}
