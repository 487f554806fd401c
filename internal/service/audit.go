package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/lulius2021/alarmbriefing-server-go/internal/config"
	apperrors "github.com/lulius2021/alarmbriefing-server-go/internal/errors"
	"github.com/lulius2021/alarmbriefing-server-go/internal/model"
	"github.com/lulius2021/alarmbriefing-server-go/internal/repository"
)

type AuditService struct {
	entries repository.AuditRepository
}

func NewAuditService(entries repository.AuditRepository) *AuditService {
	return &AuditService{entries: entries}
}

// List returns the owner's newest entries first. limit is clamped to
// [1, MaxAuditListLimit]; zero selects the default.
func (s *AuditService) List(ctx context.Context, ownerID string, limit int) ([]model.AuditEntry, error) {
	switch {
	case limit <= 0:
		limit = config.DefaultListLimit
	case limit > config.MaxAuditListLimit:
		limit = config.MaxAuditListLimit
	}

	entries, err := s.entries.ListByUser(ctx, ownerID, limit)
	if err != nil {
		log.Error().Err(err).Str("userId", ownerID).Msg("failed to list audit entries")
		return nil, apperrors.Database(err)
	}
	if entries == nil {
		entries = []model.AuditEntry{}
	}
	return entries, nil
}
