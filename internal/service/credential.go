package service

import (
	"context"

	"github.com/rs/zerolog/log"

	apperrors "github.com/lulius2021/alarmbriefing-server-go/internal/errors"
	"github.com/lulius2021/alarmbriefing-server-go/internal/model"
	"github.com/lulius2021/alarmbriefing-server-go/internal/repository"
	"github.com/lulius2021/alarmbriefing-server-go/internal/util"
)

// CredentialService resolves bot secrets against the pairing store.
// Every call reads the store, so a revoked credential fails on its next use.
type CredentialService struct {
	pairings repository.PairingRepository
}

func NewCredentialService(pairings repository.PairingRepository) *CredentialService {
	return &CredentialService{pairings: pairings}
}

// ResolveBot returns the identity behind an active bot secret. Malformed,
// unknown and revoked secrets all yield the same unauthorized error; the
// reason is only logged.
func (s *CredentialService) ResolveBot(ctx context.Context, secret string) (*model.BotIdentity, error) {
	if secret == "" {
		log.Debug().Str("reason", "missing").Msg("bot credential rejected")
		return nil, apperrors.Unauthorized("Bot token required")
	}
	if !util.IsBotSecretFormat(secret) {
		log.Debug().Str("reason", "malformed").Msg("bot credential rejected")
		return nil, invalidBotToken()
	}

	pairing, err := s.pairings.FindActiveByTokenHash(ctx, util.HashToken(secret))
	if err != nil {
		log.Error().Err(err).Msg("failed to resolve bot credential")
		return nil, apperrors.Database(err)
	}
	if pairing == nil {
		log.Debug().Str("reason", "unknown_or_revoked").Msg("bot credential rejected")
		return nil, invalidBotToken()
	}

	identity := model.BotIdentityFromPairing(pairing)
	return &identity, nil
}

func invalidBotToken() *apperrors.AppError {
	return apperrors.Unauthorized("Invalid bot token")
}
