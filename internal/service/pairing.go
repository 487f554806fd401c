package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/lulius2021/alarmbriefing-server-go/internal/config"
	"github.com/lulius2021/alarmbriefing-server-go/internal/database"
	apperrors "github.com/lulius2021/alarmbriefing-server-go/internal/errors"
	"github.com/lulius2021/alarmbriefing-server-go/internal/metrics"
	"github.com/lulius2021/alarmbriefing-server-go/internal/model"
	"github.com/lulius2021/alarmbriefing-server-go/internal/repository"
	"github.com/lulius2021/alarmbriefing-server-go/internal/util"
)

const maxBotNameLength = 100

var errCodeSpaceExhausted = errors.New("no free pairing code after retries")

// TxRunner runs fn inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn database.TxFunc) error
}

// AuditRecorder durably queues an audit entry.
type AuditRecorder interface {
	Record(ctx context.Context, entry model.AuditEntry) error
}

type PairingCode struct {
	Code      string `json:"code"`
	ExpiresIn int    `json:"expiresIn"`
	Message   string `json:"message"`
}

// ClaimResult carries the raw bot secret. It is produced once and never stored.
type ClaimResult struct {
	BotToken string   `json:"botToken"`
	UserID   string   `json:"userId"`
	Scopes   []string `json:"scopes"`
	Message  string   `json:"message"`
}

type PairingService struct {
	tx       TxRunner
	pairings repository.PairingRepository
	audit    AuditRecorder
	metrics  *metrics.Metrics

	generateCode   func() (string, error)
	generateSecret func() (string, error)
}

func NewPairingService(
	tx TxRunner,
	pairings repository.PairingRepository,
	audit AuditRecorder,
	m *metrics.Metrics,
) *PairingService {
	return &PairingService{
		tx:             tx,
		pairings:       pairings,
		audit:          audit,
		metrics:        m,
		generateCode:   util.GeneratePairingCode,
		generateSecret: util.GenerateBotSecret,
	}
}

// RequestCode replaces any pending request of the owner with a fresh one.
// Revoke and create run in one transaction under a per-owner advisory lock,
// so two pending codes for the same owner are never claimable together.
func (s *PairingService) RequestCode(ctx context.Context, ownerID string) (*PairingCode, error) {
	var (
		pairing *model.Pairing
		err     error
	)

	for attempt := 1; attempt <= config.PairingRequestAttempts; attempt++ {
		pairing, err = s.requestCodeOnce(ctx, ownerID)
		if err == nil {
			break
		}
		if !repository.IsUniqueViolation(err, repository.PendingCodeIndex) &&
			!repository.IsUniqueViolation(err, repository.PendingOwnerIndex) {
			break
		}
		log.Debug().Int("attempt", attempt).Str("userId", ownerID).Msg("pairing code race, retrying")
	}

	if err != nil {
		log.Error().Err(err).Str("userId", ownerID).Msg("failed to create pairing code")
		if errors.Is(err, errCodeSpaceExhausted) {
			return nil, apperrors.Internal("Could not allocate a pairing code, try again")
		}
		return nil, apperrors.Database(err)
	}

	s.metrics.PairingCodeIssued()

	log.Info().
		Str("userId", ownerID).
		Str("pairingId", pairing.ID).
		Str("code", util.MaskCode(pairing.Code)).
		Time("expiresAt", pairing.ExpiresAt).
		Msg("pairing code created")

	s.record(ctx, model.AuditEntry{
		UserID:  ownerID,
		Actor:   model.ActorUser,
		Action:  "pairing code requested",
		Target:  &pairing.ID,
		Details: util.MaskCode(pairing.Code),
	})

	return &PairingCode{
		Code:      pairing.Code,
		ExpiresIn: int(config.PairingCodeTTL.Seconds()),
		Message:   fmt.Sprintf("Give this code to your bot: \"pair %s\"", pairing.Code),
	}, nil
}

func (s *PairingService) requestCodeOnce(ctx context.Context, ownerID string) (*model.Pairing, error) {
	var created *model.Pairing

	err := s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		repo := s.pairings.WithTx(tx)

		if err := repo.LockOwner(ctx, ownerID); err != nil {
			return fmt.Errorf("lock owner: %w", err)
		}

		revoked, err := repo.RevokePendingByUser(ctx, ownerID)
		if err != nil {
			return fmt.Errorf("revoke pending: %w", err)
		}
		if revoked > 0 {
			log.Info().Str("userId", ownerID).Int64("revoked", revoked).Msg("superseded pending pairing")
		}

		code, err := s.freeCode(ctx, repo)
		if err != nil {
			return err
		}

		created, err = repo.Create(ctx, model.CreatePairingParams{
			UserID: ownerID,
			Code:   code,
			Scopes: model.DefaultBotScopes(),
			TTL:    config.PairingCodeTTL,
		})
		if err != nil {
			return fmt.Errorf("create pairing: %w", err)
		}
		return nil
	})

	return created, err
}

// freeCode draws codes until one is not held by any pending request.
func (s *PairingService) freeCode(ctx context.Context, repo repository.PairingRepository) (string, error) {
	for range config.PairingCodeAttempts {
		code, err := s.generateCode()
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}

		taken, err := repo.PendingCodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check code: %w", err)
		}
		if !taken {
			return code, nil
		}
	}
	return "", errCodeSpaceExhausted
}

// Claim exchanges a pending code for a bot secret. The status transition is a
// single conditional update, so of several concurrent claims exactly one wins.
func (s *PairingService) Claim(ctx context.Context, code, botName string) (*ClaimResult, error) {
	code = strings.TrimSpace(code)
	if !util.IsValidPairingCode(code) {
		s.metrics.PairingClaim("malformed")
		return nil, apperrors.MalformedPairingCode()
	}

	botName = util.Truncate(util.StripHTML(botName), maxBotNameLength)
	if botName == "" {
		botName = model.DefaultBotName
	}

	secret, err := s.generateSecret()
	if err != nil {
		log.Error().Err(err).Msg("failed to generate bot secret")
		return nil, apperrors.Internal("Failed to issue bot token")
	}

	pairing, err := s.pairings.Claim(ctx, model.ClaimPairingParams{
		Code:         code,
		BotTokenHash: util.HashToken(secret),
		BotName:      botName,
	})
	if err != nil {
		s.metrics.PairingClaim("error")
		log.Error().Err(err).Str("code", util.MaskCode(code)).Msg("failed to claim pairing")
		return nil, apperrors.Database(err)
	}
	if pairing == nil {
		s.metrics.PairingClaim("invalid")
		log.Warn().Str("code", util.MaskCode(code)).Msg("claim with invalid or expired code")
		return nil, apperrors.InvalidPairingCode()
	}

	s.metrics.PairingClaim("success")

	log.Info().
		Str("userId", pairing.UserID).
		Str("pairingId", pairing.ID).
		Str("botName", pairing.BotName).
		Msg("bot paired")

	s.record(ctx, model.AuditEntry{
		UserID:  pairing.UserID,
		Actor:   model.ActorBot,
		Action:  "paired",
		Target:  &pairing.ID,
		Details: pairing.BotName,
	})

	return &ClaimResult{
		BotToken: secret,
		UserID:   pairing.UserID,
		Scopes:   []string(pairing.Scopes),
		Message:  "Paired successfully. Store this token securely, it is shown only once.",
	}, nil
}

// List returns the owner's active pairings and unexpired pending requests.
func (s *PairingService) List(ctx context.Context, ownerID string) ([]model.Pairing, error) {
	pairings, err := s.pairings.ListByUser(ctx, ownerID)
	if err != nil {
		log.Error().Err(err).Str("userId", ownerID).Msg("failed to list pairings")
		return nil, apperrors.Database(err)
	}
	if pairings == nil {
		pairings = []model.Pairing{}
	}
	return pairings, nil
}

// Revoke ends a pairing. Revoking an already revoked pairing succeeds without
// side effects; unknown and foreign pairings are both reported as not found.
func (s *PairingService) Revoke(ctx context.Context, ownerID, pairingID string) error {
	if !util.IsValidUUID(pairingID) {
		return apperrors.NotFound("Pairing")
	}

	previous, found, err := s.pairings.Revoke(ctx, ownerID, pairingID)
	if err != nil {
		log.Error().Err(err).Str("userId", ownerID).Str("pairingId", pairingID).Msg("failed to revoke pairing")
		return apperrors.Database(err)
	}
	if !found {
		return apperrors.NotFound("Pairing")
	}
	if previous == model.PairingStatusRevoked {
		return nil
	}

	log.Info().
		Str("userId", ownerID).
		Str("pairingId", pairingID).
		Str("previousStatus", string(previous)).
		Msg("pairing revoked")

	s.record(ctx, model.AuditEntry{
		UserID: ownerID,
		Actor:  model.ActorUser,
		Action: "pairing revoked",
		Target: &pairingID,
	})

	return nil
}

func (s *PairingService) record(ctx context.Context, entry model.AuditEntry) {
	if err := s.audit.Record(ctx, entry); err != nil {
		log.Warn().Err(err).Str("action", entry.Action).Msg("audit entry not persisted")
	}
}
