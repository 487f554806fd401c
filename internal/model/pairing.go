package model

import (
	"time"

	"github.com/lib/pq"
)

const DefaultBotName = "ClawdBot"

type Pairing struct {
	ID           string         `db:"id" json:"id"`
	UserID       string         `db:"user_id" json:"userId"`
	Code         string         `db:"pairing_code" json:"-"`
	Status       PairingStatus  `db:"status" json:"status"`
	BotTokenHash *string        `db:"bot_token_hash" json:"-"`
	BotName      string         `db:"bot_name" json:"botName"`
	Scopes       pq.StringArray `db:"scopes" json:"scopes"`
	ExpiresAt    time.Time      `db:"expires_at" json:"expiresAt"`
	PairedAt     *time.Time     `db:"paired_at" json:"pairedAt,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"createdAt"`
}

// EffectiveStatus reports expired for pending requests past their deadline.
func (p *Pairing) EffectiveStatus(now time.Time) PairingStatus {
	if p.Status == PairingStatusPending && !now.Before(p.ExpiresAt) {
		return PairingStatusExpired
	}
	return p.Status
}

type CreatePairingParams struct {
	UserID string
	Code   string
	Scopes []string
	TTL    time.Duration
}

type ClaimPairingParams struct {
	Code         string
	BotTokenHash string
	BotName      string
}
