package model

import "slices"

// Identity is the caller resolved by either the user session or the bot gateway.
type Identity interface {
	OwnerID() string
	Actor() Actor
}

type UserIdentity struct {
	ID string
}

func (u UserIdentity) OwnerID() string { return u.ID }
func (u UserIdentity) Actor() Actor    { return ActorUser }

type BotIdentity struct {
	PairingID string
	UserID    string
	Name      string
	Scopes    []string
}

func (b BotIdentity) OwnerID() string { return b.UserID }
func (b BotIdentity) Actor() Actor    { return ActorBot }

func (b BotIdentity) HasScope(scope string) bool {
	return slices.Contains(b.Scopes, scope)
}

func BotIdentityFromPairing(p *Pairing) BotIdentity {
	return BotIdentity{
		PairingID: p.ID,
		UserID:    p.UserID,
		Name:      p.BotName,
		Scopes:    slices.Clone([]string(p.Scopes)),
	}
}
