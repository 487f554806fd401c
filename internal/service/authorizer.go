package service

import (
	apperrors "github.com/lulius2021/alarmbriefing-server-go/internal/errors"
	"github.com/lulius2021/alarmbriefing-server-go/internal/model"
)

// ScopeAuthorizer decides whether an identity may use a capability.
// Users own their data and are always permitted. Bots need the exact scope
// string in their granted set; there are no wildcards or prefixes.
type ScopeAuthorizer struct{}

func NewScopeAuthorizer() *ScopeAuthorizer {
	return &ScopeAuthorizer{}
}

func (a *ScopeAuthorizer) Authorize(identity model.Identity, scope string) error {
	switch id := identity.(type) {
	case model.UserIdentity, *model.UserIdentity:
		return nil
	case model.BotIdentity:
		return checkScope(id, scope)
	case *model.BotIdentity:
		if id == nil {
			return apperrors.Unauthorized("Authentication required")
		}
		return checkScope(*id, scope)
	default:
		return apperrors.Unauthorized("Authentication required")
	}
}

func checkScope(bot model.BotIdentity, scope string) error {
	if bot.HasScope(scope) {
		return nil
	}
	return apperrors.MissingScope(scope)
}
