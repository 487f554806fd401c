package middleware

import (
	"net/http"

	"github.com/rs/zerolog/log"

	apperrors "github.com/lulius2021/alarmbriefing-server-go/internal/errors"
	"github.com/lulius2021/alarmbriefing-server-go/internal/model"
)

type Authorizer interface {
	Authorize(identity model.Identity, scope string) error
}

// RequireScope guards a route with a capability. Users pass through; bots
// need the exact scope.
func RequireScope(authz Authorizer, scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := GetIdentity(r.Context())
			if identity == nil {
				writeError(w, apperrors.Unauthorized("Authentication required"))
				return
			}

			if err := authz.Authorize(identity, scope); err != nil {
				log.Warn().
					Str("userId", identity.OwnerID()).
					Str("actor", string(identity.Actor())).
					Str("scope", scope).
					Str("path", r.URL.Path).
					Msg("scope check denied")
				writeError(w, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
