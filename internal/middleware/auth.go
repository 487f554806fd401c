package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	apperrors "github.com/lulius2021/alarmbriefing-server-go/internal/errors"
	"github.com/lulius2021/alarmbriefing-server-go/internal/model"
)

type TokenValidator interface {
	ValidateToken(token string) (userID string, err error)
}

// UserAuth resolves a session JWT into a UserIdentity.
type UserAuth struct {
	tokens TokenValidator
}

func NewUserAuth(tokens TokenValidator) *UserAuth {
	return &UserAuth{tokens: tokens}
}

func (m *UserAuth) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			writeError(w, apperrors.Unauthorized("Missing authentication token"))
			return
		}

		userID, err := m.tokens.ValidateToken(token)
		if err != nil {
			log.Debug().Err(err).Str("path", r.URL.Path).Msg("session token rejected")
			writeError(w, err)
			return
		}

		ctx := WithIdentity(r.Context(), model.UserIdentity{ID: userID})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractToken reads the bearer token. The query form exists for
// EventSource clients, which cannot set headers.
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}

	return r.URL.Query().Get("token")
}
