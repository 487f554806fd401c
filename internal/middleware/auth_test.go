package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/lulius2021/alarmbriefing-server-go/internal/errors"
	"github.com/lulius2021/alarmbriefing-server-go/internal/model"
)

func TestUserAuth(t *testing.T) {
	validator := &mockTokenValidator{
		validateFunc: func(token string) (string, error) {
			switch token {
			case "good":
				return "user-1", nil
			case "old":
				return "", apperrors.TokenExpired()
			default:
				return "", apperrors.InvalidToken("Invalid session token")
			}
		},
	}

	var got model.Identity
	handler := NewUserAuth(validator).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetIdentity(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("bearer header", func(t *testing.T) {
		got = nil
		req := httptest.NewRequest(http.MethodGet, "/api/pairing", nil)
		req.Header.Set("Authorization", "Bearer good")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, model.UserIdentity{ID: "user-1"}, got)
	})

	t.Run("query token for event streams", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/audit/stream?token=good", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/pairing", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "UNAUTHORIZED")
	})

	t.Run("expired token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/pairing", nil)
		req.Header.Set("Authorization", "Bearer old")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "TOKEN_EXPIRED")
	})

	t.Run("a bot secret is not a session", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/pairing", nil)
		req.Header.Set("Authorization", "Bearer abt_deadbeef")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
