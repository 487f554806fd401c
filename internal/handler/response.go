package handler

import (
	"encoding/json"
	"net/http"
	"time"

	apperrors "github.com/lulius2021/alarmbriefing-server-go/internal/errors"
	"github.com/lulius2021/alarmbriefing-server-go/internal/httputil"
	"github.com/lulius2021/alarmbriefing-server-go/internal/middleware"
	"github.com/lulius2021/alarmbriefing-server-go/internal/model"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}

func writeError(w http.ResponseWriter, err error) {
	httputil.WriteError(w, err)
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.ValidationError("Invalid request body")
	}
	return nil
}

// identityOf returns the caller placed in the context by UserAuth or BotGateway.
func identityOf(w http.ResponseWriter, r *http.Request) (model.Identity, bool) {
	identity := middleware.GetIdentity(r.Context())
	if identity == nil {
		writeError(w, apperrors.Unauthorized("Authentication required"))
		return nil, false
	}
	return identity, true
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}

func formatPairing(p model.Pairing, now time.Time) map[string]any {
	return map[string]any{
		"id":        p.ID,
		"botName":   p.BotName,
		"scopes":    []string(p.Scopes),
		"status":    p.EffectiveStatus(now),
		"pairedAt":  formatTime(p.PairedAt),
		"expiresAt": p.ExpiresAt.Format(time.RFC3339),
		"createdAt": p.CreatedAt.Format(time.RFC3339),
	}
}
