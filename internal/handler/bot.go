package handler

import (
	"net/http"
	"time"

	"github.com/lulius2021/alarmbriefing-server-go/internal/model"
)

// GET /api/bot/ping
// Lets a bot confirm its credential and see the scopes it holds.
func BotPing(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOf(w, r)
	if !ok {
		return
	}

	var scopes []string
	if bot, isBot := identity.(model.BotIdentity); isBot {
		scopes = bot.Scopes
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":        true,
		"userId":    identity.OwnerID(),
		"scopes":    scopes,
		"timestamp": time.Now().UnixMilli(),
	})
}
