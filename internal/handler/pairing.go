package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

type PairingHandler struct {
	pairings PairingManager
	now      func() time.Time
}

func NewPairingHandler(pairings PairingManager) *PairingHandler {
	return &PairingHandler{pairings: pairings, now: time.Now}
}

// POST /api/pairing/code
func (h *PairingHandler) RequestCode(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOf(w, r)
	if !ok {
		return
	}

	code, err := h.pairings.RequestCode(r.Context(), identity.OwnerID())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, code)
}

// POST /api/pairing/claim
// Public: the code itself is the credential.
func (h *PairingHandler) Claim(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code    string `json:"code"`
		BotName string `json:"botName"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.pairings.Claim(r.Context(), req.Code, req.BotName)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// GET /api/pairing
func (h *PairingHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOf(w, r)
	if !ok {
		return
	}

	pairings, err := h.pairings.List(r.Context(), identity.OwnerID())
	if err != nil {
		writeError(w, err)
		return
	}

	now := h.now()
	items := make([]map[string]any, len(pairings))
	for i, p := range pairings {
		items[i] = formatPairing(p, now)
	}

	writeJSON(w, http.StatusOK, map[string]any{"pairings": items})
}

// DELETE /api/pairing/{id}
func (h *PairingHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOf(w, r)
	if !ok {
		return
	}

	if err := h.pairings.Revoke(r.Context(), identity.OwnerID(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
