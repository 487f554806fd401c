package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lulius2021/alarmbriefing-server-go/internal/service"
)

type BriefingHandler struct {
	briefings BriefingManager
}

func NewBriefingHandler(briefings BriefingManager) *BriefingHandler {
	return &BriefingHandler{briefings: briefings}
}

func (h *BriefingHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOf(w, r)
	if !ok {
		return
	}

	var in service.BriefingInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	briefing, err := h.briefings.Create(r.Context(), identity, in)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"briefing": briefing})
}

func (h *BriefingHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOf(w, r)
	if !ok {
		return
	}

	briefings, err := h.briefings.List(r.Context(), identity)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"briefings": briefings})
}

func (h *BriefingHandler) Latest(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOf(w, r)
	if !ok {
		return
	}

	briefing, err := h.briefings.Latest(r.Context(), identity, chi.URLParam(r, "alarmId"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"briefing": briefing})
}
