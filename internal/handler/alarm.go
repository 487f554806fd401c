package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lulius2021/alarmbriefing-server-go/internal/model"
)

// AlarmHandler serves both the app and paired bots; the service applies the
// caller-specific rules.
type AlarmHandler struct {
	alarms AlarmManager
}

func NewAlarmHandler(alarms AlarmManager) *AlarmHandler {
	return &AlarmHandler{alarms: alarms}
}

func (h *AlarmHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOf(w, r)
	if !ok {
		return
	}

	alarms, err := h.alarms.List(r.Context(), identity)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"alarms": alarms})
}

func (h *AlarmHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOf(w, r)
	if !ok {
		return
	}

	alarm, err := h.alarms.Get(r.Context(), identity, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"alarm": alarm})
}

func (h *AlarmHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOf(w, r)
	if !ok {
		return
	}

	var in model.AlarmInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	alarm, err := h.alarms.Create(r.Context(), identity, in)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"alarm": alarm})
}

func (h *AlarmHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOf(w, r)
	if !ok {
		return
	}

	var in model.AlarmInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}

	alarm, err := h.alarms.Update(r.Context(), identity, chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"alarm": alarm})
}

func (h *AlarmHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOf(w, r)
	if !ok {
		return
	}

	if err := h.alarms.Delete(r.Context(), identity, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
