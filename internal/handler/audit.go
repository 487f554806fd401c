package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lulius2021/alarmbriefing-server-go/internal/config"
	apperrors "github.com/lulius2021/alarmbriefing-server-go/internal/errors"
	"github.com/lulius2021/alarmbriefing-server-go/internal/sse"
)

type AuditHandler struct {
	audit  AuditLister
	broker AuditSubscriber
}

func NewAuditHandler(audit AuditLister, broker AuditSubscriber) *AuditHandler {
	return &AuditHandler{audit: audit, broker: broker}
}

// GET /api/audit?limit=N
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOf(w, r)
	if !ok {
		return
	}

	entries, err := h.audit.List(r.Context(), identity.OwnerID(), ParseLimit(r, config.DefaultListLimit))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// GET /api/audit/stream
// Server-sent events carrying the owner's audit entries as they are persisted.
func (h *AuditHandler) Stream(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOf(w, r)
	if !ok {
		return
	}
	userID := identity.OwnerID()

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, apperrors.Internal("Streaming not supported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	client := h.broker.Subscribe(userID)
	defer h.broker.Unsubscribe(client)

	log.Info().Str("userId", userID).Msg("audit stream opened")

	if err := sendEvent(w, flusher, "connected", map[string]any{
		"userId":    userID,
		"timestamp": time.Now().UnixMilli(),
	}); err != nil {
		return
	}

	heartbeat := time.NewTicker(sse.HeartbeatInterval)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("userId", userID).Msg("audit stream closed by client")
			return

		case <-client.Done:
			log.Info().Str("userId", userID).Msg("audit stream closed by broker")
			return

		case event := <-client.Events:
			if err := sendRawEvent(w, flusher, event); err != nil {
				log.Debug().Err(err).Str("userId", userID).Msg("failed to send audit event")
				return
			}

		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				log.Debug().Str("userId", userID).Msg("heartbeat failed, closing audit stream")
				return
			}
			flusher.Flush()
		}
	}
}

func sendEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return sendRawEvent(w, flusher, sse.Event{Type: eventType, Data: payload})
}

func sendRawEvent(w http.ResponseWriter, flusher http.Flusher, event sse.Event) error {
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, event.Data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
