package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/lulius2021/alarmbriefing-server-go/internal/config"
	apperrors "github.com/lulius2021/alarmbriefing-server-go/internal/errors"
	"github.com/lulius2021/alarmbriefing-server-go/internal/metrics"
	"github.com/lulius2021/alarmbriefing-server-go/internal/model"
	"github.com/lulius2021/alarmbriefing-server-go/internal/util"
)

const BotTokenHeader = "X-Bot-Token"

type CredentialResolver interface {
	ResolveBot(ctx context.Context, secret string) (*model.BotIdentity, error)
}

type AuditRecorder interface {
	Record(ctx context.Context, entry model.AuditEntry) error
}

// BotGateway authenticates bot traffic and records one audit entry for every
// call made with a valid credential, whatever the handler does with it.
type BotGateway struct {
	credentials CredentialResolver
	audit       AuditRecorder
	metrics     *metrics.Metrics
}

func NewBotGateway(credentials CredentialResolver, audit AuditRecorder, m *metrics.Metrics) *BotGateway {
	return &BotGateway{credentials: credentials, audit: audit, metrics: m}
}

func (g *BotGateway) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bot, err := g.credentials.ResolveBot(r.Context(), r.Header.Get(BotTokenHeader))
		if err != nil {
			if apperrors.GetCode(err) == apperrors.ErrCodeDatabase {
				g.metrics.GatewayRequest("error")
			} else {
				g.metrics.GatewayRequest("unauthorized")
				log.Warn().
					Str("ip", r.RemoteAddr).
					Str("path", r.URL.Path).
					Str("requestId", middleware.GetReqID(r.Context())).
					Msg("bot request with invalid credential")
			}
			writeError(w, err)
			return
		}
		g.metrics.GatewayRequest("ok")

		body, readErr := bufferBody(r)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		defer func() {
			g.record(r, *bot, body, ww.Status())
		}()

		if readErr != nil {
			writeError(w, apperrors.ValidationError("Request body too large"))
			return
		}

		ctx := WithIdentity(r.Context(), *bot)
		next.ServeHTTP(ww, r.WithContext(ctx))
	})
}

func (g *BotGateway) record(r *http.Request, bot model.BotIdentity, body []byte, status int) {
	target := auditTarget(r, body)
	entry := model.AuditEntry{
		UserID:  bot.UserID,
		Actor:   model.ActorBot,
		Action:  fmt.Sprintf("%s %s", r.Method, r.URL.Path),
		Target:  &target,
		Details: util.Truncate(string(body), config.AuditDetailsMaxLen),
	}

	if err := g.audit.Record(r.Context(), entry); err != nil {
		log.Warn().Err(err).Str("pairingId", bot.PairingID).Int("status", status).Msg("gateway audit entry not persisted")
	}
}

// bufferBody reads the body so it can be both audited and handed on.
func bufferBody(r *http.Request) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}

	data, err := io.ReadAll(r.Body)
	r.Body = io.NopCloser(bytes.NewReader(data))
	return data, err
}

// auditTarget names what the call acted on: the route id, then the alarm id
// from the route or body, else "-".
func auditTarget(r *http.Request, body []byte) string {
	for _, key := range []string{"id", "alarmId"} {
		if v := chi.URLParam(r, key); v != "" {
			return v
		}
	}

	var payload struct {
		AlarmID string `json:"alarmId"`
	}
	if len(body) > 0 && json.Unmarshal(body, &payload) == nil && payload.AlarmID != "" {
		return payload.AlarmID
	}
	return "-"
}
