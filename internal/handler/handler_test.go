package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/lulius2021/alarmbriefing-server-go/internal/errors"
	"github.com/lulius2021/alarmbriefing-server-go/internal/middleware"
	"github.com/lulius2021/alarmbriefing-server-go/internal/model"
	"github.com/lulius2021/alarmbriefing-server-go/internal/service"
	"github.com/lulius2021/alarmbriefing-server-go/internal/sse"
)

func withIdentity(req *http.Request, identity model.Identity) *http.Request {
	return req.WithContext(middleware.WithIdentity(req.Context(), identity))
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestPairingHandler_RequestCode(t *testing.T) {
	pairings := &mockPairingManager{}
	pairings.On("RequestCode", mock.Anything, "user-1").Return(&service.PairingCode{
		Code:      "042137",
		ExpiresIn: 600,
		Message:   `Give this code to your bot: "pair 042137"`,
	}, nil)
	h := NewPairingHandler(pairings)

	req := withIdentity(httptest.NewRequest(http.MethodPost, "/api/pairing/code", nil), owner)
	rec := httptest.NewRecorder()
	h.RequestCode(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "042137", body["code"])
	assert.Equal(t, float64(600), body["expiresIn"])
}

func TestPairingHandler_Claim(t *testing.T) {
	t.Run("invalid body", func(t *testing.T) {
		h := NewPairingHandler(&mockPairingManager{})
		rec := httptest.NewRecorder()
		h.Claim(rec, httptest.NewRequest(http.MethodPost, "/api/pairing/claim", strings.NewReader("{")))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed code", func(t *testing.T) {
		pairings := &mockPairingManager{}
		pairings.On("Claim", mock.Anything, "12ab56", "").Return(nil, apperrors.MalformedPairingCode())
		h := NewPairingHandler(pairings)

		rec := httptest.NewRecorder()
		h.Claim(rec, httptest.NewRequest(http.MethodPost, "/api/pairing/claim", strings.NewReader(`{"code":"12ab56"}`)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown or expired code", func(t *testing.T) {
		pairings := &mockPairingManager{}
		pairings.On("Claim", mock.Anything, "123456", "Jarvis").Return(nil, apperrors.InvalidPairingCode())
		h := NewPairingHandler(pairings)

		rec := httptest.NewRecorder()
		h.Claim(rec, httptest.NewRequest(http.MethodPost, "/api/pairing/claim", strings.NewReader(`{"code":"123456","botName":"Jarvis"}`)))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "INVALID_PAIRING_CODE")
	})
}

func TestPairingHandler_List(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	paired := now.Add(-time.Hour)

	pairings := &mockPairingManager{}
	pairings.On("List", mock.Anything, "user-1").Return([]model.Pairing{
		{
			ID:        "p-active",
			BotName:   "Jarvis",
			Status:    model.PairingStatusActive,
			Scopes:    pq.StringArray{"alarms:read"},
			PairedAt:  &paired,
			ExpiresAt: now.Add(-50 * time.Minute),
			CreatedAt: now.Add(-2 * time.Hour),
		},
		{
			ID:        "p-stale",
			BotName:   "ClawdBot",
			Status:    model.PairingStatusPending,
			ExpiresAt: now.Add(-time.Minute),
			CreatedAt: now.Add(-11 * time.Minute),
		},
	}, nil)
	h := NewPairingHandler(pairings)
	h.now = func() time.Time { return now }

	rec := httptest.NewRecorder()
	h.List(rec, withIdentity(httptest.NewRequest(http.MethodGet, "/api/pairing", nil), owner))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Pairings []map[string]any `json:"pairings"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Pairings, 2)
	assert.Equal(t, "active", body.Pairings[0]["status"])
	assert.Equal(t, paired.Format(time.RFC3339), body.Pairings[0]["pairedAt"])
	assert.Equal(t, "expired", body.Pairings[1]["status"])
	assert.Nil(t, body.Pairings[1]["pairedAt"])
	assert.NotContains(t, rec.Body.String(), "bot_token_hash")
}

func TestPairingHandler_Revoke(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		pairings := &mockPairingManager{}
		pairings.On("Revoke", mock.Anything, "user-1", "p-1").Return(nil)
		h := NewPairingHandler(pairings)

		req := withURLParam(httptest.NewRequest(http.MethodDelete, "/api/pairing/p-1", nil), "id", "p-1")
		rec := httptest.NewRecorder()
		h.Revoke(rec, withIdentity(req, owner))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	})

	t.Run("foreign pairing", func(t *testing.T) {
		pairings := &mockPairingManager{}
		pairings.On("Revoke", mock.Anything, "user-1", "p-2").Return(apperrors.NotFound("Pairing"))
		h := NewPairingHandler(pairings)

		req := withURLParam(httptest.NewRequest(http.MethodDelete, "/api/pairing/p-2", nil), "id", "p-2")
		rec := httptest.NewRecorder()
		h.Revoke(rec, withIdentity(req, owner))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestAuthHandler(t *testing.T) {
	user := &model.User{ID: "user-1", Email: "ada@example.com", PasswordHash: "$2a$10$secret"}

	t.Run("register", func(t *testing.T) {
		auth := &mockAuthenticator{}
		auth.On("Register", mock.Anything, "ada@example.com", "correct horse", "Ada").
			Return(&service.AuthResult{Token: "jwt", User: user}, nil)
		h := NewAuthHandler(auth)

		rec := httptest.NewRecorder()
		h.Register(rec, httptest.NewRequest(http.MethodPost, "/api/auth/register",
			strings.NewReader(`{"email":"ada@example.com","password":"correct horse","name":"Ada"}`)))

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Contains(t, rec.Body.String(), `"token":"jwt"`)
		assert.NotContains(t, rec.Body.String(), "secret")
	})

	t.Run("login failure", func(t *testing.T) {
		auth := &mockAuthenticator{}
		auth.On("Login", mock.Anything, "ada@example.com", "wrong").
			Return(nil, apperrors.Unauthorized("Invalid email or password"))
		h := NewAuthHandler(auth)

		rec := httptest.NewRecorder()
		h.Login(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login",
			strings.NewReader(`{"email":"ada@example.com","password":"wrong"}`)))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("me", func(t *testing.T) {
		auth := &mockAuthenticator{}
		auth.On("Me", mock.Anything, "user-1").Return(user, nil)
		h := NewAuthHandler(auth)

		rec := httptest.NewRecorder()
		h.Me(rec, withIdentity(httptest.NewRequest(http.MethodGet, "/api/auth/me", nil), owner))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"email":"ada@example.com"`)
	})

	t.Run("delete account", func(t *testing.T) {
		auth := &mockAuthenticator{}
		auth.On("DeleteAccount", mock.Anything, "user-1").Return(nil)
		h := NewAuthHandler(auth)

		rec := httptest.NewRecorder()
		h.DeleteAccount(rec, withIdentity(httptest.NewRequest(http.MethodDelete, "/api/auth/account", nil), owner))

		assert.Equal(t, http.StatusOK, rec.Code)
		auth.AssertExpectations(t)
	})

	t.Run("me without identity", func(t *testing.T) {
		h := NewAuthHandler(&mockAuthenticator{})
		rec := httptest.NewRecorder()
		h.Me(rec, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestAuditHandler_List(t *testing.T) {
	tests := []struct {
		name  string
		query string
		limit int
	}{
		{"default", "", 50},
		{"explicit", "?limit=10", 10},
		{"garbage", "?limit=abc", 50},
		{"passed through for clamping", "?limit=5000", 5000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lister := &mockAuditLister{}
			lister.On("List", mock.Anything, "user-1", tt.limit).Return([]model.AuditEntry{}, nil)
			h := NewAuditHandler(lister, &fakeSubscriber{})

			rec := httptest.NewRecorder()
			h.List(rec, withIdentity(httptest.NewRequest(http.MethodGet, "/api/audit"+tt.query, nil), owner))

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, `{"entries":[]}`, rec.Body.String())
			lister.AssertExpectations(t)
		})
	}
}

func TestAuditHandler_Stream(t *testing.T) {
	target := "alarm-1"
	event, err := sse.AuditEvent(model.AuditEntry{
		ID:     "e1",
		UserID: "user-1",
		Actor:  model.ActorBot,
		Action: "DELETE /api/bot/alarms/alarm-1",
		Target: &target,
	})
	require.NoError(t, err)

	sub := &fakeSubscriber{events: []sse.Event{event}}
	h := NewAuditHandler(&mockAuditLister{}, sub)

	rec := httptest.NewRecorder()
	h.Stream(rec, withIdentity(httptest.NewRequest(http.MethodGet, "/api/audit/stream", nil), owner))

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "user-1", sub.subscribed)
	assert.True(t, sub.unsubscribed)

	body := rec.Body.String()
	assert.Contains(t, body, "event: connected\n")
	assert.Contains(t, body, "event: audit\ndata: ")
	assert.Contains(t, body, `"action":"DELETE /api/bot/alarms/alarm-1"`)
	assert.Less(t, strings.Index(body, "connected"), strings.Index(body, "event: audit"))
}

func TestAlarmHandler(t *testing.T) {
	t.Run("list", func(t *testing.T) {
		alarms := &mockAlarmManager{}
		alarms.On("List", mock.Anything, owner).Return([]model.Alarm{{ID: "a1"}}, nil)
		h := NewAlarmHandler(alarms)

		rec := httptest.NewRecorder()
		h.List(rec, withIdentity(httptest.NewRequest(http.MethodGet, "/api/alarms", nil), owner))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"id":"a1"`)
	})

	t.Run("update forwards decoded input", func(t *testing.T) {
		name := "Run"
		alarms := &mockAlarmManager{}
		alarms.On("Update", mock.Anything, bot, "a1", model.AlarmInput{Name: &name}).
			Return(nil, apperrors.Forbidden("Cannot modify user-created alarm"))
		h := NewAlarmHandler(alarms)

		req := withURLParam(httptest.NewRequest(http.MethodPatch, "/api/bot/alarms/a1", strings.NewReader(`{"name":"Run"}`)), "id", "a1")
		rec := httptest.NewRecorder()
		h.Update(rec, withIdentity(req, bot))

		assert.Equal(t, http.StatusForbidden, rec.Code)
		alarms.AssertExpectations(t)
	})

	t.Run("create over cap", func(t *testing.T) {
		alarms := &mockAlarmManager{}
		alarms.On("Create", mock.Anything, owner, model.AlarmInput{}).
			Return(nil, apperrors.LimitExceeded("Maximum 20 alarms allowed"))
		h := NewAlarmHandler(alarms)

		rec := httptest.NewRecorder()
		h.Create(rec, withIdentity(httptest.NewRequest(http.MethodPost, "/api/alarms", strings.NewReader(`{}`)), owner))

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	})

	t.Run("delete", func(t *testing.T) {
		alarms := &mockAlarmManager{}
		alarms.On("Delete", mock.Anything, owner, "a1").Return(nil)
		h := NewAlarmHandler(alarms)

		req := withURLParam(httptest.NewRequest(http.MethodDelete, "/api/alarms/a1", nil), "id", "a1")
		rec := httptest.NewRecorder()
		h.Delete(rec, withIdentity(req, owner))

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestBriefingHandler_Create(t *testing.T) {
	text := "Good morning"
	briefings := &mockBriefingManager{}
	briefings.On("Create", mock.Anything, bot, service.BriefingInput{
		AlarmID:     "a1",
		Modules:     []string{"weather"},
		ContentText: &text,
	}).Return(&model.Briefing{ID: "b1", AlarmID: "a1"}, nil)
	h := NewBriefingHandler(briefings)

	body := `{"alarmId":"a1","modules":["weather"],"contentText":"Good morning"}`
	rec := httptest.NewRecorder()
	h.Create(rec, withIdentity(httptest.NewRequest(http.MethodPost, "/api/bot/briefings", strings.NewReader(body)), bot))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"alarmId":"a1"`)
}

func TestSettingsHandler(t *testing.T) {
	t.Run("get", func(t *testing.T) {
		settings := &mockSettingsManager{}
		settings.On("Get", mock.Anything, bot).Return(model.DefaultSettings(), nil)
		h := NewSettingsHandler(settings)

		rec := httptest.NewRecorder()
		h.Get(rec, withIdentity(httptest.NewRequest(http.MethodGet, "/api/bot/settings", nil), bot))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"voice":"alloy"`)
	})

	t.Run("update rejects non-object", func(t *testing.T) {
		h := NewSettingsHandler(&mockSettingsManager{})

		rec := httptest.NewRecorder()
		h.Update(rec, withIdentity(httptest.NewRequest(http.MethodPatch, "/api/settings", strings.NewReader(`[1,2]`)), owner))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
