package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/lulius2021/alarmbriefing-server-go/internal/model"
	"github.com/lulius2021/alarmbriefing-server-go/internal/service"
)

type mockTokenValidator struct {
	validateFunc func(token string) (string, error)
}

func (m *mockTokenValidator) ValidateToken(token string) (string, error) {
	return m.validateFunc(token)
}

type mockResolver struct {
	resolveFunc func(ctx context.Context, secret string) (*model.BotIdentity, error)
	calls       int
}

func (m *mockResolver) ResolveBot(ctx context.Context, secret string) (*model.BotIdentity, error) {
	m.calls++
	return m.resolveFunc(ctx, secret)
}

type recordingAudit struct {
	mu      sync.Mutex
	entries []model.AuditEntry
	err     error
}

func (r *recordingAudit) Record(ctx context.Context, entry model.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return r.err
}

type mockLimiter struct {
	allowed bool
	keys    []string
}

func (m *mockLimiter) CheckLimit(ctx context.Context, key string, limit int, window time.Duration) service.RateLimitResult {
	m.keys = append(m.keys, key)
	remaining := 0
	if m.allowed {
		remaining = limit - 1
	}
	return service.RateLimitResult{Allowed: m.allowed, Remaining: remaining, ResetAt: time.Now().Add(window)}
}
