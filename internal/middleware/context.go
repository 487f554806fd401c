package middleware

import (
	"context"

	"github.com/lulius2021/alarmbriefing-server-go/internal/model"
)

type contextKey string

const IdentityContextKey contextKey = "identity"

func WithIdentity(ctx context.Context, identity model.Identity) context.Context {
	return context.WithValue(ctx, IdentityContextKey, identity)
}

// GetIdentity returns the caller resolved by UserAuth or BotGateway, or nil.
func GetIdentity(ctx context.Context) model.Identity {
	if identity, ok := ctx.Value(IdentityContextKey).(model.Identity); ok {
		return identity
	}
	return nil
}
