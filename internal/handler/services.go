package handler

import (
	"context"

	"github.com/lulius2021/alarmbriefing-server-go/internal/model"
	"github.com/lulius2021/alarmbriefing-server-go/internal/service"
	"github.com/lulius2021/alarmbriefing-server-go/internal/sse"
)

type PairingManager interface {
	RequestCode(ctx context.Context, ownerID string) (*service.PairingCode, error)
	Claim(ctx context.Context, code, botName string) (*service.ClaimResult, error)
	List(ctx context.Context, ownerID string) ([]model.Pairing, error)
	Revoke(ctx context.Context, ownerID, pairingID string) error
}

type Authenticator interface {
	Register(ctx context.Context, email, password, name string) (*service.AuthResult, error)
	Login(ctx context.Context, email, password string) (*service.AuthResult, error)
	Me(ctx context.Context, userID string) (*model.User, error)
	DeleteAccount(ctx context.Context, userID string) error
}

type AuditLister interface {
	List(ctx context.Context, ownerID string, limit int) ([]model.AuditEntry, error)
}

type AuditSubscriber interface {
	Subscribe(userID string) *sse.Client
	Unsubscribe(client *sse.Client)
}

type AlarmManager interface {
	List(ctx context.Context, identity model.Identity) ([]model.Alarm, error)
	Get(ctx context.Context, identity model.Identity, alarmID string) (*model.Alarm, error)
	Create(ctx context.Context, identity model.Identity, in model.AlarmInput) (*model.Alarm, error)
	Update(ctx context.Context, identity model.Identity, alarmID string, in model.AlarmInput) (*model.Alarm, error)
	Delete(ctx context.Context, identity model.Identity, alarmID string) error
}

type BriefingManager interface {
	Create(ctx context.Context, identity model.Identity, in service.BriefingInput) (*model.Briefing, error)
	List(ctx context.Context, identity model.Identity) ([]model.Briefing, error)
	Latest(ctx context.Context, identity model.Identity, alarmID string) (*model.Briefing, error)
}

type SettingsManager interface {
	Get(ctx context.Context, identity model.Identity) (model.Settings, error)
	Update(ctx context.Context, identity model.Identity, patch model.Settings) (model.Settings, error)
}
