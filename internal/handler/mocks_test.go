package handler

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/lulius2021/alarmbriefing-server-go/internal/model"
	"github.com/lulius2021/alarmbriefing-server-go/internal/service"
	"github.com/lulius2021/alarmbriefing-server-go/internal/sse"
)

type mockPairingManager struct {
	mock.Mock
}

func (m *mockPairingManager) RequestCode(ctx context.Context, ownerID string) (*service.PairingCode, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.PairingCode), args.Error(1)
}

func (m *mockPairingManager) Claim(ctx context.Context, code, botName string) (*service.ClaimResult, error) {
	args := m.Called(ctx, code, botName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ClaimResult), args.Error(1)
}

func (m *mockPairingManager) List(ctx context.Context, ownerID string) ([]model.Pairing, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).([]model.Pairing), args.Error(1)
}

func (m *mockPairingManager) Revoke(ctx context.Context, ownerID, pairingID string) error {
	args := m.Called(ctx, ownerID, pairingID)
	return args.Error(0)
}

type mockAuthenticator struct {
	mock.Mock
}

func (m *mockAuthenticator) Register(ctx context.Context, email, password, name string) (*service.AuthResult, error) {
	args := m.Called(ctx, email, password, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AuthResult), args.Error(1)
}

func (m *mockAuthenticator) Login(ctx context.Context, email, password string) (*service.AuthResult, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AuthResult), args.Error(1)
}

func (m *mockAuthenticator) Me(ctx context.Context, userID string) (*model.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockAuthenticator) DeleteAccount(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type mockAuditLister struct {
	mock.Mock
}

func (m *mockAuditLister) List(ctx context.Context, ownerID string, limit int) ([]model.AuditEntry, error) {
	args := m.Called(ctx, ownerID, limit)
	return args.Get(0).([]model.AuditEntry), args.Error(1)
}

// fakeSubscriber hands out a client preloaded with events and closes it once
// they have all been taken.
type fakeSubscriber struct {
	events       []sse.Event
	subscribed   string
	unsubscribed bool
}

func (f *fakeSubscriber) Subscribe(userID string) *sse.Client {
	f.subscribed = userID
	client := &sse.Client{
		UserID: userID,
		Events: make(chan sse.Event, len(f.events)),
		Done:   make(chan struct{}),
	}
	for _, e := range f.events {
		client.Events <- e
	}
	go func() {
		for len(client.Events) > 0 {
			time.Sleep(time.Millisecond)
		}
		time.Sleep(10 * time.Millisecond)
		close(client.Done)
	}()
	return client
}

func (f *fakeSubscriber) Unsubscribe(client *sse.Client) {
	f.unsubscribed = true
}

type mockAlarmManager struct {
	mock.Mock
}

func (m *mockAlarmManager) List(ctx context.Context, identity model.Identity) ([]model.Alarm, error) {
	args := m.Called(ctx, identity)
	return args.Get(0).([]model.Alarm), args.Error(1)
}

func (m *mockAlarmManager) Get(ctx context.Context, identity model.Identity, alarmID string) (*model.Alarm, error) {
	args := m.Called(ctx, identity, alarmID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Alarm), args.Error(1)
}

func (m *mockAlarmManager) Create(ctx context.Context, identity model.Identity, in model.AlarmInput) (*model.Alarm, error) {
	args := m.Called(ctx, identity, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Alarm), args.Error(1)
}

func (m *mockAlarmManager) Update(ctx context.Context, identity model.Identity, alarmID string, in model.AlarmInput) (*model.Alarm, error) {
	args := m.Called(ctx, identity, alarmID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Alarm), args.Error(1)
}

func (m *mockAlarmManager) Delete(ctx context.Context, identity model.Identity, alarmID string) error {
	args := m.Called(ctx, identity, alarmID)
	return args.Error(0)
}

type mockBriefingManager struct {
	mock.Mock
}

func (m *mockBriefingManager) Create(ctx context.Context, identity model.Identity, in service.BriefingInput) (*model.Briefing, error) {
	args := m.Called(ctx, identity, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Briefing), args.Error(1)
}

func (m *mockBriefingManager) List(ctx context.Context, identity model.Identity) ([]model.Briefing, error) {
	args := m.Called(ctx, identity)
	return args.Get(0).([]model.Briefing), args.Error(1)
}

func (m *mockBriefingManager) Latest(ctx context.Context, identity model.Identity, alarmID string) (*model.Briefing, error) {
	args := m.Called(ctx, identity, alarmID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Briefing), args.Error(1)
}

type mockSettingsManager struct {
	mock.Mock
}

func (m *mockSettingsManager) Get(ctx context.Context, identity model.Identity) (model.Settings, error) {
	args := m.Called(ctx, identity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(model.Settings), args.Error(1)
}

func (m *mockSettingsManager) Update(ctx context.Context, identity model.Identity, patch model.Settings) (model.Settings, error) {
	args := m.Called(ctx, identity, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(model.Settings), args.Error(1)
}
