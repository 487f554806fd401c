package service

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"

	"github.com/lulius2021/alarmbriefing-server-go/internal/database"
	"github.com/lulius2021/alarmbriefing-server-go/internal/model"
	"github.com/lulius2021/alarmbriefing-server-go/internal/repository"
)

// fakeTx runs the callback without a real transaction.
type fakeTx struct {
	calls int
}

func (f *fakeTx) WithTx(ctx context.Context, fn database.TxFunc) error {
	f.calls++
	return fn(nil)
}

type mockPairingRepo struct {
	mock.Mock
}

func (m *mockPairingRepo) LockOwner(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *mockPairingRepo) RevokePendingByUser(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockPairingRepo) PendingCodeExists(ctx context.Context, code string) (bool, error) {
	args := m.Called(ctx, code)
	return args.Bool(0), args.Error(1)
}

func (m *mockPairingRepo) Create(ctx context.Context, params model.CreatePairingParams) (*model.Pairing, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Pairing), args.Error(1)
}

func (m *mockPairingRepo) Claim(ctx context.Context, params model.ClaimPairingParams) (*model.Pairing, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Pairing), args.Error(1)
}

func (m *mockPairingRepo) FindActiveByTokenHash(ctx context.Context, tokenHash string) (*model.Pairing, error) {
	args := m.Called(ctx, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Pairing), args.Error(1)
}

func (m *mockPairingRepo) ListByUser(ctx context.Context, userID string) ([]model.Pairing, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Pairing), args.Error(1)
}

func (m *mockPairingRepo) Revoke(ctx context.Context, userID, id string) (model.PairingStatus, bool, error) {
	args := m.Called(ctx, userID, id)
	return args.Get(0).(model.PairingStatus), args.Bool(1), args.Error(2)
}

func (m *mockPairingRepo) ExpireStale(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockPairingRepo) WithTx(tx *sqlx.Tx) repository.PairingRepository {
	return m
}

type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) Record(ctx context.Context, entry model.AuditEntry) error {
	return m.Called(ctx, entry).Error(0)
}

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserRepo) Create(ctx context.Context, params model.CreateUserParams) (*model.User, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserRepo) Delete(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

type mockAlarmRepo struct {
	mock.Mock
}

func (m *mockAlarmRepo) ListByUser(ctx context.Context, userID string) ([]model.Alarm, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Alarm), args.Error(1)
}

func (m *mockAlarmRepo) FindByID(ctx context.Context, userID, id string) (*model.Alarm, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Alarm), args.Error(1)
}

func (m *mockAlarmRepo) CreateWithinLimit(ctx context.Context, params model.CreateAlarmParams, limit int) (*model.Alarm, error) {
	args := m.Called(ctx, params, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Alarm), args.Error(1)
}

func (m *mockAlarmRepo) Update(ctx context.Context, userID, id string, params model.AlarmInput) (*model.Alarm, error) {
	args := m.Called(ctx, userID, id, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Alarm), args.Error(1)
}

func (m *mockAlarmRepo) Delete(ctx context.Context, userID, id string) (bool, error) {
	args := m.Called(ctx, userID, id)
	return args.Bool(0), args.Error(1)
}

type mockBriefingRepo struct {
	mock.Mock
}

func (m *mockBriefingRepo) Create(ctx context.Context, params model.CreateBriefingParams) (*model.Briefing, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Briefing), args.Error(1)
}

func (m *mockBriefingRepo) ListByUser(ctx context.Context, userID string, limit int) ([]model.Briefing, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Briefing), args.Error(1)
}

func (m *mockBriefingRepo) LatestForAlarm(ctx context.Context, userID, alarmID string) (*model.Briefing, error) {
	args := m.Called(ctx, userID, alarmID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Briefing), args.Error(1)
}

type mockSettingsRepo struct {
	mock.Mock
}

func (m *mockSettingsRepo) Get(ctx context.Context, userID string) (model.Settings, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(model.Settings), args.Error(1)
}

func (m *mockSettingsRepo) Merge(ctx context.Context, userID string, patch model.Settings) (model.Settings, error) {
	args := m.Called(ctx, userID, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(model.Settings), args.Error(1)
}

type mockAuditRepo struct {
	mock.Mock
}

func (m *mockAuditRepo) InsertBatch(ctx context.Context, entries []model.AuditEntry) (int64, error) {
	args := m.Called(ctx, entries)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockAuditRepo) ListByUser(ctx context.Context, userID string, limit int) ([]model.AuditEntry, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.AuditEntry), args.Error(1)
}

func (m *mockAuditRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}
