package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/siteassist/insight/internal/clock"
	"github.com/siteassist/insight/internal/config"
	"github.com/siteassist/insight/internal/eventlog/domain"
	licensedomain "github.com/siteassist/insight/internal/license/domain"
	sessionservice "github.com/siteassist/insight/internal/session/service"
	"github.com/siteassist/insight/pkg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// -- Mocks --

type licenseMock struct {
	mock.Mock
}

func (m *licenseMock) Create(ctx context.Context, req licensedomain.CreateRequest) (*licensedomain.License, error) {
	args := m.Called(ctx, req)
	if lic := args.Get(0); lic != nil {
		return lic.(*licensedomain.License), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *licenseMock) GetByKey(ctx context.Context, licenseKey string) (*licensedomain.License, error) {
	args := m.Called(ctx, licenseKey)
	if lic := args.Get(0); lic != nil {
		return lic.(*licensedomain.License), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *licenseMock) GetBySiteKey(ctx context.Context, siteKey string) (*licensedomain.License, error) {
	args := m.Called(ctx, siteKey)
	if lic := args.Get(0); lic != nil {
		return lic.(*licensedomain.License), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *licenseMock) MarkUsed(ctx context.Context, licenseKey string, at time.Time) error {
	args := m.Called(ctx, licenseKey, at)
	return args.Error(0)
}

// -- Setup --

var testNow = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

type fixture struct {
	db       *gorm.DB
	clk      *clock.FakeClock
	licenses *licenseMock
	svc      domain.Service
}

func newFixture(t *testing.T, name string, cfg config.Config) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.ConversationLog{}))

	node, err := snowflake.NewNode(7)
	require.NoError(t, err)

	clk := clock.NewFakeClock(testNow)
	licenses := new(licenseMock)
	sessions := sessionservice.New(sessionservice.Params{
		DB:       db,
		Log:      zap.NewNop(),
		Clock:    clk,
		Licenses: repository.ProvideStore[licensedomain.License](db),
	})

	svc := New(Params{
		Log:      zap.NewNop(),
		Clock:    clk,
		GenID:    node,
		Cfg:      cfg,
		Repo:     repository.ProvideStore[domain.ConversationLog](db),
		Licenses: licenses,
		Sessions: sessions,
	})
	return &fixture{db: db, clk: clk, licenses: licenses, svc: svc}
}

// -- Tests --

func TestIngest_MissingSessionID(t *testing.T) {
	f := newFixture(t, "eventlog_missing_session", config.Config{})

	_, err := f.svc.Ingest(context.Background(), domain.IngestRequest{SessionID: "   "})
	assert.ErrorIs(t, err, domain.ErrMissingSessionID)
}

func TestIngest_InvalidTimestamp(t *testing.T) {
	f := newFixture(t, "eventlog_bad_ts", config.Config{})

	_, err := f.svc.Ingest(context.Background(), domain.IngestRequest{
		SessionID: "sess-1",
		Timestamp: "yesterday at noon",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTimestamp)
}

func TestIngest_DefaultsTimestampToNow(t *testing.T) {
	f := newFixture(t, "eventlog_default_ts", config.Config{})

	resp, err := f.svc.Ingest(context.Background(), domain.IngestRequest{
		SessionID: "sess-1",
		Content:   "hello",
		Role:      domain.RoleUser,
	})
	require.NoError(t, err)
	require.True(t, resp.Success)

	var row domain.ConversationLog
	require.NoError(t, f.db.First(&row).Error)
	assert.Equal(t, testNow.Unix(), row.Timestamp.Unix())
}

func TestIngest_NormalizesLegacyShape(t *testing.T) {
	f := newFixture(t, "eventlog_legacy", config.Config{})

	resp, err := f.svc.Ingest(context.Background(), domain.IngestRequest{
		SessionID:       "sess-legacy",
		CustomerMessage: "where is my order?",
		Timestamp:       "2026-03-15T09:00:00Z",
	})
	require.NoError(t, err)
	require.True(t, resp.Success)

	var row domain.ConversationLog
	require.NoError(t, f.db.First(&row).Error)
	require.NotNil(t, row.Role)
	assert.Equal(t, domain.RoleUser, *row.Role)
	require.NotNil(t, row.Content)
	assert.Equal(t, "where is my order?", *row.Content)
	require.NotNil(t, row.Domain)
	assert.Equal(t, "Unknown", *row.Domain)
}

func TestIngest_MirrorsContentIntoLegacyColumns(t *testing.T) {
	f := newFixture(t, "eventlog_mirror", config.Config{})

	_, err := f.svc.Ingest(context.Background(), domain.IngestRequest{
		SessionID: "sess-mirror",
		Role:      domain.RoleAssistant,
		Content:   "your order ships tomorrow",
	})
	require.NoError(t, err)

	var row domain.ConversationLog
	require.NoError(t, f.db.First(&row).Error)
	require.NotNil(t, row.ChatbotResponse)
	assert.Equal(t, "your order ships tomorrow", *row.ChatbotResponse)
	assert.Nil(t, row.CustomerMessage)
}

func TestIngest_PermissiveUnknownLicense(t *testing.T) {
	f := newFixture(t, "eventlog_permissive", config.Config{IngestStrictLicense: false})
	f.licenses.On("GetByKey", mock.Anything, "GHOST").Return(nil, nil)
	f.licenses.On("MarkUsed", mock.Anything, "GHOST", mock.Anything).Return(nil)

	resp, err := f.svc.Ingest(context.Background(), domain.IngestRequest{
		SessionID:  "sess-ghost",
		LicenseKey: "GHOST",
		Content:    "hi",
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
}

func TestIngest_StrictUnknownLicense(t *testing.T) {
	f := newFixture(t, "eventlog_strict_unknown", config.Config{IngestStrictLicense: true})
	f.licenses.On("GetByKey", mock.Anything, "GHOST").Return(nil, nil)

	_, err := f.svc.Ingest(context.Background(), domain.IngestRequest{
		SessionID:  "sess-ghost",
		LicenseKey: "GHOST",
	})
	assert.ErrorIs(t, err, domain.ErrUnknownLicense)
}

func TestIngest_StrictInactiveLicense(t *testing.T) {
	f := newFixture(t, "eventlog_strict_inactive", config.Config{IngestStrictLicense: true})
	f.licenses.On("GetByKey", mock.Anything, "EXPIRED").Return(&licensedomain.License{
		LicenseKey: "EXPIRED",
		Status:     licensedomain.StatusInactive,
	}, nil)

	_, err := f.svc.Ingest(context.Background(), domain.IngestRequest{
		SessionID:  "sess-expired",
		LicenseKey: "EXPIRED",
	})
	assert.ErrorIs(t, err, domain.ErrLicenseInactive)
}

func TestIngest_UsesLicenseDomainFallback(t *testing.T) {
	f := newFixture(t, "eventlog_lic_domain", config.Config{})
	f.licenses.On("GetByKey", mock.Anything, "LIC-1").Return(&licensedomain.License{
		LicenseKey: "LIC-1",
		Status:     licensedomain.StatusActive,
		Domain:     "shop.example.com",
	}, nil)
	f.licenses.On("MarkUsed", mock.Anything, "LIC-1", mock.Anything).Return(nil)

	_, err := f.svc.Ingest(context.Background(), domain.IngestRequest{
		SessionID:  "sess-1",
		LicenseKey: "LIC-1",
		Content:    "hi",
		Role:       domain.RoleUser,
	})
	require.NoError(t, err)

	var row domain.ConversationLog
	require.NoError(t, f.db.First(&row).Error)
	require.NotNil(t, row.Domain)
	assert.Equal(t, "shop.example.com", *row.Domain)
}

func TestIngest_DuplicateTurn(t *testing.T) {
	f := newFixture(t, "eventlog_duplicate", config.Config{})

	req := domain.IngestRequest{
		SessionID: "sess-dup",
		Role:      domain.RoleUser,
		Content:   "hi",
		Timestamp: "2026-03-15T09:30:00Z",
	}

	_, err := f.svc.Ingest(context.Background(), req)
	require.NoError(t, err)

	_, err = f.svc.Ingest(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrDuplicateEntry)
}

func TestIngest_MarksLicenseUsedOncePerSession(t *testing.T) {
	f := newFixture(t, "eventlog_markused", config.Config{})
	lic := &licensedomain.License{
		LicenseKey: "LIC-1",
		Status:     licensedomain.StatusActive,
		Domain:     "shop.example.com",
	}
	f.licenses.On("GetByKey", mock.Anything, "LIC-1").Return(lic, nil)
	f.licenses.On("MarkUsed", mock.Anything, "LIC-1", mock.Anything).Return(nil)

	first := domain.IngestRequest{
		SessionID:  "sess-1",
		LicenseKey: "LIC-1",
		Role:       domain.RoleUser,
		Content:    "hi",
		Timestamp:  "2026-03-15T09:45:00Z",
	}
	_, err := f.svc.Ingest(context.Background(), first)
	require.NoError(t, err)

	second := first
	second.Role = domain.RoleAssistant
	second.Content = "hello"
	second.Timestamp = "2026-03-15T09:45:05Z"
	_, err = f.svc.Ingest(context.Background(), second)
	require.NoError(t, err)

	f.licenses.AssertNumberOfCalls(t, "MarkUsed", 1)
}

func TestIngest_ReturnsSessionSummary(t *testing.T) {
	f := newFixture(t, "eventlog_summary", config.Config{})

	resp, err := f.svc.Ingest(context.Background(), domain.IngestRequest{
		SessionID: "sess-sum",
		Role:      domain.RoleUser,
		Content:   "hi",
		Domain:    "shop.example.com",
	})
	require.NoError(t, err)
	require.NotNil(t, resp.Session)
	assert.Equal(t, "sess-sum", resp.Session.SessionID)
	assert.Equal(t, 1, resp.Session.MessageCount)
	assert.Equal(t, "shop.example.com", resp.Session.Domain)
}
