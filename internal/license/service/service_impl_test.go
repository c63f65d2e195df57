package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/siteassist/insight/internal/license/domain"
	"github.com/siteassist/insight/pkg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newFixture(t *testing.T, name string) (*gorm.DB, domain.Service) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.License{}))

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.ProvideStore[domain.License](db),
	})
	return db, svc
}

func TestCreateAndGetByKey(t *testing.T) {
	_, svc := newFixture(t, "license_create")

	lic, err := svc.Create(context.Background(), domain.CreateRequest{
		LicenseKey:  "  LIC-1  ",
		Email:       "owner@example.com",
		ProductType: "chatbot",
		Plan:        "pro",
		Domain:      "shop.example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "LIC-1", lic.LicenseKey)
	assert.Equal(t, domain.StatusActive, lic.Status)

	found, err := svc.GetByKey(context.Background(), "LIC-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "shop.example.com", found.Domain)
	assert.True(t, found.Usable())

	missing, err := svc.GetByKey(context.Background(), "LIC-MISSING")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCreate_EmptyKey(t *testing.T) {
	_, svc := newFixture(t, "license_empty")

	_, err := svc.Create(context.Background(), domain.CreateRequest{LicenseKey: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidLicenseKey)
}

func TestGetBySiteKey(t *testing.T) {
	db, svc := newFixture(t, "license_sitekey")

	siteKey := "sk-123"
	require.NoError(t, db.Create(&domain.License{
		ID:         1,
		LicenseKey: "LIC-1",
		Status:     domain.StatusActive,
		SiteKey:    &siteKey,
		CreatedAt:  time.Now().UTC(),
	}).Error)

	lic, err := svc.GetBySiteKey(context.Background(), "sk-123")
	require.NoError(t, err)
	require.NotNil(t, lic)
	assert.Equal(t, "LIC-1", lic.LicenseKey)

	missing, err := svc.GetBySiteKey(context.Background(), "sk-nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMarkUsed(t *testing.T) {
	db, svc := newFixture(t, "license_markused")

	require.NoError(t, db.Create(&domain.License{
		ID:         1,
		LicenseKey: "LIC-1",
		Status:     domain.StatusActive,
		CreatedAt:  time.Now().UTC(),
	}).Error)

	at := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	require.NoError(t, svc.MarkUsed(context.Background(), "LIC-1", at))

	var lic domain.License
	require.NoError(t, db.First(&lic).Error)
	require.NotNil(t, lic.UsedAt)
	assert.Equal(t, at.Unix(), lic.UsedAt.Unix())
}
