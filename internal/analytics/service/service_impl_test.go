package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/siteassist/insight/internal/analytics/domain"
	"github.com/siteassist/insight/internal/clock"
	"github.com/siteassist/insight/internal/config"
	eventlogdomain "github.com/siteassist/insight/internal/eventlog/domain"
	licensedomain "github.com/siteassist/insight/internal/license/domain"
	"github.com/siteassist/insight/internal/tenancy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	testNow     = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	testNode, _ = snowflake.NewNode(8)
	master      = tenancy.Principal{IsMaster: true, LicenseKey: "MASTER"}
)

func newFixture(t *testing.T, name string) (*gorm.DB, domain.Service) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&eventlogdomain.ConversationLog{}, &licensedomain.License{}))

	svc := New(Params{
		DB:      db,
		Log:     zap.NewNop(),
		Clock:   clock.NewFakeClock(testNow),
		Pricing: &config.PricingHolder{},
	})
	return db, svc
}

func seedLicense(t *testing.T, db *gorm.DB, lic licensedomain.License) {
	t.Helper()
	lic.ID = testNode.Generate()
	if lic.Status == "" {
		lic.Status = licensedomain.StatusActive
	}
	if lic.CreatedAt.IsZero() {
		lic.CreatedAt = testNow.Add(-90 * 24 * time.Hour)
	}
	require.NoError(t, db.Create(&lic).Error)
}

func seedEvent(t *testing.T, db *gorm.DB, licenseKey, sessionID, role string, ts time.Time) {
	t.Helper()
	dom := "shop.example.com"
	row := eventlogdomain.ConversationLog{
		ID:         testNode.Generate(),
		SessionID:  &sessionID,
		LicenseKey: &licenseKey,
		Domain:     &dom,
		Role:       &role,
		Timestamp:  ts,
		CreatedAt:  ts,
	}
	require.NoError(t, db.Create(&row).Error)
}

func TestStats_Master(t *testing.T) {
	db, svc := newFixture(t, "analytics_stats")

	seedLicense(t, db, licensedomain.License{
		LicenseKey:         "LIC-1",
		Plan:               "pro",
		SubscriptionStatus: licensedomain.SubscriptionActive,
	})
	seedLicense(t, db, licensedomain.License{
		LicenseKey:         "LIC-2",
		Plan:               "starter",
		SubscriptionStatus: "cancelled",
	})

	// Two sessions this month, none the month before.
	seedEvent(t, db, "LIC-1", "sess-1", "user", testNow.Add(-24*time.Hour))
	seedEvent(t, db, "LIC-1", "sess-1", "assistant", testNow.Add(-24*time.Hour).Add(time.Minute))
	seedEvent(t, db, "LIC-1", "sess-2", "user", testNow.Add(-48*time.Hour))

	resp, err := svc.Stats(context.Background(), master)
	require.NoError(t, err)

	assert.Equal(t, 2, resp.TotalLicenses)
	assert.Equal(t, 2, resp.ActiveConversations)
	// No prior-month baseline but current activity reads as 100% growth.
	assert.Equal(t, 100, resp.MonthlyGrowth)
	// Only the active subscription counts; pro is 99.
	assert.Equal(t, 99, resp.Revenue)
}

func TestStats_TenantCountsOwnLicenseOnly(t *testing.T) {
	db, svc := newFixture(t, "analytics_stats_tenant")

	seedLicense(t, db, licensedomain.License{
		LicenseKey:         "LIC-1",
		Plan:               "basic",
		SubscriptionStatus: licensedomain.SubscriptionActive,
	})
	seedLicense(t, db, licensedomain.License{
		LicenseKey:         "LIC-2",
		Plan:               "enterprise",
		SubscriptionStatus: licensedomain.SubscriptionActive,
	})
	seedEvent(t, db, "LIC-2", "sess-other", "user", testNow.Add(-time.Hour))

	tenant := tenancy.Principal{LicenseKey: "LIC-1", Domain: "shop.example.com"}
	resp, err := svc.Stats(context.Background(), tenant)
	require.NoError(t, err)

	assert.Equal(t, 1, resp.TotalLicenses)
	assert.Equal(t, 0, resp.ActiveConversations)
	assert.Equal(t, 29, resp.Revenue)
}

func TestDownloadsActivations_GapFreeSeries(t *testing.T) {
	db, svc := newFixture(t, "analytics_downloads")

	usedAt := testNow.Add(-24 * time.Hour)
	seedLicense(t, db, licensedomain.License{
		LicenseKey: "LIC-1",
		CreatedAt:  testNow.Add(-3 * 24 * time.Hour),
		UsedAt:     &usedAt,
	})
	seedLicense(t, db, licensedomain.License{
		LicenseKey: "LIC-2",
		CreatedAt:  testNow.Add(-3 * 24 * time.Hour),
	})

	resp, err := svc.DownloadsActivations(context.Background(), master, domain.DownloadsActivationsRequest{DateRange: "7d"})
	require.NoError(t, err)

	// One point per calendar day, boundaries included.
	assert.Len(t, resp.Downloads, 8)
	assert.Len(t, resp.Activations, 8)
	assert.Equal(t, 2, resp.TotalDownloads)
	assert.Equal(t, 1, resp.TotalActivations)

	byDate := map[string]int{}
	for _, pt := range resp.Downloads {
		byDate[pt.Date] = pt.Count
	}
	assert.Equal(t, 2, byDate["2026-03-12"])
	assert.Equal(t, 0, byDate["2026-03-13"])
}

func TestDistribution_MasterOnly(t *testing.T) {
	_, svc := newFixture(t, "analytics_dist_forbidden")

	tenant := tenancy.Principal{LicenseKey: "LIC-1"}
	_, err := svc.Distribution(context.Background(), tenant)
	assert.ErrorIs(t, err, tenancy.ErrMasterRequired)
}

func TestDistribution_SlicesAndFallbacks(t *testing.T) {
	db, svc := newFixture(t, "analytics_dist")

	seedLicense(t, db, licensedomain.License{LicenseKey: "LIC-1", ProductType: "chatbot", Plan: "pro"})
	seedLicense(t, db, licensedomain.License{LicenseKey: "LIC-2", ProductType: "chatbot", Plan: "pro"})
	seedLicense(t, db, licensedomain.License{LicenseKey: "LIC-3", ProductType: "setup-agent", Plan: ""})
	seedLicense(t, db, licensedomain.License{LicenseKey: "LIC-4", ProductType: "chatbot", Plan: "pro", Status: licensedomain.StatusInactive})

	seedEvent(t, db, "LIC-1", "sess-1", "user", testNow.Add(-time.Hour))

	resp, err := svc.Distribution(context.Background(), master)
	require.NoError(t, err)

	// Inactive licenses count toward statuses but not products or plans.
	assert.Equal(t, 3, resp.Summary.TotalLicenses)
	require.Len(t, resp.Products, 2)
	assert.Equal(t, "Chatbot", resp.Products[0].Name)
	assert.Equal(t, 2, resp.Products[0].Value)
	assert.Equal(t, 67, resp.Products[0].Percentage)
	assert.Equal(t, "Setup Agent", resp.Products[1].Name)

	// Empty plan falls back to Basic, names are capitalized.
	planNames := []string{resp.Plans[0].Name, resp.Plans[1].Name}
	assert.Contains(t, planNames, "Pro")
	assert.Contains(t, planNames, "Basic")

	require.Len(t, resp.Statuses, 2)
	assert.Equal(t, "Active", resp.Statuses[0].Name)
	assert.Equal(t, 3, resp.Statuses[0].Value)

	assert.Equal(t, "Chatbot", resp.Summary.DominantProduct)
	assert.Equal(t, "Pro", resp.Summary.DominantPlan)

	require.Len(t, resp.Usage, 2)
	assert.Equal(t, "chatbot", resp.Usage[0].ProductType)
	assert.Equal(t, 1, resp.Usage[0].Conversations)
	assert.Equal(t, 1, resp.Usage[0].ActiveDomains)
}

func TestDistribution_EmptyDatabase(t *testing.T) {
	_, svc := newFixture(t, "analytics_dist_empty")

	resp, err := svc.Distribution(context.Background(), master)
	require.NoError(t, err)

	assert.Empty(t, resp.Products)
	assert.Equal(t, "None", resp.Summary.DominantProduct)
	assert.Equal(t, "None", resp.Summary.DominantPlan)
}

func TestProductDistribution_ScopedToActive(t *testing.T) {
	db, svc := newFixture(t, "analytics_proddist")

	seedLicense(t, db, licensedomain.License{LicenseKey: "LIC-1", ProductType: "chatbot"})
	seedLicense(t, db, licensedomain.License{LicenseKey: "LIC-2", ProductType: ""})
	seedLicense(t, db, licensedomain.License{LicenseKey: "LIC-3", ProductType: "chatbot", Status: licensedomain.StatusInactive})

	resp, err := svc.ProductDistribution(context.Background(), master)
	require.NoError(t, err)

	// The null product is excluded from slices but stays in the denominator.
	require.Len(t, resp.Distribution, 1)
	assert.Equal(t, "chatbot", resp.Distribution[0].ProductType)
	assert.Equal(t, 1, resp.Distribution[0].Count)
	assert.Equal(t, 50, resp.Distribution[0].Percentage)
}

func TestProducts_CardsFollowOwnership(t *testing.T) {
	db, svc := newFixture(t, "analytics_products")

	seedLicense(t, db, licensedomain.License{LicenseKey: "LIC-1", ProductType: "chatbot"})
	seedLicense(t, db, licensedomain.License{LicenseKey: "LIC-2", ProductType: "setup-agent"})
	seedEvent(t, db, "LIC-1", "sess-1", "user", testNow.Add(-time.Hour))

	resp, err := svc.Products(context.Background(), master)
	require.NoError(t, err)

	require.Len(t, resp.Products, 2)
	assert.Equal(t, "chatbot", resp.Products[0].ID)
	assert.Equal(t, 1, resp.Products[0].ActiveUsers)
	assert.Equal(t, "setup-agent", resp.Products[1].ID)
}

func TestLicenseStats(t *testing.T) {
	db, svc := newFixture(t, "analytics_licstats")

	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	seedEvent(t, db, "LIC-1", "sess-1", "user", base)
	seedEvent(t, db, "LIC-1", "sess-1", "assistant", base.Add(30*time.Second))
	seedEvent(t, db, "LIC-1", "sess-1", "user", base.Add(90*time.Second))
	seedEvent(t, db, "LIC-1", "sess-2", "user", base.Add(3*time.Hour))
	seedEvent(t, db, "LIC-2", "sess-x", "user", base)

	resp, err := svc.LicenseStats(context.Background(), master, "LIC-1")
	require.NoError(t, err)

	// Conversations count user turns only.
	assert.Equal(t, 3, resp.TotalConversations)
	assert.Equal(t, 2, resp.TotalSessions)
	// sess-2 is a single event and does not dilute the average.
	assert.Equal(t, "1m", resp.AvgSessionDuration)
	assert.Equal(t, 2, resp.AvgMessagesPerSession)
	// Three events at 09:00 UTC beat one at 12:00.
	assert.Equal(t, 9, resp.PeakUsageHour)
	require.NotNil(t, resp.LastActivity)
	assert.Equal(t, base.Add(3*time.Hour).Unix(), resp.LastActivity.Unix())
}

func TestLicenseStats_PeakHourTieBreak(t *testing.T) {
	db, svc := newFixture(t, "analytics_licstats_tie")

	// Two events at 03:00 and two at 05:00; the earlier hour wins the tie.
	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	seedEvent(t, db, "LIC-1", "sess-1", "user", day.Add(3*time.Hour))
	seedEvent(t, db, "LIC-1", "sess-1", "user", day.Add(3*time.Hour+10*time.Minute))
	seedEvent(t, db, "LIC-1", "sess-2", "user", day.Add(5*time.Hour))
	seedEvent(t, db, "LIC-1", "sess-2", "user", day.Add(5*time.Hour+10*time.Minute))

	resp, err := svc.LicenseStats(context.Background(), master, "LIC-1")
	require.NoError(t, err)
	assert.Equal(t, 3, resp.PeakUsageHour)
}

func TestLicenseStats_ForbiddenForOtherTenant(t *testing.T) {
	_, svc := newFixture(t, "analytics_licstats_forbidden")

	tenant := tenancy.Principal{LicenseKey: "LIC-1"}
	_, err := svc.LicenseStats(context.Background(), tenant, "LIC-2")
	assert.ErrorIs(t, err, domain.ErrLicenseForbidden)
}
