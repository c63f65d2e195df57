package service

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/siteassist/insight/internal/analytics/domain"
	"github.com/siteassist/insight/internal/clock"
	"github.com/siteassist/insight/internal/config"
	eventlogdomain "github.com/siteassist/insight/internal/eventlog/domain"
	licensedomain "github.com/siteassist/insight/internal/license/domain"
	sessiondomain "github.com/siteassist/insight/internal/session/domain"
	"github.com/siteassist/insight/internal/tenancy"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

// productInfo maps product types to chart display names and colors. Types not
// listed fall back to their raw name with the first chart color.
var productInfo = map[string]struct {
	name  string
	color string
}{
	"chatbot":         {"Chatbot", "hsl(var(--chart-1))"},
	"setup-agent":     {"Setup Agent", "hsl(var(--chart-2))"},
	"email-assistant": {"Email Assistant", "hsl(var(--chart-3))"},
	"voice-assistant": {"Voice Assistant", "hsl(var(--chart-4))"},
	"analytics":       {"Analytics", "hsl(var(--chart-5))"},
}

const defaultChartColor = "hsl(var(--chart-1))"

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Clock   clock.Clock
	Pricing *config.PricingHolder
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	clock   clock.Clock
	pricing *config.PricingHolder
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("analytics.service"),
		clock:   p.Clock,
		pricing: p.Pricing,
	}
}

func (s *Service) Stats(ctx context.Context, p tenancy.Principal) (*domain.StatsResponse, error) {
	if !p.Valid() {
		return nil, tenancy.ErrNotAuthenticated
	}
	now := s.clock.Now()
	thirtyDaysAgo := now.Add(-30 * 24 * time.Hour)
	sixtyDaysAgo := now.Add(-60 * 24 * time.Hour)

	totalLicenses := 1
	if p.IsMaster {
		var n int64
		if err := s.db.WithContext(ctx).Model(&licensedomain.License{}).Count(&n).Error; err != nil {
			return nil, err
		}
		totalLicenses = int(n)
	}

	recent, err := s.distinctSessions(ctx, p, &thirtyDaysAgo, nil)
	if err != nil {
		return nil, err
	}
	previous, err := s.distinctSessions(ctx, p, &sixtyDaysAgo, &thirtyDaysAgo)
	if err != nil {
		return nil, err
	}

	revenue, err := s.revenue(ctx, p)
	if err != nil {
		return nil, err
	}

	return &domain.StatsResponse{
		TotalLicenses:       totalLicenses,
		ActiveConversations: recent,
		MonthlyGrowth:       domain.Growth(previous, recent),
		Revenue:             revenue,
	}, nil
}

// distinctSessions counts unique session ids in [since, until), tenant scoped.
func (s *Service) distinctSessions(ctx context.Context, p tenancy.Principal, since, until *time.Time) (int, error) {
	q := s.db.WithContext(ctx).
		Model(&eventlogdomain.ConversationLog{}).
		Where("session_id IS NOT NULL")
	q = p.Scope(q)
	if since != nil {
		q = q.Where("timestamp >= ?", *since)
	}
	if until != nil {
		q = q.Where("timestamp < ?", *until)
	}

	var n int64
	if err := q.Distinct("session_id").Count(&n).Error; err != nil {
		return 0, err
	}
	return int(n), nil
}

// revenue sums plan prices over licenses with an active subscription.
func (s *Service) revenue(ctx context.Context, p tenancy.Principal) (int, error) {
	q := s.db.WithContext(ctx).
		Model(&licensedomain.License{}).
		Select("plan", "subscription_status")
	if !p.IsMaster {
		q = q.Where("license_key = ?", p.LicenseKey)
	}

	var licenses []licensedomain.License
	if err := q.Find(&licenses).Error; err != nil {
		return 0, err
	}

	total := 0.0
	for _, lic := range licenses {
		if lic.SubscriptionStatus == licensedomain.SubscriptionActive && lic.Plan != "" {
			total += s.pricing.PriceFor(lic.Plan)
		}
	}
	return int(math.Round(total)), nil
}

func (s *Service) DownloadsActivations(ctx context.Context, p tenancy.Principal, req domain.DownloadsActivationsRequest) (*domain.DownloadsActivationsResponse, error) {
	if !p.Valid() {
		return nil, tenancy.ErrNotAuthenticated
	}

	days := 30
	switch req.DateRange {
	case "7d":
		days = 7
	case "30d":
		days = 30
	case "90d":
		days = 90
	}

	now := s.clock.Now().UTC()
	start := now.AddDate(0, 0, -days)

	q := s.db.WithContext(ctx).
		Model(&licensedomain.License{}).
		Select("created_at", "used_at").
		Where("created_at >= ? OR used_at >= ?", start, start)
	if !p.IsMaster {
		q = q.Where("license_key = ?", p.LicenseKey)
	}

	var licenses []licensedomain.License
	if err := q.Find(&licenses).Error; err != nil {
		return nil, err
	}

	downloadsByDate := map[string]int{}
	activationsByDate := map[string]int{}
	for _, lic := range licenses {
		if !lic.CreatedAt.IsZero() && !lic.CreatedAt.Before(start) {
			downloadsByDate[lic.CreatedAt.UTC().Format(dateLayout)]++
		}
		if lic.UsedAt != nil && !lic.UsedAt.Before(start) {
			activationsByDate[lic.UsedAt.UTC().Format(dateLayout)]++
		}
	}

	downloads := fillSeries(start, now, downloadsByDate)
	activations := fillSeries(start, now, activationsByDate)

	totalDownloads := 0
	for _, n := range downloadsByDate {
		totalDownloads += n
	}
	totalActivations := 0
	for _, n := range activationsByDate {
		totalActivations += n
	}

	mid := len(downloads) / 2
	return &domain.DownloadsActivationsResponse{
		Downloads:        downloads,
		Activations:      activations,
		TotalDownloads:   totalDownloads,
		TotalActivations: totalActivations,
		DownloadsTrend:   domain.Trend(sumSeries(downloads[:mid]), sumSeries(downloads[mid:])),
		ActivationsTrend: domain.Trend(sumSeries(activations[:mid]), sumSeries(activations[mid:])),
	}, nil
}

// fillSeries produces one point per UTC calendar day in [start, end], zeros
// where no activity was recorded.
func fillSeries(start, end time.Time, byDate map[string]int) []domain.SeriesPoint {
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	last := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)

	var out []domain.SeriesPoint
	for !day.After(last) {
		key := day.Format(dateLayout)
		out = append(out, domain.SeriesPoint{Date: key, Count: byDate[key]})
		day = day.AddDate(0, 0, 1)
	}
	return out
}

func sumSeries(points []domain.SeriesPoint) int {
	total := 0
	for _, pt := range points {
		total += pt.Count
	}
	return total
}

func (s *Service) Distribution(ctx context.Context, p tenancy.Principal) (*domain.DistributionResponse, error) {
	if !p.Valid() {
		return nil, tenancy.ErrNotAuthenticated
	}
	if err := p.RequireMaster(); err != nil {
		return nil, err
	}

	var licenses []licensedomain.License
	if err := s.db.WithContext(ctx).
		Select("license_key", "product_type", "plan", "status").
		Find(&licenses).Error; err != nil {
		return nil, err
	}

	productCounts := map[string]int{}
	productKeys := map[string][]string{}
	planCounts := map[string]int{}
	statusCounts := map[string]int{}
	totalLicenses := 0
	for _, lic := range licenses {
		statusCounts[lic.Status]++
		if !lic.Usable() {
			continue
		}
		totalLicenses++
		productCounts[lic.ProductType]++
		productKeys[lic.ProductType] = append(productKeys[lic.ProductType], lic.LicenseKey)
		planCounts[lic.Plan]++
	}

	products := make([]domain.ProductSlice, 0, len(productCounts))
	for productType, count := range productCounts {
		name := productType
		if name == "" {
			name = "Unknown"
		}
		info, ok := productInfo[strings.ToLower(name)]
		if !ok {
			info.name = name
			info.color = defaultChartColor
		}
		products = append(products, domain.ProductSlice{
			Name:        info.name,
			Value:       count,
			Percentage:  domain.Percentage(count, totalLicenses),
			Color:       info.color,
			ProductType: productType,
		})
	}
	sort.Slice(products, func(i, j int) bool {
		if products[i].Value != products[j].Value {
			return products[i].Value > products[j].Value
		}
		return products[i].Name < products[j].Name
	})

	plans := make([]domain.PlanSlice, 0, len(planCounts))
	for plan, count := range planCounts {
		name := plan
		if name == "" {
			name = "Basic"
		}
		plans = append(plans, domain.PlanSlice{
			Name:       capitalize(name),
			Value:      count,
			Percentage: domain.Percentage(count, totalLicenses),
		})
	}
	sort.Slice(plans, func(i, j int) bool {
		if plans[i].Value != plans[j].Value {
			return plans[i].Value > plans[j].Value
		}
		return plans[i].Name < plans[j].Name
	})

	statuses := make([]domain.StatusSlice, 0, len(statusCounts))
	for status, count := range statusCounts {
		name := status
		if name == "" {
			name = "unknown"
		}
		statuses = append(statuses, domain.StatusSlice{
			Name:   capitalize(name),
			Value:  count,
			Status: status,
		})
	}
	sort.Slice(statuses, func(i, j int) bool {
		if statuses[i].Value != statuses[j].Value {
			return statuses[i].Value > statuses[j].Value
		}
		return statuses[i].Name < statuses[j].Name
	})

	usage, err := s.productUsage(ctx, products, productCounts, productKeys)
	if err != nil {
		return nil, err
	}

	summary := domain.DistributionSummary{
		TotalProducts:   len(products),
		TotalLicenses:   totalLicenses,
		DominantProduct: "None",
		DominantPlan:    "None",
	}
	if len(products) > 0 {
		summary.DominantProduct = products[0].Name
	}
	if len(plans) > 0 {
		summary.DominantPlan = plans[0].Name
	}

	return &domain.DistributionResponse{
		Products: products,
		Plans:    plans,
		Statuses: statuses,
		Usage:    usage,
		Summary:  summary,
	}, nil
}

func (s *Service) productUsage(ctx context.Context, products []domain.ProductSlice, counts map[string]int, keys map[string][]string) ([]domain.ProductUsage, error) {
	sevenDaysAgo := s.clock.Now().Add(-7 * 24 * time.Hour)

	usage := make([]domain.ProductUsage, 0, len(products))
	for _, slice := range products {
		licenseKeys := keys[slice.ProductType]

		var conversations int64
		if len(licenseKeys) > 0 {
			if err := s.db.WithContext(ctx).
				Model(&eventlogdomain.ConversationLog{}).
				Where("license_key IN ?", licenseKeys).
				Distinct("session_id").
				Count(&conversations).Error; err != nil {
				return nil, err
			}
		}

		var domains int64
		if len(licenseKeys) > 0 {
			if err := s.db.WithContext(ctx).
				Model(&eventlogdomain.ConversationLog{}).
				Where("license_key IN ? AND domain IS NOT NULL AND timestamp >= ?", licenseKeys, sevenDaysAgo).
				Distinct("domain").
				Count(&domains).Error; err != nil {
				return nil, err
			}
		}

		usage = append(usage, domain.ProductUsage{
			ProductType:   slice.ProductType,
			Licenses:      counts[slice.ProductType],
			Conversations: int(conversations),
			ActiveDomains: int(domains),
		})
	}
	return usage, nil
}

func (s *Service) ProductDistribution(ctx context.Context, p tenancy.Principal) (*domain.ProductDistributionResponse, error) {
	if !p.Valid() {
		return nil, tenancy.ErrNotAuthenticated
	}

	q := s.db.WithContext(ctx).
		Model(&licensedomain.License{}).
		Select("license_key", "product_type").
		Where("status = ?", licensedomain.StatusActive)
	if !p.IsMaster {
		q = q.Where("license_key = ?", p.LicenseKey)
	}

	var licenses []licensedomain.License
	if err := q.Find(&licenses).Error; err != nil {
		return nil, err
	}

	counts := map[string]int{}
	total := 0
	for _, lic := range licenses {
		total++
		if lic.ProductType != "" {
			counts[lic.ProductType]++
		}
	}

	distribution := make([]domain.ProductShare, 0, len(counts))
	for productType, count := range counts {
		distribution = append(distribution, domain.ProductShare{
			ProductType: productType,
			Count:       count,
			Percentage:  domain.Percentage(count, total),
		})
	}
	sort.Slice(distribution, func(i, j int) bool {
		if distribution[i].Count != distribution[j].Count {
			return distribution[i].Count > distribution[j].Count
		}
		return distribution[i].ProductType < distribution[j].ProductType
	})

	return &domain.ProductDistributionResponse{Distribution: distribution}, nil
}

func (s *Service) Products(ctx context.Context, p tenancy.Principal) (*domain.ProductsResponse, error) {
	if !p.Valid() {
		return nil, tenancy.ErrNotAuthenticated
	}
	now := s.clock.Now()
	thirtyDaysAgo := now.Add(-30 * 24 * time.Hour)
	sixtyDaysAgo := now.Add(-60 * 24 * time.Hour)

	q := s.db.WithContext(ctx).
		Model(&licensedomain.License{}).
		Select("license_key", "product_type")
	if !p.IsMaster {
		q = q.Where("license_key = ?", p.LicenseKey)
	}
	var licenses []licensedomain.License
	if err := q.Find(&licenses).Error; err != nil {
		return nil, err
	}
	byProduct := map[string]int{}
	for _, lic := range licenses {
		byProduct[lic.ProductType]++
	}

	sessions, err := s.distinctSessions(ctx, p, nil, nil)
	if err != nil {
		return nil, err
	}
	recent, err := s.distinctSessions(ctx, p, &thirtyDaysAgo, nil)
	if err != nil {
		return nil, err
	}
	previous, err := s.distinctSessions(ctx, p, &sixtyDaysAgo, &thirtyDaysAgo)
	if err != nil {
		return nil, err
	}

	var products []domain.ProductCard
	if byProduct["chatbot"] > 0 || p.IsMaster {
		products = append(products, domain.ProductCard{
			ID:          "chatbot",
			Name:        "Chatbot",
			Description: "AI-powered customer support chatbot",
			Licenses:    byProduct["chatbot"],
			ActiveUsers: sessions,
			Growth:      domain.Growth(previous, recent),
			Stats: map[string]any{
				"totalConversations":  sessions,
				"averageResponseTime": "1.2s",
				"resolutionRate":      87,
			},
		})
	}
	if byProduct["setup-agent"] > 0 {
		products = append(products, domain.ProductCard{
			ID:          "setup-agent",
			Name:        "Setup Agent",
			Description: "Automated onboarding and setup assistant",
			Licenses:    byProduct["setup-agent"],
			Stats: map[string]any{
				"setupsCompleted":  0,
				"averageSetupTime": "4.5 min",
				"successRate":      94,
			},
		})
	}
	if byProduct["sales-agent"] > 0 {
		products = append(products, domain.ProductCard{
			ID:          "sales-agent",
			Name:        "Sales Agent",
			Description: "AI sales representative and lead qualifier",
			Licenses:    byProduct["sales-agent"],
			Stats: map[string]any{
				"leadsGenerated":  0,
				"conversionRate":  0,
				"averageDealSize": 0,
			},
		})
	}

	return &domain.ProductsResponse{Products: products}, nil
}

func (s *Service) LicenseStats(ctx context.Context, p tenancy.Principal, licenseKey string) (*domain.LicenseStatsResponse, error) {
	if !p.Valid() {
		return nil, tenancy.ErrNotAuthenticated
	}
	if !p.IsMaster && p.LicenseKey != licenseKey {
		return nil, domain.ErrLicenseForbidden
	}

	var totalConversations int64
	if err := s.db.WithContext(ctx).
		Model(&eventlogdomain.ConversationLog{}).
		Where("license_key = ? AND role = ?", licenseKey, eventlogdomain.RoleUser).
		Count(&totalConversations).Error; err != nil {
		return nil, err
	}

	var rows []eventlogdomain.ConversationLog
	if err := s.db.WithContext(ctx).
		Model(&eventlogdomain.ConversationLog{}).
		Select("session_id", "timestamp").
		Where("license_key = ?", licenseKey).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	type span struct {
		count int
		start time.Time
		end   time.Time
	}
	sessions := map[string]*span{}
	hourCounts := [24]int{}
	var lastActivity *time.Time
	totalMessages := 0
	for _, row := range rows {
		ts := row.Timestamp
		hourCounts[ts.UTC().Hour()]++
		if lastActivity == nil || ts.After(*lastActivity) {
			t := ts
			lastActivity = &t
		}
		if row.SessionID == nil {
			continue
		}
		sp, ok := sessions[*row.SessionID]
		if !ok {
			sp = &span{start: ts, end: ts}
			sessions[*row.SessionID] = sp
		}
		sp.count++
		totalMessages++
		if ts.Before(sp.start) {
			sp.start = ts
		}
		if ts.After(sp.end) {
			sp.end = ts
		}
	}

	totalDuration := 0
	validSessions := 0
	for _, sp := range sessions {
		if d := sessiondomain.ClampDuration(sp.start, sp.end); d > 0 {
			totalDuration += d
			validSessions++
		}
	}
	avgDuration := 0
	if validSessions > 0 {
		avgDuration = int(math.Round(float64(totalDuration) / float64(validSessions)))
	}

	avgMessages := 0
	if len(sessions) > 0 {
		avgMessages = int(math.Round(float64(totalMessages) / float64(len(sessions))))
	}

	// Strict > keeps the earliest hour on ties.
	peakHour := 0
	for hour, count := range hourCounts {
		if count > hourCounts[peakHour] {
			peakHour = hour
		}
	}

	return &domain.LicenseStatsResponse{
		TotalConversations:    int(totalConversations),
		TotalSessions:         len(sessions),
		AvgSessionDuration:    sessiondomain.FormatDuration(avgDuration),
		AvgMessagesPerSession: avgMessages,
		LastActivity:          lastActivity,
		PeakUsageHour:         peakHour,
	}, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
