// Package domain defines the aggregated metric views served to the dashboard.
// All aggregates are computed per request; nothing here is persisted.
package domain

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/siteassist/insight/internal/tenancy"
)

// ErrLicenseForbidden is returned when a customer asks for another tenant's
// per-license statistics.
var ErrLicenseForbidden = errors.New("license_forbidden")

// StatsResponse backs the dashboard headline cards.
type StatsResponse struct {
	TotalLicenses       int `json:"totalLicenses"`
	ActiveConversations int `json:"activeConversations"`
	MonthlyGrowth       int `json:"monthlyGrowth"`
	Revenue             int `json:"revenue"`
}

// SeriesPoint is one day of a gap-free daily series.
type SeriesPoint struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type DownloadsActivationsRequest struct {
	DateRange string `json:"dateRange"`
}

type DownloadsActivationsResponse struct {
	Downloads        []SeriesPoint `json:"downloads"`
	Activations      []SeriesPoint `json:"activations"`
	TotalDownloads   int           `json:"totalDownloads"`
	TotalActivations int           `json:"totalActivations"`
	DownloadsTrend   int           `json:"downloadsTrend"`
	ActivationsTrend int           `json:"activationsTrend"`
}

// ProductSlice is one wedge of the product distribution chart.
type ProductSlice struct {
	Name        string `json:"name"`
	Value       int    `json:"value"`
	Percentage  int    `json:"percentage"`
	Color       string `json:"color"`
	ProductType string `json:"productType"`
}

type PlanSlice struct {
	Name       string `json:"name"`
	Value      int    `json:"value"`
	Percentage int    `json:"percentage"`
}

type StatusSlice struct {
	Name   string `json:"name"`
	Value  int    `json:"value"`
	Status string `json:"status"`
}

// ProductUsage pairs a product type with its live usage signals.
type ProductUsage struct {
	ProductType   string `json:"productType"`
	Licenses      int    `json:"licenses"`
	Conversations int    `json:"conversations"`
	ActiveDomains int    `json:"activeDomains"`
}

type DistributionSummary struct {
	TotalProducts   int    `json:"totalProducts"`
	TotalLicenses   int    `json:"totalLicenses"`
	DominantProduct string `json:"dominantProduct"`
	DominantPlan    string `json:"dominantPlan"`
}

type DistributionResponse struct {
	Products []ProductSlice      `json:"products"`
	Plans    []PlanSlice         `json:"plans"`
	Statuses []StatusSlice       `json:"statuses"`
	Usage    []ProductUsage      `json:"usage"`
	Summary  DistributionSummary `json:"summary"`
}

// ProductShare is the tenant-scoped distribution variant.
type ProductShare struct {
	ProductType string `json:"productType"`
	Count       int    `json:"count"`
	Percentage  int    `json:"percentage"`
}

type ProductDistributionResponse struct {
	Distribution []ProductShare `json:"distribution"`
}

// ProductCard is one entry of the product overview grid. Stats carries the
// per-product detail block, whose keys differ by product.
type ProductCard struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Licenses    int            `json:"licenses"`
	ActiveUsers int            `json:"activeUsers"`
	Growth      int            `json:"growth"`
	Stats       map[string]any `json:"stats"`
}

type ProductsResponse struct {
	Products []ProductCard `json:"products"`
}

type LicenseStatsResponse struct {
	TotalConversations    int        `json:"totalConversations"`
	TotalSessions         int        `json:"totalSessions"`
	AvgSessionDuration    string     `json:"avgSessionDuration"`
	AvgMessagesPerSession int        `json:"avgMessagesPerSession"`
	LastActivity          *time.Time `json:"lastActivity"`
	PeakUsageHour         int        `json:"peakUsageHour"`
}

type Service interface {
	Stats(ctx context.Context, p tenancy.Principal) (*StatsResponse, error)
	DownloadsActivations(ctx context.Context, p tenancy.Principal, req DownloadsActivationsRequest) (*DownloadsActivationsResponse, error)
	// Distribution is master-only.
	Distribution(ctx context.Context, p tenancy.Principal) (*DistributionResponse, error)
	ProductDistribution(ctx context.Context, p tenancy.Principal) (*ProductDistributionResponse, error)
	Products(ctx context.Context, p tenancy.Principal) (*ProductsResponse, error)
	// LicenseStats requires master or ownership of the key.
	LicenseStats(ctx context.Context, p tenancy.Principal, licenseKey string) (*LicenseStatsResponse, error)
}

// Percentage returns round(count/total*100), or 0 when total is 0.
func Percentage(count, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(count) / float64(total) * 100))
}

// Trend compares two half-periods: round((second-first)/first*100) when the
// first half is non-zero, else 0.
func Trend(first, second int) int {
	if first <= 0 {
		return 0
	}
	return int(math.Round(float64(second-first) / float64(first) * 100))
}

// Growth is Trend with the cold-start special case: no prior activity reads
// as 100% growth when anything happened this period.
func Growth(previous, current int) int {
	if previous > 0 {
		return int(math.Round(float64(current-previous) / float64(previous) * 100))
	}
	if current > 0 {
		return 100
	}
	return 0
}
