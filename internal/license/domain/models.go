// Package domain contains the license (tenant) records gating dashboard and
// webhook access.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	StatusActive   = "active"
	StatusTrial    = "trial"
	StatusInactive = "inactive"

	SubscriptionActive = "active"
)

// License is a customer's subscription record. license_key is immutable after
// creation; rows are never deleted, only moved through status.
type License struct {
	ID                 snowflake.ID `gorm:"primaryKey" json:"id"`
	LicenseKey         string       `gorm:"uniqueIndex;not null" json:"license_key"`
	Email              string       `gorm:"index" json:"email"`
	CustomerName       string       `json:"customer_name"`
	Status             string       `gorm:"index;not null;default:active" json:"status"`
	ProductType        string       `gorm:"index" json:"product_type"`
	Plan               string       `json:"plan"`
	Domain             string       `json:"domain"`
	SiteKey            *string      `gorm:"uniqueIndex" json:"site_key,omitempty"`
	SubscriptionStatus string       `json:"subscription_status"`
	PurchaseAmount     string       `json:"purchase_amount"`
	NextBillingDate    *time.Time   `json:"next_billing_date,omitempty"`
	CreatedAt          time.Time    `gorm:"not null" json:"created_at"`
	UsedAt             *time.Time   `json:"used_at,omitempty"`
}

// TableName sets the database table name.
func (License) TableName() string { return "licenses" }

// Usable reports whether events may be ingested under this license.
func (l License) Usable() bool {
	return l.Status == StatusActive || l.Status == StatusTrial
}

type CreateRequest struct {
	LicenseKey  string `json:"license_key"`
	Email       string `json:"email"`
	ProductType string `json:"product_type"`
	Plan        string `json:"plan"`
	Domain      string `json:"domain"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*License, error)
	GetByKey(ctx context.Context, licenseKey string) (*License, error)
	GetBySiteKey(ctx context.Context, siteKey string) (*License, error)
	// MarkUsed stamps used_at, recording tenant liveness. Best effort; a
	// racing ingest may stamp twice.
	MarkUsed(ctx context.Context, licenseKey string, at time.Time) error
}

var (
	ErrInvalidLicenseKey = errors.New("invalid_license_key")
	ErrNotFound          = errors.New("not_found")
)
