// Package domain contains the custom product registry. Each entry binds a
// product type to the database table holding its rows, replacing hardcoded
// product configuration with persisted records.
package domain

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/siteassist/insight/internal/tenancy"
)

var (
	ErrUnknownProduct   = errors.New("unknown_product")
	ErrInvalidProduct   = errors.New("invalid_product")
	ErrInvalidTableName = errors.New("invalid_table_name")
)

// identifier restricts registered table names to plain SQL identifiers. Table
// names are interpolated into queries and must never carry quoting or
// punctuation.
var identifier = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ValidIdentifier reports whether s is safe to use as a table name.
func ValidIdentifier(s string) bool {
	return s != "" && len(s) <= 63 && identifier.MatchString(s)
}

// CustomProduct is one registry entry.
type CustomProduct struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	ProductType string       `gorm:"uniqueIndex;not null" json:"product_type"`
	DisplayName string       `json:"display_name"`
	DataTable   string       `gorm:"column:table_name;not null" json:"table_name"`
	CreatedAt   time.Time    `gorm:"not null" json:"created_at"`
}

// TableName sets the database table name.
func (CustomProduct) TableName() string { return "custom_products" }

type RegisterRequest struct {
	LicenseKey    string `json:"licenseKey"`
	ProductType   string `json:"productType"`
	CustomerEmail string `json:"customerEmail"`
	TableName     string `json:"tableName"`
}

// Stats summarizes a custom product's data table.
type Stats struct {
	TotalEntries int64      `json:"total_entries"`
	UniqueUsers  int64      `json:"unique_users"`
	LastActivity *time.Time `json:"last_activity"`
}

type DataResponse struct {
	ProductName string           `json:"productName"`
	Stats       Stats            `json:"stats"`
	Data        []map[string]any `json:"data"`
}

type Service interface {
	// Register persists a registry entry and provisions its license.
	Register(ctx context.Context, req RegisterRequest) error
	// Data returns rows and stats for a registered product, tenant scoped.
	Data(ctx context.Context, p tenancy.Principal, productType string) (*DataResponse, error)
}
