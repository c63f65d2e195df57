// Package domain defines dashboard access validation and the bearer tokens it
// issues.
package domain

import (
	"context"
	"errors"

	"github.com/siteassist/insight/internal/tenancy"
)

// AllDomains marks a master token, which is not pinned to any one site.
const AllDomains = "ALL_DOMAINS"

var (
	ErrInvalidLicenseKey = errors.New("invalid_license_key")
	ErrDomainNotFound    = errors.New("domain_not_found")
	ErrMissingToken      = errors.New("missing_token")
	ErrInvalidToken      = errors.New("invalid_token")
)

type ValidateRequest struct {
	LicenseKey string `json:"licenseKey"`
	Domain     string `json:"domain"`
}

type ValidateResponse struct {
	Valid    bool   `json:"valid"`
	Token    string `json:"token"`
	IsMaster bool   `json:"isMaster"`
}

type Service interface {
	// Validate checks the master key or an active license plus its domain and
	// issues a bearer token.
	Validate(ctx context.Context, req ValidateRequest) (*ValidateResponse, error)
	// ParseToken recovers the principal from a bearer token.
	ParseToken(token string) (tenancy.Principal, error)
}
