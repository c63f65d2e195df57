// Package tenancy carries the authenticated caller identity and the row
// scoping it implies. Services receive the principal explicitly; nothing is
// read from ambient request state.
package tenancy

import (
	"errors"

	"gorm.io/gorm"
)

// Principal is the authenticated caller: either the master operator or a
// single-license customer.
type Principal struct {
	LicenseKey   string
	IsMaster     bool
	Domain       string
	Email        string
	CustomerName string
}

var (
	ErrNotAuthenticated = errors.New("not_authenticated")
	ErrMasterRequired   = errors.New("master_required")
)

// Valid reports whether the principal identifies anyone at all.
func (p Principal) Valid() bool {
	return p.IsMaster || p.LicenseKey != ""
}

// Scope restricts a query to the principal's rows. Master callers match all
// rows; everyone else is pinned to their own license key. The column is
// license_key on every scoped table.
func (p Principal) Scope(db *gorm.DB) *gorm.DB {
	if p.IsMaster {
		return db
	}
	return db.Where("license_key = ?", p.LicenseKey)
}

// RequireMaster rejects non-master principals. Master-only aggregates must
// fail outright rather than silently narrowing to the caller's tenant.
func (p Principal) RequireMaster() error {
	if !p.Valid() {
		return ErrNotAuthenticated
	}
	if !p.IsMaster {
		return ErrMasterRequired
	}
	return nil
}
