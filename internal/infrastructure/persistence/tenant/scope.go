// Package tenant provides multi-tenant database scoping for GORM.
//
// Every tenant-owned table carries a tenant_id column and every repository
// query against such a table goes through one of these scopes, so a row owned
// by another tenant is indistinguishable from a missing row.
//
// Usage:
//
//	db.Scopes(tenant.Scope(tenantID)).Find(&invoices)
package tenant

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrTenantIDRequired is returned when a tenant-scoped query is attempted
// without a tenant ID.
var ErrTenantIDRequired = errors.New("tenant_id is required but not provided")

// ErrInvalidTenantID is returned when the tenant ID format is invalid
var ErrInvalidTenantID = errors.New("invalid tenant_id format")

// Scope applies tenant filtering to GORM queries. The all-zero UUID is
// rejected rather than silently matching nothing: a nil tenant here means a
// caller skipped tenant resolution.
func Scope(tenantID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if tenantID == uuid.Nil {
			_ = db.AddError(ErrTenantIDRequired)
			return db
		}
		return db.Where("tenant_id = ?", tenantID)
	}
}

// ScopeString applies tenant filtering using a string tenant ID, validating
// the UUID format first.
func ScopeString(tenantID string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if tenantID == "" {
			_ = db.AddError(ErrTenantIDRequired)
			return db
		}
		if _, err := uuid.Parse(tenantID); err != nil {
			_ = db.AddError(ErrInvalidTenantID)
			return db
		}
		return db.Where("tenant_id = ?", tenantID)
	}
}
