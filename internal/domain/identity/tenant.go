package identity

import (
	"strings"
	"time"

	"github.com/zoravo/oms/internal/domain/shared"
)

// SubscriptionStatus represents the billing state of a tenant
type SubscriptionStatus string

const (
	SubscriptionStatusTrial     SubscriptionStatus = "trial"
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

// IsValid checks if the status is a valid SubscriptionStatus
func (s SubscriptionStatus) IsValid() bool {
	switch s {
	case SubscriptionStatusTrial, SubscriptionStatusActive, SubscriptionStatusExpired, SubscriptionStatusCancelled:
		return true
	}
	return false
}

// Tenant represents an organization in the multi-tenant system.
// It is the aggregate root for tenant-related operations; every business
// entity carries its id, and invoice numbers are prefixed with its code.
type Tenant struct {
	shared.BaseAggregateRoot
	Code               string             `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name               string             `gorm:"type:varchar(200);not null"`
	Subdomain          string             `gorm:"type:varchar(100);uniqueIndex"`
	IsActive           bool               `gorm:"not null;default:true"`
	SubscriptionStatus SubscriptionStatus `gorm:"type:varchar(20);not null;default:'trial'"`
	TrialEndsAt        *time.Time
	SubscriptionEndsAt *time.Time `gorm:"index"`
	ContactEmail       string     `gorm:"type:varchar(200)"`
	ContactPhone       string     `gorm:"type:varchar(50)"`
	Notes              string     `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (Tenant) TableName() string {
	return "tenants"
}

// NewTenant creates a new active tenant with required fields
func NewTenant(code, name string) (*Tenant, error) {
	if err := validateTenantCode(code); err != nil {
		return nil, err
	}
	if err := validateTenantName(name); err != nil {
		return nil, err
	}

	tenant := &Tenant{
		BaseAggregateRoot:  shared.NewBaseAggregateRoot(),
		Code:               strings.ToUpper(code),
		Name:               name,
		IsActive:           true,
		SubscriptionStatus: SubscriptionStatusActive,
	}

	tenant.AddDomainEvent(NewTenantCreatedEvent(tenant))

	return tenant, nil
}

// NewTrialTenant creates a new tenant on a time-boxed trial
func NewTrialTenant(code, name string, trialDays int) (*Tenant, error) {
	if trialDays <= 0 {
		return nil, shared.NewDomainError("INVALID_TRIAL_DAYS", "Trial days must be positive")
	}

	tenant, err := NewTenant(code, name)
	if err != nil {
		return nil, err
	}

	tenant.SubscriptionStatus = SubscriptionStatusTrial
	trialEnds := time.Now().AddDate(0, 0, trialDays)
	tenant.TrialEndsAt = &trialEnds

	return tenant, nil
}

// Update updates the tenant's basic information
func (t *Tenant) Update(name string) error {
	if err := validateTenantName(name); err != nil {
		return err
	}

	t.Name = name
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	return nil
}

// SetSubdomain sets the subdomain used for host-based tenant resolution
func (t *Tenant) SetSubdomain(subdomain string) error {
	if subdomain != "" && len(subdomain) > 100 {
		return shared.NewDomainError("INVALID_SUBDOMAIN", "Subdomain cannot exceed 100 characters")
	}

	t.Subdomain = strings.ToLower(strings.TrimSpace(subdomain))
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	return nil
}

// SetContact sets the tenant's contact information
func (t *Tenant) SetContact(email, phone string) error {
	if email != "" && len(email) > 200 {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot exceed 200 characters")
	}
	if phone != "" && len(phone) > 50 {
		return shared.NewDomainError("INVALID_PHONE", "Phone cannot exceed 50 characters")
	}

	t.ContactEmail = email
	t.ContactPhone = phone
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	return nil
}

// ActivateSubscription moves the tenant onto an active subscription running
// until the given date, clearing any trial state.
func (t *Tenant) ActivateSubscription(endsAt time.Time) {
	t.SubscriptionStatus = SubscriptionStatusActive
	t.SubscriptionEndsAt = &endsAt
	t.TrialEndsAt = nil
	t.IsActive = true
	t.UpdatedAt = time.Now()
	t.IncrementVersion()
}

// Deactivate disables all access for the tenant
func (t *Tenant) Deactivate() error {
	if !t.IsActive {
		return shared.NewDomainError("ALREADY_INACTIVE", "Tenant is already inactive")
	}

	t.IsActive = false
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	t.AddDomainEvent(NewTenantDeactivatedEvent(t))

	return nil
}

// Activate re-enables access for the tenant
func (t *Tenant) Activate() error {
	if t.IsActive {
		return shared.NewDomainError("ALREADY_ACTIVE", "Tenant is already active")
	}

	t.IsActive = true
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	return nil
}

// ExpireSubscription marks the subscription lapsed and deactivates the tenant.
// Called by the subscription-expiry batch operation.
func (t *Tenant) ExpireSubscription() error {
	if t.SubscriptionStatus == SubscriptionStatusExpired {
		return shared.NewDomainError("ALREADY_EXPIRED", "Subscription is already expired")
	}

	t.SubscriptionStatus = SubscriptionStatusExpired
	t.IsActive = false
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	t.AddDomainEvent(NewTenantDeactivatedEvent(t))

	return nil
}

// IsTrial returns true if the tenant is in trial period
func (t *Tenant) IsTrial() bool {
	return t.SubscriptionStatus == SubscriptionStatusTrial
}

// IsLapsed returns true if the trial or subscription has run out as of now
func (t *Tenant) IsLapsed(now time.Time) bool {
	if t.SubscriptionStatus == SubscriptionStatusTrial {
		return t.TrialEndsAt != nil && now.After(*t.TrialEndsAt)
	}
	if t.SubscriptionStatus == SubscriptionStatusActive {
		return t.SubscriptionEndsAt != nil && now.After(*t.SubscriptionEndsAt)
	}
	return false
}

// Validation functions

func validateTenantCode(code string) error {
	if code == "" {
		return shared.NewDomainError("INVALID_CODE", "Tenant code cannot be empty")
	}
	if len(code) > 50 {
		return shared.NewDomainError("INVALID_CODE", "Tenant code cannot exceed 50 characters")
	}
	for _, r := range code {
		if !((r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-') {
			return shared.NewDomainError("INVALID_CODE", "Tenant code can only contain letters, numbers, underscores, and hyphens")
		}
	}
	return nil
}

func validateTenantName(name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Tenant name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Tenant name cannot exceed 200 characters")
	}
	return nil
}
