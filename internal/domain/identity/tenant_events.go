package identity

import (
	"github.com/zoravo/oms/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeTenant = "Tenant"

// Event type constants
const (
	EventTypeTenantCreated     = "tenant_created"
	EventTypeTenantDeactivated = "tenant_deactivated"
)

// TenantCreatedEvent is published when a new tenant is created
type TenantCreatedEvent struct {
	shared.BaseDomainEvent
	Code               string             `json:"code"`
	Name               string             `json:"name"`
	SubscriptionStatus SubscriptionStatus `json:"subscription_status"`
}

// NewTenantCreatedEvent creates a new TenantCreatedEvent
func NewTenantCreatedEvent(tenant *Tenant) *TenantCreatedEvent {
	return &TenantCreatedEvent{
		BaseDomainEvent:    shared.NewBaseDomainEvent(EventTypeTenantCreated, AggregateTypeTenant, tenant.ID, tenant.ID),
		Code:               tenant.Code,
		Name:               tenant.Name,
		SubscriptionStatus: tenant.SubscriptionStatus,
	}
}

// TenantDeactivatedEvent is published when a tenant loses access, either
// explicitly or through subscription expiry
type TenantDeactivatedEvent struct {
	shared.BaseDomainEvent
	Code               string             `json:"code"`
	Name               string             `json:"name"`
	SubscriptionStatus SubscriptionStatus `json:"subscription_status"`
}

// NewTenantDeactivatedEvent creates a new TenantDeactivatedEvent
func NewTenantDeactivatedEvent(tenant *Tenant) *TenantDeactivatedEvent {
	return &TenantDeactivatedEvent{
		BaseDomainEvent:    shared.NewBaseDomainEvent(EventTypeTenantDeactivated, AggregateTypeTenant, tenant.ID, tenant.ID),
		Code:               tenant.Code,
		Name:               tenant.Name,
		SubscriptionStatus: tenant.SubscriptionStatus,
	}
}
