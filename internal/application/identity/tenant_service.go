package identity

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zoravo/oms/internal/domain/identity"
	"github.com/zoravo/oms/internal/domain/shared"
)

// TenantService handles tenant administration. Super-admin gated at the
// HTTP layer.
type TenantService struct {
	tenantRepo identity.TenantRepository
	logger     *zap.Logger
}

// NewTenantService creates a new tenant service
func NewTenantService(
	tenantRepo identity.TenantRepository,
	logger *zap.Logger,
) *TenantService {
	return &TenantService{
		tenantRepo: tenantRepo,
		logger:     logger,
	}
}

// CreateTenantRequest represents a request to create a tenant
type CreateTenantRequest struct {
	Code         string `json:"code" binding:"required"`
	Name         string `json:"name" binding:"required"`
	Subdomain    string `json:"subdomain"`
	ContactEmail string `json:"contact_email"`
	ContactPhone string `json:"contact_phone"`
	Notes        string `json:"notes"`
	TrialDays    int    `json:"trial_days"`
}

// UpdateTenantRequest represents a request to update a tenant
type UpdateTenantRequest struct {
	Name         *string `json:"name"`
	Subdomain    *string `json:"subdomain"`
	ContactEmail *string `json:"contact_email"`
	ContactPhone *string `json:"contact_phone"`
}

// ActivateSubscriptionRequest represents a subscription activation
type ActivateSubscriptionRequest struct {
	SubscriptionEndsAt time.Time `json:"subscription_ends_at" binding:"required"`
}

// TenantResponse represents a tenant in API responses
type TenantResponse struct {
	ID                 uuid.UUID  `json:"id"`
	Code               string     `json:"code"`
	Name               string     `json:"name"`
	Subdomain          string     `json:"subdomain,omitempty"`
	IsActive           bool       `json:"is_active"`
	SubscriptionStatus string     `json:"subscription_status"`
	TrialEndsAt        *time.Time `json:"trial_ends_at,omitempty"`
	SubscriptionEndsAt *time.Time `json:"subscription_ends_at,omitempty"`
	ContactEmail       string     `json:"contact_email,omitempty"`
	ContactPhone       string     `json:"contact_phone,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Create creates a new tenant. A positive TrialDays starts the tenant on a
// trial subscription.
func (s *TenantService) Create(ctx context.Context, req CreateTenantRequest) (*TenantResponse, error) {
	exists, err := s.tenantRepo.ExistsByCode(ctx, req.Code)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "Tenant code is already in use")
	}

	var tenant *identity.Tenant
	if req.TrialDays > 0 {
		tenant, err = identity.NewTrialTenant(req.Code, req.Name, req.TrialDays)
	} else {
		tenant, err = identity.NewTenant(req.Code, req.Name)
	}
	if err != nil {
		return nil, err
	}

	if req.Subdomain != "" {
		if err := tenant.SetSubdomain(req.Subdomain); err != nil {
			return nil, err
		}
	}
	if req.ContactEmail != "" || req.ContactPhone != "" {
		if err := tenant.SetContact(req.ContactEmail, req.ContactPhone); err != nil {
			return nil, err
		}
	}
	tenant.Notes = req.Notes

	if err := s.tenantRepo.Save(ctx, tenant); err != nil {
		s.logger.Error("Failed to create tenant", zap.String("code", tenant.Code), zap.Error(err))
		return nil, err
	}

	s.logger.Info("Tenant created",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("code", tenant.Code),
		zap.String("subscription_status", string(tenant.SubscriptionStatus)))

	return toTenantResponse(tenant), nil
}

// Update updates a tenant's mutable fields
func (s *TenantService) Update(ctx context.Context, id uuid.UUID, req UpdateTenantRequest) (*TenantResponse, error) {
	tenant, err := s.findTenant(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if err := tenant.Update(*req.Name); err != nil {
			return nil, err
		}
	}
	if req.Subdomain != nil {
		if err := tenant.SetSubdomain(*req.Subdomain); err != nil {
			return nil, err
		}
	}
	if req.ContactEmail != nil || req.ContactPhone != nil {
		email := tenant.ContactEmail
		phone := tenant.ContactPhone
		if req.ContactEmail != nil {
			email = *req.ContactEmail
		}
		if req.ContactPhone != nil {
			phone = *req.ContactPhone
		}
		if err := tenant.SetContact(email, phone); err != nil {
			return nil, err
		}
	}

	if err := s.tenantRepo.Save(ctx, tenant); err != nil {
		return nil, err
	}
	return toTenantResponse(tenant), nil
}

// ActivateSubscription moves a tenant onto a paid subscription
func (s *TenantService) ActivateSubscription(ctx context.Context, id uuid.UUID, req ActivateSubscriptionRequest) (*TenantResponse, error) {
	tenant, err := s.findTenant(ctx, id)
	if err != nil {
		return nil, err
	}

	tenant.ActivateSubscription(req.SubscriptionEndsAt)
	if err := s.tenantRepo.Save(ctx, tenant); err != nil {
		return nil, err
	}

	s.logger.Info("Tenant subscription activated",
		zap.String("tenant_id", tenant.ID.String()),
		zap.Time("ends_at", req.SubscriptionEndsAt))

	return toTenantResponse(tenant), nil
}

// Deactivate deactivates a tenant
func (s *TenantService) Deactivate(ctx context.Context, id uuid.UUID) (*TenantResponse, error) {
	tenant, err := s.findTenant(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := tenant.Deactivate(); err != nil {
		return nil, err
	}
	if err := s.tenantRepo.Save(ctx, tenant); err != nil {
		return nil, err
	}

	s.logger.Info("Tenant deactivated", zap.String("tenant_id", tenant.ID.String()))
	return toTenantResponse(tenant), nil
}

// Activate re-activates a tenant
func (s *TenantService) Activate(ctx context.Context, id uuid.UUID) (*TenantResponse, error) {
	tenant, err := s.findTenant(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := tenant.Activate(); err != nil {
		return nil, err
	}
	if err := s.tenantRepo.Save(ctx, tenant); err != nil {
		return nil, err
	}

	s.logger.Info("Tenant activated", zap.String("tenant_id", tenant.ID.String()))
	return toTenantResponse(tenant), nil
}

// Get returns a single tenant
func (s *TenantService) Get(ctx context.Context, id uuid.UUID) (*TenantResponse, error) {
	tenant, err := s.findTenant(ctx, id)
	if err != nil {
		return nil, err
	}
	return toTenantResponse(tenant), nil
}

// GetBySubdomain resolves a tenant by its subdomain
func (s *TenantService) GetBySubdomain(ctx context.Context, subdomain string) (*TenantResponse, error) {
	tenant, err := s.tenantRepo.FindBySubdomain(ctx, subdomain)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Tenant not found")
	}
	return toTenantResponse(tenant), nil
}

// List returns tenants matching the filter
func (s *TenantService) List(ctx context.Context, filter shared.Filter) ([]TenantResponse, error) {
	tenants, err := s.tenantRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}

	out := make([]TenantResponse, 0, len(tenants))
	for i := range tenants {
		out = append(out, *toTenantResponse(&tenants[i]))
	}
	return out, nil
}

func (s *TenantService) findTenant(ctx context.Context, id uuid.UUID) (*identity.Tenant, error) {
	tenant, err := s.tenantRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Tenant not found")
	}
	return tenant, nil
}

func toTenantResponse(tenant *identity.Tenant) *TenantResponse {
	return &TenantResponse{
		ID:                 tenant.ID,
		Code:               tenant.Code,
		Name:               tenant.Name,
		Subdomain:          tenant.Subdomain,
		IsActive:           tenant.IsActive,
		SubscriptionStatus: string(tenant.SubscriptionStatus),
		TrialEndsAt:        tenant.TrialEndsAt,
		SubscriptionEndsAt: tenant.SubscriptionEndsAt,
		ContactEmail:       tenant.ContactEmail,
		ContactPhone:       tenant.ContactPhone,
		CreatedAt:          tenant.CreatedAt,
		UpdatedAt:          tenant.UpdatedAt,
	}
}
