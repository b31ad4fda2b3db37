package identity

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zoravo/oms/internal/domain/identity"
	"github.com/zoravo/oms/internal/domain/shared"
)

// Resolution is the tenant scope a request operates under. A super admin
// with no tenant runs unscoped; everyone else is pinned to one tenant.
type Resolution struct {
	TenantID     uuid.UUID
	IsSuperAdmin bool
}

// Scoped returns true when queries must be filtered by tenant id
func (r Resolution) Scoped() bool {
	return !r.IsSuperAdmin || r.TenantID != uuid.Nil
}

// TenantResolver maps an authenticated user to the tenant its requests are
// scoped to. It is the leaf dependency of every tenant-scoped operation.
type TenantResolver struct {
	userRepo   identity.UserRepository
	tenantRepo identity.TenantRepository
	logger     *zap.Logger
}

// NewTenantResolver creates a new tenant resolver
func NewTenantResolver(
	userRepo identity.UserRepository,
	tenantRepo identity.TenantRepository,
	logger *zap.Logger,
) *TenantResolver {
	return &TenantResolver{
		userRepo:   userRepo,
		tenantRepo: tenantRepo,
		logger:     logger,
	}
}

// Resolve determines the tenant scope for a user. Super admins may resolve
// with a zero tenant id; a regular user without a tenant link fails every
// write downstream with "Tenant ID required", which is surfaced here.
func (r *TenantResolver) Resolve(ctx context.Context, userID uuid.UUID) (Resolution, error) {
	user, err := r.userRepo.FindByID(ctx, userID)
	if err != nil {
		return Resolution{}, err
	}
	if user == nil {
		return Resolution{}, shared.ErrUnauthorized
	}
	if !user.IsActive() {
		return Resolution{}, shared.ErrForbidden
	}

	if user.IsSuperAdmin {
		res := Resolution{IsSuperAdmin: true}
		if user.TenantID != nil {
			res.TenantID = *user.TenantID
		}
		return res, nil
	}

	if !user.HasTenant() {
		r.logger.Warn("User has no tenant link", zap.String("user_id", userID.String()))
		return Resolution{}, shared.ErrTenantRequired
	}

	tenant, err := r.tenantRepo.FindByID(ctx, *user.TenantID)
	if err != nil {
		return Resolution{}, err
	}
	if tenant == nil {
		return Resolution{}, shared.ErrTenantRequired
	}
	if !tenant.IsActive {
		return Resolution{}, shared.NewDomainError("TENANT_INACTIVE", "Tenant is deactivated")
	}

	return Resolution{TenantID: tenant.ID}, nil
}
