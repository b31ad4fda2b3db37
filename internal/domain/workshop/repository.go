package workshop

import (
	"context"

	"github.com/google/uuid"

	"github.com/zoravo/oms/internal/domain/shared"
)

// VehicleInwardRepository defines persistence for intake records
type VehicleInwardRepository interface {
	// FindByIDForTenant returns the record only when it belongs to the tenant.
	// A record owned by another tenant is indistinguishable from a missing one.
	FindByIDForTenant(ctx context.Context, id, tenantID uuid.UUID) (*VehicleInward, error)

	// TenantForVehicle resolves the owning tenant of a vehicle. Used by
	// notification producers when a payload arrives without a tenant id.
	TenantForVehicle(ctx context.Context, vehicleID uuid.UUID) (uuid.UUID, error)

	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (*shared.Paginated[*VehicleInward], error)
	Create(ctx context.Context, inward *VehicleInward) error
	Save(ctx context.Context, inward *VehicleInward) error
}
