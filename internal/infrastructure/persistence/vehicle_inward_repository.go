package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/zoravo/oms/internal/domain/shared"
	"github.com/zoravo/oms/internal/domain/workshop"
	"github.com/zoravo/oms/internal/infrastructure/persistence/models"
	"github.com/zoravo/oms/internal/infrastructure/persistence/tenant"
)

// GormVehicleInwardRepository implements workshop.VehicleInwardRepository using GORM
type GormVehicleInwardRepository struct {
	db *gorm.DB
}

// NewGormVehicleInwardRepository creates a new GORM-based vehicle inward repository
func NewGormVehicleInwardRepository(db *gorm.DB) *GormVehicleInwardRepository {
	return &GormVehicleInwardRepository{db: db}
}

var _ workshop.VehicleInwardRepository = (*GormVehicleInwardRepository)(nil)

// FindByIDForTenant returns the intake record only when it belongs to the tenant
func (r *GormVehicleInwardRepository) FindByIDForTenant(ctx context.Context, id, tenantID uuid.UUID) (*workshop.VehicleInward, error) {
	var model models.VehicleInwardModel
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(tenantID)).
		Where("id = ?", id).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// TenantForVehicle resolves the owning tenant of a vehicle from its most
// recent intake record. Returns the zero UUID without error when the vehicle
// has never been inwarded.
func (r *GormVehicleInwardRepository) TenantForVehicle(ctx context.Context, vehicleID uuid.UUID) (uuid.UUID, error) {
	var model models.VehicleInwardModel
	err := r.db.WithContext(ctx).
		Select("tenant_id").
		Where("vehicle_id = ?", vehicleID).
		Order("created_at DESC").
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, nil
	}
	if err != nil {
		return uuid.Nil, err
	}
	return model.TenantID, nil
}

// FindAllForTenant returns intake records for the tenant matching the filter
func (r *GormVehicleInwardRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (*shared.Paginated[*workshop.VehicleInward], error) {
	if filter.Page <= 0 {
		filter.Page = shared.DefaultFilter().Page
	}
	if filter.PageSize <= 0 {
		filter.PageSize = shared.DefaultFilter().PageSize
	}

	query := r.db.WithContext(ctx).
		Model(&models.VehicleInwardModel{}).
		Scopes(tenant.Scope(tenantID))

	if filter.Search != "" {
		keyword := "%" + filter.Search + "%"
		query = query.Where("vehicle_number ILIKE ? OR customer_name ILIKE ?", keyword, keyword)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	orderBy := ValidateSortField(filter.OrderBy, VehicleInwardSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)

	offset := (filter.Page - 1) * filter.PageSize

	var inwardModels []models.VehicleInwardModel
	err := query.
		Order(orderBy + " " + orderDir).
		Offset(offset).
		Limit(filter.PageSize).
		Find(&inwardModels).Error
	if err != nil {
		return nil, err
	}

	inwards := make([]*workshop.VehicleInward, len(inwardModels))
	for i := range inwardModels {
		inwards[i] = inwardModels[i].ToDomain()
	}

	page := shared.NewPaginated(inwards, total, filter.Page, filter.PageSize)
	return &page, nil
}

// Create persists a new intake record
func (r *GormVehicleInwardRepository) Create(ctx context.Context, inward *workshop.VehicleInward) error {
	model := models.VehicleInwardModelFromDomain(inward)
	return r.db.WithContext(ctx).Create(model).Error
}

// Save updates an existing intake record
func (r *GormVehicleInwardRepository) Save(ctx context.Context, inward *workshop.VehicleInward) error {
	model := models.VehicleInwardModelFromDomain(inward)
	return r.db.WithContext(ctx).Save(model).Error
}
