package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/zoravo/oms/internal/domain/billing"
	"github.com/zoravo/oms/internal/infrastructure/persistence/models"
	"github.com/zoravo/oms/internal/infrastructure/persistence/tenant"
)

// GormInvoiceSequenceRepository implements billing.InvoiceSequenceRepository
// using a per-tenant counter row. Next must run inside a transaction: the
// SELECT ... FOR UPDATE holds the counter row until commit, so two concurrent
// issuances for the same tenant serialize instead of allocating the same
// number.
type GormInvoiceSequenceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceSequenceRepository creates a new GORM-based sequence repository
func NewGormInvoiceSequenceRepository(db *gorm.DB) *GormInvoiceSequenceRepository {
	return &GormInvoiceSequenceRepository{db: db}
}

var _ billing.InvoiceSequenceRepository = (*GormInvoiceSequenceRepository)(nil)

// Next allocates the next invoice number for the tenant
func (r *GormInvoiceSequenceRepository) Next(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	if tenantID == uuid.Nil {
		return 0, tenant.ErrTenantIDRequired
	}

	var seq models.InvoiceSequenceModel
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ?", tenantID).
		First(&seq).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		// First allocation for this tenant. A concurrent first allocation
		// hits the primary key conflict and fails its transaction rather
		// than handing out a duplicate number.
		seq = models.InvoiceSequenceModel{
			TenantID:  tenantID,
			LastValue: 1,
			UpdatedAt: time.Now(),
		}
		if err := r.db.WithContext(ctx).Create(&seq).Error; err != nil {
			return 0, err
		}
		return seq.LastValue, nil
	}
	if err != nil {
		return 0, err
	}

	seq.LastValue++
	seq.UpdatedAt = time.Now()
	if err := r.db.WithContext(ctx).Save(&seq).Error; err != nil {
		return 0, err
	}
	return seq.LastValue, nil
}
