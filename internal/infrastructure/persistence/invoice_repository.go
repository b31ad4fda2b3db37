package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/zoravo/oms/internal/domain/billing"
	"github.com/zoravo/oms/internal/domain/shared"
	"github.com/zoravo/oms/internal/infrastructure/persistence/models"
	"github.com/zoravo/oms/internal/infrastructure/persistence/tenant"
)

// DefaultSweepBatchSize bounds how many due invoices a single overdue sweep
// loads. A sweep that hits the bound leaves the remainder for the next run.
const DefaultSweepBatchSize = 500

// GormInvoiceRepository implements billing.InvoiceRepository using GORM.
// Lookups return (nil, nil) when no row matches; callers translate that into
// their own not-found errors.
type GormInvoiceRepository struct {
	db             *gorm.DB
	sweepBatchSize int
}

// NewGormInvoiceRepository creates a new GORM-based invoice repository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db, sweepBatchSize: DefaultSweepBatchSize}
}

// NewGormInvoiceRepositoryWithBatchSize creates a repository with a custom
// overdue sweep batch size.
func NewGormInvoiceRepositoryWithBatchSize(db *gorm.DB, batchSize int) *GormInvoiceRepository {
	if batchSize <= 0 {
		batchSize = DefaultSweepBatchSize
	}
	return &GormInvoiceRepository{db: db, sweepBatchSize: batchSize}
}

var _ billing.InvoiceRepository = (*GormInvoiceRepository)(nil)

// FindByID finds an invoice by ID across all tenants
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	var model models.InvoiceModel
	err := r.db.WithContext(ctx).
		Preload("LineItems").
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

// FindByIDForTenant finds an invoice by ID scoped to the tenant
func (r *GormInvoiceRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*billing.Invoice, error) {
	var model models.InvoiceModel
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(tenantID)).
		Preload("LineItems").
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

// FindByIDForTenantLocked loads the invoice with a FOR UPDATE row lock. The
// lock applies to the invoice row only; line items load without one.
func (r *GormInvoiceRepository) FindByIDForTenantLocked(ctx context.Context, tenantID, id uuid.UUID) (*billing.Invoice, error) {
	var model models.InvoiceModel
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Scopes(tenant.Scope(tenantID)).
		Preload("LineItems").
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

// FindAllForTenant returns invoices for the tenant matching the filter
func (r *GormInvoiceRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter billing.InvoiceFilter) ([]billing.Invoice, error) {
	query := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Scopes(tenant.Scope(tenantID))
	query = applyInvoiceFilter(query, filter)

	orderBy := ValidateSortField(filter.OrderBy, InvoiceSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)
	query = query.Order(orderBy + " " + orderDir)

	if filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		if offset < 0 {
			offset = 0
		}
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	var invoiceModels []models.InvoiceModel
	if err := query.Preload("LineItems").Find(&invoiceModels).Error; err != nil {
		return nil, err
	}

	invoices := make([]billing.Invoice, len(invoiceModels))
	for i := range invoiceModels {
		invoices[i] = *invoiceModels[i].ToDomain()
	}
	return invoices, nil
}

// CountForTenant counts invoices for the tenant matching the filter
func (r *GormInvoiceRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter billing.InvoiceFilter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Scopes(tenant.Scope(tenantID))
	query = applyInvoiceFilter(query, filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FindDueForOverdue returns issued/partial invoices across all tenants whose
// due date lies strictly before the given instant, oldest due first.
func (r *GormInvoiceRepository) FindDueForOverdue(ctx context.Context, now time.Time) ([]billing.Invoice, error) {
	var invoiceModels []models.InvoiceModel
	err := r.db.WithContext(ctx).
		Where("status IN ?", []billing.InvoiceStatus{billing.InvoiceStatusIssued, billing.InvoiceStatusPartial}).
		Where("due_date IS NOT NULL AND due_date < ?", now).
		Order("due_date ASC").
		Limit(r.sweepBatchSize).
		Find(&invoiceModels).Error
	if err != nil {
		return nil, err
	}

	invoices := make([]billing.Invoice, len(invoiceModels))
	for i := range invoiceModels {
		invoices[i] = *invoiceModels[i].ToDomain()
	}
	return invoices, nil
}

// Create persists the invoice together with its line items atomically
func (r *GormInvoiceRepository) Create(ctx context.Context, invoice *billing.Invoice) error {
	model := models.InvoiceModelFromDomain(invoice)
	return r.db.WithContext(ctx).Create(model).Error
}

// Save updates the invoice row with an optimistic version check. A writer
// that committed after this snapshot was loaded leaves the row's version
// ahead of it; the update then matches no rows and ErrConcurrencyConflict is
// returned instead of overwriting the newer state. Line items are immutable
// after creation and are deliberately left untouched.
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *billing.Invoice) error {
	model := models.InvoiceModelFromDomain(invoice)
	result := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Omit(clause.Associations).
		Select("*").
		Where("id = ? AND version = ?", invoice.ID, invoice.Version-1).
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// UpdateFields applies a partial field patch scoped to the tenant
func (r *GormInvoiceRepository) UpdateFields(ctx context.Context, tenantID, id uuid.UUID, fields map[string]any) error {
	result := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Scopes(tenant.Scope(tenantID)).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError("NOT_FOUND", "Invoice not found")
	}
	return nil
}

// SummaryForTenant aggregates invoice totals for the tenant. Draft and
// cancelled invoices are excluded from the monetary totals but appear in the
// per-status counts.
func (r *GormInvoiceRepository) SummaryForTenant(ctx context.Context, tenantID uuid.UUID) (*billing.InvoiceSummary, error) {
	billableStatuses := []billing.InvoiceStatus{
		billing.InvoiceStatusIssued,
		billing.InvoiceStatusPartial,
		billing.InvoiceStatusPaid,
		billing.InvoiceStatusOverdue,
	}

	var totals struct {
		TotalInvoiced    decimal.Decimal
		TotalReceived    decimal.Decimal
		TotalOutstanding decimal.Decimal
	}
	err := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Scopes(tenant.Scope(tenantID)).
		Where("status IN ?", billableStatuses).
		Select("COALESCE(SUM(total_amount), 0) AS total_invoiced, " +
			"COALESCE(SUM(paid_amount), 0) AS total_received, " +
			"COALESCE(SUM(balance_amount), 0) AS total_outstanding").
		Scan(&totals).Error
	if err != nil {
		return nil, err
	}

	var overdue struct {
		TotalOverdue decimal.Decimal
	}
	err = r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Scopes(tenant.Scope(tenantID)).
		Where("status = ?", billing.InvoiceStatusOverdue).
		Select("COALESCE(SUM(balance_amount), 0) AS total_overdue").
		Scan(&overdue).Error
	if err != nil {
		return nil, err
	}

	var statusCounts []struct {
		Status billing.InvoiceStatus
		Count  int64
	}
	err = r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Scopes(tenant.Scope(tenantID)).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&statusCounts).Error
	if err != nil {
		return nil, err
	}

	byStatus := make(map[billing.InvoiceStatus]int64, len(statusCounts))
	for _, sc := range statusCounts {
		byStatus[sc.Status] = sc.Count
	}

	return &billing.InvoiceSummary{
		TotalInvoiced:    totals.TotalInvoiced,
		TotalReceived:    totals.TotalReceived,
		TotalOutstanding: totals.TotalOutstanding,
		TotalOverdue:     overdue.TotalOverdue,
		ByStatus:         byStatus,
	}, nil
}

// applyInvoiceFilter translates an InvoiceFilter into WHERE conditions
func applyInvoiceFilter(query *gorm.DB, filter billing.InvoiceFilter) *gorm.DB {
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.VehicleInwardID != nil {
		query = query.Where("vehicle_inward_id = ?", *filter.VehicleInwardID)
	}
	if filter.FromDate != nil {
		query = query.Where("invoice_date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("invoice_date <= ?", *filter.ToDate)
	}
	if filter.Overdue != nil {
		now := time.Now()
		overdueStatuses := []billing.InvoiceStatus{billing.InvoiceStatusIssued, billing.InvoiceStatusPartial}
		if *filter.Overdue {
			query = query.Where("status = ? OR (status IN ? AND due_date < ?)",
				billing.InvoiceStatusOverdue, overdueStatuses, now)
		} else {
			query = query.Where("status <> ? AND (due_date IS NULL OR due_date >= ? OR status NOT IN ?)",
				billing.InvoiceStatusOverdue, now, overdueStatuses)
		}
	}
	if filter.Search != "" {
		keyword := "%" + filter.Search + "%"
		query = query.Where("customer_name ILIKE ? OR invoice_number ILIKE ?", keyword, keyword)
	}
	return query
}
