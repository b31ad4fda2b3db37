package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/zoravo/oms/internal/domain/billing"
	"github.com/zoravo/oms/internal/domain/shared"
	"github.com/zoravo/oms/internal/infrastructure/persistence/models"
)

// newMockGormDB creates a GORM connection backed by sqlmock
func newMockGormDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return gormDB, mock, mockDB
}

func invoiceColumns() []string {
	return []string{
		"id", "created_at", "updated_at", "version", "tenant_id",
		"vehicle_inward_id", "vehicle_id", "customer_name", "invoice_number",
		"status", "invoice_date", "due_date", "amount", "total_amount",
		"paid_amount", "balance_amount", "discount_amount", "tax_amount",
	}
}

func TestGormInvoiceRepository_FindByIDForTenant(t *testing.T) {
	t.Run("finds existing invoice with line items", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormInvoiceRepository(gormDB)

		tenantID := uuid.New()
		invoiceID := uuid.New()
		now := time.Now()

		rows := sqlmock.NewRows(invoiceColumns()).
			AddRow(invoiceID, now, now, 1, tenantID,
				uuid.New(), uuid.New(), "Asha Motors", "GARAGE1-000007",
				"issued", now, now.Add(14*24*time.Hour),
				decimal.NewFromInt(1000), decimal.NewFromInt(1180),
				decimal.Zero, decimal.NewFromInt(1180),
				decimal.Zero, decimal.NewFromInt(180))

		mock.ExpectQuery(`SELECT \* FROM "invoices" WHERE tenant_id = \$1 AND id = \$2`).
			WithArgs(tenantID, invoiceID, 1).
			WillReturnRows(rows)
		mock.ExpectQuery(`SELECT \* FROM "invoice_line_items"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "invoice_id", "tenant_id", "product_name", "quantity", "unit_price", "line_total"}).
				AddRow(uuid.New(), invoiceID, tenantID, "Brake pads", decimal.NewFromInt(2), decimal.NewFromInt(500), decimal.NewFromInt(1000)))

		invoice, err := repo.FindByIDForTenant(context.Background(), tenantID, invoiceID)

		require.NoError(t, err)
		require.NotNil(t, invoice)
		assert.Equal(t, invoiceID, invoice.ID)
		assert.Equal(t, tenantID, invoice.TenantID)
		assert.Equal(t, billing.InvoiceStatusIssued, invoice.Status)
		require.NotNil(t, invoice.InvoiceNumber)
		assert.Equal(t, "GARAGE1-000007", *invoice.InvoiceNumber)
		require.Len(t, invoice.LineItems, 1)
		assert.Equal(t, "Brake pads", invoice.LineItems[0].ProductName)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns nil for missing invoice", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormInvoiceRepository(gormDB)

		tenantID := uuid.New()
		invoiceID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "invoices"`).
			WithArgs(tenantID, invoiceID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		invoice, err := repo.FindByIDForTenant(context.Background(), tenantID, invoiceID)

		assert.NoError(t, err)
		assert.Nil(t, invoice)
	})

	t.Run("rejects nil tenant", func(t *testing.T) {
		gormDB, _, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormInvoiceRepository(gormDB)

		_, err := repo.FindByIDForTenant(context.Background(), uuid.Nil, uuid.New())

		assert.Error(t, err)
	})
}

func TestGormInvoiceRepository_FindByIDForTenantLocked(t *testing.T) {
	t.Run("acquires a row lock", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormInvoiceRepository(gormDB)

		tenantID := uuid.New()
		invoiceID := uuid.New()
		now := time.Now()

		rows := sqlmock.NewRows(invoiceColumns()).
			AddRow(invoiceID, now, now, 1, tenantID,
				uuid.New(), uuid.New(), "Asha Motors", nil,
				"draft", nil, nil, decimal.Zero, decimal.Zero,
				decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero)

		mock.ExpectQuery(`SELECT \* FROM "invoices" WHERE tenant_id = \$1 AND id = \$2 .* FOR UPDATE`).
			WithArgs(tenantID, invoiceID, 1).
			WillReturnRows(rows)
		mock.ExpectQuery(`SELECT \* FROM "invoice_line_items"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "invoice_id"}))

		invoice, err := repo.FindByIDForTenantLocked(context.Background(), tenantID, invoiceID)

		require.NoError(t, err)
		require.NotNil(t, invoice)
		assert.True(t, invoice.IsDraft())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormInvoiceRepository_FindDueForOverdue(t *testing.T) {
	t.Run("selects issued and partial invoices past due across tenants", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormInvoiceRepository(gormDB)

		now := time.Now()
		due := now.Add(-48 * time.Hour)

		rows := sqlmock.NewRows(invoiceColumns()).
			AddRow(uuid.New(), now, now, 2, uuid.New(),
				uuid.New(), uuid.New(), "Asha Motors", "GARAGE1-000001",
				"issued", now.Add(-30*24*time.Hour), due,
				decimal.NewFromInt(500), decimal.NewFromInt(500),
				decimal.Zero, decimal.NewFromInt(500),
				decimal.Zero, decimal.Zero).
			AddRow(uuid.New(), now, now, 3, uuid.New(),
				uuid.New(), uuid.New(), "Verma Garage", "GARAGE2-000004",
				"partial", now.Add(-20*24*time.Hour), due,
				decimal.NewFromInt(900), decimal.NewFromInt(900),
				decimal.NewFromInt(400), decimal.NewFromInt(500),
				decimal.Zero, decimal.Zero)

		mock.ExpectQuery(`SELECT \* FROM "invoices" WHERE status IN .* AND .*due_date < \$3.* ORDER BY due_date ASC LIMIT \$4`).
			WithArgs(billing.InvoiceStatusIssued, billing.InvoiceStatusPartial, now, DefaultSweepBatchSize).
			WillReturnRows(rows)

		invoices, err := repo.FindDueForOverdue(context.Background(), now)

		require.NoError(t, err)
		require.Len(t, invoices, 2)
		assert.Equal(t, billing.InvoiceStatusIssued, invoices[0].Status)
		assert.Equal(t, billing.InvoiceStatusPartial, invoices[1].Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("respects custom batch size", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormInvoiceRepositoryWithBatchSize(gormDB, 25)

		now := time.Now()
		mock.ExpectQuery(`SELECT \* FROM "invoices"`).
			WithArgs(billing.InvoiceStatusIssued, billing.InvoiceStatusPartial, now, 25).
			WillReturnRows(sqlmock.NewRows(invoiceColumns()))

		invoices, err := repo.FindDueForOverdue(context.Background(), now)

		require.NoError(t, err)
		assert.Empty(t, invoices)
	})
}

// issuedTestInvoice builds an issued invoice whose due date is already past
func issuedTestInvoice(t *testing.T, tenantID uuid.UUID, due time.Time) *billing.Invoice {
	t.Helper()
	inv, err := billing.NewInvoice(tenantID, uuid.New(), uuid.New(), "C",
		[]billing.LineItemInput{{ProductName: "Brake pads", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(240)}},
		decimal.Zero, "", decimal.Zero, "", nil, &due)
	require.NoError(t, err)
	require.NoError(t, inv.Issue("GAR01-000001", time.Now().Add(-48*time.Hour)))
	return inv
}

func TestGormInvoiceRepository_Save(t *testing.T) {
	t.Run("updates the row matching the snapshot's prior version", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormInvoiceRepository(gormDB)

		inv := issuedTestInvoice(t, uuid.New(), time.Now().Add(-24*time.Hour))

		mock.ExpectExec(`UPDATE "invoices" SET .+ WHERE id = \$[0-9]+ AND version = \$[0-9]+`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Save(context.Background(), inv))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects a snapshot another writer already replaced", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormInvoiceRepository(gormDB)

		inv := issuedTestInvoice(t, uuid.New(), time.Now().Add(-24*time.Hour))

		mock.ExpectExec(`UPDATE "invoices" SET .+ WHERE id = \$[0-9]+ AND version = \$[0-9]+`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Save(context.Background(), inv)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func newSQLiteInvoiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.InvoiceModel{}, &models.InvoiceLineItemModel{}))
	return db
}

// A sweep loads its batch, a payment for the full balance commits, then the
// sweep tries to persist its stale snapshot. The stale write must fail and
// the paid state must survive.
func TestGormInvoiceRepository_SaveStaleSnapshotCannotClobberPayment(t *testing.T) {
	db := newSQLiteInvoiceDB(t)
	repo := NewGormInvoiceRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()
	inv := issuedTestInvoice(t, tenantID, time.Now().Add(-24*time.Hour))
	require.NoError(t, repo.Create(ctx, inv))

	sweepCopy, err := repo.FindByIDForTenant(ctx, tenantID, inv.ID)
	require.NoError(t, err)
	require.NotNil(t, sweepCopy)

	paidCopy, err := repo.FindByIDForTenant(ctx, tenantID, inv.ID)
	require.NoError(t, err)
	require.NoError(t, paidCopy.ApplyPaymentTotal(paidCopy.TotalAmount, time.Now()))
	require.NoError(t, repo.Save(ctx, paidCopy))

	require.NoError(t, sweepCopy.MarkOverdue(time.Now()))
	err = repo.Save(ctx, sweepCopy)
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)

	final, err := repo.FindByIDForTenant(ctx, tenantID, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, billing.InvoiceStatusPaid, final.Status)
	assert.True(t, final.PaidAmount.Equal(final.TotalAmount))
	assert.True(t, final.BalanceAmount.IsZero())
}

func TestGormInvoiceRepository_UpdateFields(t *testing.T) {
	t.Run("patches fields scoped to tenant", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormInvoiceRepository(gormDB)

		tenantID := uuid.New()
		invoiceID := uuid.New()

		mock.ExpectExec(`UPDATE "invoices" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.UpdateFields(context.Background(), tenantID, invoiceID, map[string]any{
			"notes":      "Updated after callback",
			"updated_at": time.Now(),
		})

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports not found when no row matches", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormInvoiceRepository(gormDB)

		mock.ExpectExec(`UPDATE "invoices" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdateFields(context.Background(), uuid.New(), uuid.New(), map[string]any{
			"notes": "does not exist",
		})

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "NOT_FOUND", domainErr.Code)
	})
}

func TestGormInvoiceRepository_SummaryForTenant(t *testing.T) {
	t.Run("aggregates totals and status counts", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormInvoiceRepository(gormDB)

		tenantID := uuid.New()

		mock.ExpectQuery(`SELECT COALESCE\(SUM\(total_amount\), 0\) AS total_invoiced`).
			WillReturnRows(sqlmock.NewRows([]string{"total_invoiced", "total_received", "total_outstanding"}).
				AddRow(decimal.NewFromInt(5000), decimal.NewFromInt(3000), decimal.NewFromInt(2000)))
		mock.ExpectQuery(`SELECT COALESCE\(SUM\(balance_amount\), 0\) AS total_overdue`).
			WillReturnRows(sqlmock.NewRows([]string{"total_overdue"}).
				AddRow(decimal.NewFromInt(800)))
		mock.ExpectQuery(`SELECT status, COUNT\(\*\) AS count`).
			WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
				AddRow("issued", 3).
				AddRow("paid", 2).
				AddRow("overdue", 1))

		summary, err := repo.SummaryForTenant(context.Background(), tenantID)

		require.NoError(t, err)
		assert.True(t, summary.TotalInvoiced.Equal(decimal.NewFromInt(5000)))
		assert.True(t, summary.TotalReceived.Equal(decimal.NewFromInt(3000)))
		assert.True(t, summary.TotalOutstanding.Equal(decimal.NewFromInt(2000)))
		assert.True(t, summary.TotalOverdue.Equal(decimal.NewFromInt(800)))
		assert.Equal(t, int64(3), summary.ByStatus[billing.InvoiceStatusIssued])
		assert.Equal(t, int64(1), summary.ByStatus[billing.InvoiceStatusOverdue])
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
