package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zoravo/oms/internal/domain/shared"
)

// InvoiceFilter defines filtering options for invoice list queries
type InvoiceFilter struct {
	shared.Filter
	Status          *InvoiceStatus
	VehicleInwardID *uuid.UUID
	FromDate        *time.Time
	ToDate          *time.Time
	Overdue         *bool
}

// InvoiceSummary aggregates invoice totals for a tenant
type InvoiceSummary struct {
	TotalInvoiced    decimal.Decimal         `json:"total_invoiced"`
	TotalReceived    decimal.Decimal         `json:"total_received"`
	TotalOutstanding decimal.Decimal         `json:"total_outstanding"`
	TotalOverdue     decimal.Decimal         `json:"total_overdue"`
	ByStatus         map[InvoiceStatus]int64 `json:"by_status"`
}

// InvoiceRepository defines persistence operations for invoices.
// Methods taking a tenant ID scope every query to that tenant; rows belonging
// to other tenants are reported as not found, never as forbidden.
type InvoiceRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Invoice, error)
	// FindByIDForTenantLocked loads the invoice with a row-level write lock.
	// Only meaningful inside a transaction started via TxRunner.
	FindByIDForTenantLocked(ctx context.Context, tenantID, id uuid.UUID) (*Invoice, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter InvoiceFilter) ([]Invoice, error)
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter InvoiceFilter) (int64, error)
	// FindDueForOverdue returns issued/partial invoices across all tenants
	// whose due date lies strictly before the given instant.
	FindDueForOverdue(ctx context.Context, now time.Time) ([]Invoice, error)
	// Create persists the invoice together with its line items atomically.
	Create(ctx context.Context, invoice *Invoice) error
	Save(ctx context.Context, invoice *Invoice) error
	// UpdateFields applies a partial field patch scoped to the tenant.
	UpdateFields(ctx context.Context, tenantID, id uuid.UUID, fields map[string]any) error
	SummaryForTenant(ctx context.Context, tenantID uuid.UUID) (*InvoiceSummary, error)
}

// PaymentRepository defines persistence operations for payments
type PaymentRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Payment, error)
	FindByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]Payment, error)
	Create(ctx context.Context, payment *Payment) error
	Save(ctx context.Context, payment *Payment) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	// SumForInvoice returns the authoritative total of payment rows for an
	// invoice. Callers recompute invoice balances from this inside the same
	// transaction as any payment write.
	SumForInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) (decimal.Decimal, error)
}

// InvoiceSequenceRepository allocates per-tenant invoice numbers.
// Next must be called inside a transaction; implementations take a row-level
// lock on the tenant's counter so concurrent issuances cannot collide.
type InvoiceSequenceRepository interface {
	Next(ctx context.Context, tenantID uuid.UUID) (int64, error)
}

// TxRepositories exposes transaction-scoped repositories
type TxRepositories interface {
	Invoices() InvoiceRepository
	Payments() PaymentRepository
	Sequences() InvoiceSequenceRepository
}

// TxRunner executes a function inside a single database transaction.
// All repository calls made through the provided TxRepositories share one
// commit boundary: either everything inside fn is persisted, or nothing is.
type TxRunner interface {
	InTx(ctx context.Context, fn func(tx TxRepositories) error) error
}

// FormatInvoiceNumber renders a sequence value as a tenant-prefixed invoice
// number: {tenantCode}-{sequence:06d}, or INV-{sequence:06d} when the tenant
// has no code.
func FormatInvoiceNumber(tenantCode string, sequence int64) string {
	prefix := tenantCode
	if prefix == "" {
		prefix = "INV"
	}
	return fmt.Sprintf("%s-%06d", prefix, sequence)
}
