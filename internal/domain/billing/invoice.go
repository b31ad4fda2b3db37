package billing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zoravo/oms/internal/domain/shared"
)

// InvoiceStatus represents the lifecycle status of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"     // Created, no invoice number yet
	InvoiceStatusIssued    InvoiceStatus = "issued"    // Numbered and sent to the customer
	InvoiceStatusPartial   InvoiceStatus = "partial"   // Partially paid, 0 < paid < total
	InvoiceStatusPaid      InvoiceStatus = "paid"      // Fully paid, balance = 0
	InvoiceStatusOverdue   InvoiceStatus = "overdue"   // Past due date with outstanding balance
	InvoiceStatusCancelled InvoiceStatus = "cancelled" // Cancelled, terminal
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusIssued, InvoiceStatusPartial,
		InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// IsTerminal returns true if no further transitions are permitted
func (s InvoiceStatus) IsTerminal() bool {
	return s == InvoiceStatusCancelled
}

// CanBecomeOverdue returns true if the overdue sweep may transition this status
func (s InvoiceStatus) CanBecomeOverdue() bool {
	return s == InvoiceStatusIssued || s == InvoiceStatusPartial
}

// AcceptsPayments returns true if payments may be recorded in this status
func (s InvoiceStatus) AcceptsPayments() bool {
	return s != InvoiceStatusCancelled
}

// AllInvoiceStatuses returns every valid status, in lifecycle order
func AllInvoiceStatuses() []InvoiceStatus {
	return []InvoiceStatus{
		InvoiceStatusDraft,
		InvoiceStatusIssued,
		InvoiceStatusPartial,
		InvoiceStatusPaid,
		InvoiceStatusOverdue,
		InvoiceStatusCancelled,
	}
}

// LineItem represents a single billable line owned by an invoice.
// line_total defaults to quantity * unit_price unless explicitly overridden.
type LineItem struct {
	ID          uuid.UUID       `json:"id"`
	InvoiceID   uuid.UUID       `json:"invoice_id"`
	TenantID    uuid.UUID       `json:"tenant_id"`
	ProductName string          `json:"product_name"`
	Brand       string          `json:"brand,omitempty"`
	Department  string          `json:"department,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// LineItemInput is the caller-supplied shape for a new line item
type LineItemInput struct {
	ProductName string
	Brand       string
	Department  string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	// LineTotal overrides quantity * unit_price when non-nil
	LineTotal *decimal.Decimal
}

// isValid reports whether the input can become a line item
func (in LineItemInput) isValid() bool {
	if in.ProductName == "" {
		return false
	}
	if in.UnitPrice.IsNegative() {
		return false
	}
	if in.Quantity.LessThanOrEqual(decimal.Zero) {
		return false
	}
	return true
}

// Invoice is the aggregate root for the invoice lifecycle.
// Totals are maintained by the aggregate itself: total_amount = amount + tax_amount
// and balance_amount = total_amount - paid_amount hold after every mutation.
type Invoice struct {
	shared.TenantAggregateRoot
	VehicleInwardID uuid.UUID       `json:"vehicle_inward_id"`
	VehicleID       uuid.UUID       `json:"vehicle_id"`
	CustomerName    string          `json:"customer_name"`
	InvoiceNumber   *string         `json:"invoice_number"` // nil until issued
	Status          InvoiceStatus   `json:"status"`
	InvoiceDate     *time.Time      `json:"invoice_date"`
	DueDate         *time.Time      `json:"due_date"`
	Amount          decimal.Decimal `json:"amount"`       // subtotal after discount
	TotalAmount     decimal.Decimal `json:"total_amount"` // amount + tax
	PaidAmount      decimal.Decimal `json:"paid_amount"`
	BalanceAmount   decimal.Decimal `json:"balance_amount"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	DiscountReason  string          `json:"discount_reason,omitempty"`
	TaxAmount       decimal.Decimal `json:"tax_amount"`
	Notes           string          `json:"notes,omitempty"`
	LineItems       []LineItem      `json:"line_items"`
	IssuedAt        *time.Time      `json:"issued_at"`
	CancelledAt     *time.Time      `json:"cancelled_at"`
	CancelledReason string          `json:"cancelled_reason,omitempty"`
}

// NewInvoice creates a draft invoice from a vehicle intake record and line items.
// At least one valid line item is required; invalid items are rejected with a
// count so the caller can surface which portion of the batch failed.
// Negative subtotals after discount and negative totals after tax clamp to zero.
func NewInvoice(
	tenantID uuid.UUID,
	vehicleInwardID uuid.UUID,
	vehicleID uuid.UUID,
	customerName string,
	items []LineItemInput,
	discount decimal.Decimal,
	discountReason string,
	tax decimal.Decimal,
	notes string,
	invoiceDate *time.Time,
	dueDate *time.Time,
) (*Invoice, error) {
	if tenantID == uuid.Nil {
		return nil, shared.ErrTenantRequired
	}
	if vehicleInwardID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_VEHICLE_RECORD", "Vehicle inward ID cannot be empty")
	}
	if len(items) == 0 {
		return nil, shared.NewDomainError("NO_LINE_ITEMS", "At least one line item is required")
	}

	invalid := 0
	for _, in := range items {
		if !in.isValid() {
			invalid++
		}
	}
	if invalid > 0 {
		return nil, shared.NewDomainError("INVALID_LINE_ITEMS",
			fmt.Sprintf("%d line item(s) have a missing product name, non-positive quantity, or negative unit price", invalid))
	}
	if discount.IsNegative() {
		return nil, shared.NewDomainError("INVALID_DISCOUNT", "Discount cannot be negative")
	}
	if tax.IsNegative() {
		return nil, shared.NewDomainError("INVALID_TAX", "Tax cannot be negative")
	}

	inv := &Invoice{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		VehicleInwardID:     vehicleInwardID,
		VehicleID:           vehicleID,
		CustomerName:        customerName,
		Status:              InvoiceStatusDraft,
		InvoiceDate:         invoiceDate,
		DueDate:             dueDate,
		DiscountAmount:      discount,
		DiscountReason:      discountReason,
		TaxAmount:           tax,
		Notes:               notes,
		PaidAmount:          decimal.Zero,
	}

	inv.LineItems = make([]LineItem, 0, len(items))
	for _, in := range items {
		total := in.Quantity.Mul(in.UnitPrice)
		if in.LineTotal != nil {
			total = *in.LineTotal
		}
		inv.LineItems = append(inv.LineItems, LineItem{
			ID:          uuid.New(),
			InvoiceID:   inv.ID,
			TenantID:    tenantID,
			ProductName: in.ProductName,
			Brand:       in.Brand,
			Department:  in.Department,
			Quantity:    in.Quantity,
			UnitPrice:   in.UnitPrice,
			LineTotal:   total,
		})
	}

	inv.recalculateTotals()
	inv.AddDomainEvent(NewInvoiceCreatedEvent(inv))

	return inv, nil
}

// recalculateTotals derives amount, total and balance from line items,
// discount, tax and paid amount, clamping intermediate results at zero.
func (inv *Invoice) recalculateTotals() {
	subtotal := decimal.Zero
	for _, li := range inv.LineItems {
		subtotal = subtotal.Add(li.LineTotal)
	}

	amount := subtotal.Sub(inv.DiscountAmount)
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	total := amount.Add(inv.TaxAmount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	inv.Amount = amount
	inv.TotalAmount = total
	inv.BalanceAmount = total.Sub(inv.PaidAmount)
}

// Subtotal returns the sum of line totals before discount and tax
func (inv *Invoice) Subtotal() decimal.Decimal {
	subtotal := decimal.Zero
	for _, li := range inv.LineItems {
		subtotal = subtotal.Add(li.LineTotal)
	}
	return subtotal
}

// Issue transitions the invoice from draft to issued, assigning the given
// invoice number. Valid only when the current status is exactly draft.
func (inv *Invoice) Issue(invoiceNumber string, now time.Time) error {
	if inv.Status != InvoiceStatusDraft {
		return shared.NewDomainError("INVALID_STATE", "Only draft invoices can be issued")
	}
	if invoiceNumber == "" {
		return shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot be empty")
	}

	inv.InvoiceNumber = &invoiceNumber
	inv.Status = InvoiceStatusIssued
	inv.IssuedAt = &now
	if inv.InvoiceDate == nil {
		date := now
		inv.InvoiceDate = &date
	}
	inv.UpdatedAt = now
	inv.IncrementVersion()

	inv.AddDomainEvent(NewInvoiceIssuedEvent(inv))

	return nil
}

// Cancel cancels the invoice. Valid for any status except paid.
// Cancellation is terminal: no further transitions are permitted.
func (inv *Invoice) Cancel(reason string, now time.Time) error {
	if inv.Status == InvoiceStatusPaid {
		return shared.NewDomainError("INVALID_STATE", "Cannot cancel paid invoice")
	}
	if inv.Status == InvoiceStatusCancelled {
		return shared.NewDomainError("INVALID_STATE", "Invoice is already cancelled")
	}

	inv.Status = InvoiceStatusCancelled
	inv.CancelledAt = &now
	inv.CancelledReason = reason
	inv.UpdatedAt = now
	inv.IncrementVersion()

	inv.AddDomainEvent(NewInvoiceCancelledEvent(inv))

	return nil
}

// MarkOverdue transitions an issued or partially paid invoice past its due
// date to overdue. The transition is one-way: only a payment bringing the
// balance to zero exits the overdue state.
func (inv *Invoice) MarkOverdue(now time.Time) error {
	if !inv.Status.CanBecomeOverdue() {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot mark %s invoice as overdue", inv.Status))
	}
	if inv.DueDate == nil || !inv.DueDate.Before(now) {
		return shared.NewDomainError("NOT_DUE", "Invoice due date has not passed")
	}

	inv.Status = InvoiceStatusOverdue
	inv.UpdatedAt = now
	inv.IncrementVersion()

	inv.AddDomainEvent(NewInvoiceOverdueEvent(inv))

	return nil
}

// ApplyPaymentTotal recomputes paid/balance amounts and status from the
// authoritative sum of payment rows. It is called inside the same transaction
// as any payment insert, update or delete, so the invariants hold at commit.
func (inv *Invoice) ApplyPaymentTotal(paidTotal decimal.Decimal, now time.Time) error {
	if inv.Status == InvoiceStatusCancelled {
		return shared.NewDomainError("INVALID_STATE", "Cannot record payment against cancelled invoice")
	}
	if paidTotal.IsNegative() {
		return shared.NewDomainError("INVALID_AMOUNT", "Paid total cannot be negative")
	}

	wasUnpaid := !inv.Status.IsTerminal() && inv.Status != InvoiceStatusPaid

	inv.PaidAmount = paidTotal
	inv.BalanceAmount = inv.TotalAmount.Sub(paidTotal)

	switch {
	case paidTotal.GreaterThanOrEqual(inv.TotalAmount) && inv.TotalAmount.IsPositive():
		inv.Status = InvoiceStatusPaid
		if wasUnpaid {
			inv.AddDomainEvent(NewInvoicePaidEvent(inv))
		}
	case paidTotal.IsPositive():
		// A partially paid overdue invoice stays overdue until cleared.
		if inv.Status != InvoiceStatusOverdue {
			inv.Status = InvoiceStatusPartial
		}
	default:
		// All payments were removed; fall back to the pre-payment status.
		if inv.Status == InvoiceStatusPartial || inv.Status == InvoiceStatusPaid {
			inv.Status = InvoiceStatusIssued
		}
	}

	inv.UpdatedAt = now
	inv.IncrementVersion()

	return nil
}

// IsOverdue returns true if the invoice is past due with an open balance
func (inv *Invoice) IsOverdue(now time.Time) bool {
	if !inv.Status.CanBecomeOverdue() && inv.Status != InvoiceStatusOverdue {
		return false
	}
	if inv.DueDate == nil {
		return false
	}
	return inv.DueDate.Before(now)
}

// IsDraft returns true if the invoice has not been issued yet
func (inv *Invoice) IsDraft() bool {
	return inv.Status == InvoiceStatusDraft
}

// IsPaid returns true if the invoice is fully paid
func (inv *Invoice) IsPaid() bool {
	return inv.Status == InvoiceStatusPaid
}

// IsCancelled returns true if the invoice has been cancelled
func (inv *Invoice) IsCancelled() bool {
	return inv.Status == InvoiceStatusCancelled
}
