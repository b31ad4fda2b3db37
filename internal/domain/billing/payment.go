package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zoravo/oms/internal/domain/shared"
)

// PaymentMode represents how a payment was made
type PaymentMode string

const (
	PaymentModeCash         PaymentMode = "cash"
	PaymentModeCard         PaymentMode = "card"
	PaymentModeUPI          PaymentMode = "upi"
	PaymentModeBankTransfer PaymentMode = "bank_transfer"
	PaymentModeCheque       PaymentMode = "cheque"
	PaymentModeOther        PaymentMode = "other"
)

// IsValid checks if the payment mode is valid
func (m PaymentMode) IsValid() bool {
	switch m {
	case PaymentModeCash, PaymentModeCard, PaymentModeUPI,
		PaymentModeBankTransfer, PaymentModeCheque, PaymentModeOther:
		return true
	}
	return false
}

// Payment represents a payment recorded against exactly one invoice.
// Inserting, updating or deleting a payment must run in the same
// transaction that recomputes the owning invoice's paid/balance/status.
type Payment struct {
	shared.BaseEntity
	InvoiceID       uuid.UUID       `json:"invoice_id"`
	TenantID        uuid.UUID       `json:"tenant_id"`
	Amount          decimal.Decimal `json:"amount"`
	PaymentMode     PaymentMode     `json:"payment_mode"`
	PaymentDate     time.Time       `json:"payment_date"`
	ReferenceNumber string          `json:"reference_number,omitempty"`
	PaidBy          string          `json:"paid_by,omitempty"`
	Notes           string          `json:"notes,omitempty"`
}

// NewPayment creates a new payment against an invoice
func NewPayment(
	tenantID uuid.UUID,
	invoiceID uuid.UUID,
	amount decimal.Decimal,
	mode PaymentMode,
	paymentDate time.Time,
	referenceNumber string,
	paidBy string,
	notes string,
) (*Payment, error) {
	if tenantID == uuid.Nil {
		return nil, shared.ErrTenantRequired
	}
	if invoiceID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INVOICE", "Invoice ID cannot be empty")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if !mode.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_MODE", "Payment mode is not valid")
	}
	if paymentDate.IsZero() {
		paymentDate = time.Now()
	}

	return &Payment{
		BaseEntity:      shared.NewBaseEntity(),
		InvoiceID:       invoiceID,
		TenantID:        tenantID,
		Amount:          amount,
		PaymentMode:     mode,
		PaymentDate:     paymentDate,
		ReferenceNumber: referenceNumber,
		PaidBy:          paidBy,
		Notes:           notes,
	}, nil
}

// Amend updates the mutable fields of a payment
func (p *Payment) Amend(amount decimal.Decimal, mode PaymentMode, paymentDate time.Time, referenceNumber, paidBy, notes string) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if !mode.IsValid() {
		return shared.NewDomainError("INVALID_PAYMENT_MODE", "Payment mode is not valid")
	}

	p.Amount = amount
	p.PaymentMode = mode
	if !paymentDate.IsZero() {
		p.PaymentDate = paymentDate
	}
	p.ReferenceNumber = referenceNumber
	p.PaidBy = paidBy
	p.Notes = notes
	p.UpdatedAt = time.Now()

	return nil
}
