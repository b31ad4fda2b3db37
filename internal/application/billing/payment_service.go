package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/zoravo/oms/internal/application/notification"
	"github.com/zoravo/oms/internal/domain/billing"
	notificationDomain "github.com/zoravo/oms/internal/domain/notification"
	"github.com/zoravo/oms/internal/domain/shared"
)

// IdempotencyStore guards against duplicate payment submissions. Reserve
// returns false when the key was already claimed by an earlier request.
type IdempotencyStore interface {
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// Idempotency keys outlive any reasonable client retry window.
const idempotencyTTL = 24 * time.Hour

// PaymentService records, amends and deletes payments. Every payment write
// recomputes the owning invoice's paid/balance amounts and status from the
// payments table inside the same transaction, holding a row lock on the
// invoice so concurrent payments cannot produce a lost update.
type PaymentService struct {
	tx          billing.TxRunner
	paymentRepo billing.PaymentRepository
	idempotency IdempotencyStore
	producer    notification.Producer
	logger      *zap.Logger
}

// NewPaymentService creates a new payment service
func NewPaymentService(
	tx billing.TxRunner,
	paymentRepo billing.PaymentRepository,
	idempotency IdempotencyStore,
	producer notification.Producer,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		tx:          tx,
		paymentRepo: paymentRepo,
		idempotency: idempotency,
		producer:    producer,
		logger:      logger,
	}
}

// RecordPaymentRequest represents a request to record a payment
type RecordPaymentRequest struct {
	Amount          decimal.Decimal `json:"amount" binding:"required"`
	PaymentMode     string          `json:"payment_mode" binding:"required"`
	PaymentDate     *time.Time      `json:"payment_date"`
	ReferenceNumber string          `json:"reference_number"`
	PaidBy          string          `json:"paid_by"`
	Notes           string          `json:"notes"`
	IdempotencyKey  string          `json:"-"` // Set from the Idempotency-Key header
}

// UpdatePaymentRequest represents a request to amend a payment
type UpdatePaymentRequest struct {
	Amount          decimal.Decimal `json:"amount" binding:"required"`
	PaymentMode     string          `json:"payment_mode" binding:"required"`
	PaymentDate     *time.Time      `json:"payment_date"`
	ReferenceNumber string          `json:"reference_number"`
	PaidBy          string          `json:"paid_by"`
	Notes           string          `json:"notes"`
}

// RecordPaymentResponse returns the payment together with the recomputed
// invoice state, so callers never read a stale balance.
type RecordPaymentResponse struct {
	Payment PaymentResponse  `json:"payment"`
	Invoice *InvoiceResponse `json:"invoice"`
}

// Record records a payment against an invoice. Cancelled invoices are
// rejected. The payment insert and the invoice recompute commit together.
func (s *PaymentService) Record(ctx context.Context, tenantID, invoiceID uuid.UUID, req RecordPaymentRequest) (*RecordPaymentResponse, error) {
	if tenantID == uuid.Nil {
		return nil, shared.ErrTenantRequired
	}

	if req.IdempotencyKey != "" {
		reserved, err := s.idempotency.Reserve(ctx, idempotencyKey(tenantID, invoiceID, req.IdempotencyKey), idempotencyTTL)
		if err != nil {
			s.logger.Warn("Idempotency store unavailable, proceeding without dedupe", zap.Error(err))
		} else if !reserved {
			return nil, shared.NewDomainError("DUPLICATE_REQUEST", "Payment with this idempotency key was already recorded")
		}
	}

	var (
		payment *billing.Payment
		invoice *billing.Invoice
	)

	err := s.tx.InTx(ctx, func(tx billing.TxRepositories) error {
		inv, err := tx.Invoices().FindByIDForTenantLocked(ctx, tenantID, invoiceID)
		if err != nil {
			return err
		}
		if inv == nil {
			return shared.NewDomainError("NOT_FOUND", "Invoice not found")
		}
		if !inv.Status.AcceptsPayments() {
			return shared.NewDomainError("INVALID_STATE", "Cannot record payment against cancelled invoice")
		}

		date := time.Time{}
		if req.PaymentDate != nil {
			date = *req.PaymentDate
		}
		p, err := billing.NewPayment(tenantID, inv.ID, req.Amount, billing.PaymentMode(req.PaymentMode), date, req.ReferenceNumber, req.PaidBy, req.Notes)
		if err != nil {
			return err
		}
		if err := tx.Payments().Create(ctx, p); err != nil {
			return err
		}

		if err := s.recomputeInvoice(ctx, tx, inv); err != nil {
			return err
		}

		payment = p
		invoice = inv
		return nil
	})
	if err != nil {
		if req.IdempotencyKey != "" {
			// A failed attempt must not poison the retry.
			if relErr := s.idempotency.Release(ctx, idempotencyKey(tenantID, invoiceID, req.IdempotencyKey)); relErr != nil {
				s.logger.Warn("Failed to release idempotency key", zap.Error(relErr))
			}
		}
		return nil, err
	}

	s.logger.Info("Payment recorded",
		zap.String("payment_id", payment.ID.String()),
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("invoice_status", invoice.Status.String()))

	if invoice.IsPaid() {
		s.notifyPaid(ctx, invoice)
	}

	invoiceResp := toInvoiceResponse(invoice, nil, nil)
	return &RecordPaymentResponse{
		Payment: toPaymentResponse(payment),
		Invoice: invoiceResp,
	}, nil
}

// Update amends an existing payment and recomputes the invoice in the same
// transaction.
func (s *PaymentService) Update(ctx context.Context, tenantID, paymentID uuid.UUID, req UpdatePaymentRequest) (*RecordPaymentResponse, error) {
	var (
		payment *billing.Payment
		invoice *billing.Invoice
	)

	err := s.tx.InTx(ctx, func(tx billing.TxRepositories) error {
		p, err := tx.Payments().FindByIDForTenant(ctx, tenantID, paymentID)
		if err != nil {
			return err
		}
		if p == nil {
			return shared.NewDomainError("NOT_FOUND", "Payment not found")
		}

		inv, err := tx.Invoices().FindByIDForTenantLocked(ctx, tenantID, p.InvoiceID)
		if err != nil {
			return err
		}
		if inv == nil {
			return shared.NewDomainError("NOT_FOUND", "Invoice not found")
		}

		date := time.Time{}
		if req.PaymentDate != nil {
			date = *req.PaymentDate
		}
		if err := p.Amend(req.Amount, billing.PaymentMode(req.PaymentMode), date, req.ReferenceNumber, req.PaidBy, req.Notes); err != nil {
			return err
		}
		if err := tx.Payments().Save(ctx, p); err != nil {
			return err
		}

		if err := s.recomputeInvoice(ctx, tx, inv); err != nil {
			return err
		}

		payment = p
		invoice = inv
		return nil
	})
	if err != nil {
		return nil, err
	}

	if invoice.IsPaid() {
		s.notifyPaid(ctx, invoice)
	}

	invoiceResp := toInvoiceResponse(invoice, nil, nil)
	return &RecordPaymentResponse{
		Payment: toPaymentResponse(payment),
		Invoice: invoiceResp,
	}, nil
}

// Delete removes a payment and recomputes the invoice in the same
// transaction. Removing the last payment returns the invoice to issued.
func (s *PaymentService) Delete(ctx context.Context, tenantID, paymentID uuid.UUID) (*InvoiceResponse, error) {
	var invoice *billing.Invoice

	err := s.tx.InTx(ctx, func(tx billing.TxRepositories) error {
		p, err := tx.Payments().FindByIDForTenant(ctx, tenantID, paymentID)
		if err != nil {
			return err
		}
		if p == nil {
			return shared.NewDomainError("NOT_FOUND", "Payment not found")
		}

		inv, err := tx.Invoices().FindByIDForTenantLocked(ctx, tenantID, p.InvoiceID)
		if err != nil {
			return err
		}
		if inv == nil {
			return shared.NewDomainError("NOT_FOUND", "Invoice not found")
		}

		if err := tx.Payments().Delete(ctx, tenantID, p.ID); err != nil {
			return err
		}

		if err := s.recomputeInvoice(ctx, tx, inv); err != nil {
			return err
		}

		invoice = inv
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Payment deleted",
		zap.String("payment_id", paymentID.String()),
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("invoice_status", invoice.Status.String()))

	return toInvoiceResponse(invoice, nil, nil), nil
}

// ListForInvoice returns all payments recorded against an invoice
func (s *PaymentService) ListForInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]PaymentResponse, error) {
	payments, err := s.paymentRepo.FindByInvoice(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}

	responses := make([]PaymentResponse, 0, len(payments))
	for i := range payments {
		responses = append(responses, toPaymentResponse(&payments[i]))
	}
	return responses, nil
}

// recomputeInvoice reloads the authoritative payment total and applies it to
// the locked invoice aggregate. Runs inside the caller's transaction.
func (s *PaymentService) recomputeInvoice(ctx context.Context, tx billing.TxRepositories, inv *billing.Invoice) error {
	total, err := tx.Payments().SumForInvoice(ctx, inv.TenantID, inv.ID)
	if err != nil {
		return err
	}
	if err := inv.ApplyPaymentTotal(total, time.Now()); err != nil {
		return err
	}
	return tx.Invoices().Save(ctx, inv)
}

func (s *PaymentService) notifyPaid(ctx context.Context, invoice *billing.Invoice) {
	payload := invoicePayload(invoice, nil)
	if err := s.producer.Enqueue(ctx, invoice.TenantID, notificationDomain.EventInvoicePaid, payload); err != nil {
		s.logger.Warn("Failed to enqueue invoice paid notification",
			zap.String("invoice_id", invoice.ID.String()),
			zap.Error(err))
	}
}

func idempotencyKey(tenantID, invoiceID uuid.UUID, key string) string {
	return "payments:" + tenantID.String() + ":" + invoiceID.String() + ":" + key
}
