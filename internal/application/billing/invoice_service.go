package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/zoravo/oms/internal/application/notification"
	"github.com/zoravo/oms/internal/domain/billing"
	"github.com/zoravo/oms/internal/domain/identity"
	notificationDomain "github.com/zoravo/oms/internal/domain/notification"
	"github.com/zoravo/oms/internal/domain/shared"
	"github.com/zoravo/oms/internal/domain/shared/valueobject"
	"github.com/zoravo/oms/internal/domain/workshop"
)

// InvoiceService handles the invoice lifecycle: creation from a vehicle
// intake record, issuing, cancellation, listing and summaries.
type InvoiceService struct {
	tx          billing.TxRunner
	invoiceRepo billing.InvoiceRepository
	paymentRepo billing.PaymentRepository
	tenantRepo  identity.TenantRepository
	inwardRepo  workshop.VehicleInwardRepository
	producer    notification.Producer
	logger      *zap.Logger
}

// NewInvoiceService creates a new invoice service
func NewInvoiceService(
	tx billing.TxRunner,
	invoiceRepo billing.InvoiceRepository,
	paymentRepo billing.PaymentRepository,
	tenantRepo identity.TenantRepository,
	inwardRepo workshop.VehicleInwardRepository,
	producer notification.Producer,
	logger *zap.Logger,
) *InvoiceService {
	return &InvoiceService{
		tx:          tx,
		invoiceRepo: invoiceRepo,
		paymentRepo: paymentRepo,
		tenantRepo:  tenantRepo,
		inwardRepo:  inwardRepo,
		producer:    producer,
		logger:      logger,
	}
}

// LineItemRequest represents one line item in an invoice creation request
type LineItemRequest struct {
	ProductName string           `json:"product_name" binding:"required"`
	Brand       string           `json:"brand"`
	Department  string           `json:"department"`
	Quantity    decimal.Decimal  `json:"quantity" binding:"required"`
	UnitPrice   decimal.Decimal  `json:"unit_price"`
	LineTotal   *decimal.Decimal `json:"line_total"`
}

// CreateInvoiceRequest represents a request to create an invoice
type CreateInvoiceRequest struct {
	VehicleInwardID  uuid.UUID         `json:"vehicle_inward_id" binding:"required"`
	LineItems        []LineItemRequest `json:"line_items" binding:"required"`
	DiscountAmount   decimal.Decimal   `json:"discount_amount"`
	DiscountReason   string            `json:"discount_reason"`
	TaxAmount        decimal.Decimal   `json:"tax_amount"`
	Notes            string            `json:"notes"`
	InvoiceDate      *time.Time        `json:"invoice_date"`
	DueDate          *time.Time        `json:"due_date"`
	IssueImmediately bool              `json:"issue_immediately"`
}

// UpdateInvoiceRequest is a partial field patch for an invoice
type UpdateInvoiceRequest struct {
	CustomerName   *string    `json:"customer_name"`
	DueDate        *time.Time `json:"due_date"`
	DiscountReason *string    `json:"discount_reason"`
	Notes          *string    `json:"notes"`
}

// CancelInvoiceRequest carries the reason for cancelling an invoice
type CancelInvoiceRequest struct {
	Reason string `json:"reason"`
}

// LineItemResponse represents a line item in API responses
type LineItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	ProductName string          `json:"product_name"`
	Brand       string          `json:"brand,omitempty"`
	Department  string          `json:"department,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// PaymentResponse represents a payment in API responses
type PaymentResponse struct {
	ID              uuid.UUID       `json:"id"`
	InvoiceID       uuid.UUID       `json:"invoice_id"`
	Amount          decimal.Decimal `json:"amount"`
	PaymentMode     string          `json:"payment_mode"`
	PaymentDate     time.Time       `json:"payment_date"`
	ReferenceNumber string          `json:"reference_number,omitempty"`
	PaidBy          string          `json:"paid_by,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// VehicleResponse carries the denormalized intake data shown with an invoice
type VehicleResponse struct {
	VehicleInwardID uuid.UUID `json:"vehicle_inward_id"`
	VehicleID       uuid.UUID `json:"vehicle_id"`
	VehicleNumber   string    `json:"vehicle_number"`
	CustomerName    string    `json:"customer_name"`
	CustomerPhone   string    `json:"customer_phone,omitempty"`
}

// InvoiceResponse represents an invoice in API responses
type InvoiceResponse struct {
	ID              uuid.UUID          `json:"id"`
	TenantID        uuid.UUID          `json:"tenant_id"`
	VehicleInwardID uuid.UUID          `json:"vehicle_inward_id"`
	VehicleID       uuid.UUID          `json:"vehicle_id"`
	CustomerName    string             `json:"customer_name"`
	InvoiceNumber   *string            `json:"invoice_number"`
	Status          string             `json:"status"`
	InvoiceDate     *time.Time         `json:"invoice_date"`
	DueDate         *time.Time         `json:"due_date"`
	Amount          decimal.Decimal    `json:"amount"`
	TotalAmount     decimal.Decimal    `json:"total_amount"`
	PaidAmount      decimal.Decimal    `json:"paid_amount"`
	BalanceAmount   decimal.Decimal    `json:"balance_amount"`
	DiscountAmount  decimal.Decimal    `json:"discount_amount"`
	DiscountReason  string             `json:"discount_reason,omitempty"`
	TaxAmount       decimal.Decimal    `json:"tax_amount"`
	Notes           string             `json:"notes,omitempty"`
	LineItems       []LineItemResponse `json:"line_items,omitempty"`
	Payments        []PaymentResponse  `json:"payments,omitempty"`
	Vehicle         *VehicleResponse   `json:"vehicle,omitempty"`
	IssuedAt        *time.Time         `json:"issued_at,omitempty"`
	CancelledAt     *time.Time         `json:"cancelled_at,omitempty"`
	CancelledReason string             `json:"cancelled_reason,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
	Version         int                `json:"version"`
}

// InvoiceListResponse is a paginated list of invoices
type InvoiceListResponse struct {
	Invoices []InvoiceResponse `json:"invoices"`
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
}

// InvoiceSummaryResponse aggregates invoice totals for a tenant
type InvoiceSummaryResponse struct {
	TotalInvoiced    decimal.Decimal  `json:"total_invoiced"`
	TotalReceived    decimal.Decimal  `json:"total_received"`
	TotalOutstanding decimal.Decimal  `json:"total_outstanding"`
	TotalOverdue     decimal.Decimal  `json:"total_overdue"`
	Currency         string           `json:"currency"`
	ByStatus         map[string]int64 `json:"by_status"`
}

// Create creates a new invoice from a vehicle intake record. The invoice and
// its line items are persisted in one transaction; with issue_immediately the
// invoice number allocation joins the same transaction.
func (s *InvoiceService) Create(ctx context.Context, tenantID uuid.UUID, req CreateInvoiceRequest) (*InvoiceResponse, error) {
	if tenantID == uuid.Nil {
		return nil, shared.ErrTenantRequired
	}

	inward, err := s.inwardRepo.FindByIDForTenant(ctx, req.VehicleInwardID, tenantID)
	if err != nil {
		return nil, err
	}
	if inward == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Vehicle inward record not found")
	}

	items := make([]billing.LineItemInput, 0, len(req.LineItems))
	for _, li := range req.LineItems {
		items = append(items, billing.LineItemInput{
			ProductName: li.ProductName,
			Brand:       li.Brand,
			Department:  li.Department,
			Quantity:    li.Quantity,
			UnitPrice:   li.UnitPrice,
			LineTotal:   li.LineTotal,
		})
	}

	invoice, err := billing.NewInvoice(
		tenantID,
		inward.ID,
		inward.VehicleID,
		inward.CustomerName,
		items,
		req.DiscountAmount,
		req.DiscountReason,
		req.TaxAmount,
		req.Notes,
		req.InvoiceDate,
		req.DueDate,
	)
	if err != nil {
		return nil, err
	}

	err = s.tx.InTx(ctx, func(tx billing.TxRepositories) error {
		if req.IssueImmediately {
			number, issueErr := s.nextInvoiceNumber(ctx, tx, tenantID)
			if issueErr != nil {
				return issueErr
			}
			if issueErr := invoice.Issue(number, time.Now()); issueErr != nil {
				return issueErr
			}
		}
		return tx.Invoices().Create(ctx, invoice)
	})
	if err != nil {
		s.logger.Error("Failed to create invoice",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Invoice created",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("tenant_id", tenantID.String()),
		zap.String("status", invoice.Status.String()))

	if invoice.Status == billing.InvoiceStatusIssued {
		s.notify(ctx, invoice, inward, notificationDomain.EventInvoiceIssued)
	}

	return toInvoiceResponse(invoice, nil, inward), nil
}

// Issue transitions a draft invoice to issued, allocating the next invoice
// number from the tenant's sequence inside one transaction.
func (s *InvoiceService) Issue(ctx context.Context, tenantID, id uuid.UUID) (*InvoiceResponse, error) {
	var invoice *billing.Invoice

	err := s.tx.InTx(ctx, func(tx billing.TxRepositories) error {
		inv, err := tx.Invoices().FindByIDForTenantLocked(ctx, tenantID, id)
		if err != nil {
			return err
		}
		if inv == nil {
			return shared.NewDomainError("NOT_FOUND", "Invoice not found")
		}

		number, err := s.nextInvoiceNumber(ctx, tx, tenantID)
		if err != nil {
			return err
		}
		if err := inv.Issue(number, time.Now()); err != nil {
			return err
		}
		if err := tx.Invoices().Save(ctx, inv); err != nil {
			return err
		}

		invoice = inv
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Invoice issued",
		zap.String("invoice_id", invoice.ID.String()),
		zap.Stringp("invoice_number", invoice.InvoiceNumber))

	s.notify(ctx, invoice, nil, notificationDomain.EventInvoiceIssued)

	return toInvoiceResponse(invoice, nil, nil), nil
}

// Cancel cancels an invoice with a reason. Paid invoices cannot be cancelled
// and cancellation is terminal.
func (s *InvoiceService) Cancel(ctx context.Context, tenantID, id uuid.UUID, req CancelInvoiceRequest) (*InvoiceResponse, error) {
	invoice, err := s.invoiceRepo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Invoice not found")
	}

	if err := invoice.Cancel(req.Reason, time.Now()); err != nil {
		return nil, err
	}
	if err := s.invoiceRepo.Save(ctx, invoice); err != nil {
		return nil, err
	}

	s.logger.Info("Invoice cancelled",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("reason", req.Reason))

	return toInvoiceResponse(invoice, nil, nil), nil
}

// Update applies a partial field patch scoped to the caller's tenant.
// Beyond tenant ownership there is no business validation here.
func (s *InvoiceService) Update(ctx context.Context, tenantID, id uuid.UUID, req UpdateInvoiceRequest) (*InvoiceResponse, error) {
	fields := map[string]any{}
	if req.CustomerName != nil {
		fields["customer_name"] = *req.CustomerName
	}
	if req.DueDate != nil {
		fields["due_date"] = *req.DueDate
	}
	if req.DiscountReason != nil {
		fields["discount_reason"] = *req.DiscountReason
	}
	if req.Notes != nil {
		fields["notes"] = *req.Notes
	}

	if len(fields) > 0 {
		fields["updated_at"] = time.Now()
		if err := s.invoiceRepo.UpdateFields(ctx, tenantID, id, fields); err != nil {
			return nil, err
		}
	}

	return s.Get(ctx, tenantID, id)
}

// Get fetches an invoice with its line items, payments and the denormalized
// vehicle/customer data from the intake record.
func (s *InvoiceService) Get(ctx context.Context, tenantID, id uuid.UUID) (*InvoiceResponse, error) {
	invoice, err := s.invoiceRepo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Invoice not found")
	}

	payments, err := s.paymentRepo.FindByInvoice(ctx, tenantID, invoice.ID)
	if err != nil {
		return nil, err
	}

	// Enrichment is best effort: a deleted intake record does not hide the invoice.
	inward, err := s.inwardRepo.FindByIDForTenant(ctx, invoice.VehicleInwardID, tenantID)
	if err != nil {
		s.logger.Warn("Failed to load vehicle inward for invoice",
			zap.String("invoice_id", invoice.ID.String()),
			zap.Error(err))
		inward = nil
	}

	return toInvoiceResponse(invoice, payments, inward), nil
}

// List returns invoices for the tenant matching the filter
func (s *InvoiceService) List(ctx context.Context, tenantID uuid.UUID, filter billing.InvoiceFilter) (*InvoiceListResponse, error) {
	invoices, err := s.invoiceRepo.FindAllForTenant(ctx, tenantID, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.invoiceRepo.CountForTenant(ctx, tenantID, filter)
	if err != nil {
		return nil, err
	}

	responses := make([]InvoiceResponse, 0, len(invoices))
	for i := range invoices {
		responses = append(responses, *toInvoiceResponse(&invoices[i], nil, nil))
	}

	return &InvoiceListResponse{
		Invoices: responses,
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}, nil
}

// Summary aggregates invoice totals for the tenant
func (s *InvoiceService) Summary(ctx context.Context, tenantID uuid.UUID) (*InvoiceSummaryResponse, error) {
	summary, err := s.invoiceRepo.SummaryForTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	byStatus := make(map[string]int64, len(summary.ByStatus))
	for status, count := range summary.ByStatus {
		byStatus[status.String()] = count
	}

	return &InvoiceSummaryResponse{
		TotalInvoiced:    summary.TotalInvoiced,
		TotalReceived:    summary.TotalReceived,
		TotalOutstanding: summary.TotalOutstanding,
		TotalOverdue:     summary.TotalOverdue,
		Currency:         string(valueobject.NewMoneyINR(summary.TotalInvoiced).Currency()),
		ByStatus:         byStatus,
	}, nil
}

// nextInvoiceNumber allocates the next number from the tenant's sequence.
// Must run inside a transaction; the sequence row is locked until commit.
func (s *InvoiceService) nextInvoiceNumber(ctx context.Context, tx billing.TxRepositories, tenantID uuid.UUID) (string, error) {
	tenant, err := s.tenantRepo.FindByID(ctx, tenantID)
	if err != nil {
		return "", err
	}

	seq, err := tx.Sequences().Next(ctx, tenantID)
	if err != nil {
		return "", err
	}

	code := ""
	if tenant != nil {
		code = tenant.Code
	}
	return billing.FormatInvoiceNumber(code, seq), nil
}

// notify enqueues an invoice lifecycle notification. Failures are logged and
// swallowed: the invoice operation has already committed.
func (s *InvoiceService) notify(ctx context.Context, invoice *billing.Invoice, inward *workshop.VehicleInward, eventType string) {
	payload := invoicePayload(invoice, inward)
	if err := s.producer.Enqueue(ctx, invoice.TenantID, eventType, payload); err != nil {
		s.logger.Warn("Failed to enqueue invoice notification",
			zap.String("invoice_id", invoice.ID.String()),
			zap.String("event_type", eventType),
			zap.Error(err))
	}
}

// invoicePayload builds the denormalized notification payload for an invoice
func invoicePayload(invoice *billing.Invoice, inward *workshop.VehicleInward) map[string]any {
	total := valueobject.NewMoneyINR(invoice.TotalAmount)
	balance := valueobject.NewMoneyINR(invoice.BalanceAmount)

	payload := map[string]any{
		"invoice_id":     invoice.ID.String(),
		"vehicle_id":     invoice.VehicleID.String(),
		"customer_name":  invoice.CustomerName,
		"status":         invoice.Status.String(),
		"total_amount":   total.Amount(),
		"balance_amount": balance.Amount(),
		"currency":       string(total.Currency()),
	}
	if invoice.InvoiceNumber != nil {
		payload["invoice_number"] = *invoice.InvoiceNumber
	}
	if invoice.DueDate != nil {
		payload["due_date"] = invoice.DueDate.Format(time.RFC3339)
	}
	if inward != nil {
		payload["vehicle_number"] = inward.VehicleNumber
		payload["customer_phone"] = inward.CustomerPhone
	}
	return payload
}

func toInvoiceResponse(invoice *billing.Invoice, payments []billing.Payment, inward *workshop.VehicleInward) *InvoiceResponse {
	resp := &InvoiceResponse{
		ID:              invoice.ID,
		TenantID:        invoice.TenantID,
		VehicleInwardID: invoice.VehicleInwardID,
		VehicleID:       invoice.VehicleID,
		CustomerName:    invoice.CustomerName,
		InvoiceNumber:   invoice.InvoiceNumber,
		Status:          invoice.Status.String(),
		InvoiceDate:     invoice.InvoiceDate,
		DueDate:         invoice.DueDate,
		Amount:          invoice.Amount,
		TotalAmount:     invoice.TotalAmount,
		PaidAmount:      invoice.PaidAmount,
		BalanceAmount:   invoice.BalanceAmount,
		DiscountAmount:  invoice.DiscountAmount,
		DiscountReason:  invoice.DiscountReason,
		TaxAmount:       invoice.TaxAmount,
		Notes:           invoice.Notes,
		IssuedAt:        invoice.IssuedAt,
		CancelledAt:     invoice.CancelledAt,
		CancelledReason: invoice.CancelledReason,
		CreatedAt:       invoice.CreatedAt,
		UpdatedAt:       invoice.UpdatedAt,
		Version:         invoice.Version,
	}

	for _, li := range invoice.LineItems {
		resp.LineItems = append(resp.LineItems, LineItemResponse{
			ID:          li.ID,
			ProductName: li.ProductName,
			Brand:       li.Brand,
			Department:  li.Department,
			Quantity:    li.Quantity,
			UnitPrice:   li.UnitPrice,
			LineTotal:   li.LineTotal,
		})
	}

	for _, p := range payments {
		resp.Payments = append(resp.Payments, toPaymentResponse(&p))
	}

	if inward != nil {
		resp.Vehicle = &VehicleResponse{
			VehicleInwardID: inward.ID,
			VehicleID:       inward.VehicleID,
			VehicleNumber:   inward.VehicleNumber,
			CustomerName:    inward.CustomerName,
			CustomerPhone:   inward.CustomerPhone,
		}
	}

	return resp
}

func toPaymentResponse(p *billing.Payment) PaymentResponse {
	return PaymentResponse{
		ID:              p.ID,
		InvoiceID:       p.InvoiceID,
		Amount:          p.Amount,
		PaymentMode:     string(p.PaymentMode),
		PaymentDate:     p.PaymentDate,
		ReferenceNumber: p.ReferenceNumber,
		PaidBy:          p.PaidBy,
		Notes:           p.Notes,
		CreatedAt:       p.CreatedAt,
	}
}
