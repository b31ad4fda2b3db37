package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	billingapp "github.com/zoravo/oms/internal/application/billing"
)

// IdempotencyKeyHeader carries the client token that makes payment
// submission retry-safe
const IdempotencyKeyHeader = "Idempotency-Key"

// PaymentHandler handles payment HTTP requests
type PaymentHandler struct {
	BaseHandler
	paymentService *billingapp.PaymentService
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(paymentService *billingapp.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// RecordPaymentBody is the record-payment request with its target invoice
type RecordPaymentBody struct {
	InvoiceID uuid.UUID `json:"invoice_id" binding:"required"`
	billingapp.RecordPaymentRequest
}

// Record records a payment against an invoice. The response carries the
// recomputed invoice alongside the payment.
func (h *PaymentHandler) Record(c *gin.Context) {
	tenantID, ok := h.requireTenant(c)
	if !ok {
		return
	}

	var body RecordPaymentBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.handleBindingError(c, err)
		return
	}

	req := body.RecordPaymentRequest
	req.IdempotencyKey = c.GetHeader(IdempotencyKeyHeader)

	result, err := h.paymentService.Record(c.Request.Context(), tenantID, body.InvoiceID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, result)
}

// Update amends a payment and recomputes the invoice
func (h *PaymentHandler) Update(c *gin.Context) {
	tenantID, id, ok := h.tenantAndPaymentID(c)
	if !ok {
		return
	}

	var req billingapp.UpdatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleBindingError(c, err)
		return
	}

	result, err := h.paymentService.Update(c.Request.Context(), tenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Delete removes a payment and recomputes the invoice
func (h *PaymentHandler) Delete(c *gin.Context) {
	tenantID, id, ok := h.tenantAndPaymentID(c)
	if !ok {
		return
	}

	invoice, err := h.paymentService.Delete(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"invoice": invoice})
}

// RegisterRoutes registers all payment routes
func (h *PaymentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	payments := rg.Group("/payments")
	{
		payments.POST("", h.Record)
		payments.PUT("/:id", h.Update)
		payments.DELETE("/:id", h.Delete)
	}
}

func (h *PaymentHandler) tenantAndPaymentID(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	tenantID, ok := h.requireTenant(c)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payment ID")
		return uuid.Nil, uuid.Nil, false
	}

	return tenantID, id, true
}
