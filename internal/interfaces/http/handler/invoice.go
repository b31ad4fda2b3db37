package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	billingapp "github.com/zoravo/oms/internal/application/billing"
	"github.com/zoravo/oms/internal/domain/billing"
	"github.com/zoravo/oms/internal/domain/shared"
	"github.com/zoravo/oms/internal/interfaces/http/middleware"
)

// InvoiceHandler handles invoice HTTP requests
type InvoiceHandler struct {
	BaseHandler
	invoiceService *billingapp.InvoiceService
	paymentService *billingapp.PaymentService
}

// NewInvoiceHandler creates a new invoice handler
func NewInvoiceHandler(
	invoiceService *billingapp.InvoiceService,
	paymentService *billingapp.PaymentService,
) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
		paymentService: paymentService,
	}
}

// InvoiceListQuery holds list filter query parameters
type InvoiceListQuery struct {
	Page            int    `form:"page" binding:"omitempty,min=1"`
	PageSize        int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy         string `form:"order_by"`
	OrderDir        string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
	Search          string `form:"search"`
	Status          string `form:"status"`
	VehicleInwardID string `form:"vehicle_inward_id" binding:"omitempty,uuid"`
	FromDate        string `form:"from_date" binding:"omitempty,datetime=2006-01-02"`
	ToDate          string `form:"to_date" binding:"omitempty,datetime=2006-01-02"`
	Overdue         *bool  `form:"overdue"`
}

// List returns the tenant's invoices with status/date/search filters
func (h *InvoiceHandler) List(c *gin.Context) {
	tenantID, ok := h.requireTenant(c)
	if !ok {
		return
	}

	var query InvoiceListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.handleBindingError(c, err)
		return
	}

	filter, err := toInvoiceFilter(query)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	result, err := h.invoiceService.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, result, result.Total, result.Page, result.PageSize)
}

// Create creates an invoice from a vehicle intake record
func (h *InvoiceHandler) Create(c *gin.Context) {
	tenantID, ok := h.requireTenant(c)
	if !ok {
		return
	}

	var req billingapp.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleBindingError(c, err)
		return
	}

	invoice, err := h.invoiceService.Create(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, invoice)
}

// Get fetches one invoice with line items, payments and intake data
func (h *InvoiceHandler) Get(c *gin.Context) {
	tenantID, id, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	invoice, err := h.invoiceService.Get(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// Update patches mutable invoice fields
func (h *InvoiceHandler) Update(c *gin.Context) {
	tenantID, id, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	var req billingapp.UpdateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleBindingError(c, err)
		return
	}

	invoice, err := h.invoiceService.Update(c.Request.Context(), tenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// Cancel cancels an invoice with a reason
func (h *InvoiceHandler) Cancel(c *gin.Context) {
	tenantID, id, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	// Body is optional; a bare DELETE cancels without a reason
	var req billingapp.CancelInvoiceRequest
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.handleBindingError(c, err)
			return
		}
	}

	invoice, err := h.invoiceService.Cancel(c.Request.Context(), tenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// Issue transitions a draft invoice to issued, allocating its number
func (h *InvoiceHandler) Issue(c *gin.Context) {
	tenantID, id, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	invoice, err := h.invoiceService.Issue(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// ListPayments lists payments recorded against an invoice
func (h *InvoiceHandler) ListPayments(c *gin.Context) {
	tenantID, id, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	payments, err := h.paymentService.ListForInvoice(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"payments": payments})
}

// Summary aggregates invoice totals for the tenant
func (h *InvoiceHandler) Summary(c *gin.Context) {
	tenantID, ok := h.requireTenant(c)
	if !ok {
		return
	}

	summary, err := h.invoiceService.Summary(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"summary": summary})
}

// RegisterRoutes registers all invoice routes
func (h *InvoiceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	invoices := rg.Group("/invoices")
	{
		invoices.GET("", h.List)
		invoices.POST("", h.Create)
		invoices.GET("/summary", h.Summary)
		invoices.GET("/:id", h.Get)
		invoices.PATCH("/:id", h.Update)
		invoices.DELETE("/:id", h.Cancel)
		invoices.POST("/:id/issue", h.Issue)
		invoices.GET("/:id/payments", h.ListPayments)
	}
}

// tenantAndID extracts the tenant scope and the :id path parameter
func (h *InvoiceHandler) tenantAndID(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	tenantID, ok := h.requireTenant(c)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID")
		return uuid.Nil, uuid.Nil, false
	}

	return tenantID, id, true
}

// handleBindingError renders binding failures, with per-field details when
// the validator produced them
func (h *BaseHandler) handleBindingError(c *gin.Context, err error) {
	if _, ok := err.(validator.ValidationErrors); ok {
		middleware.HandleValidationError(c, err)
		return
	}
	h.BadRequest(c, "Invalid request body")
}

// toInvoiceFilter converts query parameters into a domain invoice filter
func toInvoiceFilter(query InvoiceListQuery) (billing.InvoiceFilter, error) {
	filter := billing.InvoiceFilter{Filter: shared.DefaultFilter()}

	if query.Page > 0 {
		filter.Page = query.Page
	}
	if query.PageSize > 0 {
		filter.PageSize = query.PageSize
	}
	if query.OrderBy != "" {
		filter.OrderBy = query.OrderBy
	}
	if query.OrderDir != "" {
		filter.OrderDir = query.OrderDir
	}
	filter.Search = query.Search
	filter.Overdue = query.Overdue

	if query.Status != "" {
		status := billing.InvoiceStatus(query.Status)
		if !status.IsValid() {
			return filter, shared.NewDomainError("INVALID_STATUS", "Unknown invoice status: "+query.Status)
		}
		filter.Status = &status
	}
	if query.VehicleInwardID != "" {
		id, err := uuid.Parse(query.VehicleInwardID)
		if err != nil {
			return filter, shared.NewDomainError("INVALID_INPUT", "Invalid vehicle_inward_id")
		}
		filter.VehicleInwardID = &id
	}
	if query.FromDate != "" {
		from, err := time.Parse("2006-01-02", query.FromDate)
		if err != nil {
			return filter, shared.NewDomainError("INVALID_INPUT", "Invalid from_date")
		}
		filter.FromDate = &from
	}
	if query.ToDate != "" {
		to, err := time.Parse("2006-01-02", query.ToDate)
		if err != nil {
			return filter, shared.NewDomainError("INVALID_INPUT", "Invalid to_date")
		}
		// Inclusive upper bound: the whole day counts
		to = to.Add(24*time.Hour - time.Nanosecond)
		filter.ToDate = &to
	}

	return filter, nil
}
