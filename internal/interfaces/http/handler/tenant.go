package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	identityapp "github.com/zoravo/oms/internal/application/identity"
	"github.com/zoravo/oms/internal/domain/shared"
	"github.com/zoravo/oms/internal/interfaces/http/dto"
	"github.com/zoravo/oms/internal/interfaces/http/middleware"
)

// TenantHandler handles tenant administration HTTP requests. The whole
// surface is super-admin only.
type TenantHandler struct {
	BaseHandler
	tenantService *identityapp.TenantService
}

// NewTenantHandler creates a new tenant handler
func NewTenantHandler(tenantService *identityapp.TenantService) *TenantHandler {
	return &TenantHandler{tenantService: tenantService}
}

// Create creates a new tenant
func (h *TenantHandler) Create(c *gin.Context) {
	var req identityapp.CreateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleBindingError(c, err)
		return
	}

	tenant, err := h.tenantService.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, tenant)
}

// Get fetches a tenant by ID
func (h *TenantHandler) Get(c *gin.Context) {
	id, ok := h.tenantIDParam(c)
	if !ok {
		return
	}

	tenant, err := h.tenantService.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, tenant)
}

// List returns all tenants
func (h *TenantHandler) List(c *gin.Context) {
	query := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&query); err != nil {
		h.handleBindingError(c, err)
		return
	}

	filter := shared.Filter{
		Page:     query.Page,
		PageSize: query.PageSize,
		OrderBy:  query.OrderBy,
		OrderDir: query.OrderDir,
		Search:   query.Search,
	}

	tenants, err := h.tenantService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"tenants": tenants})
}

// Update updates a tenant's contact and naming fields
func (h *TenantHandler) Update(c *gin.Context) {
	id, ok := h.tenantIDParam(c)
	if !ok {
		return
	}

	var req identityapp.UpdateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleBindingError(c, err)
		return
	}

	tenant, err := h.tenantService.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, tenant)
}

// ActivateSubscription puts a tenant on a paid subscription
func (h *TenantHandler) ActivateSubscription(c *gin.Context) {
	id, ok := h.tenantIDParam(c)
	if !ok {
		return
	}

	var req identityapp.ActivateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleBindingError(c, err)
		return
	}

	tenant, err := h.tenantService.ActivateSubscription(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, tenant)
}

// Deactivate turns a tenant off
func (h *TenantHandler) Deactivate(c *gin.Context) {
	id, ok := h.tenantIDParam(c)
	if !ok {
		return
	}

	tenant, err := h.tenantService.Deactivate(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, tenant)
}

// Activate turns a previously deactivated tenant back on
func (h *TenantHandler) Activate(c *gin.Context) {
	id, ok := h.tenantIDParam(c)
	if !ok {
		return
	}

	tenant, err := h.tenantService.Activate(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, tenant)
}

// RegisterRoutes registers all tenant routes
func (h *TenantHandler) RegisterRoutes(rg *gin.RouterGroup) {
	tenants := rg.Group("/tenants")
	tenants.Use(middleware.RequireSuperAdmin())
	{
		tenants.POST("", h.Create)
		tenants.GET("", h.List)
		tenants.GET("/:id", h.Get)
		tenants.PUT("/:id", h.Update)
		tenants.POST("/:id/activate-subscription", h.ActivateSubscription)
		tenants.POST("/:id/deactivate", h.Deactivate)
		tenants.POST("/:id/activate", h.Activate)
	}
}

func (h *TenantHandler) tenantIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return uuid.Nil, false
	}
	return id, true
}
