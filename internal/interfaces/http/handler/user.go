package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	identityapp "github.com/zoravo/oms/internal/application/identity"
	"github.com/zoravo/oms/internal/domain/shared"
	"github.com/zoravo/oms/internal/interfaces/http/dto"
	"github.com/zoravo/oms/internal/interfaces/http/middleware"
)

// UserHandler handles the user administration HTTP surface. The mutating
// endpoints are action-style POSTs guarded by the super-admin middleware.
type UserHandler struct {
	BaseHandler
	userService *identityapp.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *identityapp.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// DeleteUserRequest identifies the user to delete
type DeleteUserRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
}

// LinkTenantBody links a user to a tenant
type LinkTenantBody struct {
	UserID   uuid.UUID `json:"user_id" binding:"required"`
	TenantID uuid.UUID `json:"tenant_id" binding:"required"`
}

// UpdateProfileBody updates a user's profile fields
type UpdateProfileBody struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
	Name   string    `json:"name"`
	Phone  string    `json:"phone"`
}

// Create creates a new user, optionally linked to a tenant
func (h *UserHandler) Create(c *gin.Context) {
	var req identityapp.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleBindingError(c, err)
		return
	}

	user, err := h.userService.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, user)
}

// Delete removes a user
func (h *UserHandler) Delete(c *gin.Context) {
	var req DeleteUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleBindingError(c, err)
		return
	}

	if err := h.userService.Delete(c.Request.Context(), req.UserID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"deleted": true})
}

// LinkToTenant links a user to a tenant
func (h *UserHandler) LinkToTenant(c *gin.Context) {
	var body LinkTenantBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.handleBindingError(c, err)
		return
	}

	user, err := h.userService.LinkToTenant(c.Request.Context(), body.UserID,
		identityapp.LinkTenantRequest{TenantID: body.TenantID})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, user)
}

// UpdateProfile updates a user's name and phone
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var body UpdateProfileBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.handleBindingError(c, err)
		return
	}

	user, err := h.userService.UpdateProfile(c.Request.Context(), body.UserID,
		identityapp.UpdateProfileRequest{Name: body.Name, Phone: body.Phone})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, user)
}

// List returns the users of the caller's tenant
func (h *UserHandler) List(c *gin.Context) {
	tenantID, ok := h.requireTenant(c)
	if !ok {
		return
	}

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

	result, err := h.userService.ListForTenant(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, result, result.Total, result.Page, result.PageSize)
}

// RegisterRoutes registers all user routes
func (h *UserHandler) RegisterRoutes(rg *gin.RouterGroup) {
	users := rg.Group("/users")
	{
		users.GET("", h.List)

		admin := users.Group("")
		admin.Use(middleware.RequireSuperAdmin())
		{
			admin.POST("/create", h.Create)
			admin.POST("/delete", h.Delete)
			admin.POST("/link-to-tenant", h.LinkToTenant)
			admin.POST("/update-profile", h.UpdateProfile)
		}
	}
}
