package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	identityapp "github.com/zoravo/oms/internal/application/identity"
	"github.com/zoravo/oms/internal/domain/shared"
	"github.com/zoravo/oms/internal/interfaces/http/dto"
)

// Tenant context keys
const (
	TenantIDKey   = "tenant_id"
	SuperAdminKey = "is_super_admin"

	// TenantOverrideHeader lets a super admin act inside a specific tenant
	TenantOverrideHeader = "X-Tenant-ID"
)

// TenantResolver resolves the tenant scope for an authenticated user.
// *identityapp.TenantResolver is the production implementation.
type TenantResolver interface {
	Resolve(ctx context.Context, userID uuid.UUID) (identityapp.Resolution, error)
}

// TenantMiddleware resolves the caller's tenant from the database on every
// request and pins it into the request context. The JWT's tenant claim is
// deliberately not trusted on its own: a user unlinked or deactivated after
// the token was issued must lose access immediately, and a tenant
// deactivated by the subscription sweep must go dark without waiting for
// token expiry.
func TenantMiddleware(resolver TenantResolver, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userIDStr := GetJWTUserID(c)
		if userIDStr == "" {
			abortWithDomainError(c, shared.ErrUnauthorized)
			return
		}
		userID, err := uuid.Parse(userIDStr)
		if err != nil {
			abortWithDomainError(c, shared.ErrUnauthorized)
			return
		}

		res, err := resolver.Resolve(c.Request.Context(), userID)
		if err != nil {
			if log != nil {
				log.Warn("Tenant resolution failed",
					zap.String("user_id", userIDStr),
					zap.Error(err))
			}
			abortWithDomainError(c, err)
			return
		}

		tenantID := res.TenantID
		if res.IsSuperAdmin {
			if header := c.GetHeader(TenantOverrideHeader); header != "" {
				override, err := uuid.Parse(header)
				if err != nil {
					abortWithDomainError(c,
						shared.NewDomainError("INVALID_INPUT", "Invalid X-Tenant-ID header"))
					return
				}
				tenantID = override
			}
		}

		c.Set(TenantIDKey, tenantID)
		c.Set(SuperAdminKey, res.IsSuperAdmin)
		c.Next()
	}
}

// GetTenantID returns the resolved tenant id for the request, uuid.Nil when
// the request runs unscoped (super admin without an override)
func GetTenantID(c *gin.Context) uuid.UUID {
	if v, exists := c.Get(TenantIDKey); exists {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}

// abortWithDomainError renders a domain error with its mapped status
func abortWithDomainError(c *gin.Context, err error) {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		c.AbortWithStatusJSON(dto.GetHTTPStatus(code), dto.NewErrorResponse(code, domainErr.Message))
		return
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError,
		dto.NewErrorResponse(dto.ErrCodeInternal, "An unexpected error occurred"))
}

// RequireSuperAdmin rejects requests whose token lacks the super-admin
// claim. Used on the user and tenant administration surface.
func RequireSuperAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsSuperAdmin(c) {
			c.AbortWithStatusJSON(http.StatusForbidden,
				dto.NewErrorResponse(dto.ErrCodeForbidden, "Super admin access required"))
			return
		}
		c.Next()
	}
}
