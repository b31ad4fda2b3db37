package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/zoravo/oms/internal/interfaces/http/dto"
)

// CronAuth guards the externally triggered cron endpoints with a shared
// secret bearer token. An empty secret leaves them open, which is only
// acceptable for local development.
func CronAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}

		authHeader := c.GetHeader(AuthHeaderKey)
		if !strings.HasPrefix(authHeader, BearerPrefix) {
			abortCronUnauthorized(c)
			return
		}

		token := strings.TrimPrefix(authHeader, BearerPrefix)
		if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			abortCronUnauthorized(c)
			return
		}

		c.Next()
	}
}

func abortCronUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized,
		dto.NewErrorResponse(dto.ErrCodeUnauthorized, "Invalid cron secret"))
}
