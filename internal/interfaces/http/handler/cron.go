package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	billingapp "github.com/zoravo/oms/internal/application/billing"
	identityapp "github.com/zoravo/oms/internal/application/identity"
)

// CronHandler handles the endpoints invoked by the external scheduler.
// Responses are flat JSON, not the standard envelope: the scheduler only
// checks the status code and the success flag.
type CronHandler struct {
	BaseHandler
	sweeper      *billingapp.OverdueSweeper
	subscription *identityapp.SubscriptionService
}

// NewCronHandler creates a new cron handler
func NewCronHandler(
	sweeper *billingapp.OverdueSweeper,
	subscription *identityapp.SubscriptionService,
) *CronHandler {
	return &CronHandler{
		sweeper:      sweeper,
		subscription: subscription,
	}
}

// MarkOverdueInvoices sweeps issued/partial invoices past their due date
func (h *CronHandler) MarkOverdueInvoices(c *gin.Context) {
	now := time.Now().UTC()

	result, err := h.sweeper.Sweep(c.Request.Context(), now)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "overdue sweep failed",
		})
		return
	}

	resp := gin.H{
		"success":     true,
		"updated":     result.MarkedOverdue,
		"invoice_ids": result.InvoiceIDs,
		"timestamp":   now.Format(time.RFC3339),
	}
	if len(result.Errors) > 0 {
		resp["errors"] = result.Errors
	}
	c.JSON(http.StatusOK, resp)
}

// CheckSubscriptionExpiry deactivates tenants with lapsed subscriptions
func (h *CronHandler) CheckSubscriptionExpiry(c *gin.Context) {
	now := time.Now().UTC()

	result, err := h.subscription.CheckExpiry(c.Request.Context(), now)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "subscription expiry check failed",
		})
		return
	}

	resp := gin.H{
		"success":     true,
		"deactivated": result.Deactivated,
		"tenant_ids":  result.TenantIDs,
		"timestamp":   now.Format(time.RFC3339),
	}
	if len(result.Errors) > 0 {
		resp["errors"] = result.Errors
	}
	c.JSON(http.StatusOK, resp)
}

// RegisterRoutes registers all cron routes. The scheduler historically
// calls the expiry check with both GET and POST, so both are accepted.
func (h *CronHandler) RegisterRoutes(rg *gin.RouterGroup) {
	cron := rg.Group("/cron")
	{
		cron.GET("/mark-overdue-invoices", h.MarkOverdueInvoices)
		cron.GET("/check-subscription-expiry", h.CheckSubscriptionExpiry)
		cron.POST("/check-subscription-expiry", h.CheckSubscriptionExpiry)
	}
}
