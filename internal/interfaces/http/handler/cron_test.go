package handler

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	billingapp "github.com/zoravo/oms/internal/application/billing"
	identityapp "github.com/zoravo/oms/internal/application/identity"
	"github.com/zoravo/oms/internal/domain/billing"
	"github.com/zoravo/oms/internal/domain/identity"
)

type cronRig struct {
	invoices *MockInvoiceRepository
	inwards  *MockInwardRepository
	producer *MockProducer
	tenants  *MockTenantRepository
	engine   *gin.Engine
}

func newCronRig() *cronRig {
	rig := &cronRig{
		invoices: new(MockInvoiceRepository),
		inwards:  new(MockInwardRepository),
		producer: new(MockProducer),
		tenants:  new(MockTenantRepository),
	}

	sweeper := billingapp.NewOverdueSweeper(rig.invoices, rig.inwards, rig.producer, zap.NewNop())
	subscription := identityapp.NewSubscriptionService(rig.tenants, zap.NewNop())

	h := NewCronHandler(sweeper, subscription)

	gin.SetMode(gin.TestMode)
	rig.engine = gin.New()
	h.RegisterRoutes(rig.engine.Group("/api/v1"))
	return rig
}

func TestMarkOverdueInvoices(t *testing.T) {
	rig := newCronRig()
	tenantID := uuid.New()
	due := issuedInvoice(t, tenantID, time.Now().Add(-24*time.Hour))

	rig.invoices.On("FindDueForOverdue", mock.Anything, mock.Anything).
		Return([]billing.Invoice{*due}, nil)
	rig.invoices.On("Save", mock.Anything, mock.Anything).Return(nil)
	rig.inwards.On("FindByIDForTenant", mock.Anything, due.VehicleInwardID, tenantID).Return(nil, nil)
	rig.producer.On("Enqueue", mock.Anything, tenantID, mock.Anything, mock.Anything).Return(nil)

	w := performRequest(t, rig.engine, http.MethodGet, "/api/v1/cron/mark-overdue-invoices", nil, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(1), body["updated"])
	ids := body["invoice_ids"].([]any)
	require.Len(t, ids, 1)
	assert.Equal(t, due.ID.String(), ids[0])
	assert.NotContains(t, body, "errors")
}

func TestMarkOverdueInvoicesNothingDue(t *testing.T) {
	rig := newCronRig()

	rig.invoices.On("FindDueForOverdue", mock.Anything, mock.Anything).
		Return([]billing.Invoice{}, nil)

	w := performRequest(t, rig.engine, http.MethodGet, "/api/v1/cron/mark-overdue-invoices", nil, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, float64(0), body["updated"])
}

func TestMarkOverdueInvoicesQueryFailure(t *testing.T) {
	rig := newCronRig()

	rig.invoices.On("FindDueForOverdue", mock.Anything, mock.Anything).
		Return([]billing.Invoice{}, errors.New("connection refused"))

	w := performRequest(t, rig.engine, http.MethodGet, "/api/v1/cron/mark-overdue-invoices", nil, nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, false, body["success"])
}

func TestMarkOverdueNotificationFailureDoesNotFailSweep(t *testing.T) {
	rig := newCronRig()
	tenantID := uuid.New()
	due := issuedInvoice(t, tenantID, time.Now().Add(-24*time.Hour))

	rig.invoices.On("FindDueForOverdue", mock.Anything, mock.Anything).
		Return([]billing.Invoice{*due}, nil)
	rig.invoices.On("Save", mock.Anything, mock.Anything).Return(nil)
	rig.inwards.On("FindByIDForTenant", mock.Anything, due.VehicleInwardID, tenantID).Return(nil, nil)
	rig.producer.On("Enqueue", mock.Anything, tenantID, mock.Anything, mock.Anything).
		Return(errors.New("queue insert failed"))

	w := performRequest(t, rig.engine, http.MethodGet, "/api/v1/cron/mark-overdue-invoices", nil, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decodeBody(t, w)["updated"])
}

func TestCheckSubscriptionExpiry(t *testing.T) {
	rig := newCronRig()

	lapsed, err := identity.NewTrialTenant("GAR01", "Garage One", 7)
	require.NoError(t, err)
	past := time.Now().Add(-24 * time.Hour)
	lapsed.TrialEndsAt = &past

	rig.tenants.On("FindLapsed", mock.Anything, mock.Anything).
		Return([]identity.Tenant{*lapsed}, nil)
	rig.tenants.On("Save", mock.Anything, mock.Anything).Return(nil)

	w := performRequest(t, rig.engine, http.MethodGet, "/api/v1/cron/check-subscription-expiry", nil, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(1), body["deactivated"])
	ids := body["tenant_ids"].([]any)
	require.Len(t, ids, 1)
	assert.Equal(t, lapsed.ID.String(), ids[0])
}

func TestCheckSubscriptionExpiryAcceptsPost(t *testing.T) {
	rig := newCronRig()

	rig.tenants.On("FindLapsed", mock.Anything, mock.Anything).
		Return([]identity.Tenant{}, nil)

	w := performRequest(t, rig.engine, http.MethodPost, "/api/v1/cron/check-subscription-expiry", nil, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), decodeBody(t, w)["deactivated"])
}

func TestCheckSubscriptionExpiryCollectsPerTenantErrors(t *testing.T) {
	rig := newCronRig()

	lapsed, err := identity.NewTrialTenant("GAR02", "Garage Two", 7)
	require.NoError(t, err)
	past := time.Now().Add(-24 * time.Hour)
	lapsed.TrialEndsAt = &past

	rig.tenants.On("FindLapsed", mock.Anything, mock.Anything).
		Return([]identity.Tenant{*lapsed}, nil)
	rig.tenants.On("Save", mock.Anything, mock.Anything).Return(errors.New("row locked"))

	w := performRequest(t, rig.engine, http.MethodGet, "/api/v1/cron/check-subscription-expiry", nil, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, float64(0), body["deactivated"])
	assert.NotEmpty(t, body["errors"])
}
