package notification

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zoravo/oms/internal/domain/notification"
	"github.com/zoravo/oms/internal/domain/shared"
	"github.com/zoravo/oms/internal/domain/workshop"
)

// Producer is the port notification producers depend on
type Producer interface {
	Enqueue(ctx context.Context, tenantID uuid.UUID, eventType string, payload map[string]any) error
}

// Enqueuer durably persists intents to notify. It never delivers anything
// itself; an external worker drains the queue.
type Enqueuer struct {
	queueRepo  notification.QueueRepository
	inwardRepo workshop.VehicleInwardRepository
	logger     *zap.Logger
}

// NewEnqueuer creates a new Enqueuer
func NewEnqueuer(
	queueRepo notification.QueueRepository,
	inwardRepo workshop.VehicleInwardRepository,
	logger *zap.Logger,
) *Enqueuer {
	return &Enqueuer{
		queueRepo:  queueRepo,
		inwardRepo: inwardRepo,
		logger:     logger,
	}
}

// Enqueue appends one notification to the queue. A zero tenant id means the
// caller lost its tenant context; for vehicle-centric events the owning
// tenant is resolved from the vehicle id in the payload before giving up.
func (e *Enqueuer) Enqueue(ctx context.Context, tenantID uuid.UUID, eventType string, payload map[string]any) error {
	if tenantID == uuid.Nil {
		resolved, err := e.resolveTenantFromPayload(ctx, payload)
		if err != nil {
			e.logger.Warn("Rejecting notification without tenant",
				zap.String("event_type", eventType),
				zap.Error(err))
			return shared.ErrTenantRequired
		}
		tenantID = resolved
	}

	item, err := notification.NewQueueItem(tenantID, eventType, payload)
	if err != nil {
		return err
	}

	if err := e.queueRepo.Save(ctx, item); err != nil {
		e.logger.Error("Failed to enqueue notification",
			zap.String("event_type", eventType),
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err))
		return err
	}

	e.logger.Debug("Notification enqueued",
		zap.String("event_type", eventType),
		zap.String("tenant_id", tenantID.String()),
		zap.String("item_id", item.ID.String()))

	return nil
}

func (e *Enqueuer) resolveTenantFromPayload(ctx context.Context, payload map[string]any) (uuid.UUID, error) {
	raw, ok := payload["vehicle_id"].(string)
	if !ok || raw == "" {
		return uuid.Nil, shared.ErrTenantRequired
	}

	vehicleID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, shared.NewDomainError("INVALID_VEHICLE_ID", "Vehicle ID in payload is not a UUID")
	}

	tenantID, err := e.inwardRepo.TenantForVehicle(ctx, vehicleID)
	if err != nil {
		return uuid.Nil, err
	}
	if tenantID == uuid.Nil {
		return uuid.Nil, shared.ErrTenantRequired
	}
	return tenantID, nil
}
