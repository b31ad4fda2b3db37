package billing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zoravo/oms/internal/application/notification"
	"github.com/zoravo/oms/internal/domain/billing"
	notificationDomain "github.com/zoravo/oms/internal/domain/notification"
	"github.com/zoravo/oms/internal/domain/shared"
	"github.com/zoravo/oms/internal/domain/workshop"
)

// OverdueSweeper is the batch operation behind the mark-overdue cron
// endpoint. It transitions issued/partial invoices past their due date to
// overdue and raises one notification per invoice it actually transitioned.
// The sweep returns the affected invoices explicitly, so a second run right
// after the first finds nothing to do.
type OverdueSweeper struct {
	invoiceRepo billing.InvoiceRepository
	inwardRepo  workshop.VehicleInwardRepository
	producer    notification.Producer
	logger      *zap.Logger
}

// NewOverdueSweeper creates a new overdue sweeper
func NewOverdueSweeper(
	invoiceRepo billing.InvoiceRepository,
	inwardRepo workshop.VehicleInwardRepository,
	producer notification.Producer,
	logger *zap.Logger,
) *OverdueSweeper {
	return &OverdueSweeper{
		invoiceRepo: invoiceRepo,
		inwardRepo:  inwardRepo,
		producer:    producer,
		logger:      logger,
	}
}

// SweepResult reports what a single sweep run did
type SweepResult struct {
	MarkedOverdue int         `json:"marked_overdue"`
	InvoiceIDs    []uuid.UUID `json:"invoice_ids"`
	Notified      int         `json:"notified"`
	Errors        []string    `json:"errors,omitempty"`
}

// Sweep marks every due invoice overdue as of the given instant. Invoices
// that fail to transition or persist are reported in the result without
// aborting the rest of the batch.
func (s *OverdueSweeper) Sweep(ctx context.Context, now time.Time) (*SweepResult, error) {
	due, err := s.invoiceRepo.FindDueForOverdue(ctx, now)
	if err != nil {
		return nil, err
	}

	result := &SweepResult{InvoiceIDs: make([]uuid.UUID, 0, len(due))}

	for i := range due {
		inv := &due[i]

		if err := inv.MarkOverdue(now); err != nil {
			// Raced with a payment or another sweep run; skip quietly.
			s.logger.Debug("Skipping invoice during overdue sweep",
				zap.String("invoice_id", inv.ID.String()),
				zap.Error(err))
			continue
		}
		if err := s.invoiceRepo.Save(ctx, inv); err != nil {
			if errors.Is(err, shared.ErrConcurrencyConflict) {
				// A payment landed after the batch was loaded; the
				// recomputed row wins and this invoice is no longer ours
				// to transition.
				s.logger.Debug("Invoice changed during overdue sweep, skipping",
					zap.String("invoice_id", inv.ID.String()))
				continue
			}
			s.logger.Error("Failed to persist overdue transition",
				zap.String("invoice_id", inv.ID.String()),
				zap.Error(err))
			result.Errors = append(result.Errors, err.Error())
			continue
		}

		result.MarkedOverdue++
		result.InvoiceIDs = append(result.InvoiceIDs, inv.ID)

		if s.notifyOverdue(ctx, inv) {
			result.Notified++
		}
	}

	s.logger.Info("Overdue sweep completed",
		zap.Int("candidates", len(due)),
		zap.Int("marked_overdue", result.MarkedOverdue),
		zap.Int("notified", result.Notified))

	return result, nil
}

func (s *OverdueSweeper) notifyOverdue(ctx context.Context, inv *billing.Invoice) bool {
	inward, err := s.inwardRepo.FindByIDForTenant(ctx, inv.VehicleInwardID, inv.TenantID)
	if err != nil {
		s.logger.Warn("Failed to load vehicle inward for overdue notification",
			zap.String("invoice_id", inv.ID.String()),
			zap.Error(err))
		inward = nil
	}

	payload := invoicePayload(inv, inward)
	if err := s.producer.Enqueue(ctx, inv.TenantID, notificationDomain.EventInvoiceOverdue, payload); err != nil {
		s.logger.Warn("Failed to enqueue overdue notification",
			zap.String("invoice_id", inv.ID.String()),
			zap.Error(err))
		return false
	}
	return true
}
