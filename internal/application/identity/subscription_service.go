package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zoravo/oms/internal/domain/identity"
)

// SubscriptionService runs the subscription expiry batch job. It is invoked
// by the cron endpoint; the scheduler itself lives outside this service.
type SubscriptionService struct {
	tenantRepo identity.TenantRepository
	logger     *zap.Logger
}

// NewSubscriptionService creates a new subscription service
func NewSubscriptionService(tenantRepo identity.TenantRepository, logger *zap.Logger) *SubscriptionService {
	return &SubscriptionService{
		tenantRepo: tenantRepo,
		logger:     logger,
	}
}

// ExpiryResult summarizes one expiry run
type ExpiryResult struct {
	Deactivated int         `json:"deactivated"`
	TenantIDs   []uuid.UUID `json:"tenant_ids"`
	Errors      []string    `json:"errors,omitempty"`
}

// CheckExpiry deactivates every tenant whose trial or subscription ran out
// before now. Failures on individual tenants are collected, not fatal.
func (s *SubscriptionService) CheckExpiry(ctx context.Context, now time.Time) (*ExpiryResult, error) {
	tenants, err := s.tenantRepo.FindLapsed(ctx, now)
	if err != nil {
		return nil, err
	}

	result := &ExpiryResult{TenantIDs: []uuid.UUID{}}
	for i := range tenants {
		tenant := &tenants[i]
		if !tenant.IsLapsed(now) {
			continue
		}
		if err := tenant.ExpireSubscription(); err != nil {
			s.logger.Debug("Skipping tenant already expired",
				zap.String("tenant_id", tenant.ID.String()),
				zap.Error(err))
			continue
		}
		if err := s.tenantRepo.Save(ctx, tenant); err != nil {
			s.logger.Error("Failed to expire tenant",
				zap.String("tenant_id", tenant.ID.String()),
				zap.Error(err))
			result.Errors = append(result.Errors, fmt.Sprintf("tenant %s: %v", tenant.ID, err))
			continue
		}
		result.Deactivated++
		result.TenantIDs = append(result.TenantIDs, tenant.ID)
	}

	s.logger.Info("Subscription expiry check completed",
		zap.Int("deactivated", result.Deactivated),
		zap.Int("errors", len(result.Errors)))

	return result, nil
}
