package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/zoravo/oms/internal/domain/notification"
	"github.com/zoravo/oms/internal/infrastructure/persistence/models"
)

// GormNotificationQueueRepository implements notification.QueueRepository
// using GORM. The queue is shared across tenants; claim queries use
// FOR UPDATE SKIP LOCKED so concurrent workers never fight over the same rows.
type GormNotificationQueueRepository struct {
	db *gorm.DB
}

// NewGormNotificationQueueRepository creates a new GORM-based queue repository
func NewGormNotificationQueueRepository(db *gorm.DB) *GormNotificationQueueRepository {
	return &GormNotificationQueueRepository{db: db}
}

var _ notification.QueueRepository = (*GormNotificationQueueRepository)(nil)

// Save appends one or more items to the queue
func (r *GormNotificationQueueRepository) Save(ctx context.Context, items ...*notification.QueueItem) error {
	if len(items) == 0 {
		return nil
	}

	queueModels := make([]models.NotificationQueueItemModel, len(items))
	for i, item := range items {
		queueModels[i].FromDomain(item)
	}
	return r.db.WithContext(ctx).Create(&queueModels).Error
}

// FindPending retrieves pending items up to the specified limit, oldest first
func (r *GormNotificationQueueRepository) FindPending(ctx context.Context, limit int) ([]*notification.QueueItem, error) {
	var queueModels []models.NotificationQueueItemModel
	err := r.db.WithContext(ctx).
		Where("status = ?", notification.StatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&queueModels).Error
	if err != nil {
		return nil, err
	}
	return toQueueItems(queueModels), nil
}

// FindRetryable retrieves failed items whose next retry time has passed
func (r *GormNotificationQueueRepository) FindRetryable(ctx context.Context, before time.Time, limit int) ([]*notification.QueueItem, error) {
	var queueModels []models.NotificationQueueItemModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND next_retry_at IS NOT NULL AND next_retry_at <= ?", notification.StatusFailed, before).
		Order("next_retry_at ASC").
		Limit(limit).
		Find(&queueModels).Error
	if err != nil {
		return nil, err
	}
	return toQueueItems(queueModels), nil
}

// ClaimProcessing atomically marks items as processing and returns them.
// Rows locked by another worker are skipped rather than waited on.
func (r *GormNotificationQueueRepository) ClaimProcessing(ctx context.Context, ids []uuid.UUID) ([]*notification.QueueItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var queueModels []models.NotificationQueueItemModel

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Clauses(clause.Locking{
				Strength: "UPDATE",
				Options:  "SKIP LOCKED",
			}).
			Where("id IN ? AND status IN ?", ids, []notification.Status{
				notification.StatusPending,
				notification.StatusFailed,
			}).
			Find(&queueModels).Error; err != nil {
			return err
		}

		if len(queueModels) == 0 {
			return nil
		}

		claimedIDs := make([]uuid.UUID, len(queueModels))
		for i, m := range queueModels {
			claimedIDs[i] = m.ID
		}

		now := time.Now()
		if err := tx.Model(&models.NotificationQueueItemModel{}).
			Where("id IN ?", claimedIDs).
			Updates(map[string]any{
				"status":     notification.StatusProcessing,
				"updated_at": now,
			}).Error; err != nil {
			return err
		}

		for i := range queueModels {
			queueModels[i].Status = notification.StatusProcessing
			queueModels[i].UpdatedAt = now
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return toQueueItems(queueModels), nil
}

// Update persists worker-side status changes
func (r *GormNotificationQueueRepository) Update(ctx context.Context, item *notification.QueueItem) error {
	item.UpdatedAt = time.Now()
	model := models.NotificationQueueItemModelFromDomain(item)
	return r.db.WithContext(ctx).Save(model).Error
}

// CountByStatus returns the number of items in each status
func (r *GormNotificationQueueRepository) CountByStatus(ctx context.Context) (map[notification.Status]int64, error) {
	var counts []struct {
		Status notification.Status
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.NotificationQueueItemModel{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}

	result := make(map[notification.Status]int64, len(counts))
	for _, c := range counts {
		result[c.Status] = c.Count
	}
	return result, nil
}

// DeleteOlderThan removes sent items created before the given time
func (r *GormNotificationQueueRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", notification.StatusSent, before).
		Delete(&models.NotificationQueueItemModel{})
	return result.RowsAffected, result.Error
}

func toQueueItems(queueModels []models.NotificationQueueItemModel) []*notification.QueueItem {
	items := make([]*notification.QueueItem, len(queueModels))
	for i := range queueModels {
		items[i] = queueModels[i].ToDomain()
	}
	return items
}
