package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/zoravo/oms/internal/domain/notification"
)

// NotificationQueueItemModel is the persistence model for outbound notification
// queue items. Producers insert rows transactionally with the business change;
// the delivery worker claims and updates them.
type NotificationQueueItemModel struct {
	ID           uuid.UUID           `gorm:"type:uuid;primaryKey"`
	TenantID     uuid.UUID           `gorm:"type:uuid;not null;index:idx_notification_tenant_status,priority:1"`
	EventType    string              `gorm:"type:varchar(100);not null"`
	Payload      []byte              `gorm:"type:jsonb;not null"`
	Status       notification.Status `gorm:"type:varchar(20);not null;default:'pending';index:idx_notification_tenant_status,priority:2;index:idx_notification_status_created,priority:1"`
	RetryCount   int                 `gorm:"not null;default:0"`
	ErrorMessage string              `gorm:"type:text"`
	NextRetryAt  *time.Time          `gorm:"index:idx_notification_next_retry"`
	ProcessedAt  *time.Time
	CreatedAt    time.Time `gorm:"not null;index:idx_notification_status_created,priority:2"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (NotificationQueueItemModel) TableName() string {
	return "notification_queue"
}

// ToDomain converts the persistence model to a domain QueueItem.
func (m *NotificationQueueItemModel) ToDomain() *notification.QueueItem {
	return &notification.QueueItem{
		ID:           m.ID,
		TenantID:     m.TenantID,
		EventType:    m.EventType,
		Payload:      m.Payload,
		Status:       m.Status,
		RetryCount:   m.RetryCount,
		ErrorMessage: m.ErrorMessage,
		NextRetryAt:  m.NextRetryAt,
		ProcessedAt:  m.ProcessedAt,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain QueueItem.
func (m *NotificationQueueItemModel) FromDomain(item *notification.QueueItem) {
	m.ID = item.ID
	m.TenantID = item.TenantID
	m.EventType = item.EventType
	m.Payload = item.Payload
	m.Status = item.Status
	m.RetryCount = item.RetryCount
	m.ErrorMessage = item.ErrorMessage
	m.NextRetryAt = item.NextRetryAt
	m.ProcessedAt = item.ProcessedAt
	m.CreatedAt = item.CreatedAt
	m.UpdatedAt = item.UpdatedAt
}

// NotificationQueueItemModelFromDomain creates a new persistence model from a domain QueueItem.
func NotificationQueueItemModelFromDomain(item *notification.QueueItem) *NotificationQueueItemModel {
	m := &NotificationQueueItemModel{}
	m.FromDomain(item)
	return m
}
