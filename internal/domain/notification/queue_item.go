package notification

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/zoravo/oms/internal/domain/shared"
)

// Status represents the delivery state of a queue item
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSent       Status = "sent"
	StatusFailed     Status = "failed"
)

// Default retry configuration for the delivery worker
const (
	DefaultMaxRetries  = 5
	DefaultBaseBackoff = time.Second
)

// Well-known event types raised by producers in this system
const (
	EventInvoiceIssued  = "invoice_issued"
	EventInvoicePaid    = "invoice_paid"
	EventInvoiceOverdue = "invoice_overdue"
)

// QueueItem is a durably persisted intent to notify. Producers append items;
// only the delivery worker mutates status and retry bookkeeping.
type QueueItem struct {
	ID           uuid.UUID       `json:"id"`
	TenantID     uuid.UUID       `json:"tenant_id"`
	EventType    string          `json:"event_type"`
	Payload      json.RawMessage `json:"payload"`
	Status       Status          `json:"status"`
	RetryCount   int             `json:"retry_count"`
	ErrorMessage string          `json:"error_message,omitempty"`
	NextRetryAt  *time.Time      `json:"next_retry_at,omitempty"`
	ProcessedAt  *time.Time      `json:"processed_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// NewQueueItem creates a pending queue item. The all-zero tenant id is
// rejected because it indicates an unresolved tenant context upstream.
func NewQueueItem(tenantID uuid.UUID, eventType string, payload any) (*QueueItem, error) {
	if tenantID == uuid.Nil {
		return nil, shared.ErrTenantRequired
	}
	if eventType == "" {
		return nil, shared.NewDomainError("INVALID_EVENT_TYPE", "Event type cannot be empty")
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_PAYLOAD", "Payload is not serializable")
	}

	now := time.Now()
	return &QueueItem{
		ID:        uuid.New(),
		TenantID:  tenantID,
		EventType: eventType,
		Payload:   raw,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// MarkProcessing claims the item for delivery
func (q *QueueItem) MarkProcessing() error {
	if q.Status != StatusPending && q.Status != StatusFailed {
		return shared.NewDomainError("INVALID_STATE", "Only pending or failed items can be claimed")
	}
	q.Status = StatusProcessing
	q.UpdatedAt = time.Now()
	return nil
}

// MarkSent records successful delivery
func (q *QueueItem) MarkSent() {
	now := time.Now()
	q.Status = StatusSent
	q.ProcessedAt = &now
	q.UpdatedAt = now
}

// MarkFailed records a delivery failure and schedules the next retry with
// exponential backoff. Items past the retry budget stay failed with no
// next retry time.
func (q *QueueItem) MarkFailed(errMsg string) {
	q.RetryCount++
	q.ErrorMessage = errMsg
	q.Status = StatusFailed
	q.UpdatedAt = time.Now()

	if q.RetryCount >= DefaultMaxRetries {
		q.NextRetryAt = nil
		return
	}
	backoff := DefaultBaseBackoff * time.Duration(1<<uint(q.RetryCount-1))
	nextRetry := time.Now().Add(backoff)
	q.NextRetryAt = &nextRetry
}

// CanRetry returns true if the delivery worker may pick the item up again
func (q *QueueItem) CanRetry() bool {
	return q.Status == StatusFailed && q.RetryCount < DefaultMaxRetries
}
