package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// QueueRepository defines persistence for the notification queue.
// Producers only ever call Save; the claim/update primitives exist for the
// external delivery worker.
type QueueRepository interface {
	// Save appends one or more items to the queue
	Save(ctx context.Context, items ...*QueueItem) error

	// FindPending retrieves pending items up to the specified limit
	FindPending(ctx context.Context, limit int) ([]*QueueItem, error)

	// FindRetryable retrieves failed items whose next retry time has passed
	FindRetryable(ctx context.Context, before time.Time, limit int) ([]*QueueItem, error)

	// ClaimProcessing atomically marks items as processing and returns them
	ClaimProcessing(ctx context.Context, ids []uuid.UUID) ([]*QueueItem, error)

	// Update persists worker-side status changes
	Update(ctx context.Context, item *QueueItem) error

	// CountByStatus returns the number of items in each status
	CountByStatus(ctx context.Context) (map[Status]int64, error)

	// DeleteOlderThan removes sent items created before the given time
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}
