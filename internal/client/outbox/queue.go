// Package outbox реализует политику durable-очереди мутаций поверх
// клиентского хранилища: постановку в очередь вместе с записью сущности,
// выбор элементов для отправки и переходы статусов с экспоненциальным
// backoff для временных сбоев.
package outbox

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/studysync/internal/client/storage"
	"github.com/iudanet/studysync/internal/models"
)

// DefaultMaxRetries максимум автоматических повторов, после которого
// элемент остается failed до явного ручного retry
const DefaultMaxRetries = 8

// Queue управляет журналом отложенных мутаций
type Queue struct {
	store      storage.OutboxStorage
	logger     *slog.Logger
	now        func() time.Time
	backoff    Backoff
	maxRetries int
}

// NewQueue creates a new outbox queue over the given storage
func NewQueue(store storage.OutboxStorage, logger *slog.Logger) *Queue {
	return &Queue{
		store:      store,
		logger:     logger,
		backoff:    DefaultBackoff,
		maxRetries: DefaultMaxRetries,
		now:        time.Now,
	}
}

// Enqueue appends a mutation for the entity together with its record write
// in one durable transaction. Возвращает созданный элемент.
func (q *Queue) Enqueue(ctx context.Context, rec *models.VersionedRecord, op models.Operation) (*models.OutboxItem, error) {
	item := &models.OutboxItem{
		ItemID:     uuid.New().String(),
		EntityID:   rec.ID,
		OwnerID:    rec.OwnerID,
		Operation:  op,
		Payload:    append([]byte(nil), rec.Payload...), // снимок, не живая ссылка
		Status:     models.ItemStatusPending,
		EnqueuedAt: q.now(),
		Retryable:  true,
	}

	collapsed, err := q.store.SaveRecordAndEnqueue(ctx, rec, item)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue %s for %s: %w", op, rec.ID, err)
	}

	if collapsed > 0 {
		q.logger.Debug("Collapsed pending mutations into delete",
			"entity_id", rec.ID,
			"collapsed", collapsed)
	}

	return item, nil
}

// NextBatch returns items eligible for draining right now
func (q *Queue) NextBatch(ctx context.Context, ownerID string, limit int) ([]*models.OutboxItem, error) {
	return q.store.NextBatch(ctx, ownerID, limit, q.now())
}

// MarkSyncing transitions an item to syncing before the network call
func (q *Queue) MarkSyncing(ctx context.Context, itemID string) error {
	return q.store.MarkSyncing(ctx, itemID)
}

// MarkSynced finalizes a successfully applied item
func (q *Queue) MarkSynced(ctx context.Context, itemID string) error {
	return q.store.MarkSynced(ctx, itemID)
}

// MarkTransientFailure records a retryable failure and schedules the next
// attempt. За пределами retry-горизонта элемент перестает повторяться
// автоматически и ждет ручного вмешательства.
func (q *Queue) MarkTransientFailure(ctx context.Context, item *models.OutboxItem, cause error) error {
	attempt := item.RetryCount + 1
	retryable := attempt < q.maxRetries
	nextRetryAt := q.now().Add(q.backoff.Delay(attempt))

	if !retryable {
		q.logger.Warn("Retry horizon exhausted, item needs manual retry",
			"item_id", item.ItemID,
			"entity_id", item.EntityID,
			"attempts", attempt)
	}

	return q.store.MarkFailed(ctx, item.ItemID, cause.Error(), retryable, nextRetryAt)
}

// MarkPermanentFailure records a rejection that must not be retried
// automatically (валидация/схема на сервере)
func (q *Queue) MarkPermanentFailure(ctx context.Context, item *models.OutboxItem, cause error) error {
	return q.store.MarkFailed(ctx, item.ItemID, cause.Error(), false, q.now())
}

// Retry flips a failed item back to pending by explicit request
func (q *Queue) Retry(ctx context.Context, itemID string) error {
	return q.store.Requeue(ctx, itemID)
}

// RequeueDue returns due retryable failed items to the pending state
func (q *Queue) RequeueDue(ctx context.Context) (int, error) {
	return q.store.RequeueDue(ctx, q.now())
}

// RecoverStale returns items stranded in syncing by a previous crash back
// to pending. Должен вызываться один раз при старте.
func (q *Queue) RecoverStale(ctx context.Context) (int, error) {
	return q.store.RequeueStaleSyncing(ctx)
}

// PendingCount returns the number of unacknowledged mutations for the entity
func (q *Queue) PendingCount(ctx context.Context, entityID string) (int, error) {
	return q.store.PendingCount(ctx, entityID)
}

// GetItem returns a single outbox item by id
func (q *Queue) GetItem(ctx context.Context, itemID string) (*models.OutboxItem, error) {
	return q.store.GetItem(ctx, itemID)
}

// EntityItems returns the entity's outbox log in enqueue order
func (q *Queue) EntityItems(ctx context.Context, entityID string) ([]*models.OutboxItem, error) {
	return q.store.EntityItems(ctx, entityID)
}

// FailedItems returns the owner's failed items awaiting manual action
func (q *Queue) FailedItems(ctx context.Context, ownerID string) ([]*models.OutboxItem, error) {
	return q.store.FailedItems(ctx, ownerID)
}

// Discard drops a failed or pending item without syncing it
func (q *Queue) Discard(ctx context.Context, itemID string) error {
	return q.store.DiscardItem(ctx, itemID)
}
