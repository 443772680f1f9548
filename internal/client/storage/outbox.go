package storage

import (
	"context"
	"time"

	"github.com/iudanet/studysync/internal/models"
)

//go:generate moq -out outbox_mock.go . OutboxStorage

// OutboxStorage defines interface for the durable mutation outbox.
// Журнал append-only: элементы не меняются на месте, кроме полей
// статуса и retry. Порядок внутри одной сущности строго по Seq.
type OutboxStorage interface {
	// SaveRecordAndEnqueue writes the record and appends the outbox item
	// in a single transaction, so a crash can never leave one without the
	// other. Для Delete применяется правило схлопывания: более ранние
	// pending create/update той же сущности удаляются, если ни один из
	// них еще не начал отправляться. Возвращает количество схлопнутых
	// элементов.
	SaveRecordAndEnqueue(ctx context.Context, rec *models.VersionedRecord, item *models.OutboxItem) (int, error)

	// GetItem retrieves an outbox item by id
	// Returns ErrItemNotFound if item doesn't exist
	GetItem(ctx context.Context, itemID string) (*models.OutboxItem, error)

	// EntityItems returns all items of the entity in enqueue order
	EntityItems(ctx context.Context, entityID string) ([]*models.OutboxItem, error)

	// NextBatch returns up to limit items eligible for draining at now:
	// the oldest due pending item per entity, in enqueue order. Сущности
	// с элементом в статусе syncing, с недозревшим retry или с записью
	// в конфликте пропускаются целиком — не больше одного элемента
	// в полете на сущность.
	NextBatch(ctx context.Context, ownerID string, limit int, now time.Time) ([]*models.OutboxItem, error)

	// MarkSyncing transitions a pending item to syncing
	MarkSyncing(ctx context.Context, itemID string) error

	// MarkSynced finalizes an item and removes it from the log. Если
	// элемент был Delete, запись сущности и вся ее история outbox
	// вычищаются в той же транзакции.
	MarkSynced(ctx context.Context, itemID string) error

	// MarkFailed transitions a syncing (or pending) item to failed,
	// increments its retry count and stores the backoff deadline.
	// retryable=false означает, что вернуть элемент в очередь может
	// только явный Requeue.
	MarkFailed(ctx context.Context, itemID, lastError string, retryable bool, nextRetryAt time.Time) error

	// Requeue flips a failed item back to pending (manual retry)
	Requeue(ctx context.Context, itemID string) error

	// RequeueDue flips all retryable failed items whose backoff window
	// elapsed back to pending. Returns the number of requeued items.
	RequeueDue(ctx context.Context, now time.Time) (int, error)

	// RequeueStaleSyncing returns items stranded in syncing by a crash
	// back to pending. Вызывается один раз при старте координатора.
	RequeueStaleSyncing(ctx context.Context) (int, error)

	// PendingCount returns the number of non-terminal items for the entity
	PendingCount(ctx context.Context, entityID string) (int, error)

	// FailedItems returns all failed items of the owner in enqueue order
	FailedItems(ctx context.Context, ownerID string) ([]*models.OutboxItem, error)

	// DiscardItem removes an item from the log without syncing it.
	// Используется для отказа от мутации, отвергнутой сервером.
	DiscardItem(ctx context.Context, itemID string) error
}
