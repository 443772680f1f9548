package storage

import (
	"context"

	"github.com/iudanet/studysync/internal/models"
)

//go:generate moq -out records_mock.go . RecordStorage

// RecordStorage defines interface for storing versioned records on client.
// Записи скоупятся по (ownerID, entityID); payload хранится как есть.
type RecordStorage interface {
	// SaveRecord stores or replaces a versioned record
	SaveRecord(ctx context.Context, rec *models.VersionedRecord) error

	// GetRecord retrieves a record by owner and entity id
	// Returns ErrRecordNotFound if record doesn't exist
	GetRecord(ctx context.Context, ownerID, entityID string) (*models.VersionedRecord, error)

	// UpdateRecord atomically re-reads the record, applies fn and writes
	// the result back in a single transaction. fn получает актуальное
	// число незавершенных элементов outbox сущности; конкурентная запись
	// не может вклиниться между чтением и записью.
	// Returns ErrRecordNotFound if record doesn't exist
	UpdateRecord(ctx context.Context, ownerID, entityID string, fn func(rec *models.VersionedRecord, pending int) error) error

	// ListRecords returns all records of the owner, including those
	// awaiting a pending delete
	ListRecords(ctx context.Context, ownerID string) ([]*models.VersionedRecord, error)

	// PurgeRecord removes a record permanently.
	// Вызывается только после подтвержденного сервером удаления.
	PurgeRecord(ctx context.Context, ownerID, entityID string) error
}
