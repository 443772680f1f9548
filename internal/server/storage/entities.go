package storage

import (
	"context"

	"github.com/iudanet/studysync/internal/models"
)

// EntityStorage defines interface for versioned entity persistence on server.
// Каждая мутация проходит compare-and-set по версии; itemID дает
// идемпотентность: повтор той же мутации возвращает текущую версию,
// не применяя ее второй раз.
type EntityStorage interface {
	// SaveEntity creates or updates the entity and returns the new version.
	// expectedVersion == 0 means creation. Возвращает VersionConflictError
	// при несовпадении версии.
	SaveEntity(ctx context.Context, ownerID, entityID string, payload []byte, expectedVersion int64, itemID string) (int64, error)

	// GetEntity retrieves the current entity state.
	// Returns ErrEntityNotFound if the entity doesn't exist or is deleted.
	GetEntity(ctx context.Context, ownerID, entityID string) (*models.ServerEntity, error)

	// DeleteEntity tombstones the entity after a compare-and-set check.
	// Returns ErrEntityNotFound if the entity doesn't exist,
	// VersionConflictError при несовпадении версии.
	DeleteEntity(ctx context.Context, ownerID, entityID string, expectedVersion int64, itemID string) error
}
