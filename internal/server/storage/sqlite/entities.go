package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/studysync/internal/models"
	"github.com/iudanet/studysync/internal/server/storage"
)

// SaveEntity creates or updates the entity with a compare-and-set check.
// Повтор мутации с тем же itemID возвращает текущую версию без изменений.
func (s *Storage) SaveEntity(ctx context.Context, ownerID, entityID string, payload []byte, expectedVersion int64, itemID string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	existing, err := getEntityTx(ctx, tx, ownerID, entityID)
	if err != nil && !errors.Is(err, storage.ErrEntityNotFound) {
		return 0, fmt.Errorf("failed to check existing entity: %w", err)
	}

	// Идемпотентный повтор: мутация уже применена ранее
	if existing != nil && itemID != "" && existing.AppliedItemID == itemID {
		return existing.Version, nil
	}

	now := time.Now()

	if existing == nil {
		if expectedVersion != 0 {
			// Клиент ожидает версию, которой сервер не знает
			return 0, &storage.VersionConflictError{CurrentVersion: 0}
		}

		query := `
			INSERT INTO entities (owner_id, entity_id, version, payload, applied_item_id, deleted, updated_at)
			VALUES (?, ?, 1, ?, ?, 0, ?)
		`
		if _, err := tx.ExecContext(ctx, query, ownerID, entityID, payload, itemID, now.UnixMilli()); err != nil {
			return 0, fmt.Errorf("failed to insert entity: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return 0, fmt.Errorf("failed to commit: %w", err)
		}
		return 1, nil
	}

	// Воскрешение поверх tombstone разрешено с expectedVersion == 0:
	// для клиента удаленная сущность не существует
	casMatch := expectedVersion == existing.Version ||
		(existing.Deleted && expectedVersion == 0)
	if !casMatch {
		conflict := &storage.VersionConflictError{
			CurrentVersion:    existing.Version,
			CurrentModifiedAt: existing.UpdatedAt,
		}
		if !existing.Deleted {
			conflict.CurrentPayload = existing.Payload
		}
		return 0, conflict
	}

	newVersion := existing.Version + 1
	query := `
		UPDATE entities
		SET version = ?, payload = ?, applied_item_id = ?, deleted = 0, updated_at = ?
		WHERE owner_id = ? AND entity_id = ?
	`
	if _, err := tx.ExecContext(ctx, query, newVersion, payload, itemID, now.UnixMilli(), ownerID, entityID); err != nil {
		return 0, fmt.Errorf("failed to update entity: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}

	return newVersion, nil
}

// GetEntity retrieves the current entity state.
// Returns ErrEntityNotFound if the entity doesn't exist or is deleted.
func (s *Storage) GetEntity(ctx context.Context, ownerID, entityID string) (*models.ServerEntity, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	entity, err := getEntityTx(ctx, tx, ownerID, entityID)
	if err != nil {
		return nil, err
	}
	if entity.Deleted {
		// Tombstone наружу не отдается
		return nil, storage.ErrEntityNotFound
	}

	return entity, nil
}

// DeleteEntity tombstones the entity after a compare-and-set check.
// Повторное удаление с тем же itemID идемпотентно.
func (s *Storage) DeleteEntity(ctx context.Context, ownerID, entityID string, expectedVersion int64, itemID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	existing, err := getEntityTx(ctx, tx, ownerID, entityID)
	if err != nil {
		return err
	}

	if existing.Deleted {
		if itemID != "" && existing.AppliedItemID == itemID {
			return nil // повтор уже примененного удаления
		}
		return storage.ErrEntityNotFound
	}

	if expectedVersion != existing.Version {
		return &storage.VersionConflictError{
			CurrentVersion:    existing.Version,
			CurrentPayload:    existing.Payload,
			CurrentModifiedAt: existing.UpdatedAt,
		}
	}

	query := `
		UPDATE entities
		SET version = ?, payload = NULL, applied_item_id = ?, deleted = 1, updated_at = ?
		WHERE owner_id = ? AND entity_id = ?
	`
	if _, err := tx.ExecContext(ctx, query, existing.Version+1, itemID, time.Now().UnixMilli(), ownerID, entityID); err != nil {
		return fmt.Errorf("failed to tombstone entity: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	return nil
}

// getEntityTx читает строку сущности, включая tombstone
func getEntityTx(ctx context.Context, tx *sql.Tx, ownerID, entityID string) (*models.ServerEntity, error) {
	query := `
		SELECT owner_id, entity_id, version, payload, applied_item_id, deleted, updated_at
		FROM entities
		WHERE owner_id = ? AND entity_id = ?
	`

	entity := &models.ServerEntity{}
	var payload sql.NullString
	var deleted int
	var updatedAt int64

	err := tx.QueryRowContext(ctx, query, ownerID, entityID).Scan(
		&entity.OwnerID,
		&entity.EntityID,
		&entity.Version,
		&payload,
		&entity.AppliedItemID,
		&deleted,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrEntityNotFound
		}
		return nil, fmt.Errorf("failed to get entity: %w", err)
	}

	if payload.Valid {
		entity.Payload = []byte(payload.String)
	}
	entity.Deleted = deleted != 0
	entity.UpdatedAt = time.UnixMilli(updatedAt)

	return entity, nil
}
