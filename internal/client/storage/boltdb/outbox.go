package boltdb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"github.com/iudanet/studysync/internal/client/storage"
	"github.com/iudanet/studysync/internal/models"
)

// SaveRecordAndEnqueue writes the record and appends the outbox item in one
// bbolt transaction. Для операции delete применяется правило схлопывания:
// ранние pending create/update той же сущности удаляются из журнала, если
// ни один элемент сущности не находится в статусе syncing.
func (s *Storage) SaveRecordAndEnqueue(ctx context.Context, rec *models.VersionedRecord, item *models.OutboxItem) (int, error) {
	if s.db == nil {
		return 0, storage.ErrStorageClosed
	}

	recData, err := json.Marshal(rec)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal record: %w", err)
	}

	collapsed := 0

	err = s.db.Update(func(tx *bbolt.Tx) error {
		entities := tx.Bucket(bucketEntities)
		outbox := tx.Bucket(bucketOutbox)
		index := tx.Bucket(bucketOutboxIndex)

		// Сохраняем запись
		if err := entities.Put(recordKey(rec.OwnerID, rec.ID), recData); err != nil {
			return mapWriteErr(fmt.Errorf("failed to save record: %w", err))
		}

		// Схлопывание: delete поглощает ранние pending create/update
		if item.Operation == models.OperationDelete {
			n, err := collapsePending(tx, item.EntityID)
			if err != nil {
				return err
			}
			collapsed = n
		}

		// Присваиваем монотонный номер в журнале
		seq, err := outbox.NextSequence()
		if err != nil {
			return fmt.Errorf("failed to get next sequence: %w", err)
		}
		item.Seq = seq

		itemData, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("failed to marshal outbox item: %w", err)
		}

		if err := outbox.Put([]byte(item.ItemID), itemData); err != nil {
			return mapWriteErr(fmt.Errorf("failed to save outbox item: %w", err))
		}
		if err := index.Put(indexKey(item.EntityID, seq), []byte(item.ItemID)); err != nil {
			return mapWriteErr(fmt.Errorf("failed to save outbox index: %w", err))
		}

		return nil
	})

	if err != nil {
		return 0, fmt.Errorf("enqueue transaction failed: %w", err)
	}

	return collapsed, nil
}

// collapsePending удаляет pending create/update элементы сущности перед
// постановкой delete. Если какой-то элемент уже syncing, схлопывание не
// выполняется и delete встает за ним в очередь.
func collapsePending(tx *bbolt.Tx, entityID string) (int, error) {
	outbox := tx.Bucket(bucketOutbox)
	index := tx.Bucket(bucketOutboxIndex)

	type indexed struct {
		item *models.OutboxItem
		key  []byte
	}

	var candidates []indexed

	cursor := index.Cursor()
	prefix := indexPrefix(entityID)
	for k, v := cursor.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = cursor.Next() {
		item, err := getItemTx(tx, string(v))
		if err != nil {
			return 0, err
		}

		// Элемент в полете — его нельзя трогать, delete встает за ним
		if item.Status == models.ItemStatusSyncing {
			return 0, nil
		}

		if item.Status == models.ItemStatusPending &&
			(item.Operation == models.OperationCreate || item.Operation == models.OperationUpdate) {
			key := make([]byte, len(k))
			copy(key, k)
			candidates = append(candidates, indexed{item: item, key: key})
		}
	}

	for _, c := range candidates {
		if err := outbox.Delete([]byte(c.item.ItemID)); err != nil {
			return 0, fmt.Errorf("failed to collapse outbox item: %w", err)
		}
		if err := index.Delete(c.key); err != nil {
			return 0, fmt.Errorf("failed to collapse index entry: %w", err)
		}
	}

	return len(candidates), nil
}

// getItemTx загружает элемент outbox внутри открытой транзакции
func getItemTx(tx *bbolt.Tx, itemID string) (*models.OutboxItem, error) {
	data := tx.Bucket(bucketOutbox).Get([]byte(itemID))
	if data == nil {
		return nil, storage.ErrItemNotFound
	}

	item := &models.OutboxItem{}
	if err := json.Unmarshal(data, item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal outbox item: %w", err)
	}

	return item, nil
}

// putItemTx сохраняет элемент outbox внутри открытой транзакции
func putItemTx(tx *bbolt.Tx, item *models.OutboxItem) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal outbox item: %w", err)
	}
	if err := tx.Bucket(bucketOutbox).Put([]byte(item.ItemID), data); err != nil {
		return mapWriteErr(fmt.Errorf("failed to save outbox item: %w", err))
	}
	return nil
}

// GetItem retrieves an outbox item by id
func (s *Storage) GetItem(ctx context.Context, itemID string) (*models.OutboxItem, error) {
	if s.db == nil {
		return nil, storage.ErrItemNotFound
	}

	var item *models.OutboxItem

	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		item, err = getItemTx(tx, itemID)
		return err
	})

	if err != nil {
		return nil, err
	}

	return item, nil
}

// EntityItems returns all items of the entity in enqueue order
func (s *Storage) EntityItems(ctx context.Context, entityID string) ([]*models.OutboxItem, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var items []*models.OutboxItem

	err := s.db.View(func(tx *bbolt.Tx) error {
		cursor := tx.Bucket(bucketOutboxIndex).Cursor()
		prefix := indexPrefix(entityID)

		for k, v := cursor.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = cursor.Next() {
			item, err := getItemTx(tx, string(v))
			if err != nil {
				return err
			}
			items = append(items, item)
		}

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to get entity items: %w", err)
	}

	return items, nil
}

// NextBatch returns up to limit eligible items, the oldest per entity.
// Сущность пропускается целиком, если ее головной элемент в полете,
// не дозрел до retry или запись находится в конфликте.
func (s *Storage) NextBatch(ctx context.Context, ownerID string, limit int, now time.Time) ([]*models.OutboxItem, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var batch []*models.OutboxItem

	err := s.db.View(func(tx *bbolt.Tx) error {
		entities := tx.Bucket(bucketEntities)
		cursor := tx.Bucket(bucketOutboxIndex).Cursor()

		var currentEntity string
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			entityID := entityFromIndexKey(k)
			if entityID == currentEntity {
				// Не головной элемент сущности — порядок внутри
				// сущности строго последовательный
				continue
			}
			currentEntity = entityID

			item, err := getItemTx(tx, string(v))
			if err != nil {
				return err
			}

			if item.OwnerID != ownerID {
				continue
			}
			if !item.Due(now) {
				continue
			}

			// Конфликтная запись блокирует дренаж своей сущности
			// до явного разрешения
			recData := entities.Get(recordKey(item.OwnerID, item.EntityID))
			if recData != nil {
				var rec models.VersionedRecord
				if err := json.Unmarshal(recData, &rec); err != nil {
					return fmt.Errorf("failed to unmarshal record: %w", err)
				}
				if rec.SyncStatus == models.SyncStatusConflict {
					continue
				}
			}

			batch = append(batch, item)
		}

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to build batch: %w", err)
	}

	// Возвращаем в порядке постановки в очередь
	sort.Slice(batch, func(i, j int) bool { return batch[i].Seq < batch[j].Seq })
	if limit > 0 && len(batch) > limit {
		batch = batch[:limit]
	}

	return batch, nil
}

// entityFromIndexKey извлекает entityID из ключа индекса (entityID/seq)
func entityFromIndexKey(key []byte) string {
	// Seq занимает последние 20 байт, перед ним разделитель
	if len(key) <= 21 {
		return string(key)
	}
	return string(key[:len(key)-21])
}

// MarkSyncing transitions a pending item to syncing
func (s *Storage) MarkSyncing(ctx context.Context, itemID string) error {
	return s.transition(itemID, func(item *models.OutboxItem) error {
		if item.Status != models.ItemStatusPending {
			return fmt.Errorf("%w: %s -> syncing", storage.ErrInvalidTransition, item.Status)
		}
		item.Status = models.ItemStatusSyncing
		return nil
	})
}

// MarkSynced finalizes an item: removes it from the log and, for delete
// operations, purges the record and the entity's remaining outbox history.
func (s *Storage) MarkSynced(ctx context.Context, itemID string) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		item, err := getItemTx(tx, itemID)
		if err != nil {
			return err
		}
		if item.Status != models.ItemStatusSyncing {
			return fmt.Errorf("%w: %s -> synced", storage.ErrInvalidTransition, item.Status)
		}

		outbox := tx.Bucket(bucketOutbox)
		index := tx.Bucket(bucketOutboxIndex)

		if err := outbox.Delete([]byte(item.ItemID)); err != nil {
			return fmt.Errorf("failed to delete outbox item: %w", err)
		}
		if err := index.Delete(indexKey(item.EntityID, item.Seq)); err != nil {
			return fmt.Errorf("failed to delete index entry: %w", err)
		}

		// Подтвержденное удаление вычищает историю outbox до самого
		// delete. Элементы, поставленные позже (воскрешение), переживают
		// подтверждение и уходят на сервер поверх tombstone.
		if item.Operation == models.OperationDelete {
			if err := purgeEntityHistoryUpTo(tx, item.EntityID, item.Seq); err != nil {
				return err
			}

			entities := tx.Bucket(bucketEntities)
			key := recordKey(item.OwnerID, item.EntityID)
			if data := entities.Get(key); data != nil {
				var rec models.VersionedRecord
				if err := json.Unmarshal(data, &rec); err != nil {
					return fmt.Errorf("failed to unmarshal record: %w", err)
				}

				if rec.PendingDelete {
					if err := entities.Delete(key); err != nil {
						return fmt.Errorf("failed to purge record: %w", err)
					}
				} else {
					// Запись воскрешена после постановки delete: на
					// сервере теперь tombstone, так что create должен
					// уйти с нулевой ожидаемой версией
					rec.ServerVersion = 0
					updated, err := json.Marshal(&rec)
					if err != nil {
						return fmt.Errorf("failed to marshal record: %w", err)
					}
					if err := entities.Put(key, updated); err != nil {
						return mapWriteErr(fmt.Errorf("failed to save record: %w", err))
					}
				}
			}
		}

		return nil
	})

	if err != nil {
		return fmt.Errorf("mark synced failed: %w", err)
	}

	return nil
}

// purgeEntityHistoryUpTo удаляет элементы outbox сущности с номерами не
// больше maxSeq вместе с индексом
func purgeEntityHistoryUpTo(tx *bbolt.Tx, entityID string, maxSeq uint64) error {
	outbox := tx.Bucket(bucketOutbox)
	index := tx.Bucket(bucketOutboxIndex)

	cursor := index.Cursor()
	prefix := indexPrefix(entityID)

	var keys [][]byte
	var itemIDs []string
	for k, v := cursor.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = cursor.Next() {
		item, err := getItemTx(tx, string(v))
		if err != nil {
			return err
		}
		if item.Seq > maxSeq {
			continue
		}
		key := make([]byte, len(k))
		copy(key, k)
		keys = append(keys, key)
		itemIDs = append(itemIDs, string(v))
	}

	for i := range keys {
		if err := outbox.Delete([]byte(itemIDs[i])); err != nil {
			return fmt.Errorf("failed to purge outbox item: %w", err)
		}
		if err := index.Delete(keys[i]); err != nil {
			return fmt.Errorf("failed to purge index entry: %w", err)
		}
	}

	return nil
}

// MarkFailed transitions a syncing item to failed with backoff bookkeeping
func (s *Storage) MarkFailed(ctx context.Context, itemID, lastError string, retryable bool, nextRetryAt time.Time) error {
	return s.transition(itemID, func(item *models.OutboxItem) error {
		if item.Status != models.ItemStatusSyncing {
			return fmt.Errorf("%w: %s -> failed", storage.ErrInvalidTransition, item.Status)
		}
		item.Status = models.ItemStatusFailed
		item.RetryCount++
		item.LastError = lastError
		item.Retryable = retryable
		item.NextRetryAt = nextRetryAt
		return nil
	})
}

// Requeue flips a failed item back to pending (manual retry)
func (s *Storage) Requeue(ctx context.Context, itemID string) error {
	return s.transition(itemID, func(item *models.OutboxItem) error {
		if item.Status != models.ItemStatusFailed {
			return fmt.Errorf("%w: %s -> pending", storage.ErrInvalidTransition, item.Status)
		}
		item.Status = models.ItemStatusPending
		item.Retryable = true
		item.NextRetryAt = time.Time{}
		return nil
	})
}

// RequeueDue flips retryable failed items with an elapsed backoff window
// back to pending. Returns the number of requeued items.
func (s *Storage) RequeueDue(ctx context.Context, now time.Time) (int, error) {
	if s.db == nil {
		return 0, storage.ErrStorageClosed
	}

	requeued := 0

	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketOutbox).ForEach(func(k, v []byte) error {
			var item models.OutboxItem
			if err := json.Unmarshal(v, &item); err != nil {
				return fmt.Errorf("failed to unmarshal outbox item: %w", err)
			}

			if item.Status != models.ItemStatusFailed || !item.Retryable || now.Before(item.NextRetryAt) {
				return nil
			}

			item.Status = models.ItemStatusPending
			if err := putItemTx(tx, &item); err != nil {
				return err
			}
			requeued++
			return nil
		})
	})

	if err != nil {
		return 0, fmt.Errorf("requeue due failed: %w", err)
	}

	return requeued, nil
}

// RequeueStaleSyncing returns items stranded in syncing by a crash back to
// pending. Повторная отправка безопасна: itemID служит ключом идемпотентности.
func (s *Storage) RequeueStaleSyncing(ctx context.Context) (int, error) {
	if s.db == nil {
		return 0, storage.ErrStorageClosed
	}

	requeued := 0

	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketOutbox).ForEach(func(k, v []byte) error {
			var item models.OutboxItem
			if err := json.Unmarshal(v, &item); err != nil {
				return fmt.Errorf("failed to unmarshal outbox item: %w", err)
			}

			if item.Status != models.ItemStatusSyncing {
				return nil
			}

			item.Status = models.ItemStatusPending
			if err := putItemTx(tx, &item); err != nil {
				return err
			}
			requeued++
			return nil
		})
	})

	if err != nil {
		return 0, fmt.Errorf("requeue stale failed: %w", err)
	}

	return requeued, nil
}

// PendingCount returns the number of non-terminal items for the entity
func (s *Storage) PendingCount(ctx context.Context, entityID string) (int, error) {
	if s.db == nil {
		return 0, storage.ErrStorageClosed
	}

	count := 0

	err := s.db.View(func(tx *bbolt.Tx) error {
		n, err := countEntityItems(tx, entityID)
		if err != nil {
			return err
		}
		count = n
		return nil
	})

	if err != nil {
		return 0, fmt.Errorf("failed to count pending items: %w", err)
	}

	return count, nil
}

// countEntityItems считает неподтвержденные мутации сущности внутри
// транзакции; synced-элементы удаляются из журнала и сюда не попадают
func countEntityItems(tx *bbolt.Tx, entityID string) (int, error) {
	count := 0

	cursor := tx.Bucket(bucketOutboxIndex).Cursor()
	prefix := indexPrefix(entityID)

	for k, v := cursor.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = cursor.Next() {
		item, err := getItemTx(tx, string(v))
		if err != nil {
			return 0, err
		}
		if item.Status != models.ItemStatusSynced {
			count++
		}
	}

	return count, nil
}

// FailedItems returns all failed items of the owner in enqueue order
func (s *Storage) FailedItems(ctx context.Context, ownerID string) ([]*models.OutboxItem, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var items []*models.OutboxItem

	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketOutbox).ForEach(func(k, v []byte) error {
			var item models.OutboxItem
			if err := json.Unmarshal(v, &item); err != nil {
				return fmt.Errorf("failed to unmarshal outbox item: %w", err)
			}
			if item.OwnerID == ownerID && item.Status == models.ItemStatusFailed {
				items = append(items, &item)
			}
			return nil
		})
	})

	if err != nil {
		return nil, fmt.Errorf("failed to get failed items: %w", err)
	}

	sort.Slice(items, func(i, j int) bool { return items[i].Seq < items[j].Seq })

	return items, nil
}

// DiscardItem removes an item from the log without syncing it
func (s *Storage) DiscardItem(ctx context.Context, itemID string) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		item, err := getItemTx(tx, itemID)
		if err != nil {
			return err
		}
		if item.Status == models.ItemStatusSyncing {
			return fmt.Errorf("%w: discard while syncing", storage.ErrInvalidTransition)
		}

		if err := tx.Bucket(bucketOutbox).Delete([]byte(item.ItemID)); err != nil {
			return fmt.Errorf("failed to discard outbox item: %w", err)
		}
		if err := tx.Bucket(bucketOutboxIndex).Delete(indexKey(item.EntityID, item.Seq)); err != nil {
			return fmt.Errorf("failed to discard index entry: %w", err)
		}

		return nil
	})

	if err != nil {
		return fmt.Errorf("discard failed: %w", err)
	}

	return nil
}

// transition применяет изменение статуса к элементу в одной транзакции
func (s *Storage) transition(itemID string, fn func(*models.OutboxItem) error) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		item, err := getItemTx(tx, itemID)
		if err != nil {
			return err
		}
		if err := fn(item); err != nil {
			return err
		}
		return putItemTx(tx, item)
	})

	if err != nil {
		return fmt.Errorf("transition failed: %w", err)
	}

	return nil
}
