package boltdb

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.etcd.io/bbolt"

	"github.com/iudanet/studysync/internal/client/storage"
	"github.com/iudanet/studysync/internal/models"
)

// SaveRecord stores or replaces a versioned record
func (s *Storage) SaveRecord(ctx context.Context, rec *models.VersionedRecord) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	// Сериализуем запись в JSON
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketEntities)
		if err := bucket.Put(recordKey(rec.OwnerID, rec.ID), data); err != nil {
			return mapWriteErr(fmt.Errorf("failed to save record: %w", err))
		}
		return nil
	})

	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}

// GetRecord retrieves a record by owner and entity id
func (s *Storage) GetRecord(ctx context.Context, ownerID, entityID string) (*models.VersionedRecord, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var rec *models.VersionedRecord

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketEntities)
		data := bucket.Get(recordKey(ownerID, entityID))
		if data == nil {
			return storage.ErrRecordNotFound
		}

		rec = &models.VersionedRecord{}
		if err := json.Unmarshal(data, rec); err != nil {
			return fmt.Errorf("failed to unmarshal record: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return rec, nil
}

// UpdateRecord atomically re-reads the record, applies fn and writes the
// result back. Счетчик pending считается в той же транзакции, так что
// комбинированная запись фасада не может вклиниться между чтением и записью.
func (s *Storage) UpdateRecord(ctx context.Context, ownerID, entityID string, fn func(rec *models.VersionedRecord, pending int) error) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketEntities)
		key := recordKey(ownerID, entityID)

		data := bucket.Get(key)
		if data == nil {
			return storage.ErrRecordNotFound
		}

		rec := &models.VersionedRecord{}
		if err := json.Unmarshal(data, rec); err != nil {
			return fmt.Errorf("failed to unmarshal record: %w", err)
		}

		pending, err := countEntityItems(tx, entityID)
		if err != nil {
			return err
		}

		if err := fn(rec, pending); err != nil {
			return err
		}

		updated, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal record: %w", err)
		}
		if err := bucket.Put(key, updated); err != nil {
			return mapWriteErr(fmt.Errorf("failed to save record: %w", err))
		}

		return nil
	})

	if err != nil {
		return err
	}

	return nil
}

// ListRecords returns all records of the owner in key order
func (s *Storage) ListRecords(ctx context.Context, ownerID string) ([]*models.VersionedRecord, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	prefix := []byte(ownerID + "/")
	var records []*models.VersionedRecord

	err := s.db.View(func(tx *bbolt.Tx) error {
		cursor := tx.Bucket(bucketEntities).Cursor()

		// Проходим только по ключам владельца
		for k, v := cursor.Seek(prefix); k != nil && strings.HasPrefix(string(k), string(prefix)); k, v = cursor.Next() {
			var rec models.VersionedRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("failed to unmarshal record: %w", err)
			}
			records = append(records, &rec)
		}

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	return records, nil
}

// PurgeRecord removes a record permanently
func (s *Storage) PurgeRecord(ctx context.Context, ownerID, entityID string) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketEntities).Delete(recordKey(ownerID, entityID))
	})

	if err != nil {
		return fmt.Errorf("purge transaction failed: %w", err)
	}

	return nil
}
