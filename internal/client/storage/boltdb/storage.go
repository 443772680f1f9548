// Package boltdb реализует локальное durable-хранилище клиента поверх bbolt:
// записи сущностей, журнал outbox и его вторичный индекс. Все составные
// операции выполняются в одной транзакции bbolt, поэтому пара
// "запись + элемент outbox" не может разъехаться даже при падении процесса.
package boltdb

import (
	"context"
	"errors"
	"fmt"
	"syscall"

	"go.etcd.io/bbolt"

	"github.com/iudanet/studysync/internal/client/storage"
)

var (
	// BoltDB bucket names
	bucketEntities    = []byte("entities")
	bucketOutbox      = []byte("outbox")
	bucketOutboxIndex = []byte("outbox_index") // (entityID, seq) -> itemID
)

// Storage represents BoltDB storage implementation for client
type Storage struct {
	db *bbolt.DB
}

// New creates a new BoltDB storage instance
// dbPath is the path to the BoltDB database file
func New(ctx context.Context, dbPath string) (*Storage, error) {
	// Открываем BoltDB
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	s := &Storage{db: db}

	// Инициализируем buckets
	if err := s.initBuckets(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return s, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// initBuckets создает необходимые buckets если они не существуют
func (s *Storage) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketEntities, bucketOutbox, bucketOutboxIndex} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", name, err)
			}
		}
		return nil
	})
}

// recordKey формирует ключ записи в bucket entities
func recordKey(ownerID, entityID string) []byte {
	return []byte(ownerID + "/" + entityID)
}

// indexKey формирует ключ вторичного индекса outbox.
// Seq дополняется нулями, чтобы лексикографический порядок ключей
// совпадал с числовым порядком постановки в очередь.
func indexKey(entityID string, seq uint64) []byte {
	return []byte(fmt.Sprintf("%s/%020d", entityID, seq))
}

// indexPrefix префикс индекса для всех элементов одной сущности
func indexPrefix(entityID string) []byte {
	return []byte(entityID + "/")
}

// mapWriteErr переводит низкоуровневые ошибки записи в ошибки хранилища.
// Нехватка места — отдельный вид ошибки, который должен дойти до вызывающего.
func mapWriteErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, syscall.ENOSPC) {
		return fmt.Errorf("%w: %s", storage.ErrQuotaExceeded, err)
	}
	return err
}
