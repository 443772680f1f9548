// Package persist предоставляет фасад персистентности: единственную точку
// входа для прикладного кода. Записи всегда пишутся локально и мгновенно,
// синхронизация с сервером идет асинхронно через outbox и координатор.
package persist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/studysync/internal/client/api"
	"github.com/iudanet/studysync/internal/client/connectivity"
	"github.com/iudanet/studysync/internal/client/outbox"
	"github.com/iudanet/studysync/internal/client/storage"
	syncer "github.com/iudanet/studysync/internal/client/sync"
	"github.com/iudanet/studysync/internal/models"
)

// ErrNotConflicted сущность не находится в состоянии конфликта
var ErrNotConflicted = errors.New("entity is not in conflict state")

// ErrOffline операция требует соединения с сервером
var ErrOffline = errors.New("operation requires connectivity")

// Source показывает, откуда пришли данные при чтении
type Source string

const (
	// SourceLocal данные из локального хранилища
	SourceLocal Source = "local"
	// SourceRemote данные от сервера (локальная копия обновлена)
	SourceRemote Source = "remote"
)

// SyncState агрегированный статус синхронизации сущности
type SyncState struct {
	Status       models.SyncStatus `json:"status"`
	LastError    string            `json:"last_error,omitempty"`
	PendingCount int               `json:"pending_count"`
}

// Service фасад персистентности поверх хранилища, очереди и координатора
type Service struct {
	records   storage.RecordStorage
	queue     *outbox.Queue
	monitor   *connectivity.Monitor
	coord     *syncer.Coordinator
	apiClient api.ClientAPI
	logger    *slog.Logger
	closers   []func() error
	ownerID   string
}

// NewService creates the persistence facade for a single owner
func NewService(
	records storage.RecordStorage,
	queue *outbox.Queue,
	monitor *connectivity.Monitor,
	coord *syncer.Coordinator,
	apiClient api.ClientAPI,
	logger *slog.Logger,
	ownerID string,
) *Service {
	return &Service{
		records:   records,
		queue:     queue,
		monitor:   monitor,
		coord:     coord,
		apiClient: apiClient,
		logger:    logger,
		ownerID:   ownerID,
	}
}

// AddCloser registers a resource closed together with the facade
func (s *Service) AddCloser(fn func() error) {
	s.closers = append(s.closers, fn)
}

// Start launches background synchronization
func (s *Service) Start(ctx context.Context) error {
	return s.coord.Start(ctx)
}

// Close stops synchronization and releases owned resources.
// Незавершенные мутации остаются в outbox и доотправятся после рестарта.
func (s *Service) Close() error {
	s.coord.Stop()

	var errs []error
	for _, fn := range s.closers {
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Save writes the entity locally and enqueues the mutation for sync.
// Никогда не ждет сети: успешный Save гарантирует только локальную
// долговечность. Пустой entityID означает создание с новым id.
func (s *Service) Save(ctx context.Context, entityID string, payload []byte) (*models.VersionedRecord, error) {
	op := models.OperationUpdate
	now := time.Now()

	var rec *models.VersionedRecord
	if entityID == "" {
		entityID = uuid.New().String()
	}

	existing, err := s.records.GetRecord(ctx, s.ownerID, entityID)
	switch {
	case err == nil:
		if existing.SyncStatus == models.SyncStatusConflict {
			// Локальные правки поверх конфликта разрешены: запись
			// остается в конфликте до явного ResolveConflict
			s.logger.Warn("Saving over a conflicted entity", "entity_id", entityID)
		}
		rec = existing
		if rec.PendingDelete {
			// Save поверх отложенного удаления воскрешает сущность
			rec.PendingDelete = false
			op = models.OperationCreate
		}
	case errors.Is(err, storage.ErrRecordNotFound):
		op = models.OperationCreate
		rec = &models.VersionedRecord{
			ID:        entityID,
			OwnerID:   s.ownerID,
			CreatedAt: now,
		}
	default:
		return nil, fmt.Errorf("failed to read record: %w", err)
	}

	rec.Payload = append([]byte(nil), payload...)
	rec.LocalVersion++
	rec.LastModifiedAt = now
	if rec.SyncStatus != models.SyncStatusConflict {
		rec.SyncStatus = models.SyncStatusPending
	}

	if _, err := s.queue.Enqueue(ctx, rec, op); err != nil {
		return nil, fmt.Errorf("failed to persist %s: %w", entityID, err)
	}

	s.logger.Debug("Entity saved locally",
		"entity_id", entityID,
		"local_version", rec.LocalVersion,
		"operation", op)

	s.coord.Kick()
	return rec.Clone(), nil
}

// Load reads the entity, preferring the server copy when it is safe.
// Свежая серверная копия принимается только если локальных неотправленных
// правок нет: иначе чтение вернуло бы данные старее собственной записи
// пользователя. Возвращает источник данных.
func (s *Service) Load(ctx context.Context, entityID string) (*models.VersionedRecord, Source, error) {
	rec, err := s.records.GetRecord(ctx, s.ownerID, entityID)
	if err != nil && !errors.Is(err, storage.ErrRecordNotFound) {
		return nil, SourceLocal, fmt.Errorf("failed to read record: %w", err)
	}
	localExists := err == nil

	if !s.monitor.Online() {
		if !localExists {
			return nil, SourceLocal, storage.ErrRecordNotFound
		}
		return rec, SourceLocal, nil
	}

	// Локальные правки в полете — сервер может быть старее нас
	if localExists && (rec.SyncStatus != models.SyncStatusSynced || rec.PendingDelete) {
		return rec, SourceLocal, nil
	}

	remote, err := s.apiClient.Load(ctx, s.ownerID, entityID)
	switch {
	case err == nil:
		refreshed := s.refreshFromRemote(ctx, entityID, rec, remote)
		return refreshed, SourceRemote, nil

	case errors.Is(err, api.ErrNotFound):
		if localExists {
			// Сущность удалена с другого устройства, локальная
			// синхронизированная копия больше не актуальна
			if perr := s.records.PurgeRecord(ctx, s.ownerID, entityID); perr != nil {
				s.logger.Error("Failed to purge remotely deleted entity",
					"entity_id", entityID, "error", perr)
			}
		}
		return nil, SourceRemote, storage.ErrRecordNotFound

	default:
		// Сеть подвела — деградируем до локальной копии
		s.logger.Warn("Remote load failed, falling back to local copy",
			"entity_id", entityID, "error", err)
		if !localExists {
			return nil, SourceLocal, storage.ErrRecordNotFound
		}
		return rec, SourceLocal, nil
	}
}

// refreshFromRemote обновляет локальную копию серверным состоянием
func (s *Service) refreshFromRemote(ctx context.Context, entityID string, local *models.VersionedRecord, remote *api.EntityState) *models.VersionedRecord {
	rec := local
	if rec == nil {
		rec = &models.VersionedRecord{
			ID:        entityID,
			OwnerID:   s.ownerID,
			CreatedAt: remote.ModifiedAt,
		}
	}
	if rec.ServerVersion == remote.Version && rec.SamePayload(remote.Payload) {
		return rec
	}

	rec.Payload = append([]byte(nil), remote.Payload...)
	rec.ServerVersion = remote.Version
	rec.LastModifiedAt = remote.ModifiedAt
	rec.SyncStatus = models.SyncStatusSynced

	if err := s.records.SaveRecord(ctx, rec); err != nil {
		s.logger.Error("Failed to refresh local copy", "entity_id", entityID, "error", err)
	}
	return rec
}

// List returns summaries of the owner's entities from local storage.
// Списки всегда локальные: полного списочного запроса у сервера нет.
func (s *Service) List(ctx context.Context) ([]models.EntitySummary, error) {
	recs, err := s.records.ListRecords(ctx, s.ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	summaries := make([]models.EntitySummary, 0, len(recs))
	for _, rec := range recs {
		if rec.PendingDelete {
			// Сущности в ожидании удаления для пользователя уже не существуют
			continue
		}
		summaries = append(summaries, rec.Summary())
	}
	return summaries, nil
}

// Delete marks the entity deleted locally and enqueues the deletion.
// Ранее не отправленные create/update той же сущности схлопываются.
func (s *Service) Delete(ctx context.Context, entityID string) error {
	rec, err := s.records.GetRecord(ctx, s.ownerID, entityID)
	if err != nil {
		return fmt.Errorf("failed to read record: %w", err)
	}
	if rec.PendingDelete {
		return nil // удаление уже в очереди
	}

	rec.PendingDelete = true
	rec.LocalVersion++
	rec.LastModifiedAt = time.Now()
	if rec.SyncStatus != models.SyncStatusConflict {
		rec.SyncStatus = models.SyncStatusPending
	}

	if _, err := s.queue.Enqueue(ctx, rec, models.OperationDelete); err != nil {
		return fmt.Errorf("failed to enqueue delete of %s: %w", entityID, err)
	}

	s.logger.Debug("Entity marked for deletion", "entity_id", entityID)
	s.coord.Kick()
	return nil
}

// GetSyncStatus reports the entity's sync state with pending counters
func (s *Service) GetSyncStatus(ctx context.Context, entityID string) (SyncState, error) {
	rec, err := s.records.GetRecord(ctx, s.ownerID, entityID)
	if err != nil {
		return SyncState{}, fmt.Errorf("failed to read record: %w", err)
	}

	pending, err := s.queue.PendingCount(ctx, entityID)
	if err != nil {
		return SyncState{}, fmt.Errorf("failed to count pending items: %w", err)
	}

	state := SyncState{
		Status:       rec.SyncStatus,
		PendingCount: pending,
	}

	// Последняя ошибка берется из головы журнала: именно она держит очередь
	items, err := s.queue.EntityItems(ctx, entityID)
	if err != nil {
		return SyncState{}, fmt.Errorf("failed to read outbox: %w", err)
	}
	for _, item := range items {
		if item.Status == models.ItemStatusFailed && item.LastError != "" {
			state.LastError = item.LastError
			break
		}
	}

	return state, nil
}

// Online reports the current connectivity verdict
func (s *Service) Online() bool {
	return s.monitor.Online()
}

// OnConflict registers a callback for conflicts requiring manual resolution
func (s *Service) OnConflict(fn func(syncer.ConflictEvent)) {
	s.coord.OnConflict(fn)
}

// ForceSync synchronously drains the outbox and reports totals
func (s *Service) ForceSync(ctx context.Context) (syncer.Result, error) {
	return s.coord.ForceSync(ctx)
}

// ResolveConflict applies a manual verdict to a conflicted entity.
// chooseLocal=true переотправляет локальный payload поверх серверной версии,
// false принимает серверное состояние. Требует соединения: актуальная
// серверная версия перечитывается, а не берется из устаревшего события.
func (s *Service) ResolveConflict(ctx context.Context, entityID string, chooseLocal bool) error {
	rec, err := s.records.GetRecord(ctx, s.ownerID, entityID)
	if err != nil {
		return fmt.Errorf("failed to read record: %w", err)
	}
	if rec.SyncStatus != models.SyncStatusConflict {
		return ErrNotConflicted
	}
	if !s.monitor.Online() {
		return ErrOffline
	}

	remote, err := s.apiClient.Load(ctx, s.ownerID, entityID)
	if err != nil && !errors.Is(err, api.ErrNotFound) {
		return fmt.Errorf("failed to load server state: %w", err)
	}

	// Припаркованные мутации конфликтной сущности сбрасываются: их исход
	// определяет вердикт, а не повторная отправка устаревших снимков
	items, ierr := s.queue.EntityItems(ctx, entityID)
	if ierr != nil {
		return fmt.Errorf("failed to read outbox: %w", ierr)
	}
	for _, item := range items {
		if derr := s.queue.Discard(ctx, item.ItemID); derr != nil {
			return fmt.Errorf("failed to discard parked item %s: %w", item.ItemID, derr)
		}
	}

	if chooseLocal {
		if remote != nil {
			rec.ServerVersion = remote.Version
		}
		rec.SyncStatus = models.SyncStatusPending
		rec.LocalVersion++
		rec.LastModifiedAt = time.Now()

		op := models.OperationUpdate
		if remote == nil {
			// Сервер сущность уже потерял, локальная версия создаст ее заново
			rec.ServerVersion = 0
			op = models.OperationCreate
		}

		if _, err := s.queue.Enqueue(ctx, rec, op); err != nil {
			return fmt.Errorf("failed to requeue local payload: %w", err)
		}
		s.logger.Info("Conflict resolved manually, local side kept", "entity_id", entityID)
		s.coord.Kick()
		return nil
	}

	if remote == nil {
		// Принять серверную сторону = принять факт удаления
		if err := s.records.PurgeRecord(ctx, s.ownerID, entityID); err != nil {
			return fmt.Errorf("failed to purge record: %w", err)
		}
		s.logger.Info("Conflict resolved manually, remote deletion adopted", "entity_id", entityID)
		return nil
	}

	rec.Payload = append([]byte(nil), remote.Payload...)
	rec.ServerVersion = remote.Version
	rec.LastModifiedAt = remote.ModifiedAt
	rec.SyncStatus = models.SyncStatusSynced
	rec.PendingDelete = false

	if err := s.records.SaveRecord(ctx, rec); err != nil {
		return fmt.Errorf("failed to adopt server state: %w", err)
	}
	s.logger.Info("Conflict resolved manually, remote side adopted", "entity_id", entityID)
	return nil
}

// FailedItems returns mutations stuck after the retry horizon or a
// permanent rejection
func (s *Service) FailedItems(ctx context.Context) ([]*models.OutboxItem, error) {
	return s.queue.FailedItems(ctx, s.ownerID)
}

// RetryItem returns a failed mutation to the queue by explicit request
func (s *Service) RetryItem(ctx context.Context, itemID string) error {
	if err := s.queue.Retry(ctx, itemID); err != nil {
		return fmt.Errorf("failed to retry item %s: %w", itemID, err)
	}
	s.coord.Kick()
	return nil
}

// DiscardItem drops a mutation without sending it. Локальная запись при
// этом не откатывается: ее содержимое остается последним словом пользователя.
func (s *Service) DiscardItem(ctx context.Context, itemID string) error {
	item, err := s.queue.GetItem(ctx, itemID)
	if err != nil {
		return fmt.Errorf("failed to read item %s: %w", itemID, err)
	}

	if err := s.queue.Discard(ctx, itemID); err != nil {
		return fmt.Errorf("failed to discard item %s: %w", itemID, err)
	}

	// Если это была последняя неотправленная мутация, запись считается
	// синхронизированной с последней подтвержденной версией
	pending, err := s.queue.PendingCount(ctx, item.EntityID)
	if err != nil {
		return fmt.Errorf("failed to count pending items: %w", err)
	}
	if pending == 0 {
		rec, rerr := s.records.GetRecord(ctx, s.ownerID, item.EntityID)
		if rerr == nil && rec.SyncStatus == models.SyncStatusPending && !rec.PendingDelete {
			rec.SyncStatus = models.SyncStatusSynced
			if serr := s.records.SaveRecord(ctx, rec); serr != nil {
				return fmt.Errorf("failed to update record status: %w", serr)
			}
		}
	}

	return nil
}
