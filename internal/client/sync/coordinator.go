// Package sync содержит координатор синхронизации: он дренирует outbox
// против удаленного сервиса, применяя retry с backoff, разрешая конфликты
// версий и обновляя статусы записей в локальном хранилище. Разные сущности
// дренируются параллельно ограниченным пулом, внутри одной сущности —
// строго последовательно, в порядке постановки в очередь.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	stdsync "sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/iudanet/studysync/internal/client/api"
	"github.com/iudanet/studysync/internal/client/connectivity"
	"github.com/iudanet/studysync/internal/client/outbox"
	"github.com/iudanet/studysync/internal/client/resolver"
	"github.com/iudanet/studysync/internal/client/storage"
	"github.com/iudanet/studysync/internal/models"
)

// Defaults for Config
const (
	DefaultWorkers       = 4
	DefaultBatchLimit    = 32
	DefaultRetryInterval = 5 * time.Second
	DefaultCallTimeout   = 15 * time.Second
)

// Config параметры координатора
type Config struct {
	OwnerID       string        // OwnerID владелец, чьи мутации дренируются
	Workers       int64         // Workers предел одновременных сетевых отправок
	BatchLimit    int           // BatchLimit размер одной порции outbox
	RetryInterval time.Duration // RetryInterval период фонового таймера повторов
	CallTimeout   time.Duration // CallTimeout таймаут одного сетевого вызова
}

// withDefaults заполняет незаданные поля конфигурации
func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.BatchLimit <= 0 {
		c.BatchLimit = DefaultBatchLimit
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = DefaultRetryInterval
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = DefaultCallTimeout
	}
	return c
}

// Result итог принудительной синхронизации
type Result struct {
	Synced int // Synced количество подтвержденных мутаций
	Failed int // Failed количество мутаций, завершившихся ошибкой
}

// ConflictEvent уведомление подписчикам о конфликте, требующем человека
type ConflictEvent struct {
	RemoteModifiedAt time.Time
	EntityID         string
	OwnerID          string
	LocalPayload     []byte
	RemotePayload    []byte
	RemoteVersion    int64
}

// Coordinator дренирует outbox против удаленного сервиса
type Coordinator struct {
	apiClient api.ClientAPI
	records   storage.RecordStorage
	queue     *outbox.Queue
	monitor   *connectivity.Monitor
	strategy  resolver.Strategy
	logger    *slog.Logger
	sem       *semaphore.Weighted
	kickCh    chan struct{}
	stopCh    chan struct{}
	onConfl   []func(ConflictEvent)
	cfg       Config
	wg        stdsync.WaitGroup
	claimMu   stdsync.Mutex
	mu        stdsync.Mutex
	started   bool
}

// NewCoordinator creates a sync coordinator.
// strategy == nil означает стратегию по умолчанию (last-write-wins).
func NewCoordinator(
	apiClient api.ClientAPI,
	records storage.RecordStorage,
	queue *outbox.Queue,
	monitor *connectivity.Monitor,
	strategy resolver.Strategy,
	logger *slog.Logger,
	cfg Config,
) *Coordinator {
	if strategy == nil {
		strategy = resolver.LastWriteWins()
	}
	cfg = cfg.withDefaults()

	return &Coordinator{
		apiClient: apiClient,
		records:   records,
		queue:     queue,
		monitor:   monitor,
		strategy:  strategy,
		logger:    logger,
		cfg:       cfg,
		sem:       semaphore.NewWeighted(cfg.Workers),
		kickCh:    make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
	}
}

// OnConflict registers a callback fired when an entity enters the conflict
// state. Callbacks вызываются из горутин координатора и должны быть быстрыми.
func (c *Coordinator) OnConflict(fn func(ConflictEvent)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onConfl = append(c.onConfl, fn)
}

// Start launches the background drain loop. Повторный Start без Stop — ошибка.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return errors.New("sync coordinator already started")
	}
	c.started = true
	c.mu.Unlock()

	// Восстанавливаем элементы, зависшие в syncing после падения:
	// повторная отправка безопасна благодаря ключу идемпотентности
	if n, err := c.queue.RecoverStale(ctx); err != nil {
		return fmt.Errorf("failed to recover stale items: %w", err)
	} else if n > 0 {
		c.logger.Info("Recovered stale in-flight items", "count", n)
	}

	transitions, unsubscribe := c.monitor.Subscribe()

	c.mu.Lock()
	stopCh := c.stopCh
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer unsubscribe()
		c.run(ctx, transitions, stopCh)
	}()

	return nil
}

// Stop prevents new items from starting and waits for in-flight network
// calls to finish. Начатый сетевой вызов не прерывается: обрыв на середине
// оставил бы серверное состояние неоднозначным.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return
	}
	c.started = false
	close(c.stopCh)
	c.mu.Unlock()

	c.wg.Wait()

	c.mu.Lock()
	c.stopCh = make(chan struct{})
	c.mu.Unlock()
}

// Kick opportunistically triggers a drain pass
func (c *Coordinator) Kick() {
	select {
	case c.kickCh <- struct{}{}:
	default:
	}
}

// run фоновый цикл: дренаж по событию сети, по пинку фасада и по таймеру
func (c *Coordinator) run(ctx context.Context, transitions <-chan connectivity.State, stopCh <-chan struct{}) {
	ticker := time.NewTicker(c.cfg.RetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case state := <-transitions:
			if state == connectivity.Online {
				c.logger.Info("Connectivity restored, draining outbox")
				c.drain(ctx)
			}
		case <-c.kickCh:
			c.drain(ctx)
		case <-ticker.C:
			// Фоновый таймер возвращает дозревшие failed-элементы
			// в очередь и пробует отправить их снова
			c.drain(ctx)
		}
	}
}

// drain выполняет один проход дренажа: забирает порцию outbox и раздает
// сущности воркерам. Блокируется только на claim, не на сетевых вызовах.
func (c *Coordinator) drain(ctx context.Context) {
	if !c.monitor.Online() {
		return
	}

	batch := c.claimBatch(ctx)
	for _, item := range batch {
		if c.stopping() {
			return
		}
		if err := c.sem.Acquire(ctx, 1); err != nil {
			return
		}

		c.wg.Add(1)
		go func(item *models.OutboxItem) {
			defer c.wg.Done()
			defer c.sem.Release(1)
			c.drainEntity(ctx, item)
		}(item)
	}
}

// claimBatch атомарно забирает элементы и переводит их в syncing, чтобы
// конкурирующие проходы (фоновый цикл и forceSync) не взяли одну мутацию
// дважды
func (c *Coordinator) claimBatch(ctx context.Context) []*models.OutboxItem {
	c.claimMu.Lock()
	defer c.claimMu.Unlock()

	if _, err := c.queue.RequeueDue(ctx); err != nil {
		c.logger.Error("Failed to requeue due items", "error", err)
	}

	batch, err := c.queue.NextBatch(ctx, c.cfg.OwnerID, c.cfg.BatchLimit)
	if err != nil {
		c.logger.Error("Failed to claim outbox batch", "error", err)
		return nil
	}

	claimed := make([]*models.OutboxItem, 0, len(batch))
	for _, item := range batch {
		if err := c.queue.MarkSyncing(ctx, item.ItemID); err != nil {
			c.logger.Warn("Failed to claim item", "item_id", item.ItemID, "error", err)
			continue
		}
		claimed = append(claimed, item)
	}

	return claimed
}

// drainEntity последовательно отправляет мутации одной сущности, начиная
// с уже заклейменного элемента, пока очередь сущности не опустеет или
// отправка не сорвется
func (c *Coordinator) drainEntity(ctx context.Context, item *models.OutboxItem) {
	for {
		if !c.processItem(ctx, item) {
			return
		}
		if c.stopping() {
			return
		}

		next := c.claimNext(ctx, item.EntityID)
		if next == nil {
			return
		}
		item = next
	}
}

// claimNext забирает следующий элемент той же сущности, сохраняя порядок
func (c *Coordinator) claimNext(ctx context.Context, entityID string) *models.OutboxItem {
	c.claimMu.Lock()
	defer c.claimMu.Unlock()

	items, err := c.queue.EntityItems(ctx, entityID)
	if err != nil || len(items) == 0 {
		return nil
	}

	head := items[0]
	if !head.Due(time.Now()) {
		return nil
	}

	// Конфликтная запись останавливает дренаж сущности
	rec, err := c.records.GetRecord(ctx, head.OwnerID, head.EntityID)
	if err == nil && rec.SyncStatus == models.SyncStatusConflict {
		return nil
	}

	if err := c.queue.MarkSyncing(ctx, head.ItemID); err != nil {
		return nil
	}

	return head
}

// processItem отправляет одну мутацию и применяет исход.
// Возвращает true, если элемент подтвержден и можно продолжать сущность.
func (c *Coordinator) processItem(ctx context.Context, item *models.OutboxItem) bool {
	// Начатый вызов доживает до конца даже при Stop: таймаут считается
	// от собственного контекста, отвязанного от жизненного цикла петли
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.CallTimeout)
	defer cancel()

	rec, err := c.records.GetRecord(callCtx, item.OwnerID, item.EntityID)
	if err != nil {
		c.failItem(callCtx, item, fmt.Errorf("record lookup failed: %w", err), true)
		return false
	}

	switch item.Operation {
	case models.OperationDelete:
		err = c.apiClient.Delete(callCtx, item.OwnerID, item.EntityID, rec.ServerVersion, item.ItemID)
		// Сервер не знает сущность — удалять нечего, считаем успехом
		// (например, create был схлопнут, не успев синхронизироваться)
		if errors.Is(err, api.ErrNotFound) {
			err = nil
		}
		if err == nil {
			// MarkSynced для delete вычищает запись и историю outbox до
			// самого delete; воскрешение, поставленное позже, выживает
			if merr := c.queue.MarkSynced(callCtx, item.ItemID); merr != nil {
				c.logger.Error("Failed to finalize delete", "item_id", item.ItemID, "error", merr)
				return false
			}
			c.logger.Info("Entity deleted remotely", "entity_id", item.EntityID)
			// Продолжаем дренаж: за delete может стоять воскрешающий create
			return true
		}

	default:
		var version int64
		version, err = c.apiClient.Save(callCtx, item.OwnerID, item.EntityID, item.Payload, rec.ServerVersion, item.ItemID)
		if err == nil {
			return c.finishSave(callCtx, item, version)
		}
	}

	// Разбираем исход по таксономии ошибок
	if conflict, ok := api.AsConflict(err); ok {
		return c.handleConflict(callCtx, item, rec, conflict)
	}
	if api.IsTransient(err) {
		c.failItem(callCtx, item, err, true)
		return false
	}
	c.failItem(callCtx, item, err, false)
	return false
}

// finishSave фиксирует успешную отправку: элемент подтвержден, запись
// получает новую серверную версию
func (c *Coordinator) finishSave(ctx context.Context, item *models.OutboxItem, version int64) bool {
	if err := c.queue.MarkSynced(ctx, item.ItemID); err != nil {
		c.logger.Error("Failed to mark item synced", "item_id", item.ItemID, "error", err)
		return false
	}

	// Запись обновляется в одной транзакции с перечитыванием: пока шел
	// сетевой вызов, фасад мог принять новые правки, и их нельзя затереть
	err := c.records.UpdateRecord(ctx, item.OwnerID, item.EntityID, func(rec *models.VersionedRecord, pending int) error {
		rec.ServerVersion = version
		if pending == 0 && !rec.PendingDelete && rec.SyncStatus != models.SyncStatusConflict {
			rec.SyncStatus = models.SyncStatusSynced
		}
		return nil
	})
	if err != nil {
		c.logger.Error("Failed to update record after sync", "entity_id", item.EntityID, "error", err)
		return false
	}

	c.logger.Debug("Mutation synced",
		"entity_id", item.EntityID,
		"item_id", item.ItemID,
		"server_version", version)

	return true
}

// handleConflict применяет вердикт резолвера к разъехавшимся версиям.
// Возвращает true, если дренаж сущности может продолжаться.
func (c *Coordinator) handleConflict(ctx context.Context, item *models.OutboxItem, rec *models.VersionedRecord, conflict *api.ConflictError) bool {
	remote := resolver.RemoteState{
		Version:    conflict.ServerVersion,
		Payload:    conflict.ServerPayload,
		ModifiedAt: conflict.ServerModifiedAt,
	}

	verdict := c.strategy.Resolve(rec, remote)

	switch verdict.Outcome {
	case resolver.KeepLocal:
		// Выигравшее удаление не превращается в update: запись получает
		// актуальную серверную версию, а delete возвращается в очередь
		// и уходит поверх нее
		if item.Operation == models.OperationDelete {
			err := c.records.UpdateRecord(ctx, item.OwnerID, item.EntityID, func(r *models.VersionedRecord, _ int) error {
				r.ServerVersion = conflict.ServerVersion
				return nil
			})
			if err != nil {
				c.logger.Error("Failed to refresh server version", "entity_id", item.EntityID, "error", err)
				return false
			}
			if err := c.queue.MarkTransientFailure(ctx, item, conflict); err != nil {
				c.logger.Error("Failed to release conflicted delete", "item_id", item.ItemID, "error", err)
				return false
			}
			if err := c.queue.Retry(ctx, item.ItemID); err != nil {
				c.logger.Error("Failed to requeue conflicted delete", "item_id", item.ItemID, "error", err)
				return false
			}

			c.logger.Info("Conflict resolved, delete retried over new server version",
				"entity_id", item.EntityID,
				"server_version", conflict.ServerVersion)
			return true
		}

		// Локальная сторона побеждает: исходный элемент поглощается,
		// выигравший payload переотправляется поверх серверной версии
		if err := c.queue.MarkSynced(ctx, item.ItemID); err != nil {
			c.logger.Error("Failed to absorb conflicted item", "item_id", item.ItemID, "error", err)
			return false
		}

		rec.ServerVersion = conflict.ServerVersion
		rec.Payload = verdict.Payload
		rec.LocalVersion++
		rec.SyncStatus = models.SyncStatusPending

		if _, err := c.queue.Enqueue(ctx, rec, models.OperationUpdate); err != nil {
			c.logger.Error("Failed to requeue resolved payload", "entity_id", rec.ID, "error", err)
			return false
		}

		c.logger.Info("Conflict resolved, local side kept",
			"entity_id", rec.ID,
			"server_version", conflict.ServerVersion)
		return true

	case resolver.AdoptRemote:
		if err := c.queue.MarkSynced(ctx, item.ItemID); err != nil {
			c.logger.Error("Failed to absorb conflicted item", "item_id", item.ItemID, "error", err)
			return false
		}

		adopt := func(r *models.VersionedRecord, pending int) error {
			r.Payload = append([]byte(nil), conflict.ServerPayload...)
			r.ServerVersion = conflict.ServerVersion
			r.LastModifiedAt = conflict.ServerModifiedAt
			r.PendingDelete = false
			if pending == 0 {
				r.SyncStatus = models.SyncStatusSynced
			} else {
				r.SyncStatus = models.SyncStatusPending
			}
			return nil
		}

		err := c.records.UpdateRecord(ctx, item.OwnerID, item.EntityID, adopt)
		if errors.Is(err, storage.ErrRecordNotFound) {
			// Поглощенный delete вычистил запись — восстанавливаем ее
			// серверным состоянием
			fresh := &models.VersionedRecord{
				ID:        item.EntityID,
				OwnerID:   item.OwnerID,
				CreatedAt: conflict.ServerModifiedAt,
			}
			pending, perr := c.queue.PendingCount(ctx, item.EntityID)
			if perr != nil {
				c.logger.Error("Failed to count pending items", "entity_id", item.EntityID, "error", perr)
				return false
			}
			if aerr := adopt(fresh, pending); aerr != nil {
				return false
			}
			err = c.records.SaveRecord(ctx, fresh)
		}
		if err != nil {
			c.logger.Error("Failed to adopt remote state", "entity_id", item.EntityID, "error", err)
			return false
		}

		c.logger.Info("Conflict resolved, remote side adopted",
			"entity_id", item.EntityID,
			"server_version", conflict.ServerVersion)
		return true

	default: // resolver.Manual
		err := c.records.UpdateRecord(ctx, item.OwnerID, item.EntityID, func(r *models.VersionedRecord, _ int) error {
			r.SyncStatus = models.SyncStatusConflict
			return nil
		})
		if err != nil {
			c.logger.Error("Failed to mark record conflicted", "entity_id", rec.ID, "error", err)
			return false
		}

		if err := c.queue.MarkPermanentFailure(ctx, item, conflict); err != nil {
			c.logger.Error("Failed to park conflicted item", "item_id", item.ItemID, "error", err)
		}

		c.logger.Warn("Conflict requires manual resolution", "entity_id", rec.ID)
		c.notifyConflict(ConflictEvent{
			EntityID:         rec.ID,
			OwnerID:          rec.OwnerID,
			LocalPayload:     rec.Payload,
			RemotePayload:    conflict.ServerPayload,
			RemoteVersion:    conflict.ServerVersion,
			RemoteModifiedAt: conflict.ServerModifiedAt,
		})
		return false
	}
}

// failItem фиксирует неудачную отправку с соответствующей политикой повтора
func (c *Coordinator) failItem(ctx context.Context, item *models.OutboxItem, cause error, transient bool) {
	var err error
	if transient {
		err = c.queue.MarkTransientFailure(ctx, item, cause)
	} else {
		err = c.queue.MarkPermanentFailure(ctx, item, cause)
	}
	if err != nil {
		c.logger.Error("Failed to mark item failed", "item_id", item.ItemID, "error", err)
		return
	}

	c.logger.Warn("Mutation sync failed",
		"entity_id", item.EntityID,
		"item_id", item.ItemID,
		"transient", transient,
		"error", cause)
}

// notifyConflict рассылает событие всем подписчикам
func (c *Coordinator) notifyConflict(event ConflictEvent) {
	c.mu.Lock()
	subs := make([]func(ConflictEvent), len(c.onConfl))
	copy(subs, c.onConfl)
	c.mu.Unlock()

	for _, fn := range subs {
		fn(event)
	}
}

// stopping сообщает, запрошена ли остановка координатора. Stop закрывает
// stopCh до того, как начнет ждать воркеров, поэтому закрытый канал здесь
// означает: новые отправки начинать нельзя.
func (c *Coordinator) stopping() bool {
	c.mu.Lock()
	stopCh := c.stopCh
	c.mu.Unlock()

	select {
	case <-stopCh:
		return true
	default:
		return false
	}
}

// ForceSync synchronously drains the owner's outbox and reports totals.
// Дренаж идет порциями, пока есть отправляемые элементы; элементы,
// ушедшие в failed, не повторяются в рамках этого вызова.
func (c *Coordinator) ForceSync(ctx context.Context) (Result, error) {
	var result Result

	// В офлайне отправлять нечем: мутации остаются ждать восстановления сети
	if !c.monitor.Online() {
		return result, nil
	}

	for {
		batch := c.claimBatch(ctx)
		if len(batch) == 0 {
			return result, nil
		}

		var mu stdsync.Mutex
		var wg stdsync.WaitGroup

		for _, item := range batch {
			if err := c.sem.Acquire(ctx, 1); err != nil {
				wg.Wait()
				return result, err
			}

			wg.Add(1)
			go func(item *models.OutboxItem) {
				defer wg.Done()
				defer c.sem.Release(1)

				before := item.ItemID
				ok := c.processItem(ctx, item)

				mu.Lock()
				if ok || c.itemGone(ctx, before) {
					result.Synced++
				} else {
					result.Failed++
				}
				mu.Unlock()
			}(item)
		}

		wg.Wait()

		if err := ctx.Err(); err != nil {
			return result, err
		}
	}
}

// itemGone проверяет, что элемент исчез из журнала, то есть подтвержден.
// MarkSynced мог пройти, а последующее обновление записи сорваться:
// processItem вернет false, хотя мутация уже доехала до сервера.
func (c *Coordinator) itemGone(ctx context.Context, itemID string) bool {
	_, err := c.queue.GetItem(ctx, itemID)
	return errors.Is(err, storage.ErrItemNotFound)
}
