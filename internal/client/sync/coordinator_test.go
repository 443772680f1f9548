package sync

import (
	"context"
	"io"
	"log/slog"
	stdsync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/studysync/internal/client/api"
	"github.com/iudanet/studysync/internal/client/connectivity"
	"github.com/iudanet/studysync/internal/client/outbox"
	"github.com/iudanet/studysync/internal/client/resolver"
	"github.com/iudanet/studysync/internal/client/storage"
	"github.com/iudanet/studysync/internal/client/storage/boltdb"
	"github.com/iudanet/studysync/internal/models"
)

// fakeAPI имитация сервера: хранит версии в памяти и позволяет подсунуть
// ошибку на конкретную сущность
type fakeAPI struct {
	mu       stdsync.Mutex
	versions map[string]int64
	payloads map[string][]byte
	errs     map[string]error
	saves    []string // entityID в порядке поступления
	deletes  []string
	entered  chan struct{}
	release  chan struct{}
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		versions: make(map[string]int64),
		payloads: make(map[string][]byte),
		errs:     make(map[string]error),
	}
}

func (f *fakeAPI) failWith(entityID string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[entityID] = err
}

// blockSaves заставляет каждый Save сообщить о входе и ждать release;
// позволяет тестам удерживать сетевой вызов "в полете"
func (f *fakeAPI) blockSaves() (entered <-chan struct{}, release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.entered = make(chan struct{}, 8)
	f.release = make(chan struct{})
	return f.entered, func() { close(f.release) }
}

func (f *fakeAPI) Save(_ context.Context, _, entityID string, payload []byte, expectedVersion int64, _ string) (int64, error) {
	f.mu.Lock()
	entered, release := f.entered, f.release
	f.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
		<-release
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err, ok := f.errs[entityID]; ok {
		return 0, err
	}
	if f.versions[entityID] != expectedVersion {
		// Серверная сторона "писалась" минуту назад: тесты управляют
		// исходом LWW через LastModifiedAt локальной записи
		return 0, &api.ConflictError{
			ServerVersion:    f.versions[entityID],
			ServerPayload:    f.payloads[entityID],
			ServerModifiedAt: time.Now().Add(-time.Minute),
		}
	}

	f.versions[entityID]++
	f.payloads[entityID] = payload
	f.saves = append(f.saves, entityID)
	return f.versions[entityID], nil
}

func (f *fakeAPI) Load(_ context.Context, _, entityID string) (*api.EntityState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	v, ok := f.versions[entityID]
	if !ok {
		return nil, api.ErrNotFound
	}
	return &api.EntityState{Version: v, Payload: f.payloads[entityID]}, nil
}

func (f *fakeAPI) Delete(_ context.Context, _, entityID string, expectedVersion int64, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err, ok := f.errs[entityID]; ok {
		return err
	}
	if _, ok := f.versions[entityID]; !ok {
		return api.ErrNotFound
	}
	if f.versions[entityID] != expectedVersion {
		return &api.ConflictError{
			ServerVersion:    f.versions[entityID],
			ServerPayload:    f.payloads[entityID],
			ServerModifiedAt: time.Now().Add(-time.Minute),
		}
	}
	delete(f.versions, entityID)
	delete(f.payloads, entityID)
	f.deletes = append(f.deletes, entityID)
	return nil
}

func (f *fakeAPI) Ping(context.Context) bool { return true }

func (f *fakeAPI) savedOrder() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.saves...)
}

// fixture собирает координатор поверх реального bolt-хранилища
type fixture struct {
	store   *boltdb.Storage
	queue   *outbox.Queue
	monitor *connectivity.Monitor
	remote  *fakeAPI
	coord   *Coordinator
}

func newFixture(t *testing.T, strategy resolver.Strategy) *fixture {
	t.Helper()

	store, err := boltdb.New(context.Background(), t.TempDir()+"/sync.db")
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, store.Close()) })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	queue := outbox.NewQueue(store, logger)
	monitor := connectivity.NewMonitor(connectivity.Online, logger)
	remote := newFakeAPI()

	coord := NewCoordinator(remote, store, queue, monitor, strategy, logger, Config{
		OwnerID: "owner-1",
	})

	return &fixture{
		store:   store,
		queue:   queue,
		monitor: monitor,
		remote:  remote,
		coord:   coord,
	}
}

// write имитирует локальную запись фасада: запись + мутация одной парой
func (fx *fixture) write(t *testing.T, entityID string, payload []byte, op models.Operation) *models.OutboxItem {
	t.Helper()
	ctx := context.Background()

	rec, err := fx.store.GetRecord(ctx, "owner-1", entityID)
	if err != nil {
		rec = &models.VersionedRecord{
			ID:        entityID,
			OwnerID:   "owner-1",
			CreatedAt: time.Now(),
		}
	}
	rec.Payload = payload
	rec.LocalVersion++
	rec.LastModifiedAt = time.Now()
	rec.SyncStatus = models.SyncStatusPending
	if op == models.OperationDelete {
		rec.PendingDelete = true
	} else if rec.PendingDelete {
		// Запись поверх отложенного удаления воскрешает сущность,
		// как это делает фасад
		rec.PendingDelete = false
		op = models.OperationCreate
	}

	item, err := fx.queue.Enqueue(ctx, rec, op)
	require.NoError(t, err)
	return item
}

func TestCoordinator_ForceSync_DrainsOutbox(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	fx.write(t, "entity-1", []byte(`{"v":1}`), models.OperationCreate)
	fx.write(t, "entity-1", []byte(`{"v":2}`), models.OperationUpdate)
	fx.write(t, "entity-2", []byte(`{"v":1}`), models.OperationCreate)

	result, err := fx.coord.ForceSync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Synced)
	assert.Equal(t, 0, result.Failed)

	// Обе мутации entity-1 применены по порядку
	assert.Equal(t, int64(2), fx.remote.versions["entity-1"])
	assert.Equal(t, []byte(`{"v":2}`), fx.remote.payloads["entity-1"])

	// Записи получили серверные версии и чистый статус
	rec, err := fx.store.GetRecord(ctx, "owner-1", "entity-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), rec.ServerVersion)
	assert.Equal(t, models.SyncStatusSynced, rec.SyncStatus)

	pending, err := fx.queue.PendingCount(ctx, "entity-1")
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestCoordinator_ForceSync_EntityOrderPreserved(t *testing.T) {
	fx := newFixture(t, nil)

	fx.write(t, "entity-1", []byte(`{"v":1}`), models.OperationCreate)
	fx.write(t, "entity-1", []byte(`{"v":2}`), models.OperationUpdate)
	fx.write(t, "entity-1", []byte(`{"v":3}`), models.OperationUpdate)

	_, err := fx.coord.ForceSync(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"entity-1", "entity-1", "entity-1"}, fx.remote.savedOrder())
	assert.Equal(t, []byte(`{"v":3}`), fx.remote.payloads["entity-1"])
}

func TestCoordinator_ForceSync_DeleteRemovesEverything(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	fx.write(t, "entity-1", []byte(`{"v":1}`), models.OperationCreate)
	_, err := fx.coord.ForceSync(ctx)
	require.NoError(t, err)

	fx.write(t, "entity-1", nil, models.OperationDelete)
	result, err := fx.coord.ForceSync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Synced)

	// Запись вычищена локально и удалена на сервере
	_, err = fx.store.GetRecord(ctx, "owner-1", "entity-1")
	assert.ErrorIs(t, err, storage.ErrRecordNotFound)
	assert.NotContains(t, fx.remote.versions, "entity-1")
}

func TestCoordinator_ForceSync_DeleteOfUnknownEntityIsSuccess(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	// Сущность никогда не уезжала на сервер, delete вернет 404
	fx.write(t, "entity-1", nil, models.OperationDelete)

	result, err := fx.coord.ForceSync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Synced)
	assert.Equal(t, 0, result.Failed)

	_, err = fx.store.GetRecord(ctx, "owner-1", "entity-1")
	assert.ErrorIs(t, err, storage.ErrRecordNotFound)
}

func TestCoordinator_ForceSync_ResurrectionAfterQueuedDelete(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	fx.write(t, "entity-1", []byte(`{"v":1}`), models.OperationCreate)
	_, err := fx.coord.ForceSync(ctx)
	require.NoError(t, err)

	// Удаление и воскрешающая запись встают в очередь до выхода в сеть
	fx.write(t, "entity-1", nil, models.OperationDelete)
	fx.write(t, "entity-1", []byte(`{"v":"reborn"}`), models.OperationUpdate)

	result, err := fx.coord.ForceSync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Synced)
	assert.Equal(t, 0, result.Failed)

	// Сервер прошел через tombstone и принял пересоздание с нулевой
	// ожидаемой версией; воскрешающий payload не потерян
	assert.Equal(t, []string{"entity-1"}, fx.remote.deletes)
	assert.Equal(t, []byte(`{"v":"reborn"}`), fx.remote.payloads["entity-1"])
	assert.Equal(t, int64(1), fx.remote.versions["entity-1"])

	rec, err := fx.store.GetRecord(ctx, "owner-1", "entity-1")
	require.NoError(t, err)
	assert.False(t, rec.PendingDelete)
	assert.Equal(t, int64(1), rec.ServerVersion)
	assert.Equal(t, models.SyncStatusSynced, rec.SyncStatus)

	pending, err := fx.queue.PendingCount(ctx, "entity-1")
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestCoordinator_ForceSync_TransientFailureSchedulesRetry(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	item := fx.write(t, "entity-1", []byte(`{"v":1}`), models.OperationCreate)
	fx.remote.failWith("entity-1", &api.TransientError{Err: context.DeadlineExceeded})

	result, err := fx.coord.ForceSync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Synced)
	assert.Equal(t, 1, result.Failed)

	got, err := fx.queue.GetItem(ctx, item.ItemID)
	require.NoError(t, err)
	assert.Equal(t, models.ItemStatusFailed, got.Status)
	assert.True(t, got.Retryable)
	assert.True(t, got.NextRetryAt.After(time.Now()))
	assert.Equal(t, 1, got.RetryCount)
}

func TestCoordinator_ForceSync_PermanentFailureStopsRetries(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	item := fx.write(t, "entity-1", []byte(`{"v":1}`), models.OperationCreate)
	fx.remote.failWith("entity-1", &api.PermanentError{Code: "validation", Status: 422})

	_, err := fx.coord.ForceSync(ctx)
	require.NoError(t, err)

	got, err := fx.queue.GetItem(ctx, item.ItemID)
	require.NoError(t, err)
	assert.Equal(t, models.ItemStatusFailed, got.Status)
	assert.False(t, got.Retryable)
}

func TestCoordinator_Conflict_LastWriteWins_LocalNewer(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	// Сервер уже на версии 1 с чужим payload
	fx.remote.versions["entity-1"] = 1
	fx.remote.payloads["entity-1"] = []byte(`{"other":"device"}`)

	// Локальная запись про версию 1 не знает (ServerVersion == 0),
	// Save уйдет с expectedVersion=0 и получит 409
	fx.write(t, "entity-1", []byte(`{"local":"wins"}`), models.OperationCreate)

	result, err := fx.coord.ForceSync(ctx)
	require.NoError(t, err)
	assert.Equal(t, result.Failed, 0)

	// Локальная сторона новее: выигравший payload переотправлен поверх
	// серверной версии
	assert.Equal(t, []byte(`{"local":"wins"}`), fx.remote.payloads["entity-1"])
	assert.Equal(t, int64(2), fx.remote.versions["entity-1"])

	rec, err := fx.store.GetRecord(ctx, "owner-1", "entity-1")
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusSynced, rec.SyncStatus)
	assert.Equal(t, int64(2), rec.ServerVersion)
}

func TestCoordinator_Conflict_LastWriteWins_RemoteNewer(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	fx.write(t, "entity-1", []byte(`{"local":"stale"}`), models.OperationCreate)

	// Переписываем LastModifiedAt в прошлое, чтобы удаленная сторона
	// оказалась новее
	rec, err := fx.store.GetRecord(ctx, "owner-1", "entity-1")
	require.NoError(t, err)
	rec.LastModifiedAt = time.Now().Add(-time.Hour)
	require.NoError(t, fx.store.SaveRecord(ctx, rec))

	fx.remote.versions["entity-1"] = 3
	fx.remote.payloads["entity-1"] = []byte(`{"remote":"wins"}`)

	_, err = fx.coord.ForceSync(ctx)
	require.NoError(t, err)

	// Серверное состояние принято локально, на сервер ничего не уехало
	rec, err = fx.store.GetRecord(ctx, "owner-1", "entity-1")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"remote":"wins"}`), rec.Payload)
	assert.Equal(t, int64(3), rec.ServerVersion)
	assert.Equal(t, models.SyncStatusSynced, rec.SyncStatus)
	assert.Equal(t, int64(3), fx.remote.versions["entity-1"])
}

func TestCoordinator_Conflict_DeleteWinsOverNewServerVersion(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	// Сервер успел уйти на версию 2, локальная сторона знает только первую
	fx.remote.versions["entity-1"] = 2
	fx.remote.payloads["entity-1"] = []byte(`{"other":"device"}`)

	now := time.Now()
	require.NoError(t, fx.store.SaveRecord(ctx, &models.VersionedRecord{
		ID:             "entity-1",
		OwnerID:        "owner-1",
		Payload:        []byte(`{"local":"v1"}`),
		LocalVersion:   1,
		ServerVersion:  1,
		SyncStatus:     models.SyncStatusSynced,
		LastModifiedAt: now,
		CreatedAt:      now,
	}))

	fx.write(t, "entity-1", nil, models.OperationDelete)

	result, err := fx.coord.ForceSync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Failed)

	// Выигравшее удаление уехало поверх новой серверной версии, а не
	// превратилось в воскрешающий update
	assert.NotContains(t, fx.remote.versions, "entity-1")
	assert.Equal(t, []string{"entity-1"}, fx.remote.deletes)

	_, err = fx.store.GetRecord(ctx, "owner-1", "entity-1")
	assert.ErrorIs(t, err, storage.ErrRecordNotFound)

	pending, err := fx.queue.PendingCount(ctx, "entity-1")
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestCoordinator_Conflict_DeleteAdoptsRemote(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	fx.remote.versions["entity-1"] = 2
	fx.remote.payloads["entity-1"] = []byte(`{"other":"device"}`)

	now := time.Now()
	require.NoError(t, fx.store.SaveRecord(ctx, &models.VersionedRecord{
		ID:             "entity-1",
		OwnerID:        "owner-1",
		Payload:        []byte(`{"local":"v1"}`),
		LocalVersion:   1,
		ServerVersion:  1,
		SyncStatus:     models.SyncStatusSynced,
		LastModifiedAt: now,
		CreatedAt:      now,
	}))

	fx.write(t, "entity-1", nil, models.OperationDelete)

	// Переписываем LastModifiedAt в прошлое: удаленная сторона новее
	rec, err := fx.store.GetRecord(ctx, "owner-1", "entity-1")
	require.NoError(t, err)
	rec.LastModifiedAt = now.Add(-time.Hour)
	require.NoError(t, fx.store.SaveRecord(ctx, rec))

	result, err := fx.coord.ForceSync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Failed)

	// Проигравшее удаление поглощено, сущность жива серверным состоянием
	assert.Equal(t, int64(2), fx.remote.versions["entity-1"])
	assert.Empty(t, fx.remote.deletes)

	rec, err = fx.store.GetRecord(ctx, "owner-1", "entity-1")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"other":"device"}`), rec.Payload)
	assert.Equal(t, int64(2), rec.ServerVersion)
	assert.Equal(t, models.SyncStatusSynced, rec.SyncStatus)
	assert.False(t, rec.PendingDelete)

	pending, err := fx.queue.PendingCount(ctx, "entity-1")
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestCoordinator_Conflict_ManualParksEntity(t *testing.T) {
	fx := newFixture(t, resolver.ManualOnly())
	ctx := context.Background()

	var events []ConflictEvent
	var mu stdsync.Mutex
	fx.coord.OnConflict(func(e ConflictEvent) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	})

	fx.remote.versions["entity-1"] = 2
	fx.remote.payloads["entity-1"] = []byte(`{"remote":"v2"}`)
	item := fx.write(t, "entity-1", []byte(`{"local":"v1"}`), models.OperationCreate)

	result, err := fx.coord.ForceSync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)

	rec, err := fx.store.GetRecord(ctx, "owner-1", "entity-1")
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusConflict, rec.SyncStatus)

	got, err := fx.queue.GetItem(ctx, item.ItemID)
	require.NoError(t, err)
	assert.Equal(t, models.ItemStatusFailed, got.Status)
	assert.False(t, got.Retryable)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 1)
	assert.Equal(t, "entity-1", events[0].EntityID)
	assert.Equal(t, []byte(`{"local":"v1"}`), events[0].LocalPayload)
	assert.Equal(t, []byte(`{"remote":"v2"}`), events[0].RemotePayload)
	assert.Equal(t, int64(2), events[0].RemoteVersion)
}

func TestCoordinator_Conflict_ManualStopsEntityDrain(t *testing.T) {
	fx := newFixture(t, resolver.ManualOnly())
	ctx := context.Background()

	fx.remote.versions["entity-1"] = 2
	fx.write(t, "entity-1", []byte(`{"v":1}`), models.OperationCreate)
	fx.write(t, "entity-1", []byte(`{"v":2}`), models.OperationUpdate)
	fx.write(t, "entity-2", []byte(`{"v":1}`), models.OperationCreate)

	result, err := fx.coord.ForceSync(ctx)
	require.NoError(t, err)

	// Вторая мутация entity-1 не отправлялась: сущность в конфликте
	assert.Equal(t, 1, result.Synced) // entity-2
	assert.Equal(t, 1, result.Failed) // голова entity-1
	assert.Equal(t, []string{"entity-2"}, fx.remote.savedOrder())

	pending, err := fx.queue.PendingCount(ctx, "entity-1")
	require.NoError(t, err)
	assert.Equal(t, 2, pending)
}

func TestCoordinator_ForceSync_OfflineIsNoop(t *testing.T) {
	fx := newFixture(t, nil)
	fx.monitor.Report(false) // мгновенный переход, дебаунс только на flap

	fx.write(t, "entity-1", []byte(`{"v":1}`), models.OperationCreate)

	result, err := fx.coord.ForceSync(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Synced)
	assert.Zero(t, result.Failed)
	assert.Empty(t, fx.remote.savedOrder())
}

func TestCoordinator_StartStop(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	fx.write(t, "entity-1", []byte(`{"v":1}`), models.OperationCreate)

	require.NoError(t, fx.coord.Start(ctx))
	require.Error(t, fx.coord.Start(ctx), "double start must fail")

	fx.coord.Kick()

	// Дожидаемся фонового дренажа
	require.Eventually(t, func() bool {
		pending, err := fx.queue.PendingCount(ctx, "entity-1")
		return err == nil && pending == 0
	}, 3*time.Second, 10*time.Millisecond)

	fx.coord.Stop()

	// После Stop координатор можно запустить снова
	require.NoError(t, fx.coord.Start(ctx))
	fx.coord.Stop()
}

func TestCoordinator_Stop_HaltsEntityDrain(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	fx.write(t, "entity-1", []byte(`{"v":1}`), models.OperationCreate)
	second := fx.write(t, "entity-1", []byte(`{"v":2}`), models.OperationUpdate)

	entered, release := fx.remote.blockSaves()

	require.NoError(t, fx.coord.Start(ctx))
	fx.coord.Kick()

	// Первая отправка повисла в сети
	<-entered

	stopDone := make(chan struct{})
	go func() {
		fx.coord.Stop()
		close(stopDone)
	}()

	// Stop закрывает stopCh до ожидания воркеров
	require.Eventually(t, fx.coord.stopping, time.Second, 5*time.Millisecond)

	release()
	<-stopDone

	// Начатый вызов дожил до конца, но вторая мутация не отправлялась
	assert.Equal(t, []string{"entity-1"}, fx.remote.savedOrder())

	got, err := fx.queue.GetItem(ctx, second.ItemID)
	require.NoError(t, err)
	assert.Equal(t, models.ItemStatusPending, got.Status)
}

func TestCoordinator_Start_RecoversStaleItems(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	item := fx.write(t, "entity-1", []byte(`{"v":1}`), models.OperationCreate)

	// Имитация падения: элемент завис в syncing
	require.NoError(t, fx.queue.MarkSyncing(ctx, item.ItemID))

	require.NoError(t, fx.coord.Start(ctx))
	defer fx.coord.Stop()
	fx.coord.Kick()

	require.Eventually(t, func() bool {
		pending, err := fx.queue.PendingCount(ctx, "entity-1")
		return err == nil && pending == 0
	}, 3*time.Second, 10*time.Millisecond)

	assert.Equal(t, []string{"entity-1"}, fx.remote.savedOrder())
}

// deferredWriteStore вклинивает запись фасада между сетевым вызовом и
// фиксацией его результата в хранилище
type deferredWriteStore struct {
	storage.RecordStorage
	mu     stdsync.Mutex
	inject func()
}

func (s *deferredWriteStore) UpdateRecord(ctx context.Context, ownerID, entityID string, fn func(*models.VersionedRecord, int) error) error {
	s.mu.Lock()
	inject := s.inject
	s.inject = nil
	s.mu.Unlock()

	if inject != nil {
		inject()
	}
	return s.RecordStorage.UpdateRecord(ctx, ownerID, entityID, fn)
}

func TestCoordinator_FinishSave_KeepsConcurrentLocalEdit(t *testing.T) {
	ctx := context.Background()

	store, err := boltdb.New(ctx, t.TempDir()+"/sync.db")
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, store.Close()) })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	queue := outbox.NewQueue(store, logger)
	monitor := connectivity.NewMonitor(connectivity.Online, logger)
	remote := newFakeAPI()

	wrapped := &deferredWriteStore{RecordStorage: store}
	coord := NewCoordinator(remote, wrapped, queue, monitor, nil, logger, Config{
		OwnerID: "owner-1",
	})

	fx := &fixture{store: store, queue: queue, monitor: monitor, remote: remote, coord: coord}
	fx.write(t, "entity-1", []byte(`{"v":1}`), models.OperationCreate)

	// Пока первая отправка была в полете, фасад принял свежую правку
	wrapped.inject = func() {
		rec, gerr := store.GetRecord(ctx, "owner-1", "entity-1")
		if gerr != nil {
			return
		}
		rec.Payload = []byte(`{"v":2}`)
		rec.LocalVersion++
		rec.LastModifiedAt = time.Now()
		rec.SyncStatus = models.SyncStatusPending
		_, _ = queue.Enqueue(ctx, rec, models.OperationUpdate)
	}

	result, err := coord.ForceSync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Synced)
	assert.Equal(t, 0, result.Failed)

	// Свежая правка не затерта фиксацией первой отправки и доехала
	// до сервера следующей мутацией
	rec, err := store.GetRecord(ctx, "owner-1", "entity-1")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"v":2}`), rec.Payload)
	assert.Equal(t, int64(2), rec.ServerVersion)
	assert.Equal(t, models.SyncStatusSynced, rec.SyncStatus)
	assert.Equal(t, []byte(`{"v":2}`), fx.remote.payloads["entity-1"])
}
