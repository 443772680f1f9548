// Package connectivity отслеживает доступность сети. Monitor принимает
// сырые платформенные события online/offline, гасит дребезг и раздает
// подписчикам итоговые переходы. Никакой retry-логики здесь нет — это
// листовая зависимость координатора синхронизации.
package connectivity

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// State состояние сети
type State string

const (
	Online  State = "online"
	Offline State = "offline"
)

// DefaultDebounce минимальный интервал между применяемыми переключениями
const DefaultDebounce = 2 * time.Second

// Monitor хранит текущее состояние сети и счетчик переходов.
// Счетчик монотонный: опоздавший callback может сравнить его со своим
// снимком и понять, что его наблюдение устарело.
type Monitor struct {
	logger   *slog.Logger
	now      func() time.Time
	subs     map[int]chan State
	pending  *time.Timer
	lastFlip time.Time
	state    State
	debounce time.Duration
	nextSub  int
	flips    uint64
	mu       sync.Mutex
}

// NewMonitor creates a monitor with the given initial state
func NewMonitor(initial State, logger *slog.Logger) *Monitor {
	return &Monitor{
		state:    initial,
		debounce: DefaultDebounce,
		subs:     make(map[int]chan State),
		logger:   logger,
		now:      time.Now,
	}
}

// SetDebounce overrides the debounce window. Нулевое значение отключает
// подавление дребезга, каждый Report применяется немедленно.
func (m *Monitor) SetDebounce(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.debounce = d
}

// State returns the current state and the transition counter
func (m *Monitor) State() (State, uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, m.flips
}

// Online reports whether the network is currently considered reachable
func (m *Monitor) Online() bool {
	state, _ := m.State()
	return state == Online
}

// Report ingests a raw platform connectivity event. Переключения чаще
// debounce-окна откладываются и применяются по заднему фронту: быстрые
// мигания сети схлопываются в одно итоговое состояние.
func (m *Monitor) Report(online bool) {
	target := Offline
	if online {
		target = Online
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if target == m.state {
		// Желаемое состояние совпало с текущим — отложенное
		// переключение больше не нужно
		if m.pending != nil {
			m.pending.Stop()
			m.pending = nil
		}
		return
	}

	elapsed := m.now().Sub(m.lastFlip)
	if m.lastFlip.IsZero() || elapsed >= m.debounce {
		m.applyLocked(target)
		return
	}

	// Слишком рано после прошлого переключения — откладываем
	if m.pending != nil {
		m.pending.Stop()
	}
	wait := m.debounce - elapsed
	m.pending = time.AfterFunc(wait, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.pending = nil
		if target != m.state {
			m.applyLocked(target)
		}
	})
}

// applyLocked применяет переключение; вызывается только под mu
func (m *Monitor) applyLocked(target State) {
	m.state = target
	m.flips++
	m.lastFlip = m.now()

	m.logger.Info("Connectivity changed", "state", target, "transitions", m.flips)

	for _, ch := range m.subs {
		// Неблокирующая отправка: медленный подписчик получит только
		// последний переход, и этого достаточно. Устаревшее значение
		// в буфере вытесняется свежим.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- target:
		default:
		}
	}
}

// Subscribe registers a listener for applied transitions.
// Возвращает канал и функцию отписки.
func (m *Monitor) Subscribe() (<-chan State, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSub
	m.nextSub++

	ch := make(chan State, 1)
	m.subs[id] = ch

	unsubscribe := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}

	return ch, unsubscribe
}

// RunProber periodically feeds Report from a reachability probe.
// Блокируется до отмены контекста; обычно запускается в отдельной горутине.
func (m *Monitor) RunProber(ctx context.Context, probe func(context.Context) bool, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Report(probe(ctx))
		}
	}
}
