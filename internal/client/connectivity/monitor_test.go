package connectivity

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMonitor(initial State) *Monitor {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	return NewMonitor(initial, logger)
}

func TestMonitor_InitialState(t *testing.T) {
	m := testMonitor(Offline)

	state, flips := m.State()
	assert.Equal(t, Offline, state)
	assert.Zero(t, flips)
	assert.False(t, m.Online())
}

func TestMonitor_Report_AppliesTransition(t *testing.T) {
	m := testMonitor(Offline)

	m.Report(true)

	state, flips := m.State()
	assert.Equal(t, Online, state)
	assert.Equal(t, uint64(1), flips)
	assert.True(t, m.Online())
}

func TestMonitor_Report_SameStateIsNoop(t *testing.T) {
	m := testMonitor(Offline)

	m.Report(false)
	m.Report(false)

	_, flips := m.State()
	assert.Zero(t, flips, "reporting the current state must not count as a transition")
}

func TestMonitor_Debounce_SuppressesFlapping(t *testing.T) {
	m := testMonitor(Offline)
	m.debounce = 100 * time.Millisecond

	// Первое переключение применяется сразу
	m.Report(true)
	state, flips := m.State()
	require.Equal(t, Online, state)
	require.Equal(t, uint64(1), flips)

	// Мгновенный флип назад откладывается
	m.Report(false)
	state, flips = m.State()
	assert.Equal(t, Online, state)
	assert.Equal(t, uint64(1), flips)

	// Возврат к текущему состоянию отменяет отложенное переключение
	m.Report(true)
	time.Sleep(150 * time.Millisecond)
	state, flips = m.State()
	assert.Equal(t, Online, state)
	assert.Equal(t, uint64(1), flips, "flap must collapse into no transition")
}

func TestMonitor_Debounce_TrailingEdgeApplies(t *testing.T) {
	m := testMonitor(Offline)
	m.debounce = 50 * time.Millisecond

	m.Report(true)
	m.Report(false) // слишком рано, уходит в отложенное применение

	require.Eventually(t, func() bool {
		state, _ := m.State()
		return state == Offline
	}, time.Second, 10*time.Millisecond)

	_, flips := m.State()
	assert.Equal(t, uint64(2), flips)
}

func TestMonitor_Subscribe_ReceivesTransitions(t *testing.T) {
	m := testMonitor(Offline)

	ch, unsubscribe := m.Subscribe()
	defer unsubscribe()

	m.Report(true)

	select {
	case state := <-ch:
		assert.Equal(t, Online, state)
	case <-time.After(time.Second):
		t.Fatal("expected a transition notification")
	}
}

func TestMonitor_Subscribe_SlowReaderGetsLatestTransition(t *testing.T) {
	m := testMonitor(Online)
	m.SetDebounce(0)

	ch, unsubscribe := m.Subscribe()
	defer unsubscribe()

	// Подписчик не успел прочитать уход в офлайн до возврата сети:
	// устаревший переход в буфере вытесняется свежим
	m.Report(false)
	m.Report(true)

	select {
	case state := <-ch:
		assert.Equal(t, Online, state)
	case <-time.After(time.Second):
		t.Fatal("expected a transition notification")
	}

	select {
	case state := <-ch:
		t.Fatalf("unexpected extra transition: %s", state)
	default:
	}
}

func TestMonitor_Unsubscribe(t *testing.T) {
	m := testMonitor(Offline)

	ch, unsubscribe := m.Subscribe()
	unsubscribe()

	m.Report(true)

	select {
	case <-ch:
		t.Fatal("unsubscribed channel must not receive notifications")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMonitor_RunProber(t *testing.T) {
	m := testMonitor(Offline)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		m.RunProber(ctx, func(context.Context) bool { return true }, 10*time.Millisecond)
	}()

	require.Eventually(t, func() bool { return m.Online() }, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("prober must stop on context cancellation")
	}
}
