// Package resolver содержит чистую логику разрешения конфликтов между
// локальной и серверной версиями сущности. Никакого I/O: самое сложное
// для тестирования место движка намеренно сведено к чистым функциям.
package resolver

import (
	"bytes"
	"time"

	"github.com/iudanet/studysync/internal/models"
)

// RemoteState снимок серверной стороны конфликта
type RemoteState struct {
	ModifiedAt time.Time
	Payload    []byte
	Version    int64
}

// Classification результат сравнения локального и серверного состояний
type Classification int

const (
	// NoDivergence сервер на той версии, которую клиент и ожидал
	NoDivergence Classification = iota
	// RemoteAdvanced сервер ушел вперед, локальных правок нет —
	// серверное состояние можно принять без конфликта
	RemoteAdvanced
	// Diverged сервер ушел вперед при несинхронизированных локальных
	// правках — настоящий конфликт
	Diverged
)

// Classify determines whether local and remote states genuinely diverge
func Classify(local *models.VersionedRecord, remoteVersion int64) Classification {
	if remoteVersion == local.ServerVersion {
		return NoDivergence
	}
	if local.SyncStatus != models.SyncStatusPending && !local.PendingDelete {
		return RemoteAdvanced
	}
	return Diverged
}

// Outcome решение стратегии разрешения конфликта
type Outcome int

const (
	// KeepLocal локальная сторона побеждает: результат перепосылается
	// на сервер поверх его текущей версии
	KeepLocal Outcome = iota
	// AdoptRemote серверная сторона побеждает: локальная запись
	// перезаписывается серверным состоянием
	AdoptRemote
	// Manual автоматическое решение невозможно, нужен человек
	Manual
)

// Verdict итог разрешения. Payload заполнен для KeepLocal и содержит
// данные, которые должны уехать на сервер (для merge-стратегий это
// объединенный снимок).
type Verdict struct {
	Payload []byte
	Outcome Outcome
}

// Strategy решает конфликт по снимкам обеих сторон
type Strategy interface {
	Resolve(local *models.VersionedRecord, remote RemoteState) Verdict
}

// StrategyFunc adapts a plain function to the Strategy interface
type StrategyFunc func(local *models.VersionedRecord, remote RemoteState) Verdict

// Resolve implements Strategy
func (f StrategyFunc) Resolve(local *models.VersionedRecord, remote RemoteState) Verdict {
	return f(local, remote)
}

// LastWriteWins возвращает стратегию по умолчанию: побеждает сторона
// с более поздним временем модификации. Решение детерминировано и не
// зависит от порядка вызова: при равных временах стороны сравниваются
// побайтово по payload.
func LastWriteWins() Strategy {
	return StrategyFunc(func(local *models.VersionedRecord, remote RemoteState) Verdict {
		if local.LastModifiedAt.After(remote.ModifiedAt) {
			return Verdict{Outcome: KeepLocal, Payload: local.Payload}
		}
		if local.LastModifiedAt.Before(remote.ModifiedAt) {
			return Verdict{Outcome: AdoptRemote}
		}

		// Времена равны — выбираем детерминированно по байтам
		if bytes.Compare(local.Payload, remote.Payload) >= 0 {
			return Verdict{Outcome: KeepLocal, Payload: local.Payload}
		}
		return Verdict{Outcome: AdoptRemote}
	})
}

// ManualOnly возвращает стратегию, которая всегда требует решения человека
func ManualOnly() Strategy {
	return StrategyFunc(func(local *models.VersionedRecord, remote RemoteState) Verdict {
		return Verdict{Outcome: Manual}
	})
}

// MergeFunc объединяет payload обеих сторон в один снимок
type MergeFunc func(local, remote []byte) []byte

// Merge возвращает стратегию с пользовательским пофайловым слиянием:
// результат merge-функции перепосылается на сервер как локальная победа.
func Merge(merge MergeFunc) Strategy {
	return StrategyFunc(func(local *models.VersionedRecord, remote RemoteState) Verdict {
		return Verdict{Outcome: KeepLocal, Payload: merge(local.Payload, remote.Payload)}
	})
}
