package models

import (
	"bytes"
	"time"
)

// SyncStatus описывает состояние синхронизации записи с сервером.
type SyncStatus string

const (
	// SyncStatusSynced запись совпадает с последней известной серверной версией
	SyncStatusSynced SyncStatus = "synced"
	// SyncStatusPending есть локальные изменения, ожидающие отправки
	SyncStatusPending SyncStatus = "pending"
	// SyncStatusConflict требуется ручное разрешение конфликта
	SyncStatusConflict SyncStatus = "conflict"
)

// VersionedRecord представляет локальную версионированную копию сущности.
// Payload — непрозрачный снимок, ядро синхронизации никогда не интерпретирует
// его содержимое, только сравнивает байты и версии.
type VersionedRecord struct {
	CreatedAt      time.Time  `json:"created_at"`       // CreatedAt время первого локального сохранения
	LastModifiedAt time.Time  `json:"last_modified_at"` // LastModifiedAt время последней локальной мутации
	ID             string     `json:"id"`               // ID стабильный идентификатор сущности (UUID)
	OwnerID        string     `json:"owner_id"`         // OwnerID идентификатор владельца, все запросы скоупятся по нему
	SyncStatus     SyncStatus `json:"sync_status"`      // SyncStatus текущий статус синхронизации
	Payload        []byte     `json:"payload"`          // Payload сериализованный снимок сущности
	LocalVersion   int64      `json:"local_version"`    // LocalVersion монотонно растет при каждой локальной мутации
	ServerVersion  int64      `json:"server_version"`   // ServerVersion последняя подтвержденная серверная версия (0 = не синхронизировалась)
	PendingDelete  bool       `json:"pending_delete"`   // PendingDelete удаление ожидает подтверждения сервером
}

// Clone создает глубокую копию записи
func (r *VersionedRecord) Clone() *VersionedRecord {
	payload := make([]byte, len(r.Payload))
	copy(payload, r.Payload)

	clone := *r
	clone.Payload = payload
	return &clone
}

// SamePayload сравнивает payload записи с другим снимком побайтово.
// Ядро не знает схемы данных, поэтому равенство определяется только байтами.
func (r *VersionedRecord) SamePayload(other []byte) bool {
	return bytes.Equal(r.Payload, other)
}

// EntitySummary краткая сводка по сущности для списочных запросов
type EntitySummary struct {
	LastModifiedAt time.Time  `json:"last_modified_at"`
	ID             string     `json:"id"`
	SyncStatus     SyncStatus `json:"sync_status"`
	LocalVersion   int64      `json:"local_version"`
	ServerVersion  int64      `json:"server_version"`
}

// Summary возвращает сводку по записи без копирования payload
func (r *VersionedRecord) Summary() EntitySummary {
	return EntitySummary{
		ID:             r.ID,
		SyncStatus:     r.SyncStatus,
		LocalVersion:   r.LocalVersion,
		ServerVersion:  r.ServerVersion,
		LastModifiedAt: r.LastModifiedAt,
	}
}
