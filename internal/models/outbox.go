package models

import "time"

// Operation тип мутации в outbox
type Operation string

const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// ItemStatus статус элемента outbox.
// Переходы: pending -> syncing -> {synced | failed}; failed может быть
// возвращен в pending повторной попыткой (по таймеру backoff или вручную).
type ItemStatus string

const (
	ItemStatusPending ItemStatus = "pending"
	ItemStatusSyncing ItemStatus = "syncing"
	ItemStatusSynced  ItemStatus = "synced"
	ItemStatusFailed  ItemStatus = "failed"
)

// Terminal сообщает, является ли статус конечным для автоматической обработки
func (s ItemStatus) Terminal() bool {
	return s == ItemStatusSynced || s == ItemStatusFailed
}

// OutboxItem представляет одну отложенную мутацию в durable-журнале.
// Payload фиксируется в момент постановки в очередь: последующие правки
// сущности порождают новые элементы, а не меняют существующие.
type OutboxItem struct {
	EnqueuedAt  time.Time  `json:"enqueued_at"`   // EnqueuedAt время постановки, определяет порядок в очереди
	NextRetryAt time.Time  `json:"next_retry_at"` // NextRetryAt момент, с которого failed-элемент снова можно отправлять
	ItemID      string     `json:"item_id"`       // ItemID уникальный идентификатор (UUID), ключ идемпотентности
	EntityID    string     `json:"entity_id"`     // EntityID целевая сущность
	OwnerID     string     `json:"owner_id"`      // OwnerID владелец сущности
	Operation   Operation  `json:"operation"`     // Operation тип мутации
	Status      ItemStatus `json:"status"`        // Status текущий статус элемента
	LastError   string     `json:"last_error"`    // LastError текст последней ошибки отправки
	Payload     []byte     `json:"payload"`       // Payload снимок данных на момент постановки
	Seq         uint64     `json:"seq"`           // Seq монотонный номер, формирует вторичный индекс (entity, порядок)
	RetryCount  int        `json:"retry_count"`   // RetryCount количество неудачных попыток отправки
	Retryable   bool       `json:"retryable"`     // Retryable false = только явный ручной retry
}

// Clone создает глубокую копию элемента
func (i *OutboxItem) Clone() *OutboxItem {
	payload := make([]byte, len(i.Payload))
	copy(payload, i.Payload)

	clone := *i
	clone.Payload = payload
	return &clone
}

// Due сообщает, можно ли отправлять элемент в момент now.
// Pending-элементы без NextRetryAt отправляются сразу.
func (i *OutboxItem) Due(now time.Time) bool {
	if i.Status != ItemStatusPending {
		return false
	}
	return !now.Before(i.NextRetryAt)
}
