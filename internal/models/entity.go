package models

import "time"

// ServerEntity представляет серверную копию сущности. Version растет на
// единицу при каждой принятой мутации; удаление оставляет tombstone с
// выросшей версией. AppliedItemID — ключ идемпотентности последней
// примененной мутации.
type ServerEntity struct {
	UpdatedAt     time.Time `json:"updated_at"`
	OwnerID       string    `json:"owner_id"`
	EntityID      string    `json:"entity_id"`
	AppliedItemID string    `json:"applied_item_id"`
	Payload       []byte    `json:"payload"`
	Version       int64     `json:"version"`
	Deleted       bool      `json:"deleted"`
}
