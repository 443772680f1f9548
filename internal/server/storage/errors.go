package storage

import (
	"errors"
	"fmt"
	"time"
)

// Common storage errors
var (
	// ErrEntityNotFound indicates that the entity does not exist
	// (или удалена: tombstone наружу не отдается)
	ErrEntityNotFound = errors.New("entity not found")
)

// VersionConflictError мутация отвергнута compare-and-set проверкой:
// ожидаемая клиентом версия не совпала с текущей. Несет текущее серверное
// состояние для ответа 409.
type VersionConflictError struct {
	CurrentModifiedAt time.Time
	CurrentPayload    []byte
	CurrentVersion    int64
}

// Error implements the error interface
func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("version conflict: current version is %d", e.CurrentVersion)
}

// AsVersionConflict extracts a VersionConflictError if the error carries one
func AsVersionConflict(err error) (*VersionConflictError, bool) {
	var vc *VersionConflictError
	if errors.As(err, &vc) {
		return vc, true
	}
	return nil, false
}
