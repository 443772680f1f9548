package api

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound indicates that the entity does not exist on the server
var ErrNotFound = errors.New("entity not found on server")

// ConflictError сервер отверг мутацию: его версия ушла вперед относительно
// expectedVersion клиента. Несет серверное состояние, чтобы разрешение
// конфликта не требовало дополнительного чтения.
type ConflictError struct {
	ServerModifiedAt time.Time
	ServerPayload    []byte
	ServerVersion    int64
}

// Error implements the error interface
func (e *ConflictError) Error() string {
	return fmt.Sprintf("version conflict: server at version %d", e.ServerVersion)
}

// TransientError временный сбой (сеть, таймаут, 5xx): мутацию можно и нужно
// повторить позже с backoff.
type TransientError struct {
	Err error
}

// Error implements the error interface
func (e *TransientError) Error() string {
	return fmt.Sprintf("transient remote error: %v", e.Err)
}

// Unwrap exposes the underlying cause
func (e *TransientError) Unwrap() error {
	return e.Err
}

// PermanentError сервер окончательно отверг мутацию (валидация, схема):
// автоматические повторы бессмысленны.
type PermanentError struct {
	Code    string
	Message string
	Status  int
}

// Error implements the error interface
func (e *PermanentError) Error() string {
	return fmt.Sprintf("remote rejected request (%d %s): %s", e.Status, e.Code, e.Message)
}

// IsTransient reports whether the error is worth retrying with backoff
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// AsConflict extracts a ConflictError if the error carries one
func AsConflict(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
