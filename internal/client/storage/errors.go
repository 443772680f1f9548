package storage

import "errors"

// Common client storage errors
var (
	// ErrRecordNotFound indicates that versioned record was not found
	ErrRecordNotFound = errors.New("versioned record not found")

	// ErrItemNotFound indicates that outbox item was not found
	ErrItemNotFound = errors.New("outbox item not found")

	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = errors.New("storage is closed")

	// ErrQuotaExceeded indicates that the durable store ran out of space.
	// Такая ошибка фатальна для конкретной записи и никогда не глотается.
	ErrQuotaExceeded = errors.New("storage quota exceeded")

	// ErrInvalidTransition indicates an outbox status transition that is not allowed
	ErrInvalidTransition = errors.New("invalid outbox status transition")
)
