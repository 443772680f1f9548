// Package api содержит wire-типы HTTP API сервиса удаленной персистентности.
// Используется и клиентом, и сервером.
package api

import "time"

// SaveRequest запрос на сохранение сущности.
// ExpectedVersion — версия, которую клиент считает текущей на сервере
// (0 для создания). ItemID — ключ идемпотентности: повторная отправка
// того же элемента outbox после сбоя не применяет мутацию дважды.
type SaveRequest struct {
	ItemID          string `json:"item_id"`
	Payload         []byte `json:"payload"`
	ExpectedVersion int64  `json:"expected_version"`
}

// SaveResponse ответ сервера на успешное сохранение
type SaveResponse struct {
	Version int64 `json:"version"` // Version новая серверная версия сущности
}

// LoadResponse ответ сервера на чтение сущности
type LoadResponse struct {
	UpdatedAt time.Time `json:"updated_at"`
	Payload   []byte    `json:"payload"`
	Version   int64     `json:"version"`
}

// ConflictResponse тело ответа 409: серверная версия ушла вперед.
// Содержит состояние сервера, чтобы клиент мог разрешить конфликт
// без дополнительного чтения.
type ConflictResponse struct {
	ServerModifiedAt time.Time `json:"server_modified_at"`
	ServerPayload    []byte    `json:"server_payload"`
	ServerVersion    int64     `json:"server_version"`
}

// SessionRequest запрос на выдачу сессионного токена для владельца.
// Полноценная аутентификация пользователя остается за внешним слоем приложения.
type SessionRequest struct {
	OwnerID string `json:"owner_id"`
}

// SessionResponse ответ с access-токеном
type SessionResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"` // ExpiresIn срок действия в секундах
}

// ErrorResponse стандартный ответ с ошибкой
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Коды ошибок в ErrorResponse.Code
const (
	ErrCodeValidation = "validation_error"
	ErrCodeNotFound   = "not_found"
	ErrCodeConflict   = "version_conflict"
	ErrCodeInternal   = "internal_error"
)
