package handlers

import "context"

// contextKey тип для ключей контекста
type contextKey string

// OwnerIDKey ключ для хранения owner_id в контексте
const OwnerIDKey contextKey = "owner_id"

// GetOwnerID извлекает owner_id из контекста запроса
func GetOwnerID(ctx context.Context) (string, bool) {
	ownerID, ok := ctx.Value(OwnerIDKey).(string)
	return ownerID, ok
}
