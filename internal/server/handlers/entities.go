// Package handlers содержит HTTP-обработчики сервиса удаленной
// персистентности: CRUD сущностей с compare-and-set версионированием,
// выдача сессионных токенов и health check.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/iudanet/studysync/internal/server/storage"
	"github.com/iudanet/studysync/pkg/api"
)

// EntityHandler handles versioned entity requests
type EntityHandler struct {
	logger  *slog.Logger
	storage storage.EntityStorage
}

// NewEntityHandler creates a new entity handler
func NewEntityHandler(logger *slog.Logger, store storage.EntityStorage) *EntityHandler {
	return &EntityHandler{
		logger:  logger,
		storage: store,
	}
}

// Save обрабатывает PUT /api/v1/entities/{id}
// Создает или обновляет сущность после compare-and-set проверки версии
func (h *EntityHandler) Save(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID, ok := GetOwnerID(ctx)
	if !ok {
		h.logger.Error("Owner ID not found in context")
		h.sendError(w, api.ErrCodeInternal, "missing owner", http.StatusUnauthorized)
		return
	}

	entityID := r.PathValue("id")
	if entityID == "" {
		h.sendError(w, api.ErrCodeValidation, "entity id is required", http.StatusBadRequest)
		return
	}

	var req api.SaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode save request", slog.Any("error", err))
		h.sendError(w, api.ErrCodeValidation, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ExpectedVersion < 0 {
		h.sendError(w, api.ErrCodeValidation, "expected_version must not be negative", http.StatusUnprocessableEntity)
		return
	}

	version, err := h.storage.SaveEntity(ctx, ownerID, entityID, req.Payload, req.ExpectedVersion, req.ItemID)
	if err != nil {
		h.handleStorageError(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "entity saved",
		slog.String("owner_id", ownerID),
		slog.String("entity_id", entityID),
		slog.Int64("version", version))

	h.sendJSON(w, http.StatusOK, api.SaveResponse{Version: version})
}

// Load обрабатывает GET /api/v1/entities/{id}
func (h *EntityHandler) Load(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID, ok := GetOwnerID(ctx)
	if !ok {
		h.logger.Error("Owner ID not found in context")
		h.sendError(w, api.ErrCodeInternal, "missing owner", http.StatusUnauthorized)
		return
	}

	entityID := r.PathValue("id")
	entity, err := h.storage.GetEntity(ctx, ownerID, entityID)
	if err != nil {
		h.handleStorageError(w, r, err)
		return
	}

	h.sendJSON(w, http.StatusOK, api.LoadResponse{
		Version:   entity.Version,
		Payload:   entity.Payload,
		UpdatedAt: entity.UpdatedAt,
	})
}

// Delete обрабатывает DELETE /api/v1/entities/{id}?expected_version=&item_id=
func (h *EntityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID, ok := GetOwnerID(ctx)
	if !ok {
		h.logger.Error("Owner ID not found in context")
		h.sendError(w, api.ErrCodeInternal, "missing owner", http.StatusUnauthorized)
		return
	}

	entityID := r.PathValue("id")
	expectedVersion, err := strconv.ParseInt(r.URL.Query().Get("expected_version"), 10, 64)
	if err != nil {
		h.sendError(w, api.ErrCodeValidation, "invalid expected_version", http.StatusBadRequest)
		return
	}
	itemID := r.URL.Query().Get("item_id")

	if err := h.storage.DeleteEntity(ctx, ownerID, entityID, expectedVersion, itemID); err != nil {
		h.handleStorageError(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "entity deleted",
		slog.String("owner_id", ownerID),
		slog.String("entity_id", entityID))

	w.WriteHeader(http.StatusNoContent)
}

// handleStorageError переводит ошибки хранилища в HTTP-ответы
func (h *EntityHandler) handleStorageError(w http.ResponseWriter, r *http.Request, err error) {
	if conflict, ok := storage.AsVersionConflict(err); ok {
		h.sendJSON(w, http.StatusConflict, api.ConflictResponse{
			ServerVersion:    conflict.CurrentVersion,
			ServerPayload:    conflict.CurrentPayload,
			ServerModifiedAt: conflict.CurrentModifiedAt,
		})
		return
	}
	if errors.Is(err, storage.ErrEntityNotFound) {
		h.sendError(w, api.ErrCodeNotFound, "entity not found", http.StatusNotFound)
		return
	}

	h.logger.ErrorContext(r.Context(), "storage operation failed", slog.Any("error", err))
	h.sendError(w, api.ErrCodeInternal, "internal server error", http.StatusInternalServerError)
}

// sendJSON отправляет ответ в формате JSON
func (h *EntityHandler) sendJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to encode response", slog.Any("error", err))
	}
}

// sendError отправляет ошибку в формате JSON
func (h *EntityHandler) sendError(w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(api.ErrorResponse{Code: code, Message: message}); err != nil {
		h.logger.Error("failed to encode error response", slog.Any("error", err))
	}
}
