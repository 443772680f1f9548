package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/iudanet/studysync/internal/validation"
	"github.com/iudanet/studysync/pkg/api"
)

// SessionHandler выдает сессионные токены владельцам.
// Подлинность владельца здесь не проверяется: полноценная аутентификация
// пользователя остается за внешним слоем приложения.
type SessionHandler struct {
	logger    *slog.Logger
	jwtConfig JWTConfig
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(logger *slog.Logger, jwtConfig JWTConfig) *SessionHandler {
	return &SessionHandler{
		logger:    logger,
		jwtConfig: jwtConfig,
	}
}

// Create обрабатывает POST /api/v1/session
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.SessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode session request", slog.Any("error", err))
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := validation.ValidateOwnerID(req.OwnerID); err != nil {
		h.logger.WarnContext(ctx, "invalid owner id", slog.String("owner_id", req.OwnerID), slog.Any("error", err))
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	token, expiresIn, err := GenerateAccessToken(h.jwtConfig, req.OwnerID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to generate access token", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "session issued", slog.String("owner_id", req.OwnerID))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(api.SessionResponse{
		AccessToken: token,
		ExpiresIn:   expiresIn,
	}); err != nil {
		h.logger.Error("failed to encode session response", slog.Any("error", err))
	}
}

// sendError отправляет ошибку в формате JSON
func (h *SessionHandler) sendError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(api.ErrorResponse{
		Code:    api.ErrCodeValidation,
		Message: message,
	}); err != nil {
		h.logger.Error("failed to encode error response", slog.Any("error", err))
	}
}
