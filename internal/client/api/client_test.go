package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/studysync/pkg/api"
)

// newTestServer поднимает httptest-сервер с выдачей сессий и заданным
// обработчиком для /api/v1/entities/
func newTestServer(t *testing.T, entities http.HandlerFunc) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/session", func(w http.ResponseWriter, r *http.Request) {
		var req api.SessionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotEmpty(t, req.OwnerID)

		_ = json.NewEncoder(w).Encode(api.SessionResponse{
			AccessToken: "token-" + req.OwnerID,
			ExpiresIn:   3600,
		})
	})
	mux.HandleFunc("/api/v1/entities/", entities)
	mux.HandleFunc("GET /api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestClient_Save_Success(t *testing.T) {
	var gotReq api.SaveRequest
	var gotAuth string

	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		_ = json.NewEncoder(w).Encode(api.SaveResponse{Version: 1})
	})

	client := NewClient(server.URL)
	version, err := client.Save(context.Background(), "owner-1", "entity-1", []byte(`{"name":"A"}`), 0, "item-1")

	require.NoError(t, err)
	assert.Equal(t, int64(1), version)
	assert.Equal(t, "Bearer token-owner-1", gotAuth)
	assert.Equal(t, "item-1", gotReq.ItemID)
	assert.Equal(t, int64(0), gotReq.ExpectedVersion)
	assert.Equal(t, []byte(`{"name":"A"}`), gotReq.Payload)
}

func TestClient_Save_Conflict(t *testing.T) {
	serverModified := time.Now().UTC().Truncate(time.Second)

	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(api.ConflictResponse{
			ServerVersion:    2,
			ServerPayload:    []byte(`{"name":"remote"}`),
			ServerModifiedAt: serverModified,
		})
	})

	client := NewClient(server.URL)
	_, err := client.Save(context.Background(), "owner-1", "entity-1", []byte("x"), 1, "item-1")

	require.Error(t, err)
	conflict, ok := AsConflict(err)
	require.True(t, ok, "expected ConflictError, got %v", err)
	assert.Equal(t, int64(2), conflict.ServerVersion)
	assert.Equal(t, []byte(`{"name":"remote"}`), conflict.ServerPayload)
	assert.Equal(t, serverModified, conflict.ServerModifiedAt)
}

func TestClient_Save_TransientOn5xx(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusServiceUnavailable)
	})

	client := NewClient(server.URL)
	_, err := client.Save(context.Background(), "owner-1", "entity-1", []byte("x"), 0, "item-1")

	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

func TestClient_Save_PermanentOn422(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(api.ErrorResponse{
			Code:    api.ErrCodeValidation,
			Message: "payload too large",
		})
	})

	client := NewClient(server.URL)
	_, err := client.Save(context.Background(), "owner-1", "entity-1", []byte("x"), 0, "item-1")

	require.Error(t, err)
	assert.False(t, IsTransient(err))

	var pe *PermanentError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, api.ErrCodeValidation, pe.Code)
	assert.Equal(t, "payload too large", pe.Message)
}

func TestClient_Load_Success(t *testing.T) {
	updatedAt := time.Now().UTC().Truncate(time.Second)

	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		_ = json.NewEncoder(w).Encode(api.LoadResponse{
			Version:   3,
			Payload:   []byte(`{"name":"A"}`),
			UpdatedAt: updatedAt,
		})
	})

	client := NewClient(server.URL)
	state, err := client.Load(context.Background(), "owner-1", "entity-1")

	require.NoError(t, err)
	assert.Equal(t, int64(3), state.Version)
	assert.Equal(t, []byte(`{"name":"A"}`), state.Payload)
	assert.Equal(t, updatedAt, state.ModifiedAt)
}

func TestClient_Load_NotFound(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	})

	client := NewClient(server.URL)
	_, err := client.Load(context.Background(), "owner-1", "missing")

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClient_Load_RetriesTransient(t *testing.T) {
	var calls atomic.Int32

	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		// Первый вызов падает, второй отвечает
		if calls.Add(1) == 1 {
			http.Error(w, "boom", http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(api.LoadResponse{Version: 1, Payload: []byte("ok")})
	})

	client := NewClient(server.URL)
	state, err := client.Load(context.Background(), "owner-1", "entity-1")

	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), state.Payload)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_Delete_Success(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "2", r.URL.Query().Get("expected_version"))
		assert.Equal(t, "item-9", r.URL.Query().Get("item_id"))
		w.WriteHeader(http.StatusNoContent)
	})

	client := NewClient(server.URL)
	err := client.Delete(context.Background(), "owner-1", "entity-1", 2, "item-9")

	assert.NoError(t, err)
}

func TestClient_RefreshesExpiredSession(t *testing.T) {
	var calls atomic.Int32

	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		// Первый запрос отклоняется как неавторизованный, после
		// обновления сессии запрос проходит
		if calls.Add(1) == 1 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(api.ErrorResponse{Code: "unauthorized", Message: "token expired"})
			return
		}
		_ = json.NewEncoder(w).Encode(api.SaveResponse{Version: 1})
	})

	client := NewClient(server.URL)
	version, err := client.Save(context.Background(), "owner-1", "entity-1", []byte("x"), 0, "item-1")

	require.NoError(t, err)
	assert.Equal(t, int64(1), version)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_Ping(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {})

	client := NewClient(server.URL)
	assert.True(t, client.Ping(context.Background()))

	server.Close()
	assert.False(t, client.Ping(context.Background()))
}
