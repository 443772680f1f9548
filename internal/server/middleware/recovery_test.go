package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecoveryMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("something went badly wrong")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/entities/e1", nil)
	rec := httptest.NewRecorder()

	assert.NotPanics(t, func() {
		RecoveryMiddleware(logger)(next).ServeHTTP(rec, req)
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	// Детали паники клиенту не раскрываются
	assert.NotContains(t, rec.Body.String(), "something went badly wrong")
}

func TestRecoveryMiddleware_LogsStackTrace(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/entities/e1", nil)
	RecoveryMiddleware(logger)(next).ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	assert.Contains(t, out, "Panic recovered")
	assert.Contains(t, out, "boom")
	assert.Contains(t, out, "stack")
}

func TestRecoveryMiddleware_PassesThroughNormally(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/entities/e1", nil)
	rec := httptest.NewRecorder()

	RecoveryMiddleware(logger)(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, buf.String())
}
