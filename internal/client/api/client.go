// Package api реализует HTTP-клиент сервиса удаленной персистентности.
// Клиент переводит ответы сервера в таксономию ошибок движка: конфликт
// версий, временный сбой, окончательный отказ, отсутствие сущности.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/iudanet/studysync/pkg/api"
)

//go:generate moq -out client_mock.go . ClientAPI

// EntityState серверное состояние сущности
type EntityState struct {
	ModifiedAt time.Time
	Payload    []byte
	Version    int64
}

// ClientAPI определяет интерфейс удаленного сервиса персистентности.
// expectedVersion — compare-and-set: 0 для создания, иначе последняя
// подтвержденная серверная версия. itemID — ключ идемпотентности.
type ClientAPI interface {
	// Save creates or updates the entity, returns the new server version
	Save(ctx context.Context, ownerID, entityID string, payload []byte, expectedVersion int64, itemID string) (int64, error)

	// Load reads the current server state of the entity
	Load(ctx context.Context, ownerID, entityID string) (*EntityState, error)

	// Delete removes the entity on the server
	Delete(ctx context.Context, ownerID, entityID string, expectedVersion int64, itemID string) error

	// Ping reports whether the server is reachable
	Ping(ctx context.Context) bool
}

// Client представляет HTTP клиент для взаимодействия с сервером
type Client struct {
	httpClient *http.Client
	tokens     map[string]string // ownerID -> access token
	baseURL    string
	mu         sync.Mutex
}

// NewClient создает новый API клиент
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		tokens:  make(map[string]string),
		httpClient: &http.Client{
			// Ограниченный таймаут на каждый сетевой вызов: истечение
			// трактуется как временный сбой
			Timeout: 15 * time.Second,
		},
	}
}

// Save creates or updates the entity under compare-and-set versioning
func (c *Client) Save(ctx context.Context, ownerID, entityID string, payload []byte, expectedVersion int64, itemID string) (int64, error) {
	req := api.SaveRequest{
		ItemID:          itemID,
		Payload:         payload,
		ExpectedVersion: expectedVersion,
	}

	var resp api.SaveResponse
	path := "/api/v1/entities/" + url.PathEscape(entityID)
	if err := c.doAuthorized(ctx, ownerID, http.MethodPut, path, req, &resp); err != nil {
		return 0, fmt.Errorf("save request failed: %w", err)
	}

	return resp.Version, nil
}

// Load reads the entity; временные сбои повторяются на месте, поскольку
// чтение идемпотентно.
func (c *Client) Load(ctx context.Context, ownerID, entityID string) (*EntityState, error) {
	var state *EntityState

	backoff := retry.WithMaxRetries(2, retry.NewExponential(200*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var resp api.LoadResponse
		path := "/api/v1/entities/" + url.PathEscape(entityID)
		if err := c.doAuthorized(ctx, ownerID, http.MethodGet, path, nil, &resp); err != nil {
			if IsTransient(err) {
				return retry.RetryableError(err)
			}
			return err
		}

		state = &EntityState{
			Version:    resp.Version,
			Payload:    resp.Payload,
			ModifiedAt: resp.UpdatedAt,
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load request failed: %w", err)
	}

	return state, nil
}

// Delete removes the entity on the server
func (c *Client) Delete(ctx context.Context, ownerID, entityID string, expectedVersion int64, itemID string) error {
	path := fmt.Sprintf("/api/v1/entities/%s?expected_version=%d&item_id=%s",
		url.PathEscape(entityID), expectedVersion, url.QueryEscape(itemID))

	if err := c.doAuthorized(ctx, ownerID, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("delete request failed: %w", err)
	}

	return nil
}

// Ping reports whether the server is reachable
func (c *Client) Ping(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/health", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode == http.StatusOK
}

// session получает access-токен для владельца, кешируя его между вызовами
func (c *Client) session(ctx context.Context, ownerID string) (string, error) {
	c.mu.Lock()
	token, ok := c.tokens[ownerID]
	c.mu.Unlock()
	if ok {
		return token, nil
	}

	var resp api.SessionResponse
	err := c.doRequest(ctx, http.MethodPost, "/api/v1/session", "", api.SessionRequest{OwnerID: ownerID}, &resp)
	if err != nil {
		return "", fmt.Errorf("session request failed: %w", err)
	}

	c.mu.Lock()
	c.tokens[ownerID] = resp.AccessToken
	c.mu.Unlock()

	return resp.AccessToken, nil
}

// invalidateSession сбрасывает закешированный токен владельца
func (c *Client) invalidateSession(ownerID string) {
	c.mu.Lock()
	delete(c.tokens, ownerID)
	c.mu.Unlock()
}

// doAuthorized выполняет запрос с токеном владельца; протухший токен
// обновляется один раз прозрачно для вызывающего
func (c *Client) doAuthorized(ctx context.Context, ownerID, method, path string, body, result any) error {
	token, err := c.session(ctx, ownerID)
	if err != nil {
		return err
	}

	err = c.doRequest(ctx, method, path, token, body, result)

	// Единственный повтор с обновленной сессией
	var pe *PermanentError
	if errors.As(err, &pe) && pe.Status == http.StatusUnauthorized {
		c.invalidateSession(ownerID)
		token, serr := c.session(ctx, ownerID)
		if serr != nil {
			return serr
		}
		err = c.doRequest(ctx, method, path, token, body, result)
	}

	return err
}

// doRequest выполняет HTTP запрос и переводит ответ в таксономию ошибок
func (c *Client) doRequest(ctx context.Context, method, path, token string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Сетевые ошибки и таймауты — временные сбои
		return &TransientError{Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransientError{Err: err}
	}

	if err := mapStatus(resp.StatusCode, respBody); err != nil {
		return err
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// mapStatus переводит статус-код ответа в типизированную ошибку движка
func mapStatus(status int, body []byte) error {
	switch {
	case status >= 200 && status < 300:
		return nil

	case status == http.StatusConflict:
		var conflict api.ConflictResponse
		if err := json.Unmarshal(body, &conflict); err != nil {
			return fmt.Errorf("failed to decode conflict response: %w", err)
		}
		return &ConflictError{
			ServerVersion:    conflict.ServerVersion,
			ServerPayload:    conflict.ServerPayload,
			ServerModifiedAt: conflict.ServerModifiedAt,
		}

	case status == http.StatusNotFound:
		return ErrNotFound

	case status == http.StatusRequestTimeout,
		status == http.StatusTooManyRequests,
		status >= 500:
		return &TransientError{Err: fmt.Errorf("server returned status %d", status)}

	default:
		// 4xx: окончательный отказ, повторять бессмысленно
		var errResp api.ErrorResponse
		if err := json.Unmarshal(body, &errResp); err != nil {
			errResp = api.ErrorResponse{Code: api.ErrCodeValidation, Message: string(body)}
		}
		return &PermanentError{
			Status:  status,
			Code:    errResp.Code,
			Message: errResp.Message,
		}
	}
}
