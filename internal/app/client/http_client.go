package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"fitsync/internal/domain/sync"

	"golang.org/x/exp/slog"
)

const userAgent = "FitSync-Client/1.0"

// HTTPClient транспорт пакетов к удалённому серверу по HTTP
type HTTPClient struct {
	client  *http.Client
	log     *slog.Logger
	baseURL string
}

var _ sync.Transport = (*HTTPClient)(nil)

// NewHTTPClient создает транспорт. Таймаут запроса задаёт контекст,
// который передаёт оркестратор.
func NewHTTPClient(baseURL string, log *slog.Logger) *HTTPClient {
	client := &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			MaxIdleConnsPerHost: 10,
		},
	}

	return &HTTPClient{
		client:  client,
		log:     log.With(slog.String("component", "http_transport")),
		baseURL: baseURL,
	}
}

// Probe проверяет доступность сервера
func (h *HTTPClient) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+"/api/v1/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("server unreachable: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned status: %d", resp.StatusCode)
	}
	return nil
}

// Send отправляет пакет. Без структурированного ответа возвращается
// ошибка ErrNetworkFailure.
func (h *HTTPClient) Send(ctx context.Context, batch *sync.BatchRequest) (*sync.BatchResponse, error) {
	body, err := json.Marshal(batch)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/api/v1/sync/batch", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("User-Agent", userAgent)

	h.log.Debug("sending batch", slog.Int("items", len(batch.Items)), slog.String("url", request.URL.String()))

	response, err := h.client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sync.ErrNetworkFailure, err)
	}
	defer response.Body.Close()

	var result sync.BatchResponse
	decodeErr := json.NewDecoder(response.Body).Decode(&result)

	if response.StatusCode != http.StatusOK {
		statusErr := fmt.Errorf("server returned status: %d", response.StatusCode)
		if decodeErr == nil && result.HasOutcomes() {
			return &result, statusErr
		}
		return nil, fmt.Errorf("%w: %v", sync.ErrNetworkFailure, statusErr)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", sync.ErrNetworkFailure, decodeErr)
	}

	h.log.Debug("batch response received",
		slog.Int("synced", len(result.SyncedIDs)),
		slog.Int("conflicts", len(result.Conflicts)),
		slog.Int("errors", len(result.Errors)),
	)
	return &result, nil
}
