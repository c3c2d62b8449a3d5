package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/exp/slog"

	"fitsync/internal/domain/change"
	"fitsync/internal/domain/sync"
)

// ErrAgentUnavailable агент не запущен или не слушает адрес управляющего API
var ErrAgentUnavailable = errors.New("sync agent is not running")

// ControlClient клиент управляющего API запущенного агента, используется CLI
type ControlClient struct {
	client  *http.Client
	baseURL string
	log     *slog.Logger
}

func NewControlClient(address string, log *slog.Logger) *ControlClient {
	baseURL := strings.TrimRight(address, "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}

	return &ControlClient{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: baseURL,
		log:     log.With(slog.String("component", "control_client")),
	}
}

func (c *ControlClient) Status(ctx context.Context) (*sync.Status, error) {
	var st sync.Status
	if err := c.call(ctx, http.MethodGet, "/api/v1/sync/status", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *ControlClient) ForceSync(ctx context.Context) (sync.ForceResult, error) {
	var resp struct {
		Result sync.ForceResult `json:"result"`
	}
	if err := c.call(ctx, http.MethodPost, "/api/v1/sync/force", nil, &resp); err != nil {
		return "", err
	}
	return resp.Result, nil
}

func (c *ControlClient) Conflicts(ctx context.Context) ([]sync.ConflictRecord, error) {
	var resp struct {
		Conflicts []sync.ConflictRecord `json:"conflicts"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/sync/conflicts", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Conflicts, nil
}

func (c *ControlClient) ResolveConflict(ctx context.Context, changeID string, choice sync.Choice) error {
	path := "/api/v1/sync/conflicts/" + url.PathEscape(changeID) + "/resolve"
	return c.call(ctx, http.MethodPost, path, map[string]sync.Choice{"choice": choice}, nil)
}

func (c *ControlClient) Failed(ctx context.Context) ([]sync.FailedItem, error) {
	var resp struct {
		Failed []sync.FailedItem `json:"failed"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/v1/sync/failed", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Failed, nil
}

func (c *ControlClient) DismissFailed(ctx context.Context, changeID string) error {
	return c.call(ctx, http.MethodDelete, "/api/v1/sync/failed/"+url.PathEscape(changeID), nil, nil)
}

// AppendChange записывает изменение сущности через агент
func (c *ControlClient) AppendChange(ctx context.Context, domain string, ch change.PendingChange) (*change.PendingChange, error) {
	body := map[string]any{
		"entityId": ch.EntityID,
		"action":   ch.Action,
	}
	if len(ch.Payload) > 0 {
		body["payload"] = ch.Payload
	}
	if ch.BaseVersion > 0 {
		body["baseVersion"] = ch.BaseVersion
	}

	var entry change.PendingChange
	path := "/api/v1/domains/" + url.PathEscape(domain) + "/changes"
	if err := c.call(ctx, http.MethodPost, path, body, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (c *ControlClient) Changes(ctx context.Context, domain string) ([]change.PendingChange, error) {
	var resp struct {
		Changes []change.PendingChange `json:"changes"`
	}
	path := "/api/v1/domains/" + url.PathEscape(domain) + "/changes"
	if err := c.call(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Changes, nil
}

func (c *ControlClient) call(ctx context.Context, method, path string, body, result any) error {
	resp, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	return c.parseResponse(resp, result)
}

func (c *ControlClient) doRequest(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	c.log.Debug("control request", slog.String("method", method), slog.String("url", req.URL.String()))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAgentUnavailable, err)
	}
	return resp, nil
}

func (c *ControlClient) parseResponse(resp *http.Response, result any) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	c.log.Debug("control response", slog.Int("status", resp.StatusCode))

	// huma отдаёт ошибки как application/problem+json с detail,
	// обработчики - как {"status":"Error","error":...}
	var errResp struct {
		Status any    `json:"status"`
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	_ = json.Unmarshal(body, &errResp)

	if resp.StatusCode >= http.StatusBadRequest {
		if errResp.Detail != "" {
			return fmt.Errorf("agent error: %s", errResp.Detail)
		}
		return fmt.Errorf("agent error: status %d", resp.StatusCode)
	}
	if errResp.Error != "" {
		return fmt.Errorf("agent error: %s", errResp.Error)
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
