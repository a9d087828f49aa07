package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/tickstream/tickstream/internal/models"
	"github.com/tickstream/tickstream/internal/repositories"
	"github.com/tickstream/tickstream/internal/services"
)

// TimerAPI is the facade's view of the active-timer endpoint.
type TimerAPI interface {
	Start(ctx context.Context, categoryID string, device models.DeviceInfo, notes *string) (*models.ActiveTimerRecord, error)
	Stop(ctx context.Context, categoryID string, device models.DeviceInfo, notes *string) (*models.TimeEntry, error)
	Cancel(ctx context.Context, categoryID string, device models.DeviceInfo) (bool, error)
	Get(ctx context.Context, categoryID string) (*models.ActiveTimerRecord, error)
	ListActive(ctx context.Context) ([]*models.ActiveTimerRecord, error)
}

// HTTPTimerClient talks to the action-dispatched timer endpoint with a
// bearer credential.
type HTTPTimerClient struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewHTTPTimerClient(baseURL, token string) *HTTPTimerClient {
	return &HTTPTimerClient{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type wireRequest struct {
	Action     string            `json:"action"`
	CategoryID string            `json:"categoryId"`
	DeviceInfo models.DeviceInfo `json:"deviceInfo"`
	Notes      *string           `json:"notes,omitempty"`
}

type wireResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *HTTPTimerClient) do(ctx context.Context, method, path string, body interface{}) (json.RawMessage, int, error) {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var envelope wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil && resp.StatusCode < 300 {
		return nil, resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.StatusCode >= 300 {
		return nil, resp.StatusCode, c.mapError(resp.StatusCode, envelope)
	}
	return envelope.Data, resp.StatusCode, nil
}

func (c *HTTPTimerClient) mapError(status int, envelope wireResponse) error {
	message := ""
	if envelope.Error != nil {
		message = envelope.Error.Message
	}
	switch status {
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", services.ErrConflict, message)
	case http.StatusNotFound:
		return repositories.ErrNotFound
	case http.StatusTooManyRequests:
		return repositories.ErrQuotaExceeded
	default:
		return fmt.Errorf("timer endpoint returned %d: %s", status, message)
	}
}

func (c *HTTPTimerClient) Start(ctx context.Context, categoryID string, device models.DeviceInfo, notes *string) (*models.ActiveTimerRecord, error) {
	data, _, err := c.do(ctx, http.MethodPost, "", wireRequest{
		Action: "start", CategoryID: categoryID, DeviceInfo: device, Notes: notes,
	})
	if err != nil {
		return nil, err
	}

	var record models.ActiveTimerRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to parse timer record: %w", err)
	}
	return &record, nil
}

// Stop returns nil when no timer was active; already gone is a normal
// outcome, not an error.
func (c *HTTPTimerClient) Stop(ctx context.Context, categoryID string, device models.DeviceInfo, notes *string) (*models.TimeEntry, error) {
	data, _, err := c.do(ctx, http.MethodPost, "", wireRequest{
		Action: "stop", CategoryID: categoryID, DeviceInfo: device, Notes: notes,
	})
	if err == repositories.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var entry models.TimeEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to parse time entry: %w", err)
	}
	return &entry, nil
}

func (c *HTTPTimerClient) Cancel(ctx context.Context, categoryID string, device models.DeviceInfo) (bool, error) {
	_, _, err := c.do(ctx, http.MethodPost, "", wireRequest{
		Action: "cancel", CategoryID: categoryID, DeviceInfo: device,
	})
	if err == repositories.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *HTTPTimerClient) Get(ctx context.Context, categoryID string) (*models.ActiveTimerRecord, error) {
	data, _, err := c.do(ctx, http.MethodGet, "?categoryId="+url.QueryEscape(categoryID), nil)
	if err == repositories.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var record models.ActiveTimerRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to parse timer record: %w", err)
	}
	return &record, nil
}

func (c *HTTPTimerClient) ListActive(ctx context.Context) ([]*models.ActiveTimerRecord, error) {
	data, _, err := c.do(ctx, http.MethodGet, "", nil)
	if err != nil {
		return nil, err
	}

	var records []*models.ActiveTimerRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse timer list: %w", err)
	}
	return records, nil
}
