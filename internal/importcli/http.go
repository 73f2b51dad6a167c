package importcli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/okian/powerwatch/internal/domain/model"
)

// Request mirrors the POST /imports body.
type Request struct {
	BatchID string            `json:"batch_id"`
	Date    model.Date        `json:"date"`
	Rows    []model.ImportRow `json:"rows"`
}

// Ack is the server's answer to a submission.
type Ack struct {
	Status    string `json:"status"`
	BatchID   string `json:"batch_id"`
	Duplicate bool   `json:"duplicate"`
	Rows      int    `json:"rows"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Client posts batches to a powerwatch server.
type Client struct {
	client  *http.Client
	baseURL string
	token   string
}

// NewClient creates a client with the given request timeout.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
	}
}

// Submit posts one batch. A duplicate is not an error.
func (c *Client) Submit(ctx context.Context, req Request) (Ack, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Ack{}, fmt.Errorf("failed to marshal request body: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/imports", bytes.NewReader(body))
	if err != nil {
		return Ack{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return Ack{}, fmt.Errorf("post import: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Ack{}, fmt.Errorf("read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusAccepted, http.StatusOK:
		var ack Ack
		if err := json.Unmarshal(data, &ack); err != nil {
			return Ack{}, fmt.Errorf("decode ack: %w", err)
		}
		return ack, nil
	case http.StatusTooManyRequests:
		return Ack{}, ErrBackpressure
	default:
		var e errorResponse
		if json.Unmarshal(data, &e) == nil && e.Message != "" {
			return Ack{}, fmt.Errorf("%w: %d %s: %s", ErrRejected, resp.StatusCode, e.Code, e.Message)
		}
		return Ack{}, fmt.Errorf("%w: %d", ErrRejected, resp.StatusCode)
	}
}
