package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/desertthunder/smartwake/internal/shared"
)

// Client performs JSON requests against one external collaborator.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for baseURL. A nil http.Client gets a 10 second timeout.
func NewClient(baseURL string, client *http.Client) *Client {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: baseURL, httpClient: client}
}

// Response is a raw HTTP response with its body already read.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool { return r.StatusCode >= 200 && r.StatusCode < 300 }

// Err maps a non-2xx status onto the shared error taxonomy so fetch errors can be
// classified as retryable, throttled or fatal.
func (r *Response) Err() error {
	switch {
	case r.OK():
		return nil
	case r.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d", shared.ErrThrottled, r.StatusCode)
	case r.StatusCode == http.StatusRequestTimeout || r.StatusCode == http.StatusGatewayTimeout:
		return fmt.Errorf("%w: status %d", shared.ErrTimeout, r.StatusCode)
	case r.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", shared.ErrServiceUnavailable, r.StatusCode)
	case r.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: status %d", shared.ErrAssetNotFound, r.StatusCode)
	default:
		return fmt.Errorf("%w: status %d", shared.ErrAPIRequest, r.StatusCode)
	}
}

// Get performs a GET request to the specified path and returns the raw response.
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req)
}

// Post performs a POST request with the given JSON body and returns the raw response.
func (c *Client) Post(ctx context.Context, path string, data []byte) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) do(req *http.Request) (*Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &Response{StatusCode: resp.StatusCode, Headers: resp.Header, Body: body}, nil
}

// GetJSON performs a GET and decodes a 2xx body into out. A 204 leaves out untouched
// and reports false.
func (c *Client) GetJSON(ctx context.Context, path string, out any) (bool, error) {
	resp, err := c.Get(ctx, path)
	if err != nil {
		return false, err
	}
	if err := resp.Err(); err != nil {
		return false, err
	}
	if resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(resp.Body)) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return false, fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
	}
	return true, nil
}

// PostJSON encodes in as the request body and fails on a non-2xx status.
func (c *Client) PostJSON(ctx context.Context, path string, in any) (*Response, error) {
	data, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	resp, err := c.Post(ctx, path, data)
	if err != nil {
		return nil, err
	}
	return resp, resp.Err()
}
