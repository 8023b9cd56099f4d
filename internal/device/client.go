// Package device предоставляет клиент терминала сканирования отпечатков пальцев.
package device

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// ErrNoCapture возвращается, если терминал не зафиксировал прикладывание пальца.
var ErrNoCapture = errors.New("no fingerprint captured")

// Client инкапсулирует HTTP-взаимодействие с терминалом сканирования.
type Client struct {
	baseURL    string
	httpClient *retryablehttp.Client
}

// CaptureResult описывает ответ терминала на запрос сканирования.
type CaptureResult struct {
	Template []byte `json:"template"`
	Quality  int    `json:"quality"`
}

// NewClient создаёт HTTP-клиент терминала по указанному адресу.
func NewClient(baseURL string) *Client {
	c := retryablehttp.NewClient()
	c.RetryMax = 3
	c.RetryWaitMin = 500 * time.Millisecond
	c.RetryWaitMax = 2 * time.Second
	c.HTTPClient.Timeout = 5 * time.Second
	c.Logger = nil

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: c,
	}
}

// Capture запрашивает у терминала сканирование отпечатка.
func (c *Client) Capture(ctx context.Context) (*CaptureResult, error) {
	if c == nil || c.baseURL == "" {
		return nil, fmt.Errorf("device client not configured")
	}

	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	url := fmt.Sprintf("%s/api/capture", base)

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, ErrNoCapture
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result CaptureResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(result.Template) == 0 {
		return nil, ErrNoCapture
	}

	return &result, nil
}
