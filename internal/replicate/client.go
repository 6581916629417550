package replicate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	defaultBaseURL      = "https://api.replicate.com/v1"
	defaultPollInterval = 2 * time.Second
)

// Prediction is the subset of Replicate's prediction object we read.
type Prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  any             `json:"error"`
	URLs   struct {
		Get string `json:"get"`
	} `json:"urls"`
}

func (p *Prediction) done() bool {
	switch p.Status {
	case "succeeded", "failed", "canceled":
		return true
	}
	return false
}

// Client runs models on Replicate over its HTTP API.
type Client struct {
	baseURL      string
	token        string
	httpClient   *http.Client
	pollInterval time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another API root (tests, proxies).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithPollInterval sets how often a pending prediction is polled.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) { c.pollInterval = d }
}

// NewClient creates a client. An empty token falls back to
// REPLICATE_API_TOKEN.
func NewClient(token string, opts ...Option) *Client {
	if token == "" {
		token = os.Getenv("REPLICATE_API_TOKEN")
	}
	c := &Client{
		baseURL:      defaultBaseURL,
		token:        token,
		httpClient:   &http.Client{Timeout: 120 * time.Second},
		pollInterval: defaultPollInterval,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Run starts a prediction for model ("owner/name" or "owner/name:version")
// and blocks until it finishes, returning the raw output.
func (c *Client) Run(ctx context.Context, model string, input map[string]any) (json.RawMessage, error) {
	if c.token == "" {
		return nil, fmt.Errorf("REPLICATE_API_TOKEN is not set")
	}

	endpoint, body := c.predictionRequest(model, input)
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal prediction: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "wait")

	pred, err := c.do(req)
	if err != nil {
		return nil, err
	}

	for !pred.done() {
		if pred.URLs.Get == "" {
			return nil, fmt.Errorf("prediction %s is %s with no polling URL", pred.ID, pred.Status)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pred.URLs.Get, nil)
		if err != nil {
			return nil, fmt.Errorf("create poll request: %w", err)
		}
		if pred, err = c.do(req); err != nil {
			return nil, err
		}
	}

	if pred.Status != "succeeded" {
		return nil, fmt.Errorf("prediction %s %s: %v", pred.ID, pred.Status, pred.Error)
	}
	return pred.Output, nil
}

func (c *Client) predictionRequest(model string, input map[string]any) (string, map[string]any) {
	if _, version, ok := strings.Cut(model, ":"); ok && version != "" {
		return c.baseURL + "/predictions", map[string]any{"version": version, "input": input}
	}
	return c.baseURL + "/models/" + model + "/predictions", map[string]any{"input": input}
}

func (c *Client) do(req *http.Request) (*Prediction, error) {
	req.Header.Set("Authorization", "Bearer "+c.token)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("Replicate API error (status %d): %s", res.StatusCode, string(data))
	}

	var pred Prediction
	if err := json.Unmarshal(data, &pred); err != nil {
		return nil, fmt.Errorf("decode prediction: %w", err)
	}
	return &pred, nil
}

// Download fetches a generated file, typically an output URL.
func (c *Client) Download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create download request: %w", err)
	}
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", url, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download %s: status %d", url, res.StatusCode)
	}
	return io.ReadAll(res.Body)
}
