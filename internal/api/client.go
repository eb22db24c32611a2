// Package api is the typed client for the election backend's REST
// endpoints. Reads go through the tag cache; writes invalidate tags.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/cache"
	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/logging"
	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/metrics"
)

const maxResponseSize = 20 << 20

// Error is returned for non-2xx responses and for envelopes reporting
// failure.
type Error struct {
	Status   int
	Message  string
	Endpoint string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %d %s", e.Endpoint, e.Status, e.Message)
}

// IsStatus reports whether err is an *Error with the given HTTP status.
func IsStatus(err error, status int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == status
}

type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

type Client struct {
	baseURL string
	http    *http.Client
	cache   *cache.Cache
	metrics *metrics.ClientMetrics
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func NewClient(baseURL string, c *cache.Cache, m *metrics.ClientMetrics, opts ...Option) *Client {
	cl := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		cache:   c,
		metrics: m,
	}
	for _, o := range opts {
		o(cl)
	}
	return cl
}

func (c *Client) Cache() *cache.Cache {
	return c.cache
}

// do performs one request and returns the raw body of a 2xx response.
func (c *Client) do(ctx context.Context, method, endpoint string, body io.Reader, contentType string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", endpoint, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	start := time.Now()
	outcome := "error"
	defer func() {
		c.metrics.RequestDuration.WithLabelValues(method+" "+endpointLabel(endpoint), outcome).Observe(time.Since(start).Seconds())
	}()

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := http.StatusText(resp.StatusCode)
		var env envelope
		if json.Unmarshal(raw, &env) == nil && env.Message != "" {
			msg = env.Message
		}
		logging.Log.Debugf("API: %s %s -> %d", method, endpoint, resp.StatusCode)
		return nil, &Error{Status: resp.StatusCode, Message: msg, Endpoint: endpoint}
	}

	outcome = "ok"
	return raw, nil
}

// unwrap returns the data of a {success, data, message} envelope. An
// envelope with success=false and no data is an error; one that carries
// data is returned as is so callers can read a negative verdict.
func unwrap(endpoint string, raw []byte) ([]byte, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid response from %s: %w", endpoint, err)
	}

	noData := len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null"))
	if env.Success != nil && !*env.Success && noData {
		msg := env.Message
		if msg == "" {
			msg = "request failed"
		}
		return nil, &Error{Status: http.StatusOK, Message: msg, Endpoint: endpoint}
	}
	if noData {
		return nil, fmt.Errorf("invalid response from %s: missing data", endpoint)
	}
	return env.Data, nil
}

func (c *Client) get(endpoint string) cache.Fetcher {
	return func(ctx context.Context) ([]byte, error) {
		raw, err := c.do(ctx, http.MethodGet, endpoint, nil, "")
		if err != nil {
			return nil, err
		}
		return unwrap(endpoint, raw)
	}
}

func (c *Client) postJSON(endpoint string, body any) cache.Fetcher {
	return func(ctx context.Context) ([]byte, error) {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body for %s: %w", endpoint, err)
		}
		raw, err := c.do(ctx, http.MethodPost, endpoint, bytes.NewReader(b), "application/json")
		if err != nil {
			return nil, err
		}
		return unwrap(endpoint, raw)
	}
}

// endpointLabel keeps path parameters out of metric labels.
func endpointLabel(endpoint string) string {
	if strings.HasPrefix(endpoint, "/nid/images/") {
		return "/nid/images/:filename"
	}
	return endpoint
}

func mutate[T any](ctx context.Context, c *Client, tags []cache.Tag, do cache.Fetcher) (T, error) {
	var v T
	data, err := c.cache.Mutate(ctx, tags, do)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("failed to decode mutation response: %w", err)
	}
	return v, nil
}
