package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	DefaultTimeout = 10 * time.Second

	// Responses above the limit are truncated
	maxBodySize = 32 << 20
)

// Request is a fully built HTTP exchange: absolute URL, final headers and encoded body
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response with fully read body
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Transport sends one request and returns the response.
// Error means no response was obtained (connection refused, timeout, etc.)
type Transport interface {
	Do(ctx context.Context, req Request) (Response, error)
}

// Func adapts a function to Transport
type Func func(ctx context.Context, req Request) (Response, error)

func (f Func) Do(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}

// HTTP is the net/http transport
type HTTP struct {
	Timeout time.Duration

	client *http.Client
}

var _ Transport = (*HTTP)(nil)

// NewHTTP creates transport where every call is bounded by timeout
// Zero timeout means DefaultTimeout
func NewHTTP(timeout time.Duration) *HTTP {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &HTTP{
		Timeout: timeout,
		client:  &http.Client{},
	}
}

func (t *HTTP) Do(ctx context.Context, r Request) (Response, error) {
	var resp Response

	ctx, cancel := context.WithTimeout(ctx, t.Timeout)
	defer cancel()

	var body io.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL, body)
	if err != nil {
		return resp, fmt.Errorf("failed to create request: %w", err)
	}
	for key, values := range r.Header {
		req.Header[key] = append([]string(nil), values...)
	}

	httpResp, err := t.client.Do(req)
	if err != nil {
		return resp, fmt.Errorf("failed to send request: %w", err)
	}
	defer httpResp.Body.Close() // nolint:errcheck

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodySize))
	if err != nil {
		return resp, fmt.Errorf("failed to read response: %w", err)
	}

	resp.StatusCode = httpResp.StatusCode
	resp.Header = httpResp.Header
	resp.Body = data
	return resp, nil
}
