package transport

import (
	"context"
	"time"
)

type logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type loggingTransport struct {
	next   Transport
	logger logger
}

// WithLogging logs every exchange: debug for received responses, warn when no response was obtained
func WithLogging(next Transport, l logger) Transport {
	return &loggingTransport{next: next, logger: l}
}

func (t *loggingTransport) Do(ctx context.Context, req Request) (Response, error) {
	start := time.Now()

	resp, err := t.next.Do(ctx, req)
	if err != nil {
		t.logger.Warn(
			"HTTP request failed",
			"method", req.Method,
			"url", req.URL,
			"duration", time.Since(start),
			"error", err,
		)
		return resp, err
	}

	t.logger.Debug(
		"sent HTTP request",
		"method", req.Method,
		"url", req.URL,
		"duration", time.Since(start),
		"status", resp.StatusCode,
		"size", len(resp.Body),
	)
	return resp, nil
}
