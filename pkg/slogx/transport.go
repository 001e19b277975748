package slogx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/openlab-dev/roble-go/pkg/idx"
)

// Transport is an http.RoundTripper that stamps outgoing requests with an
// X-Request-Id and logs method, host, path, status and duration.
type Transport struct {
	// Base is the underlying round tripper. Defaults to http.DefaultTransport.
	Base http.RoundTripper

	// Logger receives one debug record per request and a warn record per
	// transport failure. Defaults to slog.Default.
	Logger *slog.Logger
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	logger := t.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// Generate a request ID unless the caller already set one. RoundTrip
	// must not modify the caller's request, so stamp a clone.
	reqID := req.Header.Get("X-Request-Id")
	if reqID == "" {
		reqID = idx.New().String()
		req = req.Clone(req.Context())
		req.Header.Set("X-Request-Id", reqID)
	}

	logger = logger.With(
		"req_id", reqID,
		"method", req.Method,
		"host", req.URL.Host,
		"path", req.URL.Path,
	)

	start := time.Now()
	resp, err := base.RoundTrip(req)
	duration := time.Since(start).Milliseconds()

	if err != nil {
		logger.Warn("http_request_failed", "duration_ms", duration, "err", err)
		return nil, err
	}

	logger.Debug("http_request",
		"status", resp.StatusCode,
		"duration_ms", duration,
	)
	return resp, nil
}
