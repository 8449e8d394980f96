// Package transport provides the resilient request executor every
// remote-facing operation goes through: auth requirement, hard timeout,
// bounded retry with fixed back-off on transient-failure signals.
package transport

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

	"github.com/contentplan-agent/pkg/logger"
	"github.com/contentplan-agent/pkg/ratelimit"
)

const (
	// DefaultTimeout is the hard per-request deadline
	DefaultTimeout = 60 * time.Second
	// DefaultBackoff is the fixed wait between retry attempts
	DefaultBackoff = 2 * time.Second
	// DefaultRetries is the number of retries granted to background traffic
	DefaultRetries = 1
)

// Markers in a successful-looking body that still mean the backend is
// overloaded and the call should be retried
var overloadMarkers = []string{"overwhelmed", "busy"}

// Request describes one outbound call
type Request struct {
	Method  string
	URL     string
	Body    interface{}
	Headers map[string]string
}

// Response is the successful result of an executed request
type Response struct {
	StatusCode int
	Body       []byte
}

// Executor performs authenticated HTTP calls with timeout and retry
type Executor struct {
	httpClient  *http.Client
	timeout     time.Duration
	backoff     time.Duration
	limiter     *ratelimit.MultiLimiter
	limiterName string
	log         *logger.Logger
}

// Option customizes an Executor
type Option func(*Executor)

// WithTimeout overrides the hard request deadline
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) { e.timeout = d }
}

// WithBackoff overrides the fixed retry back-off interval
func WithBackoff(d time.Duration) Option {
	return func(e *Executor) { e.backoff = d }
}

// NewExecutor creates an executor that waits on the named rate limiter
// before every attempt
func NewExecutor(limiter *ratelimit.MultiLimiter, limiterName string, log *logger.Logger, opts ...Option) *Executor {
	e := &Executor{
		httpClient:  &http.Client{},
		timeout:     DefaultTimeout,
		backoff:     DefaultBackoff,
		limiter:     limiter,
		limiterName: limiterName,
		log:         log.WithComponent("transport"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Do executes the request. A blank authToken fails immediately with
// ErrAuthMissing. Transient failures (429, 503, overload body markers) are
// retried up to retriesRemaining times with a fixed back-off; every other
// failure propagates at once. Success is any 2xx/3xx response without an
// overload marker.
func (e *Executor) Do(ctx context.Context, req Request, retriesRemaining int, authToken string) (*Response, error) {
	if authToken == "" {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL, ErrAuthMissing)
	}

	resp, err := e.attempt(ctx, req, authToken)
	if err != nil {
		return nil, err
	}

	if retryable(resp) {
		if retriesRemaining > 0 {
			e.log.Warn().
				Int("status", resp.StatusCode).
				Int("retries_left", retriesRemaining).
				Str("url", req.URL).
				Msg("Transient failure, backing off before retry")
			select {
			case <-time.After(e.backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			return e.Do(ctx, req, retriesRemaining-1, authToken)
		}
		return nil, &TransientError{StatusCode: resp.StatusCode, Body: string(resp.Body)}
	}

	if resp.StatusCode >= 400 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(resp.Body)}
	}

	return resp, nil
}

// attempt performs a single HTTP round trip under the hard timeout
func (e *Executor) attempt(ctx context.Context, req Request, authToken string) (*Response, error) {
	if err := e.limiter.Wait(ctx, e.limiterName); err != nil {
		return nil, fmt.Errorf("rate limit error: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var reqBody io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+authToken)
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	e.log.Debug().
		Str("method", req.Method).
		Str("url", req.URL).
		Msg("Executing remote request")

	httpResp, err := e.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &TimeoutError{URL: req.URL}
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	e.log.Debug().
		Int("status", httpResp.StatusCode).
		Int("body_length", len(body)).
		Msg("Remote response")

	return &Response{StatusCode: httpResp.StatusCode, Body: body}, nil
}

// retryable classifies a response as transient: explicit rate-limit or
// unavailable statuses, or a success body carrying an overload marker
func retryable(resp *Response) bool {
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable {
		return true
	}
	if resp.StatusCode < 400 {
		body := strings.ToLower(string(resp.Body))
		for _, marker := range overloadMarkers {
			if strings.Contains(body, marker) {
				return true
			}
		}
	}
	return false
}
