package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contentplan-agent/pkg/logger"
	"github.com/contentplan-agent/pkg/ratelimit"
)

func newTestExecutor(opts ...Option) *Executor {
	limiter := ratelimit.NewMultiLimiter()
	limiter.AddLimiter("test", 1000, 1000)
	base := []Option{WithTimeout(2 * time.Second), WithBackoff(20 * time.Millisecond)}
	return NewExecutor(limiter, "test", logger.Nop(), append(base, opts...)...)
}

func TestDoMissingToken(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	exec := newTestExecutor()
	_, err := exec.Do(context.Background(), Request{Method: http.MethodGet, URL: srv.URL}, 3, "")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthMissing)
	assert.Zero(t, atomic.LoadInt32(&hits), "no request may be issued without a token")
}

func TestRetryAfter503(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	exec := newTestExecutor(WithBackoff(50 * time.Millisecond))
	start := time.Now()
	resp, err := exec.Do(context.Background(), Request{Method: http.MethodGet, URL: srv.URL}, 1, "token")

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond, "the retry must wait out the back-off")
}

func TestNoRetryWhenExhausted(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	exec := newTestExecutor(WithBackoff(time.Second))
	start := time.Now()
	_, err := exec.Do(context.Background(), Request{Method: http.MethodGet, URL: srv.URL}, 0, "token")

	require.Error(t, err)
	assert.True(t, IsTransient(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	assert.Less(t, time.Since(start), 500*time.Millisecond, "exhausted retries must propagate without delay")
}

func TestRateLimitedIsRetryable(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`done`))
	}))
	defer srv.Close()

	exec := newTestExecutor()
	resp, err := exec.Do(context.Background(), Request{Method: http.MethodGet, URL: srv.URL}, 2, "token")

	require.NoError(t, err)
	assert.Equal(t, []byte(`done`), resp.Body)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestOverloadMarkerInSuccessBody(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte(`{"status":"the model is overwhelmed, try later"}`))
	}))
	defer srv.Close()

	exec := newTestExecutor()
	_, err := exec.Do(context.Background(), Request{Method: http.MethodGet, URL: srv.URL}, 1, "token")

	require.Error(t, err)
	assert.True(t, IsTransient(err))
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestClientErrorPropagatesImmediately(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`no such field`))
	}))
	defer srv.Close()

	exec := newTestExecutor()
	_, err := exec.Do(context.Background(), Request{Method: http.MethodGet, URL: srv.URL}, 3, "token")

	require.Error(t, err)
	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusBadRequest, httpErr.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "4xx other than rate-limiting is never retried")
}

func TestTimeoutIsDistinctFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	exec := newTestExecutor(WithTimeout(30 * time.Millisecond))
	_, err := exec.Do(context.Background(), Request{Method: http.MethodGet, URL: srv.URL}, 0, "token")

	require.Error(t, err)
	assert.True(t, IsTimeout(err))
	assert.False(t, IsTransient(err))
}

func TestAuthHeaderAndBody(t *testing.T) {
	var gotAuth, gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	exec := newTestExecutor()
	_, err := exec.Do(context.Background(), Request{
		Method: http.MethodPost,
		URL:    srv.URL,
		Body:   map[string]string{"k": "v"},
	}, 0, "secret-token")

	require.NoError(t, err)
	assert.Equal(t, "Bearer secret-token", gotAuth)
	assert.Equal(t, "application/json", gotContentType)
}
