package generation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contentplan-agent/internal/models"
	"github.com/contentplan-agent/internal/transport"
	"github.com/contentplan-agent/pkg/logger"
	"github.com/contentplan-agent/pkg/ratelimit"
)

func newTestExecutor() *transport.Executor {
	limiter := ratelimit.NewMultiLimiter()
	limiter.AddLimiter("test", 1000, 1000)
	return transport.NewExecutor(limiter, "test", logger.Nop(),
		transport.WithTimeout(2*time.Second), transport.WithBackoff(time.Millisecond))
}

func TestDecodeIdeasBareArray(t *testing.T) {
	ideas, err := decodeIdeas([]byte(`[{"title":"First"},{"title":"Second"}]`))

	require.NoError(t, err)
	require.Len(t, ideas, 2)
	assert.Equal(t, "First", ideas[0].Title)
}

func TestDecodeIdeasEnvelope(t *testing.T) {
	ideas, err := decodeIdeas([]byte(`{"ideas":[{"title":"Wrapped"}]}`))

	require.NoError(t, err)
	require.Len(t, ideas, 1)
	assert.Equal(t, "Wrapped", ideas[0].Title)
}

func TestDecodeIdeasEmptyEnvelope(t *testing.T) {
	ideas, err := decodeIdeas([]byte(`{"ideas":[]}`))

	require.NoError(t, err)
	assert.Empty(t, ideas)
}

func TestDecodeIdeasMissingIdeasField(t *testing.T) {
	_, err := decodeIdeas([]byte(`{"results":[{"title":"Misplaced"}]}`))

	require.Error(t, err)
	assert.True(t, IsFormatError(err))
}

func TestDecodeIdeasNotJSON(t *testing.T) {
	_, err := decodeIdeas([]byte(`<html>Bad gateway</html>`))

	require.Error(t, err)
	assert.True(t, IsFormatError(err))
}

func TestDecodeIdeasErrorFlag(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"boolean flag with message", `{"error":true,"message":"model offline"}`, "model offline"},
		{"string flag", `{"error":"no capacity"}`, "no capacity"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := decodeIdeas([]byte(tc.body))

			require.Error(t, err)
			assert.False(t, IsFormatError(err), "an explicit backend error is not a format mismatch")
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestDecodeIdeasFalsyErrorFlag(t *testing.T) {
	for _, body := range []string{`{"error":false,"ideas":[]}`, `{"error":null,"ideas":[]}`, `{"error":"","ideas":[]}`} {
		ideas, err := decodeIdeas([]byte(body))
		require.NoError(t, err, body)
		assert.Empty(t, ideas)
	}
}

func TestWebhookGeneratePayload(t *testing.T) {
	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`[{"id":"w-1","title":"From webhook"}]`))
	}))
	defer srv.Close()

	strat := NewWebhookStrategy(newTestExecutor(), logger.Nop())
	ideas, err := strat.Generate(context.Background(), models.GenerationRequest{
		Topic:      "cold outreach",
		Audience:   "founders",
		Tone:       models.ToneWitty,
		Language:   "en",
		BrandVoice: "direct",
		WebhookURL: srv.URL,
	}, "Audience persona: Ada", "token")

	require.NoError(t, err)
	require.Len(t, ideas, 1)
	assert.Equal(t, "w-1", ideas[0].ID)
	assert.Equal(t, "cold outreach", got.Topic)
	assert.Equal(t, "witty", got.Tone)
	assert.Equal(t, "Audience persona: Ada", got.PersonaContext)
	assert.Equal(t, "direct", got.BrandVoice)
}

func TestWebhookGenerateQuotaStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
	}))
	defer srv.Close()

	strat := NewWebhookStrategy(newTestExecutor(), logger.Nop())
	_, err := strat.Generate(context.Background(), models.GenerationRequest{WebhookURL: srv.URL}, PersonaContextUnavailable, "token")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrQuotaExhausted)
}

func TestWebhookGenerateQuotaMarker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message":"monthly quota exceeded"}`))
	}))
	defer srv.Close()

	strat := NewWebhookStrategy(newTestExecutor(), logger.Nop())
	_, err := strat.Generate(context.Background(), models.GenerationRequest{WebhookURL: srv.URL}, PersonaContextUnavailable, "token")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrQuotaExhausted)
}

func TestWebhookGenerateNoRetries(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	strat := NewWebhookStrategy(newTestExecutor(), logger.Nop())
	_, err := strat.Generate(context.Background(), models.GenerationRequest{WebhookURL: srv.URL}, PersonaContextUnavailable, "token")

	require.Error(t, err)
	assert.Equal(t, 1, hits, "generation calls must not retry")
}
