package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/contentplan-agent/internal/models"
	"github.com/contentplan-agent/internal/transport"
	"github.com/contentplan-agent/pkg/logger"
)

// WebhookStrategy posts the generation request to a user-configured
// endpoint. Generation is user-triggered, so the call gets zero retries:
// a failure surfaces to the user instead of silently retrying.
type WebhookStrategy struct {
	exec *transport.Executor
	log  *logger.Logger
}

// NewWebhookStrategy creates the external-webhook generation path
func NewWebhookStrategy(exec *transport.Executor, log *logger.Logger) *WebhookStrategy {
	return &WebhookStrategy{
		exec: exec,
		log:  log.WithComponent("generation.webhook"),
	}
}

// webhookPayload is the JSON body POSTed to the configured endpoint
type webhookPayload struct {
	Topic          string `json:"topic"`
	Audience       string `json:"audience"`
	Tone           string `json:"tone"`
	Language       string `json:"language,omitempty"`
	PersonaContext string `json:"persona_context"`
	BrandVoice     string `json:"brand_voice,omitempty"`
}

// webhookEnvelope is the object form of an accepted response
type webhookEnvelope struct {
	Ideas   []idea          `json:"ideas"`
	Error   json.RawMessage `json:"error"`
	Message string          `json:"message"`
}

// Generate posts the request and decodes either a bare array or an
// {ideas:[...]} object. Anything else is a format error; an explicit error
// flag or a 500 is a hard failure using the backend's message.
func (w *WebhookStrategy) Generate(ctx context.Context, req models.GenerationRequest, personaContext, authToken string) ([]idea, error) {
	resp, err := w.exec.Do(ctx, transport.Request{
		Method: http.MethodPost,
		URL:    req.WebhookURL,
		Body: webhookPayload{
			Topic:          req.Topic,
			Audience:       req.Audience,
			Tone:           string(req.Tone),
			Language:       req.Language,
			PersonaContext: personaContext,
			BrandVoice:     req.BrandVoice,
		},
	}, 0, authToken)
	if err != nil {
		if quotaSignal(err) {
			return nil, fmt.Errorf("webhook generation rejected: %w", ErrQuotaExhausted)
		}
		return nil, fmt.Errorf("webhook generation failed: %w", err)
	}

	return decodeIdeas(resp.Body)
}

// decodeIdeas accepts a bare JSON array or an object with an ideas field
func decodeIdeas(body []byte) ([]idea, error) {
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "[") {
		var ideas []idea
		if err := json.Unmarshal(body, &ideas); err != nil {
			return nil, &FormatError{Reason: fmt.Sprintf("invalid idea array: %v", err)}
		}
		return ideas, nil
	}

	var envelope webhookEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &FormatError{Reason: fmt.Sprintf("response is neither array nor object: %v", err)}
	}

	if flagged(envelope.Error) {
		msg := envelope.Message
		if msg == "" {
			msg = strings.Trim(string(envelope.Error), `"`)
		}
		return nil, fmt.Errorf("generation backend reported an error: %s", msg)
	}

	if envelope.Ideas == nil {
		return nil, &FormatError{Reason: "response object carries no ideas field"}
	}
	return envelope.Ideas, nil
}

// flagged reports whether the error field is present and truthy
func flagged(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	switch s {
	case "", "null", "false", `""`:
		return false
	}
	return true
}

// quotaSignal detects credit/quota exhaustion on a failed call: the payment
// status code or a known message substring
func quotaSignal(err error) bool {
	var httpErr *transport.HTTPError
	if !errors.As(err, &httpErr) {
		return false
	}
	if httpErr.StatusCode == http.StatusPaymentRequired {
		return true
	}
	body := strings.ToLower(httpErr.Body)
	for _, marker := range quotaMarkers {
		if strings.Contains(body, marker) {
			return true
		}
	}
	return false
}
