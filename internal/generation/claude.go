package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/contentplan-agent/internal/config"
	"github.com/contentplan-agent/internal/models"
	"github.com/contentplan-agent/pkg/logger"
	"github.com/contentplan-agent/pkg/ratelimit"
)

// ClaudeStrategy is the built-in generation backend, used whenever no
// webhook address is configured
type ClaudeStrategy struct {
	client      anthropic.Client
	model       string
	maxTokens   int
	batchSize   int
	rateLimiter *ratelimit.MultiLimiter
	log         *logger.Logger
}

// NewClaudeStrategy creates the Claude generation path
func NewClaudeStrategy(cfg config.AnthropicConfig, limiter *ratelimit.MultiLimiter, log *logger.Logger) *ClaudeStrategy {
	client := anthropic.NewClient(
		option.WithAPIKey(cfg.APIKey),
	)

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &ClaudeStrategy{
		client:      client,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		batchSize:   batchSize,
		rateLimiter: limiter,
		log:         log.WithComponent("generation.claude"),
	}
}

// Generate builds a structured prompt and requests a fixed-shape JSON array
// of ideas. The model supplies no ids; the pipeline mints local ones.
func (c *ClaudeStrategy) Generate(ctx context.Context, req models.GenerationRequest, personaContext, authToken string) ([]idea, error) {
	language := req.Language
	if language == "" {
		language = "en"
	}

	userMessage := fmt.Sprintf(IdeaGenerationUserPrompt,
		c.batchSize, req.Topic, req.Audience, req.Tone, language, req.BrandVoice, personaContext)

	raw, err := c.complete(ctx, IdeaGenerationSystemPrompt, userMessage)
	if err != nil {
		return nil, err
	}

	var ideas []idea
	if err := json.Unmarshal([]byte(stripFences(raw)), &ideas); err != nil {
		return nil, &FormatError{Reason: fmt.Sprintf("model response is not an idea array: %v", err)}
	}

	return ideas, nil
}

// complete sends one message to Claude and returns the concatenated text
func (c *ClaudeStrategy) complete(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	if err := c.rateLimiter.Wait(ctx, ratelimit.LimiterAnthropic); err != nil {
		return "", fmt.Errorf("rate limit error: %w", err)
	}

	// JSON-only instruction keeps the response machine-parseable
	enhancedSystem := systemPrompt + "\n\nIMPORTANT: Respond ONLY with valid JSON. No markdown, no explanation, just the JSON array."

	c.log.Debug().
		Str("model", c.model).
		Int("max_tokens", c.maxTokens).
		Msg("Sending request to Claude")

	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(c.maxTokens),
		System: []anthropic.TextBlockParam{
			{
				Type: "text",
				Text: enhancedSystem,
			},
		},
		Messages: []anthropic.MessageParam{
			{
				Role: anthropic.MessageParamRoleUser,
				Content: []anthropic.ContentBlockParamUnion{
					anthropic.NewTextBlock(userMessage),
				},
			},
		},
	})

	if err != nil {
		c.log.Error().Err(err).Msg("Claude API error")
		if strings.Contains(strings.ToLower(err.Error()), "credit") || strings.Contains(strings.ToLower(err.Error()), "quota") {
			return "", fmt.Errorf("claude API rejected the run: %w", ErrQuotaExhausted)
		}
		return "", fmt.Errorf("claude API error: %w", err)
	}

	var response string
	for _, block := range message.Content {
		textBlock := block.AsText()
		if textBlock.Text != "" {
			response += textBlock.Text
		}
	}

	c.log.Debug().
		Int("input_tokens", int(message.Usage.InputTokens)).
		Int("output_tokens", int(message.Usage.OutputTokens)).
		Msg("Received Claude response")

	return response, nil
}

// stripFences removes a markdown code fence if the model wrapped its JSON in
// one despite instructions
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
