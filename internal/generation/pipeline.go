// Package generation drives the dual-path content-generation pipeline:
// either a user-configured external webhook or the built-in Claude backend,
// both normalized into the one internal item schema.
package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/contentplan-agent/internal/models"
	"github.com/contentplan-agent/internal/repository"
	"github.com/contentplan-agent/pkg/logger"
)

// idea is one generated record before normalization. Webhook backends may
// return loosely-typed platform and hashtag fields, so both stay raw until
// the shared normalization step.
type idea struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Hook        string          `json:"hook"`
	Caption     string          `json:"caption"`
	CTA         string          `json:"cta"`
	Hashtags    json.RawMessage `json:"hashtags"`
	Platforms   json.RawMessage `json:"platforms"`
}

// Strategy is one generation backend. Implementations share the pipeline's
// normalization; they only produce raw idea records.
type Strategy interface {
	Generate(ctx context.Context, req models.GenerationRequest, personaContext, authToken string) ([]idea, error)
}

// EntitlementRefresher forces a resync of the user's plan state after a
// quota failure. Satisfied by *repository.Repository.
type EntitlementRefresher interface {
	RefreshEntitlements(ctx context.Context, userID, authToken string) error
}

// Pipeline selects a backend by webhook presence, normalizes the response
// batch and appends it to the repository's scoped cache
type Pipeline struct {
	repo         *repository.Repository
	webhook      Strategy
	claude       Strategy
	entitlements EntitlementRefresher
	log          *logger.Logger
}

// NewPipeline wires the two strategies behind one entry point
func NewPipeline(repo *repository.Repository, webhook, claude Strategy, entitlements EntitlementRefresher, log *logger.Logger) *Pipeline {
	return &Pipeline{
		repo:         repo,
		webhook:      webhook,
		claude:       claude,
		entitlements: entitlements,
		log:          log.WithComponent("generation"),
	}
}

// Generate runs one generation batch for the scope. Any parse failure,
// format mismatch or backend error aborts the whole batch; the caller must
// not assume any items were created. On success the batch is appended (not
// replacing) to the scoped cache entry and returned.
func (p *Pipeline) Generate(ctx context.Context, req models.GenerationRequest, scope models.Scope, authToken string) ([]models.Item, error) {
	personaContext := PersonaContextUnavailable
	if req.PersonaID != "" {
		persona, err := p.repo.GetPersona(ctx, req.PersonaID, scope, authToken)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve persona: %w", err)
		}
		personaContext = PersonaContext(persona)
	}

	strategy := p.claude
	path := "claude"
	if strings.TrimSpace(req.WebhookURL) != "" {
		strategy = p.webhook
		path = "webhook"
	}

	p.log.Info().
		Str("path", path).
		Str("topic", req.Topic).
		Str("tone", string(req.Tone)).
		Msg("Starting generation run")

	ideas, err := strategy.Generate(ctx, req, personaContext, authToken)
	if err != nil {
		if errors.Is(err, ErrQuotaExhausted) && p.entitlements != nil {
			if refreshErr := p.entitlements.RefreshEntitlements(ctx, scope.UserID, authToken); refreshErr != nil {
				p.log.Warn().Err(refreshErr).Msg("Entitlement refresh after quota failure did not complete")
			}
		}
		return nil, err
	}

	items := normalizeIdeas(ideas, req)
	p.repo.AppendItems(scope, items)

	p.log.Info().Int("count", len(items)).Str("path", path).Msg("Generation batch complete")
	return items, nil
}

// normalizeIdeas converts raw idea records into schedulable items: platforms
// coerced to a non-empty array, unscheduled, status forced to Pending, the
// requesting persona linked. Records without an id (the Claude path) get a
// fresh local one.
func normalizeIdeas(ideas []idea, req models.GenerationRequest) []models.Item {
	items := make([]models.Item, 0, len(ideas))
	for _, raw := range ideas {
		id := raw.ID
		if id == "" {
			id = uuid.NewString()
		}
		items = append(items, models.Item{
			ID:          id,
			Title:       raw.Title,
			Description: raw.Description,
			Hook:        raw.Hook,
			Caption:     raw.Caption,
			CTA:         raw.CTA,
			Hashtags:    normalizeHashtags(raw.Hashtags),
			Platforms:   repository.NormalizeStringList(raw.Platforms, []string{repository.DefaultPlatform}),
			Date:        nil,
			Time:        nil,
			Status:      models.ItemStatusPending,
			PersonaID:   req.PersonaID,
		})
	}
	return items
}

// normalizeHashtags flattens a hashtag field that may be an array or a bare
// string into one space-separated string
func normalizeHashtags(raw json.RawMessage) string {
	tags := repository.NormalizeStringList(raw, []string{})
	return strings.Join(tags, " ")
}
