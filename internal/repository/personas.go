package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/contentplan-agent/internal/cache"
	"github.com/contentplan-agent/internal/models"
	"github.com/contentplan-agent/internal/transport"
)

// ListPersonas returns the scoped persona collection, cache-first, with the
// same soft-failure contract as ListItems. List fields always come back as
// non-nil sequences.
func (r *Repository) ListPersonas(ctx context.Context, scope models.Scope, authToken string) ([]models.Persona, error) {
	key := cache.Key(scope, cache.KindPersonas)
	if personas, ok := r.readPersonas(key); ok {
		for i := range personas {
			personas[i].EnsureLists()
		}
		return personas, nil
	}

	resp, err := r.exec.Do(ctx, transport.Request{
		Method: http.MethodGet,
		URL:    r.url("/personas?" + scopeQuery(scope)),
	}, r.retries, authToken)
	if err != nil {
		if errors.Is(err, transport.ErrAuthMissing) {
			return nil, err
		}
		r.log.WithScope(scope.Key()).Warn().Err(err).Msg("Persona fetch failed, returning empty list")
		return []models.Persona{}, nil
	}

	var raw []remotePersona
	if err := json.Unmarshal(resp.Body, &raw); err != nil {
		r.log.WithScope(scope.Key()).Warn().Err(err).Msg("Persona response malformed, returning empty list")
		return []models.Persona{}, nil
	}

	personas := make([]models.Persona, 0, len(raw))
	for _, rec := range raw {
		personas = append(personas, normalizePersona(rec))
	}

	r.writePersonas(key, personas)
	return personas, nil
}

// GetPersona resolves one persona by id from the scoped collection
func (r *Repository) GetPersona(ctx context.Context, id string, scope models.Scope, authToken string) (*models.Persona, error) {
	personas, err := r.ListPersonas(ctx, scope, authToken)
	if err != nil {
		return nil, err
	}
	for i := range personas {
		if personas[i].ID == id {
			return &personas[i], nil
		}
	}
	return nil, fmt.Errorf("persona %s not found", id)
}

// CreatePersona mirrors CreateItem: optimistic cache append with duplicate-id
// tolerance, rollback and re-throw on remote failure
func (r *Repository) CreatePersona(ctx context.Context, persona models.Persona, scope models.Scope, authToken string) error {
	persona.EnsureLists()

	key := cache.Key(scope, cache.KindPersonas)
	if personas, ok := r.readPersonas(key); ok {
		exists := false
		for _, existing := range personas {
			if existing.ID == persona.ID {
				exists = true
				break
			}
		}
		if !exists {
			r.writePersonas(key, append(personas, persona))
		}
	}

	_, err := r.exec.Do(ctx, transport.Request{
		Method: http.MethodPost,
		URL:    r.url("/personas"),
		Body:   createPersonaBody(persona, scope),
	}, r.retries, authToken)
	if err != nil {
		var httpErr *transport.HTTPError
		if errors.As(err, &httpErr) && strings.Contains(httpErr.Body, unusedNodeWarning) {
			return nil
		}
		r.removePersonaFromCache(key, persona.ID)
		return fmt.Errorf("failed to create persona: %w", err)
	}

	return nil
}

// UpdatePersona applies the partial change optimistically with snapshot
// rollback, like UpdateItem
func (r *Repository) UpdatePersona(ctx context.Context, id string, patch models.PersonaPatch, scope models.Scope, authToken string) error {
	key := cache.Key(scope, cache.KindPersonas)
	snap := TakeSnapshot(r.store, key)

	if personas, ok := r.readPersonas(key); ok {
		for i := range personas {
			if personas[i].ID == id {
				personas[i] = patch.Apply(personas[i])
				break
			}
		}
		r.writePersonas(key, personas)
	}

	_, err := r.exec.Do(ctx, transport.Request{
		Method: http.MethodPatch,
		URL:    r.url("/personas/" + url.PathEscape(id)),
		Body:   updatePersonaBody(patch),
	}, r.retries, authToken)
	if err != nil {
		snap.Restore()
		return fmt.Errorf("failed to update persona %s: %w", id, err)
	}

	return nil
}

// DeletePersona removes the persona locally first; the remote delete is
// fire-and-forget like DeleteItem
func (r *Repository) DeletePersona(ctx context.Context, id string, scope models.Scope, authToken string) error {
	key := cache.Key(scope, cache.KindPersonas)
	r.removePersonaFromCache(key, id)

	_, err := r.exec.Do(ctx, transport.Request{
		Method: http.MethodDelete,
		URL:    r.url("/personas/" + url.PathEscape(id)),
	}, r.retries, authToken)
	if err != nil {
		r.log.Warn().Err(err).Str("persona_id", id).Msg("Remote persona delete failed, local removal kept")
	}
	return nil
}

func (r *Repository) removePersonaFromCache(key, id string) {
	personas, ok := r.readPersonas(key)
	if !ok {
		return
	}
	kept := personas[:0]
	for _, persona := range personas {
		if persona.ID != id {
			kept = append(kept, persona)
		}
	}
	r.writePersonas(key, kept)
}

func createPersonaBody(persona models.Persona, scope models.Scope) map[string]interface{} {
	body := map[string]interface{}{
		"id":        persona.ID,
		"name":      persona.Name,
		"pains":     persona.Pains,
		"goals":     persona.Goals,
		"questions": persona.Questions,
	}
	if persona.Demographics != "" {
		body["demographics"] = persona.Demographics
	}
	if persona.Occupation != "" {
		body["occupation"] = persona.Occupation
	}
	if persona.AgeRange != "" {
		body["age_range"] = persona.AgeRange
	}
	if persona.PainSummary != "" {
		body["pain_summary"] = persona.PainSummary
	}
	if persona.GoalSummary != "" {
		body["goal_summary"] = persona.GoalSummary
	}
	if scope.IsTeam() {
		body["team_id"] = scope.TeamID
	} else {
		body["user_id"] = scope.UserID
	}
	return body
}

func updatePersonaBody(patch models.PersonaPatch) map[string]interface{} {
	body := map[string]interface{}{}
	if patch.Name != nil {
		body["name"] = *patch.Name
	}
	if patch.Demographics != nil {
		body["demographics"] = *patch.Demographics
	}
	if patch.Occupation != nil {
		body["occupation"] = *patch.Occupation
	}
	if patch.AgeRange != nil {
		body["age_range"] = *patch.AgeRange
	}
	if patch.PainSummary != nil {
		body["pain_summary"] = *patch.PainSummary
	}
	if patch.GoalSummary != nil {
		body["goal_summary"] = *patch.GoalSummary
	}
	if patch.Pains != nil {
		body["pains"] = patch.Pains
	}
	if patch.Goals != nil {
		body["goals"] = patch.Goals
	}
	if patch.Questions != nil {
		body["questions"] = patch.Questions
	}
	return body
}
