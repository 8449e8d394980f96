package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/contentplan-agent/internal/models"
	"github.com/contentplan-agent/internal/transport"
)

// GetPreferences reads the user's notification preferences. A user with no
// stored record gets the defaults.
func (r *Repository) GetPreferences(ctx context.Context, userID, authToken string) (models.Preferences, error) {
	defaults := models.Preferences{DueThresholdHours: models.DefaultDueThresholdHours}

	resp, err := r.exec.Do(ctx, transport.Request{
		Method: http.MethodGet,
		URL:    r.url("/preferences/" + url.PathEscape(userID)),
	}, r.retries, authToken)
	if err != nil {
		var httpErr *transport.HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
			return defaults, nil
		}
		return defaults, fmt.Errorf("failed to fetch preferences: %w", err)
	}

	var prefs models.Preferences
	if err := json.Unmarshal(resp.Body, &prefs); err != nil {
		return defaults, fmt.Errorf("malformed preferences response: %w", err)
	}
	if prefs.DueThresholdHours == 0 {
		prefs.DueThresholdHours = models.DefaultDueThresholdHours
	}
	return prefs, nil
}

// SavePreferences writes the user's notification preferences
func (r *Repository) SavePreferences(ctx context.Context, userID string, prefs models.Preferences, authToken string) error {
	if prefs.DueThresholdHours < models.MinDueThresholdHours || prefs.DueThresholdHours > models.MaxDueThresholdHours {
		return fmt.Errorf("due threshold must be between %d and %d hours", models.MinDueThresholdHours, models.MaxDueThresholdHours)
	}

	_, err := r.exec.Do(ctx, transport.Request{
		Method: http.MethodPut,
		URL:    r.url("/preferences/" + url.PathEscape(userID)),
		Body:   prefs,
	}, r.retries, authToken)
	if err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	return nil
}
