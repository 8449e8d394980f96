package repository

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/contentplan-agent/internal/transport"
)

// RefreshEntitlements forces a resync of the user's plan/credit state after
// a quota-exhaustion signal, so the UI can show the upgrade path instead of
// stale credit counts.
func (r *Repository) RefreshEntitlements(ctx context.Context, userID, authToken string) error {
	_, err := r.exec.Do(ctx, transport.Request{
		Method: http.MethodPost,
		URL:    r.url("/entitlements/" + url.PathEscape(userID) + "/refresh"),
	}, r.retries, authToken)
	if err != nil {
		return fmt.Errorf("failed to refresh entitlements: %w", err)
	}
	return nil
}
