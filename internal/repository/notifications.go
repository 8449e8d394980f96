package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/contentplan-agent/internal/models"
	"github.com/contentplan-agent/internal/transport"
)

// CreateNotifications submits one batch of due notifications. The batch is
// all-or-nothing from the caller's perspective: on error none of the ids may
// be considered notified.
func (r *Repository) CreateNotifications(ctx context.Context, batch []models.DueNotification, authToken string) error {
	if len(batch) == 0 {
		return nil
	}

	_, err := r.exec.Do(ctx, transport.Request{
		Method: http.MethodPost,
		URL:    r.url("/notifications/batch"),
		Body:   map[string]interface{}{"notifications": batch},
	}, r.retries, authToken)
	if err != nil {
		return fmt.Errorf("failed to create notification batch: %w", err)
	}
	return nil
}

// RecentNotifications lists the user's due notifications created after
// since. Used to seed the notifier's dedupe set so a restart does not
// re-notify items already flagged.
func (r *Repository) RecentNotifications(ctx context.Context, userID string, since time.Time, authToken string) ([]models.DueNotification, error) {
	q := url.Values{}
	q.Set("user_id", userID)
	q.Set("kind", string(models.NotificationKindItemDue))
	q.Set("since", since.UTC().Format(time.RFC3339))

	resp, err := r.exec.Do(ctx, transport.Request{
		Method: http.MethodGet,
		URL:    r.url("/notifications?" + q.Encode()),
	}, r.retries, authToken)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recent notifications: %w", err)
	}

	var notifications []models.DueNotification
	if err := json.Unmarshal(resp.Body, &notifications); err != nil {
		return nil, fmt.Errorf("malformed notifications response: %w", err)
	}
	return notifications, nil
}
