// Package notifier implements the periodic "item due soon" scanner with
// session-level de-duplication, seeded from recently-created notification
// records so a restart does not re-notify items already flagged.
package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/contentplan-agent/internal/models"
	"github.com/contentplan-agent/pkg/logger"
)

const (
	// DefaultInterval is the scan period
	DefaultInterval = 60 * time.Second
	// DedupeLookback bounds the history window read to seed the dedupe set
	DedupeLookback = 24 * time.Hour
	// StaleBound excludes items whose due instant is too far in the past
	StaleBound = time.Hour
)

// Repo is the slice of the repository the notifier needs. Satisfied by
// *repository.Repository.
type Repo interface {
	GetPreferences(ctx context.Context, userID, authToken string) (models.Preferences, error)
	RecentNotifications(ctx context.Context, userID string, since time.Time, authToken string) ([]models.DueNotification, error)
	CreateNotifications(ctx context.Context, batch []models.DueNotification, authToken string) error
}

// Notifier scans the live in-memory item collection on a fixed interval
type Notifier struct {
	repo     Repo
	source   func() []models.Item
	userID   string
	dedupe   map[string]struct{}
	interval time.Duration
	now      func() time.Time
	onNotify func(models.Item)
	log      *logger.Logger
}

// Option customizes a Notifier
type Option func(*Notifier)

// WithInterval overrides the scan period
func WithInterval(d time.Duration) Option {
	return func(n *Notifier) { n.interval = d }
}

// WithClock injects a virtual clock so tests can control time
func WithClock(now func() time.Time) Option {
	return func(n *Notifier) { n.now = now }
}

// WithNotifyFunc sets the per-item transient message sink
func WithNotifyFunc(fn func(models.Item)) Option {
	return func(n *Notifier) { n.onNotify = fn }
}

// New creates a notifier reading items from source (the scheduler's live
// board) for the given user
func New(repo Repo, source func() []models.Item, userID string, log *logger.Logger, opts ...Option) *Notifier {
	n := &Notifier{
		repo:     repo,
		source:   source,
		userID:   userID,
		dedupe:   make(map[string]struct{}),
		interval: DefaultInterval,
		now:      time.Now,
		log:      log.WithComponent("notifier"),
	}
	n.onNotify = func(item models.Item) {
		n.log.WithItemID(item.ID).Info().Str("title", item.Title).Msg("Item due soon")
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Run activates the scanner: it checks the user's preference, seeds the
// dedupe set, scans once immediately and then on every interval until the
// context ends. Returns nil when the preference is disabled.
func (n *Notifier) Run(ctx context.Context, authToken string) error {
	prefs, err := n.repo.GetPreferences(ctx, n.userID, authToken)
	if err != nil {
		return fmt.Errorf("failed to read notification preferences: %w", err)
	}
	if !prefs.NotifyOnItemDue {
		n.log.Info().Msg("Item-due notifications disabled, notifier idle")
		return nil
	}

	n.Seed(ctx, authToken)

	threshold := prefs.Threshold()
	if err := n.Scan(ctx, threshold, authToken); err != nil {
		n.log.Warn().Err(err).Msg("Initial due-soon scan failed, will retry on next tick")
	}

	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := n.Scan(ctx, threshold, authToken); err != nil {
				n.log.Warn().Err(err).Msg("Due-soon scan failed, will retry on next tick")
			}
		}
	}
}

// Seed loads ids already notified within the lookback window into the
// dedupe set. A seed failure is logged and tolerated: delivery is
// at-least-once with best-effort dedupe.
func (n *Notifier) Seed(ctx context.Context, authToken string) {
	since := n.now().Add(-DedupeLookback)
	recent, err := n.repo.RecentNotifications(ctx, n.userID, since, authToken)
	if err != nil {
		n.log.Warn().Err(err).Msg("Could not seed notification dedupe set")
		return
	}
	for _, rec := range recent {
		n.dedupe[rec.ItemID] = struct{}{}
	}
	n.log.Debug().Int("seeded", len(recent)).Msg("Notification dedupe set seeded")
}

// Scan runs one due-soon pass. An item qualifies when it is scheduled, not
// completed or posted, not yet notified this session, and its due instant
// falls within [now-1h, now+threshold]. Qualifying items go out as one
// batch; on batch failure the dedupe set is untouched so the next tick
// retries the same items.
func (n *Notifier) Scan(ctx context.Context, threshold time.Duration, authToken string) error {
	now := n.now()
	lower := now.Add(-StaleBound)
	upper := now.Add(threshold)

	var due []models.Item
	for _, item := range n.source() {
		if item.Date == nil || item.Done() {
			continue
		}
		if _, seen := n.dedupe[item.ID]; seen {
			continue
		}
		dueAt, ok := item.DueAt()
		if !ok {
			continue
		}
		if dueAt.Before(lower) || dueAt.After(upper) {
			continue
		}
		due = append(due, item)
	}

	if len(due) == 0 {
		return nil
	}

	batch := make([]models.DueNotification, 0, len(due))
	for _, item := range due {
		batch = append(batch, models.DueNotification{
			Kind:    models.NotificationKindItemDue,
			ItemID:  item.ID,
			UserID:  n.userID,
			Message: fmt.Sprintf("%q is due %s at %s", item.Title, *item.Date, item.TimeOrDefault()),
		})
	}

	if err := n.repo.CreateNotifications(ctx, batch, authToken); err != nil {
		return fmt.Errorf("due-soon batch failed: %w", err)
	}

	for _, item := range due {
		n.dedupe[item.ID] = struct{}{}
		n.onNotify(item)
	}

	n.log.Info().Int("notified", len(due)).Msg("Due-soon notifications sent")
	return nil
}
