package scheduler

import (
	"context"
	"sync"

	"github.com/contentplan-agent/internal/models"
	"github.com/contentplan-agent/pkg/logger"
)

// ItemUpdater persists a drop transition. Satisfied by
// *repository.Repository.
type ItemUpdater interface {
	UpdateItem(ctx context.Context, id string, patch models.ItemPatch, scope models.Scope, authToken string) error
}

// Scheduler hosts the live board for one session and routes every
// state-changing drop through the repository. The local transition is
// authoritative: a persistence failure surfaces to the caller but the board
// keeps the applied state, and the next full item list reconciles it.
type Scheduler struct {
	mu      sync.Mutex
	board   Board
	updater ItemUpdater
	scope   models.Scope
	log     *logger.Logger
}

// New creates a scheduler with an empty board and nothing lifted
func New(updater ItemUpdater, scope models.Scope, log *logger.Logger) *Scheduler {
	return &Scheduler{
		updater: updater,
		scope:   scope,
		log:     log.WithComponent("scheduler"),
	}
}

// Load replaces the board's item collection, keeping the lifted id
func (s *Scheduler) Load(items []models.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.board.Items = items
}

// Items returns the current in-memory collection. The notifier polls this
// at tick time.
func (s *Scheduler) Items() []models.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]models.Item, len(s.board.Items))
	copy(items, s.board.Items)
	return items
}

// Lift marks an item as lifted
func (s *Scheduler) Lift(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.board = s.board.Lift(id)
}

// Drop applies the reducer transition for targetID and, when state changed,
// immediately triggers the repository update. The returned error is the
// persistence failure, if any; the in-memory transition is never reverted
// here.
func (s *Scheduler) Drop(ctx context.Context, targetID, authToken string) error {
	s.mu.Lock()
	board, change := s.board.Drop(targetID)
	s.board = board
	s.mu.Unlock()

	if change == nil {
		return nil
	}

	if err := s.updater.UpdateItem(ctx, change.ItemID, change.Patch, s.scope, authToken); err != nil {
		s.log.WithItemID(change.ItemID).Warn().Err(err).Msg("Drop persisted locally but remote update failed")
		return err
	}
	return nil
}
