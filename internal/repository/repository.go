// Package repository owns the synchronized client-side view of items and
// personas: cache-first reads with normalization of loosely-structured
// remote records, and optimistic create/update/delete with rollback.
package repository

import (
	"encoding/json"
	"strings"

	"github.com/contentplan-agent/internal/cache"
	"github.com/contentplan-agent/internal/models"
	"github.com/contentplan-agent/internal/transport"
	"github.com/contentplan-agent/pkg/logger"
)

// Repository is the sole writer of item and persona cache keys. The
// scheduler and notifier route all mutations through it.
type Repository struct {
	exec    *transport.Executor
	store   cache.Store
	baseURL string
	retries int
	log     *logger.Logger
}

// Option customizes a Repository
type Option func(*Repository)

// WithRetries overrides the retry budget granted to remote calls
func WithRetries(n int) Option {
	return func(r *Repository) {
		if n >= 0 {
			r.retries = n
		}
	}
}

// New creates a repository against the persistence service at baseURL
func New(exec *transport.Executor, store cache.Store, baseURL string, log *logger.Logger, opts ...Option) *Repository {
	r := &Repository{
		exec:    exec,
		store:   store,
		baseURL: strings.TrimRight(baseURL, "/"),
		retries: transport.DefaultRetries,
		log:     log.WithComponent("repository"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Repository) url(path string) string {
	return r.baseURL + path
}

// readItems decodes the cached item collection for key. A corrupt entry is
// dropped and reported as a miss.
func (r *Repository) readItems(key string) ([]models.Item, bool) {
	data, ok := r.store.Get(key)
	if !ok {
		return nil, false
	}
	var items []models.Item
	if err := json.Unmarshal(data, &items); err != nil {
		r.log.Warn().Err(err).Str("key", key).Msg("Dropping corrupt cache entry")
		r.store.Invalidate(key)
		return nil, false
	}
	return items, true
}

// writeItems serializes and caches the collection. Serialization failures
// are logged, never propagated: cache writes are best-effort.
func (r *Repository) writeItems(key string, items []models.Item) {
	data, err := json.Marshal(items)
	if err != nil {
		r.log.Warn().Err(err).Str("key", key).Msg("Failed to serialize items for cache")
		return
	}
	r.store.Set(key, data)
}

func (r *Repository) readPersonas(key string) ([]models.Persona, bool) {
	data, ok := r.store.Get(key)
	if !ok {
		return nil, false
	}
	var personas []models.Persona
	if err := json.Unmarshal(data, &personas); err != nil {
		r.log.Warn().Err(err).Str("key", key).Msg("Dropping corrupt cache entry")
		r.store.Invalidate(key)
		return nil, false
	}
	return personas, true
}

func (r *Repository) writePersonas(key string, personas []models.Persona) {
	data, err := json.Marshal(personas)
	if err != nil {
		r.log.Warn().Err(err).Str("key", key).Msg("Failed to serialize personas for cache")
		return
	}
	r.store.Set(key, data)
}
