// Package cache implements the device-local, TTL-bounded key/value store
// backing the repository layer. Entries are scoped snapshots of whole
// collections; writes are best-effort and must never abort a primary
// operation.
package cache

import (
	"time"

	"github.com/contentplan-agent/internal/models"
)

// DefaultTTL is the maximum age of an entry before it is treated as absent,
// measured from write time independent of access.
const DefaultTTL = 5 * time.Minute

// Data-kind tags appended to the scope key so a user's personal and
// team-scoped collections never collide.
const (
	KindItems    = "items"
	KindPersonas = "personas"
)

// Store is the injectable cache contract. Get returns absent (and drops the
// entry) once the TTL has elapsed. Set and Invalidate never return errors;
// failures are logged by the implementation.
type Store interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
	Invalidate(key string)
}

// Key namespaces an entry by owner scope and data kind
func Key(scope models.Scope, kind string) string {
	return scope.Key() + ":" + kind
}
