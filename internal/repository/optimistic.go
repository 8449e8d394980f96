package repository

import "github.com/contentplan-agent/internal/cache"

// Snapshot captures the pre-mutation cache state for one key so an
// optimistic local change can be rolled back when the remote commit fails.
// The protocol is: take a snapshot, apply the local mutation, commit the
// remote call, and on failure call Restore.
type Snapshot struct {
	store   cache.Store
	key     string
	data    []byte
	existed bool
}

// TakeSnapshot records the current cache state for key
func TakeSnapshot(store cache.Store, key string) *Snapshot {
	data, ok := store.Get(key)
	return &Snapshot{store: store, key: key, data: data, existed: ok}
}

// Restore puts the cache back exactly as it was at snapshot time
func (s *Snapshot) Restore() {
	if s.existed {
		s.store.Set(s.key, s.data)
		return
	}
	s.store.Invalidate(s.key)
}
