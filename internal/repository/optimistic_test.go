package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/contentplan-agent/internal/cache"
)

func TestSnapshotRestoreExisting(t *testing.T) {
	store := cache.NewMemory(5 * time.Minute)
	store.Set("k", []byte(`original`))

	snap := TakeSnapshot(store, "k")
	store.Set("k", []byte(`mutated`))
	snap.Restore()

	got, ok := store.Get("k")
	assert.True(t, ok)
	assert.Equal(t, []byte(`original`), got)
}

func TestSnapshotRestoreAbsent(t *testing.T) {
	store := cache.NewMemory(5 * time.Minute)

	snap := TakeSnapshot(store, "k")
	store.Set("k", []byte(`mutated`))
	snap.Restore()

	_, ok := store.Get("k")
	assert.False(t, ok, "restoring an absent snapshot removes the key")
}
