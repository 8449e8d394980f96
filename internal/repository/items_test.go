package repository

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contentplan-agent/internal/cache"
	"github.com/contentplan-agent/internal/models"
	"github.com/contentplan-agent/internal/transport"
	"github.com/contentplan-agent/pkg/logger"
	"github.com/contentplan-agent/pkg/ratelimit"
)

func newTestRepo(t *testing.T, handler http.Handler) (*Repository, cache.Store) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	limiter := ratelimit.NewMultiLimiter()
	limiter.AddLimiter("api", 1000, 1000)
	exec := transport.NewExecutor(limiter, "api", logger.Nop(),
		transport.WithTimeout(2*time.Second),
		transport.WithBackoff(time.Millisecond),
	)

	store := cache.NewMemory(5 * time.Minute)
	return New(exec, store, srv.URL, logger.Nop()), store
}

func primeItems(t *testing.T, store cache.Store, scope models.Scope, items []models.Item) {
	t.Helper()
	data, err := json.Marshal(items)
	require.NoError(t, err)
	store.Set(cache.Key(scope, cache.KindItems), data)
}

func cachedItems(t *testing.T, store cache.Store, scope models.Scope) []models.Item {
	t.Helper()
	data, ok := store.Get(cache.Key(scope, cache.KindItems))
	require.True(t, ok)
	var items []models.Item
	require.NoError(t, json.Unmarshal(data, &items))
	return items
}

func TestListItemsCacheFirst(t *testing.T) {
	var hits int32
	repo, _ := newTestRepo(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte(`[{"id":"it-1","title":"First","target_platforms":"Instagram"}]`))
	}))

	scope := models.UserScope("u1")
	first, err := repo.ListItems(context.Background(), scope, "token")
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, []string{"Instagram"}, first[0].Platforms)

	second, err := repo.ListItems(context.Background(), scope, "token")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "a cache hit must not touch the network")
}

func TestListItemsSoftFailure(t *testing.T) {
	repo, _ := newTestRepo(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	items, err := repo.ListItems(context.Background(), models.UserScope("u1"), "token")
	require.NoError(t, err, "a list fetch failure degrades to an empty result")
	assert.Empty(t, items)
	assert.NotNil(t, items)
}

func TestListItemsAuthMissing(t *testing.T) {
	repo, _ := newTestRepo(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	_, err := repo.ListItems(context.Background(), models.UserScope("u1"), "")
	assert.ErrorIs(t, err, transport.ErrAuthMissing)
}

func TestCreateItemIdempotentCache(t *testing.T) {
	repo, store := newTestRepo(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	scope := models.UserScope("u1")
	primeItems(t, store, scope, []models.Item{})

	item := models.Item{ID: "it-9", Title: "Once", Platforms: []string{"General"}}
	require.NoError(t, repo.CreateItem(context.Background(), item, scope, "token"))
	require.NoError(t, repo.CreateItem(context.Background(), item, scope, "token"))

	assert.Len(t, cachedItems(t, store, scope), 1, "duplicate create calls must not duplicate the cache entry")
}

func TestCreateItemRollback(t *testing.T) {
	repo, store := newTestRepo(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`validation failed`))
	}))

	scope := models.UserScope("u1")
	primeItems(t, store, scope, []models.Item{{ID: "existing", Platforms: []string{"General"}, Status: models.ItemStatusPending}})

	err := repo.CreateItem(context.Background(), models.Item{ID: "it-9", Title: "Doomed"}, scope, "token")
	require.Error(t, err)

	items := cachedItems(t, store, scope)
	require.Len(t, items, 1)
	assert.Equal(t, "existing", items[0].ID, "the optimistically-added id must be removed on failure")
}

func TestCreateItemUnusedNodeWarningIsSuccess(t *testing.T) {
	repo, store := newTestRepo(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`workflow warning: unused response node "set"`))
	}))

	scope := models.UserScope("u1")
	primeItems(t, store, scope, []models.Item{})

	err := repo.CreateItem(context.Background(), models.Item{ID: "it-9", Title: "Kept"}, scope, "token")
	require.NoError(t, err, "the backend configuration quirk is not a real failure")
	assert.Len(t, cachedItems(t, store, scope), 1)
}

func TestUpdateItemOptimisticAndPayload(t *testing.T) {
	var patchBody map[string]interface{}
	repo, store := newTestRepo(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&patchBody))
		w.WriteHeader(http.StatusOK)
	}))

	scope := models.UserScope("u1")
	primeItems(t, store, scope, []models.Item{{ID: "it-1", Title: "Old", Platforms: []string{"General"}, Status: models.ItemStatusPending}})

	date := "2025-03-10"
	patch := models.ItemPatch{
		Title:   models.StringPtr("New"),
		Date:    &date,
		DateSet: true,
	}
	require.NoError(t, repo.UpdateItem(context.Background(), "it-1", patch, scope, "token"))

	items := cachedItems(t, store, scope)
	assert.Equal(t, "New", items[0].Title)
	require.NotNil(t, items[0].Date)
	assert.Equal(t, "2025-03-10", *items[0].Date)

	// The persistence payload combines date and time-or-default into one
	// field and never carries the id
	assert.Equal(t, "2025-03-10T09:00:00", patchBody["scheduled_at"])
	assert.Equal(t, "New", patchBody["title"])
	_, hasID := patchBody["id"]
	assert.False(t, hasID)
}

func TestUpdateItemRollback(t *testing.T) {
	repo, store := newTestRepo(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	scope := models.UserScope("u1")
	before := []models.Item{{ID: "it-1", Title: "Old", Platforms: []string{"General"}, Status: models.ItemStatusPending}}
	primeItems(t, store, scope, before)

	err := repo.UpdateItem(context.Background(), "it-1", models.ItemPatch{Title: models.StringPtr("New")}, scope, "token")
	require.Error(t, err)

	assert.Equal(t, before, cachedItems(t, store, scope), "post-call cache state must deep-equal the pre-call state")
}

func TestUpdateItemTimeOnlyPatchColdCache(t *testing.T) {
	var patchBody map[string]interface{}
	repo, _ := newTestRepo(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&patchBody))
		w.WriteHeader(http.StatusOK)
	}))

	tod := "15:00"
	patch := models.ItemPatch{Time: &tod, TimeSet: true}
	require.NoError(t, repo.UpdateItem(context.Background(), "it-1", patch, models.UserScope("u1"), "token"))

	_, present := patchBody["scheduled_at"]
	assert.False(t, present, "with the effective date unknown, the schedule field stays untouched remotely")
}

func TestUpdateItemTimeOnlyPatchWarmCache(t *testing.T) {
	var patchBody map[string]interface{}
	repo, store := newTestRepo(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&patchBody))
		w.WriteHeader(http.StatusOK)
	}))

	scope := models.UserScope("u1")
	date := "2025-03-10"
	primeItems(t, store, scope, []models.Item{{ID: "it-1", Date: &date, Platforms: []string{"General"}, Status: models.ItemStatusPending}})

	tod := "15:00"
	patch := models.ItemPatch{Time: &tod, TimeSet: true}
	require.NoError(t, repo.UpdateItem(context.Background(), "it-1", patch, scope, "token"))

	assert.Equal(t, "2025-03-10T15:00:00", patchBody["scheduled_at"], "the cached date carries the new time")
}

func TestDeleteItemFireAndForget(t *testing.T) {
	repo, store := newTestRepo(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	scope := models.UserScope("u1")
	primeItems(t, store, scope, []models.Item{{ID: "it-1", Platforms: []string{"General"}, Status: models.ItemStatusPending}})

	err := repo.DeleteItem(context.Background(), "it-1", scope, "token")
	require.NoError(t, err, "a remote delete failure is logged, not surfaced")
	assert.Empty(t, cachedItems(t, store, scope), "deletion must not silently reappear")
}

func TestUpdateItemClearsSchedule(t *testing.T) {
	var patchBody map[string]interface{}
	repo, store := newTestRepo(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&patchBody))
		w.WriteHeader(http.StatusOK)
	}))

	scope := models.UserScope("u1")
	date, tod := "2025-03-10", "10:00"
	primeItems(t, store, scope, []models.Item{{ID: "it-1", Date: &date, Time: &tod, Platforms: []string{"General"}, Status: models.ItemStatusInProgress}})

	patch := models.ItemPatch{
		Date:    nil,
		DateSet: true,
		Time:    nil,
		TimeSet: true,
		Status:  models.StatusPtr(models.ItemStatusPending),
	}
	require.NoError(t, repo.UpdateItem(context.Background(), "it-1", patch, scope, "token"))

	items := cachedItems(t, store, scope)
	assert.Nil(t, items[0].Date)
	assert.Nil(t, items[0].Time)
	assert.Equal(t, models.ItemStatusPending, items[0].Status)

	val, present := patchBody["scheduled_at"]
	require.True(t, present)
	assert.Nil(t, val, "clearing the date nulls the combined field remotely")
}
