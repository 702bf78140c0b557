package task_test

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskflow/internal/models"
	"taskflow/internal/storage"
	"taskflow/internal/storage/sqlite"
	"taskflow/internal/task"
)

func newService(t *testing.T, opts ...task.Option) *task.Service {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "tasks.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return task.NewService(store, nil, opts...)
}

// memoryCache is a ListCache keeping JSON blobs in a map.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	sets    int
	deletes int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string][]byte{}}
}

func (m *memoryCache) Get(_ context.Context, key string, dest any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, dest)
}

func (m *memoryCache) Set(_ context.Context, key string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = data
	m.sets++
	return nil
}

func (m *memoryCache) DeletePattern(_ context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			delete(m.entries, k)
		}
	}
	m.deletes++
	return nil
}

func TestParseSortMode(t *testing.T) {
	assert.Equal(t, task.ByDueDate, task.ParseSortMode("date"))
	assert.Equal(t, task.ByCreation, task.ParseSortMode(""))
	assert.Equal(t, task.ByCreation, task.ParseSortMode("DATE"))
	assert.Equal(t, task.ByCreation, task.ParseSortMode("created"))
}

func TestService_Scenario(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	id, err := svc.Create(ctx, "Buy milk", "2025-01-10")
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	tasks, err := svc.List(ctx, task.ByCreation)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Buy milk", tasks[0].Title)
	assert.Equal(t, models.StatusPending, tasks[0].Status)

	require.NoError(t, svc.Complete(ctx, id))
	tasks, err = svc.List(ctx, task.ByCreation)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, tasks[0].Status)

	require.NoError(t, svc.Delete(ctx, id))
	tasks, err = svc.List(ctx, task.ByCreation)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestService_CreateAssignsUniqueIDs(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	seen := map[int64]bool{}
	for i := 0; i < 5; i++ {
		id, err := svc.Create(ctx, "task", "2025-01-10")
		require.NoError(t, err)
		assert.False(t, seen[id], "id %d reused", id)
		seen[id] = true
	}

	tasks, err := svc.List(ctx, task.ByCreation)
	require.NoError(t, err)
	assert.Len(t, tasks, 5)
}

func TestService_CreateValidation(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		title string
		due   string
	}{
		{"empty title", "", "2025-01-10"},
		{"blank title", "   ", "2025-01-10"},
		{"empty due date", "Buy milk", ""},
		{"malformed due date", "Buy milk", "10/01/2025"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tc.title, tc.due)
			assert.ErrorIs(t, err, task.ErrValidation)
		})
	}

	tasks, err := svc.List(ctx, task.ByCreation)
	require.NoError(t, err)
	assert.Empty(t, tasks, "rejected input must not persist")
}

func TestService_CreateTrimsTitle(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "  Buy milk  ", " 2025-01-10 ")
	require.NoError(t, err)

	tasks, err := svc.List(ctx, task.ByCreation)
	require.NoError(t, err)
	assert.Equal(t, "Buy milk", tasks[0].Title)
	assert.Equal(t, "2025-01-10", tasks[0].DueDate.String())
}

func TestService_CompleteIsIdempotent(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	id, err := svc.Create(ctx, "Buy milk", "2025-01-10")
	require.NoError(t, err)

	require.NoError(t, svc.Complete(ctx, id))
	require.NoError(t, svc.Complete(ctx, id))

	tasks, err := svc.List(ctx, task.ByCreation)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, tasks[0].Status)
}

func TestService_NotFound(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Complete(ctx, 999), task.ErrNotFound)
	assert.ErrorIs(t, svc.Update(ctx, 999, "x", "2025-01-01"), task.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, 999), task.ErrNotFound)

	tasks, err := svc.List(ctx, task.ByCreation)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestService_UpdateValidationPrecedesLookup(t *testing.T) {
	svc := newService(t)

	err := svc.Update(context.Background(), 999, "", "2025-01-01")
	assert.ErrorIs(t, err, task.ErrValidation)
}

func TestService_UpdateOverwritesOnlyTitleAndDueDate(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	id, err := svc.Create(ctx, "Buy milk", "2025-01-10")
	require.NoError(t, err)
	require.NoError(t, svc.Complete(ctx, id))

	before, err := svc.List(ctx, task.ByCreation)
	require.NoError(t, err)

	require.NoError(t, svc.Update(ctx, id, "Buy bread", "2025-02-01"))

	after, err := svc.List(ctx, task.ByCreation)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, id, after[0].ID)
	assert.Equal(t, "Buy bread", after[0].Title)
	assert.Equal(t, "2025-02-01", after[0].DueDate.String())
	assert.Equal(t, models.StatusCompleted, after[0].Status)
	assert.True(t, before[0].CreatedAt.Equal(after[0].CreatedAt))
}

func TestService_ListOrdering(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	for _, due := range []string{"2025-03-01", "2025-01-01", "2025-02-01", "2025-01-01"} {
		_, err := svc.Create(ctx, "task "+due, due)
		require.NoError(t, err)
	}

	byDue, err := svc.List(ctx, task.ByDueDate)
	require.NoError(t, err)
	for i := 1; i < len(byDue); i++ {
		assert.False(t, byDue[i].DueDate.Before(byDue[i-1].DueDate.Time), "due date order broken at %d", i)
	}

	byCreation, err := svc.List(ctx, task.ByCreation)
	require.NoError(t, err)
	for i := 1; i < len(byCreation); i++ {
		assert.False(t, byCreation[i].CreatedAt.After(byCreation[i-1].CreatedAt), "creation order broken at %d", i)
	}
	assert.Equal(t, int64(4), byCreation[0].ID)
}

func TestService_ListUsesCacheAndMutationsInvalidate(t *testing.T) {
	cache := newMemoryCache()
	svc := newService(t, task.WithCache(cache))
	ctx := context.Background()

	_, err := svc.Create(ctx, "Buy milk", "2025-01-10")
	require.NoError(t, err)

	first, err := svc.List(ctx, task.ByCreation)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, cache.sets)

	// Second read is served from the cache.
	_, err = svc.List(ctx, task.ByCreation)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets)

	_, err = svc.Create(ctx, "Buy bread", "2025-01-11")
	require.NoError(t, err)

	second, err := svc.List(ctx, task.ByCreation)
	require.NoError(t, err)
	assert.Len(t, second, 2, "a created task is visible right after Create")
	assert.Equal(t, 2, cache.sets)
}

func TestService_FailedValidationDoesNotInvalidate(t *testing.T) {
	cache := newMemoryCache()
	svc := newService(t, task.WithCache(cache))

	_, err := svc.Create(context.Background(), "", "")
	require.Error(t, err)
	assert.Equal(t, 0, cache.deletes)
}

func TestService_OfflineStore(t *testing.T) {
	svc := task.NewService(storage.Offline{Cause: errors.New("dial tcp: refused")}, nil)
	ctx := context.Background()

	_, err := svc.List(ctx, task.ByCreation)
	assert.ErrorIs(t, err, storage.ErrUnavailable)

	_, err = svc.Create(ctx, "Buy milk", "2025-01-10")
	assert.ErrorIs(t, err, storage.ErrUnavailable)
	assert.NotErrorIs(t, err, task.ErrValidation)

	err = svc.Complete(ctx, 1)
	assert.ErrorIs(t, err, storage.ErrUnavailable)
	assert.NotErrorIs(t, err, task.ErrNotFound)

	assert.Error(t, svc.Ping(ctx))
}

// interleavingCache runs a hook right before the first Set, so a mutation can
// land between the store read and the cache write.
type interleavingCache struct {
	*memoryCache
	beforeSet func()
}

func (c *interleavingCache) Set(ctx context.Context, key string, value any) error {
	if hook := c.beforeSet; hook != nil {
		c.beforeSet = nil
		hook()
	}
	return c.memoryCache.Set(ctx, key, value)
}

func TestService_ListingReadBeforeMutationIsNotServedAfterIt(t *testing.T) {
	cache := &interleavingCache{memoryCache: newMemoryCache()}
	svc := newService(t, task.WithCache(cache))
	ctx := context.Background()

	cache.beforeSet = func() {
		_, err := svc.Create(ctx, "Buy milk", "2025-01-10")
		require.NoError(t, err)
	}

	stale, err := svc.List(ctx, task.ByCreation)
	require.NoError(t, err)
	assert.Empty(t, stale)

	fresh, err := svc.List(ctx, task.ByCreation)
	require.NoError(t, err)
	assert.Len(t, fresh, 1, "a task acknowledged by Create is listed")
}

// blockingStore holds ListTasks until release is closed.
type blockingStore struct {
	storage.Store
	entered chan struct{}
	release chan struct{}
}

func (s *blockingStore) ListTasks(ctx context.Context, order storage.Order) ([]models.Task, error) {
	select {
	case s.entered <- struct{}{}:
	default:
	}
	select {
	case <-s.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return s.Store.ListTasks(ctx, order)
}

func TestService_CancelledCallerDoesNotFailSharedList(t *testing.T) {
	base, err := sqlite.Open(filepath.Join(t.TempDir(), "tasks.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = base.Close() })

	store := &blockingStore{Store: base, entered: make(chan struct{}, 1), release: make(chan struct{})}
	svc := task.NewService(store, nil)

	firstCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.List(firstCtx, task.ByCreation)
		firstErr <- err
	}()
	<-store.entered

	secondErr := make(chan error, 1)
	go func() {
		_, err := svc.List(context.Background(), task.ByCreation)
		secondErr <- err
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(store.release)
	assert.NoError(t, <-secondErr)
}
