package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskflow/internal/cache"
	"taskflow/internal/models"
	"taskflow/internal/storage"
	"taskflow/internal/storage/sqlite"
	"taskflow/internal/task"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "tasks.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return New(task.NewService(store, nil), nil, "")
}

func do(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)
	return w
}

func listTasks(t *testing.T, srv *Server, path string) []models.Task {
	t.Helper()
	w := do(t, srv, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var tasks []models.Task
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tasks))
	return tasks
}

func createTask(t *testing.T, srv *Server, title, due string) int64 {
	t.Helper()
	w := do(t, srv, http.MethodPost, "/tasks", map[string]string{"title": title, "due_date": due})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp createdResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Message)
	return resp.ID
}

func TestListTasks_EmptyArray(t *testing.T) {
	srv := newTestServer(t)

	w := do(t, srv, http.MethodGet, "/tasks", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestTaskLifecycle(t *testing.T) {
	srv := newTestServer(t)

	id := createTask(t, srv, "Buy milk", "2025-01-10")
	assert.Equal(t, int64(1), id)

	tasks := listTasks(t, srv, "/tasks")
	require.Len(t, tasks, 1)
	assert.Equal(t, "Buy milk", tasks[0].Title)
	assert.Equal(t, models.StatusPending, tasks[0].Status)

	w := do(t, srv, http.MethodPut, "/tasks/1/done", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
	assert.NotEmpty(t, w.Body.String())

	tasks = listTasks(t, srv, "/tasks")
	assert.Equal(t, models.StatusCompleted, tasks[0].Status)

	w = do(t, srv, http.MethodDelete, "/tasks/1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	assert.Empty(t, listTasks(t, srv, "/tasks"))
}

func TestTaskRecordShape(t *testing.T) {
	srv := newTestServer(t)
	createTask(t, srv, "Buy milk", "2025-01-10")

	w := do(t, srv, http.MethodGet, "/tasks", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var raw []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	require.Len(t, raw, 1)
	for _, key := range []string{"id", "title", "due_date", "created_at", "status"} {
		assert.Contains(t, raw[0], key)
	}
	assert.Equal(t, "2025-01-10", raw[0]["due_date"])
	assert.Equal(t, "PENDING", raw[0]["status"])
}

func TestCreateTask_MissingFields(t *testing.T) {
	srv := newTestServer(t)

	for _, body := range []map[string]string{
		{"title": "", "due_date": "2025-01-10"},
		{"title": "Buy milk"},
		{"due_date": "2025-01-10"},
	} {
		w := do(t, srv, http.MethodPost, "/tasks", body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "error")
	}

	w := do(t, srv, http.MethodPost, "/tasks", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Empty(t, listTasks(t, srv, "/tasks"))
}

func TestUpdateTask(t *testing.T) {
	srv := newTestServer(t)
	id := createTask(t, srv, "Buy milk", "2025-01-10")

	w := do(t, srv, http.MethodPut, "/tasks/1", map[string]string{"title": "Buy bread", "due_date": "2025-02-01"})
	assert.Equal(t, http.StatusOK, w.Code)

	tasks := listTasks(t, srv, "/tasks")
	require.Len(t, tasks, 1)
	assert.Equal(t, id, tasks[0].ID)
	assert.Equal(t, "Buy bread", tasks[0].Title)
	assert.Equal(t, "2025-02-01", tasks[0].DueDate.String())
	assert.Equal(t, models.StatusPending, tasks[0].Status)

	w = do(t, srv, http.MethodPut, "/tasks/1", map[string]string{"title": "Buy bread"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNotFound(t *testing.T) {
	srv := newTestServer(t)

	cases := []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodPut, "/tasks/999", map[string]string{"title": "x", "due_date": "2025-01-01"}},
		{http.MethodPut, "/tasks/999/done", nil},
		{http.MethodDelete, "/tasks/999", nil},
		{http.MethodDelete, "/tasks/abc", nil},
	}
	for _, tc := range cases {
		w := do(t, srv, tc.method, tc.path, tc.body)
		assert.Equal(t, http.StatusNotFound, w.Code, "%s %s", tc.method, tc.path)
	}
}

func TestListTasks_SortByDate(t *testing.T) {
	srv := newTestServer(t)
	createTask(t, srv, "later", "2025-03-01")
	createTask(t, srv, "sooner", "2025-01-01")
	createTask(t, srv, "middle", "2025-02-01")

	byDate := listTasks(t, srv, "/tasks?sort=date")
	require.Len(t, byDate, 3)
	assert.Equal(t, []string{"sooner", "middle", "later"}, titles(byDate))

	byCreation := listTasks(t, srv, "/tasks?sort=other")
	assert.Equal(t, []string{"middle", "sooner", "later"}, titles(byCreation))
}

func TestRequestIDHeader(t *testing.T) {
	srv := newTestServer(t)

	w := do(t, srv, http.MethodGet, "/tasks", nil)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

// failingService returns a store failure from every operation.
type failingService struct{}

var errStore = errors.New("connection reset by peer: secret dsn")

func (failingService) List(context.Context, task.SortMode) ([]models.Task, error) { return nil, errStore }
func (failingService) Create(context.Context, string, string) (int64, error) { return 0, errStore }
func (failingService) Complete(context.Context, int64) error { return errStore }
func (failingService) Update(context.Context, int64, string, string) error { return errStore }
func (failingService) Delete(context.Context, int64) error { return errStore }
func (failingService) Ping(context.Context) error { return errStore }

func TestStoreFailureIsGeneric(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := New(failingService{}, nil, "")

	cases := []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodGet, "/tasks", nil},
		{http.MethodPost, "/tasks", map[string]string{"title": "x", "due_date": "2025-01-01"}},
		{http.MethodPut, "/tasks/1/done", nil},
		{http.MethodPut, "/tasks/1", map[string]string{"title": "x", "due_date": "2025-01-01"}},
		{http.MethodDelete, "/tasks/1", nil},
	}
	for _, tc := range cases {
		w := do(t, srv, tc.method, tc.path, tc.body)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "secret")
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	w := do(t, srv, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	gin.SetMode(gin.TestMode)
	offline := New(task.NewService(storage.Offline{Cause: errors.New("refused")}, nil), nil, "")
	w = do(t, offline, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHealth_ReportsCacheStats(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "tasks.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	stats := func() cache.Stats { return cache.Stats{Hits: 3, Misses: 1, Sets: 1} }
	srv := New(task.NewService(store, nil), nil, "", WithCacheStats(stats))

	w := do(t, srv, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Status string      `json:"status"`
		Cache  cache.Stats `json:"cache"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, uint64(3), body.Cache.Hits)
	assert.Equal(t, uint64(1), body.Cache.Misses)

	plain := do(t, newTestServer(t), http.MethodGet, "/healthz", nil)
	assert.NotContains(t, plain.Body.String(), "cache")
}

func TestStaticClient(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>TaskFlow</h1>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o644))

	srv := New(failingService{}, nil, dir)

	w := do(t, srv, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "TaskFlow")

	w = do(t, srv, http.MethodGet, "/app.js", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, srv, http.MethodGet, "/somewhere", nil)
	assert.Contains(t, w.Body.String(), "TaskFlow")

	w = do(t, srv, http.MethodPost, "/tasks/1/unknown", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "endpoint not found")
}

func titles(tasks []models.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.Title)
	}
	return out
}
