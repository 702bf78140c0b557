package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskflow/internal/models"
	"taskflow/internal/server"
	"taskflow/internal/storage/sqlite"
	"taskflow/internal/task"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "tasks.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ts := httptest.NewServer(server.New(task.NewService(store, nil), nil, "").Engine())
	t.Cleanup(ts.Close)

	c, err := New(ts.URL+"/", ts.Client())
	require.NoError(t, err)
	return c
}

func TestNew_RejectsRelativeURL(t *testing.T) {
	_, err := New("localhost:3030", nil)
	assert.Error(t, err)

	_, err = New("/tasks", nil)
	assert.Error(t, err)
}

func TestClient_RoundTrip(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	tasks, err := c.List(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, tasks)

	id, err := c.Create(ctx, "Buy milk", "2025-01-10")
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	_, err = c.Create(ctx, "Pay rent", "2025-01-01")
	require.NoError(t, err)

	byDue, err := c.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, byDue, 2)
	assert.Equal(t, "Pay rent", byDue[0].Title)

	require.NoError(t, c.Update(ctx, id, "Buy bread", "2025-01-12"))
	require.NoError(t, c.Complete(ctx, id))

	tasks, err = c.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "Buy bread", tasks[1].Title)
	assert.Equal(t, models.StatusCompleted, tasks[1].Status)

	require.NoError(t, c.Delete(ctx, id))
	tasks, err = c.List(ctx, false)
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

func TestClient_Errors(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	_, err := c.Create(ctx, "", "2025-01-10")
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Contains(t, err.Error(), "required")

	err = c.Update(ctx, 999, "x", "2025-01-01")
	assert.True(t, IsNotFound(err))

	err = c.Complete(ctx, 999)
	assert.True(t, IsNotFound(err))

	err = c.Delete(ctx, 999)
	assert.True(t, IsNotFound(err))
	assert.False(t, IsValidation(err))
}

func TestClient_PlainTextError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "store exploded", http.StatusInternalServerError)
	}))
	defer ts.Close()

	c, err := New(ts.URL, ts.Client())
	require.NoError(t, err)

	_, err = c.List(context.Background(), false)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, "store exploded", apiErr.Message)
}
