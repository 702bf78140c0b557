// Package task implements the task operations exposed over HTTP: listing,
// creation, completion, editing and deletion, with input validation and the
// PENDING to COMPLETED status transition.
package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"taskflow/internal/models"
	"taskflow/internal/storage"
)

var (
	// ErrValidation marks missing or malformed caller input.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks an operation on an id that matches no task.
	ErrNotFound = errors.New("task not found")
)

// SortMode selects the listing order.
type SortMode int

const (
	ByCreation SortMode = iota
	ByDueDate
)

// ParseSortMode maps the "sort" query value onto a SortMode. Only "date"
// selects due date order.
func ParseSortMode(raw string) SortMode {
	if raw == "date" {
		return ByDueDate
	}
	return ByCreation
}

func (m SortMode) String() string {
	if m == ByDueDate {
		return "due_date"
	}
	return "created"
}

// ListCache is the subset of cache operations the service relies on.
type ListCache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	DeletePattern(ctx context.Context, pattern string) error
}

const listKeyPattern = "tasks:*"

func listKey(mode SortMode) string {
	return "tasks:" + mode.String()
}

// Service applies validation on top of a storage.Store.
type Service struct {
	store  storage.Store
	cache  ListCache
	logger *slog.Logger
	group  singleflight.Group
	// owner and generation stamp every cached listing. An entry written by
	// another process or under an older generation is treated as a miss.
	owner      string
	generation atomic.Uint64
}

// cachedList is the cache entry of one listing.
type cachedList struct {
	Owner      string        `json:"owner"`
	Generation uint64        `json:"generation"`
	Tasks      []models.Task `json:"tasks"`
}

// Option customizes a Service.
type Option func(*Service)

// WithCache enables cache-aside listing. Every successful mutation drops the
// cached listings.
func WithCache(c ListCache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// NewService wires the service to a process-scoped store handle.
func NewService(store storage.Store, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{store: store, logger: logger, owner: uuid.NewString()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns every task in the requested order.
func (s *Service) List(ctx context.Context, mode SortMode) ([]models.Task, error) {
	key := listKey(mode)

	if tasks, ok := s.fromCache(ctx, key); ok {
		return tasks, nil
	}

	// The shared read is detached from the caller that started it; every
	// caller waits on its own context.
	gen := s.generation.Load()
	shared := context.WithoutCancel(ctx)
	ch := s.group.DoChan(fmt.Sprintf("%s@%d", key, gen), func() (any, error) {
		order := storage.OrderCreatedDesc
		if mode == ByDueDate {
			order = storage.OrderDueAsc
		}
		return s.store.ListTasks(shared, order)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, fmt.Errorf("list tasks: %w", ctx.Err())
	}
	if res.Err != nil {
		return nil, res.Err
	}

	tasks := res.Val.([]models.Task)
	if tasks == nil {
		tasks = []models.Task{}
	}

	if s.cache != nil {
		entry := cachedList{Owner: s.owner, Generation: gen, Tasks: tasks}
		if err := s.cache.Set(ctx, key, entry); err != nil {
			s.logger.Warn("list cache write failed", slog.String("key", key), slog.String("error", err.Error()))
		}
	}
	return tasks, nil
}

// fromCache returns the cached listing under key when it was written by this
// service at the current generation.
func (s *Service) fromCache(ctx context.Context, key string) ([]models.Task, bool) {
	if s.cache == nil {
		return nil, false
	}
	var entry cachedList
	hit, err := s.cache.Get(ctx, key, &entry)
	if err != nil {
		s.logger.Warn("list cache read failed", slog.String("key", key), slog.String("error", err.Error()))
		return nil, false
	}
	if !hit || entry.Owner != s.owner || entry.Generation != s.generation.Load() {
		return nil, false
	}
	if entry.Tasks == nil {
		entry.Tasks = []models.Task{}
	}
	return entry.Tasks, true
}

// Create validates the input and stores a new PENDING task.
func (s *Service) Create(ctx context.Context, title, dueDate string) (int64, error) {
	title, due, err := validate(title, dueDate)
	if err != nil {
		return 0, err
	}

	id, err := s.store.CreateTask(ctx, title, due)
	if err != nil {
		return 0, fmt.Errorf("create task: %w", err)
	}
	s.invalidate(ctx)
	s.logger.Info("task created", slog.Int64("id", id))
	return id, nil
}

// Complete marks a task COMPLETED. Completing an already completed task
// succeeds without changing anything.
func (s *Service) Complete(ctx context.Context, id int64) error {
	if err := s.store.CompleteTask(ctx, id); err != nil {
		return s.mapStoreErr("complete task", id, err)
	}
	s.invalidate(ctx)
	s.logger.Info("task completed", slog.Int64("id", id))
	return nil
}

// Update overwrites the title and due date of a task.
func (s *Service) Update(ctx context.Context, id int64, title, dueDate string) error {
	title, due, err := validate(title, dueDate)
	if err != nil {
		return err
	}

	if err := s.store.UpdateTask(ctx, id, title, due); err != nil {
		return s.mapStoreErr("update task", id, err)
	}
	s.invalidate(ctx)
	s.logger.Info("task updated", slog.Int64("id", id))
	return nil
}

// Delete removes a task permanently.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteTask(ctx, id); err != nil {
		return s.mapStoreErr("delete task", id, err)
	}
	s.invalidate(ctx)
	s.logger.Info("task deleted", slog.Int64("id", id))
	return nil
}

// Ping reports whether the backing store answers.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) mapStoreErr(op string, id int64, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return fmt.Errorf("%s %d: %w", op, id, err)
}

func (s *Service) invalidate(ctx context.Context) {
	s.generation.Add(1)
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePattern(ctx, listKeyPattern); err != nil {
		s.logger.Error("list cache invalidation failed", slog.String("error", err.Error()))
	}
}

func validate(title, dueDate string) (string, models.Date, error) {
	title = strings.TrimSpace(title)
	dueDate = strings.TrimSpace(dueDate)
	if title == "" || dueDate == "" {
		return "", models.Date{}, fmt.Errorf("%w: title and due_date are required", ErrValidation)
	}
	due, err := models.ParseDate(dueDate)
	if err != nil {
		return "", models.Date{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return title, due, nil
}
