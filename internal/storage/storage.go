// Package storage defines the persistence contract shared by the task store drivers.
package storage

import (
	"context"
	"errors"
	"fmt"

	"taskflow/internal/models"
)

// ErrNotFound is returned when no task row matches the requested id.
var ErrNotFound = errors.New("task not found")

// ErrUnavailable is returned by an Offline store for every operation.
var ErrUnavailable = errors.New("task store unavailable")

// Order selects the ORDER BY clause used when listing tasks.
type Order int

const (
	// OrderCreatedDesc lists newest tasks first.
	OrderCreatedDesc Order = iota
	// OrderDueAsc lists the soonest due date first.
	OrderDueAsc
)

// Store is a relational task table.
type Store interface {
	ListTasks(ctx context.Context, order Order) ([]models.Task, error)
	// CreateTask inserts a PENDING task and returns the store-assigned id.
	CreateTask(ctx context.Context, title string, due models.Date) (int64, error)
	// CompleteTask marks the task COMPLETED. Completing a completed task succeeds.
	CompleteTask(ctx context.Context, id int64) error
	UpdateTask(ctx context.Context, id int64, title string, due models.Date) error
	DeleteTask(ctx context.Context, id int64) error
	Ping(ctx context.Context) error
	Close() error
}

// Offline stands in for a store whose initial connection failed. The server
// keeps running and every operation reports the connection failure.
type Offline struct {
	Cause error
}

func (o Offline) err() error {
	return fmt.Errorf("%w: %v", ErrUnavailable, o.Cause)
}

func (o Offline) ListTasks(context.Context, Order) ([]models.Task, error) { return nil, o.err() }

func (o Offline) CreateTask(context.Context, string, models.Date) (int64, error) { return 0, o.err() }

func (o Offline) CompleteTask(context.Context, int64) error { return o.err() }

func (o Offline) UpdateTask(context.Context, int64, string, models.Date) error { return o.err() }

func (o Offline) DeleteTask(context.Context, int64) error { return o.err() }

func (o Offline) Ping(context.Context) error { return o.err() }

func (o Offline) Close() error { return nil }
