// Package board holds the client-side state of the task list: the sort mode,
// the per-item edit state and the rendered view. Every successful mutation is
// followed by a full reload; the view is always recomputed from the last list
// the API returned.
package board

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"taskflow/internal/models"
)

// API is the task service as seen from the client.
type API interface {
	List(ctx context.Context, byDueDate bool) ([]models.Task, error)
	Create(ctx context.Context, title, dueDate string) (int64, error)
	Complete(ctx context.Context, id int64) error
	Update(ctx context.Context, id int64, title, dueDate string) error
	Delete(ctx context.Context, id int64) error
}

// Gate asks for confirmation before a state-changing action.
type Gate interface {
	Confirm(ctx context.Context, message string) (bool, error)
}

// Feedback is one message for the user.
type Feedback struct {
	Message string
	Err     bool
}

// Notifier receives feedback after every action.
type Notifier interface {
	Notify(Feedback)
}

// NotifyFunc adapts a function to Notifier.
type NotifyFunc func(Feedback)

func (f NotifyFunc) Notify(fb Feedback) { f(fb) }

// LogNotifier reports feedback through a structured logger.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Notify(fb Feedback) {
	if fb.Err {
		n.Logger.Error(fb.Message)
		return
	}
	n.Logger.Info(fb.Message)
}

// SortMode is the listing order requested from the API.
type SortMode int

const (
	ByCreation SortMode = iota
	ByDueDate
)

// Mode is the display state of one list item.
type Mode int

const (
	Viewing Mode = iota
	Editing
)

func (m Mode) String() string {
	if m == Editing {
		return "editing"
	}
	return "viewing"
}

var (
	// ErrUnknownTask is returned for an id that is not in the rendered list.
	ErrUnknownTask = errors.New("task is not in the list")
	// ErrNotEditing is returned when saving an item that is not being edited.
	ErrNotEditing = errors.New("task is not being edited")
	// ErrEmptyFields is the local validation failure for empty title or date.
	ErrEmptyFields = errors.New("title and due date must not be empty")
	// ErrCancelled is returned when the user declines a confirmation.
	ErrCancelled = errors.New("action cancelled")
)

// Draft is the pending content of an item in edit mode.
type Draft struct {
	Title   string
	DueDate string
}

type item struct {
	task  models.Task
	mode  Mode
	draft Draft
}

// Controller owns the client state. It is safe for concurrent use; the
// terminal front-end calls it from background commands.
type Controller struct {
	api    API
	gate   Gate
	notify Notifier

	mu     sync.Mutex
	sort   SortMode
	items  []item
	loaded bool
}

// New returns a controller in creation order with an empty list.
func New(api API, gate Gate, notify Notifier) *Controller {
	if notify == nil {
		notify = LogNotifier{Logger: slog.Default()}
	}
	return &Controller{api: api, gate: gate, notify: notify}
}

// Sort returns the current sort mode.
func (c *Controller) Sort() SortMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sort
}

// Reload fetches the list under the current sort mode and replaces the
// rendered items. On failure the previous list stays in place.
func (c *Controller) Reload(ctx context.Context) error {
	c.mu.Lock()
	mode := c.sort
	c.mu.Unlock()

	tasks, err := c.api.List(ctx, mode == ByDueDate)
	if err != nil {
		c.fail("Could not load tasks.", err)
		return err
	}

	items := make([]item, 0, len(tasks))
	for _, t := range tasks {
		items = append(items, item{task: t})
	}

	c.mu.Lock()
	c.items = items
	c.loaded = true
	c.mu.Unlock()
	return nil
}

// ToggleSort flips between creation and due date order and reloads.
func (c *Controller) ToggleSort(ctx context.Context) error {
	c.mu.Lock()
	if c.sort == ByCreation {
		c.sort = ByDueDate
	} else {
		c.sort = ByCreation
	}
	c.mu.Unlock()
	return c.Reload(ctx)
}

// Create adds a task. Empty fields are rejected locally without a request.
func (c *Controller) Create(ctx context.Context, title, dueDate string) error {
	if strings.TrimSpace(title) == "" || strings.TrimSpace(dueDate) == "" {
		c.fail("Title and due date must not be empty.", nil)
		return ErrEmptyFields
	}
	if _, err := c.api.Create(ctx, title, dueDate); err != nil {
		c.fail("Failed to add the task.", err)
		return err
	}
	c.succeed("Task added.")
	return c.Reload(ctx)
}

// StartEdit switches an item to edit mode with a draft of its current values.
func (c *Controller) StartEdit(id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	it := c.find(id)
	if it == nil {
		return fmt.Errorf("%w: %d", ErrUnknownTask, id)
	}
	if it.mode == Editing {
		return nil
	}
	it.mode = Editing
	it.draft = Draft{Title: it.task.Title, DueDate: it.task.DueDate.String()}
	return nil
}

// SetDraft replaces the draft of an item in edit mode.
func (c *Controller) SetDraft(id int64, d Draft) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	it := c.find(id)
	if it == nil {
		return fmt.Errorf("%w: %d", ErrUnknownTask, id)
	}
	if it.mode != Editing {
		return fmt.Errorf("%w: %d", ErrNotEditing, id)
	}
	it.draft = d
	return nil
}

// CancelEdit drops the draft and returns the item to view mode.
func (c *Controller) CancelEdit(id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	it := c.find(id)
	if it == nil {
		return fmt.Errorf("%w: %d", ErrUnknownTask, id)
	}
	it.mode = Viewing
	it.draft = Draft{}
	return nil
}

// CommitEdit saves the draft of an item. The item stays in edit mode when the
// draft is incomplete or the API call fails; a successful save reloads the
// list, which renders the item in view mode again.
func (c *Controller) CommitEdit(ctx context.Context, id int64) error {
	c.mu.Lock()
	it := c.find(id)
	if it == nil {
		c.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrUnknownTask, id)
	}
	if it.mode != Editing {
		c.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrNotEditing, id)
	}
	draft := it.draft
	c.mu.Unlock()

	if strings.TrimSpace(draft.Title) == "" || strings.TrimSpace(draft.DueDate) == "" {
		c.fail("Title and due date must not be empty.", nil)
		return ErrEmptyFields
	}

	if err := c.api.Update(ctx, id, draft.Title, draft.DueDate); err != nil {
		c.fail("Failed to save the task.", err)
		return err
	}
	c.succeed("Task updated.")
	return c.Reload(ctx)
}

// Complete asks for confirmation, then marks the task completed.
func (c *Controller) Complete(ctx context.Context, id int64) error {
	return c.confirmed(ctx, "Mark this task as completed?", func() error {
		if err := c.api.Complete(ctx, id); err != nil {
			c.fail("Failed to complete the task.", err)
			return err
		}
		c.succeed("Task marked as completed.")
		return nil
	})
}

// Delete asks for confirmation, then removes the task.
func (c *Controller) Delete(ctx context.Context, id int64) error {
	return c.confirmed(ctx, "Delete this task?", func() error {
		if err := c.api.Delete(ctx, id); err != nil {
			c.fail("Failed to delete the task.", err)
			return err
		}
		c.succeed("Task deleted.")
		return nil
	})
}

// confirmed runs action after an affirmative answer and reloads on success.
// A refusal sends no request and reports ErrCancelled.
func (c *Controller) confirmed(ctx context.Context, question string, action func() error) error {
	ok, err := c.gate.Confirm(ctx, question)
	if err != nil {
		c.fail("Confirmation failed.", err)
		return err
	}
	if !ok {
		c.notify.Notify(Feedback{Message: "Cancelled."})
		return ErrCancelled
	}
	if err := action(); err != nil {
		return err
	}
	return c.Reload(ctx)
}

func (c *Controller) find(id int64) *item {
	for i := range c.items {
		if c.items[i].task.ID == id {
			return &c.items[i]
		}
	}
	return nil
}

func (c *Controller) succeed(msg string) {
	c.notify.Notify(Feedback{Message: msg})
}

func (c *Controller) fail(msg string, err error) {
	if err != nil {
		msg = fmt.Sprintf("%s (%v)", msg, err)
	}
	c.notify.Notify(Feedback{Message: msg, Err: true})
}
