package board

import (
	"time"

	"taskflow/internal/models"
)

// DisplayDateLayout is how dates are shown to the user (DD/MM/YYYY).
const DisplayDateLayout = "02/01/2006"

// EmptyPlaceholder replaces the list when there are no tasks.
const EmptyPlaceholder = "No tasks yet."

const (
	labelSortByDate  = "Sort by due date"
	labelSortDisable = "Disable sorting"
	labelEdit        = "Edit"
	labelSave        = "Save"
)

// Row is the display form of one task.
type Row struct {
	ID          int64
	Title       string
	Created     string
	Due         string
	StatusLabel string
	// StatusStyle is "pending" or "completed".
	StatusStyle string
	Mode        Mode
	Draft       Draft
	// EditAction is "Edit" in view mode and "Save" in edit mode.
	EditAction  string
	CanComplete bool
}

// View is the full rendered state of the board.
type View struct {
	// SortAction labels the toggle with what pressing it will do next.
	SortAction  string
	Rows        []Row
	Placeholder string
	Loaded      bool
}

// Empty reports whether the placeholder is shown instead of rows.
func (v View) Empty() bool {
	return len(v.Rows) == 0
}

// View recomputes the display from the current state.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{SortAction: labelSortByDate, Loaded: c.loaded}
	if c.sort == ByDueDate {
		v.SortAction = labelSortDisable
	}

	if len(c.items) == 0 {
		v.Placeholder = EmptyPlaceholder
		return v
	}

	v.Rows = make([]Row, 0, len(c.items))
	for _, it := range c.items {
		v.Rows = append(v.Rows, renderRow(it))
	}
	return v
}

func renderRow(it item) Row {
	t := it.task
	row := Row{
		ID:          t.ID,
		Title:       t.Title,
		Created:     formatTimestamp(t.CreatedAt),
		Due:         formatDate(t.DueDate),
		Mode:        it.mode,
		Draft:       it.draft,
		EditAction:  labelEdit,
		CanComplete: !t.Completed(),
	}
	if t.Completed() {
		row.StatusLabel, row.StatusStyle = "COMPLETED", "completed"
	} else {
		row.StatusLabel, row.StatusStyle = "PENDING", "pending"
	}
	if it.mode == Editing {
		row.EditAction = labelSave
	}
	return row
}

func formatDate(d models.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DisplayDateLayout)
}

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.Local().Format(DisplayDateLayout)
}
