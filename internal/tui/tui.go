// Package tui is the interactive terminal front-end of the task board.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"taskflow/internal/board"
	"taskflow/internal/confirm"
)

type mode int

const (
	modeList mode = iota
	modeCreate
	modeEdit
	modeConfirm
)

const helpList = "a add · e edit · c complete · d delete · s sort · r reload · q quit"

type (
	// actionDoneMsg carries the outcome of a controller call run as a command.
	actionDoneMsg struct{ err error }
	feedbackMsg   board.Feedback
	confirmMsg    struct{ req confirm.Request }
)

// Model is the bubbletea model of the board.
type Model struct {
	ctx   context.Context
	ctrl  *board.Controller
	view  board.View
	mode  mode
	busy  bool
	width int

	cursor    int
	editingID int64
	inputs    []textinput.Model
	focus     int

	pending  *confirm.Request
	feedback board.Feedback
}

// New returns a model over ctrl. The first frame triggers a reload.
func New(ctx context.Context, ctrl *board.Controller) Model {
	title := textinput.New()
	title.Placeholder = "Title"
	title.CharLimit = 200
	title.Width = 40

	due := textinput.New()
	due.Placeholder = "Due date (YYYY-MM-DD)"
	due.CharLimit = 10
	due.Width = 12

	return Model{
		ctx:    ctx,
		ctrl:   ctrl,
		view:   ctrl.View(),
		inputs: []textinput.Model{title, due},
	}
}

// Run starts the board on the terminal. Confirmation prompts of modal are
// rendered inside the board until it exits.
func Run(ctx context.Context, api board.API, modal *confirm.Modal) error {
	var program *tea.Program
	send := func(msg tea.Msg) {
		if program != nil {
			program.Send(msg)
		}
	}

	ctrl := board.New(api, modal, board.NotifyFunc(func(fb board.Feedback) {
		send(feedbackMsg(fb))
	}))
	program = tea.NewProgram(New(ctx, ctrl), tea.WithContext(ctx))

	modal.Attach(func(r confirm.Request) {
		go send(confirmMsg{req: r})
	})
	defer modal.Detach()

	_, err := program.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return m.run(m.ctrl.Reload)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case actionDoneMsg:
		m.busy = false
		m.refresh()
		return m, nil
	case feedbackMsg:
		m.feedback = board.Feedback(msg)
		return m, nil
	case confirmMsg:
		req := msg.req
		m.pending = &req
		m.mode = modeConfirm
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			if m.pending != nil {
				m.pending.Resolve(false)
			}
			return m, tea.Quit
		}
		switch m.mode {
		case modeConfirm:
			return m.updateConfirm(msg)
		case modeCreate, modeEdit:
			return m.updateForm(msg)
		default:
			return m.updateList(msg)
		}
	}
	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down", "j":
		if m.cursor < len(m.view.Rows)-1 {
			m.cursor++
		}
		return m, nil
	}

	if m.busy {
		return m, nil
	}

	switch msg.String() {
	case "r":
		return m, m.run(m.ctrl.Reload)
	case "s":
		return m, m.run(m.ctrl.ToggleSort)
	case "a":
		m.mode = modeCreate
		return m, m.openForm(board.Draft{})
	case "e", "enter":
		row, ok := m.selected()
		if !ok {
			return m, nil
		}
		if err := m.ctrl.StartEdit(row.ID); err != nil {
			m.feedback = board.Feedback{Message: err.Error(), Err: true}
			return m, nil
		}
		m.refresh()
		m.mode = modeEdit
		m.editingID = row.ID
		current, _ := m.row(row.ID)
		return m, m.openForm(current.Draft)
	case "c":
		row, ok := m.selected()
		if !ok || !row.CanComplete {
			return m, nil
		}
		return m, m.run(func(ctx context.Context) error { return m.ctrl.Complete(ctx, row.ID) })
	case "d", "x":
		row, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m, m.run(func(ctx context.Context) error { return m.ctrl.Delete(ctx, row.ID) })
	}
	return m, nil
}

func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		if m.mode == modeEdit {
			_ = m.ctrl.CancelEdit(m.editingID)
			m.refresh()
		}
		m.closeForm()
		return m, nil
	case "tab", "shift+tab", "up", "down":
		m.inputs[m.focus].Blur()
		m.focus = (m.focus + 1) % len(m.inputs)
		return m, m.inputs[m.focus].Focus()
	case "enter":
		if m.busy {
			return m, nil
		}
		title, due := m.inputs[0].Value(), m.inputs[1].Value()
		if m.mode == modeCreate {
			m.closeForm()
			return m, m.run(func(ctx context.Context) error { return m.ctrl.Create(ctx, title, due) })
		}
		id := m.editingID
		if err := m.ctrl.SetDraft(id, board.Draft{Title: title, DueDate: due}); err != nil {
			m.feedback = board.Feedback{Message: err.Error(), Err: true}
			m.closeForm()
			return m, nil
		}
		return m, m.run(func(ctx context.Context) error { return m.ctrl.CommitEdit(ctx, id) })
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var answer bool
	switch strings.ToLower(msg.String()) {
	case "y", "enter":
		answer = true
	case "n", "esc", "q":
		answer = false
	default:
		return m, nil
	}
	m.pending.Resolve(answer)
	m.pending = nil
	m.mode = modeList
	return m, nil
}

// run executes a controller call off the event loop, since confirmation
// prompts block until the user answers through this same model.
func (m *Model) run(fn func(context.Context) error) tea.Cmd {
	m.busy = true
	ctx := m.ctx
	return func() tea.Msg {
		return actionDoneMsg{err: fn(ctx)}
	}
}

// refresh recomputes the view and leaves edit mode once the edited item is
// rendered in view mode again.
func (m *Model) refresh() {
	m.view = m.ctrl.View()
	if m.cursor >= len(m.view.Rows) {
		m.cursor = max(len(m.view.Rows)-1, 0)
	}
	if m.mode == modeEdit {
		row, ok := m.row(m.editingID)
		if !ok || row.Mode != board.Editing {
			m.closeForm()
		}
	}
}

func (m *Model) openForm(d board.Draft) tea.Cmd {
	m.inputs[0].SetValue(d.Title)
	m.inputs[1].SetValue(d.DueDate)
	m.inputs[1].Blur()
	m.focus = 0
	return m.inputs[0].Focus()
}

func (m *Model) closeForm() {
	for i := range m.inputs {
		m.inputs[i].Blur()
		m.inputs[i].SetValue("")
	}
	m.focus = 0
	m.editingID = 0
	m.mode = modeList
}

func (m Model) selected() (board.Row, bool) {
	if m.cursor < 0 || m.cursor >= len(m.view.Rows) {
		return board.Row{}, false
	}
	return m.view.Rows[m.cursor], true
}

func (m Model) row(id int64) (board.Row, bool) {
	for _, r := range m.view.Rows {
		if r.ID == id {
			return r, true
		}
	}
	return board.Row{}, false
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("TaskFlow"))
	b.WriteString("  ")
	b.WriteString(helpStyle.Render("[s] " + m.view.SortAction))
	b.WriteString("\n\n")

	if m.view.Empty() {
		if m.view.Loaded {
			b.WriteString(placeholderStyle.Render(m.view.Placeholder))
		} else {
			b.WriteString(placeholderStyle.Render("Loading..."))
		}
		b.WriteString("\n")
	}
	for i, row := range m.view.Rows {
		b.WriteString(m.renderRow(i, row))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch m.mode {
	case modeCreate, modeEdit:
		label := "New task"
		if m.mode == modeEdit {
			label = fmt.Sprintf("Editing #%d", m.editingID)
		}
		b.WriteString(formStyle.Render(label + "\n" + m.inputs[0].View() + "\n" + m.inputs[1].View()))
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("enter save · tab next field · esc cancel"))
	case modeConfirm:
		b.WriteString(confirmStyle.Render(m.pending.Message + " [y/n]"))
	default:
		b.WriteString(helpStyle.Render(helpList))
	}

	if m.feedback.Message != "" {
		b.WriteString("\n")
		if m.feedback.Err {
			b.WriteString(errorStyle.Render(m.feedback.Message))
		} else {
			b.WriteString(okStyle.Render(m.feedback.Message))
		}
	}
	b.WriteString("\n")
	return b.String()
}

func (m Model) renderRow(i int, row board.Row) string {
	cursor := "  "
	if i == m.cursor {
		cursor = cursorStyle.Render("> ")
	}
	status := pendingStyle.Render(row.StatusLabel)
	if row.StatusStyle == "completed" {
		status = completedStyle.Render(row.StatusLabel)
	}
	actions := row.EditAction
	if row.CanComplete {
		actions += " · Complete"
	}
	actions += " · Delete"

	line := fmt.Sprintf("%s#%-4d %-30s created %s  due %s  %s", cursor, row.ID, row.Title, row.Created, row.Due, status)
	if row.Mode == board.Editing {
		line += "  " + editingStyle.Render("editing")
	}
	if i == m.cursor {
		line += "  " + helpStyle.Render(actions)
	}
	return line
}
