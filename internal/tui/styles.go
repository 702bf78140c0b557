package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	helpStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Faint(true)
	placeholderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("243")).Italic(true)
	cursorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("62")).Bold(true)
	pendingStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	completedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Strikethrough(true)
	editingStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("81"))
	okStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	confirmStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("255")).Background(lipgloss.Color("236")).Padding(0, 1)
	formStyle        = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("62")).Padding(0, 1)
)
