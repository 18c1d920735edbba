// Package help renders the expanded keyboard reference for the mail views.
package help

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Somdatta-dev/ace-mail/internal/keys"
	"github.com/Somdatta-dev/ace-mail/internal/model"
	"github.com/Somdatta-dev/ace-mail/internal/theme"
)

// Model is the help overlay view.
type Model struct {
	keys   *keys.KeyMap
	help   help.Model
	width  int
	height int
}

// New creates a new help view model.
func New(keys *keys.KeyMap, width, height int) Model {
	h := help.New()
	h.Width = width
	return Model{
		keys:   keys,
		help:   h,
		width:  width,
		height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the help view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// View renders the help overlay: the full key reference, the folder
// number legend, and the mutation rules worth knowing before pressing d.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	title := titleStyle.Render("ace-mail keys")

	m.help.Width = m.width - 4
	m.help.ShowAll = true
	helpText := m.help.View(m.keys)

	content := lipgloss.JoinVertical(
		lipgloss.Left,
		title,
		helpText,
		"",
		m.folderLegend(),
		"",
		m.notes(),
	)

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Height(m.height - 4).
		Render(content)
}

// folderLegend maps the number keys to folder names.
func (m Model) folderLegend() string {
	labelStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite)

	parts := make([]string, 0, len(model.Folders))
	for i, folder := range model.Folders {
		parts = append(parts, fmt.Sprintf("%d %s", i+1, folder))
	}

	return labelStyle.Render("Folders  ") +
		lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Render(strings.Join(parts, "   "))
}

// notes lists the behaviors that are easy to get wrong.
func (m Model) notes() string {
	noteStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
	return noteStyle.Render(strings.Join([]string{
		"With nothing selected, actions apply to the focused message.",
		"Deleting inside trash removes the message permanently.",
		"Read and star marks live on this machine only.",
	}, "\n"))
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 4
}
