package detail

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Somdatta-dev/ace-mail/internal/keys"
	"github.com/Somdatta-dev/ace-mail/internal/model"
	"github.com/Somdatta-dev/ace-mail/internal/theme"
)

// BackMsg signals the parent to navigate back to the list view.
type BackMsg struct{}

// ActionMsg signals the parent to run a single-message action on the
// open message.
type ActionMsg struct {
	Action string
	ID     int64
}

// Model is the single-message view component.
type Model struct {
	email    *model.EmailRecord
	viewport viewport.Model
	keys     *keys.KeyMap
	width    int
	height   int
}

// New creates a new message view model.
func New(k *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport: vp,
		keys:     k,
		width:    width,
		height:   height,
	}
}

// Init returns the initial command for the message view.
func (m Model) Init() tea.Cmd {
	return nil
}

// SetEmail installs the message being displayed.
func (m *Model) SetEmail(email model.EmailRecord) {
	m.email = &email
	m.viewport.SetContent(m.renderContent())
	m.viewport.GotoTop()
}

// Update handles messages for the message view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(keyMsg, m.keys.Back):
			return m, func() tea.Msg { return BackMsg{} }

		case key.Matches(keyMsg, m.keys.Delete):
			return m.emitAction("delete")

		case key.Matches(keyMsg, m.keys.Archive):
			return m.emitAction("archive")

		case key.Matches(keyMsg, m.keys.Restore):
			return m.emitAction("restore")

		case key.Matches(keyMsg, m.keys.Star):
			return m.emitAction("star")
		}
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// emitAction produces an ActionMsg for the open message.
func (m Model) emitAction(action string) (Model, tea.Cmd) {
	if m.email == nil {
		return m, nil
	}
	id := m.email.ID
	return m, func() tea.Msg {
		return ActionMsg{Action: action, ID: id}
	}
}

// View renders the message view.
func (m Model) View() string {
	if m.email == nil {
		emptyStyle := lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray)
		return emptyStyle.Render("No message selected")
	}

	return m.viewport.View()
}

// renderContent builds the full message content string for the viewport.
func (m Model) renderContent() string {
	if m.email == nil {
		return ""
	}

	email := m.email
	var sections []string

	subjectStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	subject := email.Subject
	if subject == "" {
		subject = "(no subject)"
	}
	sections = append(sections, subjectStyle.Render(subject))

	if email.IsStarred {
		sections = append(sections, theme.StarStyle.Render("★ starred"))
	}
	sections = append(sections, "")

	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)

	sections = append(sections, fmt.Sprintf(
		"%s      %s",
		metaStyle.Render("From:"),
		valStyle.Render(email.Sender),
	))
	if email.Recipient != "" {
		sections = append(sections, fmt.Sprintf(
			"%s        %s",
			metaStyle.Render("To:"),
			valStyle.Render(email.Recipient),
		))
	}
	if !email.ReceivedDate.IsZero() {
		sections = append(sections, fmt.Sprintf(
			"%s      %s",
			metaStyle.Render("Date:"),
			valStyle.Render(email.ReceivedDate.Format("2006-01-02 15:04")),
		))
	}
	sections = append(sections, fmt.Sprintf(
		"%s    %s",
		metaStyle.Render("Folder:"),
		valStyle.Render(email.Folder),
	))

	sepStyle := lipgloss.NewStyle().Foreground(theme.ColorSubtle)
	separator := sepStyle.Render(strings.Repeat("─", min(m.width-4, 80)))
	sections = append(sections, "")
	sections = append(sections, separator)
	sections = append(sections, "")

	body := email.BodyFull
	if body == "" {
		body = email.BodyText
	}
	if body == "" {
		body = email.BodyPreview
	}
	if body == "" {
		body = lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Italic(true).
			Render("Empty message")
	}
	sections = append(sections, body)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetSize updates the message view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height - 2
	if m.email != nil {
		m.viewport.SetContent(m.renderContent())
	}
}
