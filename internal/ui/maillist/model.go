package maillist

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Somdatta-dev/ace-mail/internal/keys"
	"github.com/Somdatta-dev/ace-mail/internal/model"
	"github.com/Somdatta-dev/ace-mail/internal/theme"
)

// OpenMsg is sent when the user opens the focused message.
type OpenMsg struct {
	ID int64
}

// ToggleSelectMsg is sent when the user checks or unchecks the focused
// message.
type ToggleSelectMsg struct {
	ID int64
}

// SearchMsg is sent when the user submits a search query.
type SearchMsg struct {
	Query string
}

// ClearSearchMsg is sent when the user leaves search mode.
type ClearSearchMsg struct{}

// PageMsg is sent when the user pages through the folder listing.
type PageMsg struct {
	Page int
}

// Model is the message list view component. It is a pure render surface:
// the parent owns the data and pushes it in via SetEmails.
type Model struct {
	list        list.Model
	keys        *keys.KeyMap
	searchMode  bool
	searchInput textinput.Model
	searching   bool // a search result list is installed
	page        int
	totalPages  int
	width       int
	height      int
}

// New creates a new message list model.
func New(k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, ItemDelegate{}, width, height-2)
	l.Title = "Messages"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	si := textinput.New()
	si.Placeholder = "search messages..."
	si.Prompt = "/ "
	si.Width = width - 4

	return Model{
		list:        l,
		keys:        k,
		searchInput: si,
		page:        1,
		totalPages:  1,
		width:       width,
		height:      height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// SetEmails replaces the rendered rows. checked marks which ids are in
// the selection; searching switches the title between folder listing
// and search results.
func (m *Model) SetEmails(
	records []model.EmailRecord,
	checked map[int64]bool,
	searching bool,
	query string,
) {
	items := make([]list.Item, len(records))
	for i, rec := range records {
		items[i] = MailItem{Email: rec, Checked: checked[rec.ID]}
	}
	m.list.SetItems(items)
	m.searching = searching

	if searching {
		m.list.Title = fmt.Sprintf("Search: %q", query)
	} else {
		m.list.Title = "Messages"
	}
}

// SetPagination updates the page indicator.
func (m *Model) SetPagination(page, totalPages int) {
	m.page = page
	m.totalPages = totalPages
}

// SelectedID returns the id of the focused message, if any.
func (m Model) SelectedID() (int64, bool) {
	item, ok := m.list.SelectedItem().(MailItem)
	if !ok {
		return 0, false
	}
	return item.Email.ID, true
}

// InSearchMode reports whether the search input has focus.
func (m Model) InSearchMode() bool {
	return m.searchMode
}

// Update handles messages for the list view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	if m.searchMode {
		return m.handleSearchKeys(keyMsg)
	}
	return m.handleNormalKeys(keyMsg)
}

// handleSearchKeys processes key input while the search input has focus.
func (m Model) handleSearchKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searchMode = false
		query := m.searchInput.Value()
		if query == "" {
			return m, func() tea.Msg { return ClearSearchMsg{} }
		}
		return m, func() tea.Msg { return SearchMsg{Query: query} }

	case "esc":
		m.searchMode = false
		m.searchInput.Reset()
		return m, func() tea.Msg { return ClearSearchMsg{} }
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

// handleNormalKeys processes key input in normal mode.
func (m Model) handleNormalKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Open):
		if id, ok := m.SelectedID(); ok {
			return m, func() tea.Msg { return OpenMsg{ID: id} }
		}
		return m, nil

	case key.Matches(msg, m.keys.Toggle):
		if id, ok := m.SelectedID(); ok {
			return m, func() tea.Msg { return ToggleSelectMsg{ID: id} }
		}
		return m, nil

	case key.Matches(msg, m.keys.Search):
		m.searchMode = true
		m.searchInput.Reset()
		return m, m.searchInput.Focus()

	case key.Matches(msg, m.keys.NextPage):
		if !m.searching && m.page < m.totalPages {
			page := m.page + 1
			return m, func() tea.Msg { return PageMsg{Page: page} }
		}
		return m, nil

	case key.Matches(msg, m.keys.PrevPage):
		if !m.searching && m.page > 1 {
			page := m.page - 1
			return m, func() tea.Msg { return PageMsg{Page: page} }
		}
		return m, nil
	}

	// Delegate to the list for navigation keys (up/down/pgup/pgdn)
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the message list.
func (m Model) View() string {
	if m.searchMode {
		searchBar := lipgloss.NewStyle().
			Foreground(theme.ColorWhite).
			Padding(0, 1).
			Render(m.searchInput.View())
		return lipgloss.JoinVertical(lipgloss.Left, searchBar, m.list.View())
	}

	if len(m.list.Items()) == 0 {
		return m.renderEmptyState()
	}

	main := m.list.View()
	if m.totalPages > 1 && !m.searching {
		pager := lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			PaddingLeft(2).
			Render(fmt.Sprintf("page %d/%d", m.page, m.totalPages))
		return lipgloss.JoinVertical(lipgloss.Left, main, pager)
	}
	return main
}

// renderEmptyState shows guidance text when no messages are available.
func (m Model) renderEmptyState() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	if m.searching {
		return style.Render("No matching messages.")
	}
	return style.Render("No messages in this folder.\n\nPress r to sync.")
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
	m.searchInput.Width = width - 4
}
