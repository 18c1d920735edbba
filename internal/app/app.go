// Package app is the root Bubble Tea model: it routes between the list,
// message, help, and setup views, and translates key presses into engine
// operations.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Somdatta-dev/ace-mail/internal/engine"
	"github.com/Somdatta-dev/ace-mail/internal/gateway"
	"github.com/Somdatta-dev/ace-mail/internal/keys"
	"github.com/Somdatta-dev/ace-mail/internal/model"
	appsync "github.com/Somdatta-dev/ace-mail/internal/sync"
	"github.com/Somdatta-dev/ace-mail/internal/ui"
	"github.com/Somdatta-dev/ace-mail/internal/ui/detail"
	helpview "github.com/Somdatta-dev/ace-mail/internal/ui/help"
	"github.com/Somdatta-dev/ace-mail/internal/ui/maillist"
	"github.com/Somdatta-dev/ace-mail/internal/ui/setup"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewList ViewState = iota
	ViewDetail
	ViewHelp
	ViewSetup
)

// opDoneMsg reports the outcome of an engine operation run as a command.
type opDoneMsg struct {
	err error
}

// Model is the root Bubble Tea model.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout

	config    *model.AppConfig
	client    *gateway.Client
	engine    *engine.Engine
	scheduler *appsync.Scheduler
	logger    *slog.Logger

	keys      *keys.KeyMap
	mailList  maillist.Model
	detail    detail.Model
	helpView  helpview.Model
	setupView setup.Model

	ready     bool
	statusMsg string
}

// New creates the root application model. With needsSetup the first-run
// gateway form is shown before the mail views.
func New(
	cfg *model.AppConfig,
	client *gateway.Client,
	eng *engine.Engine,
	sched *appsync.Scheduler,
	logger *slog.Logger,
	needsSetup bool,
) Model {
	if logger == nil {
		logger = slog.Default()
	}
	k := keys.DefaultKeyMap()

	view := ViewList
	if needsSetup {
		view = ViewSetup
	}

	return Model{
		currentView: view,
		config:      cfg,
		client:      client,
		engine:      eng,
		scheduler:   sched,
		logger:      logger,
		keys:        k,
		mailList:    maillist.New(k, 80, 24),
		detail:      detail.New(k, 80, 24),
		helpView:    helpview.New(k, 80, 24),
		setupView:   setup.New(cfg, 80, 24),
	}
}

// Init loads the initial folder page and starts the auto-sync timer, or
// enters setup when the gateway is not configured yet.
func (m Model) Init() tea.Cmd {
	if m.currentView == ViewSetup {
		return m.setupView.Init()
	}
	return tea.Batch(
		m.loadPage(1),
		m.scheduler.Start(),
	)
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		contentWidth := m.layout.ContentWidth()
		contentHeight := m.layout.ContentHeight()
		m.mailList.SetSize(contentWidth, contentHeight)
		m.detail.SetSize(contentWidth, contentHeight)
		m.helpView.SetSize(contentWidth, contentHeight)
		m.setupView.SetSize(contentWidth, contentHeight)
		// Forward to the active view so huh forms can lay themselves out.
		return m.updateActiveView(msg)

	case appsync.TickResultMsg:
		// Auto-sync merged new messages; re-render and keep listening.
		m.refreshList()
		return m, m.scheduler.WaitForNextResult()

	case opDoneMsg:
		if msg.err != nil {
			m.statusMsg = msg.err.Error()
			if gateway.IsAuthError(msg.err) {
				m.statusMsg = "gateway rejected credentials; check your token"
			}
		} else {
			m.statusMsg = ""
		}
		m.refreshList()
		return m, nil

	case maillist.OpenMsg:
		rec, err := m.engine.Open(msg.ID)
		if err != nil {
			m.statusMsg = err.Error()
			return m, nil
		}
		m.detail.SetEmail(rec)
		m.previousView = m.currentView
		m.currentView = ViewDetail
		m.refreshList()
		return m, nil

	case maillist.ToggleSelectMsg:
		if err := m.engine.ToggleSelect(msg.ID); err != nil {
			m.statusMsg = err.Error()
		}
		m.refreshList()
		return m, nil

	case maillist.SearchMsg:
		return m, m.runSearch(msg.Query)

	case maillist.ClearSearchMsg:
		m.engine.ClearSearch()
		m.refreshList()
		return m, nil

	case maillist.PageMsg:
		return m, m.loadPage(msg.Page)

	case detail.BackMsg:
		m.engine.CloseView()
		m.currentView = ViewList
		m.refreshList()
		return m, nil

	case detail.ActionMsg:
		return m.handleDetailAction(msg)

	case setup.DoneMsg:
		m.config = msg.Config
		m.client.SetBaseURL(msg.Config.Gateway.BaseURL)
		m.currentView = ViewList
		return m, tea.Batch(
			m.manualSync(),
			m.scheduler.Start(),
		)

	case setup.CancelMsg:
		m.scheduler.Stop()
		return m, tea.Quit

	case tea.KeyMsg:
		return m.handleGlobalKeys(msg)
	}

	return m.updateActiveView(msg)
}

// handleGlobalKeys processes keys that work across views, then falls
// through to the active view.
func (m Model) handleGlobalKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Setup and search input need raw key access.
	if m.currentView == ViewSetup || m.mailList.InSearchMode() {
		if msg.String() == "ctrl+c" {
			m.scheduler.Stop()
			return m, tea.Quit
		}
		return m.updateActiveView(msg)
	}

	switch msg.String() {
	case "ctrl+c":
		m.scheduler.Stop()
		return m, tea.Quit

	case "q":
		if m.currentView == ViewList {
			m.scheduler.Stop()
			return m, tea.Quit
		}

	case "?":
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return m, nil
		}
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return m, nil

	case "r":
		if m.currentView == ViewList {
			return m, m.manualSync()
		}

	case "a":
		if m.currentView == ViewList {
			enabled := !m.engine.AutoSyncEnabled()
			return m, m.setAutoSync(enabled)
		}

	case "s":
		if m.currentView == ViewList {
			if id, ok := m.mailList.SelectedID(); ok {
				if err := m.engine.ToggleStar(id); err != nil {
					m.statusMsg = err.Error()
				}
				m.refreshList()
			}
			return m, nil
		}

	case "m":
		if m.currentView == ViewList {
			return m, m.runAction(gateway.ActionMarkRead)
		}

	case "u":
		if m.currentView == ViewList {
			return m, m.runAction(gateway.ActionMarkUnread)
		}

	case "d":
		if m.currentView == ViewList {
			return m, m.runAction(gateway.ActionDelete)
		}

	case "e":
		if m.currentView == ViewList {
			return m, m.runAction(gateway.ActionArchive)
		}

	case "R":
		if m.currentView == ViewList {
			return m, m.runAction(gateway.ActionRestore)
		}

	case "ctrl+a":
		if m.currentView == ViewList {
			m.engine.SelectAll()
			m.refreshList()
			return m, nil
		}

	case "ctrl+x":
		if m.currentView == ViewList {
			m.engine.ClearSelection()
			m.refreshList()
			return m, nil
		}

	case "1", "2", "3", "4", "5", "6":
		if m.currentView == ViewList {
			idx, _ := strconv.Atoi(msg.String())
			if idx >= 1 && idx <= len(model.Folders) {
				return m, m.switchFolder(model.Folders[idx-1])
			}
		}
	}

	return m.updateActiveView(msg)
}

// handleDetailAction runs a single-message action from the message view.
func (m Model) handleDetailAction(msg detail.ActionMsg) (tea.Model, tea.Cmd) {
	if msg.Action == "star" {
		if err := m.engine.ToggleStar(msg.ID); err != nil {
			m.statusMsg = err.Error()
			return m, nil
		}
		if rec, err := m.engine.Open(msg.ID); err == nil {
			m.detail.SetEmail(rec)
		}
		m.refreshList()
		return m, nil
	}

	// delete/archive/restore drop the message from the folder, so leave
	// the message view.
	m.currentView = ViewList
	action := gateway.Action(msg.Action)
	id := msg.ID
	eng := m.engine
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), m.requestTimeout())
		defer cancel()
		return opDoneMsg{err: eng.SingleAction(ctx, id, action)}
	}
}

// runAction applies an action to the selection, or to the focused
// message when nothing is selected.
func (m *Model) runAction(action gateway.Action) tea.Cmd {
	if len(m.engine.Selected()) == 0 {
		id, ok := m.mailList.SelectedID()
		if !ok {
			return nil
		}
		if action.RemoteAction() {
			eng := m.engine
			timeout := m.requestTimeout()
			return func() tea.Msg {
				ctx, cancel := context.WithTimeout(context.Background(), timeout)
				defer cancel()
				return opDoneMsg{err: eng.SingleAction(ctx, id, action)}
			}
		}
		if err := m.engine.ToggleSelect(id); err != nil {
			m.statusMsg = err.Error()
			return nil
		}
	}

	eng := m.engine
	timeout := m.requestTimeout()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return opDoneMsg{err: eng.BulkAction(ctx, action)}
	}
}

// manualSync runs a full sync as a command.
func (m Model) manualSync() tea.Cmd {
	eng := m.engine
	timeout := m.requestTimeout()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return opDoneMsg{err: eng.ManualSync(ctx)}
	}
}

// setAutoSync flips the auto-sync toggle and re-arms the timer.
func (m Model) setAutoSync(enabled bool) tea.Cmd {
	eng := m.engine
	sched := m.scheduler
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		eng.SetAutoSync(ctx, enabled)
		sched.SetEnabled(enabled)
		return opDoneMsg{}
	}
}

// switchFolder changes the active folder as a command.
func (m Model) switchFolder(folder string) tea.Cmd {
	eng := m.engine
	timeout := m.requestTimeout()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return opDoneMsg{err: eng.SwitchFolder(ctx, folder)}
	}
}

// loadPage fetches a listing page as a command.
func (m Model) loadPage(page int) tea.Cmd {
	eng := m.engine
	timeout := m.requestTimeout()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return opDoneMsg{err: eng.LoadPage(ctx, page)}
	}
}

// runSearch queries the gateway as a command.
func (m Model) runSearch(query string) tea.Cmd {
	eng := m.engine
	timeout := m.requestTimeout()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return opDoneMsg{err: eng.Search(ctx, query)}
	}
}

// requestTimeout is the per-operation deadline for engine commands.
func (m Model) requestTimeout() time.Duration {
	sec := m.config.Gateway.TimeoutSec
	if sec <= 0 {
		sec = 30
	}
	// Headroom over the HTTP timeout so retries can finish.
	return time.Duration(2*sec) * time.Second
}

// refreshList pushes the engine's current state into the list view.
func (m *Model) refreshList() {
	searching := m.engine.SearchQuery() != ""

	var records []model.EmailRecord
	if searching {
		records = m.engine.SearchResults()
	} else {
		records = m.engine.Emails()
	}

	checked := make(map[int64]bool)
	for _, id := range m.engine.Selected() {
		checked[id] = true
	}

	m.mailList.SetEmails(records, checked, searching, m.engine.SearchQuery())

	_, page, pages := m.engine.Pagination()
	m.mailList.SetPagination(page, pages)
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewList:
		m.mailList, cmd = m.mailList.Update(msg)
	case ViewDetail:
		m.detail, cmd = m.detail.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewSetup:
		m.setupView, cmd = m.setupView.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	if m.currentView == ViewSetup {
		return m.setupView.View()
	}

	headerTitle := "ace-mail"
	if unread := m.engine.UnreadCount(); unread > 0 {
		headerTitle = fmt.Sprintf("ace-mail [%d unread]", unread)
	}
	header := m.layout.RenderHeader(headerTitle, m.syncStatus())
	folderBar := m.layout.RenderFolderBar(
		model.Folders, m.engine.Folder(), m.engine.UnreadCount(),
	)
	content := m.renderContent()
	statusBar := m.layout.RenderStatusBar(m.keyHints())

	return m.layout.RenderWithFrame(header, folderBar, content, statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewList:
		return m.mailList.View()
	case ViewDetail:
		return m.detail.View()
	case ViewHelp:
		return m.helpView.View()
	default:
		return ""
	}
}

// syncStatus returns a short string describing the sync state.
func (m Model) syncStatus() string {
	state := m.engine.State()

	switch {
	case state.ManualBusy:
		return "syncing..."
	case state.AutoBusy:
		return "auto-syncing..."
	case !state.AutoSyncEnabled:
		return "auto-sync off"
	case state.LastSyncAt.IsZero():
		return "never synced"
	default:
		return "synced " + state.LastSyncAt.Format("15:04:05")
	}
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	if m.statusMsg != "" && m.currentView == ViewList {
		return m.statusMsg
	}

	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewDetail:
		return "esc back | s star | d delete | e archive | R restore | j/k scroll"
	default:
		if n := len(m.engine.Selected()); n > 0 {
			return fmt.Sprintf(
				"%d selected | m read | u unread | d delete | e archive | R restore | ctrl+x clear",
				n,
			)
		}
		return "q quit | ? help | / search | space select | r sync | a auto-sync | 1-6 folders"
	}
}
