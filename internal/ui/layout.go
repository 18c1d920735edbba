package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/Somdatta-dev/ace-mail/internal/theme"
)

// Layout manages the terminal layout dimensions: header, folder bar,
// content area, status bar.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	FolderBarHeight int
	StatusBarHeight int
}

// NewLayout creates a Layout with the given terminal dimensions.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		FolderBarHeight: 1,
		StatusBarHeight: 1,
	}
}

// ContentWidth returns the full available width.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the height available for the main content area.
func (l Layout) ContentHeight() int {
	return l.Height - l.HeaderHeight - l.FolderBarHeight - l.StatusBarHeight
}

// RenderHeader renders the top header bar with a title and sync status.
func (l Layout) RenderHeader(title string, syncStatus string) string {
	titleRendered := theme.HeaderStyle.Render(title)

	statusRendered := theme.HeaderStyle.
		Align(lipgloss.Right).
		Render(syncStatus)

	gap := l.Width -
		lipgloss.Width(titleRendered) -
		lipgloss.Width(statusRendered)
	if gap < 0 {
		gap = 0
	}

	filler := theme.HeaderStyle.Render(
		lipgloss.NewStyle().
			Width(gap).
			Background(theme.HeaderStyle.GetBackground()).
			Render(""),
	)

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		titleRendered,
		filler,
		statusRendered,
	)
}

// RenderFolderBar renders the folder tabs with the active folder
// highlighted and an unread badge on the active tab.
func (l Layout) RenderFolderBar(folders []string, active string, unread int) string {
	tabs := make([]string, 0, len(folders))
	for i, folder := range folders {
		label := fmt.Sprintf("%d %s", i+1, folder)
		if folder == active && unread > 0 {
			label = fmt.Sprintf("%s (%d)", label, unread)
		}
		tabs = append(tabs, theme.FolderStyle(folder, folder == active).Render(label))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

// RenderStatusBar renders the bottom status bar with keyboard hints.
func (l Layout) RenderStatusBar(hints string) string {
	rendered := theme.StatusBarStyle.Render(hints)

	gap := l.Width - lipgloss.Width(rendered)
	if gap < 0 {
		gap = 0
	}

	filler := theme.StatusBarStyle.Render(
		lipgloss.NewStyle().
			Width(gap).
			Background(theme.StatusBarStyle.GetBackground()).
			Render(""),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, rendered, filler)
}

// RenderWithFrame composes a full terminal view by vertically joining
// the header, folder bar, content area, and status bar.
func (l Layout) RenderWithFrame(
	header string,
	folderBar string,
	content string,
	statusBar string,
) string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		folderBar,
		content,
		statusBar,
	)
}
