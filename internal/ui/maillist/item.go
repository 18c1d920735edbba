package maillist

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Somdatta-dev/ace-mail/internal/model"
	"github.com/Somdatta-dev/ace-mail/internal/theme"
)

// MailItem wraps a model.EmailRecord so it can be used in a bubbles/list.
type MailItem struct {
	Email   model.EmailRecord
	Checked bool
}

// FilterValue returns the string used for fuzzy filtering.
func (i MailItem) FilterValue() string { return i.Email.Subject }

// Title returns the subject line for the list.
func (i MailItem) Title() string { return i.Email.Subject }

// Description returns a short summary line for the list.
func (i MailItem) Description() string {
	return fmt.Sprintf("%s | %s", i.Email.Sender, relativeTime(i.Email.ReceivedDate.Time))
}

// ItemDelegate implements list.ItemDelegate for rendering message rows.
type ItemDelegate struct{}

// Height returns the number of lines each row takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between rows.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-row messages (unused).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single message row.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	mi, ok := item.(MailItem)
	if !ok {
		return
	}

	email := mi.Email
	isFocused := index == m.Index()

	check := "[ ]"
	if mi.Checked {
		check = theme.CheckedStyle.Render("[x]")
	}

	readMark := "●"
	if email.IsRead {
		readMark = " "
	}

	star := " "
	if email.IsStarred {
		star = theme.StarStyle.Render("★")
	}

	sender := truncate(email.Sender, 24)
	subject := truncate(email.Subject, 50)
	if subject == "" {
		subject = "(no subject)"
	}

	timeStr := lipgloss.NewStyle().
		Foreground(theme.ColorGray).
		Render(relativeTime(email.ReceivedDate.Time))

	var senderStr, subjectStr string
	if email.IsRead {
		senderStr = theme.ReadStyle.Render(sender)
		subjectStr = theme.ReadStyle.Render(subject)
	} else {
		senderStr = theme.UnreadStyle.Render(sender)
		subjectStr = subject
	}

	line := fmt.Sprintf(
		"%s %s %s %-24s  %s  %s",
		check, readMark, star, senderStr, subjectStr, timeStr,
	)

	if isFocused {
		line = theme.SelectedItemStyle.Render(line)
	} else {
		line = theme.ListItemStyle.Render(line)
	}

	fmt.Fprint(w, line)
}

// truncate shortens s to at most n runes, appending an ellipsis.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 1 {
		return string(runes[:n])
	}
	return string(runes[:n-1]) + "…"
}

// relativeTime returns a human-friendly relative time string.
func relativeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		mins := int(d.Minutes())
		if mins == 1 {
			return "1m ago"
		}
		return fmt.Sprintf("%dm ago", mins)
	case d < 24*time.Hour:
		hrs := int(d.Hours())
		if hrs == 1 {
			return "1h ago"
		}
		return fmt.Sprintf("%dh ago", hrs)
	case d < 7*24*time.Hour:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "1d ago"
		}
		return fmt.Sprintf("%dd ago", days)
	default:
		return t.Format("Jan 02, 2006")
	}
}
