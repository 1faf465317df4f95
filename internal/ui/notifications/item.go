package notifications

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/giftcard-console/internal/model"
	"github.com/nhle/giftcard-console/internal/theme"
	"github.com/nhle/giftcard-console/internal/ui"
)

// Item wraps a notification so it can be used in a bubbles/list.
type Item struct {
	Notification model.Notification
}

// FilterValue returns the string used for fuzzy filtering.
func (i Item) FilterValue() string { return i.Notification.Title }

// Title returns the notification title for the list.
func (i Item) Title() string { return i.Notification.Title }

// Description returns the notification body.
func (i Item) Description() string { return i.Notification.Message }

// Delegate implements list.ItemDelegate for notification rows.
type Delegate struct {
	// pending is shared with the Model so pending marks follow mutations.
	pending func(id string) bool
	now     func() time.Time
}

// Height returns the number of lines each item takes.
func (d Delegate) Height() int { return 2 }

// Spacing returns the number of blank lines between items.
func (d Delegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d Delegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a notification as a headline and a message line.
func (d Delegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(Item)
	if !ok {
		return
	}
	n := it.Notification
	width := m.Width() - 4

	marker := " "
	if !n.IsRead {
		marker = lipgloss.NewStyle().Foreground(theme.ColorBlue).Bold(true).Render("•")
	}
	if d.pending != nil && d.pending(n.ID) {
		marker = "…"
	}

	typeBadge := theme.NotificationTypeStyle(n.Type).Render(ui.Humanize(string(n.Type)))
	age := theme.DimmedStyle.Render(ui.RelativeTime(n.CreatedAt, d.now()))
	titleWidth := width - lipgloss.Width(typeBadge) - lipgloss.Width(age) - 6

	head := fmt.Sprintf("%s %s %s  %s", marker, typeBadge, ui.Truncate(n.Title, titleWidth), age)
	body := "  " + theme.DimmedStyle.Render(ui.Truncate(detail(n), width-2))

	if n.IsRead {
		head = theme.DimmedStyle.Render(head)
	}

	style := theme.ListItemStyle
	if index == m.Index() {
		style = theme.SelectedItemStyle
	}
	fmt.Fprint(w, style.Render(head+"\n"+body))
}

// detail is the second row: the message and who triggered it.
func detail(n model.Notification) string {
	if n.ActorName != "" {
		return n.Message + " · " + n.ActorName
	}
	return n.Message
}
