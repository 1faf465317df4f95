// Package dropdown is the bell's panel of latest notifications.
package dropdown

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/giftcard-console/internal/keys"
	"github.com/nhle/giftcard-console/internal/model"
	"github.com/nhle/giftcard-console/internal/theme"
	"github.com/nhle/giftcard-console/internal/ui"
	"github.com/nhle/giftcard-console/internal/ui/bell"
	"github.com/nhle/giftcard-console/internal/ui/intent"
)

// MaxItems is how many notifications the panel lists.
const MaxItems = 8

// Model is the dropdown panel.
type Model struct {
	keys    *keys.KeyMap
	items   []model.Notification
	unread  int
	cursor  int
	err     string
	loaded  bool
	pending func(id string) bool
	now     func() time.Time
	width   int
}

// New creates an empty dropdown.
func New(k *keys.KeyMap, width int) Model {
	return Model{
		keys:    k,
		pending: func(string) bool { return false },
		now:     time.Now,
		width:   width,
	}
}

// SetItems replaces the listed notifications, keeping the cursor in range.
func (m *Model) SetItems(items []model.Notification, err error) {
	if len(items) > MaxItems {
		items = items[:MaxItems]
	}
	m.items = items
	m.loaded = true
	m.err = ""
	if err != nil {
		m.err = err.Error()
	}
	if m.cursor >= len(m.items) {
		m.cursor = max(len(m.items)-1, 0)
	}
}

// SetUnread updates the count shown in the panel title.
func (m *Model) SetUnread(n int) { m.unread = n }

// SetPending installs the predicate that marks rows with an in-flight
// mutation.
func (m *Model) SetPending(fn func(id string) bool) {
	if fn != nil {
		m.pending = fn
	}
}

// SetClock replaces time.Now for relative timestamps.
func (m *Model) SetClock(now func() time.Time) { m.now = now }

// SetSize updates the panel width.
func (m *Model) SetSize(width int) { m.width = width }

// Selected returns the notification under the cursor.
func (m Model) Selected() (model.Notification, bool) {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return model.Notification{}, false
	}
	return m.items[m.cursor], true
}

// Update handles keys while the panel is open.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(km, m.keys.Down):
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case key.Matches(km, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(km, m.keys.MarkRead):
		if n, ok := m.Selected(); ok && !n.IsRead && !m.pending(n.ID) {
			return m, intent.Emit(intent.MarkReadMsg{ID: n.ID})
		}
	case key.Matches(km, m.keys.Delete):
		if n, ok := m.Selected(); ok && !m.pending(n.ID) {
			return m, intent.Emit(intent.DeleteMsg{ID: n.ID})
		}
	case key.Matches(km, m.keys.MarkAllRead):
		if m.unread > 0 && !m.pending("") {
			return m, intent.Emit(intent.MarkAllReadMsg{})
		}
	case key.Matches(km, m.keys.Select):
		return m, intent.Emit(intent.OpenNotificationsMsg{})
	case key.Matches(km, m.keys.Back), key.Matches(km, m.keys.Bell):
		return m, intent.Emit(intent.CloseMsg{})
	}
	return m, nil
}

// View renders the panel.
func (m Model) View() string {
	width := m.panelWidth()
	title := "Notifications"
	if c := bell.Count(m.unread); c != "" {
		title += " " + theme.BadgeStyle.Render(c)
	}

	var body string
	switch {
	case !m.loaded:
		body = theme.DimmedStyle.Render("Loading…")
	case m.err != "" && len(m.items) == 0:
		body = theme.DimmedStyle.Render("Could not load notifications: " + m.err)
	case len(m.items) == 0:
		body = theme.EmptyStyle.Width(width - 4).Render("No notifications yet.")
	default:
		rows := make([]string, len(m.items))
		for i, n := range m.items {
			rows[i] = m.renderRow(n, i == m.cursor, width-6)
		}
		body = strings.Join(rows, "\n")
	}

	footer := theme.HelpStyle.Render("m read · M all read · d delete · enter view all · esc close")
	content := lipgloss.JoinVertical(lipgloss.Left, theme.TitleStyle.Render(title), body, "", footer)
	return theme.PanelStyle.Width(width).Render(content)
}

func (m Model) renderRow(n model.Notification, selected bool, width int) string {
	marker := " "
	if !n.IsRead {
		marker = lipgloss.NewStyle().Foreground(theme.ColorBlue).Render("•")
	}
	if m.pending(n.ID) {
		marker = "…"
	}

	age := ui.RelativeTime(n.CreatedAt, m.now())
	titleWidth := width - lipgloss.Width(age) - 4
	line := fmt.Sprintf("%s %s  %s", marker, ui.Truncate(n.Title, titleWidth), theme.DimmedStyle.Render(age))
	if n.IsRead {
		line = theme.DimmedStyle.Render(line)
	}
	if selected {
		return theme.SelectedItemStyle.Render(line)
	}
	return theme.ListItemStyle.Render(line)
}

func (m Model) panelWidth() int {
	w := m.width / 2
	if w < 40 {
		w = 40
	}
	if w > 72 {
		w = 72
	}
	return w
}
