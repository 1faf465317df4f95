// Package livefeed renders activity entries pushed over the realtime
// connection, newest first.
package livefeed

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
)

// Model is the live activity feed view.
type Model struct {
	keys    *keys.KeyMap
	entries []model.ActivityLog
	cursor  int
	offset  int
	now     func() time.Time
	width   int
	height  int
}

// New creates an empty feed.
func New(k *keys.KeyMap, width, height int) Model {
	return Model{keys: k, now: time.Now, width: width, height: height}
}

// SetClock replaces time.Now for relative timestamps.
func (m *Model) SetClock(now func() time.Time) { m.now = now }

// SetEntries replaces the shown entries. The cursor stays on the same
// entry when it is still present.
func (m *Model) SetEntries(entries []model.ActivityLog) {
	var selected string
	if e, ok := m.Selected(); ok {
		selected = e.ID
	}
	m.entries = entries
	m.cursor = 0
	for i, e := range entries {
		if e.ID == selected {
			m.cursor = i
			break
		}
	}
	m.clampOffset()
}

// Selected returns the entry under the cursor.
func (m Model) Selected() (model.ActivityLog, bool) {
	if m.cursor < 0 || m.cursor >= len(m.entries) {
		return model.ActivityLog{}, false
	}
	return m.entries[m.cursor], true
}

// Len returns the number of entries shown.
func (m Model) Len() int { return len(m.entries) }

// Update handles cursor movement.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(km, m.keys.Down):
		if m.cursor < len(m.entries)-1 {
			m.cursor++
		}
	case key.Matches(km, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	}
	m.clampOffset()
	return m, nil
}

func (m *Model) visibleRows() int {
	rows := m.height - 3
	if rows < 1 {
		rows = 1
	}
	return rows
}

func (m *Model) clampOffset() {
	rows := m.visibleRows()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+rows {
		m.offset = m.cursor - rows + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

// View renders the feed.
func (m Model) View() string {
	title := theme.TitleStyle.Render("Live activity")
	if len(m.entries) == 0 {
		empty := theme.EmptyStyle.
			Width(m.width).
			Height(m.height - 2).
			Render("Waiting for activity…\n\nEntries appear here as they happen.")
		return lipgloss.JoinVertical(lipgloss.Left, title, empty)
	}

	now := m.now()
	end := min(m.offset+m.visibleRows(), len(m.entries))
	lines := make([]string, 0, end-m.offset)
	for i := m.offset; i < end; i++ {
		lines = append(lines, m.renderRow(m.entries[i], now, i == m.cursor))
	}

	footer := theme.HelpStyle.Render(fmt.Sprintf("%d recent", len(m.entries)))
	return lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(lines, "\n"), footer)
}

func (m Model) renderRow(e model.ActivityLog, now time.Time, selected bool) string {
	sev := theme.SeverityStyle(e.Severity).Width(9).Render(string(e.Severity))
	when := theme.DimmedStyle.Width(10).Render(ui.RelativeTime(e.CreatedAt, now))
	text := e.Action
	if e.Description != "" {
		text += " · " + e.Description
	}
	text = ui.Truncate(text, m.width-24)

	row := when + " " + sev + " " + text
	if selected {
		return theme.SelectedItemStyle.Render(row)
	}
	return theme.ListItemStyle.Render(row)
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.clampOffset()
}
