// Package notifications is the paginated notification list page.
package notifications

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/giftcard-console/internal/feed"
	"github.com/nhle/giftcard-console/internal/keys"
	"github.com/nhle/giftcard-console/internal/model"
	"github.com/nhle/giftcard-console/internal/theme"
	"github.com/nhle/giftcard-console/internal/ui"
	"github.com/nhle/giftcard-console/internal/ui/intent"
)

// Model is the notification list view component.
type Model struct {
	list        list.Model
	delegate    *Delegate
	keys        *keys.KeyMap
	filter      model.NotificationFilter
	pagination  model.Pagination
	stale       bool
	loaded      bool
	err         string
	searchMode  bool
	searchInput textinput.Model
	form        *filterForm
	width       int
	height      int
}

// New creates a new notification list model.
func New(k *keys.KeyMap, width, height int) Model {
	delegate := &Delegate{now: time.Now, pending: func(string) bool { return false }}
	l := list.New([]list.Item{}, delegate, width, height-2)
	l.Title = "Notifications"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.SetShowPagination(false)
	l.Styles.Title = theme.HeaderStyle

	si := textinput.New()
	si.Placeholder = "search notifications..."
	si.Prompt = "/ "
	si.Width = width - 4

	return Model{
		list:        l,
		delegate:    delegate,
		keys:        k,
		filter:      model.DefaultNotificationFilter(),
		searchInput: si,
		width:       width,
		height:      height,
	}
}

// SetPending installs the predicate that marks rows with an in-flight
// mutation.
func (m *Model) SetPending(fn func(id string) bool) {
	if fn != nil {
		m.delegate.pending = fn
	}
}

// SetClock replaces time.Now for relative timestamps.
func (m *Model) SetClock(now func() time.Time) { m.delegate.now = now }

// SetView shows a rendered feed view for filter f.
func (m *Model) SetView(v feed.View[model.Notification], f model.NotificationFilter) tea.Cmd {
	m.filter = f
	m.pagination = v.Pagination
	m.stale = v.Stale
	m.loaded = true
	m.err = ""
	if v.Err != nil {
		m.err = v.Err.Error()
	}

	items := make([]list.Item, len(v.Items))
	for i, n := range v.Items {
		items[i] = Item{Notification: n}
	}
	return m.list.SetItems(items)
}

// Filter returns the filter of the shown page.
func (m Model) Filter() model.NotificationFilter { return m.filter }

// Selected returns the notification under the cursor.
func (m Model) Selected() (model.Notification, bool) {
	it, ok := m.list.SelectedItem().(Item)
	if !ok {
		return model.Notification{}, false
	}
	return it.Notification, true
}

// Capturing reports whether the view owns the keyboard (search or form),
// so global keys must not be intercepted.
func (m Model) Capturing() bool {
	return m.searchMode || m.form != nil
}

// Update handles messages for the list view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form != nil {
		return m.updateForm(msg)
	}

	if km, ok := msg.(tea.KeyMsg); ok {
		if m.searchMode {
			return m.handleSearchKeys(km)
		}
		return m.handleNormalKeys(km)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	done, aborted, cmd := m.form.update(msg)
	switch {
	case done:
		f := m.form.filter()
		m.form = nil
		return m, intent.Emit(intent.NotificationFilterMsg{Filter: f})
	case aborted:
		m.form = nil
		return m, nil
	}
	return m, cmd
}

// handleSearchKeys processes key input while in search mode.
func (m Model) handleSearchKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searchMode = false
		f := m.filter
		f.Search = strings.TrimSpace(m.searchInput.Value())
		f.Page = 1
		return m, intent.Emit(intent.NotificationFilterMsg{Filter: f})

	case "esc":
		m.searchMode = false
		m.searchInput.Reset()
		if m.filter.Search == "" {
			return m, nil
		}
		f := m.filter
		f.Search = ""
		f.Page = 1
		return m, intent.Emit(intent.NotificationFilterMsg{Filter: f})
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

// handleNormalKeys processes key input in normal mode.
func (m Model) handleNormalKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Search):
		m.searchMode = true
		m.searchInput.SetValue(m.filter.Search)
		return m, m.searchInput.Focus()

	case key.Matches(msg, m.keys.Filter):
		m.form = newFilterForm(m.filter, m.width)
		return m, m.form.form.Init()

	case key.Matches(msg, m.keys.ResetFilters):
		return m, intent.Emit(intent.ResetFiltersMsg{View: intent.ViewNotifications})

	case key.Matches(msg, m.keys.NextPage):
		if m.filter.Page < m.pagination.TotalPages {
			return m, intent.Emit(intent.PageMsg{View: intent.ViewNotifications, Page: m.filter.Page + 1})
		}
		return m, nil

	case key.Matches(msg, m.keys.PrevPage):
		if m.filter.Page > 1 {
			return m, intent.Emit(intent.PageMsg{View: intent.ViewNotifications, Page: m.filter.Page - 1})
		}
		return m, nil

	case key.Matches(msg, m.keys.MarkRead), key.Matches(msg, m.keys.Select):
		if n, ok := m.Selected(); ok && !n.IsRead && !m.delegate.pending(n.ID) {
			return m, intent.Emit(intent.MarkReadMsg{ID: n.ID})
		}
		return m, nil

	case key.Matches(msg, m.keys.MarkAllRead):
		if !m.delegate.pending("") {
			return m, intent.Emit(intent.MarkAllReadMsg{})
		}
		return m, nil

	case key.Matches(msg, m.keys.Delete):
		if n, ok := m.Selected(); ok && !m.delegate.pending(n.ID) {
			return m, intent.Emit(intent.DeleteMsg{ID: n.ID})
		}
		return m, nil
	}

	// Delegate to the list for navigation keys
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the list view.
func (m Model) View() string {
	if m.form != nil {
		title := theme.TitleStyle.Render("Filter notifications")
		return lipgloss.NewStyle().Padding(1, 2).Render(title + "\n" + m.form.form.View())
	}

	var body string
	switch {
	case !m.loaded:
		body = m.centered("Loading notifications…")
	case len(m.list.Items()) == 0:
		body = m.renderEmptyState()
	default:
		body = m.list.View()
	}

	parts := []string{}
	if m.searchMode {
		parts = append(parts, lipgloss.NewStyle().
			Foreground(theme.ColorWhite).
			Padding(0, 1).
			Render(m.searchInput.View()))
	}
	parts = append(parts, body, m.footer())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// footer shows pagination, active predicates and fetch state.
func (m Model) footer() string {
	parts := []string{ui.PageSummary(m.filter.Page, m.pagination.TotalPages, m.pagination.Total)}
	if s := m.FilterSummary(); s != "" {
		parts = append(parts, s)
	}
	if m.stale {
		parts = append(parts, "refreshing…")
	}
	if m.err != "" {
		parts = append(parts, lipgloss.NewStyle().Foreground(theme.ColorRed).Render(m.err))
	}
	return theme.HelpStyle.Padding(0, 2).Render(strings.Join(parts, " · "))
}

// FilterSummary describes the active predicates, empty when none.
func (m Model) FilterSummary() string {
	var parts []string
	if m.filter.Type != "" {
		parts = append(parts, "type: "+ui.Humanize(string(m.filter.Type)))
	}
	if m.filter.UnreadOnly {
		parts = append(parts, "unread only")
	}
	if m.filter.Search != "" {
		parts = append(parts, "search: "+m.filter.Search)
	}
	return strings.Join(parts, ", ")
}

// renderEmptyState shows guidance text when the page has no records.
func (m Model) renderEmptyState() string {
	if m.err != "" {
		return m.centered("Could not load notifications.\n" + m.err + "\n\nPress r to retry.")
	}
	if !m.filter.IsDefault() {
		return m.centered("No matching notifications.\nPress x to reset filters.")
	}
	if m.filter.Page > 1 {
		return m.centered("Nothing on this page.\nPress [ to go back.")
	}
	return m.centered("You're all caught up.\n\nNew notifications appear here as they arrive.")
}

func (m Model) centered(text string) string {
	return theme.EmptyStyle.
		Width(m.width).
		Height(m.height - 2).
		Render(text)
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
	m.searchInput.Width = width - 4
}
