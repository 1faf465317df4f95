// Package activity is the admin activity log table.
package activity

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/giftcard-console/internal/feed"
	"github.com/nhle/giftcard-console/internal/keys"
	"github.com/nhle/giftcard-console/internal/model"
	"github.com/nhle/giftcard-console/internal/theme"
	"github.com/nhle/giftcard-console/internal/ui"
	"github.com/nhle/giftcard-console/internal/ui/intent"
)

// Model is the activity log table view.
type Model struct {
	table      table.Model
	keys       *keys.KeyMap
	entries    []model.ActivityLog
	filter     model.ActivityFilter
	pagination model.Pagination
	stale      bool
	loaded     bool
	err        string
	formErr    string
	showDetail bool
	form       *filterForm
	now        func() time.Time
	width      int
	height     int
}

// New creates an empty activity table.
func New(k *keys.KeyMap, width, height int) Model {
	t := table.New(
		table.WithColumns(columns(width)),
		table.WithFocused(true),
		table.WithHeight(tableHeight(height)),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(theme.ColorBorder).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(theme.ColorWhite).
		Background(theme.ColorBlue).
		Bold(true)
	t.SetStyles(styles)

	return Model{
		table:  t,
		keys:   k,
		filter: model.DefaultActivityFilter(),
		now:    time.Now,
		width:  width,
		height: height,
	}
}

// columns splits width across the table columns, giving the remainder to
// the description.
func columns(width int) []table.Column {
	fixed := []table.Column{
		{Title: "When", Width: 10},
		{Title: "Severity", Width: 9},
		{Title: "Category", Width: 11},
		{Title: "Action", Width: 22},
		{Title: "Actor", Width: 14},
	}
	used := 0
	for _, c := range fixed {
		used += c.Width + 2
	}
	desc := width - used - 2
	if desc < 12 {
		desc = 12
	}
	return append(fixed, table.Column{Title: "Description", Width: desc})
}

func tableHeight(height int) int {
	h := height - 6
	if h < 3 {
		h = 3
	}
	return h
}

// SetClock replaces time.Now for relative timestamps.
func (m *Model) SetClock(now func() time.Time) { m.now = now }

// SetView shows a rendered feed view for filter f.
func (m *Model) SetView(v feed.View[model.ActivityLog], f model.ActivityFilter) {
	m.filter = f
	m.pagination = v.Pagination
	m.stale = v.Stale
	m.loaded = true
	m.entries = v.Items
	m.err = ""
	if v.Err != nil {
		m.err = v.Err.Error()
	}

	rows := make([]table.Row, len(v.Items))
	for i, e := range v.Items {
		rows[i] = table.Row{
			ui.RelativeTime(e.CreatedAt, m.now()),
			string(e.Severity),
			ui.Humanize(string(e.Category)),
			e.Action,
			actor(e),
			e.Description,
		}
	}
	m.table.SetRows(rows)
	if m.table.Cursor() >= len(rows) {
		m.table.SetCursor(max(len(rows)-1, 0))
	}
}

func actor(e model.ActivityLog) string {
	switch {
	case e.ActorType != "" && e.ActorID != "":
		return e.ActorType + ":" + e.ActorID
	case e.ActorID != "":
		return e.ActorID
	default:
		return e.ActorType
	}
}

// Filter returns the filter of the shown page.
func (m Model) Filter() model.ActivityFilter { return m.filter }

// Selected returns the entry under the cursor.
func (m Model) Selected() (model.ActivityLog, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.entries) {
		return model.ActivityLog{}, false
	}
	return m.entries[i], true
}

// Capturing reports whether the filter form owns the keyboard.
func (m Model) Capturing() bool { return m.form != nil }

// Update handles messages for the table view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form != nil {
		return m.updateForm(msg)
	}

	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(km, m.keys.Filter):
		m.formErr = ""
		m.form = newFilterForm(m.filter, m.width)
		return m, m.form.form.Init()

	case key.Matches(km, m.keys.ResetFilters):
		return m, intent.Emit(intent.ResetFiltersMsg{View: intent.ViewActivity})

	case key.Matches(km, m.keys.NextPage):
		if m.filter.Page < m.pagination.TotalPages {
			return m, intent.Emit(intent.PageMsg{View: intent.ViewActivity, Page: m.filter.Page + 1})
		}
		return m, nil

	case key.Matches(km, m.keys.PrevPage):
		if m.filter.Page > 1 {
			return m, intent.Emit(intent.PageMsg{View: intent.ViewActivity, Page: m.filter.Page - 1})
		}
		return m, nil

	case key.Matches(km, m.keys.Select):
		m.showDetail = !m.showDetail
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	done, aborted, cmd := m.form.update(msg)
	switch {
	case done:
		f, err := m.form.filter()
		m.form = nil
		if err != nil {
			m.formErr = err.Error()
			return m, nil
		}
		return m, intent.Emit(intent.ActivityFilterMsg{Filter: f})
	case aborted:
		m.form = nil
		return m, nil
	}
	return m, cmd
}

// View renders the table.
func (m Model) View() string {
	if m.form != nil {
		title := theme.TitleStyle.Render("Filter activity")
		return lipgloss.NewStyle().Padding(1, 2).Render(title + "\n" + m.form.form.View())
	}

	var body string
	switch {
	case !m.loaded:
		body = m.centered("Loading activity…")
	case len(m.entries) == 0 && m.err != "":
		body = m.centered("Could not load activity logs.\n" + m.err + "\n\nPress r to retry.")
	case len(m.entries) == 0 && !m.filter.IsDefault():
		body = m.centered("No matching activity.\nPress x to reset filters.")
	case len(m.entries) == 0:
		body = m.centered("No activity recorded yet.")
	default:
		body = m.table.View()
		if m.showDetail {
			if e, ok := m.Selected(); ok {
				body = lipgloss.JoinVertical(lipgloss.Left, body, renderDetail(e, m.width))
			}
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, theme.TitleStyle.Render("Activity logs"), body, m.footer())
}

func (m Model) footer() string {
	parts := []string{ui.PageSummary(m.filter.Page, m.pagination.TotalPages, m.pagination.Total)}
	if s := m.FilterSummary(); s != "" {
		parts = append(parts, s)
	}
	if m.stale {
		parts = append(parts, "refreshing…")
	}
	if m.formErr != "" {
		parts = append(parts, lipgloss.NewStyle().Foreground(theme.ColorRed).Render(m.formErr))
	}
	if m.err != "" && len(m.entries) > 0 {
		parts = append(parts, lipgloss.NewStyle().Foreground(theme.ColorRed).Render(m.err))
	}
	return theme.HelpStyle.Render(strings.Join(parts, " · "))
}

// FilterSummary describes the active predicates, empty when none.
func (m Model) FilterSummary() string {
	f := m.filter
	var parts []string
	add := func(label, v string) {
		if v != "" {
			parts = append(parts, label+": "+v)
		}
	}
	add("category", string(f.Category))
	add("severity", string(f.Severity))
	add("from", f.StartDate)
	add("to", f.EndDate)
	add("merchant", f.MerchantID)
	add("actor", f.ActorID)
	add("resource", strings.Trim(f.ResourceType+":"+f.ResourceID, ":"))
	add("search", f.Search)
	return strings.Join(parts, ", ")
}

// renderDetail shows every field of an entry, metadata keys sorted.
func renderDetail(e model.ActivityLog, width int) string {
	lines := []string{
		theme.SeverityStyle(e.Severity).Render(strings.ToUpper(string(e.Severity))) + " " + e.Action,
		e.Description,
		fmt.Sprintf("at %s", e.CreatedAt.Format(time.RFC1123)),
	}
	if e.ResourceType != "" {
		lines = append(lines, fmt.Sprintf("resource %s %s", e.ResourceType, e.ResourceID))
	}
	if e.MerchantID != "" {
		lines = append(lines, "merchant "+e.MerchantID)
	}
	if e.IPAddress != "" {
		lines = append(lines, "from "+e.IPAddress+" "+e.UserAgent)
	}
	keys := make([]string, 0, len(e.Metadata))
	for k := range e.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("%s = %v", k, e.Metadata[k]))
	}
	return theme.PanelStyle.Width(width - 4).Render(strings.Join(lines, "\n"))
}

func (m Model) centered(text string) string {
	return theme.EmptyStyle.
		Width(m.width).
		Height(m.height - 4).
		Render(text)
}

// SetSize updates the table dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.table.SetColumns(columns(width))
	m.table.SetHeight(tableHeight(height))
}
