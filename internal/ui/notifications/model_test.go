package notifications

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"

	"github.com/nhle/giftcard-console/internal/feed"
	"github.com/nhle/giftcard-console/internal/keys"
	"github.com/nhle/giftcard-console/internal/model"
	"github.com/nhle/giftcard-console/internal/ui/intent"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func emitted(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()
	if cmd == nil {
		return nil
	}
	return cmd()
}

func withPage(items []model.Notification, f model.NotificationFilter, total int) Model {
	m := New(keys.DefaultKeyMap(), 100, 30)
	m.SetView(feed.View[model.Notification]{
		Items: items,
		Pagination: model.Pagination{
			Page:       f.Page,
			Limit:      f.Limit,
			Total:      total,
			TotalPages: model.TotalPagesFor(total, f.Limit),
		},
	}, f)
	return m
}

func TestEmptyStates(t *testing.T) {
	m := withPage(nil, model.DefaultNotificationFilter(), 0)
	assert.Contains(t, m.View(), "all caught up")
	assert.Contains(t, m.View(), "page 1/1 · 0 total")

	f := model.DefaultNotificationFilter()
	f.UnreadOnly = true
	m = withPage(nil, f, 0)
	assert.Contains(t, m.View(), "No matching notifications")
	assert.Equal(t, "unread only", m.FilterSummary())
}

func TestLoadErrorState(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 100, 30)
	assert.Contains(t, m.View(), "Loading")

	m.SetView(feed.View[model.Notification]{Err: errors.New("boom")}, model.DefaultNotificationFilter())
	assert.Contains(t, m.View(), "Could not load notifications")
}

func TestActionKeys(t *testing.T) {
	m := withPage([]model.Notification{{ID: "n1", Title: "Hello"}}, model.DefaultNotificationFilter(), 1)

	_, cmd := m.Update(runes("m"))
	assert.Equal(t, intent.MarkReadMsg{ID: "n1"}, emitted(t, cmd))

	_, cmd = m.Update(runes("d"))
	assert.Equal(t, intent.DeleteMsg{ID: "n1"}, emitted(t, cmd))

	_, cmd = m.Update(runes("M"))
	assert.Equal(t, intent.MarkAllReadMsg{}, emitted(t, cmd))

	_, cmd = m.Update(runes("x"))
	assert.Equal(t, intent.ResetFiltersMsg{View: intent.ViewNotifications}, emitted(t, cmd))
}

func TestPendingRowIgnoresRepeat(t *testing.T) {
	m := withPage([]model.Notification{{ID: "n1"}}, model.DefaultNotificationFilter(), 1)
	m.SetPending(func(id string) bool { return id == "n1" })

	_, cmd := m.Update(runes("d"))
	assert.Nil(t, emitted(t, cmd))
}

func TestPaging(t *testing.T) {
	items := make([]model.Notification, 20)
	for i := range items {
		items[i] = model.Notification{ID: string(rune('a' + i))}
	}
	m := withPage(items, model.DefaultNotificationFilter(), 45)

	_, cmd := m.Update(runes("]"))
	assert.Equal(t, intent.PageMsg{View: intent.ViewNotifications, Page: 2}, emitted(t, cmd))

	_, cmd = m.Update(runes("["))
	assert.Nil(t, emitted(t, cmd), "already on the first page")

	f := model.DefaultNotificationFilter()
	f.Page = 3
	m = withPage(items[:5], f, 45)
	_, cmd = m.Update(runes("]"))
	assert.Nil(t, emitted(t, cmd), "already on the last page")
}

func TestSearchEmitsFilterOnEnter(t *testing.T) {
	f := model.DefaultNotificationFilter()
	f.Page = 2
	m := withPage(nil, f, 30)

	m, _ = m.Update(runes("/"))
	assert.True(t, m.Capturing())
	for _, r := range "refund" {
		m, _ = m.Update(runes(string(r)))
	}
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	msg, ok := emitted(t, cmd).(intent.NotificationFilterMsg)
	assert.True(t, ok)
	assert.Equal(t, "refund", msg.Filter.Search)
	assert.Equal(t, 1, msg.Filter.Page)
	assert.False(t, m.Capturing())
}

func TestFilterFormStartsFromCurrentFilter(t *testing.T) {
	f := model.DefaultNotificationFilter()
	f.Type = model.NotificationSystem
	f.Page = 4
	form := newFilterForm(f, 80)
	form.fb.unreadOnly = true

	out := form.filter()
	assert.Equal(t, model.NotificationSystem, out.Type)
	assert.True(t, out.UnreadOnly)
	assert.Equal(t, 1, out.Page)
	assert.Equal(t, f.Limit, out.Limit)
}
