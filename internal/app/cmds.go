package app

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhle/giftcard-console/internal/api"
	"github.com/nhle/giftcard-console/internal/feed"
	"github.com/nhle/giftcard-console/internal/model"
)

type notificationsLoadedMsg struct {
	view   feed.View[model.Notification]
	filter model.NotificationFilter
}

type latestLoadedMsg struct {
	view feed.View[model.Notification]
}

type unreadLoadedMsg struct {
	count int
	err   error
}

type activityLoadedMsg struct {
	view   feed.View[model.ActivityLog]
	filter model.ActivityFilter
}

type preferencesLoadedMsg struct {
	prefs model.NotificationPreferences
	err   error
}

type preferencesSavedMsg struct {
	prefs   model.NotificationPreferences
	errText string
}

// mutationDoneMsg reports a finished notification mutation. errText is
// the user-facing failure message, empty on success.
type mutationDoneMsg struct {
	op      string
	success string
	errText string
}

type toastExpiredMsg struct {
	seq int
}

// loadNotifications returns a command that reads the active notification
// page through the cache.
func (m Model) loadNotifications() tea.Cmd {
	f := m.notifs
	return func() tea.Msg {
		filter := f.Filter()
		v, _ := f.Load(m.ctx)
		return notificationsLoadedMsg{view: v, filter: filter}
	}
}

// refreshNotifications refetches the active notification page.
func (m Model) refreshNotifications() tea.Cmd {
	f := m.notifs
	return func() tea.Msg {
		filter := f.Filter()
		v, _ := f.Refresh(m.ctx)
		return notificationsLoadedMsg{view: v, filter: filter}
	}
}

// loadLatest reads the newest notifications for the bell dropdown.
func (m Model) loadLatest() tea.Cmd {
	f := m.notifs
	return func() tea.Msg {
		v, _ := f.Latest(m.ctx)
		return latestLoadedMsg{view: v}
	}
}

func (m Model) loadUnreadCount() tea.Cmd {
	f := m.notifs
	return func() tea.Msg {
		n, err := f.UnreadCount(m.ctx)
		return unreadLoadedMsg{count: n, err: err}
	}
}

func (m Model) refreshUnreadCount() tea.Cmd {
	f := m.notifs
	return func() tea.Msg {
		n, err := f.RefreshUnreadCount(m.ctx)
		return unreadLoadedMsg{count: n, err: err}
	}
}

func (m Model) loadActivity() tea.Cmd {
	if !m.isAdmin() {
		return nil
	}
	f := m.activity
	return func() tea.Msg {
		filter := f.Filter()
		v, _ := f.Load(m.ctx)
		return activityLoadedMsg{view: v, filter: filter}
	}
}

func (m Model) refreshActivity() tea.Cmd {
	if !m.isAdmin() {
		return nil
	}
	f := m.activity
	return func() tea.Msg {
		filter := f.Filter()
		v, _ := f.Refresh(m.ctx)
		return activityLoadedMsg{view: v, filter: filter}
	}
}

func (m Model) loadPreferences() tea.Cmd {
	f := m.notifs
	return func() tea.Msg {
		p, err := f.Preferences(m.ctx)
		return preferencesLoadedMsg{prefs: p, err: err}
	}
}

func (m Model) savePreferences(p model.NotificationPreferences) tea.Cmd {
	f := m.notifs
	logger := m.logger
	return func() tea.Msg {
		saved, err := f.UpdatePreferences(m.ctx, p)
		if err != nil {
			logger.Warn("saving preferences failed", zap.Error(err))
			return preferencesSavedMsg{errText: api.ErrorMessage(err)}
		}
		return preferencesSavedMsg{prefs: saved}
	}
}

func (m Model) markRead(id string) tea.Cmd {
	f := m.notifs
	return m.mutation(feed.OpMarkRead, "Marked as read", func(ctx context.Context) error {
		return f.MarkRead(ctx, id)
	})
}

func (m Model) markAllRead() tea.Cmd {
	if m.notifs.Pending("") {
		return nil
	}
	f := m.notifs
	return m.mutation(feed.OpMarkAllRead, "All notifications marked as read", f.MarkAllRead)
}

func (m Model) deleteNotification(id string) tea.Cmd {
	f := m.notifs
	return m.mutation(feed.OpDelete, "Notification deleted", func(ctx context.Context) error {
		return f.Delete(ctx, id)
	})
}

// mutation runs call in a command and reports the outcome.
func (m Model) mutation(op, success string, call func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		if err := call(m.ctx); err != nil {
			return mutationDoneMsg{op: op, errText: api.ErrorMessage(err)}
		}
		return mutationDoneMsg{op: op, success: success}
	}
}
