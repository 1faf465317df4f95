package app

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/giftcard-console/internal/cache"
	"github.com/nhle/giftcard-console/internal/realtime"
)

// connUpdateMsg carries a realtime subscription update to the UI.
type connUpdateMsg struct {
	realtime.Update
}

// cacheNoticeMsg reports that a cached entry changed.
type cacheNoticeMsg struct {
	Notice cache.Notice
}

// waitForUpdate returns a command that blocks until the subscription
// publishes an update. It yields nil once the subscription is closed.
func (m Model) waitForUpdate() tea.Cmd {
	if m.conn == nil {
		return nil
	}
	ch := m.conn.Updates()
	return func() tea.Msg {
		u, ok := <-ch
		if !ok {
			return nil
		}
		return connUpdateMsg{Update: u}
	}
}

// waitForNotice returns a command that blocks until the cache reports a
// change. It yields nil after unsubscribing.
func (m Model) waitForNotice() tea.Cmd {
	if m.notices == nil {
		return nil
	}
	ch := m.notices
	return func() tea.Msg {
		n, ok := <-ch
		if !ok {
			return nil
		}
		return cacheNoticeMsg{Notice: n}
	}
}
