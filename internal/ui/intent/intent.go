// Package intent holds the messages views emit for user actions. Views
// never call feeds or the realtime layer; the root model handles these.
package intent

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/giftcard-console/internal/model"
)

// View names a list view that owns filter and page state.
type View string

const (
	ViewNotifications View = "notifications"
	ViewActivity      View = "activity"
)

// MarkReadMsg asks to mark one notification read.
type MarkReadMsg struct{ ID string }

// MarkAllReadMsg asks to mark every notification read.
type MarkAllReadMsg struct{}

// DeleteMsg asks to delete one notification.
type DeleteMsg struct{ ID string }

// ReconnectMsg asks to reopen the realtime connection.
type ReconnectMsg struct{}

// RefreshMsg asks to refetch everything the active view shows.
type RefreshMsg struct{}

// NotificationFilterMsg replaces the notification list filter.
type NotificationFilterMsg struct{ Filter model.NotificationFilter }

// ActivityFilterMsg replaces the activity log filter.
type ActivityFilterMsg struct{ Filter model.ActivityFilter }

// ResetFiltersMsg restores the default filter of a view.
type ResetFiltersMsg struct{ View View }

// PageMsg moves a view to page.
type PageMsg struct {
	View View
	Page int
}

// SavePreferencesMsg asks to store notification preferences.
type SavePreferencesMsg struct{ Preferences model.NotificationPreferences }

// OpenNotificationsMsg opens the full notification list, as the dropdown's
// "view all" does.
type OpenNotificationsMsg struct{}

// CloseMsg dismisses the active overlay or form.
type CloseMsg struct{}

// Emit wraps msg in a tea.Cmd.
func Emit(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}
