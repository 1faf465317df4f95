package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhle/giftcard-console/internal/api"
	"github.com/nhle/giftcard-console/internal/cache"
	"github.com/nhle/giftcard-console/internal/feed"
	"github.com/nhle/giftcard-console/internal/keys"
	"github.com/nhle/giftcard-console/internal/logging"
	"github.com/nhle/giftcard-console/internal/model"
	"github.com/nhle/giftcard-console/internal/realtime"
	appsync "github.com/nhle/giftcard-console/internal/sync"
	"github.com/nhle/giftcard-console/internal/theme"
	"github.com/nhle/giftcard-console/internal/transport"
	"github.com/nhle/giftcard-console/internal/ui"
	activityview "github.com/nhle/giftcard-console/internal/ui/activity"
	"github.com/nhle/giftcard-console/internal/ui/bell"
	"github.com/nhle/giftcard-console/internal/ui/command"
	"github.com/nhle/giftcard-console/internal/ui/dropdown"
	helpview "github.com/nhle/giftcard-console/internal/ui/help"
	"github.com/nhle/giftcard-console/internal/ui/intent"
	"github.com/nhle/giftcard-console/internal/ui/livefeed"
	"github.com/nhle/giftcard-console/internal/ui/notifications"
	"github.com/nhle/giftcard-console/internal/ui/preferences"
	"github.com/nhle/giftcard-console/internal/ui/status"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewNotifications ViewState = iota
	ViewActivity
	ViewFeed
	ViewPreferences
	ViewHelp
	ViewCommand
)

const toastDuration = 4 * time.Second

// Connection is the realtime subscription as the root model drives it.
type Connection interface {
	Enable()
	Close()
	Reconnect()
	State() realtime.State
	Updates() <-chan realtime.Update
}

// Deps are the collaborators of the root model. Activity is nil for
// merchants.
type Deps struct {
	// Context scopes the requests started from the UI. Request timeouts
	// are left to the API client.
	Context       context.Context
	Notifications *feed.NotificationFeed
	Activity      *feed.ActivityFeed
	Connection    Connection
	Refresher     *appsync.Refresher
	Cache         *cache.Client
	Role          model.Role
	User          *model.CachedUser
	Logger        *zap.Logger
	Clock         func() time.Time
}

// Model is the root Bubble Tea model that manages view routing, layout
// and the link between views and the feeds.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	keys         *keys.KeyMap

	ctx       context.Context
	notifs    *feed.NotificationFeed
	activity  *feed.ActivityFeed
	conn      Connection
	refresher *appsync.Refresher
	notices   <-chan cache.Notice
	unsub     func()
	role      model.Role
	user      *model.CachedUser
	logger    *zap.Logger
	now       func() time.Time

	notifList    notifications.Model
	activityView activityview.Model
	liveFeed     livefeed.Model
	prefsView    preferences.Model
	helpView     helpview.Model
	commandView  command.Model
	bellMenu     dropdown.Model
	bellOpen     bool

	connState     realtime.State
	everConnected bool
	unread        int
	unreadKnown   bool
	authError     string

	toast    string
	toastErr bool
	toastSeq int

	ready bool
}

// New creates the root model. It does not start anything until Init.
func New(d Deps) Model {
	k := keys.DefaultKeyMap()
	now := d.Clock
	if now == nil {
		now = time.Now
	}
	ctx := d.Context
	if ctx == nil {
		ctx = context.Background()
	}
	refresher := d.Refresher
	if refresher == nil {
		refresher = appsync.New(d.Logger)
	}

	m := Model{
		currentView:  ViewNotifications,
		ctx:          ctx,
		keys:         k,
		notifs:       d.Notifications,
		activity:     d.Activity,
		conn:         d.Connection,
		refresher:    refresher,
		role:         d.Role,
		user:         d.User,
		logger:       logging.OrNop(d.Logger).Named("app"),
		now:          now,
		notifList:    notifications.New(k, 80, 24),
		activityView: activityview.New(k, 80, 24),
		liveFeed:     livefeed.New(k, 80, 24),
		prefsView:    preferences.New(80, 24),
		helpView:     helpview.New(k, d.Role, 80, 24),
		commandView:  command.New(d.Role, 80, 24),
		bellMenu:     dropdown.New(k, 80),
		connState:    realtime.State{Status: model.ConnectionDisconnected},
	}
	if d.Cache != nil {
		m.notices, m.unsub = d.Cache.Subscribe()
	}

	m.notifList.SetPending(m.notifs.Pending)
	m.notifList.SetClock(now)
	m.bellMenu.SetPending(m.notifs.Pending)
	m.bellMenu.SetClock(now)
	m.activityView.SetClock(now)
	m.liveFeed.SetClock(now)
	return m
}

// isAdmin reports whether the activity views are available.
func (m Model) isAdmin() bool {
	return m.role == model.RoleAdmin && m.activity != nil
}

// Init enables the realtime subscription, starts periodic refreshes and
// loads the first page of every view.
func (m Model) Init() tea.Cmd {
	if m.conn != nil {
		m.conn.Enable()
	}
	cmds := []tea.Cmd{
		m.waitForUpdate(),
		m.waitForNotice(),
		m.refresher.Start(),
		m.loadNotifications(),
		m.loadUnreadCount(),
	}
	if m.isAdmin() {
		cmds = append(cmds, m.loadActivity())
	}
	return tea.Batch(cmds...)
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
		m.notifList.SetSize(w, h)
		m.activityView.SetSize(w, h)
		m.liveFeed.SetSize(w, h)
		m.prefsView.SetSize(w, h)
		m.helpView.SetSize(w, h)
		m.commandView.SetSize(w, h)
		m.bellMenu.SetSize(w)
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case connUpdateMsg:
		return m, tea.Batch(m.handleConnUpdate(msg.Update), m.waitForUpdate())

	case cacheNoticeMsg:
		m.syncFromCache(msg.Notice.Kind)
		return m, m.waitForNotice()

	case appsync.RefreshResultMsg:
		if msg.AuthError != nil {
			m.authError = msg.AuthError.Message
		} else if msg.Error == nil {
			m.authError = ""
		}
		m.syncFromCache("")
		return m, m.refresher.WaitForNextResult()

	case notificationsLoadedMsg:
		if msg.filter == m.notifs.Filter() {
			cmd := m.notifList.SetView(msg.view, msg.filter)
			return m, cmd
		}
		return m, nil

	case latestLoadedMsg:
		m.bellMenu.SetItems(msg.view.Items, msg.view.Err)
		return m, nil

	case unreadLoadedMsg:
		if msg.err == nil {
			m.setUnread(msg.count)
		}
		return m, nil

	case activityLoadedMsg:
		if m.isAdmin() && msg.filter == m.activity.Filter() {
			m.activityView.SetView(msg.view, msg.filter)
		}
		return m, nil

	case preferencesLoadedMsg:
		if msg.err != nil {
			m.prefsView.SetError("Could not load preferences: " + api.ErrorMessage(msg.err))
			return m, nil
		}
		return m, m.prefsView.Start(msg.prefs)

	case preferencesSavedMsg:
		if msg.errText != "" {
			m.prefsView.SetError(msg.errText)
			return m, m.showToast(msg.errText, true)
		}
		m.currentView = m.previousView
		return m, m.showToast("Preferences saved", false)

	case mutationDoneMsg:
		m.syncFromCache("")
		if msg.errText != "" {
			return m, m.showToast(msg.errText, true)
		}
		cmds := []tea.Cmd{m.showToast(msg.success, false)}
		if m.bellOpen {
			cmds = append(cmds, m.loadLatest())
		}
		return m, tea.Batch(cmds...)

	case toastExpiredMsg:
		if msg.seq == m.toastSeq {
			m.toast = ""
			m.toastErr = false
		}
		return m, nil

	case intent.MarkReadMsg:
		return m, m.markRead(msg.ID)

	case intent.MarkAllReadMsg:
		return m, m.markAllRead()

	case intent.DeleteMsg:
		return m, m.deleteNotification(msg.ID)

	case intent.ReconnectMsg:
		return m, m.reconnect()

	case intent.RefreshMsg:
		return m, m.refresh()

	case intent.NotificationFilterMsg:
		m.notifs.SetFilter(msg.Filter)
		return m, m.loadNotifications()

	case intent.ActivityFilterMsg:
		if !m.isAdmin() {
			return m, nil
		}
		m.activity.SetFilter(msg.Filter)
		return m, m.loadActivity()

	case intent.ResetFiltersMsg:
		return m, m.resetFilters(msg.View)

	case intent.PageMsg:
		return m, m.setPage(msg.View, msg.Page)

	case intent.SavePreferencesMsg:
		return m, m.savePreferences(msg.Preferences)

	case intent.OpenNotificationsMsg:
		m.bellOpen = false
		m.currentView = ViewNotifications
		return m, m.loadNotifications()

	case intent.CloseMsg:
		if m.bellOpen {
			m.bellOpen = false
			return m, nil
		}
		if m.currentView == ViewPreferences {
			m.currentView = m.previousView
		}
		return m, nil

	case command.CommandMsg:
		m.currentView = m.previousView
		return m, m.executeCommand(string(msg))

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, m.quit()
		}

		// Forms and search own the keyboard.
		if m.capturing() {
			return m.updateActiveView(msg)
		}

		if m.bellOpen {
			var cmd tea.Cmd
			m.bellMenu, cmd = m.bellMenu.Update(msg)
			return m, cmd
		}

		if cmd, handled := m.handleGlobalKey(msg); handled {
			return m, cmd
		}
	}

	return m.updateActiveView(msg)
}

// capturing reports whether the active view consumes every key.
func (m Model) capturing() bool {
	switch m.currentView {
	case ViewNotifications:
		return m.notifList.Capturing()
	case ViewActivity:
		return m.activityView.Capturing()
	case ViewPreferences, ViewCommand:
		return true
	}
	return false
}

// handleGlobalKey processes keys that work regardless of the active view.
func (m *Model) handleGlobalKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit(), true

	case key.Matches(msg, m.keys.Help):
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return nil, true
		}
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return nil, true

	case key.Matches(msg, m.keys.Command):
		m.previousView = m.currentView
		m.currentView = ViewCommand
		return m.commandView.Focus(), true

	case key.Matches(msg, m.keys.Back):
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return nil, true
		}
		return nil, false

	case key.Matches(msg, m.keys.Bell):
		return m.toggleBell(), true

	case key.Matches(msg, m.keys.Notifications):
		return m.switchTo(ViewNotifications), true

	case key.Matches(msg, m.keys.Activity):
		return m.switchTo(ViewActivity), true

	case key.Matches(msg, m.keys.Feed):
		return m.switchTo(ViewFeed), true

	case key.Matches(msg, m.keys.Preferences):
		return m.switchTo(ViewPreferences), true

	case key.Matches(msg, m.keys.Refresh):
		return m.refresh(), true

	case key.Matches(msg, m.keys.Reconnect):
		return m.reconnect(), true
	}
	return nil, false
}

// switchTo activates v. Admin-only views are ignored for merchants.
func (m *Model) switchTo(v ViewState) tea.Cmd {
	switch v {
	case ViewActivity:
		if !m.isAdmin() {
			return m.showToast("Activity logs are available to admins only", true)
		}
		m.currentView = v
		return m.loadActivity()
	case ViewFeed:
		if !m.isAdmin() {
			return m.showToast("The live feed is available to admins only", true)
		}
		m.liveFeed.SetEntries(m.activity.Recent())
		m.currentView = v
		return nil
	case ViewPreferences:
		if m.currentView != ViewPreferences {
			m.previousView = m.currentView
		}
		m.currentView = v
		m.prefsView = preferences.New(m.layout.ContentWidth(), m.layout.ContentHeight())
		return m.loadPreferences()
	default:
		m.currentView = v
		return m.loadNotifications()
	}
}

// toggleBell opens or closes the dropdown.
func (m *Model) toggleBell() tea.Cmd {
	m.bellOpen = !m.bellOpen
	if !m.bellOpen {
		return nil
	}
	m.bellMenu.SetUnread(m.unread)
	return m.loadLatest()
}

func (m *Model) reconnect() tea.Cmd {
	if m.conn == nil {
		return nil
	}
	if !m.connState.Status.CanReconnect() {
		return nil
	}
	m.conn.Reconnect()
	return nil
}

func (m *Model) refresh() tea.Cmd {
	m.refresher.RefreshAll()
	cmds := []tea.Cmd{m.refreshNotifications(), m.refreshUnreadCount()}
	if m.isAdmin() && m.currentView == ViewActivity {
		cmds = append(cmds, m.refreshActivity())
	}
	if m.bellOpen {
		cmds = append(cmds, m.loadLatest())
	}
	return tea.Batch(cmds...)
}

func (m *Model) resetFilters(v intent.View) tea.Cmd {
	switch v {
	case intent.ViewActivity:
		if !m.isAdmin() {
			return nil
		}
		m.activity.ResetFilters()
		return m.loadActivity()
	default:
		m.notifs.ResetFilters()
		return m.loadNotifications()
	}
}

func (m *Model) setPage(v intent.View, page int) tea.Cmd {
	switch v {
	case intent.ViewActivity:
		if !m.isAdmin() {
			return nil
		}
		m.activity.SetPage(page)
		return m.loadActivity()
	default:
		m.notifs.SetPage(page)
		return m.loadNotifications()
	}
}

// handleConnUpdate applies a subscription update and issues the reloads
// the event calls for.
func (m *Model) handleConnUpdate(u realtime.Update) tea.Cmd {
	toast := m.applyConnState(u.State)
	if u.Event == "" {
		return toast
	}
	return tea.Batch(toast, m.handleEvent(u))
}

// applyConnState syncs the badge to the connection's current state. An
// update's own state may be out of date when earlier updates were dropped.
func (m *Model) applyConnState(fallback realtime.State) tea.Cmd {
	state := fallback
	if m.conn != nil {
		state = m.conn.State()
	}
	prev := m.connState.Status
	m.connState = state
	if state.Status != model.ConnectionConnected || prev == model.ConnectionConnected {
		return nil
	}
	if m.everConnected {
		return m.showToast("Reconnected", false)
	}
	m.everConnected = true
	return nil
}

func (m *Model) handleEvent(u realtime.Update) tea.Cmd {
	switch u.Event {
	case transport.EventNewNotification:
		m.syncFromCache(model.KindNotifications)
		cmds := []tea.Cmd{m.loadNotifications(), m.loadUnreadCount()}
		if m.bellOpen {
			cmds = append(cmds, m.loadLatest())
		}
		return tea.Batch(cmds...)

	case transport.EventUnreadCount:
		m.syncFromCache(model.KindUnreadCount)
		return nil

	case transport.EventNewActivityLog:
		if !m.isAdmin() {
			return nil
		}
		m.liveFeed.SetEntries(m.activity.Recent())
		m.syncFromCache(model.KindActivityLogs)
		return m.loadActivity()
	}
	return nil
}

// syncFromCache re-renders views of kind from cached data without
// fetching. An empty kind syncs everything.
func (m *Model) syncFromCache(kind string) {
	all := kind == ""
	if all || kind == model.KindNotifications {
		if v, ok := m.notifs.Peek(); ok {
			m.notifList.SetView(v, m.notifs.Filter())
		}
		if v, ok := m.notifs.PeekLatest(); ok {
			m.bellMenu.SetItems(v.Items, v.Err)
		}
	}
	if all || kind == model.KindUnreadCount {
		if n, ok := m.notifs.PeekUnreadCount(); ok {
			m.setUnread(n)
		}
	}
	if m.isAdmin() && (all || kind == model.KindActivityLogs) {
		if v, ok := m.activity.Peek(); ok {
			m.activityView.SetView(v, m.activity.Filter())
		}
		m.liveFeed.SetEntries(m.activity.Recent())
	}
}

func (m *Model) setUnread(n int) {
	m.unread = n
	m.unreadKnown = true
	m.bellMenu.SetUnread(n)
}

// showToast shows text in the status bar until it expires.
func (m *Model) showToast(text string, isErr bool) tea.Cmd {
	m.toastSeq++
	m.toast = text
	m.toastErr = isErr
	seq := m.toastSeq
	return tea.Tick(toastDuration, func(time.Time) tea.Msg {
		return toastExpiredMsg{seq: seq}
	})
}

// quit tears down the subscription, the refresher and the cache listener.
func (m *Model) quit() tea.Cmd {
	if m.conn != nil {
		m.conn.Close()
	}
	m.refresher.Stop()
	if m.unsub != nil {
		m.unsub()
	}
	return tea.Quit
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewNotifications:
		m.notifList, cmd = m.notifList.Update(msg)
	case ViewActivity:
		m.activityView, cmd = m.activityView.Update(msg)
	case ViewFeed:
		m.liveFeed, cmd = m.liveFeed.Update(msg)
	case ViewPreferences:
		m.prefsView, cmd = m.prefsView.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		if km, ok := msg.(tea.KeyMsg); ok && km.String() == "esc" {
			m.currentView = m.previousView
			return m, nil
		}
		m.commandView, cmd = m.commandView.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader(m.headerTitle(), bell.Render(m.unread, m.unreadKnown, m.connState.Status))
	content := m.layout.RenderContent(m.renderContent())
	if m.bellOpen {
		content = m.layout.RenderContent(m.layout.RenderOverlay(m.bellMenu.View()))
	}
	statusBar := m.layout.RenderStatusBar(m.keyHints(), m.toast, m.toastErr)

	return m.layout.RenderWithFrame(header, content, statusBar)
}

func (m Model) headerTitle() string {
	title := "Gift Card Console"
	if m.role != "" {
		title += " · " + string(m.role)
	}
	if m.user != nil && m.user.Email != "" {
		title += " · " + m.user.Email
	}
	return title
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewNotifications:
		return m.notifList.View()
	case ViewActivity:
		return m.activityView.View()
	case ViewFeed:
		return m.liveFeed.View()
	case ViewPreferences:
		return m.prefsView.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	default:
		return ""
	}
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	// Show auth error prominently when present.
	if m.authError != "" {
		return m.authError
	}

	var hints string
	switch {
	case m.bellOpen:
		hints = "j/k move | m read | M read all | d delete | enter view all | esc close"
	default:
		switch m.currentView {
		case ViewHelp:
			hints = "? close help | esc back"
		case ViewCommand:
			hints = "enter execute | tab complete | esc back"
		case ViewPreferences:
			hints = "enter next | esc cancel"
		case ViewActivity:
			hints = "enter details | f filter | x reset | [ ] page | 1 notifications | 3 feed"
		case ViewFeed:
			hints = "j/k move | 1 notifications | 2 activity"
		default:
			hints = "q quit | ? help | b bell | / search | f filter | m read | M read all | d delete"
			if m.isAdmin() {
				hints += " | 2 activity | 3 feed"
			}
		}
	}

	if h := status.Hint(m.connState.Status, m.connState.Err); h != "" {
		return h + " | " + hints
	}
	return hints
}

// executeCommand handles a command string from the command palette.
func (m *Model) executeCommand(cmd string) tea.Cmd {
	switch cmd {
	case "refresh":
		return m.refresh()
	case "reconnect":
		return m.reconnect()
	case "mark all read":
		return m.markAllRead()
	case "notifications":
		return m.switchTo(ViewNotifications)
	case "activity":
		return m.switchTo(ViewActivity)
	case "feed":
		return m.switchTo(ViewFeed)
	case "preferences":
		return m.switchTo(ViewPreferences)
	case "reset filters":
		if m.currentView == ViewActivity {
			return m.resetFilters(intent.ViewActivity)
		}
		return m.resetFilters(intent.ViewNotifications)
	case "quit":
		return m.quit()
	}

	if name, ok := strings.CutPrefix(cmd, "theme "); ok {
		if err := theme.Use(name); err != nil {
			return m.showToast(err.Error(), true)
		}
		return m.showToast(fmt.Sprintf("Theme set to %s", name), false)
	}
	return m.showToast(fmt.Sprintf("Unknown command %q", cmd), true)
}
