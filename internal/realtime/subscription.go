package realtime

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/nhle/giftcard-console/internal/api"
	"github.com/nhle/giftcard-console/internal/logging"
	"github.com/nhle/giftcard-console/internal/model"
	"github.com/nhle/giftcard-console/internal/transport"
)

// Errors reported through a subscription's state.
var (
	ErrNoToken = errors.New("no access token available")
	ErrNoRole  = errors.New("unable to resolve user role")
)

// AuthSource is the read-only credential view a subscription needs.
type AuthSource interface {
	AccessToken() string
	Role() (model.Role, bool)
}

// NotificationSink receives pushed notification data.
type NotificationSink interface {
	PushNotification(n model.Notification)
	SetUnreadCount(count int)
}

// ActivitySink receives pushed activity logs.
type ActivitySink interface {
	PushActivity(a model.ActivityLog)
}

// Invalidator marks cached resource kinds stale.
type Invalidator interface {
	Invalidate(kinds ...string)
}

// DesktopNotifier surfaces a pushed item outside the terminal.
type DesktopNotifier interface {
	Notify(title, message string) error
}

// Handlers are optional per-event callbacks.
type Handlers struct {
	OnNewNotification func(model.Notification)
	OnUnreadCount     func(int)
	OnNewActivityLog  func(model.ActivityLog)
}

// Options configure a Subscription. Every field is optional.
type Options struct {
	Handlers

	Notifications NotificationSink
	Activity      ActivitySink
	Cache         Invalidator
	Desktop       DesktopNotifier

	Teardown TeardownMode
	Logger   *zap.Logger
}

// Update is delivered on the Updates channel whenever the subscription's
// state changes or a domain event was applied.
type Update struct {
	Role  model.Role
	State State

	// Event is the domain event name, empty for status changes.
	Event string
}

const updateBuffer = 32

// Subscription keeps one consumer attached to its role's shared
// connection and forwards domain events to local effects.
type Subscription struct {
	registry *Registry
	auth     AuthSource
	opts     Options
	logger   *zap.Logger

	mu       sync.Mutex
	enabled  bool
	closed   bool
	acquired bool
	role     model.Role
	state    State
	offs     []func()
	updates  chan Update
}

// NewSubscription creates a disabled subscription.
func NewSubscription(registry *Registry, auth AuthSource, opts Options) *Subscription {
	if opts.Teardown == "" {
		opts.Teardown = TeardownRefCount
	}
	return &Subscription{
		registry: registry,
		auth:     auth,
		opts:     opts,
		logger:   logging.OrNop(opts.Logger).Named("subscription"),
		state:    State{Status: model.ConnectionDisconnected},
		updates:  make(chan Update, updateBuffer),
	}
}

// Enable attaches the subscription. A missing token or role is a terminal
// error until the credentials change.
func (s *Subscription) Enable() {
	s.mu.Lock()
	if s.enabled || s.closed {
		s.mu.Unlock()
		return
	}
	s.enabled = true

	token := ""
	if s.auth != nil {
		token = s.auth.AccessToken()
	}
	if token == "" {
		s.failLocked(ErrNoToken)
		return
	}
	role, ok := s.auth.Role()
	if !ok {
		s.failLocked(ErrNoRole)
		return
	}
	s.role = role
	s.mu.Unlock()

	s.attach(role, token)
}

// attach registers callbacks and acquires the role's connection.
func (s *Subscription) attach(role model.Role, token string) {
	offs := []func(){
		s.registry.Watch(role, s.onState),
		s.registry.Listen(role, transport.EventNewNotification, s.onNewNotification),
		s.registry.Listen(role, transport.EventUnreadCount, s.onUnreadCount),
		s.registry.Listen(role, transport.EventNewActivityLog, s.onNewActivityLog),
	}

	sock, err := s.registry.Acquire(role, token)

	s.mu.Lock()
	s.offs = append(s.offs, offs...)
	if err != nil {
		s.failLocked(err)
		return
	}
	s.acquired = true
	st := s.registry.Status(role)
	if sock.Connected() {
		st = State{Status: model.ConnectionConnected}
	}
	s.state = st
	s.mu.Unlock()

	s.logger.Debug("subscription enabled", zap.String("role", string(role)), zap.String("status", string(st.Status)))
	s.publish(Update{Role: role, State: st})
}

// failLocked records a terminal error and publishes it. It releases s.mu.
func (s *Subscription) failLocked(err error) {
	s.state = State{Status: model.ConnectionError, Err: err.Error()}
	update := Update{Role: s.role, State: s.state}
	s.mu.Unlock()

	s.logger.Warn("subscription unavailable", zap.Error(err))
	s.publish(update)
}

// Disable detaches the callbacks and lets go of the connection according
// to the teardown mode.
func (s *Subscription) Disable() {
	s.mu.Lock()
	if !s.enabled {
		s.mu.Unlock()
		return
	}
	s.enabled = false
	offs := s.offs
	s.offs = nil
	acquired := s.acquired
	s.acquired = false
	role := s.role
	s.state = State{Status: model.ConnectionDisconnected}
	s.mu.Unlock()

	for _, off := range offs {
		off()
	}
	if acquired {
		if s.opts.Teardown == TeardownEager {
			s.registry.Disconnect(role)
		} else {
			s.registry.Release(role)
		}
	}
	s.publish(Update{Role: role, State: State{Status: model.ConnectionDisconnected}})
}

// Close disables the subscription and closes its Updates channel.
func (s *Subscription) Close() {
	s.Disable()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.updates)
	}
}

// Reconnect forces the connecting state and asks the registry to reopen
// the role's connection. Callbacks stay registered.
func (s *Subscription) Reconnect() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if !s.enabled || !s.acquired {
		// Never attached: retry the whole enable path.
		s.enabled = false
		offs := s.offs
		s.offs = nil
		s.mu.Unlock()
		for _, off := range offs {
			off()
		}
		s.Enable()
		return
	}
	role := s.role
	s.state = State{Status: model.ConnectionConnecting}
	s.mu.Unlock()

	s.publish(Update{Role: role, State: State{Status: model.ConnectionConnecting}})
	if _, err := s.registry.Reconnect(role, s.auth.AccessToken()); err != nil {
		s.mu.Lock()
		s.failLocked(err)
	}
}

// State returns the current status and error.
func (s *Subscription) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Status returns the current connection status.
func (s *Subscription) Status() model.ConnectionStatus { return s.State().Status }

// Error returns the last error message, or "".
func (s *Subscription) Error() string { return s.State().Err }

// Role returns the role the subscription is attached to, if any.
func (s *Subscription) Role() model.Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.role
}

// Updates delivers state changes and applied events. Updates are dropped
// when the consumer falls behind; State always has the latest value.
func (s *Subscription) Updates() <-chan Update { return s.updates }

func (s *Subscription) onState(st State) {
	s.mu.Lock()
	if !s.enabled {
		s.mu.Unlock()
		return
	}
	s.state = st
	role := s.role
	s.mu.Unlock()

	s.publish(Update{Role: role, State: st})
}

func (s *Subscription) onNewNotification(ev transport.Event) {
	n, err := api.DecodeNotificationPush(ev.Data)
	if err != nil {
		s.logger.Warn("dropping notification push", zap.Error(err))
		return
	}
	if fn := s.opts.OnNewNotification; fn != nil {
		fn(n)
	}
	if s.opts.Notifications != nil {
		s.opts.Notifications.PushNotification(n)
	}
	s.invalidate(model.KindNotifications, model.KindUnreadCount)
	s.notifyDesktop(n.Title, n.Message)
	s.published(ev.Name)
}

func (s *Subscription) onUnreadCount(ev transport.Event) {
	count, err := api.DecodeUnreadCountPush(ev.Data)
	if err != nil {
		s.logger.Warn("dropping unread count push", zap.Error(err))
		return
	}
	if fn := s.opts.OnUnreadCount; fn != nil {
		fn(count)
	}
	if s.opts.Notifications != nil {
		s.opts.Notifications.SetUnreadCount(count)
	}
	s.published(ev.Name)
}

func (s *Subscription) onNewActivityLog(ev transport.Event) {
	entry, err := api.DecodeActivityPush(ev.Data)
	if err != nil {
		s.logger.Warn("dropping activity push", zap.Error(err))
		return
	}
	if fn := s.opts.OnNewActivityLog; fn != nil {
		fn(entry)
	}
	if s.opts.Activity != nil {
		s.opts.Activity.PushActivity(entry)
	}
	s.invalidate(model.KindActivityLogs)
	s.notifyDesktop(entry.Action, entry.Description)
	s.published(ev.Name)
}

func (s *Subscription) invalidate(kinds ...string) {
	if s.opts.Cache != nil {
		s.opts.Cache.Invalidate(kinds...)
	}
}

func (s *Subscription) notifyDesktop(title, message string) {
	if s.opts.Desktop == nil {
		return
	}
	if err := s.opts.Desktop.Notify(title, message); err != nil {
		s.logger.Debug("desktop notification failed", zap.Error(err))
	}
}

func (s *Subscription) published(event string) {
	s.mu.Lock()
	u := Update{Role: s.role, State: s.state, Event: event}
	s.mu.Unlock()
	s.publish(u)
}

func (s *Subscription) publish(u Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.updates <- u:
	default:
	}
}
