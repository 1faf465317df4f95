package realtime

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/nhle/giftcard-console/internal/logging"
	"github.com/nhle/giftcard-console/internal/metrics"
	"github.com/nhle/giftcard-console/internal/model"
	"github.com/nhle/giftcard-console/internal/transport"
)

// TeardownMode decides what a consumer's cleanup does to a shared
// connection.
type TeardownMode string

const (
	// TeardownRefCount releases the consumer's reference; the socket is
	// closed when the last consumer leaves.
	TeardownRefCount TeardownMode = "refcount"

	// TeardownEager disconnects the role outright, dropping connectivity
	// for every sibling consumer. Siblings observe the disconnect.
	TeardownEager TeardownMode = "eager"
)

// ParseTeardownMode converts a config value into a TeardownMode. The empty
// string selects TeardownRefCount.
func ParseTeardownMode(s string) (TeardownMode, error) {
	switch TeardownMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", TeardownRefCount:
		return TeardownRefCount, nil
	case TeardownEager:
		return TeardownEager, nil
	}
	return "", fmt.Errorf("unknown teardown mode %q", s)
}

// State is the observable status of one role's connection.
type State struct {
	Status model.ConnectionStatus
	Err    string
}

// Listener receives domain events for a role.
type Listener func(transport.Event)

// Watcher receives status changes for a role.
type Watcher func(State)

type slot struct {
	socket transport.Socket
	token  string
	state  State
	refs   int
}

// Registry owns at most one live socket per role. It also owns callback
// registration, so listeners survive the socket being replaced.
type Registry struct {
	factory transport.Factory
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu        sync.Mutex
	slots     map[model.Role]*slot
	listeners map[model.Role]map[string]map[int]Listener
	watchers  map[model.Role]map[int]Watcher
	nextID    int
}

// NewRegistry creates an empty registry that opens sockets with factory.
func NewRegistry(factory transport.Factory, logger *zap.Logger, m *metrics.Metrics) *Registry {
	return &Registry{
		factory:   factory,
		logger:    logging.OrNop(logger),
		metrics:   m,
		slots:     make(map[model.Role]*slot),
		listeners: make(map[model.Role]map[string]map[int]Listener),
		watchers:  make(map[model.Role]map[int]Watcher),
	}
}

// Connect returns the role's socket when one is open or still trying to
// be, and opens a new one otherwise.
func (r *Registry) Connect(role model.Role, token string) (transport.Socket, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("connecting %q: %w", role, errUnknownRole)
	}

	r.mu.Lock()
	if sl := r.slots[role]; sl != nil && sl.socket != nil && sl.socket.Active() {
		sock := sl.socket
		r.mu.Unlock()
		return sock, nil
	}
	sock, old := r.openLocked(role, token)
	r.mu.Unlock()

	r.start(role, sock, old)
	return sock, nil
}

// Acquire is Connect plus one reference on the role's slot.
func (r *Registry) Acquire(role model.Role, token string) (transport.Socket, error) {
	sock, err := r.Connect(role, token)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	if sl := r.slots[role]; sl != nil {
		sl.refs++
	}
	r.mu.Unlock()
	return sock, nil
}

// Release drops one reference and disconnects the role when none remain.
func (r *Registry) Release(role model.Role) {
	r.mu.Lock()
	sl := r.slots[role]
	if sl == nil {
		r.mu.Unlock()
		return
	}
	if sl.refs > 0 {
		sl.refs--
	}
	remaining := sl.refs
	r.mu.Unlock()

	if remaining == 0 {
		r.Disconnect(role)
	}
}

// Disconnect closes the role's socket and clears its slot. It is a no-op
// when nothing is open.
func (r *Registry) Disconnect(role model.Role) {
	r.mu.Lock()
	sl := r.slots[role]
	if sl == nil {
		r.mu.Unlock()
		return
	}
	delete(r.slots, role)
	sock := sl.socket
	changed := sl.state.Status != model.ConnectionDisconnected
	watchers := r.watchersLocked(role)
	r.mu.Unlock()

	if sock != nil {
		sock.Close()
	}
	r.logger.Info("realtime connection closed", zap.String("role", string(role)))
	if changed {
		r.publish(role, State{Status: model.ConnectionDisconnected}, watchers)
	}
}

// Reconnect drops the role's socket and opens a fresh one. References and
// registered callbacks are kept. An empty token reuses the previous one.
func (r *Registry) Reconnect(role model.Role, token string) (transport.Socket, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("reconnecting %q: %w", role, errUnknownRole)
	}

	r.mu.Lock()
	if token == "" {
		if sl := r.slots[role]; sl != nil {
			token = sl.token
		}
	}
	sock, old := r.openLocked(role, token)
	r.mu.Unlock()

	r.logger.Info("realtime reconnect requested", zap.String("role", string(role)))
	r.start(role, sock, old)
	return sock, nil
}

// CloseAll disconnects every role.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	roles := make([]model.Role, 0, len(r.slots))
	for role := range r.slots {
		roles = append(roles, role)
	}
	r.mu.Unlock()

	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	for _, role := range roles {
		r.Disconnect(role)
	}
}

// IsConnected reports whether the role's socket is currently open.
func (r *Registry) IsConnected(role model.Role) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	sl := r.slots[role]
	return sl != nil && sl.socket != nil && sl.socket.Connected()
}

// Status returns the role's connection state. An empty slot is
// disconnected.
func (r *Registry) Status(role model.Role) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sl := r.slots[role]; sl != nil {
		return sl.state
	}
	return State{Status: model.ConnectionDisconnected}
}

// Refs returns the number of consumers holding the role's socket.
func (r *Registry) Refs(role model.Role) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sl := r.slots[role]; sl != nil {
		return sl.refs
	}
	return 0
}

// Listen registers fn for a domain event on role. The returned func
// removes it.
func (r *Registry) Listen(role model.Role, event string, fn Listener) (off func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++
	byEvent := r.listeners[role]
	if byEvent == nil {
		byEvent = make(map[string]map[int]Listener)
		r.listeners[role] = byEvent
	}
	if byEvent[event] == nil {
		byEvent[event] = make(map[int]Listener)
	}
	byEvent[event][id] = fn

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.listeners[role][event], id)
	}
}

// Watch registers fn for status changes on role. The returned func
// removes it.
func (r *Registry) Watch(role model.Role, fn Watcher) (off func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++
	if r.watchers[role] == nil {
		r.watchers[role] = make(map[int]Watcher)
	}
	r.watchers[role][id] = fn

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.watchers[role], id)
	}
}

var errUnknownRole = errors.New("unknown role")

// openLocked creates a socket for role, installs it in the slot and
// returns it with the socket it replaced.
func (r *Registry) openLocked(role model.Role, token string) (sock, old transport.Socket) {
	sl := r.slots[role]
	if sl == nil {
		sl = &slot{}
		r.slots[role] = sl
	}
	old = sl.socket

	sock = r.factory(transport.Options{
		Role:      role,
		Namespace: role.Namespace(),
		Token:     token,
	})
	sock.SetHandler(func(ev transport.Event) { r.handle(role, sock, ev) })

	sl.socket = sock
	sl.token = token
	sl.state = State{Status: model.ConnectionConnecting}
	return sock, old
}

// start closes the replaced socket, announces connecting and dials.
func (r *Registry) start(role model.Role, sock, old transport.Socket) {
	if old != nil {
		old.Close()
	}
	r.logger.Info("realtime connection opening",
		zap.String("role", string(role)),
		zap.String("socket_id", sock.ID()),
	)

	r.mu.Lock()
	watchers := r.watchersLocked(role)
	r.mu.Unlock()
	r.publish(role, State{Status: model.ConnectionConnecting}, watchers)

	sock.Connect()
}

// handle routes one socket event. Events from sockets that no longer own
// the slot are dropped.
func (r *Registry) handle(role model.Role, sock transport.Socket, ev transport.Event) {
	r.mu.Lock()
	sl := r.slots[role]
	if sl == nil || sl.socket != sock {
		r.mu.Unlock()
		r.logger.Debug("ignoring event from replaced socket",
			zap.String("role", string(role)),
			zap.String("event", ev.Name),
		)
		return
	}

	if ev.IsLifecycle() {
		next, changed := transition(sl.state, ev)
		sl.state = next
		watchers := r.watchersLocked(role)
		r.mu.Unlock()

		r.logLifecycle(role, ev)
		if changed {
			r.publish(role, next, watchers)
		}
		return
	}

	listeners := make([]Listener, 0, len(r.listeners[role][ev.Name]))
	for _, id := range sortedKeys(r.listeners[role][ev.Name]) {
		listeners = append(listeners, r.listeners[role][ev.Name][id])
	}
	r.mu.Unlock()

	r.metrics.RealtimeEvent(string(role), ev.Name)
	for _, fn := range listeners {
		fn(ev)
	}
}

// transition maps a lifecycle event onto the connection state.
func transition(cur State, ev transport.Event) (State, bool) {
	var next State
	switch ev.Name {
	case transport.EventConnect, transport.EventReconnect:
		next = State{Status: model.ConnectionConnected}
	case transport.EventDisconnect:
		next = State{Status: model.ConnectionDisconnected}
	case transport.EventReconnectAttempt:
		next = State{Status: model.ConnectionConnecting}
	case transport.EventConnectError, transport.EventReconnectError, transport.EventReconnectFailed:
		next = State{Status: model.ConnectionError, Err: errorText(ev.Err)}
	default:
		return cur, false
	}
	return next, next != cur
}

func errorText(err error) string {
	if err == nil {
		return "connection error"
	}
	return err.Error()
}

func (r *Registry) logLifecycle(role model.Role, ev transport.Event) {
	fields := []zap.Field{
		zap.String("role", string(role)),
		zap.String("event", ev.Name),
	}
	if ev.Attempt > 0 {
		fields = append(fields, zap.Int("attempt", ev.Attempt))
	}
	switch ev.Name {
	case transport.EventConnectError, transport.EventReconnectError, transport.EventReconnectFailed:
		r.logger.Warn("realtime connection error", append(fields, zap.Error(ev.Err))...)
	case transport.EventDisconnect:
		r.logger.Info("realtime disconnected", append(fields, zap.Error(ev.Err))...)
	default:
		r.logger.Info("realtime lifecycle", fields...)
	}
}

func (r *Registry) watchersLocked(role model.Role) []Watcher {
	ids := sortedKeys(r.watchers[role])
	out := make([]Watcher, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.watchers[role][id])
	}
	return out
}

func (r *Registry) publish(role model.Role, st State, watchers []Watcher) {
	r.metrics.ConnectionTransition(string(role), string(st.Status))
	for _, fn := range watchers {
		fn(st)
	}
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
