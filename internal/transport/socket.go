package transport

import (
	"encoding/json"

	"github.com/nhle/giftcard-console/internal/model"
)

// Lifecycle events emitted by every Socket.
const (
	EventConnect          = "connect"
	EventDisconnect       = "disconnect"
	EventConnectError     = "connect_error"
	EventReconnectAttempt = "reconnect_attempt"
	EventReconnect        = "reconnect"
	EventReconnectError   = "reconnect_error"
	EventReconnectFailed  = "reconnect_failed"
)

// Domain events pushed by the socket server.
const (
	EventNewNotification = "new_notification"
	EventUnreadCount     = "unread_count"
	EventNewActivityLog  = "new_activity_log"
)

// Event is a single lifecycle transition or server push.
type Event struct {
	// Name is one of the Event* constants or any server-defined name.
	Name string

	// Data is the raw JSON payload of a server push.
	Data json.RawMessage

	// Err is set on connect_error, reconnect_error, reconnect_failed and
	// carries the disconnect reason on disconnect.
	Err error

	// Attempt is the reconnection attempt number, when relevant.
	Attempt int
}

// IsLifecycle reports whether e describes the connection rather than a
// server push.
func (e Event) IsLifecycle() bool {
	switch e.Name {
	case EventConnect, EventDisconnect, EventConnectError,
		EventReconnectAttempt, EventReconnect, EventReconnectError,
		EventReconnectFailed:
		return true
	}
	return false
}

// Handler receives every event of a socket, in delivery order.
type Handler func(Event)

// Options scope a socket to a role and authenticate it.
type Options struct {
	Role      model.Role
	Namespace string
	Token     string
}

// Socket is a self-reconnecting realtime connection. Implementations own
// their reconnection policy and report everything through the handler;
// none of the methods return errors.
type Socket interface {
	// ID identifies this socket instance.
	ID() string

	// SetHandler installs the event handler. It must be called before
	// Connect.
	SetHandler(h Handler)

	// Connect starts connecting in the background.
	Connect()

	// Close tears the connection down and stops reconnecting.
	Close()

	// Connected reports whether the connection is currently open.
	Connected() bool

	// Active reports whether the socket is open or still trying to be.
	// It turns false after Close or once reconnect attempts run out.
	Active() bool
}

// Factory builds a socket for the given options.
type Factory func(opts Options) Socket
