package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/nhle/giftcard-console/internal/logging"
)

// Config controls the websocket transport.
type Config struct {
	// URL is the socket server root, e.g. ws://host/ws. The namespace is
	// appended as a path suffix.
	URL string

	ConnectTimeout    time.Duration
	ReconnectAttempts int
	ReconnectDelay    time.Duration
	ReconnectDelayMax time.Duration
}

func (c *Config) norm() {
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 20 * time.Second
	}
	if c.ReconnectAttempts < 0 {
		c.ReconnectAttempts = 0
	}
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = time.Second
	}
	if c.ReconnectDelayMax < c.ReconnectDelay {
		c.ReconnectDelayMax = c.ReconnectDelay
	}
}

// frame is the wire envelope of a server push.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// WSSocket is a Socket over gorilla/websocket with capped exponential
// reconnection.
type WSSocket struct {
	id     string
	cfg    Config
	opts   Options
	dialer *websocket.Dialer
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	handler   Handler
	conn      *websocket.Conn
	started   bool
	connected bool
	active    bool
	closed    bool
}

// NewFactory returns a Factory producing WSSockets that share cfg.
func NewFactory(cfg Config, logger *zap.Logger) Factory {
	return func(opts Options) Socket {
		return NewWSSocket(cfg, opts, logger)
	}
}

// NewWSSocket creates an unconnected socket.
func NewWSSocket(cfg Config, opts Options, logger *zap.Logger) *WSSocket {
	cfg.norm()
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()
	return &WSSocket{
		id:   id,
		cfg:  cfg,
		opts: opts,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.ConnectTimeout,
		},
		logger: logging.OrNop(logger).With(
			zap.String("socket_id", id),
			zap.String("namespace", opts.Namespace),
		),
		ctx:    ctx,
		cancel: cancel,
	}
}

// ID implements Socket.
func (s *WSSocket) ID() string { return s.id }

// SetHandler implements Socket.
func (s *WSSocket) SetHandler(h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = h
}

// Connect implements Socket. Calling it again while running is a no-op.
func (s *WSSocket) Connect() {
	s.mu.Lock()
	if s.closed || s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.active = true
	s.mu.Unlock()

	go s.run()
}

// Close implements Socket.
func (s *WSSocket) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.active = false
	conn := s.conn
	s.mu.Unlock()

	s.cancel()
	if conn != nil {
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client disconnect"),
			time.Now().Add(time.Second),
		)
		_ = conn.Close()
	}
}

// Connected implements Socket.
func (s *WSSocket) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Active implements Socket.
func (s *WSSocket) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active && !s.closed
}

// run is the connection loop: dial, read until the connection drops, then
// back off and redial until attempts run out or the socket is closed.
func (s *WSSocket) run() {
	policy := s.newBackOff()
	everConnected := false
	attempt := 0

	for {
		conn, err := s.dial()
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			if everConnected || attempt > 0 {
				s.emit(Event{Name: EventReconnectError, Err: err, Attempt: attempt})
			} else {
				s.emit(Event{Name: EventConnectError, Err: err})
			}
			if !s.backOff(policy, &attempt) {
				return
			}
			continue
		}

		if !s.attach(conn) {
			_ = conn.Close()
			return
		}
		if everConnected {
			s.emit(Event{Name: EventReconnect, Attempt: attempt})
		} else {
			s.emit(Event{Name: EventConnect})
		}
		everConnected = true
		attempt = 0
		policy.Reset()

		reason := s.readLoop(conn)
		s.detach()

		if s.ctx.Err() != nil {
			s.emit(Event{Name: EventDisconnect, Err: errors.New("client disconnect")})
			return
		}
		s.emit(Event{Name: EventDisconnect, Err: reason})
		if !s.backOff(policy, &attempt) {
			return
		}
	}
}

// backOff waits for the next reconnection slot. It returns false when the
// policy is exhausted or the socket was closed meanwhile.
func (s *WSSocket) backOff(policy backoff.BackOff, attempt *int) bool {
	wait := policy.NextBackOff()
	if wait == backoff.Stop {
		s.mu.Lock()
		s.active = false
		s.mu.Unlock()
		s.emit(Event{
			Name:    EventReconnectFailed,
			Err:     fmt.Errorf("reconnection failed after %d attempts", *attempt),
			Attempt: *attempt,
		})
		return false
	}

	*attempt++
	s.emit(Event{Name: EventReconnectAttempt, Attempt: *attempt})

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-s.ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (s *WSSocket) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.ReconnectDelay
	b.MaxInterval = s.cfg.ReconnectDelayMax
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithMaxRetries(b, uint64(s.cfg.ReconnectAttempts))
}

func (s *WSSocket) dial() (*websocket.Conn, error) {
	target, err := s.endpoint()
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+s.opts.Token)

	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.ConnectTimeout)
	defer cancel()

	conn, resp, err := s.dialer.DialContext(ctx, target, header)
	if err != nil {
		return nil, handshakeError(err, resp)
	}
	return conn, nil
}

func (s *WSSocket) endpoint() (string, error) {
	u, err := url.Parse(strings.TrimRight(s.cfg.URL, "/") + s.opts.Namespace)
	if err != nil {
		return "", fmt.Errorf("parsing socket url: %w", err)
	}
	q := u.Query()
	q.Set("token", s.opts.Token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// attach records conn as the live connection unless the socket was closed
// while dialing.
func (s *WSSocket) attach(conn *websocket.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conn = conn
	s.connected = true
	return true
}

func (s *WSSocket) detach() {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.connected = false
	s.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

// readLoop dispatches frames until the connection fails and returns the
// failure.
func (s *WSSocket) readLoop(conn *websocket.Conn) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var f frame
		if err := json.Unmarshal(data, &f); err != nil || f.Event == "" {
			s.logger.Warn("dropping malformed frame", zap.Int("bytes", len(data)), zap.Error(err))
			continue
		}
		ev := Event{Name: f.Event, Data: f.Data}
		if ev.IsLifecycle() {
			// Lifecycle events come from the socket itself, never the server.
			s.logger.Warn("dropping frame with reserved event name", zap.String("event", f.Event))
			continue
		}
		s.emit(ev)
	}
}

func (s *WSSocket) emit(ev Event) {
	s.mu.Lock()
	h := s.handler
	s.mu.Unlock()
	if h != nil {
		h(ev)
	}
}

// handshakeError turns a failed dial into an error whose message is what
// the server said, when it said anything.
func handshakeError(err error, resp *http.Response) error {
	if resp == nil {
		return err
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if payload.Message != "" {
			return errors.New(payload.Message)
		}
		if payload.Error != "" {
			return errors.New(payload.Error)
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" && len(text) < 200 {
		return errors.New(text)
	}
	return fmt.Errorf("handshake rejected: %s", resp.Status)
}
