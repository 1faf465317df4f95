package transport

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/giftcard-console/internal/model"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func testConfig(srv *httptest.Server, attempts int) Config {
	return Config{
		URL:               wsURL(srv),
		ConnectTimeout:    2 * time.Second,
		ReconnectAttempts: attempts,
		ReconnectDelay:    10 * time.Millisecond,
		ReconnectDelayMax: 20 * time.Millisecond,
	}
}

func collect(s Socket) <-chan Event {
	ch := make(chan Event, 64)
	s.SetHandler(func(ev Event) { ch <- ev })
	return ch
}

func next(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for socket event")
		return Event{}
	}
}

func TestWSSocketConnectAndReceive(t *testing.T) {
	gotAuth := make(chan *http.Request, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth <- r
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"unread_count","data":{"count":3}}`))
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	s := NewWSSocket(testConfig(srv, 0), Options{Role: model.RoleAdmin, Namespace: "/admin", Token: "tok"}, nil)
	events := collect(s)
	s.Connect()
	defer s.Close()

	assert.Equal(t, EventConnect, next(t, events).Name)
	assert.True(t, s.Connected())
	assert.True(t, s.Active())

	req := <-gotAuth
	assert.Equal(t, "/admin", req.URL.Path)
	assert.Equal(t, "tok", req.URL.Query().Get("token"))
	assert.Equal(t, "Bearer tok", req.Header.Get("Authorization"))

	ev := next(t, events)
	assert.Equal(t, EventUnreadCount, ev.Name)
	assert.JSONEq(t, `{"count":3}`, string(ev.Data))
	assert.False(t, ev.IsLifecycle())

	s.Close()
	assert.False(t, s.Active())
	assert.Equal(t, EventDisconnect, next(t, events).Name)
}

func TestWSSocketDropsFramesNamedLikeLifecycleEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"disconnect"}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"connect_error","data":"nope"}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"new_notification","data":{"id":"n1"}}`))
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	s := NewWSSocket(testConfig(srv, 0), Options{Role: model.RoleMerchant, Namespace: "/merchant", Token: "tok"}, nil)
	events := collect(s)
	s.Connect()
	defer s.Close()

	require.Equal(t, EventConnect, next(t, events).Name)
	ev := next(t, events)
	assert.Equal(t, EventNewNotification, ev.Name)
	assert.JSONEq(t, `{"id":"n1"}`, string(ev.Data))
	assert.True(t, s.Connected())
}

func TestWSSocketHandshakeRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"auth failed"}`))
	}))
	defer srv.Close()

	s := NewWSSocket(testConfig(srv, 0), Options{Namespace: "/merchant", Token: "bad"}, nil)
	events := collect(s)
	s.Connect()
	defer s.Close()

	ev := next(t, events)
	assert.Equal(t, EventConnectError, ev.Name)
	require.Error(t, ev.Err)
	assert.Equal(t, "auth failed", ev.Err.Error())

	assert.Equal(t, EventReconnectFailed, next(t, events).Name)
	assert.False(t, s.Active())
	assert.False(t, s.Connected())
}

func TestWSSocketReconnectsAfterDrop(t *testing.T) {
	connects := make(chan struct{}, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		connects <- struct{}{}
		if len(connects) == 1 {
			// first connection is dropped straight away
			_ = conn.Close()
			return
		}
		defer conn.Close()
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	s := NewWSSocket(testConfig(srv, 3), Options{Namespace: "/admin", Token: "tok"}, nil)
	events := collect(s)
	s.Connect()
	defer s.Close()

	assert.Equal(t, EventConnect, next(t, events).Name)
	assert.Equal(t, EventDisconnect, next(t, events).Name)

	attempt := next(t, events)
	assert.Equal(t, EventReconnectAttempt, attempt.Name)
	assert.Equal(t, 1, attempt.Attempt)

	reconnect := next(t, events)
	assert.Equal(t, EventReconnect, reconnect.Name)
	assert.Equal(t, 1, reconnect.Attempt)
	assert.True(t, s.Connected())
}

func TestWSSocketConnectIsIdempotent(t *testing.T) {
	hits := make(chan struct{}, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hits <- struct{}{}
		defer conn.Close()
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	s := NewWSSocket(testConfig(srv, 0), Options{Namespace: "/admin", Token: "tok"}, nil)
	events := collect(s)
	s.Connect()
	s.Connect()
	defer s.Close()

	assert.Equal(t, EventConnect, next(t, events).Name)
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, hits, 1)
}

func TestHandshakeErrorFallbacks(t *testing.T) {
	assert.EqualError(t, handshakeError(assert.AnError, nil), assert.AnError.Error())
}
