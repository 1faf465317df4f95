package realtime

import (
	"errors"
	"fmt"
	"sync"

	"github.com/nhle/giftcard-console/internal/model"
	"github.com/nhle/giftcard-console/internal/transport"
)

// fakeSocket is an in-memory transport.Socket driven by the test.
type fakeSocket struct {
	id   string
	opts transport.Options

	mu        sync.Mutex
	handler   transport.Handler
	connects  int
	connected bool
	active    bool
	closed    bool
}

func (f *fakeSocket) ID() string { return f.id }

func (f *fakeSocket) SetHandler(h transport.Handler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = h
}

func (f *fakeSocket) Connect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	f.active = true
}

func (f *fakeSocket) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.active = false
	f.connected = false
}

func (f *fakeSocket) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeSocket) Active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active && !f.closed
}

func (f *fakeSocket) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// emit delivers ev the way the websocket reader would.
func (f *fakeSocket) emit(ev transport.Event) {
	f.mu.Lock()
	switch ev.Name {
	case transport.EventConnect, transport.EventReconnect:
		f.connected = true
	case transport.EventDisconnect:
		f.connected = false
	case transport.EventReconnectFailed:
		f.connected = false
		f.active = false
	}
	h := f.handler
	f.mu.Unlock()
	if h != nil {
		h(ev)
	}
}

func (f *fakeSocket) push(name, payload string) {
	f.emit(transport.Event{Name: name, Data: []byte(payload)})
}

func (f *fakeSocket) fail(msg string) {
	f.emit(transport.Event{Name: transport.EventConnectError, Err: errors.New(msg)})
}

// fakeFactory records every socket it creates.
type fakeFactory struct {
	mu      sync.Mutex
	sockets []*fakeSocket
}

func (ff *fakeFactory) New(opts transport.Options) transport.Socket {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	s := &fakeSocket{id: fmt.Sprintf("sock-%d", len(ff.sockets)+1), opts: opts}
	ff.sockets = append(ff.sockets, s)
	return s
}

func (ff *fakeFactory) Count() int {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	return len(ff.sockets)
}

func (ff *fakeFactory) Last() *fakeSocket {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	return ff.sockets[len(ff.sockets)-1]
}

func newTestRegistry() (*Registry, *fakeFactory) {
	ff := &fakeFactory{}
	return NewRegistry(ff.New, nil, nil), ff
}

// staticAuth is a fixed AuthSource.
type staticAuth struct {
	token string
	role  model.Role
}

func (a staticAuth) AccessToken() string { return a.token }

func (a staticAuth) Role() (model.Role, bool) { return a.role, a.role != "" }
