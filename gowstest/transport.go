// Package gowstest provides an in-memory gows.Transport whose events are fired
// by the test itself.
package gowstest

import (
	"sync"

	"github.com/qntx/gows"
)

// Transport records every connection opened on it.
//
// It is safe for concurrent use.
type Transport struct {
	// ManualClose stops Socket.Close from firing OnClose; the test then calls
	// Socket.FireClose itself.
	ManualClose bool

	mu      sync.Mutex
	sockets []*Socket
}

var _ gows.Transport = (*Transport)(nil)

// NewTransport creates an empty transport.
func NewTransport() *Transport {
	return &Transport{}
}

// Open records a new socket for address. No event is fired.
func (t *Transport) Open(address string, h gows.Handlers) gows.Socket {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := &Socket{
		address:     address,
		handlers:    h,
		manualClose: t.ManualClose,
	}
	t.sockets = append(t.sockets, s)

	return s
}

// Sockets returns the sockets opened so far, oldest first.
func (t *Transport) Sockets() []*Socket {
	t.mu.Lock()
	defer t.mu.Unlock()

	return append([]*Socket(nil), t.sockets...)
}

// Last returns the most recently opened socket, or nil.
func (t *Transport) Last() *Socket {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.sockets) == 0 {
		return nil
	}

	return t.sockets[len(t.sockets)-1]
}

// Socket is one scripted connection.
type Socket struct {
	address     string
	handlers    gows.Handlers
	manualClose bool

	mu         sync.Mutex
	sent       [][]byte
	closeCalls int
}

var _ gows.Socket = (*Socket)(nil)

// Address returns the address the socket was opened with.
func (s *Socket) Address() string {
	return s.address
}

// Send records payload.
func (s *Socket) Send(payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sent = append(s.sent, append([]byte(nil), payload...))
}

// Close records the call and, unless the transport uses ManualClose, fires
// OnClose like a server acknowledging the close.
func (s *Socket) Close() {
	s.mu.Lock()
	s.closeCalls++
	s.mu.Unlock()

	if !s.manualClose {
		s.FireClose()
	}
}

// Sent returns copies of every payload sent so far.
func (s *Socket) Sent() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([][]byte(nil), s.sent...)
}

// CloseCalls reports how many times Close was called.
func (s *Socket) CloseCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closeCalls
}

// FireOpen fires OnOpen.
func (s *Socket) FireOpen() {
	if s.handlers.OnOpen != nil {
		s.handlers.OnOpen()
	}
}

// FireMessage fires OnMessage with payload.
func (s *Socket) FireMessage(payload []byte) {
	if s.handlers.OnMessage != nil {
		s.handlers.OnMessage(payload)
	}
}

// FireClose fires OnClose.
func (s *Socket) FireClose() {
	if s.handlers.OnClose != nil {
		s.handlers.OnClose()
	}
}

// FireError fires OnError with err.
func (s *Socket) FireError(err error) {
	if s.handlers.OnError != nil {
		s.handlers.OnError(err)
	}
}
