package gows

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/qntx/gows/format"
)

// Handle controls one connection opened by Service.Connect.
//
// A handle is Live until Cancel is called or the transport reports the
// connection closed; after that it is Released for good. Send and Cancel on a
// Released handle are programming errors and panic with ErrHandleReleased.
// TrySend and Close are the non-panicking variants for callers that may race
// with a remote close.
//
// A Handle is safe for concurrent use.
type Handle struct {
	id uuid.UUID

	mu       sync.Mutex
	socket   Socket // Nil until Open returns.
	released bool
}

var _ Task = (*Handle)(nil)

func newHandle() *Handle {
	return &Handle{id: uuid.New()}
}

// ID returns the handle's unique identifier, as it appears in log entries.
func (h *Handle) ID() uuid.UUID {
	return h.id
}

// Released reports whether the connection has been released.
func (h *Handle) Released() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.released
}

// Send forwards the stored payload of data to the connection.
//
// Data that stores to no payload is silently skipped. Send panics if the
// handle is Released.
func (h *Handle) Send(data format.Storable) {
	if err := h.TrySend(data); err != nil {
		panic(fmt.Errorf("can't send data to the closed websocket connection: %w", err))
	}
}

// TrySend is Send returning ErrHandleReleased instead of panicking.
func (h *Handle) TrySend(data format.Storable) error {
	h.mu.Lock()
	if h.released {
		h.mu.Unlock()

		return ErrHandleReleased
	}

	socket := h.socket
	h.mu.Unlock()

	if data == nil {
		return nil
	}

	payload, ok := data.Store()
	if !ok {
		return nil
	}

	socket.Send(payload)

	return nil
}

// Cancel closes the connection and releases the handle.
//
// The transport reports the close afterwards, which produces the Closed
// notification. Cancel panics if the handle is already Released, including
// when Cancel was called before.
func (h *Handle) Cancel() {
	if err := h.Close(); err != nil {
		panic(fmt.Errorf("tried to close websocket twice: %w", err))
	}
}

// Close is Cancel returning ErrHandleReleased instead of panicking.
func (h *Handle) Close() error {
	socket := h.release()
	if socket == nil {
		return ErrHandleReleased
	}

	socket.Close()

	return nil
}

// attach stores the socket returned by Transport.Open. If the connection was
// already released while Open ran, the socket is not kept.
func (h *Handle) attach(socket Socket) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.released {
		h.socket = socket
	}
}

// release moves the handle to Released and returns the socket it held, or nil
// if it was already Released. No lock is held on return, so the caller may
// call into the transport.
func (h *Handle) release() Socket {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.released {
		return nil
	}

	h.released = true
	socket := h.socket
	h.socket = nil

	if socket == nil {
		// Released before Open returned; report success with a no-op socket.
		return closedSocket{}
	}

	return socket
}

// closedSocket stands in for a socket that never reached the handle.
type closedSocket struct{}

func (closedSocket) Send([]byte) {}

func (closedSocket) Close() {}
