// Package gows connects message-passing applications to WebSocket servers.
//
// A Service opens connections on a pluggable Transport and turns every transport
// event into an application message: inbound frames go through a decoder, and
// open/close transitions go through a notifier. The returned Handle is the only
// way to send data or close the connection from the application side.
package gows

import (
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------------
// Errors

var (
	// ErrHandleReleased is the panic value (wrapped) for any use of a handle after
	// its connection has been released, including a second Cancel.
	ErrHandleReleased = errors.New("gows: websocket handle is released")
	// ErrUnknownStatusCode is the panic value (wrapped) for a status code outside
	// CodeOpened and CodeClosed.
	ErrUnknownStatusCode = errors.New("gows: unknown websocket status code")
	// ErrNilTransport is returned by New when no transport is given.
	ErrNilTransport = errors.New("gows: transport is required")
	// ErrNilDispatcher is returned by New when no dispatcher is given.
	ErrNilDispatcher = errors.New("gows: dispatcher is required")
)

// --------------------------------------------------------------------------------
// Message Types

type MessageType int

const (
	// MessageText is for UTF-8 encoded text messages like JSON.
	MessageText MessageType = iota + 1
	// MessageBinary is for binary messages like protobufs.
	MessageBinary
)

// --------------------------------------------------------------------------------
// Status

// Status is a connection lifecycle change reported to the application.
type Status int

const (
	// Opened is reported once the transport has established the connection.
	Opened Status = iota + 1
	// Closed is reported once the connection is gone, whether it was closed
	// gracefully, refused, or failed.
	Closed
)

// String returns the name of the status.
func (s Status) String() string {
	switch s {
	case Opened:
		return "Opened"
	case Closed:
		return "Closed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Normalized transport status codes.
const (
	CodeClosed uint32 = 0
	CodeOpened uint32 = 1
)

// StatusFromCode maps a normalized transport status code to a Status.
//
// Transports only ever emit CodeOpened and CodeClosed; any other code is a
// broken transport and StatusFromCode panics with ErrUnknownStatusCode.
func StatusFromCode(code uint32) Status {
	switch code {
	case CodeOpened:
		return Opened
	case CodeClosed:
		return Closed
	default:
		panic(fmt.Errorf("%w: %d", ErrUnknownStatusCode, code))
	}
}

// --------------------------------------------------------------------------------
// Transport Boundary

// Handlers are the event callbacks a Transport fires for one connection.
//
// A transport fires OnOpen before any OnMessage, and OnClose at most once after
// the last OnMessage. OnError may precede OnClose for the same failure.
// Handlers for one connection are never fired concurrently.
type Handlers struct {
	OnOpen    func()
	OnMessage func(payload []byte)
	OnClose   func()
	OnError   func(err error)
}

// Socket is the transport's reference to one connection.
//
// Send and Close are fire-and-forget. Close eventually fires OnClose.
type Socket interface {
	Send(payload []byte)
	Close()
}

// Transport opens connections.
//
// Open must return without waiting for the connection to be established;
// failures are reported through h.OnError and h.OnClose.
type Transport interface {
	Open(address string, h Handlers) Socket
}

// Task is a piece of running work that can be cancelled.
type Task interface {
	Cancel()
}
