// Package coder provides a gows.Transport backed by the coder/websocket library.
//
// Connections behave like those of the gorilla-based websocket package: the
// handshake runs in the background, OnOpen precedes every OnMessage, and OnClose
// fires exactly once, preceded by OnError when the connection failed.
package coder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/qntx/gows"
	"github.com/qntx/gows/logger"
)

var _ gows.Transport = (*Transport)(nil)

// Transport opens coder/websocket connections.
type Transport struct {
	cfg Config
}

// New creates a transport. Unset Context and Logger fall back to
// context.Background and a no-op logger.
func New(cfg Config) *Transport {
	if cfg.Context == nil {
		cfg.Context = context.Background()
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}

	if cfg.MessageType == 0 {
		cfg.MessageType = gows.MessageText
	}

	return &Transport{cfg: cfg}
}

// Open starts connecting to address and returns immediately.
func (t *Transport) Open(address string, h gows.Handlers) gows.Socket {
	ctx, cancel := context.WithCancel(t.cfg.Context)

	s := &socket{
		url:      address,
		cfg:      t.cfg,
		handlers: h,
		logger:   t.cfg.Logger.With("url", address),
		ctx:      ctx,
		cancel:   cancel,
	}

	go s.run()

	return s
}

// socket is one coder/websocket connection.
// It allows for one reader goroutine and multiple concurrent writers.
type socket struct {
	url      string
	cfg      Config
	handlers gows.Handlers
	logger   logger.Interface

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	conn    *websocket.Conn
	pending [][]byte
	closing bool

	sendMu sync.Mutex // Keeps queued payloads ahead of later sends.
}

// Send writes payload, or queues it while the handshake is in progress.
func (s *socket) Send(payload []byte) {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		s.logger.Debug("Dropped %d bytes sent after close", len(payload))

		return
	}

	conn := s.conn
	if conn == nil {
		s.pending = append(s.pending, payload)
		s.mu.Unlock()

		return
	}
	s.mu.Unlock()

	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	s.write(conn, payload)
}

// Close starts the closing handshake without waiting for it.
func (s *socket) Close() {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()

		return
	}

	s.closing = true
	conn := s.conn
	s.pending = nil
	s.mu.Unlock()

	if conn == nil {
		s.cancel() // Aborts the handshake.

		return
	}

	// The handshake needs the read loop to receive the peer's close frame.
	go func() {
		if err := conn.Close(websocket.StatusNormalClosure, "closing connection"); err != nil {
			s.logger.Debug("Close handshake failed: %v", err)
		}
	}()
}

// run dials, fires OnOpen, and reads until the connection ends.
func (s *socket) run() {
	conn, _, err := websocket.Dial(s.ctx, s.url, s.cfg.DialOptions)
	if err != nil {
		if s.isClosing() {
			s.finish(nil)

			return
		}

		s.finish(fmt.Errorf("failed to dial websocket: %w", err))

		return
	}

	if s.cfg.ReadLimit > 0 {
		conn.SetReadLimit(s.cfg.ReadLimit)
	}

	if !s.attach(conn) {
		_ = conn.CloseNow()
		s.finish(nil)

		return
	}

	s.logger.Info("Connected to %s", s.url)

	if s.handlers.OnOpen != nil {
		s.handlers.OnOpen()
	}

	if s.cfg.Heartbeat > 0 {
		go s.heartbeat(conn)
	}

	s.finish(s.read(conn))
}

// attach publishes conn to senders and flushes queued payloads. It reports
// false if Close was called during the handshake.
func (s *socket) attach(conn *websocket.Conn) bool {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()

		return false
	}

	s.conn = conn
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, payload := range pending {
		s.write(conn, payload)
	}

	return true
}

// read fires OnMessage for every message until reading fails. A normal or
// going-away close, or one we started, yields nil.
func (s *socket) read(conn *websocket.Conn) error {
	for {
		typ, p, err := conn.Read(s.ctx)
		if err != nil {
			if s.isClosing() {
				return nil
			}

			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return nil
			}

			return fmt.Errorf("message read failed: %w", err)
		}

		s.logger.Debug("Received message [type=%v, size=%d]", typ, len(p))

		if s.handlers.OnMessage != nil {
			s.handlers.OnMessage(p)
		}
	}
}

// finish tears the connection down and fires the terminal handlers.
func (s *socket) finish(err error) {
	s.mu.Lock()
	s.closing = true
	conn := s.conn
	s.pending = nil
	s.mu.Unlock()

	s.cancel()

	if conn != nil {
		_ = conn.CloseNow()
	}

	if err != nil {
		s.logger.Error("Error: %v", err)

		if s.handlers.OnError != nil {
			s.handlers.OnError(err)
		}
	}

	s.logger.Info("Connection to %s closed", s.url)

	if s.handlers.OnClose != nil {
		s.handlers.OnClose()
	}
}

// heartbeat sends periodic pings to keep the connection alive.
func (s *socket) heartbeat(conn *websocket.Conn) {
	t := time.NewTicker(s.cfg.Heartbeat)
	defer t.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-t.C:
		}

		if err := conn.Ping(s.ctx); err != nil {
			if !errors.Is(err, context.Canceled) {
				s.logger.Warn("Heartbeat failed: %v", err)
			}

			return
		}
	}
}

// write sends one message; the caller holds sendMu.
func (s *socket) write(conn *websocket.Conn, payload []byte) {
	ctx := s.ctx

	if s.cfg.WriteTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, s.cfg.WriteTimeout)
		defer cancel()
	}

	if err := conn.Write(ctx, messageType(s.cfg.MessageType), payload); err != nil {
		s.logger.Error("Write failed: %v", err)
	}
}

func (s *socket) isClosing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closing
}

// messageType converts a gows message type to a coder/websocket one.
func messageType(typ gows.MessageType) websocket.MessageType {
	if typ == gows.MessageBinary {
		return websocket.MessageBinary
	}

	return websocket.MessageText
}
