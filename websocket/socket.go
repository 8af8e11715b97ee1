package websocket

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/qntx/gows"
	"github.com/qntx/gows/logger"
)

// socket is one gorilla/websocket connection driven by its own goroutine.
type socket struct {
	url      string
	config   Config
	handlers gows.Handlers
	logger   logger.Interface

	ctx    context.Context // Lifecycle context; cancelled when the connection ends.
	cancel context.CancelFunc

	mu      sync.Mutex // Protects conn, pending and closing.
	conn    *websocket.Conn
	pending [][]byte // Payloads sent before the handshake completed.
	closing bool     // Set once Close is called.

	sendMu sync.Mutex // Ensures thread-safe message sending.
}

var _ gows.Socket = (*socket)(nil)

// --------------------------------------------------------------------------------
// gows.Socket

// Send writes payload, or queues it while the handshake is in progress.
//
// Payloads sent after Close are dropped. Write failures are logged and end the
// connection, which the read loop then reports through OnError and OnClose.
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

// Close starts a graceful shutdown. It does not wait for the connection
// goroutine; OnClose fires once it has finished.
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

	s.cancel() // Aborts a handshake in progress.

	if conn == nil {
		return
	}

	s.sendMu.Lock()
	closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := conn.WriteControl(websocket.CloseMessage, closeMsg, s.deadline()); err != nil {
		s.logger.Debug("Failed to send close message: %v", err)
	}
	s.sendMu.Unlock()

	if err := conn.Close(); err != nil {
		s.logger.Debug("Failed to close connection: %v", err)
	}
}

// --------------------------------------------------------------------------------
// Lifecycle (Private)

// run dials, fires OnOpen, and reads until the connection ends.
func (s *socket) run(dialer *websocket.Dialer, header http.Header) {
	conn, resp, err := dialer.DialContext(s.ctx, s.url, header)
	if err != nil {
		if resp != nil {
			s.logger.Error("HTTP response: %d %s", resp.StatusCode, resp.Status)
		}

		if s.isClosing() {
			s.finish(nil)

			return
		}

		s.finish(fmt.Errorf("dial failed: %w", err))

		return
	}

	conn.SetReadLimit(s.config.ReadLimit)
	s.setupHandlers(conn)

	if !s.attach(conn) {
		_ = conn.Close()
		s.finish(nil)

		return
	}

	s.logger.Info("Connected to %s", s.url)

	if s.handlers.OnOpen != nil {
		s.handlers.OnOpen()
	}

	if s.config.KeepAlive {
		go s.keepAlive(conn)
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

// read fires OnMessage for every data frame until reading fails.
//
// It returns nil when the connection ended normally: closed by us or closed by
// the server with a normal or going-away status.
func (s *socket) read(conn *websocket.Conn) error {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if s.isClosing() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}

			return fmt.Errorf("message read failed: %w", err)
		}

		s.logger.Debug("Received message [type=%d, size=%d]", msgType, len(data))

		if s.handlers.OnMessage != nil {
			s.handlers.OnMessage(data)
		}
	}
}

// finish releases the connection and fires the terminal handlers.
func (s *socket) finish(err error) {
	s.mu.Lock()
	s.closing = true
	conn := s.conn
	s.pending = nil
	s.mu.Unlock()

	s.cancel()

	if conn != nil {
		_ = conn.Close()
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

// setupHandlers configures control frame handlers for ping and close events.
func (s *socket) setupHandlers(conn *websocket.Conn) {
	conn.SetPingHandler(func(data string) error {
		s.logger.Debug("Ping received: %s", data)

		s.sendMu.Lock()
		defer s.sendMu.Unlock()

		err := conn.WriteControl(websocket.PongMessage, []byte(data), s.deadline())
		if err == websocket.ErrCloseSent {
			return nil
		}

		return err
	})

	conn.SetPongHandler(func(data string) error {
		s.logger.Debug("Pong received: %s", data)

		return nil
	})

	conn.SetCloseHandler(func(code int, text string) error {
		s.logger.Info("Connection closed by server: %d - %s", code, text)

		s.sendMu.Lock()
		defer s.sendMu.Unlock()

		closeMsg := websocket.FormatCloseMessage(code, "")
		_ = conn.WriteControl(websocket.CloseMessage, closeMsg, s.deadline())

		return nil
	})
}

// keepAlive sends periodic ping messages until the connection ends or a ping fails.
func (s *socket) keepAlive(conn *websocket.Conn) {
	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.sendMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, s.config.PingMessage, s.deadline())
			s.sendMu.Unlock()

			if err != nil {
				s.logger.Warn("Keep-alive ping failed: %v", err)
				_ = conn.Close()

				return
			}
		}
	}
}

// --------------------------------------------------------------------------------
// Utilities (Private)

// write sends one data frame; the caller holds sendMu.
func (s *socket) write(conn *websocket.Conn, payload []byte) {
	if err := conn.SetWriteDeadline(s.deadline()); err != nil {
		s.logger.Error("Set write deadline failed: %v", err)
	}

	if err := conn.WriteMessage(frameType(s.config.MessageType), payload); err != nil {
		s.logger.Error("Write failed: %v", err)
		_ = conn.Close()
	}
}

// deadline returns the write deadline for a new frame; zero when no timeout is configured.
func (s *socket) deadline() time.Time {
	if s.config.Timeout <= 0 {
		return time.Time{}
	}

	return time.Now().Add(s.config.Timeout)
}

func (s *socket) isClosing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closing
}

// frameType converts a gows message type to a gorilla frame type.
func frameType(typ gows.MessageType) int {
	if typ == gows.MessageBinary {
		return websocket.BinaryMessage
	}

	return websocket.TextMessage
}
