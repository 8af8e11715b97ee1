// Package websocket provides a gows.Transport backed by the gorilla/websocket library.
//
// Each Open dials in its own goroutine and then runs a read loop that fires the
// connection's handlers in order: OnOpen, OnMessage for every data frame, and
// finally OnClose (preceded by OnError when the connection failed rather than
// being closed by us).
package websocket

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/qntx/gows"
	"github.com/qntx/gows/logger"
)

// --------------------------------------------------------------------------------
// Constants

// Constants defining default configuration values for the transport.
const (
	DefaultTimeout      = 30 * time.Second // Default timeout for handshakes and writes.
	DefaultPingInterval = 30 * time.Second // Default interval for keep-alive pings.
	DefaultPingMessage  = "ping"           // Default payload for ping messages.
)

// --------------------------------------------------------------------------------
// Types

// Option defines a function that configures a Transport and returns an error if configuration fails.
type Option func(*Transport) error

// Config encapsulates settings shared by every connection a Transport opens.
//
// All fields are optional; unset values fall back to defaults defined above.
type Config struct {
	Proxy             func(*http.Request) (*url.URL, error) // Proxy routing function; nil disables proxy.
	TLSClientConfig   *tls.Config                           // TLS settings for wss://; nil uses system defaults.
	Timeout           time.Duration                         // Timeout for handshake and writes.
	ReadBufferSize    int                                   // Read buffer size in bytes; 0 for default (typically 4096).
	WriteBufferSize   int                                   // Write buffer size in bytes; 0 for default (typically 4096).
	Subprotocols      []string                              // Supported subprotocols; nil for none.
	EnableCompression bool                                  // Enables RFC 7692 per-message compression if true.
	ReadLimit         int64                                 // Max message size in bytes; 0 for no limit.
	KeepAlive         bool                                  // Enables periodic pings if true.
	PingInterval      time.Duration                         // Interval between ping messages.
	PingMessage       []byte                                // Custom ping payload; must be short to avoid overhead.
	MessageType       gows.MessageType                      // Frame type used for outbound payloads.
}

// Transport opens gorilla/websocket connections.
//
// It is safe for concurrent use; each connection is independent.
type Transport struct {
	config Config
	header http.Header      // HTTP headers for the connection handshake.
	logger logger.Interface // Logger instance for operational logging.
	ctx    context.Context  // Parent of every connection's lifecycle context.
}

var _ gows.Transport = (*Transport)(nil)

// --------------------------------------------------------------------------------
// Initialization

// New creates a transport with the given options.
//
// It returns the transport and an error if any option fails to apply.
func New(opts ...Option) (*Transport, error) {
	t := &Transport{
		config: Config{
			Timeout:      DefaultTimeout,
			PingInterval: DefaultPingInterval,
			PingMessage:  []byte(DefaultPingMessage),
			MessageType:  gows.MessageText,
		},
		header: make(http.Header),
		logger: logger.Nop(),
		ctx:    context.Background(),
	}

	return t.With(opts...)
}

// With applies a list of options to the Transport and returns the modified instance along with any error.
func (t *Transport) With(opts ...Option) (*Transport, error) {
	for i, opt := range opts {
		if opt == nil {
			continue // Skip nil options gracefully
		}

		if err := opt(t); err != nil {
			return t, fmt.Errorf("failed to apply option at index %d: %w", i, err)
		}
	}

	return t, nil
}

// Config returns a copy of the transport configuration.
func (t *Transport) Config() Config {
	return t.config
}

// Open starts connecting to address and returns immediately.
//
// The outcome is reported through h. Payloads sent before the handshake
// completes are queued and written as soon as it does, ahead of OnOpen.
func (t *Transport) Open(address string, h gows.Handlers) gows.Socket {
	ctx, cancel := context.WithCancel(t.ctx)

	s := &socket{
		url:      address,
		config:   t.config,
		handlers: h,
		logger:   t.logger.With("url", address),
		ctx:      ctx,
		cancel:   cancel,
	}

	dialer := &websocket.Dialer{
		Proxy:             t.config.Proxy,
		TLSClientConfig:   t.config.TLSClientConfig,
		HandshakeTimeout:  t.config.Timeout,
		ReadBufferSize:    t.config.ReadBufferSize,
		WriteBufferSize:   t.config.WriteBufferSize,
		Subprotocols:      t.config.Subprotocols,
		EnableCompression: t.config.EnableCompression,
	}

	go s.run(dialer, t.header.Clone())

	return s
}

// --------------------------------------------------------------------------------
// Option Functions

// WithProxy configures the proxy using a URL string or custom function.
//
// Returns an error if the proxy URL is invalid or the type is unsupported.
func WithProxy(proxy any) Option {
	return func(t *Transport) error {
		switch p := proxy.(type) {
		case string:
			if p == "" {
				t.config.Proxy = nil

				return nil
			}

			u, err := url.Parse(p)
			if err != nil {
				return fmt.Errorf("invalid proxy URL %q: %w", p, err)
			}

			t.config.Proxy = http.ProxyURL(u)
		case func(*http.Request) (*url.URL, error):
			t.config.Proxy = p
		case nil:
			t.config.Proxy = nil
		default:
			return fmt.Errorf("unsupported proxy type: %T", proxy)
		}

		return nil
	}
}

// WithEnvProxy enables proxy settings from environment variables.
func WithEnvProxy() Option {
	return func(t *Transport) error {
		t.config.Proxy = http.ProxyFromEnvironment

		return nil
	}
}

// WithTLS sets the TLS configuration for secure connections.
func WithTLS(cfg *tls.Config) Option {
	return func(t *Transport) error {
		t.config.TLSClientConfig = cfg

		return nil
	}
}

// WithTimeout sets the timeout for connection handshakes and write operations.
//
// Returns an error if the timeout is negative.
func WithTimeout(timeout time.Duration) Option {
	return func(t *Transport) error {
		if timeout < 0 {
			return fmt.Errorf("timeout cannot be negative: %v", timeout)
		}

		t.config.Timeout = timeout

		return nil
	}
}

// WithBuffers configures the read and write buffer sizes in bytes.
//
// Returns an error if either buffer size is negative.
func WithBuffers(read, write int) Option {
	return func(t *Transport) error {
		if read < 0 || write < 0 {
			return fmt.Errorf("buffer sizes cannot be negative: read=%d, write=%d", read, write)
		}

		t.config.ReadBufferSize = read
		t.config.WriteBufferSize = write

		return nil
	}
}

// WithSubprotocols specifies supported WebSocket subprotocols.
func WithSubprotocols(protos ...string) Option {
	return func(t *Transport) error {
		t.config.Subprotocols = protos

		return nil
	}
}

// WithCompression enables or disables RFC 7692 per-message compression.
func WithCompression(enable bool) Option {
	return func(t *Transport) error {
		t.config.EnableCompression = enable

		return nil
	}
}

// WithReadLimit sets the maximum allowed message size in bytes.
//
// Returns an error if the limit is negative.
func WithReadLimit(limit int64) Option {
	return func(t *Transport) error {
		if limit < 0 {
			return fmt.Errorf("read limit cannot be negative: %d", limit)
		}

		t.config.ReadLimit = limit

		return nil
	}
}

// WithKeepAlive enables periodic ping messages with a custom interval and payload.
//
// Returns an error if the interval is not positive.
func WithKeepAlive(interval time.Duration, msg []byte) Option {
	return func(t *Transport) error {
		if interval <= 0 {
			return fmt.Errorf("ping interval must be positive: %v", interval)
		}

		t.config.KeepAlive = true
		t.config.PingInterval = interval
		t.config.PingMessage = msg

		return nil
	}
}

// WithMessageType sets the frame type used for outbound payloads.
//
// Returns an error for anything but gows.MessageText and gows.MessageBinary.
func WithMessageType(typ gows.MessageType) Option {
	return func(t *Transport) error {
		if typ != gows.MessageText && typ != gows.MessageBinary {
			return fmt.Errorf("unsupported message type: %d", typ)
		}

		t.config.MessageType = typ

		return nil
	}
}

// WithLogger sets a custom logger for the transport.
//
// Returns an error if the logger is nil.
func WithLogger(l logger.Interface) Option {
	return func(t *Transport) error {
		if l == nil {
			return errors.New("logger cannot be nil")
		}

		t.logger = l

		return nil
	}
}

// WithHeader adds a single key-value pair to the handshake headers.
//
// Returns an error if the key is empty.
func WithHeader(key, value string) Option {
	return func(t *Transport) error {
		if key == "" {
			return errors.New("header key cannot be empty")
		}

		t.header.Set(key, value)

		return nil
	}
}

// WithHeaders applies multiple headers to the handshake from a map.
//
// Returns an error if any key is empty.
func WithHeaders(headers map[string]string) Option {
	return func(t *Transport) error {
		for k, v := range headers {
			if k == "" {
				return errors.New("header key cannot be empty")
			}

			t.header.Set(k, v)
		}

		return nil
	}
}

// WithContext sets the parent context of every connection; cancelling it
// closes them all.
//
// Returns an error if the context is nil.
func WithContext(ctx context.Context) Option {
	return func(t *Transport) error {
		if ctx == nil {
			return errors.New("context cannot be nil")
		}

		t.ctx = ctx

		return nil
	}
}
