package coder

import (
	"context"
	"time"

	"github.com/coder/websocket"
	"github.com/qntx/gows"
	"github.com/qntx/gows/logger"
)

// Config holds the configuration for the transport.
type Config struct {
	Context      context.Context // Parent of every connection's lifecycle context.
	Heartbeat    time.Duration   // Interval between pings; 0 disables them.
	ReadLimit    int64           // Max message size in bytes; 0 keeps the library default.
	WriteTimeout time.Duration   // Bound for each write; 0 for none.
	DialOptions  *websocket.DialOptions
	MessageType  gows.MessageType // Frame type used for outbound payloads.
	Logger       logger.Interface
}

func NewConfig() *Config {
	return &Config{}
}

func DefaultConfig() *Config {
	return &Config{
		Context:      context.Background(),
		Heartbeat:    30 * time.Second,
		ReadLimit:    0,
		WriteTimeout: 10 * time.Second,
		DialOptions:  nil,
		MessageType:  gows.MessageText,
		Logger:       logger.Nop(),
	}
}

func (c *Config) WithContext(ctx context.Context) *Config {
	c.Context = ctx
	return c
}

func (c *Config) WithHeartbeat(heartbeat time.Duration) *Config {
	c.Heartbeat = heartbeat
	return c
}

func (c *Config) WithReadLimit(limit int64) *Config {
	c.ReadLimit = limit
	return c
}

func (c *Config) WithWriteTimeout(timeout time.Duration) *Config {
	c.WriteTimeout = timeout
	return c
}

func (c *Config) WithDialOptions(opts *websocket.DialOptions) *Config {
	c.DialOptions = opts
	return c
}

func (c *Config) WithMessageType(typ gows.MessageType) *Config {
	c.MessageType = typ
	return c
}

func (c *Config) WithLogger(l logger.Interface) *Config {
	c.Logger = l
	return c
}

func (c *Config) Clone() Config {
	return Config{
		Context:      c.Context,
		Heartbeat:    c.Heartbeat,
		ReadLimit:    c.ReadLimit,
		WriteTimeout: c.WriteTimeout,
		DialOptions:  c.DialOptions,
		MessageType:  c.MessageType,
		Logger:       c.Logger,
	}
}
