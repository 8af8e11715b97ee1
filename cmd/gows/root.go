package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	cws "github.com/coder/websocket"
	"github.com/joho/godotenv"
	"github.com/qntx/gows"
	"github.com/qntx/gows/coder"
	"github.com/qntx/gows/format"
	"github.com/qntx/gows/logger"
	"github.com/qntx/gows/websocket"
	"github.com/spf13/cobra"
)

// Environment variables read after loading .env.
const (
	envURL       = "GOWS_URL"
	envTransport = "GOWS_TRANSPORT"
	envLogLevel  = "GOWS_LOG_LEVEL"
)

// options are the resolved command-line settings.
type options struct {
	url       string
	transport string
	logLevel  string
	timeout   time.Duration
	heartbeat time.Duration
	headers   []string
	binary    bool
	pretty    bool
	count     int
}

func newRootCmd() *cobra.Command {
	opts := options{}

	cmd := &cobra.Command{
		Use:   "gows [url]",
		Short: "Talk to a WebSocket server from the terminal",
		Long: `gows connects to a WebSocket server, sends every line read from stdin
and prints every message received.

Defaults are read from the environment and from a .env file in the working
directory: GOWS_URL, GOWS_TRANSPORT and GOWS_LOG_LEVEL.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.url = args[0]
			}

			if opts.url == "" {
				return errors.New("no url given and GOWS_URL is not set")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, opts, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	// Missing .env is fine; flags and the environment still apply.
	_ = godotenv.Load()

	flags := cmd.Flags()
	flags.StringVar(&opts.url, "url", os.Getenv(envURL), "server URL (overridden by the positional argument)")
	flags.StringVarP(&opts.transport, "transport", "t", envOr(envTransport, "gorilla"), "transport implementation: gorilla or coder")
	flags.StringVar(&opts.logLevel, "log-level", envOr(envLogLevel, "warn"), "log level: debug, info, warn, error")
	flags.DurationVar(&opts.timeout, "timeout", websocket.DefaultTimeout, "handshake and write timeout")
	flags.DurationVar(&opts.heartbeat, "heartbeat", 0, "ping interval; 0 disables pings")
	flags.StringArrayVarP(&opts.headers, "header", "H", nil, "handshake header as Key:Value (repeatable)")
	flags.BoolVarP(&opts.binary, "binary", "b", false, "send binary frames instead of text")
	flags.BoolVarP(&opts.pretty, "pretty", "p", false, "indent JSON messages")
	flags.IntVarP(&opts.count, "count", "n", 0, "close after receiving this many messages; stdin EOF then keeps the connection open")

	return cmd
}

// event is the command's application message.
type event struct {
	kind    eventKind
	payload []byte
	status  gows.Status
}

type eventKind int

const (
	eventData eventKind = iota
	eventStatus
	eventInput
	eventEOF
	eventQuit
)

// run connects and drives the event loop until the connection is closed.
func run(ctx context.Context, opts options, in io.Reader, out, errOut io.Writer) error {
	l, err := logger.New(opts.logLevel, errOut)
	if err != nil {
		return err
	}

	transport, err := newTransport(opts, l)
	if err != nil {
		return err
	}

	events := gows.NewQueue[event]()

	svc, err := gows.New[event](transport, events, gows.WithLogger(l))
	if err != nil {
		return err
	}

	p := newPrinter(out, opts.pretty)
	p.Connecting(opts.url)

	handle := svc.Connect(opts.url,
		func(b []byte) event { return event{kind: eventData, payload: b} },
		func(st gows.Status) event { return event{kind: eventStatus, status: st} },
	)

	go readInput(in, events)

	go func() {
		<-ctx.Done()
		events.Dispatch(event{kind: eventQuit})
	}()

	received := 0

	// The loop itself never stops on ctx: a quit event closes the connection
	// and the loop ends on the resulting Closed.
	return events.Run(context.Background(), func(ev event) {
		switch ev.kind {
		case eventStatus:
			switch ev.status {
			case gows.Opened:
				p.Connected()
			case gows.Closed:
				p.Closed()
				events.Close()
			}
		case eventData:
			received++
			p.Message(ev.payload)

			if opts.count > 0 && received == opts.count {
				_ = handle.Close()
			}
		case eventInput:
			if err := handle.TrySend(storable(ev.payload, opts.binary)); err != nil {
				l.Debug("Dropped input line: %v", err)
			}
		case eventEOF:
			if opts.count == 0 {
				_ = handle.Close()
			}
		case eventQuit:
			_ = handle.Close()
		}
	})
}

// newTransport builds the transport selected by opts.
func newTransport(opts options, l logger.Interface) (gows.Transport, error) {
	typ := gows.MessageText
	if opts.binary {
		typ = gows.MessageBinary
	}

	headers, err := parseHeaders(opts.headers)
	if err != nil {
		return nil, err
	}

	switch opts.transport {
	case "gorilla":
		wsOpts := []websocket.Option{
			websocket.WithTimeout(opts.timeout),
			websocket.WithMessageType(typ),
			websocket.WithHeaders(headers),
			websocket.WithEnvProxy(),
			websocket.WithLogger(l),
		}

		if opts.heartbeat > 0 {
			wsOpts = append(wsOpts, websocket.WithKeepAlive(opts.heartbeat, []byte(websocket.DefaultPingMessage)))
		}

		return websocket.New(wsOpts...)
	case "coder":
		cfg := coder.DefaultConfig().
			WithHeartbeat(opts.heartbeat).
			WithWriteTimeout(opts.timeout).
			WithMessageType(typ).
			WithLogger(l)

		if len(headers) > 0 {
			h := make(http.Header, len(headers))
			for k, v := range headers {
				h.Set(k, v)
			}

			cfg.WithDialOptions(&cws.DialOptions{HTTPHeader: h})
		}

		return coder.New(cfg.Clone()), nil
	default:
		return nil, fmt.Errorf("unknown transport %q: want gorilla or coder", opts.transport)
	}
}

// parseHeaders turns Key:Value strings into a map.
func parseHeaders(raw []string) (map[string]string, error) {
	headers := make(map[string]string, len(raw))

	for _, h := range raw {
		k, v, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid header %q: want Key:Value", h)
		}

		headers[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}

	return headers, nil
}

// readInput dispatches every stdin line, then an EOF event.
func readInput(in io.Reader, events gows.Dispatcher[event]) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		events.Dispatch(event{kind: eventInput, payload: []byte(scanner.Text())})
	}

	events.Dispatch(event{kind: eventEOF})
}

func storable(p []byte, binary bool) format.Storable {
	if binary {
		return format.Binary(p)
	}

	return format.Text(p)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}
