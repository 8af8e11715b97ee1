package coder_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/qntx/gows"
	"github.com/qntx/gows/coder"
	"github.com/qntx/gows/format"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const waitTimeout = 5 * time.Second

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type event struct {
	Data   string
	Status gows.Status
}

// newServer starts a coder/websocket server running handle for every connection.
func newServer(t *testing.T, handle func(context.Context, *websocket.Conn)) string {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.CloseNow()

		handle(r.Context(), conn)
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func echo(ctx context.Context, conn *websocket.Conn) {
	for {
		typ, p, err := conn.Read(ctx)
		if err != nil {
			return
		}

		if err := conn.Write(ctx, typ, p); err != nil {
			return
		}
	}
}

func connect(t *testing.T, url string, cfg *coder.Config) (*gows.Queue[event], *gows.Handle) {
	t.Helper()

	q := gows.NewQueue[event]()

	svc, err := gows.New[event](coder.New(cfg.Clone()), q)
	require.NoError(t, err)

	h := svc.Connect(url,
		func(p []byte) event { return event{Data: string(p)} },
		func(st gows.Status) event { return event{Status: st} },
	)

	return q, h
}

func next(t *testing.T, q *gows.Queue[event]) event {
	t.Helper()

	ctx, cancel := context.WithTimeout(t.Context(), waitTimeout)
	defer cancel()

	ev, err := q.Next(ctx)
	require.NoError(t, err, "waiting for event")

	return ev
}

func TestEchoRoundTrip(t *testing.T) {
	t.Parallel()

	q, h := connect(t, newServer(t, echo), coder.DefaultConfig())

	assert.Equal(t, event{Status: gows.Opened}, next(t, q))

	h.Send(format.Text("ping"))
	assert.Equal(t, event{Data: "ping"}, next(t, q))

	h.Cancel()
	assert.Equal(t, event{Status: gows.Closed}, next(t, q))
	assert.True(t, h.Released())
	assert.Panics(t, h.Cancel)
}

func TestSendBeforeOpenIsQueued(t *testing.T) {
	t.Parallel()

	q, h := connect(t, newServer(t, echo), coder.DefaultConfig().WithHeartbeat(0))

	h.Send(format.Text("first"))
	h.Send(format.Text("second"))

	assert.Equal(t, event{Status: gows.Opened}, next(t, q))
	assert.Equal(t, event{Data: "first"}, next(t, q))
	assert.Equal(t, event{Data: "second"}, next(t, q))

	h.Cancel()
	assert.Equal(t, event{Status: gows.Closed}, next(t, q))
}

func TestServerClose(t *testing.T) {
	t.Parallel()

	url := newServer(t, func(ctx context.Context, conn *websocket.Conn) {
		_ = conn.Write(ctx, websocket.MessageText, []byte("bye"))
		_ = conn.Close(websocket.StatusNormalClosure, "done")
	})

	q, h := connect(t, url, coder.DefaultConfig())

	assert.Equal(t, event{Status: gows.Opened}, next(t, q))
	assert.Equal(t, event{Data: "bye"}, next(t, q))
	assert.Equal(t, event{Status: gows.Closed}, next(t, q))
	assert.True(t, h.Released())
}

func TestAbruptServerDisconnect(t *testing.T) {
	t.Parallel()

	url := newServer(t, func(ctx context.Context, conn *websocket.Conn) {
		_ = conn.Write(ctx, websocket.MessageText, []byte("last"))
		_ = conn.CloseNow()
	})

	q, h := connect(t, url, coder.DefaultConfig())

	assert.Equal(t, event{Status: gows.Opened}, next(t, q))
	assert.Equal(t, event{Data: "last"}, next(t, q))
	assert.Equal(t, event{Status: gows.Closed}, next(t, q))
	assert.Zero(t, q.Len())
	assert.True(t, h.Released())
}

func TestCancelDuringHandshake(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	q, h := connect(t, "ws"+strings.TrimPrefix(srv.URL, "http"), coder.DefaultConfig())

	h.Cancel()

	assert.Equal(t, event{Status: gows.Closed}, next(t, q))
	assert.Zero(t, q.Len())
	assert.True(t, h.Released())
}

func TestDialFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	q, h := connect(t, "ws"+strings.TrimPrefix(srv.URL, "http"), coder.DefaultConfig())

	assert.Equal(t, event{Status: gows.Closed}, next(t, q))
	assert.True(t, h.Released())
}

func TestBinaryMessages(t *testing.T) {
	t.Parallel()

	types := make(chan websocket.MessageType, 1)

	url := newServer(t, func(ctx context.Context, conn *websocket.Conn) {
		typ, p, err := conn.Read(ctx)
		if err != nil {
			return
		}

		types <- typ
		_ = conn.Write(ctx, typ, p)
		echo(ctx, conn)
	})

	q, h := connect(t, url, coder.DefaultConfig().WithMessageType(gows.MessageBinary))

	assert.Equal(t, event{Status: gows.Opened}, next(t, q))

	h.Send(format.Binary{0x01})
	assert.Equal(t, event{Data: "\x01"}, next(t, q))
	assert.Equal(t, websocket.MessageBinary, <-types)

	h.Cancel()
	assert.Equal(t, event{Status: gows.Closed}, next(t, q))
}

func TestConfigBuilders(t *testing.T) {
	t.Parallel()

	cfg := coder.NewConfig().
		WithHeartbeat(time.Second).
		WithReadLimit(1024).
		WithWriteTimeout(time.Second).
		WithMessageType(gows.MessageBinary)

	clone := cfg.Clone()
	assert.Equal(t, time.Second, clone.Heartbeat)
	assert.Equal(t, int64(1024), clone.ReadLimit)
	assert.Equal(t, gows.MessageBinary, clone.MessageType)

	def := coder.DefaultConfig()
	assert.Equal(t, gows.MessageText, def.MessageType)
	assert.NotNil(t, def.Context)
}
