package gowstest_test

import (
	"errors"
	"testing"

	"github.com/qntx/gows"
	"github.com/qntx/gows/gowstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransportRecordsSockets(t *testing.T) {
	t.Parallel()

	tr := gowstest.NewTransport()
	assert.Nil(t, tr.Last())

	tr.Open("ws://a", gows.Handlers{})
	tr.Open("ws://b", gows.Handlers{})

	sockets := tr.Sockets()
	require.Len(t, sockets, 2)
	assert.Equal(t, "ws://a", sockets[0].Address())
	assert.Equal(t, "ws://b", tr.Last().Address())
}

func TestSocketEvents(t *testing.T) {
	t.Parallel()

	var events []string

	tr := gowstest.NewTransport()
	tr.Open("ws://a", gows.Handlers{
		OnOpen:    func() { events = append(events, "open") },
		OnMessage: func(p []byte) { events = append(events, "msg:"+string(p)) },
		OnError:   func(err error) { events = append(events, "err:"+err.Error()) },
		OnClose:   func() { events = append(events, "close") },
	})

	s := tr.Last()
	s.FireOpen()
	s.FireMessage([]byte("hi"))
	s.FireError(errors.New("boom"))
	s.FireClose()

	assert.Equal(t, []string{"open", "msg:hi", "err:boom", "close"}, events)
}

func TestSocketSendCopiesPayload(t *testing.T) {
	t.Parallel()

	tr := gowstest.NewTransport()
	s := tr.Open("ws://a", gows.Handlers{})

	p := []byte("abc")
	s.Send(p)
	p[0] = 'x'

	assert.Equal(t, [][]byte{[]byte("abc")}, tr.Last().Sent())
}

func TestSocketClose(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		manual bool
		closed int
	}{
		{name: "Automatic", manual: false, closed: 1},
		{name: "Manual", manual: true, closed: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			closed := 0
			tr := &gowstest.Transport{ManualClose: tt.manual}
			s := tr.Open("ws://a", gows.Handlers{OnClose: func() { closed++ }})

			s.Close()

			assert.Equal(t, 1, tr.Last().CloseCalls())
			assert.Equal(t, tt.closed, closed)
		})
	}
}
