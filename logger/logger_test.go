package logger_test

import (
	"bytes"
	"testing"

	"github.com/qntx/gows/logger"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	l, err := logger.New("info", &buf)
	require.NoError(t, err)

	l.Debug("hidden %d", 1)
	l.With("conn", "abc").Info("connected to %s", "ws://example")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "connected to ws://example")
	assert.Contains(t, out, "abc")
}

func TestNewInvalidLevel(t *testing.T) {
	t.Parallel()

	_, err := logger.New("loud", &bytes.Buffer{})
	require.Error(t, err)
}

func TestNop(t *testing.T) {
	t.Parallel()

	l := logger.Nop()

	assert.NotPanics(t, func() {
		l.Error("boom: %v", "ignored")
		l.With("k", 1).Warn("ignored")
	})
}

func TestFromZerolog(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	l := logger.FromZerolog(zerolog.New(&buf).Level(zerolog.WarnLevel))

	l.Info("hidden")
	l.With("conn", "abc").Warn("dropped %d bytes", 3)

	assert.JSONEq(t, `{"level":"warn","conn":"abc","message":"dropped 3 bytes"}`, buf.String())
}
