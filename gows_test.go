package gows_test

import (
	"testing"

	"github.com/qntx/gows"
	"github.com/stretchr/testify/assert"
)

func TestStatusFromCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, gows.Opened, gows.StatusFromCode(gows.CodeOpened))
	assert.Equal(t, gows.Closed, gows.StatusFromCode(gows.CodeClosed))

	for _, code := range []uint32{2, 3, 1000, ^uint32(0)} {
		assertPanicsWith(t, gows.ErrUnknownStatusCode, func() { gows.StatusFromCode(code) })
	}
}

func TestStatusString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status gows.Status
		want   string
	}{
		{gows.Opened, "Opened"},
		{gows.Closed, "Closed"},
		{gows.Status(42), "Status(42)"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.status.String())
	}
}
