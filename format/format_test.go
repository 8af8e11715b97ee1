package format_test

import (
	"testing"

	"github.com/qntx/gows/format"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type trade struct {
	Symbol string  `json:"s"`
	Price  float64 `json:"p"`
}

func TestStorables(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		value  format.Storable
		want   []byte
		wantOk bool
	}{
		{name: "Text", value: format.Text("ping"), want: []byte("ping"), wantOk: true},
		{name: "EmptyText", value: format.Text(""), want: []byte{}, wantOk: true},
		{name: "Binary", value: format.Binary{0x01, 0x02}, want: []byte{0x01, 0x02}, wantOk: true},
		{name: "JSON", value: format.JSON(trade{Symbol: "BTC", Price: 1.5}), want: []byte(`{"s":"BTC","p":1.5}`), wantOk: true},
		{name: "UnencodableJSON", value: format.JSON(make(chan int)), want: nil, wantOk: false},
		{name: "Nothing", value: format.Nothing, want: nil, wantOk: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := tt.value.Store()
			assert.Equal(t, tt.wantOk, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	r := format.DecodeJSON[trade]([]byte(`{"s":"ETH","p":2.25}`))
	require.True(t, r.Ok())
	assert.Equal(t, trade{Symbol: "ETH", Price: 2.25}, r.Value)

	r = format.DecodeJSON[trade]([]byte(`not json`))
	assert.False(t, r.Ok())

	_, err := r.Unwrap()
	require.Error(t, err)
}

func TestDecoders(t *testing.T) {
	t.Parallel()

	type msg struct {
		text string
		err  error
	}

	text := format.TextDecoder(func(r format.Restorable[string]) msg { return msg{text: r.Value} })
	assert.Equal(t, msg{text: "hello"}, text([]byte("hello")))

	decode := format.JSONDecoder(func(r format.Restorable[trade]) msg {
		return msg{text: r.Value.Symbol, err: r.Err}
	})

	assert.Equal(t, msg{text: "SOL"}, decode([]byte(`{"s":"SOL"}`)))
	assert.Error(t, decode([]byte(`{`)).err)

	// Decoding is pure: the same payload yields the same message.
	assert.Equal(t, decode([]byte(`{"s":"SOL"}`)), decode([]byte(`{"s":"SOL"}`)))
}

func TestDecodeBytes(t *testing.T) {
	t.Parallel()

	payload := []byte{0x00, 0xff, 0x10}

	r := format.DecodeBytes(payload)
	require.True(t, r.Ok())
	assert.Equal(t, []byte{0x00, 0xff, 0x10}, r.Value)

	// The result does not alias the transport's buffer.
	payload[0] = 0x42
	assert.Equal(t, byte(0x00), r.Value[0])

	decode := format.BytesDecoder(func(r format.Restorable[[]byte]) int { return len(r.Value) })
	assert.Equal(t, 3, decode(payload))
	assert.Equal(t, 0, decode(nil))
}
