// Package format converts application values to outbound WebSocket payloads and
// inbound payloads back to application values.
//
// Outbound values implement Storable, which may legitimately produce no payload
// at all. Inbound decoders return a Restorable so that decode failures travel to
// the application inside its own message instead of being dropped.
package format

import (
	json "github.com/bytedance/sonic"
)

// --------------------------------------------------------------------------------
// Outbound

// Storable is a value that can be turned into an outbound payload.
//
// Store reports false when there is nothing to send.
type Storable interface {
	Store() ([]byte, bool)
}

// Text is a UTF-8 payload.
type Text string

// Store returns the text bytes.
func (t Text) Store() ([]byte, bool) { return []byte(t), true }

// Binary is a raw payload, sent as is.
type Binary []byte

// Store returns the bytes unchanged.
func (b Binary) Store() ([]byte, bool) { return b, true }

type nothing struct{}

func (nothing) Store() ([]byte, bool) { return nil, false }

// Nothing never produces a payload.
var Nothing Storable = nothing{}

type jsonValue struct {
	v any
}

func (j jsonValue) Store() ([]byte, bool) {
	data, err := json.Marshal(j.v)
	if err != nil {
		return nil, false
	}

	return data, true
}

// JSON encodes v when stored. A value that cannot be encoded produces no payload.
func JSON(v any) Storable { return jsonValue{v: v} }

// --------------------------------------------------------------------------------
// Inbound

// Restorable is the result of decoding an inbound payload.
type Restorable[T any] struct {
	Value T
	Err   error
}

// Ok reports whether decoding succeeded.
func (r Restorable[T]) Ok() bool { return r.Err == nil }

// Unwrap returns the decoded value and the decode error.
func (r Restorable[T]) Unwrap() (T, error) { return r.Value, r.Err }

// DecodeText interprets the payload as text.
func DecodeText(payload []byte) Restorable[string] {
	return Restorable[string]{Value: string(payload)}
}

// DecodeBytes hands over a copy of the payload.
func DecodeBytes(payload []byte) Restorable[[]byte] {
	return Restorable[[]byte]{Value: append([]byte(nil), payload...)}
}

// DecodeJSON unmarshals the payload into a T.
func DecodeJSON[T any](payload []byte) Restorable[T] {
	var v T
	if err := json.Unmarshal(payload, &v); err != nil {
		return Restorable[T]{Err: err}
	}

	return Restorable[T]{Value: v}
}

// TextDecoder builds a decoder that hands the payload text to convert.
func TextDecoder[M any](convert func(Restorable[string]) M) func([]byte) M {
	return func(payload []byte) M {
		return convert(DecodeText(payload))
	}
}

// BytesDecoder builds a decoder that hands a copy of the raw payload to convert.
func BytesDecoder[M any](convert func(Restorable[[]byte]) M) func([]byte) M {
	return func(payload []byte) M {
		return convert(DecodeBytes(payload))
	}
}

// JSONDecoder builds a decoder that unmarshals each payload into a T and hands
// the result, value or error, to convert.
//
// Example:
//
//	decoder := format.JSONDecoder(func(r format.Restorable[Trade]) Msg {
//	    return Msg{Trade: r.Value, Err: r.Err}
//	})
func JSONDecoder[T, M any](convert func(Restorable[T]) M) func([]byte) M {
	return func(payload []byte) M {
		return convert(DecodeJSON[T](payload))
	}
}
