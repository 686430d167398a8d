// Package codec provides the tuple-of-two / tuple-of-one binary encoding the
// storage layer uses for bybuid/byprop/byuniv values and splice messages:
// self-describing, binary-safe, and able to round-trip a mix of opaque
// []byte payloads and []byte index keys without losing the distinction
// between them. It is built on ugorji/go/codec's msgpack handle.
package codec

import (
	"fmt"
	"reflect"

	"github.com/ugorji/go/codec"
)

var mpHandle = func() *codec.MsgpackHandle {
	h := &codec.MsgpackHandle{}
	h.WriteExt = true
	h.RawToString = false
	h.MapType = reflect.TypeOf(map[string]interface{}(nil))
	return h
}()

// ValuIndx is the (valu, indx) pair stored under a bybuid row key.
type ValuIndx struct {
	Valu []byte
	Indx []byte
}

// EncodeValuIndx encodes a (valu, indx) tuple.
func EncodeValuIndx(valu, indx []byte) ([]byte, error) {
	var out []byte
	enc := codec.NewEncoderBytes(&out, mpHandle)
	if err := enc.Encode([2][]byte{valu, indx}); err != nil {
		return nil, fmt.Errorf("codec: encode (valu, indx): %w", err)
	}
	return out, nil
}

// DecodeValuIndx decodes a (valu, indx) tuple previously written by
// EncodeValuIndx.
func DecodeValuIndx(b []byte) (valu, indx []byte, err error) {
	var pair [2][]byte
	dec := codec.NewDecoderBytes(b, mpHandle)
	if err := dec.Decode(&pair); err != nil {
		return nil, nil, fmt.Errorf("codec: decode (valu, indx): %w", err)
	}
	return pair[0], pair[1], nil
}

// EncodeBuid encodes the one-tuple (buid,) stored as a byprop/byuniv value.
func EncodeBuid(buid []byte) ([]byte, error) {
	var out []byte
	enc := codec.NewEncoderBytes(&out, mpHandle)
	if err := enc.Encode([1][]byte{buid}); err != nil {
		return nil, fmt.Errorf("codec: encode (buid,): %w", err)
	}
	return out, nil
}

// DecodeBuid decodes the one-tuple (buid,) previously written by
// EncodeBuid.
func DecodeBuid(b []byte) ([]byte, error) {
	var one [1][]byte
	dec := codec.NewDecoderBytes(b, mpHandle)
	if err := dec.Decode(&one); err != nil {
		return nil, fmt.Errorf("codec: decode (buid,): %w", err)
	}
	return one[0], nil
}

// EncodeMessage encodes an arbitrary caller-supplied splice message. The
// caller's message is opaque to the storage layer; it only needs to be
// self-describing and binary-safe, so a generic interface{} path through
// the same msgpack handle is used instead of the fixed tuple shapes above.
func EncodeMessage(msg interface{}) ([]byte, error) {
	var out []byte
	enc := codec.NewEncoderBytes(&out, mpHandle)
	if err := enc.Encode(msg); err != nil {
		return nil, fmt.Errorf("codec: encode message: %w", err)
	}
	return out, nil
}

// DecodeMessage decodes a splice message into an interface{} (typically a
// map[string]interface{} or []interface{}, depending on what the caller
// originally encoded).
func DecodeMessage(b []byte) (interface{}, error) {
	var msg interface{}
	dec := codec.NewDecoderBytes(b, mpHandle)
	if err := dec.Decode(&msg); err != nil {
		return nil, fmt.Errorf("codec: decode message: %w", err)
	}
	return msg, nil
}
