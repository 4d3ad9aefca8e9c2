// Package formats decodes and encodes the protobuf messages the vision graphs
// emit on their output streams: landmarks, classifications and detections.
//
// The messages are parsed directly off the wire with protowire against the
// field numbers of the graph's schema. Unknown fields are skipped, a known
// field carrying the wrong wire type is an error.
package formats

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// ErrWireType is returned when a known field is encoded with an unexpected wire type.
var ErrWireType = errors.New("unexpected wire type")

type fieldFunc func(num protowire.Number, typ protowire.Type, b []byte) (int, error)

// walk calls fn for each field in b. fn returns the number of bytes it consumed.
func walk(msg string, b []byte, fn fieldFunc) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%s: %w", msg, protowire.ParseError(n))
		}
		b = b[n:]
		m, err := fn(num, typ, b)
		if err != nil {
			return fmt.Errorf("%s: field %d: %w", msg, num, err)
		}
		b = b[m:]
	}
	return nil
}

func skipField(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	n := protowire.ConsumeFieldValue(num, typ, b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	return n, nil
}

func expect(got, want protowire.Type) error {
	if got != want {
		return fmt.Errorf("%w: got %d, want %d", ErrWireType, got, want)
	}
	return nil
}

func consumeFloat(typ protowire.Type, b []byte) (float32, int, error) {
	if err := expect(typ, protowire.Fixed32Type); err != nil {
		return 0, 0, err
	}
	v, n := protowire.ConsumeFixed32(b)
	if n < 0 {
		return 0, 0, protowire.ParseError(n)
	}
	return math.Float32frombits(v), n, nil
}

func consumeVarint(typ protowire.Type, b []byte) (uint64, int, error) {
	if err := expect(typ, protowire.VarintType); err != nil {
		return 0, 0, err
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, 0, protowire.ParseError(n)
	}
	return v, n, nil
}

func consumeBytes(typ protowire.Type, b []byte) ([]byte, int, error) {
	if err := expect(typ, protowire.BytesType); err != nil {
		return nil, 0, err
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, 0, protowire.ParseError(n)
	}
	return v, n, nil
}

func consumeString(typ protowire.Type, b []byte) (string, int, error) {
	v, n, err := consumeBytes(typ, b)
	return string(v), n, err
}

// consumeFloats accepts both packed and unpacked encodings of a repeated float.
func consumeFloats(dst []float32, typ protowire.Type, b []byte) ([]float32, int, error) {
	if typ != protowire.BytesType {
		v, n, err := consumeFloat(typ, b)
		if err != nil {
			return dst, 0, err
		}
		return append(dst, v), n, nil
	}
	packed, n, err := consumeBytes(typ, b)
	if err != nil {
		return dst, 0, err
	}
	for len(packed) > 0 {
		v, m := protowire.ConsumeFixed32(packed)
		if m < 0 {
			return dst, 0, protowire.ParseError(m)
		}
		dst = append(dst, math.Float32frombits(v))
		packed = packed[m:]
	}
	return dst, n, nil
}

// consumeInt32s accepts both packed and unpacked encodings of a repeated int32.
func consumeInt32s(dst []int32, typ protowire.Type, b []byte) ([]int32, int, error) {
	if typ != protowire.BytesType {
		v, n, err := consumeVarint(typ, b)
		if err != nil {
			return dst, 0, err
		}
		return append(dst, int32(v)), n, nil
	}
	packed, n, err := consumeBytes(typ, b)
	if err != nil {
		return dst, 0, err
	}
	for len(packed) > 0 {
		v, m := protowire.ConsumeVarint(packed)
		if m < 0 {
			return dst, 0, protowire.ParseError(m)
		}
		dst = append(dst, int32(v))
		packed = packed[m:]
	}
	return dst, n, nil
}

func appendFloat(b []byte, num protowire.Number, v float32) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed32Type)
	return protowire.AppendFixed32(b, math.Float32bits(v))
}

// appendInt32 sign-extends negatives the way protobuf encodes int32.
func appendInt32(b []byte, num protowire.Number, v int32) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(int64(v)))
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}
