// Package packet models the timestamped units of data a graph runtime emits
// on its output streams, and the side packets it is configured with.
package packet

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// Timestamp is a packet timestamp in microseconds.
type Timestamp int64

// Unset marks a result that has no place in a temporal sequence, as produced
// in single-image mode. It is a marker, not a point in time: never order or
// subtract against it.
const Unset Timestamp = math.MinInt64

// IsSet reports whether ts carries a real timestamp.
func (ts Timestamp) IsSet() bool { return ts != Unset }

func (ts Timestamp) String() string {
	if ts == Unset {
		return "unset"
	}
	return strconv.FormatInt(int64(ts), 10) + "us"
}

var (
	// ErrEmpty is returned when the payload of an empty packet is requested.
	ErrEmpty = errors.New("packet is empty")
	// ErrKind is returned when a payload is requested in a shape the packet does not hold.
	ErrKind = errors.New("packet holds a different payload kind")
)

// Packet is the read side of one output packet.
type Packet interface {
	IsEmpty() bool
	// ProtoBytes returns the serialized message (or raw image bytes) the packet holds.
	ProtoBytes() ([]byte, error)
	// ProtoVector returns the serialized messages of a vector packet.
	ProtoVector() ([][]byte, error)
	Timestamp() Timestamp
}

// Kind is the payload shape of a Data packet.
type Kind uint8

const (
	KindEmpty Kind = iota
	KindProto
	KindVector
	KindImage
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindProto:
		return "proto"
	case KindVector:
		return "vector"
	case KindImage:
		return "image"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Data is the in-process Packet implementation. The zero value is an empty
// packet at timestamp 0. Payloads are shared, not copied, and must not be
// modified after construction.
type Data struct {
	kind    Kind
	ts      Timestamp
	payload []byte
	vector  [][]byte
}

// Empty returns a packet with no payload.
func Empty(ts Timestamp) *Data { return &Data{kind: KindEmpty, ts: ts} }

// Proto returns a packet holding one serialized message.
func Proto(ts Timestamp, msg []byte) *Data {
	return &Data{kind: KindProto, ts: ts, payload: msg}
}

// Vector returns a packet holding a vector of serialized messages.
func Vector(ts Timestamp, msgs [][]byte) *Data {
	return &Data{kind: KindVector, ts: ts, vector: msgs}
}

// Image returns a packet holding encoded image bytes.
func Image(ts Timestamp, img []byte) *Data {
	return &Data{kind: KindImage, ts: ts, payload: img}
}

func (d *Data) Kind() Kind           { return d.kind }
func (d *Data) IsEmpty() bool        { return d.kind == KindEmpty }
func (d *Data) Timestamp() Timestamp { return d.ts }

func (d *Data) ProtoBytes() ([]byte, error) {
	switch d.kind {
	case KindProto, KindImage:
		return d.payload, nil
	case KindEmpty:
		return nil, ErrEmpty
	}
	return nil, fmt.Errorf("%w: want proto, have %s", ErrKind, d.kind)
}

func (d *Data) ProtoVector() ([][]byte, error) {
	switch d.kind {
	case KindVector:
		return d.vector, nil
	case KindEmpty:
		return nil, ErrEmpty
	}
	return nil, fmt.Errorf("%w: want vector, have %s", ErrKind, d.kind)
}
