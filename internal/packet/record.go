package packet

import "fmt"

// Record is the serialized form of a packet, used on the runner pipe and in
// recordings.
type Record struct {
	Kind      Kind      `msgpack:"k"`
	Timestamp Timestamp `msgpack:"t"`
	Payload   []byte    `msgpack:"p,omitempty"`
	Vector    [][]byte  `msgpack:"v,omitempty"`
}

// Packet converts r into a Packet.
func (r Record) Packet() (*Data, error) {
	switch r.Kind {
	case KindEmpty:
		return Empty(r.Timestamp), nil
	case KindProto:
		return Proto(r.Timestamp, r.Payload), nil
	case KindVector:
		return Vector(r.Timestamp, r.Vector), nil
	case KindImage:
		return Image(r.Timestamp, r.Payload), nil
	}
	return nil, fmt.Errorf("unknown packet kind %d", r.Kind)
}

// NewRecord captures d for serialization.
func NewRecord(d *Data) Record {
	return Record{Kind: d.kind, Timestamp: d.ts, Payload: d.payload, Vector: d.vector}
}

// Packets converts a slice of records, stopping at the first invalid one.
func Packets(records []Record) ([]Packet, error) {
	out := make([]Packet, len(records))
	for i, r := range records {
		p, err := r.Packet()
		if err != nil {
			return nil, fmt.Errorf("packet %d: %w", i, err)
		}
		out[i] = p
	}
	return out, nil
}

// SideValue is a typed side-packet value delivered once at graph start.
// Exactly one field is set.
type SideValue struct {
	Int32   *int32   `msgpack:"i,omitempty"`
	Bool    *bool    `msgpack:"b,omitempty"`
	Float32 *float32 `msgpack:"f,omitempty"`
	String  *string  `msgpack:"s,omitempty"`
}

func Int32(v int32) SideValue     { return SideValue{Int32: &v} }
func Bool(v bool) SideValue       { return SideValue{Bool: &v} }
func Float32(v float32) SideValue { return SideValue{Float32: &v} }
func String(v string) SideValue   { return SideValue{String: &v} }

// Value returns the contained value, or nil when none is set.
func (s SideValue) Value() any {
	switch {
	case s.Int32 != nil:
		return *s.Int32
	case s.Bool != nil:
		return *s.Bool
	case s.Float32 != nil:
		return *s.Float32
	case s.String != nil:
		return *s.String
	}
	return nil
}

// SidePackets maps side-packet names to values.
type SidePackets map[string]SideValue
