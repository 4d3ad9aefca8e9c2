package solution

import (
	"github.com/andresmejia3/trackpoint/internal/graph"
	"github.com/andresmejia3/trackpoint/internal/packet"
)

// DecodeProto decodes a packet holding one serialized message into a
// collection. An empty packet yields an empty collection. If the payload
// cannot be retrieved, a *graph.RuntimeError is returned and the frame has no
// result. If it cannot be parsed, the failure is reported once and an empty
// collection is returned.
func DecodeProto[T any](stream string, p packet.Packet, parse func([]byte) ([]T, error), report ErrorReporter) ([]T, error) {
	if p.IsEmpty() {
		return []T{}, nil
	}
	b, err := p.ProtoBytes()
	if err != nil {
		return nil, &graph.RuntimeError{Op: "get " + stream, Err: err}
	}
	out, err := parse(b)
	if err != nil {
		report.ReportError("failed to decode "+stream, &DecodeError{Stream: stream, Err: err})
		return []T{}, nil
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

// DecodeVector decodes a packet holding a vector of serialized messages, one
// element per message. Error handling matches DecodeProto; a single bad
// message empties the whole collection and is reported once.
func DecodeVector[T any](stream string, p packet.Packet, parse func([]byte) (T, error), report ErrorReporter) ([]T, error) {
	if p.IsEmpty() {
		return []T{}, nil
	}
	msgs, err := p.ProtoVector()
	if err != nil {
		return nil, &graph.RuntimeError{Op: "get " + stream, Err: err}
	}
	out := make([]T, 0, len(msgs))
	for _, msg := range msgs {
		v, err := parse(msg)
		if err != nil {
			report.ReportError("failed to decode "+stream, &DecodeError{Stream: stream, Err: err})
			return []T{}, nil
		}
		out = append(out, v)
	}
	return out, nil
}
