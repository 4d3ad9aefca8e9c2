// Package graphtest provides an in-memory graph.Runtime for tests.
package graphtest

import (
	"context"
	"errors"

	"github.com/andresmejia3/trackpoint/internal/graph"
	"github.com/andresmejia3/trackpoint/internal/packet"
)

// Fake delivers scripted outputs. The n-th Send delivers Frames[n], or
// Errors[n] when set. Sends past the script deliver nothing.
type Fake struct {
	Frames   [][]packet.Packet
	Errors   map[int]error
	StartErr error

	Info   graph.SolutionInfo
	Side   packet.SidePackets
	Sent   []packet.Timestamp
	Images [][]byte
	Closed bool

	out graph.OutputHandler
}

var _ graph.Runtime = (*Fake)(nil)

func (f *Fake) Start(ctx context.Context, info graph.SolutionInfo, side packet.SidePackets, out graph.OutputHandler) error {
	if f.StartErr != nil {
		return f.StartErr
	}
	f.Info = info
	f.Side = side
	f.out = out
	return nil
}

func (f *Fake) Send(ctx context.Context, image []byte, ts packet.Timestamp) error {
	if f.out == nil {
		return errors.New("graphtest: not started")
	}
	n := len(f.Sent)
	f.Sent = append(f.Sent, ts)
	f.Images = append(f.Images, image)
	if err, ok := f.Errors[n]; ok {
		f.out.HandleError(err)
		return nil
	}
	if n < len(f.Frames) {
		f.out.HandlePackets(f.Frames[n])
	}
	return nil
}

// Deliver pushes packets to the handler outside of Send.
func (f *Fake) Deliver(packets []packet.Packet) {
	f.out.HandlePackets(packets)
}

func (f *Fake) Close() error {
	f.Closed = true
	return nil
}
