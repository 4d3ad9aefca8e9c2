package recorder

import (
	"context"
	"errors"
	"fmt"

	"github.com/andresmejia3/trackpoint/internal/graph"
	"github.com/andresmejia3/trackpoint/internal/packet"
)

// ErrStreamMismatch is returned when a solution's output streams differ from
// the recorded ones.
var ErrStreamMismatch = errors.New("recorded output streams do not match")

// Replay is a graph.Runtime that delivers recorded frames, one per Send.
// The image passed to Send is ignored.
type Replay struct {
	r     *Reader
	info  graph.SolutionInfo
	out   graph.OutputHandler
	index int
}

var _ graph.Runtime = (*Replay)(nil)

func NewReplay(r *Reader) *Replay {
	return &Replay{r: r}
}

func (p *Replay) Start(ctx context.Context, info graph.SolutionInfo, side packet.SidePackets, out graph.OutputHandler) error {
	recorded := p.r.Header().Info
	if !info.SameOutputs(recorded) {
		return fmt.Errorf("%w: have %v, recorded %v", ErrStreamMismatch, info.OutputStreamNames, recorded.OutputStreamNames)
	}
	p.info = info
	p.out = out
	return nil
}

// Send delivers the next recorded frame. It returns io.EOF once the
// recording is exhausted.
func (p *Replay) Send(ctx context.Context, image []byte, ts packet.Timestamp) error {
	if p.out == nil {
		return errors.New("replay is not started")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	frame, err := p.r.Next()
	if err != nil {
		return err
	}
	p.index = frame.Index

	if frame.Error != "" {
		p.out.HandleError(&graph.RuntimeError{Op: "process", Err: errors.New(frame.Error)})
		return nil
	}
	packets, err := packet.Packets(frame.Packets)
	if err != nil {
		p.out.HandleError(&graph.RuntimeError{Op: "deliver", Err: err})
		return nil
	}
	if err := graph.CheckPackets(p.info, packets); err != nil {
		p.out.HandleError(err)
		return nil
	}
	p.out.HandlePackets(packets)
	return nil
}

// Index returns the input frame index of the last frame Send delivered.
func (p *Replay) Index() int { return p.index }

func (p *Replay) Close() error {
	return p.r.Close()
}
