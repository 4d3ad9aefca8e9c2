// Package graph is the boundary with the external graph runtime. The runtime
// itself (scheduling, calculators, inference) lives outside this module; this
// package only describes how a solution starts it and how packets come back.
package graph

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/andresmejia3/trackpoint/internal/packet"
)

// SolutionInfo describes the graph a solution runs.
type SolutionInfo struct {
	BinaryGraphPath      string   `msgpack:"graph"`
	ImageInputStreamName string   `msgpack:"input_stream"`
	OutputStreamNames    []string `msgpack:"output_streams"`
	StaticImageMode      bool     `msgpack:"static_image_mode"`
}

// Validate checks that info can be used to start a graph.
func (info SolutionInfo) Validate() error {
	if info.BinaryGraphPath == "" {
		return errors.New("binary graph path is required")
	}
	if info.ImageInputStreamName == "" {
		return errors.New("image input stream name is required")
	}
	if len(info.OutputStreamNames) == 0 {
		return errors.New("at least one output stream is required")
	}
	return nil
}

// SameOutputs reports whether other declares the same output streams in the same order.
func (info SolutionInfo) SameOutputs(other SolutionInfo) bool {
	return slices.Equal(info.OutputStreamNames, other.OutputStreamNames)
}

// OutputHandler receives what the runtime produces. Both methods are called
// from the runtime's single delivery goroutine.
type OutputHandler interface {
	// HandlePackets receives one packet per declared output stream, in declaration order.
	HandlePackets(packets []packet.Packet)
	HandleError(err error)
}

// Runtime is a started-or-startable graph.
type Runtime interface {
	Start(ctx context.Context, info SolutionInfo, side packet.SidePackets, out OutputHandler) error
	// Send feeds one image to the input stream. Outputs for the frame are
	// delivered to the OutputHandler before Send returns.
	Send(ctx context.Context, image []byte, ts packet.Timestamp) error
	Close() error
}

// RuntimeError is a fault reported by the runtime, or raised while handing
// out a packet. No result is produced for the frame it belongs to.
type RuntimeError struct {
	Op  string
	Err error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("graph runtime: %s: %v", e.Op, e.Err)
}

func (e *RuntimeError) Unwrap() error { return e.Err }

// CheckPackets verifies the packet count matches the declared outputs.
func CheckPackets(info SolutionInfo, packets []packet.Packet) error {
	if len(packets) != len(info.OutputStreamNames) {
		return &RuntimeError{
			Op:  "deliver",
			Err: fmt.Errorf("got %d packets for %d output streams", len(packets), len(info.OutputStreamNames)),
		}
	}
	return nil
}
