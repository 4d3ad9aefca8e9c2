package solution

import (
	"context"
	"errors"
	"fmt"

	"github.com/andresmejia3/trackpoint/internal/graph"
	"github.com/andresmejia3/trackpoint/internal/packet"
)

var (
	ErrNotStarted     = errors.New("solution is not started")
	ErrAlreadyStarted = errors.New("solution is already started")
)

// ImageSolution drives a graph runtime that takes one image per frame.
// Solutions embed it and supply their own OutputHandler.
type ImageSolution struct {
	runtime graph.Runtime
	info    graph.SolutionInfo
	handler graph.OutputHandler

	started bool
	last    packet.Timestamp
}

// Initialize binds the runtime, graph description and output handler. It
// does not start the graph.
func (s *ImageSolution) Initialize(rt graph.Runtime, info graph.SolutionInfo, handler graph.OutputHandler) error {
	if rt == nil {
		return errors.New("graph runtime is required")
	}
	if err := info.Validate(); err != nil {
		return fmt.Errorf("invalid solution info: %w", err)
	}
	s.runtime = rt
	s.info = info
	s.handler = handler
	s.last = packet.Unset
	return nil
}

// Start launches the graph with the given side packets.
func (s *ImageSolution) Start(ctx context.Context, side packet.SidePackets) error {
	if s.runtime == nil {
		return errors.New("solution is not initialized")
	}
	if s.started {
		return ErrAlreadyStarted
	}
	if err := s.runtime.Start(ctx, s.info, side, s.handler); err != nil {
		return fmt.Errorf("start graph %s: %w", s.info.BinaryGraphPath, err)
	}
	s.started = true
	return nil
}

// Info returns the graph description the solution was initialized with.
func (s *ImageSolution) Info() graph.SolutionInfo { return s.info }

// StaticImageMode reports whether frames are independent still images.
func (s *ImageSolution) StaticImageMode() bool { return s.info.StaticImageMode }

// Send feeds one image. In streaming mode ts must increase strictly from
// frame to frame. In static image mode ts is ignored and the runtime is fed
// synthetic increasing timestamps.
func (s *ImageSolution) Send(ctx context.Context, image []byte, ts packet.Timestamp) error {
	if !s.started {
		return ErrNotStarted
	}
	if s.info.StaticImageMode {
		if s.last.IsSet() {
			ts = s.last + 1
		} else {
			ts = 0
		}
	} else {
		if !ts.IsSet() {
			return errors.New("streaming mode requires a frame timestamp")
		}
		if s.last.IsSet() && ts <= s.last {
			return fmt.Errorf("timestamp %s is not after previous %s", ts, s.last)
		}
	}
	s.last = ts
	return s.runtime.Send(ctx, image, ts)
}

// Close stops the graph.
func (s *ImageSolution) Close() error {
	if s.runtime == nil {
		return nil
	}
	s.started = false
	return s.runtime.Close()
}
