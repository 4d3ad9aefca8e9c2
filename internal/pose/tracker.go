// Package pose runs the pose tracking graph and turns its output packets into
// Results.
package pose

import (
	"context"
	"fmt"

	"github.com/andresmejia3/trackpoint/internal/formats"
	"github.com/andresmejia3/trackpoint/internal/graph"
	"github.com/andresmejia3/trackpoint/internal/packet"
	"github.com/andresmejia3/trackpoint/internal/solution"
	"github.com/andresmejia3/trackpoint/internal/types"
)

const (
	GraphName        = "pose_tracking_gpu_image.binarypb"
	ImageInputStream = "input_video"
)

// Output stream order of the pose graph. Packet indices follow it.
const (
	detectionsIndex = iota
	inputImageIndex
	outputImageIndex
	landmarksIndex
)

var outputStreams = []string{"pose_detection", "throttled_input_video", "output_video", "pose_landmarks"}

// OutputStreams returns the graph's output streams in delivery order.
func OutputStreams() []string { return append([]string(nil), outputStreams...) }

// Info describes the pose graph for opts.
func Info(opts Options) graph.SolutionInfo {
	return graph.SolutionInfo{
		BinaryGraphPath:      GraphName,
		ImageInputStreamName: ImageInputStream,
		OutputStreamNames:    OutputStreams(),
		StaticImageMode:      opts.StaticImageMode,
	}
}

// SidePackets builds the start-time configuration for opts.
func SidePackets(opts Options) packet.SidePackets {
	return packet.SidePackets{
		"model_complexity": packet.Int32(int32(opts.ModelComplexity)),
		"smooth_landmarks": packet.Bool(opts.SmoothLandmarks && !opts.StaticImageMode),
	}
}

// Tracker is a started pose tracking solution.
type Tracker struct {
	solution.ImageSolution

	opts   Options
	output *solution.OutputHandler[Result]
}

// New initializes the pose graph on rt and starts it.
func New(ctx context.Context, rt graph.Runtime, opts Options) (*Tracker, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	t := &Tracker{opts: opts}
	t.output = solution.NewOutputHandler(func(packets []packet.Packet, report solution.ErrorReporter) (Result, error) {
		return Decode(packets, opts, report)
	}, "Error occurs while getting pose tracking results.")

	if err := t.Initialize(rt, Info(opts), t.output); err != nil {
		return nil, err
	}
	if err := t.Start(ctx, SidePackets(opts)); err != nil {
		return nil, err
	}
	return t, nil
}

// Options returns the options the tracker was started with.
func (t *Tracker) Options() Options { return t.opts }

// SetResultListener sets the callback invoked with each Result. Passing nil removes it.
func (t *Tracker) SetResultListener(l solution.ResultListener[Result]) {
	t.output.SetResultListener(l)
}

// SetErrorListener sets the callback invoked on decode and runtime errors. Passing nil removes it.
func (t *Tracker) SetErrorListener(l solution.ErrorListener) {
	t.output.SetErrorListener(l)
}

// Decode maps the packets of one pose graph frame to a Result.
func Decode(packets []packet.Packet, opts Options, report solution.ErrorReporter) (Result, error) {
	if err := graph.CheckPackets(Info(opts), packets); err != nil {
		return Result{}, err
	}

	detections, err := solution.DecodeProto(outputStreams[detectionsIndex], packets[detectionsIndex], parseDetection, report)
	if err != nil {
		return Result{}, err
	}
	landmarks, err := solution.DecodeProto(outputStreams[landmarksIndex], packets[landmarksIndex], formats.UnmarshalLandmarkList, report)
	if err != nil {
		return Result{}, err
	}

	imageIndex := inputImageIndex
	if opts.LandmarkVisibility {
		imageIndex = outputImageIndex
	}
	image := packets[imageIndex]
	ts := image.Timestamp()
	if opts.StaticImageMode {
		ts = packet.Unset
	}

	return Result{
		timestamp:  ts,
		detections: detections,
		landmarks:  landmarks,
		image:      image,
	}, nil
}

// The pose graph emits one Detection message per frame on pose_detection.
func parseDetection(b []byte) ([]types.Detection, error) {
	d, err := formats.UnmarshalDetection(b)
	if err != nil {
		return nil, fmt.Errorf("pose detection: %w", err)
	}
	return []types.Detection{d}, nil
}
