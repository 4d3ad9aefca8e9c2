// Package gesture runs the hand gesture recognizer graph and turns its output
// packets into Results.
package gesture

import (
	"context"

	"github.com/andresmejia3/trackpoint/internal/formats"
	"github.com/andresmejia3/trackpoint/internal/graph"
	"github.com/andresmejia3/trackpoint/internal/packet"
	"github.com/andresmejia3/trackpoint/internal/solution"
)

const (
	GraphName        = "gesture_recognizer_gpu.binarypb"
	ImageInputStream = "image_in"
)

const (
	gesturesIndex = iota
	handednessIndex
	landmarksIndex
	worldLandmarksIndex
	imageIndex
)

var outputStreams = []string{"hand_gestures", "handedness", "hand_landmarks", "hand_world_landmarks", "image_out"}

// OutputStreams returns the graph's output streams in delivery order.
func OutputStreams() []string { return append([]string(nil), outputStreams...) }

func Info(opts Options) graph.SolutionInfo {
	return graph.SolutionInfo{
		BinaryGraphPath:      GraphName,
		ImageInputStreamName: ImageInputStream,
		OutputStreamNames:    OutputStreams(),
		StaticImageMode:      opts.StaticImageMode,
	}
}

func SidePackets(opts Options) packet.SidePackets {
	return packet.SidePackets{
		"num_hands":                     packet.Int32(int32(opts.NumHands)),
		"min_hand_detection_confidence": packet.Float32(opts.MinHandDetectionConfidence),
		"min_hand_presence_confidence":  packet.Float32(opts.MinHandPresenceConfidence),
		"min_tracking_confidence":       packet.Float32(opts.MinTrackingConfidence),
	}
}

// Recognizer is a started gesture recognition solution.
type Recognizer struct {
	solution.ImageSolution

	opts   Options
	output *solution.OutputHandler[Result]
}

// New initializes the gesture graph on rt and starts it.
func New(ctx context.Context, rt graph.Runtime, opts Options) (*Recognizer, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	r := &Recognizer{opts: opts}
	r.output = solution.NewOutputHandler(func(packets []packet.Packet, report solution.ErrorReporter) (Result, error) {
		return Decode(packets, opts, report)
	}, "Error occurs while getting gesture recognition results.")

	if err := r.Initialize(rt, Info(opts), r.output); err != nil {
		return nil, err
	}
	if err := r.Start(ctx, SidePackets(opts)); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Recognizer) Options() Options { return r.opts }

func (r *Recognizer) SetResultListener(l solution.ResultListener[Result]) {
	r.output.SetResultListener(l)
}

func (r *Recognizer) SetErrorListener(l solution.ErrorListener) {
	r.output.SetErrorListener(l)
}

// Decode maps the packets of one recognizer frame to a Result.
func Decode(packets []packet.Packet, opts Options, report solution.ErrorReporter) (Result, error) {
	if err := graph.CheckPackets(Info(opts), packets); err != nil {
		return Result{}, err
	}

	gestures, err := solution.DecodeVector(outputStreams[gesturesIndex], packets[gesturesIndex], formats.UnmarshalClassificationList, report)
	if err != nil {
		return Result{}, err
	}
	handednesses, err := solution.DecodeVector(outputStreams[handednessIndex], packets[handednessIndex], formats.UnmarshalClassificationList, report)
	if err != nil {
		return Result{}, err
	}
	landmarks, err := solution.DecodeVector(outputStreams[landmarksIndex], packets[landmarksIndex], formats.UnmarshalNormalizedLandmarkList, report)
	if err != nil {
		return Result{}, err
	}
	worldLandmarks, err := solution.DecodeVector(outputStreams[worldLandmarksIndex], packets[worldLandmarksIndex], formats.UnmarshalLandmarkList, report)
	if err != nil {
		return Result{}, err
	}

	image := packets[imageIndex]
	ts := image.Timestamp()
	if opts.StaticImageMode {
		ts = packet.Unset
	}
	return newResult(landmarks, worldLandmarks, handednesses, gestures, image, ts), nil
}
