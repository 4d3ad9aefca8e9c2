package recorder

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/andresmejia3/trackpoint/internal/formats"
	"github.com/andresmejia3/trackpoint/internal/graph"
	"github.com/andresmejia3/trackpoint/internal/packet"
	"github.com/andresmejia3/trackpoint/internal/pose"
	"github.com/andresmejia3/trackpoint/internal/types"
)

func poseFrame(ts packet.Timestamp) []packet.Record {
	det := formats.MarshalDetection(types.Detection{
		Labels: []string{"pose"},
		Scores: []float32{0.8},
	})
	lms := formats.MarshalNormalizedLandmarkList([]types.NormalizedLandmark{{X: 0.1}, {X: 0.2}, {X: 0.3}})
	return []packet.Record{
		packet.NewRecord(packet.Proto(ts, det)),
		packet.NewRecord(packet.Image(ts, []byte("in"))),
		packet.NewRecord(packet.Image(ts, []byte("out"))),
		packet.NewRecord(packet.Proto(ts, lms)),
	}
}

func poseHeader(t *testing.T, opts pose.Options) Header {
	t.Helper()
	raw, err := yaml.Marshal(opts)
	require.NoError(t, err)
	return Header{
		Solution: "pose",
		Info:     pose.Info(opts),
		Side:     pose.SidePackets(opts),
		Options:  raw,
	}
}

func TestWriteRead(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, poseHeader(t, pose.DefaultOptions()))
	require.NoError(t, err)
	require.NoError(t, w.WriteFrame("", poseFrame(1)))
	require.NoError(t, w.WriteFrame("", poseFrame(2)))
	assert.Equal(t, 2, w.Frames())
	require.NoError(t, w.Close())

	r, err := NewReader(&buf)
	require.NoError(t, err)
	h := r.Header()
	assert.Equal(t, Version, h.Version)
	assert.Equal(t, "pose", h.Solution)
	assert.Equal(t, pose.OutputStreams(), h.Info.OutputStreamNames)
	assert.False(t, h.Created.IsZero())

	var opts pose.Options
	require.NoError(t, yaml.Unmarshal(h.Options, &opts))
	assert.Equal(t, pose.DefaultOptions(), opts)

	for _, want := range []packet.Timestamp{1, 2} {
		f, err := r.Next()
		require.NoError(t, err)
		require.Len(t, f.Packets, 4)
		assert.Equal(t, want, f.Packets[1].Timestamp)
	}
	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestFrameIndexAndError(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, poseHeader(t, pose.DefaultOptions()))
	require.NoError(t, err)
	w.Mark(4)
	require.NoError(t, w.WriteFrame("calculator failed", nil))
	w.Mark(6)
	require.NoError(t, w.WriteFrame("", poseFrame(6)))
	require.NoError(t, w.Close())

	r, err := NewReader(&buf)
	require.NoError(t, err)
	f, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, Frame{Index: 4, Error: "calculator failed"}, f)
	f, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, 6, f.Index)
	assert.Empty(t, f.Error)
	assert.Len(t, f.Packets, 4)
}

func TestTruncatedFrame(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, poseHeader(t, pose.DefaultOptions()))
	require.NoError(t, err)
	require.NoError(t, w.WriteFrame("", poseFrame(1)))
	require.NoError(t, w.Close())

	data := buf.Bytes()[:buf.Len()-3]
	r, err := NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	_, err = r.Next()
	require.Error(t, err)
	assert.False(t, errors.Is(err, io.EOF), "a cut frame is not a clean end")
}

func TestRejectsUnknownVersion(t *testing.T) {
	var buf bytes.Buffer
	h := poseHeader(t, pose.DefaultOptions())
	h.Version = 99
	w, err := NewWriter(&buf, h)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	_, err = NewReader(&buf)
	assert.Error(t, err)
}

func TestReplayMatchesLive(t *testing.T) {
	ctx := context.Background()
	opts := pose.DefaultOptions()
	path := filepath.Join(t.TempDir(), "session.tprec")

	w, err := Create(path, poseHeader(t, opts))
	require.NoError(t, err)
	frames := [][]packet.Record{poseFrame(100), poseFrame(200)}
	for _, f := range frames {
		require.NoError(t, w.WriteFrame("", f))
	}
	require.NoError(t, w.Close())

	r, err := Open(path)
	require.NoError(t, err)
	tracker, err := pose.New(ctx, NewReplay(r), opts)
	require.NoError(t, err)

	var got []pose.Result
	tracker.SetResultListener(func(res pose.Result) { got = append(got, res) })
	for i := range frames {
		require.NoError(t, tracker.Send(ctx, nil, packet.Timestamp(i+1)))
	}
	err = tracker.Send(ctx, nil, 3)
	assert.ErrorIs(t, err, io.EOF)
	require.NoError(t, tracker.Close())

	require.Len(t, got, 2)
	for i, f := range frames {
		live, err := packet.Packets(f)
		require.NoError(t, err)
		want, err := pose.Decode(live, opts, nil)
		require.NoError(t, err)
		assert.Equal(t, want.Timestamp(), got[i].Timestamp())
		assert.Equal(t, want.Detections(), got[i].Detections())
		assert.Equal(t, want.Landmarks(), got[i].Landmarks())
	}
}

func TestReplayErrorFrames(t *testing.T) {
	ctx := context.Background()
	opts := pose.DefaultOptions()
	var buf bytes.Buffer
	w, err := NewWriter(&buf, poseHeader(t, opts))
	require.NoError(t, err)
	w.Mark(0)
	require.NoError(t, w.WriteFrame("", poseFrame(0)))
	w.Mark(3)
	require.NoError(t, w.WriteFrame("calculator failed", nil))
	w.Mark(6)
	require.NoError(t, w.WriteFrame("", poseFrame(6)[:2]))
	require.NoError(t, w.Close())

	r, err := NewReader(&buf)
	require.NoError(t, err)
	rp := NewReplay(r)
	tracker, err := pose.New(ctx, rp, opts)
	require.NoError(t, err)
	defer tracker.Close()

	var results int
	var errs []error
	tracker.SetResultListener(func(pose.Result) { results++ })
	tracker.SetErrorListener(func(_ string, err error) { errs = append(errs, err) })

	var indices []int
	for {
		err := tracker.Send(ctx, nil, 0)
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		indices = append(indices, rp.Index())
	}

	assert.Equal(t, []int{0, 3, 6}, indices)
	assert.Equal(t, 1, results)
	require.Len(t, errs, 2)
	var rtErr *graph.RuntimeError
	require.ErrorAs(t, errs[0], &rtErr)
	assert.Equal(t, "process", rtErr.Op)
	assert.EqualError(t, rtErr.Err, "calculator failed")
}

func TestReplayRejectsOtherStreams(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, poseHeader(t, pose.DefaultOptions()))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	r, err := NewReader(&buf)
	require.NoError(t, err)

	info := graph.SolutionInfo{
		BinaryGraphPath:      "gesture_recognizer_gpu.binarypb",
		ImageInputStreamName: "image_in",
		OutputStreamNames:    []string{"hand_gestures"},
	}
	err = NewReplay(r).Start(context.Background(), info, nil, nil)
	assert.ErrorIs(t, err, ErrStreamMismatch)
}
