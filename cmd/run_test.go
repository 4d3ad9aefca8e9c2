package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/schollz/progressbar/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/andresmejia3/trackpoint/internal/formats"
	"github.com/andresmejia3/trackpoint/internal/packet"
	"github.com/andresmejia3/trackpoint/internal/pose"
	"github.com/andresmejia3/trackpoint/internal/recorder"
	"github.com/andresmejia3/trackpoint/internal/store"
	"github.com/andresmejia3/trackpoint/internal/types"
	"github.com/andresmejia3/trackpoint/internal/worker"
)

func newTestSink(t *testing.T) store.Sink {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close(context.Background()) })
	return s
}

func TestFrameTimestamp(t *testing.T) {
	tests := []struct {
		index int
		fps   float64
		want  packet.Timestamp
	}{
		{0, 30, 0},
		{1, 25, 40000},
		{30, 30, 1000000},
		{3, 29.97, 100100},
	}

	for _, tt := range tests {
		if got := frameTimestamp(tt.index, tt.fps); got != tt.want {
			t.Errorf("frameTimestamp(%d, %v) = %v, want %v", tt.index, tt.fps, got, tt.want)
		}
	}
}

func TestValidateRunFlags(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "video.mp4")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(tmpFile.Name())
	tmpFile.Close()

	tmpDir := t.TempDir()

	tests := []struct {
		name    string
		opts    RunOptions
		wantErr bool
	}{
		{"valid", RunOptions{InputPath: tmpFile.Name(), NthFrame: 1}, false},
		{"missing file", RunOptions{InputPath: filepath.Join(tmpDir, "nope.mp4"), NthFrame: 1}, true},
		{"directory", RunOptions{InputPath: tmpDir, NthFrame: 1}, true},
		{"zero nth frame", RunOptions{InputPath: tmpFile.Name(), NthFrame: 0}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateRunFlags(&tt.opts)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateRunFlags() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFrameLog(t *testing.T) {
	ctx := context.Background()
	sink := newTestSink(t)
	session := store.NewSession("pose", "/tmp/in.mp4", "id", false)

	log, err := newFrameLog(ctx, sink, session)
	require.NoError(t, err)

	// A decoded frame, with one field that failed to decode
	log.begin(0)
	log.report("failed to decode pose_detection", errors.New("bad wire type"))
	log.result(1000, poseSummary{Landmarks: 33})
	require.NoError(t, log.finish())

	// A frame the runtime failed
	log.begin(5)
	log.report("Error occurs while getting pose tracking results.", errors.New("boom"))
	require.NoError(t, log.finish())

	assert.Equal(t, 2, log.frames)
	assert.Equal(t, 1, log.failed)

	frames, err := sink.Frames(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, frames, 2)

	assert.Equal(t, packet.Timestamp(1000), frames[0].Timestamp)
	assert.JSONEq(t, `{"result":{"detections":0,"landmarks":33},"errors":["failed to decode pose_detection: bad wire type"]}`, string(frames[0].Summary))

	assert.Equal(t, 5, frames[1].Index)
	assert.Equal(t, packet.Unset, frames[1].Timestamp)
	assert.Contains(t, frames[1].Error, "boom")
}

func TestTopLabel(t *testing.T) {
	tests := []struct {
		name string
		cats []types.Category
		want string
	}{
		{"empty", nil, ""},
		{"single", []types.Category{{Label: "Open_Palm", Score: 0.1}}, "Open_Palm"},
		{"best wins", []types.Category{{Label: "None", Score: 0.2}, {Label: "Victory", Score: 0.7}, {Label: "Thumb_Up", Score: 0.1}}, "Victory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, topLabel(tt.cats))
		})
	}
}

func TestForEachFrameImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "still.jpg")
	require.NoError(t, os.WriteFile(path, []byte{0xFF, 0xD8, 0xFF, 0xD9}, 0o644))
	bar := progressbar.NewOptions(-1, progressbar.OptionSetWriter(io.Discard))

	var got []packet.Timestamp
	sent, err := forEachFrame(context.Background(), path, 1, bar, func(task types.FrameTask, ts packet.Timestamp) error {
		assert.Equal(t, 0, task.Index)
		assert.Len(t, task.Data, 4)
		got = append(got, ts)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, []packet.Timestamp{0}, got)
}

func TestReplayRecording(t *testing.T) {
	ctx := context.Background()
	sink := newTestSink(t)
	opts := pose.DefaultOptions()
	raw, err := yaml.Marshal(opts)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "walk.tprec")
	w, err := recorder.Create(path, recorder.Header{
		Solution: "pose",
		Info:     pose.Info(opts),
		Side:     pose.SidePackets(opts),
		Options:  raw,
	})
	require.NoError(t, err)

	lms := formats.MarshalNormalizedLandmarkList([]types.NormalizedLandmark{{X: 0.1}, {X: 0.2}})
	for _, ts := range []packet.Timestamp{0, 33333, 66666} {
		require.NoError(t, w.WriteFrame("", []packet.Record{
			packet.NewRecord(packet.Empty(ts)),
			packet.NewRecord(packet.Image(ts, []byte("in"))),
			packet.NewRecord(packet.Image(ts, []byte("out"))),
			packet.NewRecord(packet.Proto(ts, lms)),
		}))
	}
	require.NoError(t, w.Close())

	log, sent, err := replayRecording(ctx, path, sink)
	require.NoError(t, err)
	assert.Equal(t, 3, sent)
	assert.Equal(t, 0, log.failed)

	frames, err := sink.Frames(ctx, log.session.ID)
	require.NoError(t, err)
	require.Len(t, frames, 3)
	assert.Equal(t, packet.Timestamp(33333), frames[1].Timestamp)

	var summary struct {
		Result poseSummary `json:"result"`
	}
	require.NoError(t, json.Unmarshal(frames[2].Summary, &summary))
	assert.Equal(t, 2, summary.Result.Landmarks)
	assert.Equal(t, 0, summary.Result.Detections)
}

// memPipe stands in for the runner's stdin and data pipe.
type memPipe struct{ *bytes.Buffer }

func (memPipe) Close() error { return nil }

func TestReplayReproducesLiveSession(t *testing.T) {
	ctx := context.Background()
	sink := newTestSink(t)
	opts := pose.DefaultOptions()
	path := filepath.Join(t.TempDir(), "live.tprec")

	type startResponse struct {
		Error string `msgpack:"error"`
	}
	type frameResponse struct {
		Error   string          `msgpack:"error"`
		Packets []packet.Record `msgpack:"packets"`
	}
	lms := formats.MarshalNormalizedLandmarkList([]types.NormalizedLandmark{{X: 0.4}, {X: 0.5}, {X: 0.6}})
	good := func(ts packet.Timestamp) frameResponse {
		return frameResponse{Packets: []packet.Record{
			packet.NewRecord(packet.Empty(ts)),
			packet.NewRecord(packet.Image(ts, []byte("in"))),
			packet.NewRecord(packet.Image(ts, []byte("out"))),
			packet.NewRecord(packet.Proto(ts, lms)),
		}}
	}

	data := memPipe{new(bytes.Buffer)}
	for _, r := range []any{startResponse{}, good(0), frameResponse{Error: "calculator failed"}, good(133333)} {
		require.NoError(t, worker.WriteMessage(data, r))
	}

	runner, rec, err := startRunner("pose", pose.Info(opts), pose.SidePackets(opts), opts, path)
	require.NoError(t, err)
	runner.Stdin = memPipe{new(bytes.Buffer)}
	runner.DataPipe = data

	tracker, err := pose.New(ctx, runner, opts)
	require.NoError(t, err)
	live, err := newFrameLog(ctx, sink, store.NewSession("pose", "walk.mp4", "src", false))
	require.NoError(t, err)
	live.rec = rec
	tracker.SetResultListener(func(r pose.Result) { live.result(r.Timestamp(), summarizePose(r)) })
	tracker.SetErrorListener(live.report)

	// Every second frame, as with --nth-frame 2
	for _, index := range []int{0, 2, 4} {
		live.begin(index)
		require.NoError(t, tracker.Send(ctx, nil, frameTimestamp(index, 15)))
		require.NoError(t, live.finish())
	}
	require.NoError(t, tracker.Close())
	require.NoError(t, rec.Close())

	replayed, sent, err := replayRecording(ctx, path, sink)
	require.NoError(t, err)
	assert.Equal(t, 3, sent)
	assert.Equal(t, live.frames, replayed.frames)
	assert.Equal(t, 1, replayed.failed)
	assert.Equal(t, live.failed, replayed.failed)

	want, err := sink.Frames(ctx, live.session.ID)
	require.NoError(t, err)
	got, err := sink.Frames(ctx, replayed.session.ID)
	require.NoError(t, err)
	require.Len(t, want, 3)
	assert.Equal(t, want, got)
	assert.Equal(t, 2, got[1].Index)
	assert.Contains(t, got[1].Error, "calculator failed")
}

func TestReplayUnknownSolution(t *testing.T) {
	path := filepath.Join(t.TempDir(), "odd.tprec")
	w, err := recorder.Create(path, recorder.Header{Solution: "face", Info: pose.Info(pose.DefaultOptions())})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	_, _, err = replayRecording(context.Background(), path, newTestSink(t))
	assert.Error(t, err)
}

func TestFailIsReportedOnce(t *testing.T) {
	err := fail("Something broke", errors.New("root cause"), nil)
	var shown *reportedError
	require.True(t, errors.As(err, &shown))
	assert.Contains(t, err.Error(), "root cause")
}
