package solution

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresmejia3/trackpoint/internal/graph"
	"github.com/andresmejia3/trackpoint/internal/graph/graphtest"
	"github.com/andresmejia3/trackpoint/internal/monitoring"
	"github.com/andresmejia3/trackpoint/internal/packet"
)

func countPackets(packets []packet.Packet, report ErrorReporter) (int, error) {
	if len(packets) == 0 {
		return 0, errors.New("no packets")
	}
	return len(packets), nil
}

func TestOutputHandlerDispatch(t *testing.T) {
	h := NewOutputHandler(countPackets, "counting failed")

	var got []int
	h.SetResultListener(func(n int) { got = append(got, n) })

	var msgs []string
	h.SetErrorListener(func(message string, err error) { msgs = append(msgs, message) })

	h.HandlePackets([]packet.Packet{packet.Empty(0), packet.Empty(0)})
	h.HandlePackets(nil)
	h.HandleError(errors.New("runner died"))

	assert.Equal(t, []int{2}, got)
	assert.Equal(t, []string{"counting failed", "counting failed"}, msgs)
}

func TestLastListenerWins(t *testing.T) {
	h := NewOutputHandler(countPackets, "x")

	first, second := 0, 0
	h.SetResultListener(func(int) { first++ })
	h.SetResultListener(func(int) { second++ })
	h.HandlePackets([]packet.Packet{packet.Empty(0)})

	assert.Equal(t, 0, first)
	assert.Equal(t, 1, second)

	h.SetResultListener(nil)
	h.HandlePackets([]packet.Packet{packet.Empty(0)})
	assert.Equal(t, 1, second)
}

func TestErrorsWithoutListenerAreLogged(t *testing.T) {
	var logged []string
	monitoring.SetLogger(func(format string, v ...interface{}) { logged = append(logged, format) })
	defer monitoring.SetLogger(nil)

	h := NewOutputHandler(countPackets, "x")
	h.ReportError("decode failed", errors.New("bad bytes"))
	assert.Len(t, logged, 1)
}

func TestDecodeErrorUnwraps(t *testing.T) {
	err := &DecodeError{Stream: "pose_detection", Err: packet.ErrKind}
	assert.ErrorIs(t, err, packet.ErrKind)
	assert.Contains(t, err.Error(), "pose_detection")
}

func testInfo(static bool) graph.SolutionInfo {
	return graph.SolutionInfo{
		BinaryGraphPath:      "test.binarypb",
		ImageInputStreamName: "in",
		OutputStreamNames:    []string{"out"},
		StaticImageMode:      static,
	}
}

func TestImageSolutionLifecycle(t *testing.T) {
	ctx := context.Background()
	rt := &graphtest.Fake{}
	h := NewOutputHandler(countPackets, "x")

	var s ImageSolution
	assert.Error(t, s.Start(ctx, nil))

	require.NoError(t, s.Initialize(rt, testInfo(false), h))
	assert.ErrorIs(t, s.Send(ctx, nil, 1), ErrNotStarted)

	side := packet.SidePackets{"model_complexity": packet.Int32(1)}
	require.NoError(t, s.Start(ctx, side))
	assert.ErrorIs(t, s.Start(ctx, side), ErrAlreadyStarted)
	assert.Equal(t, side, rt.Side)
	assert.Equal(t, "test.binarypb", rt.Info.BinaryGraphPath)

	require.NoError(t, s.Send(ctx, nil, 10))
	assert.Error(t, s.Send(ctx, nil, 10), "timestamps must increase")
	assert.Error(t, s.Send(ctx, nil, packet.Unset))
	require.NoError(t, s.Send(ctx, nil, 11))
	assert.Equal(t, []packet.Timestamp{10, 11}, rt.Sent)

	require.NoError(t, s.Close())
	assert.True(t, rt.Closed)
}

func TestStaticModeUsesSyntheticTimestamps(t *testing.T) {
	ctx := context.Background()
	rt := &graphtest.Fake{}

	var s ImageSolution
	require.NoError(t, s.Initialize(rt, testInfo(true), NewOutputHandler(countPackets, "x")))
	require.NoError(t, s.Start(ctx, nil))
	assert.True(t, s.StaticImageMode())

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Send(ctx, nil, 999))
	}
	assert.Equal(t, []packet.Timestamp{0, 1, 2}, rt.Sent)
}

func TestInitializeValidates(t *testing.T) {
	var s ImageSolution
	assert.Error(t, s.Initialize(nil, testInfo(false), nil))
	assert.Error(t, s.Initialize(&graphtest.Fake{}, graph.SolutionInfo{}, nil))
}

func TestStartFailureIsWrapped(t *testing.T) {
	boom := errors.New("runner missing")
	var s ImageSolution
	require.NoError(t, s.Initialize(&graphtest.Fake{StartErr: boom}, testInfo(false), NewOutputHandler(countPackets, "x")))
	err := s.Start(context.Background(), nil)
	assert.ErrorIs(t, err, boom)
}
