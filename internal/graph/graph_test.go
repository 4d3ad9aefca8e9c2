package graph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/andresmejia3/trackpoint/internal/packet"
)

func TestSolutionInfoValidate(t *testing.T) {
	valid := SolutionInfo{
		BinaryGraphPath:      "pose_tracking_gpu_image.binarypb",
		ImageInputStreamName: "input_video",
		OutputStreamNames:    []string{"pose_detection"},
	}
	assert.NoError(t, valid.Validate())

	missingGraph := valid
	missingGraph.BinaryGraphPath = ""
	assert.Error(t, missingGraph.Validate())

	missingInput := valid
	missingInput.ImageInputStreamName = ""
	assert.Error(t, missingInput.Validate())

	noOutputs := valid
	noOutputs.OutputStreamNames = nil
	assert.Error(t, noOutputs.Validate())
}

func TestSameOutputsIsOrderSensitive(t *testing.T) {
	a := SolutionInfo{OutputStreamNames: []string{"a", "b"}}
	assert.True(t, a.SameOutputs(SolutionInfo{OutputStreamNames: []string{"a", "b"}}))
	assert.False(t, a.SameOutputs(SolutionInfo{OutputStreamNames: []string{"b", "a"}}))
	assert.False(t, a.SameOutputs(SolutionInfo{OutputStreamNames: []string{"a"}}))
}

func TestCheckPackets(t *testing.T) {
	info := SolutionInfo{OutputStreamNames: []string{"a", "b"}}
	assert.NoError(t, CheckPackets(info, []packet.Packet{packet.Empty(0), packet.Empty(0)}))

	err := CheckPackets(info, []packet.Packet{packet.Empty(0)})
	var rtErr *RuntimeError
	assert.True(t, errors.As(err, &rtErr))
	assert.Equal(t, "deliver", rtErr.Op)
}

func TestRuntimeErrorUnwraps(t *testing.T) {
	err := &RuntimeError{Op: "get packet", Err: packet.ErrKind}
	assert.ErrorIs(t, err, packet.ErrKind)
	assert.Contains(t, err.Error(), "get packet")
}
