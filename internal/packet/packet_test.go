package packet

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func TestUnsetTimestamp(t *testing.T) {
	assert.Equal(t, Timestamp(math.MinInt64), Unset)
	assert.False(t, Unset.IsSet())
	assert.True(t, Timestamp(0).IsSet())
	assert.Equal(t, "unset", Unset.String())
	assert.Equal(t, "1500us", Timestamp(1500).String())
}

func TestAccessors(t *testing.T) {
	empty := Empty(10)
	assert.True(t, empty.IsEmpty())
	_, err := empty.ProtoBytes()
	assert.ErrorIs(t, err, ErrEmpty)
	_, err = empty.ProtoVector()
	assert.ErrorIs(t, err, ErrEmpty)

	p := Proto(20, []byte{1, 2})
	assert.False(t, p.IsEmpty())
	b, err := p.ProtoBytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, b)
	_, err = p.ProtoVector()
	assert.ErrorIs(t, err, ErrKind)

	v := Vector(30, [][]byte{{1}, {2}})
	msgs, err := v.ProtoVector()
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
	_, err = v.ProtoBytes()
	assert.ErrorIs(t, err, ErrKind)

	img := Image(40, []byte{0xFF, 0xD8})
	b, err = img.ProtoBytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xD8}, b)
	assert.Equal(t, Timestamp(40), img.Timestamp())
}

func TestZeroDataIsEmpty(t *testing.T) {
	var d Data
	assert.True(t, d.IsEmpty())
	assert.Equal(t, Timestamp(0), d.Timestamp())
}

func TestRecordSurvivesMsgpack(t *testing.T) {
	records := []Record{
		NewRecord(Empty(1)),
		NewRecord(Proto(2, []byte("detection"))),
		NewRecord(Vector(3, [][]byte{[]byte("a"), []byte("b")})),
		NewRecord(Image(Unset, []byte{0xFF})),
	}
	raw, err := msgpack.Marshal(records)
	require.NoError(t, err)

	var decoded []Record
	require.NoError(t, msgpack.Unmarshal(raw, &decoded))

	packets, err := Packets(decoded)
	require.NoError(t, err)
	require.Len(t, packets, 4)

	assert.True(t, packets[0].IsEmpty())
	b, err := packets[1].ProtoBytes()
	require.NoError(t, err)
	assert.Equal(t, "detection", string(b))
	msgs, err := packets[2].ProtoVector()
	require.NoError(t, err)
	assert.Equal(t, []byte("b"), msgs[1])
	assert.Equal(t, Unset, packets[3].Timestamp())
}

func TestUnknownKindRejected(t *testing.T) {
	_, err := Packets([]Record{{Kind: Kind(9)}})
	assert.Error(t, err)
}

func TestSideValues(t *testing.T) {
	side := SidePackets{
		"model_complexity": Int32(2),
		"smooth_landmarks": Bool(true),
		"min_confidence":   Float32(0.5),
		"mode":             String("video"),
	}
	raw, err := msgpack.Marshal(side)
	require.NoError(t, err)

	var decoded SidePackets
	require.NoError(t, msgpack.Unmarshal(raw, &decoded))
	assert.Equal(t, int32(2), decoded["model_complexity"].Value())
	assert.Equal(t, true, decoded["smooth_landmarks"].Value())
	assert.Equal(t, float32(0.5), decoded["min_confidence"].Value())
	assert.Equal(t, "video", decoded["mode"].Value())
	assert.Nil(t, SideValue{}.Value())
}
