package gesture

import (
	"github.com/andresmejia3/trackpoint/internal/packet"
	"github.com/andresmejia3/trackpoint/internal/types"
)

// Result is the gesture recognition output for one frame, one entry per
// detected hand in every collection.
type Result struct {
	timestamp      packet.Timestamp
	landmarks      [][]types.NormalizedLandmark
	worldLandmarks [][]types.Landmark
	handednesses   [][]types.Category
	gestures       [][]types.Category
	image          packet.Packet
}

// newResult builds a Result from decoded streams. Gesture categories lose
// their index: the final gesture comes from several classifiers whose raw
// indices do not consolidate.
func newResult(
	landmarks [][]types.NormalizedLandmark,
	worldLandmarks [][]types.Landmark,
	handednesses [][]types.Category,
	gestures [][]types.Category,
	image packet.Packet,
	ts packet.Timestamp,
) Result {
	stripped := make([][]types.Category, len(gestures))
	for i, hand := range gestures {
		stripped[i] = make([]types.Category, len(hand))
		for j, c := range hand {
			c.Index = types.NoIndex
			stripped[i][j] = c
		}
	}
	return Result{
		timestamp:      ts,
		landmarks:      landmarks,
		worldLandmarks: worldLandmarks,
		handednesses:   handednesses,
		gestures:       stripped,
		image:          image,
	}
}

// Timestamp is the image packet's timestamp, or packet.Unset in static image mode.
func (r Result) Timestamp() packet.Timestamp { return r.timestamp }

// Landmarks returns hand landmarks of detected hands.
func (r Result) Landmarks() [][]types.NormalizedLandmark { return clone2(r.landmarks) }

// WorldLandmarks returns hand landmarks in world coordinates.
func (r Result) WorldLandmarks() [][]types.Landmark { return clone2(r.worldLandmarks) }

// Handednesses returns the handedness classification of each hand.
func (r Result) Handednesses() [][]types.Category { return clone2(r.handednesses) }

// Gestures returns recognized gestures of each hand. Index is always types.NoIndex.
func (r Result) Gestures() [][]types.Category { return clone2(r.gestures) }

func (r Result) ImagePacket() packet.Packet { return r.image }

func clone2[T any](in [][]T) [][]T {
	out := make([][]T, len(in))
	for i, row := range in {
		out[i] = append(make([]T, 0, len(row)), row...)
	}
	return out
}
