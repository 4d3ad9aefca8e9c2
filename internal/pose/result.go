package pose

import (
	"slices"

	"github.com/andresmejia3/trackpoint/internal/packet"
	"github.com/andresmejia3/trackpoint/internal/types"
)

// Result is the pose tracking output for one frame. It is never modified
// after construction; accessors hand out copies.
type Result struct {
	timestamp  packet.Timestamp
	detections []types.Detection
	landmarks  []types.Landmark
	image      packet.Packet
}

// Timestamp is the image packet's timestamp, or packet.Unset in static image mode.
func (r Result) Timestamp() packet.Timestamp { return r.timestamp }

// Detections holds the pose detection of the frame, if any.
func (r Result) Detections() []types.Detection { return slices.Clone(r.detections) }

// Landmarks holds the tracked pose landmarks.
func (r Result) Landmarks() []types.Landmark { return slices.Clone(r.landmarks) }

// ImagePacket is the input image or the rendered overlay, depending on Options.LandmarkVisibility.
func (r Result) ImagePacket() packet.Packet { return r.image }
