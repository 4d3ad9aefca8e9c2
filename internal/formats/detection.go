package formats

import (
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/andresmejia3/trackpoint/internal/types"
)

const (
	detectionLabel         protowire.Number = 1
	detectionLabelID       protowire.Number = 2
	detectionScore         protowire.Number = 3
	detectionLocationData  protowire.Number = 4
	detectionFeatureTag    protowire.Number = 5
	detectionTrackID       protowire.Number = 6
	detectionID            protowire.Number = 7
	detectionDisplayName   protowire.Number = 9
	detectionTimestampUsec protowire.Number = 10

	locationFormat              protowire.Number = 1
	locationBoundingBox         protowire.Number = 2
	locationRelativeBoundingBox protowire.Number = 3
	locationRelativeKeypoints   protowire.Number = 5

	boxXMin   protowire.Number = 1
	boxYMin   protowire.Number = 2
	boxWidth  protowire.Number = 3
	boxHeight protowire.Number = 4

	keypointX     protowire.Number = 1
	keypointY     protowire.Number = 2
	keypointLabel protowire.Number = 3
	keypointScore protowire.Number = 4

	detectionListDetection protowire.Number = 1
)

// UnmarshalDetection decodes a single Detection message.
func UnmarshalDetection(b []byte) (types.Detection, error) {
	var d types.Detection
	err := walk("Detection", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case detectionLabel:
			v, n, err := consumeString(typ, b)
			if err == nil {
				d.Labels = append(d.Labels, v)
			}
			return n, err
		case detectionLabelID:
			var n int
			var err error
			d.LabelIDs, n, err = consumeInt32s(d.LabelIDs, typ, b)
			return n, err
		case detectionScore:
			var n int
			var err error
			d.Scores, n, err = consumeFloats(d.Scores, typ, b)
			return n, err
		case detectionLocationData:
			raw, n, err := consumeBytes(typ, b)
			if err != nil {
				return 0, err
			}
			d.Location, err = unmarshalLocationData(raw)
			return n, err
		case detectionFeatureTag:
			v, n, err := consumeString(typ, b)
			d.FeatureTag = v
			return n, err
		case detectionTrackID:
			v, n, err := consumeString(typ, b)
			d.TrackID = v
			return n, err
		case detectionID:
			v, n, err := consumeVarint(typ, b)
			d.DetectionID = int64(v)
			return n, err
		case detectionDisplayName:
			v, n, err := consumeString(typ, b)
			if err == nil {
				d.DisplayNames = append(d.DisplayNames, v)
			}
			return n, err
		case detectionTimestampUsec:
			v, n, err := consumeVarint(typ, b)
			d.TimestampUsec = int64(v)
			return n, err
		}
		return skipField(num, typ, b)
	})
	return d, err
}

func unmarshalLocationData(b []byte) (types.LocationData, error) {
	var loc types.LocationData
	err := walk("LocationData", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case locationFormat:
			v, n, err := consumeVarint(typ, b)
			loc.Format = types.LocationFormat(int32(v))
			return n, err
		case locationBoundingBox:
			raw, n, err := consumeBytes(typ, b)
			if err != nil {
				return 0, err
			}
			box, err := unmarshalBoundingBox(raw)
			loc.BoundingBox = &box
			return n, err
		case locationRelativeBoundingBox:
			raw, n, err := consumeBytes(typ, b)
			if err != nil {
				return 0, err
			}
			box, err := unmarshalRelativeBoundingBox(raw)
			loc.RelativeBoundingBox = &box
			return n, err
		case locationRelativeKeypoints:
			raw, n, err := consumeBytes(typ, b)
			if err != nil {
				return 0, err
			}
			kp, err := unmarshalKeypoint(raw)
			if err != nil {
				return 0, err
			}
			loc.RelativeKeypoints = append(loc.RelativeKeypoints, kp)
			return n, nil
		}
		return skipField(num, typ, b)
	})
	return loc, err
}

func unmarshalBoundingBox(b []byte) (types.BoundingBox, error) {
	var box types.BoundingBox
	err := walk("BoundingBox", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		var dst *int32
		switch num {
		case boxXMin:
			dst = &box.XMin
		case boxYMin:
			dst = &box.YMin
		case boxWidth:
			dst = &box.Width
		case boxHeight:
			dst = &box.Height
		default:
			return skipField(num, typ, b)
		}
		v, n, err := consumeVarint(typ, b)
		*dst = int32(v)
		return n, err
	})
	return box, err
}

func unmarshalRelativeBoundingBox(b []byte) (types.RelativeBoundingBox, error) {
	var box types.RelativeBoundingBox
	err := walk("RelativeBoundingBox", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		var dst *float32
		switch num {
		case boxXMin:
			dst = &box.XMin
		case boxYMin:
			dst = &box.YMin
		case boxWidth:
			dst = &box.Width
		case boxHeight:
			dst = &box.Height
		default:
			return skipField(num, typ, b)
		}
		v, n, err := consumeFloat(typ, b)
		*dst = v
		return n, err
	})
	return box, err
}

func unmarshalKeypoint(b []byte) (types.RelativeKeypoint, error) {
	var kp types.RelativeKeypoint
	err := walk("RelativeKeypoint", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case keypointX:
			v, n, err := consumeFloat(typ, b)
			kp.X = v
			return n, err
		case keypointY:
			v, n, err := consumeFloat(typ, b)
			kp.Y = v
			return n, err
		case keypointLabel:
			v, n, err := consumeString(typ, b)
			kp.Label = v
			return n, err
		case keypointScore:
			v, n, err := consumeFloat(typ, b)
			kp.Score = v
			return n, err
		}
		return skipField(num, typ, b)
	})
	return kp, err
}

// UnmarshalDetectionList decodes a DetectionList. The result is never nil.
func UnmarshalDetectionList(b []byte) ([]types.Detection, error) {
	detections := []types.Detection{}
	err := walk("DetectionList", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != detectionListDetection {
			return skipField(num, typ, b)
		}
		raw, n, err := consumeBytes(typ, b)
		if err != nil {
			return 0, err
		}
		d, err := UnmarshalDetection(raw)
		if err != nil {
			return 0, err
		}
		detections = append(detections, d)
		return n, nil
	})
	if err != nil {
		return []types.Detection{}, err
	}
	return detections, nil
}

// MarshalDetection encodes d as a Detection message. Label ids and scores are packed.
func MarshalDetection(d types.Detection) []byte {
	var b []byte
	for _, l := range d.Labels {
		b = appendString(b, detectionLabel, l)
	}
	if len(d.LabelIDs) > 0 {
		var packed []byte
		for _, id := range d.LabelIDs {
			packed = protowire.AppendVarint(packed, uint64(int64(id)))
		}
		b = appendMessage(b, detectionLabelID, packed)
	}
	if len(d.Scores) > 0 {
		var packed []byte
		for _, s := range d.Scores {
			packed = protowire.AppendFixed32(packed, math.Float32bits(s))
		}
		b = appendMessage(b, detectionScore, packed)
	}
	b = appendMessage(b, detectionLocationData, marshalLocationData(d.Location))
	if d.FeatureTag != "" {
		b = appendString(b, detectionFeatureTag, d.FeatureTag)
	}
	if d.TrackID != "" {
		b = appendString(b, detectionTrackID, d.TrackID)
	}
	if d.DetectionID != 0 {
		b = protowire.AppendTag(b, detectionID, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(d.DetectionID))
	}
	for _, name := range d.DisplayNames {
		b = appendString(b, detectionDisplayName, name)
	}
	if d.TimestampUsec != 0 {
		b = protowire.AppendTag(b, detectionTimestampUsec, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(d.TimestampUsec))
	}
	return b
}

func marshalLocationData(loc types.LocationData) []byte {
	var b []byte
	b = appendInt32(b, locationFormat, int32(loc.Format))
	if box := loc.BoundingBox; box != nil {
		var m []byte
		m = appendInt32(m, boxXMin, box.XMin)
		m = appendInt32(m, boxYMin, box.YMin)
		m = appendInt32(m, boxWidth, box.Width)
		m = appendInt32(m, boxHeight, box.Height)
		b = appendMessage(b, locationBoundingBox, m)
	}
	if box := loc.RelativeBoundingBox; box != nil {
		var m []byte
		m = appendFloat(m, boxXMin, box.XMin)
		m = appendFloat(m, boxYMin, box.YMin)
		m = appendFloat(m, boxWidth, box.Width)
		m = appendFloat(m, boxHeight, box.Height)
		b = appendMessage(b, locationRelativeBoundingBox, m)
	}
	for _, kp := range loc.RelativeKeypoints {
		var m []byte
		m = appendFloat(m, keypointX, kp.X)
		m = appendFloat(m, keypointY, kp.Y)
		if kp.Label != "" {
			m = appendString(m, keypointLabel, kp.Label)
		}
		m = appendFloat(m, keypointScore, kp.Score)
		b = appendMessage(b, locationRelativeKeypoints, m)
	}
	return b
}

// MarshalDetectionList encodes detections as a DetectionList message.
func MarshalDetectionList(detections []types.Detection) []byte {
	var b []byte
	for _, d := range detections {
		b = appendMessage(b, detectionListDetection, MarshalDetection(d))
	}
	return b
}
