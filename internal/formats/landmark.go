package formats

import (
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/andresmejia3/trackpoint/internal/types"
)

// Landmark and NormalizedLandmark share field numbers.
const (
	landmarkX          protowire.Number = 1
	landmarkY          protowire.Number = 2
	landmarkZ          protowire.Number = 3
	landmarkVisibility protowire.Number = 4
	landmarkPresence   protowire.Number = 5

	landmarkListLandmark protowire.Number = 1
)

type point struct {
	X, Y, Z    float32
	Visibility float32
	Presence   float32
}

func unmarshalPoint(msg string, b []byte) (point, error) {
	var p point
	err := walk(msg, b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		var dst *float32
		switch num {
		case landmarkX:
			dst = &p.X
		case landmarkY:
			dst = &p.Y
		case landmarkZ:
			dst = &p.Z
		case landmarkVisibility:
			dst = &p.Visibility
		case landmarkPresence:
			dst = &p.Presence
		default:
			return skipField(num, typ, b)
		}
		v, n, err := consumeFloat(typ, b)
		if err != nil {
			return 0, err
		}
		*dst = v
		return n, nil
	})
	return p, err
}

func unmarshalPoints(msg string, b []byte) ([]point, error) {
	points := []point{}
	err := walk(msg, b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != landmarkListLandmark {
			return skipField(num, typ, b)
		}
		raw, n, err := consumeBytes(typ, b)
		if err != nil {
			return 0, err
		}
		p, err := unmarshalPoint("landmark", raw)
		if err != nil {
			return 0, err
		}
		points = append(points, p)
		return n, nil
	})
	if err != nil {
		return []point{}, err
	}
	return points, nil
}

// UnmarshalLandmark decodes a single Landmark message.
func UnmarshalLandmark(b []byte) (types.Landmark, error) {
	p, err := unmarshalPoint("Landmark", b)
	return types.Landmark(p), err
}

// UnmarshalLandmarkList decodes a LandmarkList. The result is never nil.
func UnmarshalLandmarkList(b []byte) ([]types.Landmark, error) {
	points, err := unmarshalPoints("LandmarkList", b)
	out := make([]types.Landmark, len(points))
	for i, p := range points {
		out[i] = types.Landmark(p)
	}
	return out, err
}

// UnmarshalNormalizedLandmark decodes a single NormalizedLandmark message.
func UnmarshalNormalizedLandmark(b []byte) (types.NormalizedLandmark, error) {
	p, err := unmarshalPoint("NormalizedLandmark", b)
	return types.NormalizedLandmark(p), err
}

// UnmarshalNormalizedLandmarkList decodes a NormalizedLandmarkList. The result is never nil.
func UnmarshalNormalizedLandmarkList(b []byte) ([]types.NormalizedLandmark, error) {
	points, err := unmarshalPoints("NormalizedLandmarkList", b)
	out := make([]types.NormalizedLandmark, len(points))
	for i, p := range points {
		out[i] = types.NormalizedLandmark(p)
	}
	return out, err
}

func appendPoint(b []byte, p point) []byte {
	b = appendFloat(b, landmarkX, p.X)
	b = appendFloat(b, landmarkY, p.Y)
	b = appendFloat(b, landmarkZ, p.Z)
	if p.Visibility != 0 {
		b = appendFloat(b, landmarkVisibility, p.Visibility)
	}
	if p.Presence != 0 {
		b = appendFloat(b, landmarkPresence, p.Presence)
	}
	return b
}

// MarshalLandmarkList encodes landmarks as a LandmarkList message.
func MarshalLandmarkList(landmarks []types.Landmark) []byte {
	var b []byte
	for _, l := range landmarks {
		b = appendMessage(b, landmarkListLandmark, appendPoint(nil, point(l)))
	}
	return b
}

// MarshalNormalizedLandmarkList encodes landmarks as a NormalizedLandmarkList message.
func MarshalNormalizedLandmarkList(landmarks []types.NormalizedLandmark) []byte {
	var b []byte
	for _, l := range landmarks {
		b = appendMessage(b, landmarkListLandmark, appendPoint(nil, point(l)))
	}
	return b
}
