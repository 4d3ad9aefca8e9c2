package gesture

import "fmt"

// Options configures a Recognizer.
type Options struct {
	StaticImageMode            bool    `yaml:"static_image_mode"`
	NumHands                   int     `yaml:"num_hands"`
	MinHandDetectionConfidence float32 `yaml:"min_hand_detection_confidence"`
	MinHandPresenceConfidence  float32 `yaml:"min_hand_presence_confidence"`
	MinTrackingConfidence      float32 `yaml:"min_tracking_confidence"`
}

func DefaultOptions() Options {
	return Options{
		NumHands:                   1,
		MinHandDetectionConfidence: 0.5,
		MinHandPresenceConfidence:  0.5,
		MinTrackingConfidence:      0.5,
	}
}

func (o Options) Validate() error {
	if o.NumHands < 1 {
		return fmt.Errorf("num hands must be at least 1, got %d", o.NumHands)
	}
	thresholds := []struct {
		name string
		v    float32
	}{
		{"min hand detection confidence", o.MinHandDetectionConfidence},
		{"min hand presence confidence", o.MinHandPresenceConfidence},
		{"min tracking confidence", o.MinTrackingConfidence},
	}
	for _, th := range thresholds {
		if th.v < 0 || th.v > 1 {
			return fmt.Errorf("%s must be within [0, 1], got %v", th.name, th.v)
		}
	}
	return nil
}
