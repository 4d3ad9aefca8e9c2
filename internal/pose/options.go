package pose

import "fmt"

// Options configures a Tracker.
type Options struct {
	// StaticImageMode treats every frame as an unrelated still image.
	StaticImageMode bool `yaml:"static_image_mode"`
	// ModelComplexity selects the landmark model: 0 lite, 1 full, 2 heavy.
	ModelComplexity int `yaml:"model_complexity"`
	// SmoothLandmarks filters landmarks across frames. Ignored in static image mode.
	SmoothLandmarks bool `yaml:"smooth_landmarks"`
	// LandmarkVisibility returns the graph-rendered overlay instead of the input image.
	LandmarkVisibility bool `yaml:"landmark_visibility"`
}

// DefaultOptions returns the settings the pose graph was tuned with.
func DefaultOptions() Options {
	return Options{
		ModelComplexity: 1,
		SmoothLandmarks: true,
	}
}

func (o Options) Validate() error {
	if o.ModelComplexity < 0 || o.ModelComplexity > 2 {
		return fmt.Errorf("model complexity must be 0, 1 or 2, got %d", o.ModelComplexity)
	}
	return nil
}
