package types

// FrameTask represents a single frame handed to a solution for processing
type FrameTask struct {
	Index int
	Data  []byte
}

// Landmark is a point in world coordinates (meters, origin at the entity's center)
type Landmark struct {
	X, Y, Z    float32
	Visibility float32 // 0 when the graph did not report it
	Presence   float32
}

// NormalizedLandmark is a point with x/y normalized to [0, 1] by image width and height
type NormalizedLandmark struct {
	X, Y, Z    float32
	Visibility float32
	Presence   float32
}

// NoIndex marks a Category whose index carries no meaning.
const NoIndex = -1

// Category is one classification outcome
type Category struct {
	Score       float32 `json:"score"`
	Index       int     `json:"index"`
	Label       string  `json:"label"`
	DisplayName string  `json:"display_name,omitempty"`
}

// LocationFormat mirrors LocationData.Format from the graph's detection schema.
type LocationFormat int32

const (
	LocationGlobal LocationFormat = iota
	LocationBoundingBox
	LocationRelativeBoundingBox
	LocationMask
)

// BoundingBox is in pixels
type BoundingBox struct {
	XMin, YMin    int32
	Width, Height int32
}

// RelativeBoundingBox is normalized by image size
type RelativeBoundingBox struct {
	XMin, YMin    float32
	Width, Height float32
}

// RelativeKeypoint is a labeled keypoint attached to a detection
type RelativeKeypoint struct {
	X, Y  float32
	Label string
	Score float32
}

// LocationData holds the spatial part of a Detection
type LocationData struct {
	Format              LocationFormat
	BoundingBox         *BoundingBox
	RelativeBoundingBox *RelativeBoundingBox
	RelativeKeypoints   []RelativeKeypoint
}

// Detection is passed through untouched from the graph
type Detection struct {
	Labels        []string
	LabelIDs      []int32
	Scores        []float32
	DisplayNames  []string
	Location      LocationData
	FeatureTag    string
	TrackID       string
	DetectionID   int64
	TimestampUsec int64
}
