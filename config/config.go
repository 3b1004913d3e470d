// Package config holds the typed settings of a collision warning session
// together with loaders for YAML files, generic maps and flattened dotted
// parameter sets.
package config

// Point is a 2D point, either a pixel or a ground plane coordinate
type Point [2]float64

// Points is an ordered list of points.  When decoded it accepts a list of
// [x, y] pairs, a flat list of numbers or a map of name to [x, y] which is
// ordered by name.
type Points []Point

// Config is the complete configuration of one tracking session
type Config struct {
	Tracker  Tracker  `mapstructure:"tracker" json:"tracker" yaml:"tracker"`
	FCW      FCW      `mapstructure:"fcw" json:"fcw" yaml:"fcw"`
	Detector Detector `mapstructure:"detector" json:"detector" yaml:"detector"`
	Service  Service  `mapstructure:"service" json:"service" yaml:"service"`
	// FPS is the frame rate of the camera stream, the world tracker time
	// step is 1/FPS
	FPS float64 `mapstructure:"fps" json:"fps" yaml:"fps"`
}

// Tracker configures the image plane tracker
type Tracker struct {
	// MaxAge is the number of consecutive frames a track may go unmatched
	// before it is retired
	MaxAge int `mapstructure:"max_age" json:"max_age" yaml:"max_age"`
	// MinHits is the hit streak a track must exceed to be reliable
	MinHits int `mapstructure:"min_hits" json:"min_hits" yaml:"min_hits"`
	// MinAge is the age in frames a track must exceed to be reliable
	MinAge int `mapstructure:"min_age" json:"min_age" yaml:"min_age"`
	// IoUThreshold is the minimum overlap of a detection and a track for
	// them to be associated
	IoUThreshold float64 `mapstructure:"iou_threshold" json:"iou_threshold" yaml:"iou_threshold"`
	// Assignment selects the bipartite matching solver, lapjv or munkres
	Assignment string `mapstructure:"assignment" json:"assignment" yaml:"assignment"`
}

// FCW configures the collision guard
type FCW struct {
	DangerZone       Points  `mapstructure:"danger_zone" json:"danger_zone" yaml:"danger_zone"`
	VehicleLength    float64 `mapstructure:"vehicle_length" json:"vehicle_length" yaml:"vehicle_length"`
	VehicleWidth     float64 `mapstructure:"vehicle_width" json:"vehicle_width" yaml:"vehicle_width"`
	VehicleMargin    float64 `mapstructure:"vehicle_margin" json:"vehicle_margin" yaml:"vehicle_margin"`
	SafetyRadius     float64 `mapstructure:"safety_radius" json:"safety_radius" yaml:"safety_radius"`
	PredictionLength float64 `mapstructure:"prediction_length" json:"prediction_length" yaml:"prediction_length"`
	PredictionStep   float64 `mapstructure:"prediction_step" json:"prediction_step" yaml:"prediction_step"`
	// TrailLength is the number of past world locations kept per object
	TrailLength int `mapstructure:"trail_length" json:"trail_length" yaml:"trail_length"`
}

// Detector configures which detections are admitted to the tracker
type Detector struct {
	// Classes is the allow list of class labels, empty admits all
	Classes  []string `mapstructure:"classes" json:"classes" yaml:"classes"`
	MinScore float64  `mapstructure:"min_score" json:"min_score" yaml:"min_score"`
	// FrameMargin drops boxes that touch the image border within this many
	// pixels, zero disables the check
	FrameMargin float64 `mapstructure:"frame_margin" json:"frame_margin" yaml:"frame_margin"`
	// LabelsFile optionally maps numeric class ids to names, one per line
	LabelsFile string `mapstructure:"labels_file" json:"labels_file,omitempty" yaml:"labels_file"`
}

// Service configures the session host
type Service struct {
	Addr         string `mapstructure:"addr" json:"addr" yaml:"addr"`
	QueueSize    int    `mapstructure:"queue_size" json:"queue_size" yaml:"queue_size"`
	MaxSessions  int    `mapstructure:"max_sessions" json:"max_sessions" yaml:"max_sessions"`
	ResultBuffer int    `mapstructure:"result_buffer" json:"result_buffer" yaml:"result_buffer"`
}

// Camera is the calibration of a single camera
type Camera struct {
	ImageSize     [2]int `mapstructure:"image_size" json:"image_size" yaml:"image_size"`
	RectifiedSize [2]int `mapstructure:"rectified_size" json:"rectified_size" yaml:"rectified_size"`
	// K is the 3x3 intrinsic matrix
	K [][]float64 `mapstructure:"K" json:"K" yaml:"K"`
	// D holds the four fisheye distortion coefficients
	D []float64 `mapstructure:"D" json:"D" yaml:"D"`
	// Horizon holds raw image points on the true horizon, the first one
	// lies in the viewing direction
	Horizon       Points    `mapstructure:"horizon" json:"horizon" yaml:"horizon"`
	ViewDirection string    `mapstructure:"view_direction" json:"view_direction" yaml:"view_direction"`
	Location      []float64 `mapstructure:"location" json:"location" yaml:"location"`
}

// Defaults returns a Config populated with default values.  The danger
// zone has no default and must be configured.
func Defaults() Config {
	return Config{
		Tracker: Tracker{
			MaxAge:       1,
			MinHits:      3,
			MinAge:       3,
			IoUThreshold: 0.3,
			Assignment:   "lapjv",
		},
		FCW: FCW{
			VehicleLength:    4,
			VehicleWidth:     1.8,
			VehicleMargin:    0.5,
			SafetyRadius:     30,
			PredictionLength: 1,
			PredictionStep:   0.1,
			TrailLength:      30,
		},
		Detector: Detector{
			Classes:  []string{"person", "bicycle", "car", "motorcycle", "bus", "truck"},
			MinScore: 0.3,
		},
		Service: Service{
			Addr:         ":8080",
			QueueSize:    30,
			MaxSessions:  8,
			ResultBuffer: 64,
		},
		FPS: 30,
	}
}

// CameraDefaults returns a Camera with the optional fields set
func CameraDefaults() Camera {
	return Camera{
		ViewDirection: "x",
		Location:      []float64{0, 0, 1},
	}
}

// DT returns the world tracker time step
func (c Config) DT() float64 {
	return 1 / c.FPS
}
