package tilt

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Pose is a board-to-camera rigid transform estimated by the external
// marker detector. Valid is false on frames where no estimate is available.
type Pose struct {
	Valid       bool
	Rotation    Rotation
	Translation mgl64.Vec3
}

// PoseFromVectors builds a valid Pose from a compact axis-angle rotation
// vector and a translation vector, both in camera space.
func PoseFromVectors(rvec, tvec mgl64.Vec3) Pose {
	return Pose{
		Valid:       true,
		Rotation:    RotationFromVector(rvec),
		Translation: tvec,
	}
}

// MazeConfig defines the maze grid.
type MazeConfig struct {
	Width  int   `yaml:"width" json:"width"`
	Height int   `yaml:"height" json:"height"`
	Seed   int64 `yaml:"seed,omitempty" json:"seed,omitempty"` // 0 = seed from wall clock
}

// SheetConfig is the physical sheet the maze is printed on, in meters.
type SheetConfig struct {
	Width         float64 `yaml:"width" json:"width"`
	Height        float64 `yaml:"height" json:"height"`
	WallThickness float64 `yaml:"wallThickness" json:"wallThickness"`
	WallHeight    float64 `yaml:"wallHeight" json:"wallHeight"`
}

// PhysicsConfig tunes the tilt-driven ball dynamics.
type PhysicsConfig struct {
	Gravity  float64 `yaml:"gravity" json:"gravity"`   // m/s^2
	Gain     float64 `yaml:"gain" json:"gain"`         // global multiplier
	Deadzone float64 `yaml:"deadzone" json:"deadzone"` // fraction in [0,1)
	Bounce   float64 `yaml:"bounce" json:"bounce"`     // restitution in [0,1]
	Damping  float64 `yaml:"damping" json:"damping"`   // per-step velocity multiplier in (0,1]
}

// BallConfig defines the ball geometry.
type BallConfig struct {
	Radius float64 `yaml:"radius" json:"radius"` // meters
}

// SmoothingConfig tunes the pose smoother.
type SmoothingConfig struct {
	Alpha float64 `yaml:"alpha" json:"alpha"` // EMA weight in (0,1]; 1 = no smoothing
}

// CameraConfig points at the intrinsic calibration file and sets the clip
// planes for the projection matrix.
type CameraConfig struct {
	CalibrationFile string  `yaml:"calibrationFile" json:"calibrationFile"`
	Near            float64 `yaml:"near" json:"near"`
	Far             float64 `yaml:"far" json:"far"`
}

// PlacementConfig positions the maze sheet relative to the marker board
// origin: a margin translation, a quarter-turn about the sheet center, and
// a small lift off the board plane.
type PlacementConfig struct {
	MarginLeft   float64 `yaml:"marginLeft" json:"marginLeft"`
	MarginBottom float64 `yaml:"marginBottom" json:"marginBottom"`
	ZLift        float64 `yaml:"zLift" json:"zLift"`
	RotateDeg    float64 `yaml:"rotateDeg" json:"rotateDeg"`
}

// MQTTConfig holds MQTT connection settings for state telemetry.
type MQTTConfig struct {
	Broker        string `yaml:"broker,omitempty" json:"broker,omitempty"`
	PublishPrefix string `yaml:"publishPrefix,omitempty" json:"publishPrefix,omitempty"`
	ClientID      string `yaml:"clientId,omitempty" json:"clientId,omitempty"`
	Username      string `yaml:"username,omitempty" json:"username,omitempty"`
	Password      string `yaml:"password,omitempty" json:"password,omitempty"`
}

// Config represents the full configuration file.
type Config struct {
	Maze      MazeConfig      `yaml:"maze" json:"maze"`
	Sheet     SheetConfig     `yaml:"sheet" json:"sheet"`
	Ball      BallConfig      `yaml:"ball" json:"ball"`
	Physics   PhysicsConfig   `yaml:"physics" json:"physics"`
	Smoothing SmoothingConfig `yaml:"smoothing" json:"smoothing"`
	Camera    CameraConfig    `yaml:"camera" json:"camera"`
	Placement PlacementConfig `yaml:"placement" json:"placement"`
	MQTT      MQTTConfig      `yaml:"mqtt,omitempty" json:"mqtt,omitempty"`
}

// DefaultConfig returns the configuration for an A4 sheet with an 8x6 maze,
// matching the printed board this was tuned against.
func DefaultConfig() *Config {
	return &Config{
		Maze: MazeConfig{Width: 8, Height: 6},
		Sheet: SheetConfig{
			Width:         0.297,
			Height:        0.210,
			WallThickness: 0.0035,
			WallHeight:    0.040,
		},
		Ball: BallConfig{Radius: 0.010},
		Physics: PhysicsConfig{
			Gravity:  9.81,
			Gain:     1.0,
			Deadzone: 0.03,
			Bounce:   0.4,
			Damping:  0.85,
		},
		Smoothing: SmoothingConfig{Alpha: 0.25},
		Camera: CameraConfig{
			CalibrationFile: "camera.yaml",
			Near:            0.01,
			Far:             2000.0,
		},
		Placement: PlacementConfig{
			MarginLeft:   0.080,
			MarginBottom: 0.010,
			ZLift:        0.005,
			RotateDeg:    90.0,
		},
	}
}
