package tilt

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Intrinsics holds the calibrated pinhole parameters of the camera, in
// pixels, together with the image size they were calibrated at.
type Intrinsics struct {
	Fx, Fy float64
	Cx, Cy float64
	Width  int
	Height int
}

// calibrationFile mirrors the on-disk calibration layout: the 3x3 camera
// matrix and distortion coefficients stored row-major, plus the calibrated
// image size.
type calibrationFile struct {
	CameraMatrix struct {
		Rows int       `yaml:"rows"`
		Cols int       `yaml:"cols"`
		Data []float64 `yaml:"data"`
	} `yaml:"camera_matrix"`
	DistortionCoefficients struct {
		Data []float64 `yaml:"data"`
	} `yaml:"distortion_coefficients"`
	ImageWidth  int `yaml:"image_width,omitempty"`
	ImageHeight int `yaml:"image_height,omitempty"`
}

// LoadCameraCalibration reads camera intrinsics from a YAML calibration
// file. When the calibrated image size is missing it is recovered from the
// principal point, assuming it sits near the image center.
func LoadCameraCalibration(path string) (Intrinsics, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Intrinsics{}, fmt.Errorf("calibration file not found: %s", path)
		}
		return Intrinsics{}, fmt.Errorf("reading calibration file: %w", err)
	}

	var cf calibrationFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return Intrinsics{}, fmt.Errorf("parsing calibration YAML: %w", err)
	}

	m := cf.CameraMatrix
	if len(m.Data) != 9 {
		return Intrinsics{}, fmt.Errorf("camera_matrix.data must hold 9 values, got %d", len(m.Data))
	}
	if m.Rows != 0 && m.Rows != 3 || m.Cols != 0 && m.Cols != 3 {
		return Intrinsics{}, fmt.Errorf("camera_matrix must be 3x3, got %dx%d", m.Rows, m.Cols)
	}

	in := Intrinsics{
		Fx:     m.Data[0],
		Cx:     m.Data[2],
		Fy:     m.Data[4],
		Cy:     m.Data[5],
		Width:  cf.ImageWidth,
		Height: cf.ImageHeight,
	}

	if in.Fx <= 0 || in.Fy <= 0 {
		return Intrinsics{}, fmt.Errorf("invalid focal lengths fx=%g fy=%g", in.Fx, in.Fy)
	}

	if in.Width == 0 || in.Height == 0 {
		in.Width = int(in.Cx*2 + 0.5)
		in.Height = int(in.Cy*2 + 0.5)
	}

	return in, nil
}

// SaveCameraCalibration writes intrinsics back in the same YAML layout.
func SaveCameraCalibration(path string, in Intrinsics) error {
	var cf calibrationFile
	cf.CameraMatrix.Rows = 3
	cf.CameraMatrix.Cols = 3
	cf.CameraMatrix.Data = []float64{in.Fx, 0, in.Cx, 0, in.Fy, in.Cy, 0, 0, 1}
	cf.DistortionCoefficients.Data = []float64{0, 0, 0, 0, 0}
	cf.ImageWidth = in.Width
	cf.ImageHeight = in.Height

	data, err := yaml.Marshal(&cf)
	if err != nil {
		return fmt.Errorf("marshaling calibration YAML: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing calibration file: %w", err)
	}
	return nil
}

// NominalIntrinsics returns a plausible pinhole model for a viewport when
// no real calibration is available: principal point at the center, focal
// length equal to the width (roughly a 53 degree horizontal FOV).
func NominalIntrinsics(width, height int) Intrinsics {
	return Intrinsics{
		Fx:     float64(width),
		Fy:     float64(width),
		Cx:     float64(width) / 2,
		Cy:     float64(height) / 2,
		Width:  width,
		Height: height,
	}
}

// ScaleTo rescales the intrinsics to a different capture resolution. The
// live stream often runs at a different size than the calibration, and
// focal lengths and the principal point scale linearly with it.
func (in Intrinsics) ScaleTo(width, height int) Intrinsics {
	if in.Width == 0 || in.Height == 0 || (width == in.Width && height == in.Height) {
		return in
	}
	sx := float64(width) / float64(in.Width)
	sy := float64(height) / float64(in.Height)
	return Intrinsics{
		Fx:     in.Fx * sx,
		Fy:     in.Fy * sy,
		Cx:     in.Cx * sx,
		Cy:     in.Cy * sy,
		Width:  width,
		Height: height,
	}
}
