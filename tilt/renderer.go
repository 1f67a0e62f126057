package tilt

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// LiveRenderer rasterizes a top-down debug view of the running game:
// maze walls, ball, and a small HUD with tracking status. It is the
// diagnostic counterpart of the vector plan renderer.
type LiveRenderer struct {
	Maze       *Maze
	BallRadius float64 // meters

	Scale   float64 // pixels per meter
	Padding int     // pixels around the sheet

	WallColor  color.NRGBA
	FloorColor color.NRGBA
	BallColor  color.NRGBA
	StartColor color.NRGBA
	HUDColor   color.NRGBA
}

// NewLiveRenderer creates a renderer with default settings. At the default
// scale an A4 sheet comes out around 900px wide.
func NewLiveRenderer(m *Maze, ballRadius float64) *LiveRenderer {
	return &LiveRenderer{
		Maze:       m,
		BallRadius: ballRadius,
		Scale:      3000.0,
		Padding:    30,
		WallColor:  color.NRGBA{40, 40, 40, 255},
		FloorColor: color.NRGBA{245, 245, 245, 255},
		BallColor:  color.NRGBA{200, 30, 30, 255},
		StartColor: color.NRGBA{144, 238, 144, 255},
		HUDColor:   color.NRGBA{0, 0, 139, 255},
	}
}

// Render draws the current frame into a new image.
func (r *LiveRenderer) Render(state BallState) *image.NRGBA {
	w := int(r.Maze.SheetWidth()*r.Scale) + 2*r.Padding
	h := int(r.Maze.SheetHeight()*r.Scale) + 2*r.Padding

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	fill(img, img.Bounds(), color.NRGBA{255, 255, 255, 255})

	// Sheet floor.
	fill(img, r.rect(0, 0, r.Maze.SheetWidth(), r.Maze.SheetHeight()), r.FloorColor)

	// Start cell.
	fill(img, r.rect(0, 0, r.Maze.CellWidth, r.Maze.CellHeight), r.StartColor)

	// Walls.
	for _, box := range r.Maze.WallBoxes(0) {
		b := box.Bound
		fill(img, r.rect(b.Min.X(), b.Min.Y(), b.Max.X(), b.Max.Y()), r.WallColor)
	}

	// Ball.
	r.drawBall(img, state.X, state.Y)

	// HUD.
	status := "tracking"
	if !state.Referenced {
		status = "leveling"
	}
	r.drawText(img, 5, 12, fmt.Sprintf("ball (%.3f, %.3f) m  vel (%.3f, %.3f) m/s  cell (%d,%d)  %s",
		state.X, state.Y, state.VX, state.VY, state.CellX, state.CellY, status))

	return img
}

// RenderToFile writes the current frame to a PNG file.
func (r *LiveRenderer) RenderToFile(path string, state BallState) error {
	img := r.Render(state)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encoding PNG: %w", err)
	}
	return nil
}

// rect converts a maze-local box in meters to pixel coordinates.
func (r *LiveRenderer) rect(x0, y0, x1, y1 float64) image.Rectangle {
	return image.Rect(
		r.Padding+int(x0*r.Scale),
		r.Padding+int(y0*r.Scale),
		r.Padding+int(math.Ceil(x1*r.Scale)),
		r.Padding+int(math.Ceil(y1*r.Scale)),
	)
}

func (r *LiveRenderer) drawBall(img *image.NRGBA, x, y float64) {
	cx := float64(r.Padding) + x*r.Scale
	cy := float64(r.Padding) + y*r.Scale
	radius := r.BallRadius * r.Scale

	x0 := int(cx - radius)
	x1 := int(cx + radius)
	y0 := int(cy - radius)
	y1 := int(cy + radius)

	for py := y0; py <= y1; py++ {
		for px := x0; px <= x1; px++ {
			dx := float64(px) + 0.5 - cx
			dy := float64(py) + 0.5 - cy
			if dx*dx+dy*dy <= radius*radius {
				img.SetNRGBA(px, py, r.BallColor)
			}
		}
	}
}

// drawText renders a single line with the built-in 7x13 bitmap face.
func (r *LiveRenderer) drawText(img *image.NRGBA, x, y int, text string) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(r.HUDColor),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

// fill paints a rectangle, clipped to the image bounds.
func fill(img *image.NRGBA, rect image.Rectangle, c color.NRGBA) {
	rect = rect.Intersect(img.Bounds())
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
}
