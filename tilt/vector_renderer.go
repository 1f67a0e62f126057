package tilt

import (
	"image/color"
	"image/png"
	"io"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"github.com/tdewolff/canvas/renderers/svg"
)

// metersToMM converts maze-local meters to canvas millimeters.
const metersToMM = 1000.0

// VectorRenderer draws a top-down plan of the maze as vector graphics,
// suitable both for on-screen overlays and for printing the physical
// sheet. Canvas units are millimeters.
type VectorRenderer struct {
	Maze *Maze

	WallHeight float64 // meters; only used to pick the wall box slab
	BallRadius float64 // meters; 0 hides the ball

	Padding    float64 // mm around the sheet
	Resolution canvas.Resolution

	WallColor  color.RGBA
	FloorColor color.RGBA
	BallColor  color.RGBA
	StartColor color.RGBA
}

// NewVectorRenderer creates a renderer with default colors.
func NewVectorRenderer(m *Maze, wallHeight, ballRadius float64) *VectorRenderer {
	return &VectorRenderer{
		Maze:       m,
		WallHeight: wallHeight,
		BallRadius: ballRadius,
		Padding:    10.0,
		Resolution: canvas.DPI(300),
		WallColor:  color.RGBA{40, 40, 40, 255},
		FloorColor: color.RGBA{255, 255, 255, 255},
		BallColor:  color.RGBA{200, 30, 30, 255},
		StartColor: color.RGBA{144, 238, 144, 255},
	}
}

// canvasRenderer is the subset shared by the svg and rasterizer backends.
type canvasRenderer interface {
	RenderPath(path *canvas.Path, style canvas.Style, m canvas.Matrix)
}

// RenderToSVG writes the maze plan as an SVG to the provided writer.
// ballPos is in maze-local meters; pass a negative X to omit the ball.
func (r *VectorRenderer) RenderToSVG(w io.Writer, ballX, ballY float64) error {
	width := r.Maze.SheetWidth()*metersToMM + 2*r.Padding
	height := r.Maze.SheetHeight()*metersToMM + 2*r.Padding

	svgRenderer := svg.New(w, width, height, nil)
	r.renderToCanvas(svgRenderer, width, height, ballX, ballY)
	return svgRenderer.Close()
}

// RenderToPNG rasterizes the maze plan and writes a PNG to the provided writer.
func (r *VectorRenderer) RenderToPNG(w io.Writer, ballX, ballY float64) error {
	width := r.Maze.SheetWidth()*metersToMM + 2*r.Padding
	height := r.Maze.SheetHeight()*metersToMM + 2*r.Padding

	rast := rasterizer.New(width, height, r.Resolution, canvas.DefaultColorSpace)
	r.renderToCanvas(rast, width, height, ballX, ballY)
	return png.Encode(w, rast)
}

// renderToCanvas draws the plan (shared logic for SVG and PNG).
//
// Canvas Y grows upward while maze Y grows toward the "south" row, so all
// maze coordinates are flipped vertically.
func (r *VectorRenderer) renderToCanvas(renderer canvasRenderer, width, height, ballX, ballY float64) {
	bgStyle := canvas.DefaultStyle
	bgStyle.Fill = canvas.Paint{Color: canvas.White}
	renderer.RenderPath(canvas.Rectangle(width, height), bgStyle, canvas.Identity)

	toCanvas := func(x, y float64) (float64, float64) {
		cx := x*metersToMM + r.Padding
		cy := height - (y*metersToMM + r.Padding)
		return cx, cy
	}

	// Floor.
	floorStyle := canvas.DefaultStyle
	floorStyle.Fill = canvas.Paint{Color: r.FloorColor}
	fx, fy := toCanvas(0, r.Maze.SheetHeight())
	renderer.RenderPath(
		canvas.Rectangle(r.Maze.SheetWidth()*metersToMM, r.Maze.SheetHeight()*metersToMM).
			Translate(fx, fy),
		floorStyle, canvas.Identity)

	// Start cell marker.
	startStyle := canvas.DefaultStyle
	startStyle.Fill = canvas.Paint{Color: r.StartColor}
	sx, sy := toCanvas(0, r.Maze.CellHeight)
	renderer.RenderPath(
		canvas.Rectangle(r.Maze.CellWidth*metersToMM, r.Maze.CellHeight*metersToMM).
			Translate(sx, sy),
		startStyle, canvas.Identity)

	// Walls, from the same boxes the 3D view extrudes.
	wallStyle := canvas.DefaultStyle
	wallStyle.Fill = canvas.Paint{Color: r.WallColor}
	for _, box := range r.Maze.WallBoxes(r.WallHeight) {
		b := box.Bound
		wx, wy := toCanvas(b.Min.X(), b.Max.Y())
		w := (b.Max.X() - b.Min.X()) * metersToMM
		h := (b.Max.Y() - b.Min.Y()) * metersToMM
		renderer.RenderPath(canvas.Rectangle(w, h).Translate(wx, wy), wallStyle, canvas.Identity)
	}

	// Ball.
	if r.BallRadius > 0 && ballX >= 0 && ballY >= 0 {
		ballStyle := canvas.DefaultStyle
		ballStyle.Fill = canvas.Paint{Color: r.BallColor}
		bx, by := toCanvas(ballX, ballY)
		renderer.RenderPath(canvas.Circle(r.BallRadius*metersToMM).Translate(bx, by),
			ballStyle, canvas.Identity)
	}
}
