package tilt

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// Bounds on the per-frame time step. Stalls (debugger, dropped frames)
// would otherwise launch the ball through walls, and absurdly small steps
// just burn cycles.
const (
	MinFrameDt = 1.0 / 500.0
	MaxFrameDt = 1.0 / 20.0
)

// FrameInput is one tick of upstream data: the raw detector pose (possibly
// invalid) and the elapsed wall time since the previous tick.
type FrameInput struct {
	Pose Pose
	Dt   float64
}

// FrameOutput is everything a renderer needs for one frame.
type FrameOutput struct {
	// PoseOK reports whether this frame had a valid detector pose. The
	// matrices below are only meaningful when it is true.
	PoseOK bool

	Projection mgl64.Mat4
	// Model places the marker board in camera space.
	Model mgl64.Mat4
	// MazeModel additionally applies the sheet placement, so maze-local
	// coordinates land on the physical sheet.
	MazeModel mgl64.Mat4

	// BallPosition is in maze-local coordinates, lifted by the ball radius
	// so the sphere rests on the sheet.
	BallPosition mgl64.Vec3
	BallVelocity mgl64.Vec2

	// Referenced reports whether the simulation has a flat reference yet.
	Referenced bool
}

// Engine ties the per-frame pipeline together: smooth the incoming pose,
// derive the render matrices, and advance the ball simulation.
type Engine struct {
	Smoother *PoseSmoother
	Maze     *Maze
	Ball     *Ball

	projection mgl64.Mat4
	placement  mgl64.Mat4
}

// NewEngine builds the full pipeline from configuration and a loaded
// camera calibration. The calibration is rescaled to the given viewport if
// it was recorded at a different resolution.
func NewEngine(cfg *Config, in Intrinsics, viewportW, viewportH int) (*Engine, error) {
	if viewportW <= 0 || viewportH <= 0 {
		return nil, fmt.Errorf("viewport must be positive, got %dx%d", viewportW, viewportH)
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	in = in.ScaleTo(viewportW, viewportH)

	sm := NewPoseSmoother(cfg.Smoothing.Alpha)
	m, err := NewMaze(cfg.Maze.Width, cfg.Maze.Height,
		cfg.Sheet.Width, cfg.Sheet.Height, cfg.Sheet.WallThickness)
	if err != nil {
		return nil, err
	}
	m.Generate(cfg.Maze.Seed)

	ball, err := NewBall(cfg.Ball.Radius, cfg.Physics)
	if err != nil {
		return nil, err
	}
	ball.Reset(m)

	return &Engine{
		Smoother:   sm,
		Maze:       m,
		Ball:       ball,
		projection: ProjectionFromIntrinsics(in, float64(viewportW), float64(viewportH), cfg.Camera.Near, cfg.Camera.Far),
		placement:  PlacementMatrix(cfg.Sheet, cfg.Placement),
	}, nil
}

// ClampDt limits a frame time step to the simulation's stable range.
func ClampDt(dt float64) float64 {
	if dt < MinFrameDt {
		return MinFrameDt
	}
	if dt > MaxFrameDt {
		return MaxFrameDt
	}
	return dt
}

// Projection returns the fixed camera projection matrix.
func (e *Engine) Projection() mgl64.Mat4 {
	return e.projection
}

// Placement returns the fixed sheet placement matrix.
func (e *Engine) Placement() mgl64.Mat4 {
	return e.placement
}

// ResetBall re-centers the ball in the start cell.
func (e *Engine) ResetBall() {
	e.Ball.Reset(e.Maze)
}

// Regenerate swaps in a freshly carved maze and re-centers the ball. The
// previous maze is left intact for readers still holding it; callers that
// share the Engine across goroutines must serialize Regenerate against
// reads of the Maze field.
func (e *Engine) Regenerate(seed int64) {
	e.Maze = e.Maze.Regenerated(seed)
	e.Ball.Reset(e.Maze)
}

// Step runs one frame: smooth the pose, advance the ball under the
// smoothed orientation, and produce render matrices. On an invalid pose
// the smoother history is preserved and the physics still ticks under the
// last known orientation, so a single dropped detection does not freeze
// the ball mid-flight.
func (e *Engine) Step(in FrameInput) FrameOutput {
	dt := ClampDt(in.Dt)

	smoothed := e.Smoother.Smooth(in.Pose)

	orientation, haveOrientation := e.Smoother.LastRotation()
	if haveOrientation {
		e.Ball.Update(dt, orientation, e.Maze)
	}

	out := FrameOutput{
		PoseOK:       smoothed.Valid,
		Projection:   e.projection,
		BallPosition: mgl64.Vec3{e.Ball.Pos.X(), e.Ball.Pos.Y(), e.Ball.Radius},
		BallVelocity: e.Ball.Vel,
		Referenced:   e.Ball.HasFlatReference(),
	}
	if smoothed.Valid {
		out.Model = ModelFromPose(smoothed)
		out.MazeModel = out.Model.Mul4(e.placement)
	} else {
		out.Model = mgl64.Ident4()
		out.MazeModel = mgl64.Ident4()
	}
	return out
}

// Flatten adopts the smoother's current orientation as the flat reference.
// It reports false when there is no usable orientation yet.
func (e *Engine) Flatten() bool {
	r, ok := e.Smoother.LastRotation()
	if !ok {
		return false
	}
	return e.Ball.SetFlatReference(r)
}
