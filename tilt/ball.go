package tilt

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Ball simulates a ball rolling under tilt-derived gravity through the
// maze. Tilt is measured against a flat reference orientation: until one is
// established the ball does not accelerate. The reference is adopted
// automatically from the first valid rotation, or set explicitly via
// SetFlatReference (the user's "re-level" command).
type Ball struct {
	Pos    mgl64.Vec2
	Vel    mgl64.Vec2
	Radius float64

	Physics PhysicsConfig

	flatRef    Rotation
	hasFlatRef bool
}

// NewBall creates a ball with the given radius and physics tuning.
func NewBall(radius float64, physics PhysicsConfig) (*Ball, error) {
	if radius <= 0 {
		return nil, fmt.Errorf("ball radius must be positive, got %g", radius)
	}
	return &Ball{Radius: radius, Physics: physics}, nil
}

// Reset re-centers the ball in the starting cell and zeroes its velocity.
// The flat reference is untouched.
func (b *Ball) Reset(m *Maze) {
	b.Pos = mgl64.Vec2{m.CellWidth * 0.5, m.CellHeight * 0.5}
	b.Vel = mgl64.Vec2{}
}

// HasFlatReference reports whether a flat reference has been established.
func (b *Ball) HasFlatReference() bool {
	return b.hasFlatRef
}

// FlatReference returns the current flat reference orientation.
func (b *Ball) FlatReference() Rotation {
	return b.flatRef
}

// SetFlatReference adopts r as the "board is level" orientation and zeroes
// the velocity. A degenerate rotation is rejected and the previous
// reference (or unreferenced state) is kept, so the caller simply retries
// on the next frame.
func (b *Ball) SetFlatReference(r Rotation) bool {
	if r.IsDegenerate() {
		return false
	}
	b.flatRef = r
	b.hasFlatRef = true
	b.Vel = mgl64.Vec2{}
	return true
}

// applyDeadzone forces small inputs to exactly zero and rescales the rest
// so the response stays continuous at the deadzone boundary.
func applyDeadzone(v, dz float64) float64 {
	if math.Abs(v) < dz {
		return 0
	}
	s := 1.0
	if v < 0 {
		s = -1.0
	}
	return s * (math.Abs(v) - dz) / (1.0 - dz)
}

// TiltAcceleration derives the 2D sheet-plane acceleration from a board
// rotation. The flat-frame "down" direction (0,0,-1) is mapped into the
// current board frame through the relative rotation Rrel = ref^-1 * cur;
// the X,Y components of the result are the raw tilt signal, run through the
// deadzone and scaled by gravity and gain. The sign makes the ball roll
// downhill.
func (b *Ball) TiltAcceleration(current Rotation) mgl64.Vec2 {
	rel := b.flatRef.Inverse().Mul(current)

	// rel maps flat to current, so carrying a flat-frame vector into the
	// current frame takes the inverse.
	gCur := rel.Inverse().Rotate(mgl64.Vec3{0, 0, -1})

	p := b.Physics
	ax := applyDeadzone(gCur.X(), p.Deadzone)
	ay := applyDeadzone(gCur.Y(), p.Deadzone)

	return mgl64.Vec2{-ax * p.Gravity * p.Gain, -ay * p.Gravity * p.Gain}
}

// Update advances the simulation by dt seconds under the given board
// rotation, resolving collisions against the walls of the cell containing
// the current position, then clamping to the maze's outer bounds.
//
// Collision checks only the current cell, so a large enough velocity*dt
// could tunnel through a thin wall in one tick; the outer clamp is the
// final safety net.
func (b *Ball) Update(dt float64, current Rotation, m *Maze) {
	if !b.hasFlatRef {
		// Adopt the first usable rotation as the baseline; no acceleration
		// this tick.
		if !current.IsDegenerate() {
			b.flatRef = current
			b.hasFlatRef = true
		}
		return
	}

	acc := b.TiltAcceleration(current)

	b.Vel = b.Vel.Add(acc.Mul(dt))
	// Per-step damping, deliberately not scaled by dt: behavior is tied to
	// the tick rate. See the frame pipeline's dt clamp.
	b.Vel = b.Vel.Mul(b.Physics.Damping)

	next := b.Pos.Add(b.Vel.Mul(dt))

	gx, gy := m.CellIndexAt(b.Pos.X(), b.Pos.Y())
	cell := m.At(gx, gy)

	cellLeft := float64(gx) * m.CellWidth
	cellRight := float64(gx+1) * m.CellWidth
	cellTop := float64(gy) * m.CellHeight
	cellBottom := float64(gy+1) * m.CellHeight

	r := b.Radius
	bounce := b.Physics.Bounce

	if cell.West && next.X()-r < cellLeft {
		next[0] = cellLeft + r
		b.Vel[0] = -b.Vel[0] * bounce
	} else if cell.East && next.X()+r > cellRight {
		next[0] = cellRight - r
		b.Vel[0] = -b.Vel[0] * bounce
	}

	if cell.North && next.Y()-r < cellTop {
		next[1] = cellTop + r
		b.Vel[1] = -b.Vel[1] * bounce
	} else if cell.South && next.Y()+r > cellBottom {
		next[1] = cellBottom - r
		b.Vel[1] = -b.Vel[1] * bounce
	}

	maxX := m.SheetWidth() - r
	maxY := m.SheetHeight() - r
	if next[0] < r {
		next[0] = r
	}
	if next[1] < r {
		next[1] = r
	}
	if next[0] > maxX {
		next[0] = maxX
	}
	if next[1] > maxY {
		next[1] = maxY
	}

	b.Pos = next
}
