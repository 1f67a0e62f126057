package tilt

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// rotationEpsilon is the threshold below which a rotation angle or
// quaternion norm is treated as degenerate.
const rotationEpsilon = 1e-12

// Rotation is a 3D orientation backed by a unit quaternion. The pose
// estimator hands us compact axis-angle vectors and the matrix code wants
// 3x3/4x4 matrices, so all conversions live here; call sites never touch
// raw rotation matrices.
type Rotation struct {
	q mgl64.Quat
}

// IdentityRotation returns the no-rotation orientation.
func IdentityRotation() Rotation {
	return Rotation{q: mgl64.QuatIdent()}
}

// RotationFromVector builds a Rotation from a compact axis-angle vector
// (Rodrigues form): the direction is the rotation axis, the magnitude the
// angle in radians. A near-zero vector yields the identity.
func RotationFromVector(v mgl64.Vec3) Rotation {
	angle := v.Len()
	if angle < rotationEpsilon {
		return IdentityRotation()
	}
	return Rotation{q: mgl64.QuatRotate(angle, v.Mul(1.0/angle))}
}

// RotationFromQuat builds a Rotation from a quaternion, normalizing it.
// A zero quaternion yields a degenerate Rotation (see IsDegenerate).
func RotationFromQuat(q mgl64.Quat) Rotation {
	if quatNorm(q) < rotationEpsilon {
		return Rotation{q: mgl64.Quat{}}
	}
	return Rotation{q: q.Normalize()}
}

// RotationAboutAxis builds a Rotation of angle radians about the given axis.
func RotationAboutAxis(angle float64, axis mgl64.Vec3) Rotation {
	if axis.Len() < rotationEpsilon {
		return IdentityRotation()
	}
	return Rotation{q: mgl64.QuatRotate(angle, axis.Normalize())}
}

// IsDegenerate reports whether the rotation carries no usable orientation
// (zero quaternion). Degenerate rotations must not be adopted as a flat
// reference.
func (r Rotation) IsDegenerate() bool {
	return quatNorm(r.q) < rotationEpsilon
}

// Vector returns the compact axis-angle form of the rotation.
func (r Rotation) Vector() mgl64.Vec3 {
	w := r.q.W
	if w > 1 {
		w = 1
	} else if w < -1 {
		w = -1
	}
	angle := 2 * math.Acos(w)
	s := math.Sqrt(1 - w*w)
	if s < rotationEpsilon {
		return mgl64.Vec3{}
	}
	return r.q.V.Mul(angle / s)
}

// Quat returns the backing quaternion.
func (r Rotation) Quat() mgl64.Quat {
	return r.q
}

// Mat3 returns the rotation as a 3x3 matrix.
func (r Rotation) Mat3() mgl64.Mat3 {
	return r.q.Mat4().Mat3()
}

// Mat4 returns the rotation as a homogeneous 4x4 matrix.
func (r Rotation) Mat4() mgl64.Mat4 {
	return r.q.Mat4()
}

// Inverse returns the opposite rotation. For a unit quaternion this is the
// conjugate, matching the transpose of the orthonormal matrix form.
func (r Rotation) Inverse() Rotation {
	return Rotation{q: r.q.Conjugate()}
}

// Mul composes rotations: the result applies o first, then r.
func (r Rotation) Mul(o Rotation) Rotation {
	return Rotation{q: r.q.Mul(o.q).Normalize()}
}

// Rotate applies the rotation to a vector.
func (r Rotation) Rotate(v mgl64.Vec3) mgl64.Vec3 {
	return r.q.Rotate(v)
}

// Slerp spherically interpolates from r toward to by amount in [0,1].
// When the quaternion dot product is negative, to is negated first: q and
// -q encode the same orientation, and without the flip the interpolation
// takes the long way around. amount=1 returns to exactly.
func (r Rotation) Slerp(to Rotation, amount float64) Rotation {
	q1 := r.q.Normalize()
	q2 := to.q.Normalize()
	if q1.Dot(q2) < 0 {
		q2 = scaleQuat(q2, -1)
	}
	return Rotation{q: mgl64.QuatSlerp(q1, q2, amount).Normalize()}
}

// AngleTo returns the angular distance in radians between two orientations.
func (r Rotation) AngleTo(o Rotation) float64 {
	d := math.Abs(r.q.Normalize().Dot(o.q.Normalize()))
	if d > 1 {
		d = 1
	}
	return 2 * math.Acos(d)
}

func quatNorm(q mgl64.Quat) float64 {
	return math.Sqrt(q.W*q.W + q.V.Dot(q.V))
}

func scaleQuat(q mgl64.Quat, s float64) mgl64.Quat {
	return mgl64.Quat{W: q.W * s, V: q.V.Mul(s)}
}
