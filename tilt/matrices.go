package tilt

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ProjectionFromIntrinsics builds a rasterizer projection matrix directly
// from calibrated pixel-space intrinsics instead of a symmetric field of
// view, so the calibrated optical center survives into the overlay:
//
//	scale terms:  2*fx/w, 2*fy/h
//	offset terms: 1 - 2*cx/w, 2*cy/h - 1
//
// near/far fill the standard perspective depth terms.
func ProjectionFromIntrinsics(in Intrinsics, width, height, near, far float64) mgl64.Mat4 {
	var p mgl64.Mat4
	p.Set(0, 0, 2*in.Fx/width)
	p.Set(1, 1, 2*in.Fy/height)
	p.Set(0, 2, 1-2*in.Cx/width)
	p.Set(1, 2, 2*in.Cy/height-1)
	p.Set(2, 2, -(far+near)/(far-near))
	p.Set(3, 2, -1)
	p.Set(2, 3, -2*far*near/(far-near))
	return p
}

// visionToRaster flips the Y and Z axes, mapping the vision-camera
// convention (x right, y down, z forward) into the rasterizer convention
// (x right, y up, z backward). X is unchanged.
var visionToRaster = mgl64.Diag4(mgl64.Vec4{1, -1, -1, 1})

// ModelFromPose composes the board-to-camera rigid transform [R|t] and
// converts it into the rasterizer convention. An invalid pose yields the
// identity so the caller can keep submitting a stable matrix while the
// overlay is hidden.
func ModelFromPose(pose Pose) mgl64.Mat4 {
	if !pose.Valid {
		return mgl64.Ident4()
	}

	rt := pose.Rotation.Mat4()
	rt.SetCol(3, mgl64.Vec4{pose.Translation.X(), pose.Translation.Y(), pose.Translation.Z(), 1})

	return visionToRaster.Mul4(rt)
}

// PlacementMatrix builds the fixed maze-local placement transform: lift the
// sheet off the board plane, then rotate it about its own center, then
// shift it by the printed margins. Applied as model * placement.
func PlacementMatrix(sheet SheetConfig, pl PlacementConfig) mgl64.Mat4 {
	rot := mgl64.HomogRotate3DZ(pl.RotateDeg * math.Pi / 180.0)

	return mgl64.Translate3D(-pl.MarginLeft, -pl.MarginBottom, -pl.ZLift).
		Mul4(mgl64.Translate3D(sheet.Width*0.5, sheet.Height*0.5, 0)).
		Mul4(rot).
		Mul4(mgl64.Translate3D(-sheet.Width*0.5, -sheet.Height*0.5, 0))
}
