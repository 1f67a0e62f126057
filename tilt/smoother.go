package tilt

// PoseSmoother suppresses per-frame jitter in the incoming pose estimate
// with an exponential moving average: translation is blended component-wise,
// rotation is SLERPed along the shortest quaternion path so consecutive
// frames never snap through the long way around.
//
// Alpha is the weight of the current sample in (0,1]: 1 passes samples
// through unchanged, smaller values lean harder on history. History is
// written on every valid sample and never reset for the life of the session.
type PoseSmoother struct {
	Alpha float64

	hasPose   bool
	prevRot   Rotation
	prevTrans [3]float64
}

// NewPoseSmoother creates a smoother with the given EMA weight.
func NewPoseSmoother(alpha float64) *PoseSmoother {
	return &PoseSmoother{Alpha: alpha}
}

// HasPose reports whether a previous pose has been recorded.
func (s *PoseSmoother) HasPose() bool {
	return s.hasPose
}

// LastRotation returns the most recent smoothed rotation, if any.
func (s *PoseSmoother) LastRotation() (Rotation, bool) {
	return s.prevRot, s.hasPose
}

// Smooth filters a pose against the stored history and updates the history
// with the smoothed result.
//
// An invalid pose is returned unchanged and leaves the history untouched.
// The very first valid pose is stored verbatim and returned unsmoothed.
func (s *PoseSmoother) Smooth(pose Pose) Pose {
	if !pose.Valid {
		return pose
	}

	if !s.hasPose {
		s.prevRot = pose.Rotation
		s.storeTranslation(pose)
		s.hasPose = true
		return pose
	}

	a := s.Alpha

	// Translation: EMA.
	out := pose
	out.Translation[0] = (1-a)*s.prevTrans[0] + a*pose.Translation[0]
	out.Translation[1] = (1-a)*s.prevTrans[1] + a*pose.Translation[1]
	out.Translation[2] = (1-a)*s.prevTrans[2] + a*pose.Translation[2]

	// Rotation: shortest-path SLERP from history toward the sample.
	out.Rotation = s.prevRot.Slerp(pose.Rotation, a)

	s.prevRot = out.Rotation
	s.storeTranslation(out)
	return out
}

func (s *PoseSmoother) storeTranslation(pose Pose) {
	s.prevTrans[0] = pose.Translation[0]
	s.prevTrans[1] = pose.Translation[1]
	s.prevTrans[2] = pose.Translation[2]
}

// CornerSmoother applies the same EMA to an ordered quadrilateral of image
// points (TL, TR, BR, BL), used by callers that overlay the detected sheet
// outline. First call stores the points verbatim.
type CornerSmoother struct {
	Alpha float64

	has  bool
	prev [4][2]float64
}

// NewCornerSmoother creates a corner smoother with the given EMA weight.
func NewCornerSmoother(alpha float64) *CornerSmoother {
	return &CornerSmoother{Alpha: alpha}
}

// Apply smooths pts in place. Slices that do not hold exactly 4 points are
// left untouched.
func (s *CornerSmoother) Apply(pts [][2]float64) {
	if len(pts) != 4 {
		return
	}

	if !s.has {
		for i := range pts {
			s.prev[i] = pts[i]
		}
		s.has = true
		return
	}

	a := s.Alpha
	for i := range pts {
		s.prev[i][0] = (1-a)*s.prev[i][0] + a*pts[i][0]
		s.prev[i][1] = (1-a)*s.prev[i][1] + a*pts[i][1]
		pts[i] = s.prev[i]
	}
}
