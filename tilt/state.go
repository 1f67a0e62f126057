package tilt

import (
	"sync"
	"time"
)

// BallState is a snapshot of the ball published to telemetry and served
// over HTTP. Position is in maze-local meters.
type BallState struct {
	X          float64   `json:"x"`
	Y          float64   `json:"y"`
	VX         float64   `json:"vx"`
	VY         float64   `json:"vy"`
	CellX      int       `json:"cellX"`
	CellY      int       `json:"cellY"`
	Referenced bool      `json:"referenced"`
	Timestamp  time.Time `json:"timestamp"`
}

// StateTracker keeps the latest frame result for HTTP endpoints and
// telemetry. Writers are the frame loop; readers are HTTP handlers on
// their own goroutines.
type StateTracker struct {
	mu       sync.RWMutex
	frame    FrameOutput
	ball     BallState
	frames   uint64
	detected uint64
}

// NewStateTracker creates an empty state tracker.
func NewStateTracker() *StateTracker {
	return &StateTracker{}
}

// Update records the result of one frame.
func (st *StateTracker) Update(out FrameOutput, m *Maze) {
	cx, cy := m.CellIndexAt(out.BallPosition.X(), out.BallPosition.Y())

	st.mu.Lock()
	defer st.mu.Unlock()

	st.frame = out
	st.ball = BallState{
		X:          out.BallPosition.X(),
		Y:          out.BallPosition.Y(),
		VX:         out.BallVelocity.X(),
		VY:         out.BallVelocity.Y(),
		CellX:      cx,
		CellY:      cy,
		Referenced: out.Referenced,
		Timestamp:  time.Now(),
	}
	st.frames++
	if out.PoseOK {
		st.detected++
	}
}

// Frame returns the latest frame output.
func (st *StateTracker) Frame() FrameOutput {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.frame
}

// Ball returns the latest ball snapshot.
func (st *StateTracker) Ball() BallState {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.ball
}

// Counts returns the number of frames processed and the number that
// carried a valid pose.
func (st *StateTracker) Counts() (frames, detected uint64) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.frames, st.detected
}
