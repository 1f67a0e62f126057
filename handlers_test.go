package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/kwv/tiltmaze/tilt"
)

type fakeControl struct {
	maze        *tilt.Maze
	resets      int
	flattens    int
	flattenOK   bool
	regenerates []int64
}

func (f *fakeControl) ResetBall()            { f.resets++ }
func (f *fakeControl) Flatten() bool         { f.flattens++; return f.flattenOK }
func (f *fakeControl) Regenerate(seed int64) { f.regenerates = append(f.regenerates, seed) }
func (f *fakeControl) Maze() *tilt.Maze      { return f.maze }

func newTestServer(t *testing.T) (http.Handler, *tilt.StateTracker, *tilt.Engine, *fakeControl) {
	t.Helper()
	cfg := tilt.DefaultConfig()
	cfg.Maze.Seed = 42
	engine, err := tilt.NewEngine(cfg, tilt.NominalIntrinsics(1280, 720), 1280, 720)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	st := tilt.NewStateTracker()
	control := &fakeControl{maze: engine.Maze, flattenOK: true}
	return newHTTPServer(st, control, cfg), st, engine, control
}

func TestHealthEndpoint(t *testing.T) {
	handler, st, engine, _ := newTestServer(t)

	st.Update(tilt.FrameOutput{PoseOK: true}, engine.Maze)
	st.Update(tilt.FrameOutput{}, engine.Maze)

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Status   string `json:"status"`
		Frames   uint64 `json:"frames"`
		Detected uint64 `json:"detected"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode health body: %v", err)
	}
	if body.Status != "ok" || body.Frames != 2 || body.Detected != 1 {
		t.Errorf("health = %+v, want ok/2/1", body)
	}
}

func TestStateEndpoint(t *testing.T) {
	handler, st, engine, _ := newTestServer(t)

	out := engine.Step(tilt.FrameInput{
		Pose: tilt.PoseFromVectors(mgl64.Vec3{}, mgl64.Vec3{0, 0, 0.4}),
		Dt:   1.0 / 60,
	})
	st.Update(out, engine.Maze)

	req := httptest.NewRequest("GET", "/state", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}

	var body struct {
		PoseOK     bool           `json:"poseOk"`
		Ball       tilt.BallState `json:"ball"`
		Projection [16]float64    `json:"projection"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode state body: %v", err)
	}
	if !body.PoseOK {
		t.Error("poseOk should be true after a valid frame")
	}
	if body.Projection == ([16]float64{}) {
		t.Error("projection matrix missing from state")
	}
}

func TestMazeImageEndpoints(t *testing.T) {
	handler, _, _, _ := newTestServer(t)

	tests := []struct {
		path     string
		wantType string
		magic    string
	}{
		{"/maze.svg", "image/svg+xml", "<svg"},
		{"/maze.png", "image/png", "\x89PNG"},
		{"/live.png", "image/png", "\x89PNG"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != tt.wantType {
				t.Errorf("content type = %q, want %q", ct, tt.wantType)
			}
			if !strings.Contains(rec.Body.String(), tt.magic) {
				t.Errorf("body does not look like %s", tt.wantType)
			}
		})
	}
}

func TestCommandEndpoints(t *testing.T) {
	handler, _, _, control := newTestServer(t)

	post := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	if rec := post("/reset"); rec.Code != http.StatusNoContent {
		t.Errorf("/reset status = %d, want 204", rec.Code)
	}
	if control.resets != 1 {
		t.Errorf("resets = %d, want 1", control.resets)
	}

	if rec := post("/flatten"); rec.Code != http.StatusNoContent {
		t.Errorf("/flatten status = %d, want 204", rec.Code)
	}

	if rec := post("/regenerate?seed=77"); rec.Code != http.StatusNoContent {
		t.Errorf("/regenerate status = %d, want 204", rec.Code)
	}
	if len(control.regenerates) != 1 || control.regenerates[0] != 77 {
		t.Errorf("regenerates = %v, want [77]", control.regenerates)
	}

	if rec := post("/regenerate?seed=abc"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad seed status = %d, want 400", rec.Code)
	}
}

func TestCommandEndpoints_GetRejected(t *testing.T) {
	handler, _, _, control := newTestServer(t)

	for _, path := range []string{"/reset", "/flatten", "/regenerate"} {
		req := httptest.NewRequest("GET", path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("GET %s status = %d, want 405", path, rec.Code)
		}
	}
	if control.resets != 0 || control.flattens != 0 || len(control.regenerates) != 0 {
		t.Error("GET requests must not trigger commands")
	}
}

func TestFlattenEndpoint_NoOrientation(t *testing.T) {
	handler, _, _, control := newTestServer(t)
	control.flattenOK = false

	req := httptest.NewRequest("POST", "/flatten", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}
