package main

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/kwv/tiltmaze/tilt"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	app := NewApp()
	cfg := tilt.DefaultConfig()
	cfg.Maze.Seed = 42

	engine, err := tilt.NewEngine(cfg, tilt.NominalIntrinsics(1280, 720), 1280, 720)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	app.Config = cfg
	app.Engine = engine
	return app
}

func TestApplyOptions(t *testing.T) {
	app := NewApp()
	app.ApplyOptions(AppOptions{
		ConfigFile: "custom.yaml",
		ReplayFile: "capture.jsonl",
		Seed:       99,
		ViewportW:  640,
		ViewportH:  480,
		HttpPort:   9090,
		MqttMode:   true,
		HttpMode:   true,
	})

	if app.ConfigFile != "custom.yaml" || app.ReplayFile != "capture.jsonl" {
		t.Errorf("file options not applied: %q %q", app.ConfigFile, app.ReplayFile)
	}
	if app.Seed != 99 || app.ViewportW != 640 || app.ViewportH != 480 {
		t.Errorf("numeric options not applied")
	}
	if app.HttpPort != 9090 || !app.MqttMode || !app.HttpMode {
		t.Errorf("service options not applied")
	}
}

func TestHandleCommand_Reset(t *testing.T) {
	app := newTestApp(t)

	// Establish a level reference, then tilt to push the ball off the
	// start point before resetting.
	level := tilt.PoseFromVectors(mgl64.Vec3{}, mgl64.Vec3{0, 0, 0.4})
	app.Engine.Step(tilt.FrameInput{Pose: level, Dt: 1.0 / 60})

	tilted := tilt.PoseFromVectors(
		tilt.RotationAboutAxis(0.3, mgl64.Vec3{0, 1, 0}).Vector(),
		mgl64.Vec3{0, 0, 0.4},
	)
	for i := 0; i < 120; i++ {
		app.Engine.Step(tilt.FrameInput{Pose: tilted, Dt: 1.0 / 60})
	}

	startX := app.Engine.Maze.CellWidth / 2
	startY := app.Engine.Maze.CellHeight / 2
	if app.Engine.Ball.Pos.X() == startX && app.Engine.Ball.Pos.Y() == startY {
		t.Fatal("tilting should move the ball off the start point")
	}

	app.handleCommand("reset", 0)

	if x := app.Engine.Ball.Pos.X(); math.Abs(x-startX) > 1e-9 {
		t.Errorf("ball x = %v after reset, want %v", x, startX)
	}
	if y := app.Engine.Ball.Pos.Y(); math.Abs(y-startY) > 1e-9 {
		t.Errorf("ball y = %v after reset, want %v", y, startY)
	}
}

func TestHandleCommand_Regenerate(t *testing.T) {
	app := newTestApp(t)

	before := wallKey(app.Engine.Maze)
	app.handleCommand("regenerate", 777)
	after := wallKey(app.Engine.Maze)

	if before == after {
		t.Error("regenerate did not change the maze layout")
	}
	if app.Engine.Maze.OpenPassages() != 8*6-1 {
		t.Errorf("regenerated maze has %d open passages, want 47",
			app.Engine.Maze.OpenPassages())
	}
}

func TestHandleCommand_Flatten(t *testing.T) {
	app := newTestApp(t)

	// No orientation seen yet: flatten must refuse but not crash.
	app.handleCommand("flatten", 0)

	level := tilt.PoseFromVectors(mgl64.Vec3{}, mgl64.Vec3{0, 0, 0.4})
	for i := 0; i < 10; i++ {
		app.Engine.Step(tilt.FrameInput{Pose: level, Dt: 1.0 / 60})
	}
	if !app.Flatten() {
		t.Error("Flatten should succeed once an orientation has been smoothed")
	}
}

// Rendering handlers read the maze from other goroutines while commands
// regenerate it; the accessor hands out immutable snapshots, so concurrent
// walks of the wall geometry must stay consistent and race-free.
func TestRegenerateConcurrentWithMazeReaders(t *testing.T) {
	app := newTestApp(t)

	done := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				m := app.Maze()
				if len(m.WallBoxes(0.040)) == 0 {
					t.Error("reader saw no wall boxes")
					return
				}
				if got, want := m.OpenPassages(), m.Width*m.Height-1; got != want {
					t.Errorf("reader saw %d open passages, want %d", got, want)
					return
				}
			}
		}()
	}

	for seed := int64(1); seed <= 50; seed++ {
		app.Regenerate(seed)
	}

	close(done)
	wg.Wait()
}

func TestFrameLoopStopsWhenDone(t *testing.T) {
	app := newTestApp(t)

	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		app.frameLoop(nil, done)
		close(exited)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		frames, _ := app.StateTracker.Counts()
		if frames >= 3 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("frame loop produced no frames")
		}
		time.Sleep(10 * time.Millisecond)
	}

	close(done)
	select {
	case <-exited:
	case <-time.After(time.Second):
		t.Fatal("frame loop kept running after done was closed")
	}
}

func TestHandleCommand_Unknown(t *testing.T) {
	app := newTestApp(t)
	// Must be a no-op, not a panic.
	app.handleCommand("explode", 0)
}

func TestTiltSimulatorPose(t *testing.T) {
	sim := newTiltSimulator()

	for _, tm := range []float64{0, 0.5, 1.25, 3.7, 10} {
		p := sim.pose(tm)
		if !p.Valid {
			t.Fatalf("pose(%v) invalid", tm)
		}
		if p.Rotation.IsDegenerate() {
			t.Fatalf("pose(%v) has degenerate rotation", tm)
		}
		if z := p.Translation.Z(); z < 0.35 || z > 0.45 {
			t.Errorf("pose(%v) translation z = %v, want near 0.4", tm, z)
		}
		// Rocking amplitude stays small enough for the deadzone math.
		if ang := p.Rotation.AngleTo(tilt.IdentityRotation()); ang > 0.25 {
			t.Errorf("pose(%v) tilt angle = %v, want < 0.25 rad", tm, ang)
		}
	}
}

func TestTiltSimulatorMovesBall(t *testing.T) {
	app := newTestApp(t)
	sim := newTiltSimulator()

	const dt = 1.0 / 60
	for i := 0; i < 300; i++ {
		out := app.Engine.Step(tilt.FrameInput{Pose: sim.pose(float64(i) * dt), Dt: dt})
		app.StateTracker.Update(out, app.Engine.Maze)
	}

	frames, detected := app.StateTracker.Counts()
	if frames != 300 || detected != 300 {
		t.Errorf("counts = %d/%d, want 300/300", frames, detected)
	}

	ball := app.StateTracker.Ball()
	startX := app.Engine.Maze.CellWidth / 2
	startY := app.Engine.Maze.CellHeight / 2
	if ball.X == startX && ball.Y == startY {
		t.Error("5 seconds of rocking should move the ball off the start point")
	}
}

// wallKey flattens the maze wall layout into a comparable string.
func wallKey(m *tilt.Maze) string {
	var b strings.Builder
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			c := m.At(x, y)
			fmt.Fprintf(&b, "%t%t%t%t;", c.North, c.South, c.East, c.West)
		}
	}
	return b.String()
}
