package main

import (
	"fmt"
	"log"
	"math"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/kwv/tiltmaze/tilt"
)

// App encapsulates the application state and dependencies
type App struct {
	Config       *tilt.Config
	Engine       *tilt.Engine
	StateTracker *tilt.StateTracker
	MQTTClient   *tilt.MQTTClient
	Publisher    *tilt.Publisher

	// CLI Flags (effectively dependencies)
	ConfigFile string
	ReplayFile string
	OutputFile string
	Format     string
	Seed       int64
	ViewportW  int
	ViewportH  int
	Duration   float64
	HttpPort   int
	MqttMode   bool
	HttpMode   bool

	// engineMu serializes frame-loop engine access against HTTP/MQTT
	// commands.
	engineMu sync.Mutex
}

// NewApp creates a new App instance
func NewApp() *App {
	return &App{
		StateTracker: tilt.NewStateTracker(),
	}
}

// ApplyOptions applies CLI options to the App instance
func (a *App) ApplyOptions(opts AppOptions) {
	a.ConfigFile = opts.ConfigFile
	a.ReplayFile = opts.ReplayFile
	a.OutputFile = opts.OutputFile
	a.Format = opts.Format
	a.Seed = opts.Seed
	a.ViewportW = opts.ViewportW
	a.ViewportH = opts.ViewportH
	a.Duration = opts.Duration
	a.HttpPort = opts.HttpPort
	a.MqttMode = opts.MqttMode
	a.HttpMode = opts.HttpMode
}

// loadConfig loads the config file, falling back to defaults when the file
// does not exist and the path is the unmodified default.
func (a *App) loadConfig() *tilt.Config {
	config, err := tilt.LoadConfig(a.ConfigFile)
	if err != nil {
		if a.ConfigFile == "config.yaml" && strings.Contains(err.Error(), "not found") {
			log.Printf("No config.yaml found, using defaults")
			return tilt.DefaultConfig()
		}
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Printf("Loaded config from %s", a.ConfigFile)
	return config
}

// loadIntrinsics loads the camera calibration named by the config. A
// missing calibration file is not fatal: a nominal pinhole model for the
// viewport is substituted, which keeps offline modes usable.
func (a *App) loadIntrinsics(config *tilt.Config) tilt.Intrinsics {
	in, err := tilt.LoadCameraCalibration(config.Camera.CalibrationFile)
	if err != nil {
		log.Printf("Warning: %v; using nominal intrinsics for %dx%d",
			err, a.ViewportW, a.ViewportH)
		return tilt.NominalIntrinsics(a.ViewportW, a.ViewportH)
	}
	log.Printf("Loaded camera calibration from %s (%dx%d)",
		config.Camera.CalibrationFile, in.Width, in.Height)
	return in
}

// buildEngine constructs the frame pipeline from config and calibration.
func (a *App) buildEngine() {
	config := a.loadConfig()
	if a.Seed != 0 {
		config.Maze.Seed = a.Seed
	}
	a.Config = config

	engine, err := tilt.NewEngine(config, a.loadIntrinsics(config), a.ViewportW, a.ViewportH)
	if err != nil {
		log.Fatalf("Failed to build engine: %v", err)
	}
	a.Engine = engine

	log.Printf("Maze %dx%d on %.0fx%.0fmm sheet, %d open passages",
		config.Maze.Width, config.Maze.Height,
		config.Sheet.Width*1000, config.Sheet.Height*1000,
		engine.Maze.OpenPassages())
}

// RunRender writes the maze plan to the output file and exits.
func (a *App) RunRender() {
	a.buildEngine()

	renderer := tilt.NewVectorRenderer(a.Engine.Maze, a.Config.Sheet.WallHeight, 0)

	out := a.OutputFile
	format := a.Format
	if format == "" {
		if strings.HasSuffix(out, ".svg") {
			format = "svg"
		} else {
			format = "png"
		}
	}

	f, err := os.Create(out)
	if err != nil {
		log.Fatalf("Failed to create %s: %v", out, err)
	}
	defer f.Close()

	switch format {
	case "svg":
		err = renderer.RenderToSVG(f, -1, -1)
	case "png":
		err = renderer.RenderToPNG(f, -1, -1)
	default:
		log.Fatalf("Unknown render format %q (want png or svg)", format)
	}
	if err != nil {
		log.Fatalf("Failed to render maze: %v", err)
	}

	fmt.Printf("Wrote maze plan to %s\n", out)
}

// RunReplay feeds a recorded pose capture through the pipeline and prints
// a summary. With -output set, the final frame is also rendered.
func (a *App) RunReplay() {
	a.buildEngine()

	records, err := tilt.LoadReplay(a.ReplayFile)
	if err != nil {
		log.Fatalf("Failed to load replay: %v", err)
	}
	if len(records) == 0 {
		log.Fatalf("Replay %s contains no frames", a.ReplayFile)
	}

	for _, rec := range records {
		out := a.Engine.Step(rec.Input())
		a.StateTracker.Update(out, a.Engine.Maze)
	}

	frames, detected := a.StateTracker.Counts()
	ball := a.StateTracker.Ball()
	fmt.Printf("Replayed %d frames (%d with pose)\n", frames, detected)
	fmt.Printf("Ball at (%.4f, %.4f) m, cell (%d,%d), velocity (%.4f, %.4f) m/s\n",
		ball.X, ball.Y, ball.CellX, ball.CellY, ball.VX, ball.VY)

	if a.OutputFile != "" {
		renderer := tilt.NewLiveRenderer(a.Engine.Maze, a.Config.Ball.Radius)
		if err := renderer.RenderToFile(a.OutputFile, ball); err != nil {
			log.Fatalf("Failed to render final frame: %v", err)
		}
		fmt.Printf("Wrote final frame to %s\n", a.OutputFile)
	}
}

// RunSimulate drives the pipeline with a synthetic rocking motion for the
// configured duration, then prints a summary.
func (a *App) RunSimulate() {
	a.buildEngine()

	duration := a.Duration
	if duration <= 0 {
		duration = 10.0
	}

	const dt = 1.0 / 60.0
	sim := newTiltSimulator()
	steps := int(duration / dt)

	for i := 0; i < steps; i++ {
		out := a.Engine.Step(tilt.FrameInput{Pose: sim.pose(float64(i) * dt), Dt: dt})
		a.StateTracker.Update(out, a.Engine.Maze)
	}

	ball := a.StateTracker.Ball()
	fmt.Printf("Simulated %.1fs at %d fps\n", duration, 60)
	fmt.Printf("Ball at (%.4f, %.4f) m, cell (%d,%d)\n", ball.X, ball.Y, ball.CellX, ball.CellY)

	if a.OutputFile != "" {
		renderer := tilt.NewLiveRenderer(a.Engine.Maze, a.Config.Ball.Radius)
		if err := renderer.RenderToFile(a.OutputFile, ball); err != nil {
			log.Fatalf("Failed to render final frame: %v", err)
		}
		fmt.Printf("Wrote final frame to %s\n", a.OutputFile)
	}
}

// ResetBall re-centers the ball in the start cell.
func (a *App) ResetBall() {
	a.engineMu.Lock()
	defer a.engineMu.Unlock()
	a.Engine.ResetBall()
	log.Println("Ball reset to start cell")
}

// Flatten adopts the current orientation as the flat reference.
func (a *App) Flatten() bool {
	a.engineMu.Lock()
	defer a.engineMu.Unlock()
	ok := a.Engine.Flatten()
	if ok {
		log.Println("Flat reference re-leveled")
	} else {
		log.Println("Flatten requested but no orientation available yet")
	}
	return ok
}

// Regenerate carves a new maze and resets the ball.
func (a *App) Regenerate(seed int64) {
	a.engineMu.Lock()
	defer a.engineMu.Unlock()
	a.Engine.Regenerate(seed)
	log.Printf("Maze regenerated (seed=%d), %d open passages",
		seed, a.Engine.Maze.OpenPassages())
}

// Maze returns the current maze. Regenerate swaps the maze for a fresh
// instance, so the returned grid stays consistent even if a new layout is
// carved while a renderer is still walking this one.
func (a *App) Maze() *tilt.Maze {
	a.engineMu.Lock()
	defer a.engineMu.Unlock()
	return a.Engine.Maze
}

// handleCommand dispatches a remote command from MQTT.
func (a *App) handleCommand(command string, seed int64) {
	switch command {
	case "reset":
		a.ResetBall()
	case "flatten":
		a.Flatten()
	case "regenerate":
		a.Regenerate(seed)
	}
	if a.Publisher != nil {
		if err := a.Publisher.PublishEvent(command, seed); err != nil {
			log.Printf("Error publishing %s event: %v", command, err)
		}
	}
}

// RunService starts the frame loop plus the HTTP and/or MQTT surfaces.
// Poses come from the replay file when one is given (looped), otherwise
// from the synthetic tilt generator.
func (a *App) RunService() {
	fmt.Println("Starting tiltmaze service...")

	a.buildEngine()

	var records []tilt.FrameRecord
	if a.ReplayFile != "" {
		var err error
		records, err = tilt.LoadReplay(a.ReplayFile)
		if err != nil {
			log.Fatalf("Failed to load replay: %v", err)
		}
		if len(records) == 0 {
			log.Fatalf("Replay %s contains no frames", a.ReplayFile)
		}
		log.Printf("Pose source: replay %s (%d frames, looped)", a.ReplayFile, len(records))
	} else {
		log.Println("Pose source: synthetic tilt generator")
	}

	if a.MqttMode {
		client, err := tilt.InitMQTT(a.Config, a.handleCommand)
		if err != nil {
			log.Fatalf("Failed to initialize MQTT: %v", err)
		}
		if client != nil {
			a.MQTTClient = client
			a.Publisher = tilt.NewPublisher(client.GetClient(), a.Config)
			defer client.Disconnect()
		}
	}

	if a.HttpMode {
		handler := newHTTPServer(a.StateTracker, a, a.Config)
		addr := fmt.Sprintf(":%d", a.HttpPort)
		go func() {
			log.Printf("HTTP server listening on %s", addr)
			if err := http.ListenAndServe(addr, handler); err != nil {
				log.Fatalf("HTTP server failed: %v", err)
			}
		}()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	go a.frameLoop(records, done)

	<-stop
	close(done)
	fmt.Println("\nShutting down...")
}

// frameLoop ticks the engine at 60Hz until done is closed.
func (a *App) frameLoop(records []tilt.FrameRecord, done <-chan struct{}) {
	const tick = time.Second / 60

	sim := newTiltSimulator()
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	frame := 0
	last := time.Now()
	for range ticker.C {
		select {
		case <-done:
			return
		default:
		}

		now := time.Now()
		dt := now.Sub(last).Seconds()
		last = now

		var in tilt.FrameInput
		if len(records) > 0 {
			in = records[frame%len(records)].Input()
			in.Dt = dt
		} else {
			in = tilt.FrameInput{Pose: sim.pose(float64(frame) / 60.0), Dt: dt}
		}
		frame++

		a.engineMu.Lock()
		out := a.Engine.Step(in)
		m := a.Engine.Maze
		a.engineMu.Unlock()

		a.StateTracker.Update(out, m)

		// Publish telemetry every other frame to halve broker traffic.
		if a.Publisher != nil && frame%2 == 0 {
			if err := a.Publisher.PublishBallState(a.StateTracker.Ball()); err != nil {
				// Expected while the broker connection is still coming up.
				continue
			}
		}
	}
}

// tiltSimulator produces a plausible handheld motion: the board held
// roughly 40cm in front of the camera, rocking gently about both axes.
type tiltSimulator struct {
	base mgl64.Vec3
}

func newTiltSimulator() *tiltSimulator {
	return &tiltSimulator{base: mgl64.Vec3{0, 0, 0.4}}
}

// pose returns the synthetic detector pose at time t seconds.
func (s *tiltSimulator) pose(t float64) tilt.Pose {
	tiltX := 0.12 * math.Sin(2*math.Pi*t/5.0)
	tiltY := 0.10 * math.Sin(2*math.Pi*t/7.3)

	rot := tilt.RotationAboutAxis(tiltX, mgl64.Vec3{1, 0, 0}).
		Mul(tilt.RotationAboutAxis(tiltY, mgl64.Vec3{0, 1, 0}))

	rvec := rot.Vector()
	trans := s.base.Add(mgl64.Vec3{0, 0, 0.01 * math.Sin(2*math.Pi*t/3.1)})
	return tilt.PoseFromVectors(rvec, trans)
}
