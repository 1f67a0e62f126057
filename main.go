package main

import (
	"flag"
	"fmt"
)

// Version is set at build time via -ldflags
var Version = "dev"

var (
	configFile = flag.String("config", "config.yaml", "Path to configuration file")
	renderOnly = flag.Bool("render", false, "Render the maze plan and exit")
	replayFile = flag.String("replay", "", "JSONL pose capture to play through the pipeline")
	simulate   = flag.Bool("simulate", false, "Drive the pipeline with synthetic tilt motion and exit")
	duration   = flag.Float64("duration", 10.0, "Seconds of synthetic motion for -simulate")
	seed       = flag.Int64("seed", 0, "Maze seed override (0 = from config, or wall clock)")
	outputFile = flag.String("output", "maze.png", "Output file for -render (or final frame for -replay/-simulate)")
	format     = flag.String("format", "", "Render format: png or svg (default: from -output extension)")
	viewportW  = flag.Int("width", 1280, "Viewport width in pixels")
	viewportH  = flag.Int("height", 720, "Viewport height in pixels")
	httpMode   = flag.Bool("http", false, "Run HTTP server mode")
	httpPort   = flag.Int("port", 8080, "HTTP server port")
	mqttMode   = flag.Bool("mqtt", false, "Run MQTT telemetry/command mode")
)

// AppOptions carries parsed CLI flags into the App
type AppOptions struct {
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
}

func optionsFromFlags() AppOptions {
	return AppOptions{
		ConfigFile: *configFile,
		ReplayFile: *replayFile,
		OutputFile: *outputFile,
		Format:     *format,
		Seed:       *seed,
		ViewportW:  *viewportW,
		ViewportH:  *viewportH,
		Duration:   *duration,
		HttpPort:   *httpPort,
		MqttMode:   *mqttMode,
		HttpMode:   *httpMode,
	}
}

func newAppFromFlags() *App {
	app := NewApp()
	app.ApplyOptions(optionsFromFlags())
	return app
}

func main() {
	flag.Parse()
	fmt.Printf("tiltmaze version: %s\n", Version)

	if *renderOnly {
		newAppFromFlags().RunRender()
		return
	}

	if *mqttMode || *httpMode {
		newAppFromFlags().RunService()
		return
	}

	if *replayFile != "" {
		newAppFromFlags().RunReplay()
		return
	}

	if *simulate {
		newAppFromFlags().RunSimulate()
		return
	}

	fmt.Println("tiltmaze: AR tilt-maze pose pipeline and ball simulation")
	fmt.Println("Use -render to write the maze plan to a file")
	fmt.Println("Use -replay=FILE to play a recorded pose capture")
	fmt.Println("Use -simulate to drive the pipeline with synthetic motion")
	fmt.Println("Use -http to serve /state, /maze.png, /maze.svg and /live.png")
	fmt.Println("Use -mqtt to publish ball telemetry and accept remote commands")
	fmt.Println("Use -mqtt -http to run both together")
	fmt.Println("\nConfiguration:")
	fmt.Println("  config.yaml - maze, sheet, physics and smoothing settings")
	fmt.Println("  camera.yaml - camera intrinsics from the calibration step")
}
