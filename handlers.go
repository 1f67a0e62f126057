package main

import (
	"encoding/json"
	"image/png"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/kwv/tiltmaze/tilt"
)

// gameControl is implemented by the frame loop; HTTP handlers go through it
// so both commands and maze reads serialize against the per-frame engine
// access. Maze must return a grid that stays consistent for the life of a
// request even if a regenerate lands mid-render.
type gameControl interface {
	ResetBall()
	Flatten() bool
	Regenerate(seed int64)
	Maze() *tilt.Maze
}

// newHTTPServer creates an HTTP server with all endpoints
func newHTTPServer(stateTracker *tilt.StateTracker, control gameControl, config *tilt.Config) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		frames, detected := stateTracker.Counts()
		w.Header().Set("Content-Type", "application/json")
		status := struct {
			Status    string    `json:"status"`
			Timestamp time.Time `json:"timestamp"`
			Frames    uint64    `json:"frames"`
			Detected  uint64    `json:"detected"`
		}{
			Status:    "ok",
			Timestamp: time.Now(),
			Frames:    frames,
			Detected:  detected,
		}
		if err := json.NewEncoder(w).Encode(status); err != nil {
			log.Printf("Error encoding health status: %v", err)
		}
	})

	// Full game state: ball snapshot plus render matrices
	mux.HandleFunc("/state", func(w http.ResponseWriter, r *http.Request) {
		frame := stateTracker.Frame()
		ball := stateTracker.Ball()

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")
		state := struct {
			Ball       tilt.BallState `json:"ball"`
			PoseOK     bool           `json:"poseOk"`
			Projection [16]float64    `json:"projection"`
			Model      [16]float64    `json:"model"`
			MazeModel  [16]float64    `json:"mazeModel"`
		}{
			Ball:       ball,
			PoseOK:     frame.PoseOK,
			Projection: frame.Projection,
			Model:      frame.Model,
			MazeModel:  frame.MazeModel,
		}
		if err := json.NewEncoder(w).Encode(state); err != nil {
			log.Printf("Error encoding state: %v", err)
		}
	})

	// Static maze plan, printable
	mux.HandleFunc("/maze.svg", func(w http.ResponseWriter, r *http.Request) {
		renderer := tilt.NewVectorRenderer(control.Maze(), config.Sheet.WallHeight, 0)
		w.Header().Set("Content-Type", "image/svg+xml")
		w.Header().Set("Cache-Control", "no-cache")
		if err := renderer.RenderToSVG(w, -1, -1); err != nil {
			log.Printf("Error encoding maze SVG: %v", err)
		}
	})

	mux.HandleFunc("/maze.png", func(w http.ResponseWriter, r *http.Request) {
		renderer := tilt.NewVectorRenderer(control.Maze(), config.Sheet.WallHeight, 0)
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")
		if err := renderer.RenderToPNG(w, -1, -1); err != nil {
			log.Printf("Error encoding maze PNG: %v", err)
		}
	})

	// Live debug view with ball position and HUD
	mux.HandleFunc("/live.png", func(w http.ResponseWriter, r *http.Request) {
		ball := stateTracker.Ball()
		renderer := tilt.NewLiveRenderer(control.Maze(), config.Ball.Radius)
		img := renderer.Render(ball)

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")
		if err := png.Encode(w, img); err != nil {
			log.Printf("Error encoding live PNG: %v", err)
		}
	})

	// Game commands, POST only
	mux.HandleFunc("/reset", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}
		control.ResetBall()
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("/flatten", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}
		if !control.Flatten() {
			http.Error(w, "No orientation available yet", http.StatusConflict)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("/regenerate", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}
		var seed int64
		if s := r.URL.Query().Get("seed"); s != "" {
			v, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				http.Error(w, "Invalid seed", http.StatusBadRequest)
				return
			}
			seed = v
		}
		control.Regenerate(seed)
		w.WriteHeader(http.StatusNoContent)
	})

	return mux
}
