package tilt

import (
	"bytes"
	"strings"
	"testing"
)

func TestVectorRenderer_RenderToSVG(t *testing.T) {
	m := newTestMaze(t, 4, 3)
	m.Generate(42)
	r := NewVectorRenderer(m, 0.040, 0.010)

	var buf bytes.Buffer
	if err := r.RenderToSVG(&buf, 0.05, 0.05); err != nil {
		t.Fatalf("RenderToSVG: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "<svg") || !strings.Contains(out, "</svg>") {
		t.Error("output is not a complete SVG document")
	}
}

func TestVectorRenderer_BallOmitted(t *testing.T) {
	m := newTestMaze(t, 4, 3)
	m.Generate(42)

	withBall := NewVectorRenderer(m, 0.040, 0.010)
	var a bytes.Buffer
	if err := withBall.RenderToSVG(&a, 0.05, 0.05); err != nil {
		t.Fatalf("RenderToSVG: %v", err)
	}

	var b bytes.Buffer
	if err := withBall.RenderToSVG(&b, -1, -1); err != nil {
		t.Fatalf("RenderToSVG: %v", err)
	}

	if a.Len() <= b.Len() {
		t.Error("rendering with the ball should emit more geometry than without")
	}
}

func TestVectorRenderer_RenderToPNG(t *testing.T) {
	m := newTestMaze(t, 2, 2)
	m.Generate(1)
	r := NewVectorRenderer(m, 0.040, 0)
	r.Resolution = 1.0 // keep the raster small for the test

	var buf bytes.Buffer
	if err := r.RenderToPNG(&buf, -1, -1); err != nil {
		t.Fatalf("RenderToPNG: %v", err)
	}

	// PNG magic bytes.
	if buf.Len() < 8 || !bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")) {
		t.Error("output is not a PNG")
	}
}
