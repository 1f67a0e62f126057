package tilt

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/go-gl/mathgl/mgl64"
)

// FrameRecord is one line of a JSONL pose capture: the detector output for
// a single frame. Rvec is a compact axis-angle rotation, Tvec a camera
// space translation, both as recorded by the upstream marker detector.
type FrameRecord struct {
	OK   bool       `json:"ok"`
	Rvec [3]float64 `json:"rvec,omitempty"`
	Tvec [3]float64 `json:"tvec,omitempty"`
	Dt   float64    `json:"dt"`
}

// Input converts a record to a frame input. Records with OK=false become
// invalid poses so the pipeline exercises its detection-loss path.
func (rec FrameRecord) Input() FrameInput {
	in := FrameInput{Dt: rec.Dt}
	if rec.OK {
		in.Pose = PoseFromVectors(
			mgl64.Vec3{rec.Rvec[0], rec.Rvec[1], rec.Rvec[2]},
			mgl64.Vec3{rec.Tvec[0], rec.Tvec[1], rec.Tvec[2]},
		)
	}
	return in
}

// ReadReplay parses a JSONL pose capture. Blank lines are skipped; a
// malformed line fails the whole read with its line number.
func ReadReplay(r io.Reader) ([]FrameRecord, error) {
	var records []FrameRecord

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var rec FrameRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("replay line %d: %w", lineNo, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading replay: %w", err)
	}

	return records, nil
}

// LoadReplay reads a JSONL pose capture from a file.
func LoadReplay(path string) ([]FrameRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("replay file not found: %s", path)
		}
		return nil, fmt.Errorf("opening replay file: %w", err)
	}
	defer f.Close()

	return ReadReplay(f)
}

// WriteReplay writes records as JSONL, one frame per line.
func WriteReplay(w io.Writer, records []FrameRecord) error {
	enc := json.NewEncoder(w)
	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("replay record %d: %w", i, err)
		}
	}
	return nil
}
