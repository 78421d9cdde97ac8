package pose

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// maxLineBytes bounds one recorded frame line.
const maxLineBytes = 64 * 1024

// record is the on-disk form of a frame: MoveNet's [y, x, score] rows plus
// an optional millisecond timestamp.
type record struct {
	Timestamp int64       `json:"t,omitempty"`
	Keypoints [][]float64 `json:"keypoints"`
}

// ReadFrames decodes a JSON Lines keypoint recording. Blank lines and lines
// starting with '#' are skipped.
func ReadFrames(r io.Reader) ([]Frame, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), maxLineBytes)

	var frames []Frame
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		var rec record
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		f := FromTriples(rec.Keypoints)
		f.Timestamp = rec.Timestamp
		frames = append(frames, f)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read frames: %w", err)
	}
	return frames, nil
}

// FrameWriter appends frames to a JSON Lines recording.
type FrameWriter struct {
	enc *json.Encoder
}

// NewFrameWriter creates a FrameWriter on w.
func NewFrameWriter(w io.Writer) *FrameWriter {
	return &FrameWriter{enc: json.NewEncoder(w)}
}

// Write appends f as one line.
func (fw *FrameWriter) Write(f Frame) error {
	rows := make([][]float64, len(f.Keypoints))
	for i, kp := range f.Keypoints {
		rows[i] = []float64{kp.Y, kp.X, kp.Score}
	}
	return fw.enc.Encode(record{Timestamp: f.Timestamp, Keypoints: rows})
}
