// Package testdata provides recorded keypoint sequences for tests.
package testdata

import (
	"bytes"
	"embed"
	"fmt"
	"path"
	"strings"

	"github.com/ayusman/posegate/internal/pose"
)

//go:embed sequences/*.jsonl
var sequencesFS embed.FS

// Sequence names.
const (
	Idle           = "idle"
	LeftWristUp    = "left_wrist_up"
	Flicker        = "flicker"
	RaiseAfterIdle = "raise_after_idle"
	EmptyScene     = "empty_scene"
)

// LoadSequence loads a recorded sequence by name.
func LoadSequence(name string) ([]pose.Frame, error) {
	data, err := sequencesFS.ReadFile(path.Join("sequences", name+".jsonl"))
	if err != nil {
		return nil, fmt.Errorf("load sequence %s: %w", name, err)
	}
	frames, err := pose.ReadFrames(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode sequence %s: %w", name, err)
	}
	return frames, nil
}

// Sequences lists the embedded sequence names.
func Sequences() []string {
	entries, err := sequencesFS.ReadDir("sequences")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".jsonl"))
	}
	return names
}
