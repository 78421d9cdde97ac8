// Package plugin discovers and runs external actuation plugins. A plugin is a
// directory holding a plugin.json manifest and an executable that reads one
// Request as JSON on stdin and writes one Response as JSON on stdout.
package plugin

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// ManifestFile is the manifest file name inside a plugin directory.
const ManifestFile = "plugin.json"

// Manifest describes a plugin's metadata and capabilities.
type Manifest struct {
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	Description  string          `json:"description"`
	Executable   string          `json:"executable"`
	Actions      []string        `json:"actions"`
	ConfigSchema json.RawMessage `json:"configSchema,omitempty"`
}

// Validate checks the fields needed to run the plugin.
func (m *Manifest) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return errors.New("manifest name is empty")
	}
	if m.Executable == "" {
		return errors.New("manifest executable is empty")
	}
	if filepath.IsAbs(m.Executable) || strings.HasPrefix(filepath.Clean(m.Executable), "..") {
		return errors.New("manifest executable must be inside the plugin directory")
	}
	if len(m.Actions) == 0 {
		return errors.New("manifest declares no actions")
	}
	return nil
}

// SupportsAction reports whether the manifest declares action.
func (m *Manifest) SupportsAction(action string) bool {
	return slices.Contains(m.Actions, action)
}

// Request represents a request sent to a plugin for execution.
type Request struct {
	Action  string          `json:"action"`
	Gesture string          `json:"gesture"`
	EventID string          `json:"event_id,omitempty"`
	FiredAt time.Time       `json:"fired_at"`
	Config  json.RawMessage `json:"config"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response represents the response from a plugin execution.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin represents a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
