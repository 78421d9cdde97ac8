package pose

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

const serviceScript = "movenet_service.py"

// ErrServiceNotFound is returned when the MoveNet service script cannot be located.
var ErrServiceNotFound = errors.New(serviceScript + " not found")

// MoveNetEstimator implements Estimator using a Python MoveNet subprocess.
//
// Each request is a 4-byte big-endian length followed by a JPEG image. The
// service answers with one JSON line: {"keypoints": [[y, x, score], ...]}.
type MoveNetEstimator struct {
	config    Config
	script    string
	python    string
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	mu        sync.Mutex
	started   bool
	idleTimer *time.Timer
	logger    *slog.Logger
}

// NewMoveNetEstimator creates a new MoveNet estimator.
// The Python process is started lazily on first estimation.
func NewMoveNetEstimator(config Config, logger *slog.Logger) (*MoveNetEstimator, error) {
	script := config.ScriptPath
	if script == "" {
		script = findServiceScript()
	}
	if script == "" {
		return nil, ErrServiceNotFound
	}
	if _, err := os.Stat(script); err != nil {
		return nil, fmt.Errorf("movenet service: %w", err)
	}

	python := config.Python
	if python == "" {
		python = findVenvPython()
	}
	if python == "" {
		python = "python3"
	}

	if config.IdleTimeoutSec <= 0 {
		config.IdleTimeoutSec = DefaultConfig().IdleTimeoutSec
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &MoveNetEstimator{
		config: config,
		script: script,
		python: python,
		logger: logger,
	}, nil
}

// Estimate encodes the frame, sends it to the service and parses the keypoints.
func (e *MoveNetEstimator) Estimate(frame *gocv.Mat) (Frame, error) {
	if frame == nil || frame.Empty() {
		return Frame{}, errors.New("empty frame")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.ensureStarted(); err != nil {
		return Frame{}, err
	}

	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		return Frame{}, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	data := buf.GetBytes()

	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))

	if _, err := e.stdin.Write(length); err != nil {
		e.abort()
		return Frame{}, fmt.Errorf("write length: %w", err)
	}
	if _, err := e.stdin.Write(data); err != nil {
		e.abort()
		return Frame{}, fmt.Errorf("write data: %w", err)
	}

	line, err := e.stdout.ReadBytes('\n')
	if err != nil {
		e.abort()
		return Frame{}, fmt.Errorf("read response: %w", err)
	}

	out, err := parseResponse(line)
	if err != nil {
		return Frame{}, err
	}
	out.Timestamp = time.Now().UnixMilli()

	e.resetIdleTimer()
	return out, nil
}

// Close shuts down the Python process.
func (e *MoveNetEstimator) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shutdown()
}

type serviceResponse struct {
	Keypoints [][]float64 `json:"keypoints"`
	Error     string      `json:"error,omitempty"`
}

// parseResponse decodes one service reply line.
func parseResponse(line []byte) (Frame, error) {
	var resp serviceResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return Frame{}, fmt.Errorf("parse response: %w", err)
	}
	if resp.Error != "" {
		return Frame{}, fmt.Errorf("movenet service: %s", resp.Error)
	}
	for i, row := range resp.Keypoints {
		if len(row) != 3 {
			return Frame{}, fmt.Errorf("parse response: keypoint %d has %d values, want 3", i, len(row))
		}
	}
	return FromTriples(resp.Keypoints), nil
}

func (e *MoveNetEstimator) ensureStarted() error {
	if e.started {
		return nil
	}

	e.cmd = exec.Command(e.python, e.script)

	stdin, err := e.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := e.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	e.cmd.Stderr = os.Stderr

	if err := e.cmd.Start(); err != nil {
		return fmt.Errorf("start movenet service: %w", err)
	}

	e.stdin = stdin
	e.stdout = bufio.NewReader(stdout)
	e.started = true
	e.logger.Info("movenet service started", "script", e.script, "pid", e.cmd.Process.Pid)

	return nil
}

// abort kills a service whose pipe broke so the next call starts a fresh one.
func (e *MoveNetEstimator) abort() {
	if e.cmd != nil && e.cmd.Process != nil {
		_ = e.cmd.Process.Kill()
	}
	if err := e.shutdown(); err != nil {
		e.logger.Debug("movenet service exited", "err", err)
	}
}

func (e *MoveNetEstimator) shutdown() error {
	if !e.started {
		return nil
	}

	if e.idleTimer != nil {
		e.idleTimer.Stop()
		e.idleTimer = nil
	}

	if e.stdin != nil {
		e.stdin.Close()
	}

	err := e.cmd.Wait()
	e.started = false
	e.cmd = nil
	e.stdin = nil
	e.stdout = nil

	return err
}

func (e *MoveNetEstimator) resetIdleTimer() {
	if e.idleTimer != nil {
		e.idleTimer.Stop()
	}
	e.idleTimer = time.AfterFunc(time.Duration(e.config.IdleTimeoutSec)*time.Second, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.logger.Debug("movenet service idle, stopping")
		e.shutdown()
	})
}

func findServiceScript() string {
	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		filepath.Join("scripts", serviceScript),
		filepath.Join("..", "scripts", serviceScript),
		filepath.Join(execDir, "scripts", serviceScript),
		filepath.Join(os.Getenv("HOME"), ".posegate", "scripts", serviceScript),
	}

	return firstExisting(candidates)
}

// findVenvPython looks for a Python interpreter in a virtual environment.
func findVenvPython() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	execDir := filepath.Dir(execPath)

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".posegate/venv/bin/python"),
	}

	return firstExisting(candidates)
}

func firstExisting(paths []string) string {
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if abs, err := filepath.Abs(path); err == nil {
				return abs
			}
			return path
		}
	}
	return ""
}
