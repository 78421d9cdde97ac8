package pose

import "gocv.io/x/gocv"

// Estimator defines the interface for single-person pose estimation.
type Estimator interface {
	// Estimate analyzes a video frame and returns the keypoints of the most
	// prominent person. A frame with no person still yields keypoints, with
	// low scores.
	Estimate(frame *gocv.Mat) (Frame, error)

	// Close releases any resources held by the estimator.
	Close() error
}

// Config holds configuration options for the MoveNet estimator.
type Config struct {
	// ScriptPath is the MoveNet service script. Empty means search the
	// usual locations.
	ScriptPath string

	// Python is the interpreter used to run the script. Empty means a
	// virtualenv interpreter if one is found, else python3.
	Python string

	// IdleTimeoutSec stops the service after this many seconds without a
	// request. It is restarted on the next Estimate call.
	IdleTimeoutSec int
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		IdleTimeoutSec: 30,
	}
}
