package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// Motion detection defaults.
const (
	// DefaultMotionThreshold is the percentage of changed pixels that counts as motion.
	DefaultMotionThreshold = 1.0
	// DefaultBlurSize is the Gaussian kernel size used before differencing.
	DefaultBlurSize = 21
	// DefaultDiffThreshold is the per-pixel intensity change that counts as changed.
	DefaultDiffThreshold = 25
)

// MotionConfig tunes a MotionDetector. Zero fields take their defaults.
type MotionConfig struct {
	Threshold     float64 `yaml:"threshold"`
	BlurSize      int     `yaml:"blur_size"`
	DiffThreshold float32 `yaml:"diff_threshold"`
}

// MotionDetector detects motion between consecutive frames by differencing
// blurred grayscale images. It only informs frame pacing; frames are
// estimated whether or not they moved.
type MotionDetector struct {
	threshold     float64
	blurSize      int
	diffThreshold float32
	prevGray      gocv.Mat
	initialized   bool
	mu            sync.Mutex
}

// NewMotionDetector creates a MotionDetector from cfg.
func NewMotionDetector(cfg MotionConfig) *MotionDetector {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultMotionThreshold
	}
	if cfg.BlurSize <= 0 {
		cfg.BlurSize = DefaultBlurSize
	}
	// GaussianBlur needs an odd kernel.
	if cfg.BlurSize%2 == 0 {
		cfg.BlurSize++
	}
	if cfg.DiffThreshold <= 0 {
		cfg.DiffThreshold = DefaultDiffThreshold
	}
	return &MotionDetector{
		threshold:     cfg.Threshold,
		blurSize:      cfg.BlurSize,
		diffThreshold: cfg.DiffThreshold,
		prevGray:      gocv.NewMat(),
	}
}

// Detect compares frame with the previous one. It returns whether the
// changed-pixel percentage exceeds the threshold, and that percentage.
// The first frame only sets the baseline.
func (m *MotionDetector) Detect(frame *gocv.Mat) (bool, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame == nil || frame.Empty() {
		return false, 0
	}

	blurred := m.prepare(frame)
	defer blurred.Close()

	if !m.initialized || blurred.Rows() != m.prevGray.Rows() || blurred.Cols() != m.prevGray.Cols() {
		blurred.CopyTo(&m.prevGray)
		m.initialized = true
		return false, 0
	}

	changePercent := m.changed(blurred)
	blurred.CopyTo(&m.prevGray)

	return changePercent > m.threshold, changePercent
}

// prepare converts frame to blurred grayscale. The caller closes the result.
func (m *MotionDetector) prepare(frame *gocv.Mat) gocv.Mat {
	gray := gocv.NewMat()
	defer gray.Close()

	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: m.blurSize, Y: m.blurSize}, 0, 0, gocv.BorderDefault)
	return blurred
}

// changed returns the percentage of pixels differing from the baseline.
func (m *MotionDetector) changed(blurred gocv.Mat) float64 {
	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, m.prevGray, &diff)

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(diff, &thresh, m.diffThreshold, 255, gocv.ThresholdBinary)

	total := thresh.Rows() * thresh.Cols()
	if total == 0 {
		return 0
	}
	return float64(gocv.CountNonZero(thresh)) / float64(total) * 100.0
}

// Reset drops the baseline so the next frame starts fresh.
func (m *MotionDetector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.release()
}

// Close releases resources used by the motion detector.
func (m *MotionDetector) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.release()
}

func (m *MotionDetector) release() {
	if !m.prevGray.Empty() {
		m.prevGray.Close()
		m.prevGray = gocv.NewMat()
	}
	m.initialized = false
}

// Threshold returns the changed-pixel percentage that counts as motion.
func (m *MotionDetector) Threshold() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.threshold
}

// SetThreshold sets the motion threshold. Values <= 0 are ignored.
func (m *MotionDetector) SetThreshold(threshold float64) {
	if threshold <= 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.threshold = threshold
}
