package pose

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockEstimator is a test implementation of the Estimator interface.
// It replays a fixed sequence of frames, repeating the last one once the
// sequence is exhausted.
type MockEstimator struct {
	frames []Frame
	next   int
	err    error
	calls  int
	mu     sync.Mutex
}

// NewMockEstimator creates a new MockEstimator that replays frames in order.
func NewMockEstimator(frames ...Frame) *MockEstimator {
	return &MockEstimator{frames: frames}
}

// SetFrames replaces the replay sequence and rewinds it.
func (m *MockEstimator) SetFrames(frames ...Frame) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = frames
	m.next = 0
}

// SetError sets the error that will be returned by Estimate.
func (m *MockEstimator) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Estimate has been called.
func (m *MockEstimator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Estimate returns the next configured frame or error.
func (m *MockEstimator) Estimate(frame *gocv.Mat) (Frame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return Frame{}, m.err
	}
	if len(m.frames) == 0 {
		return IdleFrame(), nil
	}

	f := m.frames[m.next]
	if m.next < len(m.frames)-1 {
		m.next++
	}
	return f.Clone(), nil
}

// Close is a no-op for the mock estimator.
func (m *MockEstimator) Close() error {
	return nil
}

// standingFrame returns a confident upright pose with both arms down.
func standingFrame() Frame {
	f := NewFrame()

	f.Keypoints[Nose] = Keypoint{Y: 0.20, X: 0.50, Score: 0.90}
	f.Keypoints[LeftEye] = Keypoint{Y: 0.18, X: 0.53, Score: 0.85}
	f.Keypoints[RightEye] = Keypoint{Y: 0.18, X: 0.47, Score: 0.85}
	f.Keypoints[LeftEar] = Keypoint{Y: 0.19, X: 0.56, Score: 0.70}
	f.Keypoints[RightEar] = Keypoint{Y: 0.19, X: 0.44, Score: 0.70}

	// Image coordinates: the person's left side appears on the right.
	f.Keypoints[LeftShoulder] = Keypoint{Y: 0.35, X: 0.62, Score: 0.90}
	f.Keypoints[RightShoulder] = Keypoint{Y: 0.35, X: 0.38, Score: 0.90}
	f.Keypoints[LeftElbow] = Keypoint{Y: 0.50, X: 0.66, Score: 0.85}
	f.Keypoints[RightElbow] = Keypoint{Y: 0.50, X: 0.34, Score: 0.85}
	f.Keypoints[LeftWrist] = Keypoint{Y: 0.64, X: 0.66, Score: 0.80}
	f.Keypoints[RightWrist] = Keypoint{Y: 0.64, X: 0.34, Score: 0.80}

	f.Keypoints[LeftHip] = Keypoint{Y: 0.65, X: 0.58, Score: 0.80}
	f.Keypoints[RightHip] = Keypoint{Y: 0.65, X: 0.42, Score: 0.80}
	f.Keypoints[LeftKnee] = Keypoint{Y: 0.80, X: 0.58, Score: 0.75}
	f.Keypoints[RightKnee] = Keypoint{Y: 0.80, X: 0.42, Score: 0.75}
	f.Keypoints[LeftAnkle] = Keypoint{Y: 0.95, X: 0.58, Score: 0.70}
	f.Keypoints[RightAnkle] = Keypoint{Y: 0.95, X: 0.42, Score: 0.70}

	return f
}

// IdleFrame returns a preset frame of a person standing with both arms down.
func IdleFrame() Frame {
	return standingFrame()
}

// LeftWristUpFrame returns a preset frame with the left wrist raised above
// and to the image-right of the nose.
func LeftWristUpFrame() Frame {
	f := standingFrame()
	f.Keypoints[LeftElbow] = Keypoint{Y: 0.25, X: 0.70, Score: 0.85}
	f.Keypoints[LeftWrist] = Keypoint{Y: 0.10, X: 0.68, Score: 0.80}
	return f
}

// EmptySceneFrame returns a preset frame where nobody is visible: every
// keypoint has a near-zero score.
func EmptySceneFrame() Frame {
	f := NewFrame()
	for i := range f.Keypoints {
		f.Keypoints[i] = Keypoint{Y: 0.5, X: 0.5, Score: 0.05}
	}
	return f
}
