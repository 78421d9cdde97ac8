// Package pose provides body keypoint types and pose estimator interfaces
// consumed by the gesture engine.
package pose

import "strconv"

// Body keypoint indices following the MoveNet/COCO convention.
// See: https://www.tensorflow.org/hub/tutorials/movenet
const (
	Nose          = 0
	LeftEye       = 1
	RightEye      = 2
	LeftEar       = 3
	RightEar      = 4
	LeftShoulder  = 5
	RightShoulder = 6
	LeftElbow     = 7
	RightElbow    = 8
	LeftWrist     = 9
	RightWrist    = 10
	LeftHip       = 11
	RightHip      = 12
	LeftKnee      = 13
	RightKnee     = 14
	LeftAnkle     = 15
	RightAnkle    = 16
	NumKeypoints  = 17
)

var keypointNames = [NumKeypoints]string{
	"nose", "left_eye", "right_eye", "left_ear", "right_ear",
	"left_shoulder", "right_shoulder", "left_elbow", "right_elbow",
	"left_wrist", "right_wrist", "left_hip", "right_hip",
	"left_knee", "right_knee", "left_ankle", "right_ankle",
}

// KeypointName returns the MoveNet name of the keypoint at index i,
// or "joint_<i>" for indices outside the 17-point skeleton.
func KeypointName(i int) string {
	if i >= 0 && i < NumKeypoints {
		return keypointNames[i]
	}
	return "joint_" + strconv.Itoa(i)
}

// Keypoint is one tracked body landmark. Y grows downward from the top of the
// image, X grows rightward from the left edge. All values are normalized to
// [0,1].
type Keypoint struct {
	Y     float64 `json:"y"`
	X     float64 `json:"x"`
	Score float64 `json:"score"`
}

// Frame holds the keypoints estimated for a single captured image, indexed
// by the constants above.
type Frame struct {
	Keypoints []Keypoint `json:"keypoints"`
	Timestamp int64      `json:"timestamp,omitempty"` // milliseconds
}

// Len returns the number of keypoints in the frame.
func (f Frame) Len() int {
	return len(f.Keypoints)
}

// Has reports whether the frame carries a keypoint at index i.
func (f Frame) Has(i int) bool {
	return i >= 0 && i < len(f.Keypoints)
}

// At returns the keypoint at index i. The caller must check Has first.
func (f Frame) At(i int) Keypoint {
	return f.Keypoints[i]
}

// NewFrame returns a frame with NumKeypoints zero-valued keypoints.
func NewFrame() Frame {
	return Frame{Keypoints: make([]Keypoint, NumKeypoints)}
}

// Clone returns a deep copy of the frame.
func (f Frame) Clone() Frame {
	kps := make([]Keypoint, len(f.Keypoints))
	copy(kps, f.Keypoints)
	return Frame{Keypoints: kps, Timestamp: f.Timestamp}
}

// FromTriples builds a frame from MoveNet's [y, x, score] rows.
// Rows shorter than three values are left zero.
func FromTriples(rows [][]float64) Frame {
	f := Frame{Keypoints: make([]Keypoint, len(rows))}
	for i, r := range rows {
		if len(r) < 3 {
			continue
		}
		f.Keypoints[i] = Keypoint{Y: r[0], X: r[1], Score: r[2]}
	}
	return f
}
