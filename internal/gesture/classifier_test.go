package gesture

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/posegate/internal/pose"
)

// twoJointFrame builds a full-length frame with only the nose and left
// wrist set.
func twoJointFrame(nose, wrist pose.Keypoint) pose.Frame {
	f := pose.NewFrame()
	f.Keypoints[pose.Nose] = nose
	f.Keypoints[pose.LeftWrist] = wrist
	return f
}

func TestClassify_ScenarioC_WristRaised(t *testing.T) {
	f := twoJointFrame(
		pose.Keypoint{Y: 0.2, X: 0.5, Score: 0.9},
		pose.Keypoint{Y: 0.1, X: 0.6, Score: 0.9},
	)

	got, err := Classify(f, 0.5)
	require.NoError(t, err)
	assert.Equal(t, LeftWristUp, got)
}

func TestClassify_ScenarioD_BothBelowThreshold(t *testing.T) {
	f := twoJointFrame(
		pose.Keypoint{Y: 0.2, X: 0.5, Score: 0.1},
		pose.Keypoint{Y: 0.1, X: 0.6, Score: 0.1},
	)

	got, err := Classify(f, 0.5)
	require.NoError(t, err)
	assert.Equal(t, None, got)
}

func TestClassify_Geometry(t *testing.T) {
	nose := pose.Keypoint{Y: 0.4, X: 0.5, Score: 0.9}

	tests := []struct {
		name  string
		wrist pose.Keypoint
		want  Label
	}{
		{"above and right", pose.Keypoint{Y: 0.3, X: 0.6, Score: 0.9}, LeftWristUp},
		{"above and left", pose.Keypoint{Y: 0.3, X: 0.4, Score: 0.9}, None},
		{"below and right", pose.Keypoint{Y: 0.5, X: 0.6, Score: 0.9}, None},
		{"level with nose", pose.Keypoint{Y: 0.4, X: 0.6, Score: 0.9}, None},
		{"directly above", pose.Keypoint{Y: 0.3, X: 0.5, Score: 0.9}, None},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(twoJointFrame(nose, tt.wrist), 0.5)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassify_GateNeedsOnlyOneConfidentJoint(t *testing.T) {
	tests := []struct {
		name       string
		noseScore  float64
		wristScore float64
		want       Label
	}{
		{"confident nose, unreliable wrist", 0.9, 0.05, LeftWristUp},
		{"unreliable nose, confident wrist", 0.05, 0.9, LeftWristUp},
		{"exactly at threshold", 0.5, 0.0, LeftWristUp},
		{"both just below", 0.49, 0.49, None},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := twoJointFrame(
				pose.Keypoint{Y: 0.2, X: 0.5, Score: tt.noseScore},
				pose.Keypoint{Y: 0.1, X: 0.6, Score: tt.wristScore},
			)
			got, err := Classify(f, 0.5)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassify_PresetFrames(t *testing.T) {
	got, err := Classify(pose.LeftWristUpFrame(), DefaultThreshold)
	require.NoError(t, err)
	assert.Equal(t, LeftWristUp, got)

	got, err = Classify(pose.IdleFrame(), DefaultThreshold)
	require.NoError(t, err)
	assert.Equal(t, None, got)

	got, err = Classify(pose.EmptySceneFrame(), DefaultThreshold)
	require.NoError(t, err)
	assert.Equal(t, None, got)
}

func TestClassify_ValidationErrors(t *testing.T) {
	valid := pose.LeftWristUpFrame()

	short := pose.Frame{Keypoints: valid.Keypoints[:pose.LeftWrist]}

	outOfRange := valid.Clone()
	outOfRange.Keypoints[pose.LeftWrist].Y = 1.5

	negativeScore := valid.Clone()
	negativeScore.Keypoints[pose.RightAnkle].Score = -0.1

	nan := valid.Clone()
	nan.Keypoints[pose.Nose].X = math.NaN()

	tests := []struct {
		name      string
		frame     pose.Frame
		threshold float64
		field     string
	}{
		{"too few joints", short, 0.5, "frame"},
		{"empty frame", pose.Frame{}, 0.5, "frame"},
		{"position above one", outOfRange, 0.5, "left_wrist.y"},
		{"negative score", negativeScore, 0.5, "right_ankle.score"},
		{"nan position", nan, 0.5, "nose.x"},
		{"threshold above one", valid, 1.1, "threshold"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(tt.frame, tt.threshold)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
			assert.Equal(t, tt.field, verr.Field)
			assert.Equal(t, None, got)
		})
	}
}

func TestClassify_MinimalFrameLength(t *testing.T) {
	f := pose.Frame{Keypoints: make([]pose.Keypoint, pose.LeftWrist+1)}
	f.Keypoints[pose.Nose] = pose.Keypoint{Y: 0.2, X: 0.5, Score: 0.9}
	f.Keypoints[pose.LeftWrist] = pose.Keypoint{Y: 0.1, X: 0.6, Score: 0.9}

	got, err := Classify(f, 0.5)
	require.NoError(t, err)
	assert.Equal(t, LeftWristUp, got)
}

// rightWristRule mirrors the wrist rule for the other arm to exercise rule
// ordering without touching the voting engine.
type rightWristRule struct{}

func (rightWristRule) Label() Label  { return rightWristUp }
func (rightWristRule) Joints() []int { return []int{pose.Nose, pose.RightWrist} }
func (rightWristRule) Match(f pose.Frame, threshold float64) bool {
	n, w := f.At(pose.Nose), f.At(pose.RightWrist)
	return w.Score >= threshold && w.Y < n.Y && w.X < n.X
}

func TestClassifier_CustomRules(t *testing.T) {
	c, err := NewClassifier(0.5, LeftWristUpRule(), rightWristRule{})
	require.NoError(t, err)
	assert.Equal(t, pose.RightWrist+1, c.MinJoints())

	f := pose.IdleFrame()
	f.Keypoints[pose.RightWrist] = pose.Keypoint{Y: 0.1, X: 0.3, Score: 0.9}

	got, err := c.Classify(f)
	require.NoError(t, err)
	assert.Equal(t, rightWristUp, got)

	// Both arms up: the first rule wins.
	f.Keypoints[pose.LeftWrist] = pose.Keypoint{Y: 0.1, X: 0.7, Score: 0.9}
	got, err = c.Classify(f)
	require.NoError(t, err)
	assert.Equal(t, LeftWristUp, got)
}

func TestNewClassifier_RejectsBadRules(t *testing.T) {
	_, err := NewClassifier(0.5, WristRaisedRule{Reference: pose.Nose, Tracked: pose.LeftWrist, Emit: None})
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))

	_, err = NewClassifier(0.5, WristRaisedRule{Reference: -1, Tracked: pose.LeftWrist, Emit: LeftWristUp})
	assert.True(t, errors.As(err, &verr))
}

func TestParseLabel(t *testing.T) {
	l, err := ParseLabel(" left_wrist_up ")
	require.NoError(t, err)
	assert.Equal(t, LeftWristUp, l)

	l, err = ParseLabel("NONE")
	require.NoError(t, err)
	assert.True(t, l.IsNone())

	_, err = ParseLabel("wave")
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
}
