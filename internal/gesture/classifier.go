package gesture

import (
	"fmt"
	"math"

	"github.com/ayusman/posegate/internal/pose"
)

// DefaultThreshold is the keypoint confidence gate used when none is configured.
const DefaultThreshold = 0.5

// Rule recognizes one gesture in a single frame.
type Rule interface {
	// Label is the label emitted when the rule matches.
	Label() Label
	// Joints lists the keypoint indices the rule reads.
	Joints() []int
	// Match reports whether the frame shows the gesture. The frame is
	// already validated to carry every index in Joints.
	Match(f pose.Frame, threshold float64) bool
}

// WristRaisedRule matches when the tracked joint is above the reference
// joint and on its image-right side.
//
// The confidence gate rejects the frame only when both joints score below
// the threshold. If either one clears it, the geometry is compared even
// though the other may be unreliable.
type WristRaisedRule struct {
	Reference int
	Tracked   int
	Emit      Label
}

// LeftWristUpRule returns the rule that emits LeftWristUp for the nose and
// left wrist.
func LeftWristUpRule() WristRaisedRule {
	return WristRaisedRule{
		Reference: pose.Nose,
		Tracked:   pose.LeftWrist,
		Emit:      LeftWristUp,
	}
}

func (r WristRaisedRule) Label() Label { return r.Emit }

func (r WristRaisedRule) Joints() []int { return []int{r.Reference, r.Tracked} }

func (r WristRaisedRule) Match(f pose.Frame, threshold float64) bool {
	ref, tracked := f.At(r.Reference), f.At(r.Tracked)

	if ref.Score < threshold && tracked.Score < threshold {
		return false
	}

	return tracked.Y < ref.Y && tracked.X > ref.X
}

// Classifier maps a frame to a provisional label by trying each rule in
// order. It holds no per-frame state and may be shared.
type Classifier struct {
	rules     []Rule
	threshold float64
	minJoints int
}

// NewClassifier creates a Classifier with the given confidence threshold and
// rules. With no rules it uses LeftWristUpRule.
func NewClassifier(threshold float64, rules ...Rule) (*Classifier, error) {
	if err := validateUnit("threshold", threshold); err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		rules = []Rule{LeftWristUpRule()}
	}

	minJoints := 0
	for _, r := range rules {
		if r == nil {
			return nil, &ValidationError{Field: "rules", Reason: "nil rule"}
		}
		if r.Label().IsNone() {
			return nil, &ValidationError{Field: "rules", Reason: "rule emits NONE"}
		}
		for _, j := range r.Joints() {
			if j < 0 {
				return nil, &ValidationError{Field: "rules", Reason: fmt.Sprintf("negative joint index %d", j)}
			}
			if j+1 > minJoints {
				minJoints = j + 1
			}
		}
	}

	return &Classifier{
		rules:     rules,
		threshold: threshold,
		minJoints: minJoints,
	}, nil
}

// Threshold returns the confidence gate.
func (c *Classifier) Threshold() float64 {
	return c.threshold
}

// MinJoints returns the smallest frame length the rules can read.
func (c *Classifier) MinJoints() int {
	return c.minJoints
}

// Classify returns the label of the first matching rule, or None.
func (c *Classifier) Classify(f pose.Frame) (Label, error) {
	if err := ValidateFrame(f, c.minJoints); err != nil {
		return None, err
	}

	for _, r := range c.rules {
		if r.Match(f, c.threshold) {
			return r.Label(), nil
		}
	}
	return None, nil
}

// Classify runs LeftWristUpRule against a single frame.
func Classify(f pose.Frame, threshold float64) (Label, error) {
	c, err := NewClassifier(threshold)
	if err != nil {
		return None, err
	}
	return c.Classify(f)
}

// ValidateFrame checks that f has at least minJoints keypoints and that every
// coordinate and score lies in [0,1].
func ValidateFrame(f pose.Frame, minJoints int) error {
	if f.Len() < minJoints {
		return &ValidationError{
			Field:  "frame",
			Reason: fmt.Sprintf("has %d joints, need at least %d", f.Len(), minJoints),
		}
	}

	for i, k := range f.Keypoints {
		name := pose.KeypointName(i)
		if err := validateUnit(name+".y", k.Y); err != nil {
			return err
		}
		if err := validateUnit(name+".x", k.X); err != nil {
			return err
		}
		if err := validateUnit(name+".score", k.Score); err != nil {
			return err
		}
	}
	return nil
}

func validateUnit(field string, v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("%v outside [0,1]", v)}
	}
	return nil
}
