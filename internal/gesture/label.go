// Package gesture turns per-frame pose classifications into debounced
// gesture events.
//
// A Classifier maps one pose.Frame to a provisional Label. A Window keeps
// the most recent provisional labels and a Voter decides, once the window
// is full, whether one label holds enough of it to fire. Session bundles
// the three for a single detection session.
package gesture

import "strings"

// Label identifies a gesture. The zero value is not a valid label; use None
// for "no gesture".
type Label string

const (
	// None means no gesture was seen, or no stable gesture fired.
	None Label = "NONE"
	// LeftWristUp means the left wrist is raised above and beside the nose.
	LeftWristUp Label = "LEFT_WRIST_UP"
)

// knownLabels is the closed set accepted by ParseLabel. Rules that emit a
// new label must add it here.
var knownLabels = []Label{None, LeftWristUp}

// Labels returns every known label, None first.
func Labels() []Label {
	out := make([]Label, len(knownLabels))
	copy(out, knownLabels)
	return out
}

// ParseLabel converts a label name to a Label. Matching ignores case and
// surrounding whitespace.
func ParseLabel(s string) (Label, error) {
	name := Label(strings.ToUpper(strings.TrimSpace(s)))
	for _, l := range knownLabels {
		if l == name {
			return l, nil
		}
	}
	return "", &ValidationError{Field: "label", Reason: "unknown label " + s}
}

// IsNone reports whether l is the quiescent label.
func (l Label) IsNone() bool {
	return l == None || l == ""
}

// String returns the label name.
func (l Label) String() string {
	if l == "" {
		return string(None)
	}
	return string(l)
}
