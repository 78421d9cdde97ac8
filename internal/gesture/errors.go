package gesture

import "fmt"

// ValidationError reports malformed input: a frame missing required joints,
// a value outside [0,1], or an out-of-range configuration value. It is never
// converted into None so callers can tell bad input from no gesture.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// InvariantError reports an internal consistency failure such as a window
// holding more labels than its capacity. It indicates a bug.
type InvariantError struct {
	What string
}

func (e *InvariantError) Error() string {
	return "gesture invariant violated: " + e.What
}
