package gesture

import (
	"fmt"
	"math"
)

// DefaultShare is the fraction of the window the winning label must fill.
const DefaultShare = 0.8

// State is the voter's view of the window after an evaluation.
type State int

const (
	// StateFilling means the window is not yet full; nothing can fire.
	StateFilling State = iota
	// StateStableNone means the window is full but no label qualified, or
	// the qualifying label is None.
	StateStableNone
	// StateFired means a label qualified and the window was cleared.
	StateFired
)

func (s State) String() string {
	switch s {
	case StateFilling:
		return "filling"
	case StateStableNone:
		return "stable_none"
	case StateFired:
		return "fired"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Count is one tally entry.
type Count struct {
	Label Label `json:"label"`
	Count int   `json:"count"`
	First int   `json:"first"` // index of first occurrence, oldest = 0
}

// Decision is the full outcome of one evaluation.
type Decision struct {
	Label     Label `json:"label"`
	State     State `json:"state"`
	Mode      Label `json:"mode,omitempty"`
	ModeCount int   `json:"mode_count"`
	Required  int   `json:"required"`
	Size      int   `json:"size"`
}

// Fired reports whether the decision emitted a non-None label.
func (d Decision) Fired() bool {
	return d.State == StateFired
}

// Voter decides when the labels in a window form a stable gesture.
type Voter struct {
	share    float64
	required int
	capacity int
}

// NewVoter creates a Voter for windows of the given capacity. A label fires
// when it fills at least floor(capacity*share) slots.
func NewVoter(capacity int, share float64) (*Voter, error) {
	if capacity < 1 {
		return nil, &ValidationError{Field: "capacity", Reason: fmt.Sprintf("%d is less than 1", capacity)}
	}
	if math.IsNaN(share) || share <= 0 || share > 1 {
		return nil, &ValidationError{Field: "share", Reason: fmt.Sprintf("%v outside (0,1]", share)}
	}
	return &Voter{
		share:    share,
		required: RequiredCount(capacity, share),
		capacity: capacity,
	}, nil
}

// RequiredCount returns floor(capacity*share).
func RequiredCount(capacity int, share float64) int {
	return int(math.Floor(float64(capacity) * share))
}

// Required returns the minimum mode count needed to fire.
func (v *Voter) Required() int {
	return v.required
}

// Share returns the configured majority share.
func (v *Voter) Share() float64 {
	return v.share
}

// Evaluate returns the debounced label for the window's current contents.
// None means no stable event. On a fire the window is cleared.
func (v *Voter) Evaluate(w *Window) (Label, error) {
	d, err := v.Decide(w)
	if err != nil {
		return None, err
	}
	return d.Label, nil
}

// Decide is Evaluate with the full decision attached.
func (v *Voter) Decide(w *Window) (Decision, error) {
	if err := w.check(); err != nil {
		return Decision{}, err
	}
	if w.Cap() != v.capacity {
		return Decision{}, &InvariantError{
			What: fmt.Sprintf("window capacity %d does not match voter capacity %d", w.Cap(), v.capacity),
		}
	}

	d := Decision{
		Label:    None,
		State:    StateFilling,
		Required: v.required,
		Size:     w.Len(),
	}
	if !w.IsFull() {
		return d, nil
	}

	mode, err := Mode(w.Contents())
	if err != nil {
		return Decision{}, err
	}
	d.Mode = mode.Label
	d.ModeCount = mode.Count
	d.State = StateStableNone

	if mode.Count < v.required || mode.Label.IsNone() {
		return d, nil
	}

	w.Clear()
	d.Label = mode.Label
	d.State = StateFired
	return d, nil
}

// Tally counts each distinct label, ordered by first occurrence.
func Tally(labels []Label) []Count {
	var counts []Count
	index := make(map[Label]int)
	for i, l := range labels {
		if j, ok := index[l]; ok {
			counts[j].Count++
			continue
		}
		index[l] = len(counts)
		counts = append(counts, Count{Label: l, Count: 1, First: i})
	}
	return counts
}

// Mode returns the most frequent label. Ties go to the label whose first
// occurrence is earliest. An empty slice yields a zero Count for None.
func Mode(labels []Label) (Count, error) {
	best := Count{Label: None}
	total := 0
	for i, c := range Tally(labels) {
		if c.Count < 0 {
			return Count{}, &InvariantError{What: fmt.Sprintf("negative count %d for %s", c.Count, c.Label)}
		}
		total += c.Count
		// Tally is ordered by first occurrence, so strict > keeps the earliest on ties.
		if i == 0 || c.Count > best.Count {
			best = c
		}
	}
	if total != len(labels) {
		return Count{}, &InvariantError{What: fmt.Sprintf("tally covers %d of %d labels", total, len(labels))}
	}
	return best, nil
}
