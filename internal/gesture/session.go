package gesture

import (
	"errors"
	"time"

	"github.com/ayusman/posegate/internal/pose"
)

// Config holds the parameters fixed for the lifetime of a Session.
type Config struct {
	Capacity  int     `json:"capacity" yaml:"capacity"`
	Threshold float64 `json:"threshold" yaml:"threshold"`
	Share     float64 `json:"share" yaml:"share"`
	Rules     []Rule  `json:"-" yaml:"-"`
}

// DefaultConfig returns a window of 10 frames, a 0.5 confidence gate and an
// 80% majority share.
func DefaultConfig() Config {
	return Config{
		Capacity:  DefaultCapacity,
		Threshold: DefaultThreshold,
		Share:     DefaultShare,
	}
}

// Event is the per-frame output of a Session.
type Event struct {
	Label       Label     `json:"label"`
	Provisional Label     `json:"provisional"`
	Decision    Decision  `json:"decision"`
	Frame       uint64    `json:"frame"`
	Time        time.Time `json:"time"`
}

// Fired reports whether the event carries a debounced gesture.
func (e Event) Fired() bool {
	return !e.Label.IsNone()
}

// Stats counts what a session has seen.
type Stats struct {
	Frames   uint64 `json:"frames"`
	Rejected uint64 `json:"rejected"`
	Fires    uint64 `json:"fires"`
}

// Snapshot is a read-only copy of a session's state.
type Snapshot struct {
	Window    []Label `json:"window"`
	Capacity  int     `json:"capacity"`
	Required  int     `json:"required"`
	Threshold float64 `json:"threshold"`
	State     State   `json:"state"`
	LastFired Label   `json:"last_fired,omitempty"`
	Stats     Stats   `json:"stats"`
	Tally     []Count `json:"tally"`
}

// Session owns one classifier, window and voter for a single detection
// session. Independent sessions share nothing. A Session is not safe for
// concurrent use.
type Session struct {
	classifier *Classifier
	window     *Window
	voter      *Voter
	state      State
	lastFired  Label
	stats      Stats
	now        func() time.Time
}

// NewSession creates a Session from cfg. Zero fields take their defaults.
func NewSession(cfg Config) (*Session, error) {
	def := DefaultConfig()
	if cfg.Capacity == 0 {
		cfg.Capacity = def.Capacity
	}
	if cfg.Share == 0 {
		cfg.Share = def.Share
	}

	classifier, err := NewClassifier(cfg.Threshold, cfg.Rules...)
	if err != nil {
		return nil, err
	}
	window, err := NewWindow(cfg.Capacity)
	if err != nil {
		return nil, err
	}
	voter, err := NewVoter(cfg.Capacity, cfg.Share)
	if err != nil {
		return nil, err
	}

	return &Session{
		classifier: classifier,
		window:     window,
		voter:      voter,
		state:      StateFilling,
		now:        time.Now,
	}, nil
}

// Process classifies f, pushes the result and evaluates the window.
// A frame that fails validation is counted as rejected and leaves the
// window untouched.
func (s *Session) Process(f pose.Frame) (Event, error) {
	label, err := s.classifier.Classify(f)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			s.stats.Rejected++
		}
		return Event{}, err
	}
	return s.ProcessLabel(label)
}

// ProcessLabel pushes an already classified label and evaluates the window.
func (s *Session) ProcessLabel(label Label) (Event, error) {
	if label == "" {
		label = None
	}

	s.window.Push(label)
	s.stats.Frames++

	d, err := s.voter.Decide(s.window)
	if err != nil {
		return Event{}, err
	}

	s.state = d.State
	if d.Fired() {
		s.stats.Fires++
		s.lastFired = d.Label
	}

	return Event{
		Label:       d.Label,
		Provisional: label,
		Decision:    d,
		Frame:       s.stats.Frames,
		Time:        s.now(),
	}, nil
}

// State returns the state after the last evaluation.
func (s *Session) State() State {
	return s.state
}

// Reset empties the window and returns the session to StateFilling.
// Counters are kept.
func (s *Session) Reset() {
	s.window.Clear()
	s.state = StateFilling
}

// Snapshot returns a copy of the session's current state.
func (s *Session) Snapshot() Snapshot {
	contents := s.window.Contents()
	return Snapshot{
		Window:    contents,
		Capacity:  s.window.Cap(),
		Required:  s.voter.Required(),
		Threshold: s.classifier.Threshold(),
		State:     s.state,
		LastFired: s.lastFired,
		Stats:     s.stats,
		Tally:     Tally(contents),
	}
}
