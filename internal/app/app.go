// Package app wires capture, pose estimation, the gesture session and
// actuation into the posegate detection pipeline.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/posegate/internal/actuator"
	"github.com/ayusman/posegate/internal/capture"
	"github.com/ayusman/posegate/internal/gesture"
	"github.com/ayusman/posegate/internal/pose"
	"github.com/ayusman/posegate/internal/server/api"
	"github.com/ayusman/posegate/internal/store"
	"github.com/ayusman/posegate/internal/timeutil"
)

// Broadcaster pushes messages to live subscribers.
type Broadcaster interface {
	Broadcast(v any)
}

// Config holds the application's collaborators. Camera and Estimator are
// needed only by Run; ProcessFrame works without them.
type Config struct {
	Gesture   gesture.Config
	Camera    capture.Camera
	Estimator pose.Estimator
	Motion    capture.MotionConfig
	Pacer     capture.PacerConfig

	// Actuator receives fired events through the dispatcher. Nil logs them.
	Actuator    actuator.Actuator
	Cooldown    time.Duration
	QueueSize   int
	ActTimeout  time.Duration
	Store       *store.Store
	Broadcaster Broadcaster

	// IgnoreToggle starts enabled regardless of the persisted toggle.
	IgnoreToggle bool

	// Preview keeps an annotated JPEG of the latest frame for streaming.
	Preview bool
	Clock   timeutil.Clock
	Logger  *slog.Logger
}

// App is the detection pipeline for one session.
type App struct {
	config     Config
	logger     *slog.Logger
	clock      timeutil.Clock
	sessionID  string
	threshold  float64
	cooldown   *actuator.Cooldown
	dispatcher *actuator.Dispatcher

	mu      sync.Mutex
	session *gesture.Session
	last    *gesture.Event

	stateMu sync.RWMutex
	enabled bool
	running bool

	preview previewBuffer

	fireMu  sync.RWMutex
	onFired []func(gesture.Event)
}

// New creates an App. The session starts enabled unless the store holds a
// persisted toggle saying otherwise.
func New(config Config) (*App, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := config.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}

	session, err := gesture.NewSession(config.Gesture)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	act := config.Actuator
	if act == nil {
		act = actuator.Log(logger)
	}
	cooldown := actuator.NewCooldown(act, config.Cooldown, clock)

	a := &App{
		config:    config,
		logger:    logger,
		clock:     clock,
		sessionID: uuid.NewString(),
		threshold: session.Snapshot().Threshold,
		cooldown:  cooldown,
		session:   session,
		enabled:   true,
	}

	a.dispatcher, err = actuator.NewDispatcher(actuator.Config{
		Actuator:  cooldown,
		QueueSize: config.QueueSize,
		Timeout:   config.ActTimeout,
		OnDone:    a.actuationDone,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create dispatcher: %w", err)
	}

	if config.Store != nil && !config.IgnoreToggle {
		a.enabled = config.Store.Settings().GetBool(store.SettingEnabled, true)
	}

	snap := session.Snapshot()
	logger.Info("session created", "session_id", a.sessionID,
		"capacity", snap.Capacity, "required", snap.Required, "threshold", snap.Threshold)
	return a, nil
}

// SessionID returns the id recorded with every event of this session.
func (a *App) SessionID() string {
	return a.sessionID
}

// OnFired registers fn to be called for every fired event. fn runs on the
// pipeline goroutine and must not block.
func (a *App) OnFired(fn func(gesture.Event)) {
	a.fireMu.Lock()
	defer a.fireMu.Unlock()
	a.onFired = append(a.onFired, fn)
}

// IsEnabled reports whether frames are being evaluated.
func (a *App) IsEnabled() bool {
	a.stateMu.RLock()
	defer a.stateMu.RUnlock()
	return a.enabled
}

// SetEnabled turns detection on or off and persists the choice when a store
// is configured. Disabling clears the window so stale frames cannot fire
// after re-enabling.
func (a *App) SetEnabled(enabled bool) error {
	a.stateMu.Lock()
	changed := a.enabled != enabled
	a.enabled = enabled
	a.stateMu.Unlock()

	if changed && !enabled {
		a.mu.Lock()
		a.session.Reset()
		a.mu.Unlock()
	}
	if changed {
		a.logger.Info("detection toggled", "enabled", enabled)
	}

	if a.config.Store != nil {
		if err := a.config.Store.Settings().SetBool(store.SettingEnabled, enabled); err != nil {
			return fmt.Errorf("failed to persist toggle: %w", err)
		}
	}
	return nil
}

// Status implements api.Controller.
func (a *App) Status() api.Status {
	a.mu.Lock()
	snap := a.session.Snapshot()
	a.mu.Unlock()

	stats := a.dispatcher.Stats()
	st := api.Status{
		Enabled:    a.IsEnabled(),
		Running:    a.isRunning(),
		SessionID:  a.sessionID,
		Session:    &snap,
		Dispatcher: &stats,
	}
	if d := a.cooldown.Remaining(); d > 0 {
		st.Cooldown = d.String()
	}
	return st
}

// LastFired returns the most recent fired event, if any.
func (a *App) LastFired() (gesture.Event, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.last == nil {
		return gesture.Event{}, false
	}
	return *a.last, true
}

// Dispatcher returns the actuation dispatcher.
func (a *App) Dispatcher() *actuator.Dispatcher {
	return a.dispatcher
}

// ProcessFrame runs one frame of keypoints through the session. Frames that
// fail validation are rejected with a *gesture.ValidationError and leave
// the window untouched. A *gesture.InvariantError means the session is
// corrupt and the caller must stop.
func (a *App) ProcessFrame(f pose.Frame) (gesture.Event, error) {
	if !a.IsEnabled() {
		return gesture.Event{Label: gesture.None, Provisional: gesture.None}, nil
	}

	a.mu.Lock()
	ev, err := a.session.Process(f)
	if err == nil && ev.Fired() {
		fired := ev
		a.last = &fired
	}
	a.mu.Unlock()
	if err != nil {
		return ev, err
	}

	if ev.Fired() {
		a.fire(ev)
	}
	return ev, nil
}

// fire records, broadcasts and dispatches a fired event.
func (a *App) fire(ev gesture.Event) {
	rec := &store.Event{
		ID:        uuid.NewString(),
		SessionID: a.sessionID,
		Label:     string(ev.Label),
		ModeCount: ev.Decision.ModeCount,
		Required:  ev.Decision.Required,
		Capacity:  ev.Decision.Size,
		Frame:     ev.Frame,
		FiredAt:   ev.Time,
	}
	a.logger.Info("gesture fired", "label", ev.Label, "event_id", rec.ID,
		"frame", ev.Frame, "mode_count", rec.ModeCount, "required", rec.Required)

	if a.config.Store != nil {
		if err := a.config.Store.Events().Create(rec); err != nil {
			a.logger.Error("failed to record event", "event_id", rec.ID, "err", err)
		}
	}

	if a.config.Broadcaster != nil {
		a.config.Broadcaster.Broadcast(firedMessage{Type: "fired", Event: api.ToEventResponse(rec)})
	}

	if err := a.dispatcher.Submit(actuator.Job{ID: rec.ID, Event: ev}); err != nil {
		a.actuationDone(actuator.Job{ID: rec.ID, Event: ev}, err)
	}

	a.fireMu.RLock()
	callbacks := a.onFired
	a.fireMu.RUnlock()
	for _, fn := range callbacks {
		fn(ev)
	}
}

// firedMessage is the websocket payload for a fired event.
type firedMessage struct {
	Type  string            `json:"type"`
	Event api.EventResponse `json:"event"`
}

// actuationDone records the actuation outcome against the stored event.
// Cooldown suppression is recorded as an error so the log shows why no
// action happened.
func (a *App) actuationDone(job actuator.Job, err error) {
	if a.config.Store == nil {
		return
	}
	if mErr := a.config.Store.Events().MarkActuated(job.ID, err); mErr != nil && !errors.Is(mErr, store.ErrNotFound) {
		a.logger.Error("failed to record actuation", "event_id", job.ID, "err", mErr)
	}
}

func (a *App) isRunning() bool {
	a.stateMu.RLock()
	defer a.stateMu.RUnlock()
	return a.running
}

func (a *App) setRunning(running bool) bool {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	if running && a.running {
		return false
	}
	a.running = running
	return true
}

// ErrAlreadyRunning is returned by Run when the pipeline is already active.
var ErrAlreadyRunning = errors.New("pipeline already running")

// StartDispatcher runs the dispatcher until ctx is done. Run calls it; it
// is exported for callers that drive ProcessFrame themselves.
func (a *App) StartDispatcher(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		a.dispatcher.Run(ctx)
	}()
	return done
}
