package capture

import (
	"time"

	"github.com/ayusman/posegate/internal/timeutil"
)

// Pacing defaults.
const (
	DefaultIdleFPS     = 5
	DefaultIdleTimeout = 2 * time.Second
)

// PacerConfig sets the idle and active capture rates.
type PacerConfig struct {
	IdleFPS     int            `yaml:"idle_fps"`
	ActiveFPS   int            `yaml:"active_fps"`
	IdleTimeout time.Duration  `yaml:"idle_timeout"`
	Clock       timeutil.Clock `yaml:"-"`
}

// Pacer picks the capture rate from motion observations: it switches to the
// active rate on motion and falls back to the idle rate once no motion has
// been seen for IdleTimeout. A Pacer is driven by one goroutine.
type Pacer struct {
	idleFPS     int
	activeFPS   int
	idleTimeout time.Duration
	clock       timeutil.Clock
	active      bool
	lastMotion  time.Time
}

// NewPacer creates a Pacer that starts idle.
func NewPacer(cfg PacerConfig) *Pacer {
	if cfg.IdleFPS <= 0 {
		cfg.IdleFPS = DefaultIdleFPS
	}
	if cfg.ActiveFPS <= 0 {
		cfg.ActiveFPS = DefaultFPS
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}
	return &Pacer{
		idleFPS:     cfg.IdleFPS,
		activeFPS:   cfg.ActiveFPS,
		idleTimeout: cfg.IdleTimeout,
		clock:       cfg.Clock,
	}
}

// Observe records one motion sample and returns the rate to use and
// whether it changed.
func (p *Pacer) Observe(motion bool) (fps int, changed bool) {
	now := p.clock.Now()
	switch {
	case motion:
		p.lastMotion = now
		if !p.active {
			p.active = true
			changed = true
		}
	case p.active && now.Sub(p.lastMotion) > p.idleTimeout:
		p.active = false
		changed = true
	}
	return p.FPS(), changed
}

// FPS returns the current rate.
func (p *Pacer) FPS() int {
	if p.active {
		return p.activeFPS
	}
	return p.idleFPS
}

// Active reports whether the pacer is in the active rate.
func (p *Pacer) Active() bool {
	return p.active
}

// Interval returns the frame interval for the current rate.
func (p *Pacer) Interval() time.Duration {
	return time.Second / time.Duration(p.FPS())
}
