package actuator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ayusman/posegate/internal/gesture"
)

// DefaultQueueSize is the number of fired events the dispatcher buffers.
const DefaultQueueSize = 8

// DefaultTimeout bounds a single actuation.
const DefaultTimeout = 10 * time.Second

// ErrQueueFull is returned by Submit when the queue has no room.
var ErrQueueFull = errors.New("dispatch queue full")

// ErrDispatcherClosed is returned by Submit after Run has returned.
var ErrDispatcherClosed = errors.New("dispatcher closed")

// Job is one fired event queued for actuation. ID identifies the logged
// event, if any.
type Job struct {
	ID    string
	Event gesture.Event
}

// Config holds dispatcher settings.
type Config struct {
	Actuator  Actuator
	QueueSize int
	// Timeout bounds each Actuate call. Zero uses DefaultTimeout.
	Timeout time.Duration
	// OnDone, if set, is called from the worker after each actuation.
	OnDone func(job Job, err error)
	Logger *slog.Logger
}

// Stats counts dispatcher activity.
type Stats struct {
	Submitted  uint64 `json:"submitted"`
	Dropped    uint64 `json:"dropped"`
	Succeeded  uint64 `json:"succeeded"`
	Failed     uint64 `json:"failed"`
	Suppressed uint64 `json:"suppressed"`
	Pending    int    `json:"pending"`
}

// Dispatcher hands fired events to an Actuator on a single worker
// goroutine. Submit never blocks: when the queue is full the event is
// dropped.
type Dispatcher struct {
	act     Actuator
	queue   chan Job
	timeout time.Duration
	onDone  func(Job, error)
	logger  *slog.Logger

	submitted  atomic.Uint64
	dropped    atomic.Uint64
	succeeded  atomic.Uint64
	failed     atomic.Uint64
	suppressed atomic.Uint64

	mu     sync.RWMutex
	closed bool
}

// NewDispatcher creates a dispatcher. Call Run to start the worker.
func NewDispatcher(cfg Config) (*Dispatcher, error) {
	if cfg.Actuator == nil {
		return nil, errors.New("dispatcher: actuator is nil")
	}
	if cfg.QueueSize < 0 {
		return nil, errors.New("dispatcher: negative queue size")
	}
	if cfg.QueueSize == 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Dispatcher{
		act:     cfg.Actuator,
		queue:   make(chan Job, cfg.QueueSize),
		timeout: cfg.Timeout,
		onDone:  cfg.OnDone,
		logger:  cfg.Logger,
	}, nil
}

// Submit queues a fired event. Events with a NONE label are ignored.
func (d *Dispatcher) Submit(job Job) error {
	if !job.Event.Fired() {
		return nil
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}

	select {
	case d.queue <- job:
		d.submitted.Add(1)
		return nil
	default:
		d.dropped.Add(1)
		d.logger.Warn("dropping fired event, dispatch queue full",
			"label", job.Event.Label, "event_id", job.ID, "queue", cap(d.queue))
		return ErrQueueFull
	}
}

// Run processes queued events until ctx is done. Events still queued when
// ctx ends are discarded.
func (d *Dispatcher) Run(ctx context.Context) {
	defer func() {
		d.mu.Lock()
		d.closed = true
		d.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case job := <-d.queue:
			d.dispatch(ctx, job)
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, job Job) {
	actx, cancel := context.WithTimeout(WithEventID(ctx, job.ID), d.timeout)
	err := d.act.Actuate(actx, job.Event)
	cancel()

	switch {
	case err == nil:
		d.succeeded.Add(1)
		d.logger.Info("actuated", "label", job.Event.Label, "event_id", job.ID)
	case errors.Is(err, ErrCoolingDown):
		d.suppressed.Add(1)
		d.logger.Debug("actuation suppressed by cooldown", "label", job.Event.Label, "event_id", job.ID)
	default:
		d.failed.Add(1)
		d.logger.Error("actuation failed", "label", job.Event.Label, "event_id", job.ID, "err", err)
	}

	if d.onDone != nil {
		d.onDone(job, err)
	}
}

// Stats returns a snapshot of the counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Submitted:  d.submitted.Load(),
		Dropped:    d.dropped.Load(),
		Succeeded:  d.succeeded.Load(),
		Failed:     d.failed.Load(),
		Suppressed: d.suppressed.Load(),
		Pending:    len(d.queue),
	}
}
