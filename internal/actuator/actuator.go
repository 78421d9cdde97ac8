// Package actuator turns fired gesture events into real-world actions. It
// provides the Actuator contract, a bounded asynchronous Dispatcher, a
// Cooldown gate and concrete actuators backed by plugins and Nature Remo.
package actuator

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ayusman/posegate/internal/gesture"
)

// Actuator performs the action bound to a fired event. Implementations
// receive only events whose label is not NONE.
type Actuator interface {
	Actuate(ctx context.Context, ev gesture.Event) error
}

type eventIDKey struct{}

// WithEventID returns ctx carrying the id of the stored event being actuated.
func WithEventID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, eventIDKey{}, id)
}

// EventID returns the event id carried by ctx, or "".
func EventID(ctx context.Context) string {
	id, _ := ctx.Value(eventIDKey{}).(string)
	return id
}

// Func adapts a plain function to the Actuator interface.
type Func func(ctx context.Context, ev gesture.Event) error

// Actuate calls f.
func (f Func) Actuate(ctx context.Context, ev gesture.Event) error {
	return f(ctx, ev)
}

// Multi fans an event out to every actuator in order. All actuators run
// even if an earlier one fails; the errors are joined.
type Multi []Actuator

// Actuate calls each actuator in turn.
func (m Multi) Actuate(ctx context.Context, ev gesture.Event) error {
	var errs []error
	for _, a := range m {
		if err := a.Actuate(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Log returns an actuator that only logs the event.
func Log(logger *slog.Logger) Actuator {
	if logger == nil {
		logger = slog.Default()
	}
	return Func(func(_ context.Context, ev gesture.Event) error {
		logger.Info("gesture fired",
			"label", ev.Label,
			"mode_count", ev.Decision.ModeCount,
			"required", ev.Decision.Required,
			"frame", ev.Frame)
		return nil
	})
}
