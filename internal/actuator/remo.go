package actuator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ayusman/posegate/internal/gesture"
	"github.com/ayusman/posegate/internal/remo"
)

// LightSender presses a light button on a Nature Remo appliance.
type LightSender interface {
	SendLight(ctx context.Context, applianceID, button string) (*remo.LightState, error)
}

// RemoActuator presses a light button when one of its labels fires.
type RemoActuator struct {
	client      LightSender
	applianceID string
	button      string
	labels      map[gesture.Label]bool
	logger      *slog.Logger
}

// NewRemoActuator creates a RemoActuator. With no labels it reacts to every
// fired label.
func NewRemoActuator(client LightSender, applianceID, button string, labels []gesture.Label, logger *slog.Logger) *RemoActuator {
	if logger == nil {
		logger = slog.Default()
	}
	if button == "" {
		button = remo.ButtonOn
	}
	set := make(map[gesture.Label]bool, len(labels))
	for _, l := range labels {
		set[l] = true
	}
	return &RemoActuator{
		client:      client,
		applianceID: applianceID,
		button:      button,
		labels:      set,
		logger:      logger,
	}
}

// Actuate sends the configured button for matching labels.
func (a *RemoActuator) Actuate(ctx context.Context, ev gesture.Event) error {
	if len(a.labels) > 0 && !a.labels[ev.Label] {
		return nil
	}

	state, err := a.client.SendLight(ctx, a.applianceID, a.button)
	if err != nil {
		return fmt.Errorf("remo light %s: %w", a.applianceID, err)
	}

	a.logger.Info("remo light switched",
		"label", ev.Label, "appliance", a.applianceID, "button", a.button, "power", state.Power)
	return nil
}
