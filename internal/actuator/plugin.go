package actuator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ayusman/posegate/internal/gesture"
	"github.com/ayusman/posegate/internal/plugin"
	"github.com/ayusman/posegate/internal/store"
)

// BindingSource looks up the enabled bindings for a label.
type BindingSource interface {
	ListByLabel(label string) ([]*store.Binding, error)
}

// PluginSource resolves a plugin by name.
type PluginSource interface {
	Get(name string) (*plugin.Plugin, error)
}

// PluginRunner executes a plugin request.
type PluginRunner interface {
	Execute(ctx context.Context, p *plugin.Plugin, req *plugin.Request) (*plugin.Response, error)
}

// PluginActuator runs every plugin action bound to the fired label.
type PluginActuator struct {
	bindings BindingSource
	plugins  PluginSource
	runner   PluginRunner
	logger   *slog.Logger
}

// NewPluginActuator creates a PluginActuator.
func NewPluginActuator(bindings BindingSource, plugins PluginSource, runner PluginRunner, logger *slog.Logger) *PluginActuator {
	if logger == nil {
		logger = slog.Default()
	}
	return &PluginActuator{bindings: bindings, plugins: plugins, runner: runner, logger: logger}
}

// Actuate executes the bindings for ev.Label in creation order. A label
// with no bindings is not an error.
func (a *PluginActuator) Actuate(ctx context.Context, ev gesture.Event) error {
	bindings, err := a.bindings.ListByLabel(string(ev.Label))
	if err != nil {
		return fmt.Errorf("failed to load bindings for %s: %w", ev.Label, err)
	}
	if len(bindings) == 0 {
		a.logger.Debug("no bindings for label", "label", ev.Label)
		return nil
	}

	var errs []error
	for _, b := range bindings {
		if err := a.run(ctx, b, ev); err != nil {
			errs = append(errs, fmt.Errorf("binding %s (%s/%s): %w", b.ID, b.PluginName, b.ActionName, err))
		}
	}
	return errors.Join(errs...)
}

func (a *PluginActuator) run(ctx context.Context, b *store.Binding, ev gesture.Event) error {
	p, err := a.plugins.Get(b.PluginName)
	if err != nil {
		return err
	}

	resp, err := a.runner.Execute(ctx, p, &plugin.Request{
		Action:  b.ActionName,
		Gesture: string(ev.Label),
		EventID: EventID(ctx),
		FiredAt: ev.Time,
		Config:  b.Config,
	})
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("plugin reported failure: %s", resp.Error)
	}

	a.logger.Debug("plugin action done", "plugin", b.PluginName, "action", b.ActionName, "label", ev.Label)
	return nil
}
