package app

import (
	"fmt"
	"log/slog"

	"github.com/ayusman/posegate/internal/actuator"
	"github.com/ayusman/posegate/internal/capture"
	"github.com/ayusman/posegate/internal/config"
	"github.com/ayusman/posegate/internal/plugin"
	"github.com/ayusman/posegate/internal/remo"
	"github.com/ayusman/posegate/internal/store"
)

// NewActuator builds the actuator chain from cfg: the plugin bindings held
// in st and, when a token and appliance are configured, Nature Remo.
// With neither, fired events are only logged.
func NewActuator(cfg config.Config, st *store.Store, plugins *plugin.Manager, logger *slog.Logger) (actuator.Actuator, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var chain actuator.Multi
	if st != nil && plugins != nil {
		exec := plugin.NewExecutor(cfg.Actuation.PluginTimeout)
		chain = append(chain, actuator.NewPluginActuator(st.Bindings(), plugins, exec, logger))
	}

	if cfg.RemoEnabled() {
		client, err := remo.New(remo.Config{
			BaseURL: cfg.Remo.BaseURL,
			Token:   cfg.Remo.Token,
			Timeout: cfg.Actuation.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create remo client: %w", err)
		}
		chain = append(chain, actuator.NewRemoActuator(client, cfg.Remo.ApplianceID, cfg.Remo.Button, cfg.RemoLabels(), logger))
		logger.Info("nature remo actuation enabled", "appliance", cfg.Remo.ApplianceID, "labels", cfg.Remo.Labels)
	}

	if len(chain) == 0 {
		return actuator.Log(logger), nil
	}
	return chain, nil
}

// FromConfig assembles an App Config from the loaded configuration. The
// camera, estimator, store and broadcaster are supplied by the caller.
func FromConfig(cfg config.Config) Config {
	return Config{
		Gesture: cfg.Gesture(),
		Motion: capture.MotionConfig{
			Threshold: cfg.Motion.Threshold,
		},
		Pacer: capture.PacerConfig{
			IdleFPS:     cfg.Motion.IdleFPS,
			ActiveFPS:   cfg.Camera.FPS,
			IdleTimeout: cfg.Motion.IdleTimeout,
		},
		Cooldown:   cfg.Actuation.Cooldown,
		QueueSize:  cfg.Actuation.QueueSize,
		ActTimeout: cfg.Actuation.Timeout,
	}
}
