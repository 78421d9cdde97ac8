package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ayusman/posegate/internal/app"
	"github.com/ayusman/posegate/internal/capture"
	"github.com/ayusman/posegate/internal/config"
	"github.com/ayusman/posegate/internal/gesture"
	"github.com/ayusman/posegate/internal/plugin"
	"github.com/ayusman/posegate/internal/pose"
	"github.com/ayusman/posegate/internal/server"
	"github.com/ayusman/posegate/internal/tray"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the camera pipeline and control server",
	Long: `Capture frames from the camera, estimate keypoints, debounce the
per-frame gesture and actuate fired gestures. The HTTP control server runs
alongside unless --no-server is given.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("camera", "", "Camera device index or video file/URL (overrides config)")
	runCmd.Flags().String("addr", "", "HTTP listen address (overrides config)")
	runCmd.Flags().Bool("no-server", false, "Do not start the HTTP control server")
	runCmd.Flags().Bool("tray", false, "Show a menu bar icon")
	runCmd.Flags().Bool("mock-estimator", false, "Use an estimator that always sees an idle pose")
}

func runRun(cmd *cobra.Command, _ []string) error {
	if cam := mustGetString(cmd, "camera"); cam != "" {
		cfg.Camera.Source = cam
	}
	if addr := mustGetString(cmd, "addr"); addr != "" {
		cfg.Server.Addr = addr
	}
	withServer := !mustGetBool(cmd, "no-server")
	withTray := mustGetBool(cmd, "tray")
	if mustGetBool(cmd, "mock-estimator") {
		cfg.Estimator.Mock = true
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	plugins := plugin.NewManager(cfg.Actuation.PluginDir, logger)
	if err := plugins.Discover(); err != nil {
		logger.Warn("plugin discovery failed", "dir", cfg.Actuation.PluginDir, "err", err)
	}

	act, err := app.NewActuator(cfg, st, plugins, logger)
	if err != nil {
		return err
	}

	estimator, err := newEstimator(cfg)
	if err != nil {
		return err
	}
	defer estimator.Close()

	hub := server.NewHub(logger)

	acfg := app.FromConfig(cfg)
	acfg.Camera = capture.NewCamera(cfg.Camera)
	acfg.Estimator = estimator
	acfg.Actuator = act
	acfg.Store = st
	acfg.Broadcaster = hub
	acfg.Preview = withServer
	acfg.Logger = logger
	pipeline, err := app.New(acfg)
	if err != nil {
		return err
	}

	serverErr := make(chan error, 1)
	if withServer {
		srv := server.New(server.Config{
			StaticDir: staticDir(cfg),
			Store:     st,
			Control:   pipeline,
			Plugins:   plugins,
			Frames:    pipeline,
			Hub:       hub,
			Logger:    logger,
		})
		go func() {
			err := srv.Run(ctx, cfg.Server.Addr)
			if err != nil {
				stop()
			}
			serverErr <- err
		}()
	}

	pipelineErr := make(chan error, 1)
	go func() {
		pipelineErr <- pipeline.Run(ctx)
		stop()
	}()

	if withTray {
		runTray(ctx, pipeline, stop)
	}

	err = <-pipelineErr
	if withServer {
		if sErr := <-serverErr; sErr != nil && err == nil {
			err = fmt.Errorf("server: %w", sErr)
		}
	}
	var inv *gesture.InvariantError
	if errors.As(err, &inv) {
		return fmt.Errorf("pipeline stopped: %w", err)
	}
	return err
}

// runTray blocks in the tray loop until the user quits or ctx ends.
func runTray(ctx context.Context, pipeline *app.App, stop context.CancelFunc) {
	t := tray.New(pipeline.IsEnabled())
	t.OnToggle(pipeline.SetEnabled)
	t.OnQuit(stop)
	t.OnOpen(func() {
		if err := openBrowser("http://localhost" + cfg.Server.Addr); err != nil {
			logger.Warn("failed to open browser", "err", err)
		}
	})
	pipeline.OnFired(t.SetLastFired)

	go func() {
		<-ctx.Done()
		t.Quit()
	}()
	t.Run()
}

func newEstimator(cfg config.Config) (pose.Estimator, error) {
	if cfg.Estimator.Mock {
		logger.Warn("using mock pose estimator")
		return pose.NewMockEstimator(), nil
	}
	est, err := pose.NewMoveNetEstimator(cfg.Pose(), logger)
	if err != nil {
		return nil, fmt.Errorf("movenet unavailable (use --mock-estimator to run without it): %w", err)
	}
	return est, nil
}

// staticDir returns the configured web directory, or the first of "web"
// and ~/.posegate/web that exists.
func staticDir(cfg config.Config) string {
	if cfg.Server.StaticDir != "" {
		return cfg.Server.StaticDir
	}
	for _, p := range []string{"web", filepath.Join(config.DataDir(), "web")} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
