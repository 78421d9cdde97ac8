package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ayusman/posegate/internal/plugin"
	"github.com/ayusman/posegate/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the control API without the camera pipeline",
	Long: `Serve bindings, the event log, plugins and the detection toggle over
HTTP. Useful for editing bindings while the pipeline runs elsewhere; the
toggle is persisted and read by the next run.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "HTTP listen address (overrides config)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	if addr := mustGetString(cmd, "addr"); addr != "" {
		cfg.Server.Addr = addr
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

	srv := server.New(server.Config{
		StaticDir: staticDir(cfg),
		Store:     st,
		Plugins:   plugins,
		Logger:    logger,
	})
	return srv.Run(ctx, cfg.Server.Addr)
}
