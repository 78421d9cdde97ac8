package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ayusman/posegate/internal/plugin"
)

var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "List discovered plugins",
	RunE:  runPlugins,
}

func init() {
	rootCmd.AddCommand(pluginsCmd)
}

func runPlugins(cmd *cobra.Command, _ []string) error {
	m := plugin.NewManager(cfg.Actuation.PluginDir, logger)
	if err := m.Discover(); err != nil {
		return fmt.Errorf("plugin discovery failed: %w", err)
	}

	list := m.List()
	if len(list) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No plugins in %s\n", m.PluginDir())
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tVERSION\tACTIONS\tDESCRIPTION")
	for _, p := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Manifest.Name, p.Manifest.Version,
			strings.Join(p.Manifest.Actions, ","), p.Manifest.Description)
	}
	return w.Flush()
}
