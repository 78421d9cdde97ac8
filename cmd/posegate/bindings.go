package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ayusman/posegate/internal/gesture"
	"github.com/ayusman/posegate/internal/plugin"
	"github.com/ayusman/posegate/internal/store"
)

var bindingsCmd = &cobra.Command{
	Use:   "bindings",
	Short: "Manage which plugin actions run for each gesture",
}

var bindingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List bindings",
	RunE:  runBindingsList,
}

var bindingsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Bind a gesture to a plugin action",
	Example: `  posegate bindings add --label LEFT_WRIST_UP --plugin nature-remo --action on \
    --plugin-config '{"appliance_id": "abc"}'`,
	RunE: runBindingsAdd,
}

var bindingsRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a binding",
	Args:  cobra.ExactArgs(1),
	RunE:  runBindingsRm,
}

func init() {
	rootCmd.AddCommand(bindingsCmd)
	bindingsCmd.AddCommand(bindingsListCmd, bindingsAddCmd, bindingsRmCmd)

	bindingsAddCmd.Flags().String("label", string(gesture.LeftWristUp), "Gesture label")
	bindingsAddCmd.Flags().String("plugin", "", "Plugin name")
	bindingsAddCmd.Flags().String("action", "", "Plugin action")
	bindingsAddCmd.Flags().String("plugin-config", "", "JSON object passed to the plugin")
	bindingsAddCmd.Flags().Bool("disabled", false, "Create the binding disabled")
	_ = bindingsAddCmd.MarkFlagRequired("plugin")
	_ = bindingsAddCmd.MarkFlagRequired("action")
}

func runBindingsList(cmd *cobra.Command, _ []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	bindings, err := st.Bindings().List()
	if err != nil {
		return fmt.Errorf("failed to list bindings: %w", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tLABEL\tPLUGIN\tACTION\tENABLED\tCONFIG")
	for _, b := range bindings {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\t%s\n", b.ID, b.Label, b.PluginName, b.ActionName, b.Enabled, string(b.Config))
	}
	return w.Flush()
}

func runBindingsAdd(cmd *cobra.Command, _ []string) error {
	label, err := gesture.ParseLabel(mustGetString(cmd, "label"))
	if err != nil {
		return err
	}
	if label.IsNone() {
		return errors.New("cannot bind an action to NONE")
	}

	pluginName, action := mustGetString(cmd, "plugin"), mustGetString(cmd, "action")
	plugins := plugin.NewManager(cfg.Actuation.PluginDir, logger)
	if err := plugins.Discover(); err != nil {
		return fmt.Errorf("plugin discovery failed: %w", err)
	}
	p, err := plugins.Get(pluginName)
	if err != nil {
		return fmt.Errorf("%w: %s (looked in %s)", err, pluginName, plugins.PluginDir())
	}
	if !p.Manifest.SupportsAction(action) {
		return fmt.Errorf("plugin %s has no action %q (has %v)", pluginName, action, p.Manifest.Actions)
	}

	var raw json.RawMessage
	if c := mustGetString(cmd, "plugin-config"); c != "" {
		var obj map[string]any
		if err := json.Unmarshal([]byte(c), &obj); err != nil {
			return fmt.Errorf("--plugin-config must be a JSON object: %w", err)
		}
		raw = json.RawMessage(c)
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	b := &store.Binding{
		ID:         uuid.NewString(),
		Label:      string(label),
		PluginName: pluginName,
		ActionName: action,
		Config:     raw,
		Enabled:    !mustGetBool(cmd, "disabled"),
	}
	if err := st.Bindings().Create(b); err != nil {
		return fmt.Errorf("failed to create binding: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created binding %s: %s -> %s/%s\n", b.ID, b.Label, b.PluginName, b.ActionName)
	return nil
}

func runBindingsRm(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Bindings().Delete(args[0]); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("binding %s not found", args[0])
		}
		return fmt.Errorf("failed to delete binding: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted binding %s\n", args[0])
	return nil
}
