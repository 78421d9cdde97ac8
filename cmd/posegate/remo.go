package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ayusman/posegate/internal/remo"
)

var remoCmd = &cobra.Command{
	Use:   "remo",
	Short: "Talk to the Nature Remo cloud API directly",
}

var remoLightCmd = &cobra.Command{
	Use:   "light",
	Short: "Press a light button on the configured appliance",
	RunE:  runRemoLight,
}

var remoAppliancesCmd = &cobra.Command{
	Use:   "appliances",
	Short: "List appliances visible to the token",
	RunE:  runRemoAppliances,
}

func init() {
	rootCmd.AddCommand(remoCmd)
	remoCmd.AddCommand(remoLightCmd, remoAppliancesCmd)

	remoLightCmd.Flags().String("appliance", "", "Appliance id (overrides config)")
	remoLightCmd.Flags().String("button", "", "Light button, e.g. on, off, night (overrides config)")
}

func newRemoClient() (*remo.Client, error) {
	if cfg.Remo.Token == "" {
		return nil, errors.New("no Nature Remo token: set REMO_TOKEN or remo.token")
	}
	return remo.New(remo.Config{
		BaseURL: cfg.Remo.BaseURL,
		Token:   cfg.Remo.Token,
		Timeout: cfg.Actuation.Timeout,
	})
}

func runRemoLight(cmd *cobra.Command, _ []string) error {
	appliance := mustGetString(cmd, "appliance")
	if appliance == "" {
		appliance = cfg.Remo.ApplianceID
	}
	if appliance == "" {
		return errors.New("no appliance: pass --appliance or set REMO_APPLIANCE_ID")
	}
	button := mustGetString(cmd, "button")
	if button == "" {
		button = cfg.Remo.Button
	}

	client, err := newRemoClient()
	if err != nil {
		return err
	}
	state, err := client.SendLight(cmd.Context(), appliance, button)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "power=%s brightness=%s last_button=%s\n", state.Power, state.Brightness, state.LastButton)
	return nil
}

func runRemoAppliances(cmd *cobra.Command, _ []string) error {
	client, err := newRemoClient()
	if err != nil {
		return err
	}
	appliances, err := client.Appliances(cmd.Context())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tNICKNAME")
	for _, a := range appliances {
		fmt.Fprintf(w, "%s\t%s\t%s\n", a.ID, a.Type, a.Nickname)
	}
	return w.Flush()
}
