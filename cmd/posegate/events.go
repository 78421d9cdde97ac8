package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayusman/posegate/internal/gesture"
	"github.com/ayusman/posegate/internal/store"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect the fired-event log",
}

var eventsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent fired events, newest first",
	RunE:  runEventsList,
}

var eventsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete events older than a given age",
	RunE:  runEventsPrune,
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsListCmd, eventsPruneCmd)

	eventsListCmd.Flags().Int("limit", 20, "Maximum number of events")
	eventsListCmd.Flags().String("label", "", "Only events with this label")
	eventsListCmd.Flags().String("session", "", "Only events from this session id")
	eventsListCmd.Flags().Duration("since", 0, "Only events newer than this age, e.g. 24h")

	eventsPruneCmd.Flags().Duration("older-than", 30*24*time.Hour, "Delete events fired before this age")
}

func runEventsList(cmd *cobra.Command, _ []string) error {
	filter := store.EventFilter{
		SessionID: mustGetString(cmd, "session"),
		Limit:     mustGetInt(cmd, "limit"),
	}
	if l := mustGetString(cmd, "label"); l != "" {
		label, err := gesture.ParseLabel(l)
		if err != nil {
			return err
		}
		filter.Label = string(label)
	}
	if since := mustGetDuration(cmd, "since"); since > 0 {
		filter.Since = time.Now().Add(-since)
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	events, err := st.Events().List(filter)
	if err != nil {
		return fmt.Errorf("failed to list events: %w", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FIRED AT\tLABEL\tVOTES\tFRAME\tACTUATED\tERROR\tID")
	for _, e := range events {
		fmt.Fprintf(w, "%s\t%s\t%d/%d\t%d\t%t\t%s\t%s\n",
			e.FiredAt.Local().Format(time.DateTime), e.Label, e.ModeCount, e.Capacity,
			e.Frame, e.Actuated, e.Error, e.ID)
	}
	return w.Flush()
}

func runEventsPrune(cmd *cobra.Command, _ []string) error {
	age := mustGetDuration(cmd, "older-than")
	if age <= 0 {
		return fmt.Errorf("--older-than must be positive")
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	n, err := st.Events().Prune(time.Now().Add(-age))
	if err != nil {
		return fmt.Errorf("failed to prune events: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d events\n", n)
	return nil
}
