package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayusman/posegate/internal/app"
	"github.com/ayusman/posegate/internal/gesture"
	"github.com/ayusman/posegate/internal/plugin"
	"github.com/ayusman/posegate/internal/pose"
	"github.com/ayusman/posegate/testdata"
)

var replayCmd = &cobra.Command{
	Use:   "replay [file.jsonl | -]",
	Short: "Run recorded keypoint frames through a session",
	Long: `Replay a JSON Lines keypoint recording through a fresh session and print
every fired gesture. Each line is {"t": ms, "keypoints": [[y, x, score], ...]}.
Use "-" to read stdin, or --fixture to replay an embedded sequence.

By default nothing is stored or actuated. --record writes fired events to
the event log and --actuate sends them to the configured actuators.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().String("fixture", "", "Replay an embedded sequence by name (see --list-fixtures)")
	replayCmd.Flags().Bool("list-fixtures", false, "List embedded sequences and exit")
	replayCmd.Flags().Bool("record", false, "Write fired events to the event log")
	replayCmd.Flags().Bool("actuate", false, "Send fired events to the configured actuators")
	replayCmd.Flags().Bool("verbose", false, "Print every frame, not only fired ones")
}

func runReplay(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if mustGetBool(cmd, "list-fixtures") {
		for _, name := range testdata.Sequences() {
			fmt.Fprintln(out, name)
		}
		return nil
	}

	frames, err := loadReplayFrames(cmd, args)
	if err != nil {
		return err
	}

	acfg := app.FromConfig(cfg)
	acfg.Logger = logger
	acfg.IgnoreToggle = true

	record, actuate := mustGetBool(cmd, "record"), mustGetBool(cmd, "actuate")
	if record || actuate {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()
		if record {
			acfg.Store = st
		}
		if actuate {
			plugins := plugin.NewManager(cfg.Actuation.PluginDir, logger)
			if err := plugins.Discover(); err != nil {
				logger.Warn("plugin discovery failed", "err", err)
			}
			if acfg.Actuator, err = app.NewActuator(cfg, st, plugins, logger); err != nil {
				return err
			}
		}
	}

	pipeline, err := app.New(acfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	done := pipeline.StartDispatcher(ctx)

	verbose := mustGetBool(cmd, "verbose")
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FRAME\tPROVISIONAL\tSTATE\tMODE\tCOUNT\tFIRED")

	var fired int
	for i, f := range frames {
		ev, err := pipeline.ProcessFrame(f)
		var verr *gesture.ValidationError
		switch {
		case errors.As(err, &verr):
			fmt.Fprintf(w, "%d\t-\trejected\t%s\t\t\n", i+1, verr.Reason)
			continue
		case err != nil:
			cancel()
			<-done
			return fmt.Errorf("frame %d: %w", i+1, err)
		}
		if ev.Fired() {
			fired++
		}
		if verbose || ev.Fired() {
			writeReplayRow(w, ev)
		}
	}
	w.Flush()

	if actuate {
		waitDrained(pipeline, 10*time.Second)
	}
	cancel()
	<-done

	snap := pipeline.Status().Session
	fmt.Fprintf(out, "\n%d frames, %d rejected, %d fired (window %d, required %d)\n",
		len(frames), snap.Stats.Rejected, fired, snap.Capacity, snap.Required)
	return nil
}

func writeReplayRow(w io.Writer, ev gesture.Event) {
	mode := string(ev.Decision.Mode)
	if mode == "" {
		mode = "-"
	}
	label := ""
	if ev.Fired() {
		label = string(ev.Label)
	}
	fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d/%d\t%s\n",
		ev.Frame, ev.Provisional, ev.Decision.State, mode, ev.Decision.ModeCount, ev.Decision.Required, label)
}

func loadReplayFrames(cmd *cobra.Command, args []string) ([]pose.Frame, error) {
	if name := mustGetString(cmd, "fixture"); name != "" {
		if len(args) > 0 {
			return nil, errors.New("give either a file or --fixture, not both")
		}
		return testdata.LoadSequence(name)
	}
	if len(args) == 0 {
		return nil, errors.New("no input: pass a file, - for stdin, or --fixture")
	}

	var r io.Reader = cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	return pose.ReadFrames(r)
}

// waitDrained waits until every submitted job has been handled or the
// timeout passes.
func waitDrained(pipeline *app.App, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		s := pipeline.Dispatcher().Stats()
		if s.Succeeded+s.Failed+s.Suppressed >= s.Submitted {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	logger.Warn("replay finished with actuations still pending")
}
