package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayusman/posegate/internal/capture"
	"github.com/ayusman/posegate/internal/pose"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record estimated keypoints to a JSON Lines file",
	Long: `Capture frames, estimate keypoints and write one JSON line per frame.
The output can be fed back with "posegate replay".`,
	RunE: runRecord,
}

func init() {
	rootCmd.AddCommand(recordCmd)

	recordCmd.Flags().StringP("out", "o", "-", "Output file, - for stdout")
	recordCmd.Flags().Int("frames", 100, "Number of frames to record")
	recordCmd.Flags().String("camera", "", "Camera device index or video file/URL (overrides config)")
}

func runRecord(cmd *cobra.Command, _ []string) error {
	if cam := mustGetString(cmd, "camera"); cam != "" {
		cfg.Camera.Source = cam
	}
	n := mustGetInt(cmd, "frames")
	if n <= 0 {
		return errors.New("--frames must be positive")
	}

	var out io.Writer = cmd.OutOrStdout()
	if path := mustGetString(cmd, "out"); path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	estimator, err := newEstimator(cfg)
	if err != nil {
		return err
	}
	defer estimator.Close()

	camera := capture.NewCamera(cfg.Camera)
	if err := camera.Open(); err != nil {
		return fmt.Errorf("failed to open camera: %w", err)
	}
	defer camera.Close()

	ticker := time.NewTicker(time.Second / time.Duration(camera.FPS()))
	defer ticker.Stop()

	w := pose.NewFrameWriter(out)
	start := time.Now()
	written := 0
	for written < n {
		select {
		case <-ctx.Done():
			logger.Info("recording interrupted", "frames", written)
			return nil
		case <-ticker.C:
		}

		frame, err := camera.ReadFrame()
		if errors.Is(err, capture.ErrNoFrames) {
			break
		}
		if err != nil {
			logger.Warn("error reading frame", "err", err)
			continue
		}
		kp, err := estimator.Estimate(frame)
		frame.Close()
		if err != nil {
			logger.Warn("pose estimation failed", "err", err)
			continue
		}

		kp.Timestamp = time.Since(start).Milliseconds()
		if err := w.Write(kp); err != nil {
			return fmt.Errorf("failed to write frame: %w", err)
		}
		written++
	}

	logger.Info("recording finished", "frames", written)
	return nil
}
