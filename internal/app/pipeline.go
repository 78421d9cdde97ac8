package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/posegate/internal/capture"
	"github.com/ayusman/posegate/internal/gesture"
	"github.com/ayusman/posegate/internal/pose"
)

// Run opens the camera and evaluates frames until ctx is done, the source
// runs out of frames, or the session reports a broken invariant. Capture
// runs at the idle rate until motion is seen.
//
// Pipeline per tick:
//  1. Read a frame and update the pacer from motion
//  2. Estimate keypoints (every tick, motion only sets the rate)
//  3. Classify, push and vote through the session
//  4. On fire: record, broadcast and queue for actuation
func (a *App) Run(ctx context.Context) error {
	if a.config.Camera == nil || a.config.Estimator == nil {
		return errors.New("run needs a camera and an estimator")
	}
	if !a.setRunning(true) {
		return ErrAlreadyRunning
	}
	defer a.setRunning(false)

	if err := a.config.Camera.Open(); err != nil {
		return fmt.Errorf("failed to open camera: %w", err)
	}
	defer func() {
		if err := a.config.Camera.Close(); err != nil {
			a.logger.Warn("error closing camera", "err", err)
		}
	}()

	motion := capture.NewMotionDetector(a.config.Motion)
	defer motion.Close()

	pacerCfg := a.config.Pacer
	if pacerCfg.Clock == nil {
		pacerCfg.Clock = a.clock
	}
	pacer := capture.NewPacer(pacerCfg)
	a.config.Camera.SetFPS(pacer.FPS())

	dctx, cancel := context.WithCancel(ctx)
	dispatcherDone := a.StartDispatcher(dctx)
	defer func() {
		cancel()
		<-dispatcherDone
	}()

	ticker := time.NewTicker(pacer.Interval())
	defer ticker.Stop()

	a.logger.Info("detection pipeline started", "session_id", a.sessionID, "fps", pacer.FPS())
	defer a.logger.Info("detection pipeline stopped", "session_id", a.sessionID)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if !a.IsEnabled() {
			continue
		}

		frame, err := a.config.Camera.ReadFrame()
		if errors.Is(err, capture.ErrNoFrames) {
			a.logger.Info("capture source exhausted")
			return nil
		}
		if err != nil {
			a.logger.Warn("error reading frame", "err", err)
			continue
		}

		moved, pct := motion.Detect(frame)
		if fps, changed := pacer.Observe(moved); changed {
			a.config.Camera.SetFPS(fps)
			ticker.Reset(pacer.Interval())
			a.logger.Debug("capture rate changed", "fps", fps, "active", pacer.Active(), "motion_pct", pct)
		}

		err = a.processMat(frame)
		frame.Close()

		var inv *gesture.InvariantError
		if errors.As(err, &inv) {
			a.logger.Error("session invariant broken, stopping", "err", err)
			return err
		}
	}
}

// processMat estimates keypoints on frame and feeds them to the session.
// Only invariant errors are returned; everything else is logged.
func (a *App) processMat(frame *gocv.Mat) error {
	kp, err := a.config.Estimator.Estimate(frame)
	if err != nil {
		a.logger.Warn("pose estimation failed", "err", err)
		return nil
	}

	if a.config.Preview {
		if err := a.preview.update(frame, kp, a.threshold); err != nil {
			a.logger.Warn("failed to encode preview", "err", err)
		}
	}

	ev, err := a.ProcessFrame(kp)
	var verr *gesture.ValidationError
	switch {
	case errors.As(err, &verr):
		a.logger.Debug("frame rejected", "field", verr.Field, "reason", verr.Reason)
		return nil
	case err != nil:
		return err
	}

	a.logger.Debug("frame evaluated", "provisional", ev.Provisional,
		"state", ev.Decision.State, "mode", ev.Decision.Mode, "mode_count", ev.Decision.ModeCount)
	return nil
}

// LatestFrame implements server.FrameSource.
func (a *App) LatestFrame() ([]byte, uint64, bool) {
	return a.preview.latest()
}

// previewBuffer holds the most recent annotated JPEG.
type previewBuffer struct {
	mu   sync.RWMutex
	jpeg []byte
	seq  uint64
}

func (p *previewBuffer) update(frame *gocv.Mat, kp pose.Frame, threshold float64) error {
	annotated := frame.Clone()
	defer annotated.Close()
	pose.Draw(&annotated, kp, threshold)

	buf, err := gocv.IMEncode(".jpg", annotated)
	if err != nil {
		return err
	}
	defer buf.Close()

	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())

	p.mu.Lock()
	p.jpeg = data
	p.seq++
	p.mu.Unlock()
	return nil
}

func (p *previewBuffer) latest() ([]byte, uint64, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.jpeg, p.seq, p.seq > 0
}
