package server

import (
	"fmt"
	"net/http"
	"time"
)

// FrameSource provides the latest preview frame as JPEG. seq increases
// with every new frame; ok is false until a frame exists.
type FrameSource interface {
	LatestFrame() (jpeg []byte, seq uint64, ok bool)
}

// streamInterval caps the preview at roughly 15 FPS.
const streamInterval = 66 * time.Millisecond

// StreamHandler serves the annotated preview as MJPEG.
type StreamHandler struct {
	frames   FrameSource
	interval time.Duration
}

// NewStreamHandler creates a new StreamHandler over frames.
func NewStreamHandler(frames FrameSource) *StreamHandler {
	return &StreamHandler{frames: frames, interval: streamInterval}
}

// ServeHTTP streams MJPEG frames to connected clients. A frame is written
// only when the source has a newer one.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	var last uint64
	for {
		if buf, seq, ok := h.frames.LatestFrame(); ok && seq != last {
			last = seq
			if err := writePart(w, buf); err != nil {
				return
			}
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

func writePart(w http.ResponseWriter, jpeg []byte) error {
	if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(jpeg)); err != nil {
		return err
	}
	if _, err := w.Write(jpeg); err != nil {
		return err
	}
	_, err := fmt.Fprint(w, "\r\n")
	return err
}
