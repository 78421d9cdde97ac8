package server

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeFrames struct {
	mu  sync.Mutex
	buf []byte
	seq uint64
}

func (f *fakeFrames) LatestFrame() ([]byte, uint64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.buf, f.seq, f.seq > 0
}

func (f *fakeFrames) set(b []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buf = b
	f.seq++
}

func TestStreamHandler_WritesNewFrames(t *testing.T) {
	frames := &fakeFrames{}
	frames.set([]byte("JPEG-1"))

	h := NewStreamHandler(frames)
	h.interval = 5 * time.Millisecond
	ts := httptest.NewServer(h)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL, nil)
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("GET stream error = %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "multipart/x-mixed-replace") {
		t.Errorf("Content-Type = %q", ct)
	}

	r := bufio.NewReader(resp.Body)
	readPart := func() string {
		t.Helper()
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				t.Fatalf("read stream: %v", err)
			}
			if line == "\r\n" {
				break
			}
		}
		body := make([]byte, len("JPEG-1"))
		if _, err := io.ReadFull(r, body); err != nil {
			t.Fatalf("read part body: %v", err)
		}
		return string(body)
	}

	if got := readPart(); got != "JPEG-1" {
		t.Errorf("first part = %q", got)
	}
	frames.set([]byte("JPEG-2"))
	if got := readPart(); got != "JPEG-2" {
		t.Errorf("second part = %q", got)
	}
}

func TestStreamHandler_MethodNotAllowed(t *testing.T) {
	h := NewStreamHandler(&fakeFrames{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/stream", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d", rec.Code)
	}
}
