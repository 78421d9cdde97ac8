package gesture

import "fmt"

// DefaultCapacity is the number of frames a window holds when none is configured.
const DefaultCapacity = 10

// Window is a fixed-capacity FIFO of provisional labels. Pushing into a full
// window evicts the oldest label. It is emptied only by Clear.
type Window struct {
	buf  []Label
	head int // index of the oldest label
	size int
}

// NewWindow creates an empty window holding up to capacity labels.
func NewWindow(capacity int) (*Window, error) {
	if capacity < 1 {
		return nil, &ValidationError{Field: "capacity", Reason: fmt.Sprintf("%d is less than 1", capacity)}
	}
	return &Window{buf: make([]Label, capacity)}, nil
}

// Push appends label, evicting the oldest entry first if the window is full.
func (w *Window) Push(label Label) {
	if w.size < len(w.buf) {
		w.buf[(w.head+w.size)%len(w.buf)] = label
		w.size++
		return
	}
	w.buf[w.head] = label
	w.head = (w.head + 1) % len(w.buf)
}

// IsFull reports whether the window holds capacity labels.
func (w *Window) IsFull() bool {
	return w.size == len(w.buf)
}

// Len returns the number of labels held.
func (w *Window) Len() int {
	return w.size
}

// Cap returns the window capacity.
func (w *Window) Cap() int {
	return len(w.buf)
}

// Clear empties the window.
func (w *Window) Clear() {
	for i := range w.buf {
		w.buf[i] = ""
	}
	w.head = 0
	w.size = 0
}

// Contents returns a copy of the held labels, oldest first.
func (w *Window) Contents() []Label {
	out := make([]Label, w.size)
	for i := 0; i < w.size; i++ {
		out[i] = w.buf[(w.head+i)%len(w.buf)]
	}
	return out
}

// check verifies the ring bookkeeping.
func (w *Window) check() error {
	if len(w.buf) == 0 {
		return &InvariantError{What: "window has zero capacity"}
	}
	if w.size < 0 || w.size > len(w.buf) {
		return &InvariantError{What: fmt.Sprintf("window holds %d labels, capacity %d", w.size, len(w.buf))}
	}
	if w.head < 0 || w.head >= len(w.buf) {
		return &InvariantError{What: fmt.Sprintf("window head %d out of range", w.head)}
	}
	return nil
}
