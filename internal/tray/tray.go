// Package tray provides the menu bar icon for posegate: a detection
// toggle, the last fired gesture and a link to the local control page.
package tray

import (
	"fmt"
	"sync"
	"time"

	"github.com/getlantern/systray"

	"github.com/ayusman/posegate/internal/gesture"
)

// Tray represents the menu bar application.
type Tray struct {
	onToggle func(enabled bool) error
	onOpen   func()
	onQuit   func()
	enabled  bool
	mu       sync.RWMutex

	menuToggle    *systray.MenuItem
	menuLastFired *systray.MenuItem
}

// New creates a Tray showing the given initial detection state.
func New(enabled bool) *Tray {
	return &Tray{enabled: enabled}
}

// OnToggle sets the callback run when the user flips detection. If it
// returns an error the menu keeps its previous state.
func (t *Tray) OnToggle(fn func(enabled bool) error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnOpen sets the callback run by "Open Control Page...".
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback run before the tray exits.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the tray. It blocks until Quit.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

// Quit closes the tray from outside the menu.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("posegate")
	systray.SetTooltip("posegate gesture trigger")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle gesture detection")
	systray.AddSeparator()
	t.menuLastFired = systray.AddMenuItem(lastTitle("", time.Time{}), "Last fired gesture")
	t.menuLastFired.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuOpen := systray.AddMenuItem("Open Control Page...", "Open the control page in a browser")
	systray.AddSeparator()
	menuQuit := systray.AddMenuItem("Quit", "Quit posegate")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuOpen.ClickedCh:
				t.handleOpen()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) handleToggle() {
	t.mu.RLock()
	next := !t.enabled
	callback := t.onToggle
	t.mu.RUnlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		if err := callback(next); err != nil {
			return
		}
	}
	t.SetEnabled(next)
}

func (t *Tray) handleOpen() {
	t.mu.RLock()
	callback := t.onOpen
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
	systray.Quit()
}

// SetEnabled updates the displayed detection state.
func (t *Tray) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
}

// SetLastFired shows ev as the last fired gesture.
func (t *Tray) SetLastFired(ev gesture.Event) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.menuLastFired != nil {
		t.menuLastFired.SetTitle(lastTitle(ev.Label, ev.Time))
	}
}

// IsEnabled returns the displayed detection state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Detecting"
	}
	return "○ Paused"
}

func lastTitle(label gesture.Label, at time.Time) string {
	if label.IsNone() {
		return "Last: none"
	}
	return fmt.Sprintf("Last: %s at %s", label, at.Format("15:04:05"))
}
