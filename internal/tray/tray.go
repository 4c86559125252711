// Package tray provides a system tray interface for headless touchsurface runs.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/touchsurface/internal/app"
)

// Tray represents the system tray application. It observes the frame loop
// to show the live touch count.
type Tray struct {
	onToggle func(tracking bool)
	onViewer func()
	onQuit   func()
	tracking bool
	touches  int
	mu       sync.RWMutex

	// Menu items stored for later updates
	menuToggle  *systray.MenuItem
	menuTouches *systray.MenuItem
}

// New creates a new Tray instance with tracking enabled.
func New() *Tray {
	return &Tray{
		tracking: true,
	}
}

// OnToggle sets the callback function to be called when tracking is paused or resumed.
func (t *Tray) OnToggle(fn func(tracking bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnViewer sets the callback function to be called when the viewer menu item is clicked.
func (t *Tray) OnViewer(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onViewer = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit stops the tray, making Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("touchsurface")
	systray.SetTooltip("touchsurface fingertip tracking")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.tracking), "Pause or resume tracking")
	systray.AddSeparator()

	t.menuTouches = systray.AddMenuItem(touchesTitle(t.touches), "Live touch count")
	t.menuTouches.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuViewer := systray.AddMenuItem("Open Viewer...", "Open the live overlay in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit touchsurface")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuViewer.ClickedCh:
				t.handleViewer()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {}

func toggleTitle(tracking bool) string {
	if tracking {
		return "● Tracking"
	}
	return "○ Paused"
}

func touchesTitle(n int) string {
	return fmt.Sprintf("Touches: %d", n)
}

// handleToggle handles the toggle menu item click.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.tracking = !t.tracking
	tracking := t.tracking

	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(tracking))
	}

	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(tracking)
	}
}

// handleViewer handles the viewer menu item click.
func (t *Tray) handleViewer() {
	t.mu.RLock()
	callback := t.onViewer
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// Observe updates the touch count from a frame result.
func (t *Tray) Observe(r app.FrameResult) {
	t.SetTouchCount(len(r.Fingers))
}

// SetTouchCount updates the touch count display in the menu.
func (t *Tray) SetTouchCount(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if n == t.touches {
		return
	}
	t.touches = n

	if t.menuTouches != nil {
		t.menuTouches.SetTitle(touchesTitle(n))
	}
}

// TouchCount returns the last reported touch count.
func (t *Tray) TouchCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.touches
}

// IsTracking returns whether tracking is enabled.
func (t *Tray) IsTracking() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.tracking
}
