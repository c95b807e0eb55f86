// Package monitor keeps track of the target window outside of any tool run.
package monitor

import (
	"context"
	"sync"
	"time"

	"jordanella.com/game-helper-go/internal/events"
	"jordanella.com/game-helper-go/internal/logging"
	"jordanella.com/game-helper-go/internal/window"
)

// DefaultCheckInterval is how often the cached handle is revalidated
const DefaultCheckInterval = time.Second

// Stopper is stopped when the window disappears and auto-stop is enabled
type Stopper interface {
	StopAll() int
}

// ChangeCallback is called when the window is lost or found
type ChangeCallback func(h window.Handle, found bool)

// WindowWatcher caches the target window handle, revalidates it on a timer
// and re-finds the window after it closes
type WindowWatcher struct {
	finder        window.Finder
	checkInterval time.Duration
	bus           events.EventBus
	stopper       Stopper
	onChange      ChangeCallback
	logger        *logging.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	handle window.Handle
	found  bool
}

// NewWindowWatcher creates a watcher. Call Start to begin periodic checks.
func NewWindowWatcher(finder window.Finder) *WindowWatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &WindowWatcher{
		finder:        finder,
		checkInterval: DefaultCheckInterval,
		logger:        logging.NewLogger("WindowWatcher"),
		ctx:           ctx,
		cancel:        cancel,
	}
}

// WithCheckInterval sets the revalidation interval
func (ww *WindowWatcher) WithCheckInterval(interval time.Duration) *WindowWatcher {
	if interval > 0 {
		ww.checkInterval = interval
	}
	return ww
}

// WithEventBus publishes window.lost and window.found
func (ww *WindowWatcher) WithEventBus(bus events.EventBus) *WindowWatcher {
	ww.bus = bus
	return ww
}

// WithStopOnLoss stops every tool when the window is lost
func (ww *WindowWatcher) WithStopOnLoss(stopper Stopper) *WindowWatcher {
	ww.stopper = stopper
	return ww
}

// WithChangeCallback sets the callback for lost/found transitions
func (ww *WindowWatcher) WithChangeCallback(callback ChangeCallback) *WindowWatcher {
	ww.onChange = callback
	return ww
}

// Start checks once, then begins periodic checks
func (ww *WindowWatcher) Start() {
	ww.Check()
	ww.wg.Add(1)
	go ww.monitor()
}

// Stop stops periodic checks
func (ww *WindowWatcher) Stop() {
	ww.cancel()
	ww.wg.Wait()
}

// Handle returns the cached handle. When none is cached it tries to find
// the window right away, so the UI never waits a full interval.
func (ww *WindowWatcher) Handle() (window.Handle, bool) {
	ww.mu.RLock()
	h, found := ww.handle, ww.found
	ww.mu.RUnlock()
	if found {
		return h, true
	}
	ww.Check()

	ww.mu.RLock()
	defer ww.mu.RUnlock()
	return ww.handle, ww.found
}

// Current returns the cached handle without searching for the window
func (ww *WindowWatcher) Current() (window.Handle, bool) {
	ww.mu.RLock()
	defer ww.mu.RUnlock()
	return ww.handle, ww.found
}

func (ww *WindowWatcher) monitor() {
	defer ww.wg.Done()

	ticker := time.NewTicker(ww.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ww.ctx.Done():
			return
		case <-ticker.C:
			ww.Check()
		}
	}
}

// Check revalidates the cached handle and looks the window up again when it
// is gone
func (ww *WindowWatcher) Check() {
	ww.mu.Lock()
	lost := window.Handle(0)
	if ww.found && !ww.finder.IsValid(ww.handle) {
		lost = ww.handle
		ww.found = false
		ww.handle = 0
	}
	var newHandle window.Handle
	if !ww.found {
		if h, ok := ww.finder.FindTarget(); ok {
			ww.handle = h
			ww.found = true
			newHandle = h
		}
	}
	ww.mu.Unlock()

	if lost != 0 {
		ww.windowLost(lost)
	}
	if newHandle != 0 {
		ww.windowFound(newHandle)
	}
}

func (ww *WindowWatcher) windowLost(h window.Handle) {
	ww.logger.WarnWithContext("Target window lost", map[string]interface{}{"handle": uintptr(h)})
	if ww.stopper != nil {
		if n := ww.stopper.StopAll(); n > 0 {
			ww.logger.Info("Stopped running tools after window loss")
		}
	}
	ww.publish(events.NewWindowEvent(events.EventTypeWindowLost, uintptr(h)))
	if ww.onChange != nil {
		ww.onChange(h, false)
	}
}

func (ww *WindowWatcher) windowFound(h window.Handle) {
	ww.logger.InfoWithContext("Target window found", map[string]interface{}{"handle": uintptr(h)})
	ww.publish(events.NewWindowEvent(events.EventTypeWindowFound, uintptr(h)))
	if ww.onChange != nil {
		ww.onChange(h, true)
	}
}

func (ww *WindowWatcher) publish(e events.Event) {
	if ww.bus != nil {
		ww.bus.Publish(e)
	}
}
