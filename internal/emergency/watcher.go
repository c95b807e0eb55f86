// Package emergency stops every tool when the emergency key is pressed,
// whichever window has focus.
package emergency

import (
	"context"
	"sync"
	"time"

	"jordanella.com/game-helper-go/internal/events"
	"jordanella.com/game-helper-go/internal/logging"
	"jordanella.com/game-helper-go/internal/window"
)

// DefaultInterval is how often the key state is polled
const DefaultInterval = 50 * time.Millisecond

// KeyPoller reads the process-wide key state
type KeyPoller interface {
	IsKeyDown(key window.Key) bool
}

// Registry is what gets stopped
type Registry interface {
	StopAll() int
}

// StopCallback runs after an emergency stop, e.g. to refresh the UI
type StopCallback func(stopped int)

// Watcher polls one key and stops the registry on each fresh press
type Watcher struct {
	poller   KeyPoller
	registry Registry
	key      window.Key
	interval time.Duration
	bus      events.EventBus
	onStop   StopCallback
	logger   *logging.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	wasDown bool
}

// NewWatcher creates a stopped watcher
func NewWatcher(poller KeyPoller, registry Registry, key window.Key) *Watcher {
	return &Watcher{
		poller:   poller,
		registry: registry,
		key:      key,
		interval: DefaultInterval,
		logger:   logging.NewLogger("EmergencyStop"),
	}
}

// WithInterval sets the poll interval
func (w *Watcher) WithInterval(interval time.Duration) *Watcher {
	if interval > 0 {
		w.interval = interval
	}
	return w
}

// WithEventBus publishes emergency.stop events to bus
func (w *Watcher) WithEventBus(bus events.EventBus) *Watcher {
	w.bus = bus
	return w
}

// WithStopCallback sets the callback run after each emergency stop
func (w *Watcher) WithStopCallback(callback StopCallback) *Watcher {
	w.onStop = callback
	return w
}

// Start begins polling. Calling Start on a running watcher does nothing.
func (w *Watcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	// A key held while starting is not a press
	w.wasDown = w.poller.IsKeyDown(w.key)

	w.wg.Add(1)
	go w.poll(ctx)
	w.logger.Info("Watching " + w.key.String())
}

// Stop ends polling and waits for the poll goroutine to exit
func (w *Watcher) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
		w.wg.Wait()
	}
}

func (w *Watcher) poll(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.check()
		}
	}
}

// check triggers on the up-to-down edge only
func (w *Watcher) check() {
	down := w.poller.IsKeyDown(w.key)

	w.mu.Lock()
	pressed := down && !w.wasDown
	w.wasDown = down
	w.mu.Unlock()

	if pressed {
		w.trigger()
	}
}

func (w *Watcher) trigger() {
	stopped := w.registry.StopAll()
	w.logger.WarnWithContext("Emergency stop", map[string]interface{}{
		"key":           w.key.String(),
		"tools_stopped": stopped,
	})
	if w.bus != nil {
		w.bus.Publish(events.NewEmergencyStopEvent(w.key.String(), stopped))
	}
	if w.onStop != nil {
		w.onStop(stopped)
	}
}
