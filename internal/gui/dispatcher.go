package gui

import (
	"sync"
	"time"

	"fyne.io/fyne/v2"

	"jordanella.com/game-helper-go/internal/logging"
)

// UIEventType identifies a queued widget update
type UIEventType int

const (
	UIEventLog UIEventType = iota
	UIEventHistoryChanged
	UIEventProfilesChanged
	UIEventDialogError
	UIEventDialogInfo
)

// UIEvent is a widget update produced off the main thread
type UIEvent struct {
	Type UIEventType
	Data map[string]interface{}
}

// UIHandler applies one update; it runs on the Fyne main thread
type UIHandler func(UIEvent)

// Dispatcher queues widget updates from background goroutines and applies
// them on the main thread in batches
type Dispatcher struct {
	events   chan UIEvent
	handlers map[UIEventType][]UIHandler
	mu       sync.RWMutex
	stopCh   chan struct{}
	stopOnce sync.Once
	logger   *logging.Logger
}

// NewDispatcher creates a dispatcher with a bounded queue
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		events:   make(chan UIEvent, 256),
		handlers: make(map[UIEventType][]UIHandler),
		stopCh:   make(chan struct{}),
		logger:   logging.NewLogger("UIDispatcher"),
	}
}

// Subscribe registers a handler for one update type
func (d *Dispatcher) Subscribe(t UIEventType, handler UIHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[t] = append(d.handlers[t], handler)
}

// Post queues an update. A full queue drops the update rather than block a tool.
func (d *Dispatcher) Post(e UIEvent) {
	select {
	case d.events <- e:
	case <-d.stopCh:
	default:
		d.logger.Warn("UI queue full, dropping update")
	}
}

// Start drains the queue every interval
func (d *Dispatcher) Start(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				d.drain()
			case <-d.stopCh:
				return
			}
		}
	}()
}

// Stop ends draining; later posts are ignored
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() { close(d.stopCh) })
}

func (d *Dispatcher) drain() {
	var batch []UIEvent
	for {
		select {
		case e := <-d.events:
			batch = append(batch, e)
			continue
		default:
		}
		break
	}
	if len(batch) == 0 {
		return
	}
	fyne.Do(func() {
		for _, e := range batch {
			d.dispatch(e)
		}
	})
}

func (d *Dispatcher) dispatch(e UIEvent) {
	d.mu.RLock()
	handlers := d.handlers[e.Type]
	d.mu.RUnlock()
	for _, h := range handlers {
		h(e)
	}
}

func logEvent(level LogLevel, source, message string) UIEvent {
	return UIEvent{Type: UIEventLog, Data: map[string]interface{}{
		"level":   level,
		"source":  source,
		"message": message,
	}}
}

func errorDialogEvent(message string) UIEvent {
	return UIEvent{Type: UIEventDialogError, Data: map[string]interface{}{"message": message}}
}

func infoDialogEvent(title, message string) UIEvent {
	return UIEvent{Type: UIEventDialogInfo, Data: map[string]interface{}{"title": title, "message": message}}
}
