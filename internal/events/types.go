package events

import "time"

// EventType represents different types of events in the system
type EventType string

const (
	// Tool run events
	EventTypeToolStarted   EventType = "tool.started"
	EventTypeToolStopped   EventType = "tool.stopped"
	EventTypeToolCompleted EventType = "tool.completed"
	EventTypeToolFailed    EventType = "tool.failed"
	EventTypeToolMatched   EventType = "tool.matched"

	// Profile events
	EventTypeProfileAdded   EventType = "profile.added"
	EventTypeProfileDeleted EventType = "profile.deleted"

	// Calibration events
	EventTypeCalibrationCompleted EventType = "calibration.completed"

	// Target window events
	EventTypeWindowLost  EventType = "window.lost"
	EventTypeWindowFound EventType = "window.found"

	EventTypeEmergencyStop EventType = "emergency.stop"

	// Error events
	EventTypeError EventType = "error"
)

// AllEventTypes lists every event type, for subscribers that want everything
var AllEventTypes = []EventType{
	EventTypeToolStarted,
	EventTypeToolStopped,
	EventTypeToolCompleted,
	EventTypeToolFailed,
	EventTypeToolMatched,
	EventTypeProfileAdded,
	EventTypeProfileDeleted,
	EventTypeCalibrationCompleted,
	EventTypeWindowLost,
	EventTypeWindowFound,
	EventTypeEmergencyStop,
	EventTypeError,
}

// Event represents a system event with metadata
type Event struct {
	Type      EventType              // Type of event
	Source    string                 // Component that emitted event (e.g., "tools", "emergency")
	Timestamp time.Time              // When the event occurred
	Data      map[string]interface{} // Event-specific data
}

// EventHandler is a function that processes an event
type EventHandler func(Event)

// SubscriptionID uniquely identifies a subscription
type SubscriptionID int64

// EventBus defines the interface for event pub/sub
type EventBus interface {
	// Subscribe registers a handler for a specific event type
	Subscribe(eventType EventType, handler EventHandler) SubscriptionID

	// Unsubscribe removes a subscription by ID
	Unsubscribe(id SubscriptionID)

	// Publish sends an event to all subscribers (blocking)
	Publish(event Event)

	// PublishAsync sends an event asynchronously (non-blocking)
	PublishAsync(event Event)

	// Stop stops the event bus and drains remaining events
	Stop()
}

// Helper functions to create common events

// NewToolStartedEvent creates a tool started event
func NewToolStartedEvent(toolID, toolName, kind string) Event {
	return Event{
		Type:      EventTypeToolStarted,
		Source:    "tools",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"tool_id":   toolID,
			"tool_name": toolName,
			"kind":      kind,
		},
	}
}

// NewToolFinishedEvent creates the terminal event of a run. The event type
// follows the outcome: completed, stopped, failed or matched.
func NewToolFinishedEvent(eventType EventType, toolID, toolName, status string, iterations int) Event {
	return Event{
		Type:      eventType,
		Source:    "tools",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"tool_id":    toolID,
			"tool_name":  toolName,
			"status":     status,
			"iterations": iterations,
		},
	}
}

// NewProfileEvent creates a profile added or deleted event
func NewProfileEvent(eventType EventType, toolID, toolName, kind string) Event {
	return Event{
		Type:      eventType,
		Source:    "tools",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"tool_id":   toolID,
			"tool_name": toolName,
			"kind":      kind,
		},
	}
}

// NewCalibrationEvent creates a calibration completed event
func NewCalibrationEvent(toolID, field, result string) Event {
	return Event{
		Type:      EventTypeCalibrationCompleted,
		Source:    "calibration",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"tool_id": toolID,
			"field":   field,
			"result":  result,
		},
	}
}

// NewWindowEvent creates a window lost or found event
func NewWindowEvent(eventType EventType, handle uintptr) Event {
	return Event{
		Type:      eventType,
		Source:    "window_watcher",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"handle": handle,
		},
	}
}

// NewEmergencyStopEvent creates an emergency stop event
func NewEmergencyStopEvent(key string, stopped int) Event {
	return Event{
		Type:      EventTypeEmergencyStop,
		Source:    "emergency",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"key":           key,
			"tools_stopped": stopped,
		},
	}
}

// NewErrorEvent creates an error event
func NewErrorEvent(source, component string, err error, metadata map[string]interface{}) Event {
	data := map[string]interface{}{
		"source":    source,
		"component": component,
		"error":     err.Error(),
	}

	// Merge metadata
	for k, v := range metadata {
		data[k] = v
	}

	return Event{
		Type:      EventTypeError,
		Source:    source,
		Timestamp: time.Now(),
		Data:      data,
	}
}
