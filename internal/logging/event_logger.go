package logging

import (
	"fmt"
	"os"

	"jordanella.com/game-helper-go/internal/events"
)

// EventLogger subscribes to the event bus and writes every event to a log file
type EventLogger struct {
	logger          *Logger
	eventBus        events.EventBus
	subscriptionIDs []events.SubscriptionID
	logFile         *os.File
}

// Subscriber is the part of the bus EventLogger needs
type Subscriber interface {
	events.EventBus
	SubscribeAll(handler events.EventHandler) []events.SubscriptionID
}

// NewEventLogger creates a new event logger writing to logDir/events_<timestamp>.log
func NewEventLogger(eventBus Subscriber, logDir string) (*EventLogger, error) {
	logFile, err := OpenLogFile(logDir, "events")
	if err != nil {
		return nil, err
	}

	logger := NewLogger("EventLogger")
	logger.AddOutput(logFile)

	el := &EventLogger{
		logger:   logger,
		eventBus: eventBus,
		logFile:  logFile,
	}
	el.subscriptionIDs = eventBus.SubscribeAll(el.handleEvent)

	return el, nil
}

// handleEvent handles incoming events and logs them
func (el *EventLogger) handleEvent(event events.Event) {
	context := map[string]interface{}{
		"event_type": string(event.Type),
		"source":     event.Source,
	}
	for k, v := range event.Data {
		context[k] = v
	}

	switch event.Type {
	case events.EventTypeToolFailed, events.EventTypeError:
		el.logger.WarnWithContext(fmt.Sprintf("Event: %s", event.Type), context)
	default:
		el.logger.InfoWithContext(fmt.Sprintf("Event: %s", event.Type), context)
	}
}

// Close unsubscribes and closes the log file
func (el *EventLogger) Close() error {
	for _, id := range el.subscriptionIDs {
		el.eventBus.Unsubscribe(id)
	}
	el.subscriptionIDs = nil

	if el.logFile != nil {
		err := el.logFile.Close()
		el.logFile = nil
		return err
	}
	return nil
}
