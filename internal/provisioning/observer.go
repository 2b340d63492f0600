package provisioning

import (
	"fmt"
	"log"
	"time"

	"github.com/go-logr/logr"
)

// Observer receives structured progress events from provisioning stages.
type Observer interface {
	// Printf logs a formatted progress message.
	Printf(format string, v ...any)

	// Event emits a structured provisioning event.
	Event(event Event)
}

// EventType classifies provisioning events.
type EventType string

// Event types emitted by the engine and stages.
const (
	EventStageStarted   EventType = "stage.started"
	EventStageCompleted EventType = "stage.completed"
	EventStageFailed    EventType = "stage.failed"

	EventNodeApplying EventType = "node.applying"
	EventNodeApplied  EventType = "node.applied"
	EventNodeSkipped  EventType = "node.skipped"
	EventNodeFailed   EventType = "node.failed"
)

// Event is one structured provisioning event.
type Event struct {
	Type      EventType
	Stage     string
	Node      string
	Message   string
	Timestamp time.Time
}

// ConsoleObserver logs events through the standard log package.
type ConsoleObserver struct{}

// NewConsoleObserver creates a console-based observer.
func NewConsoleObserver() *ConsoleObserver {
	return &ConsoleObserver{}
}

// Printf implements Observer.
func (o *ConsoleObserver) Printf(format string, v ...any) {
	log.Printf(format, v...)
}

// Event implements Observer.
func (o *ConsoleObserver) Event(event Event) {
	if event.Node != "" {
		log.Printf("[%s] %s %s %s", event.Stage, event.Type, event.Node, event.Message)
		return
	}
	log.Printf("[%s] %s %s", event.Stage, event.Type, event.Message)
}

// LogrObserver adapts a logr.Logger to the Observer interface, for callers
// that already carry a structured logger.
type LogrObserver struct {
	log logr.Logger
}

// NewLogrObserver wraps a logr.Logger as an Observer.
func NewLogrObserver(log logr.Logger) *LogrObserver {
	return &LogrObserver{log: log}
}

// Printf implements Observer.
func (o *LogrObserver) Printf(format string, v ...any) {
	o.log.Info(fmt.Sprintf(format, v...))
}

// Event implements Observer.
func (o *LogrObserver) Event(event Event) {
	o.log.Info(event.Message,
		"type", string(event.Type),
		"stage", event.Stage,
		"node", event.Node,
	)
}
