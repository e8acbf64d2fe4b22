package orchestration

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"time"
)

// Observer receives structured events during a run.
type Observer interface {
	// Printf emits a plain log line.
	Printf(format string, v ...interface{})

	// Event emits a structured event.
	Event(event Event)

	// Progress reports progress for a phase.
	Progress(phase string, current, total int)

	// WithFields returns a new Observer with additional context fields.
	WithFields(fields map[string]string) Observer
}

// Event represents a structured orchestration event.
type Event struct {
	Type      EventType
	Phase     string // phase name (e.g. "deploy", "certificates", "rollback")
	Component string // component or certificate name if applicable
	Message   string
	Timestamp time.Time
	Fields    map[string]string
}

// EventType represents the type of orchestration event.
type EventType string

const (
	// EventRunStarted indicates an orchestration run has started.
	EventRunStarted EventType = "run.started"
	// EventRunCompleted indicates an orchestration run finished.
	EventRunCompleted EventType = "run.completed"

	// EventComponentStarted indicates a component deployment has started.
	EventComponentStarted EventType = "component.started"
	// EventComponentReady indicates a component passed its readiness probe.
	EventComponentReady EventType = "component.ready"
	// EventComponentFailed indicates a component deployment failed.
	EventComponentFailed EventType = "component.failed"
	// EventComponentSkipped indicates a component was not attempted.
	EventComponentSkipped EventType = "component.skipped"
	// EventComponentBlocked indicates a component was refused before any
	// mutation because the run lacks the privileges it needs.
	EventComponentBlocked EventType = "component.blocked"
	// EventComponentRolledBack indicates a component was rolled back.
	EventComponentRolledBack EventType = "component.rolled_back"

	// EventHookStarted indicates a lifecycle hook is running.
	EventHookStarted EventType = "hook.started"
	// EventHookFailed indicates a lifecycle hook failed.
	EventHookFailed EventType = "hook.failed"

	// EventCertificateRequested indicates certificate issuance began.
	EventCertificateRequested EventType = "certificate.requested"
	// EventCertificateIssued indicates a certificate was issued.
	EventCertificateIssued EventType = "certificate.issued"
	// EventCertificateFallback indicates issuance moved to a fallback issuer.
	EventCertificateFallback EventType = "certificate.fallback"
	// EventCertificateFailed indicates issuance failed on every issuer.
	EventCertificateFailed EventType = "certificate.failed"

	// EventValidationWarning indicates a validation warning.
	EventValidationWarning EventType = "validation.warning"
	// EventValidationError indicates a validation error.
	EventValidationError EventType = "validation.error"

	// EventProgress indicates progress in a long-running operation.
	EventProgress EventType = "progress"
)

// ConsoleObserver implements Observer using the standard log package.
type ConsoleObserver struct {
	contextFields map[string]string
}

// NewConsoleObserver creates a new console-based observer.
func NewConsoleObserver() *ConsoleObserver {
	return &ConsoleObserver{
		contextFields: make(map[string]string),
	}
}

// Printf implements Observer.
func (o *ConsoleObserver) Printf(format string, v ...interface{}) {
	log.Printf(format, v...)
}

// Event implements Observer.
func (o *ConsoleObserver) Event(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if event.Fields == nil {
		event.Fields = make(map[string]string)
	}
	for k, v := range o.contextFields {
		if _, exists := event.Fields[k]; !exists {
			event.Fields[k] = v
		}
	}

	log.Print(o.formatEvent(event))
}

// Progress implements Observer.
func (o *ConsoleObserver) Progress(phase string, current, total int) {
	if total == 0 {
		log.Printf("[%s] Progress: %d/%d", phase, current, total)
		return
	}
	percentage := (current * 100) / total
	log.Printf("[%s] Progress: %d/%d (%d%%)", phase, current, total, percentage)
}

// WithFields implements Observer.
func (o *ConsoleObserver) WithFields(fields map[string]string) Observer {
	newFields := make(map[string]string, len(o.contextFields)+len(fields))
	for k, v := range o.contextFields {
		newFields[k] = v
	}
	for k, v := range fields {
		newFields[k] = v
	}
	return &ConsoleObserver{contextFields: newFields}
}

// formatEvent formats an event for console output. Fields are emitted in
// key order so identical events produce identical lines.
func (o *ConsoleObserver) formatEvent(event Event) string {
	var parts []string

	parts = append(parts, string(event.Type))
	if event.Phase != "" {
		parts = append(parts, fmt.Sprintf("[%s]", event.Phase))
	}
	if event.Component != "" {
		parts = append(parts, fmt.Sprintf("component=%s", event.Component))
	}
	parts = append(parts, event.Message)

	if len(event.Fields) > 0 {
		keys := make([]string, 0, len(event.Fields))
		for k := range event.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fieldParts := make([]string, 0, len(keys))
		for _, k := range keys {
			fieldParts = append(fieldParts, fmt.Sprintf("%s=%s", k, event.Fields[k]))
		}
		parts = append(parts, fmt.Sprintf("(%s)", strings.Join(fieldParts, ", ")))
	}

	return strings.Join(parts, " ")
}

// Helper functions for common events

// LogComponentStart logs a component deployment start event.
func LogComponentStart(observer Observer, phase, name string) {
	observer.Event(Event{
		Type:      EventComponentStarted,
		Phase:     phase,
		Component: name,
		Message:   "starting",
	})
}

// LogComponentReady logs a component readiness event.
func LogComponentReady(observer Observer, phase, name string, duration time.Duration) {
	observer.Event(Event{
		Type:      EventComponentReady,
		Phase:     phase,
		Component: name,
		Message:   fmt.Sprintf("ready in %v", duration.Round(time.Millisecond)),
	})
}

// LogComponentFailed logs a component failure event.
func LogComponentFailed(observer Observer, phase, name string, err error) {
	observer.Event(Event{
		Type:      EventComponentFailed,
		Phase:     phase,
		Component: name,
		Message:   fmt.Sprintf("failed: %v", err),
	})
}

// LogComponentSkipped logs a component that was not attempted.
func LogComponentSkipped(observer Observer, phase, name, reason string) {
	observer.Event(Event{
		Type:      EventComponentSkipped,
		Phase:     phase,
		Component: name,
		Message:   fmt.Sprintf("skipped: %s", reason),
	})
}

// LogComponentBlocked logs a component refused on privilege grounds.
func LogComponentBlocked(observer Observer, phase, name, reason string) {
	observer.Event(Event{
		Type:      EventComponentBlocked,
		Phase:     phase,
		Component: name,
		Message:   fmt.Sprintf("blocked: %s", reason),
	})
}

// LogComponentRolledBack logs a component rollback event.
func LogComponentRolledBack(observer Observer, phase, name string) {
	observer.Event(Event{
		Type:      EventComponentRolledBack,
		Phase:     phase,
		Component: name,
		Message:   "rolled back",
	})
}
