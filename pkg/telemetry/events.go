package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is a check lifecycle event.
type Event struct {
	// ID is the unique identifier for this event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type is the event type.
	Type string `json:"type"`

	// Source identifies where the event originated.
	Source string `json:"source"`

	// RunID is the associated check run ID.
	RunID string `json:"run_id,omitempty"`

	// File is the associated file, if applicable.
	File string `json:"file,omitempty"`

	// Message is a human-readable event message.
	Message string `json:"message"`

	// Level is the event severity level (info, warning, error).
	Level string `json:"level"`

	// Data contains additional event-specific data.
	Data map[string]interface{} `json:"data,omitempty"`
}

// Event types.
const (
	EventTypeCheckStarted    = "check.started"
	EventTypeCheckCompleted  = "check.completed"
	EventTypeCheckFailed     = "check.failed"
	EventTypeFindingReported = "finding.reported"
)

// Event levels.
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// EventSubscriber is a function that handles events.
type EventSubscriber func(event Event)

// EventFilter determines if an event should be processed.
type EventFilter func(event Event) bool

// EventPublisher manages event publishing and subscriptions. Subscribers are
// called in publish order: inline when synchronous, from a single background
// goroutine when async.
type EventPublisher struct {
	config      EventsConfig
	buffer      chan Event
	subscribers []subscriberEntry
	wg          sync.WaitGroup
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
}

type subscriberEntry struct {
	subscriber EventSubscriber
	filter     EventFilter
}

// NewEventPublisher creates a new event publisher with the given configuration.
func NewEventPublisher(cfg EventsConfig) (*EventPublisher, error) {
	if !cfg.Enabled {
		return &EventPublisher{config: cfg}, nil
	}
	if cfg.EnableAsync && cfg.BufferSize <= 0 {
		return nil, fmt.Errorf("event buffer size must be positive, got: %d", cfg.BufferSize)
	}

	ctx, cancel := context.WithCancel(context.Background())

	ep := &EventPublisher{
		config: cfg,
		ctx:    ctx,
		cancel: cancel,
	}

	if cfg.EnableAsync {
		ep.buffer = make(chan Event, cfg.BufferSize)
		ep.wg.Add(1)
		go ep.processEvents()
	}

	return ep, nil
}

// Publish publishes an event to all subscribers.
func (ep *EventPublisher) Publish(event Event) error {
	if !ep.config.Enabled {
		return nil
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if ep.config.EnableAsync {
		select {
		case <-ep.ctx.Done():
			return fmt.Errorf("event publisher stopped")
		default:
		}
		select {
		case ep.buffer <- event:
			return nil
		default:
			return fmt.Errorf("event buffer full, event dropped")
		}
	}

	ep.deliverEvent(event)
	return nil
}

// PublishCheckStarted publishes a check started event.
func (ep *EventPublisher) PublishCheckStarted(runID string, paths []string) error {
	return ep.Publish(Event{
		Type:    EventTypeCheckStarted,
		Source:  "checker",
		RunID:   runID,
		Message: fmt.Sprintf("Check %s started on %d path(s)", runID, len(paths)),
		Level:   EventLevelInfo,
		Data: map[string]interface{}{
			"paths": paths,
		},
	})
}

// PublishCheckCompleted publishes a check completed event.
func (ep *EventPublisher) PublishCheckCompleted(runID string, files, findings int, duration time.Duration) error {
	return ep.Publish(Event{
		Type:    EventTypeCheckCompleted,
		Source:  "checker",
		RunID:   runID,
		Message: fmt.Sprintf("Check %s completed: %d file(s), %d finding(s)", runID, files, findings),
		Level:   EventLevelInfo,
		Data: map[string]interface{}{
			"files":    files,
			"findings": findings,
			"duration": duration.Seconds(),
		},
	})
}

// PublishCheckFailed publishes a check failed event.
func (ep *EventPublisher) PublishCheckFailed(runID, reason string) error {
	return ep.Publish(Event{
		Type:    EventTypeCheckFailed,
		Source:  "checker",
		RunID:   runID,
		Message: fmt.Sprintf("Check %s failed: %s", runID, reason),
		Level:   EventLevelError,
		Data: map[string]interface{}{
			"reason": reason,
		},
	})
}

// PublishFinding publishes a finding event. severity is the finding's
// severity (error, warning, info).
func (ep *EventPublisher) PublishFinding(runID, file, code, severity, message string) error {
	level := EventLevelWarning
	switch severity {
	case "error":
		level = EventLevelError
	case "info":
		level = EventLevelInfo
	}
	return ep.Publish(Event{
		Type:    EventTypeFindingReported,
		Source:  "checker",
		RunID:   runID,
		File:    file,
		Message: message,
		Level:   level,
		Data: map[string]interface{}{
			"code": code,
		},
	})
}

// Subscribe adds a new event subscriber. filter may be nil.
func (ep *EventPublisher) Subscribe(subscriber EventSubscriber, filter EventFilter) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.subscribers = append(ep.subscribers, subscriberEntry{
		subscriber: subscriber,
		filter:     filter,
	})
}

// NewJSONSubscriber returns a subscriber that writes every event to w as one
// JSON line.
func NewJSONSubscriber(w io.Writer) EventSubscriber {
	var mu sync.Mutex
	enc := json.NewEncoder(w)
	return func(event Event) {
		mu.Lock()
		defer mu.Unlock()
		_ = enc.Encode(event)
	}
}

// processEvents delivers buffered events until shutdown, then drains what is
// left in the buffer.
func (ep *EventPublisher) processEvents() {
	defer ep.wg.Done()

	for {
		select {
		case event := <-ep.buffer:
			ep.deliverEvent(event)
		case <-ep.ctx.Done():
			for {
				select {
				case event := <-ep.buffer:
					ep.deliverEvent(event)
				default:
					return
				}
			}
		}
	}
}

// deliverEvent delivers an event to all subscribers.
func (ep *EventPublisher) deliverEvent(event Event) {
	ep.mu.RLock()
	defer ep.mu.RUnlock()

	for _, entry := range ep.subscribers {
		if entry.filter != nil && !entry.filter(event) {
			continue
		}
		entry.subscriber(event)
	}
}

// Shutdown stops the publisher, waiting for buffered events to be delivered.
func (ep *EventPublisher) Shutdown(ctx context.Context) error {
	if !ep.config.Enabled {
		return nil
	}

	ep.cancel()

	done := make(chan struct{})
	go func() {
		ep.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event publisher shutdown timeout")
	}
}

var eventLevels = map[string]int{
	EventLevelInfo:    0,
	EventLevelWarning: 1,
	EventLevelError:   2,
}

// ValidEventLevel reports whether level is info, warning or error.
func ValidEventLevel(level string) bool {
	_, ok := eventLevels[level]
	return ok
}

// FilterByLevel creates a filter that only allows events of a specific level or higher.
func FilterByLevel(minLevel string) EventFilter {
	minLevelValue := eventLevels[minLevel]

	return func(event Event) bool {
		return eventLevels[event.Level] >= minLevelValue
	}
}

// FilterByType creates a filter that only allows events of specific types.
func FilterByType(types ...string) EventFilter {
	typeSet := make(map[string]bool)
	for _, t := range types {
		typeSet[t] = true
	}

	return func(event Event) bool {
		return typeSet[event.Type]
	}
}
