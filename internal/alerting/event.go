package alerting

import (
	"sync"
	"time"
)

// Event names for realtime triggers.
const (
	EventEnrollmentChanged = "class.enrollment_changed"
	EventCapacityChanged   = "class.capacity_changed"
	EventStudentUpdated    = "student.updated"
)

// Event is an entity-state change that can drive realtime rules and the
// capacity subsystem.
type Event struct {
	Name       string
	TenantID   string
	EntityType string
	EntityID   string
	Properties map[string]any
	Timestamp  time.Time
}

// EventHandler processes engine events.
type EventHandler func(event *Event)

// Package-level singleton for the engine event bus.
var (
	globalBus   *EventBus
	globalBusMu sync.RWMutex
)

// SetGlobalBus sets the package-level event bus singleton.
// Called during initialization.
func SetGlobalBus(bus *EventBus) {
	globalBusMu.Lock()
	defer globalBusMu.Unlock()
	globalBus = bus
}

// GetGlobalBus returns the package-level event bus, or nil if not initialized.
func GetGlobalBus() *EventBus {
	globalBusMu.RLock()
	defer globalBusMu.RUnlock()
	return globalBus
}

// TryPublish publishes an event to the global bus if initialized.
// Returns false if the bus is not yet available.
func TryPublish(event *Event) bool {
	bus := GetGlobalBus()
	if bus == nil {
		return false
	}
	bus.Publish(event)
	return true
}

const (
	// eventBusBufferSize is the capacity of the async event channel.
	// Events are dropped if the buffer is full to avoid blocking callers.
	eventBusBufferSize = 1000
)

// EventBus is an async pub/sub for engine events. Publish is non-blocking:
// events go to a buffered channel and are processed by a worker goroutine,
// so enrollment and capacity write paths are never blocked by evaluation
// or notification dispatch.
type EventBus struct {
	handlers []EventHandler
	mu       sync.RWMutex
	eventCh  chan *Event
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewEventBus creates a new event bus and starts its worker.
func NewEventBus() *EventBus {
	b := &EventBus{
		handlers: make([]EventHandler, 0),
		eventCh:  make(chan *Event, eventBusBufferSize),
		stopCh:   make(chan struct{}),
	}
	go b.processLoop()
	return b
}

// Subscribe registers a handler for engine events.
func (b *EventBus) Subscribe(handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, handler)
}

// Publish enqueues an event for async processing. Non-blocking: if the
// buffer is full the event is dropped to protect callers on hot paths.
// Events are silently dropped after Stop() has been called.
func (b *EventBus) Publish(event *Event) {
	select {
	case <-b.stopCh:
		return // Bus is stopped, discard event
	default:
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case b.eventCh <- event:
	default:
		// Buffer full — drop event to avoid blocking callers
	}
}

// Stop shuts down the worker goroutine. Safe to call multiple times.
func (b *EventBus) Stop() {
	b.stopOnce.Do(func() {
		close(b.stopCh)
	})
}

// processLoop drains the event channel and dispatches to handlers.
func (b *EventBus) processLoop() {
	for {
		select {
		case event := <-b.eventCh:
			b.dispatch(event)
		case <-b.stopCh:
			// Drain remaining events before exiting
			for {
				select {
				case event := <-b.eventCh:
					b.dispatch(event)
				default:
					return
				}
			}
		}
	}
}

func (b *EventBus) dispatch(event *Event) {
	b.mu.RLock()
	handlers := make([]EventHandler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, handler := range handlers {
		b.safeCall(handler, event)
	}
}

// safeCall invokes a handler with panic recovery so a panicking handler
// cannot kill the event bus goroutine.
func (b *EventBus) safeCall(handler EventHandler, event *Event) {
	defer func() {
		recover() //nolint:errcheck // intentionally swallowed to keep bus alive
	}()
	handler(event)
}
