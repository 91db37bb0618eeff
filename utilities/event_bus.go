package utilities

import "sync"

// Event names published by the services.
const (
	EventAssessmentCompleted = "assessment_completed"
	EventGoalUpdated         = "goal_updated"
	EventProgressRecorded    = "progress_recorded"
)

// UserEvent is the payload of every user scoped event.
type UserEvent struct {
	UserID string
	Ref    string
}

type EventHandler func(interface{})

type EventBus struct {
	handlers map[string][]EventHandler
	inline   map[string][]EventHandler
	mu       sync.RWMutex
	wg       sync.WaitGroup
}

func NewEventBus() *EventBus {
	return &EventBus{
		handlers: make(map[string][]EventHandler),
		inline:   make(map[string][]EventHandler),
	}
}

func (eb *EventBus) Subscribe(event string, handler EventHandler) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.handlers[event] = append(eb.handlers[event], handler)
}

// SubscribeSync registers a handler that Publish runs on the caller's
// goroutine, so its effect is visible once Publish returns.
func (eb *EventBus) SubscribeSync(event string, handler EventHandler) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.inline[event] = append(eb.inline[event], handler)
}

// Publish runs the inline handlers first, then each asynchronous handler on
// its own goroutine.
func (eb *EventBus) Publish(event string, data interface{}) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	for _, handler := range eb.inline[event] {
		eb.runInline(event, handler, data)
	}
	for _, handler := range eb.handlers[event] {
		eb.wg.Add(1)
		go func(h EventHandler) {
			defer eb.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					Error("event handler for %s panicked: %v", event, r)
				}
			}()
			h(data)
		}(handler)
	}
}

func (eb *EventBus) runInline(event string, h EventHandler, data interface{}) {
	defer func() {
		if r := recover(); r != nil {
			Error("event handler for %s panicked: %v", event, r)
		}
	}()
	h(data)
}

// Wait blocks until every handler started so far has returned.
func (eb *EventBus) Wait() {
	eb.wg.Wait()
}

// Global instance
var GlobalEventBus = NewEventBus()
