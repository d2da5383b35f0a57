// api/util/event_bus.go

package util

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/consentgate/api/logging"
	pdp_model "github.com/dev-mohitbeniwal/consentgate/api/pdp/model"
)

// Event types published by the access service
const (
	EventEmergencyAccess  = "access.emergency"
	EventCriticalDecision = "access.critical"
)

// Event represents an event in the system
type Event struct {
	Type    string
	Payload DecisionEvent
}

// DecisionEvent describes one evaluated request worth telling compliance about.
type DecisionEvent struct {
	Request  pdp_model.AccessRequest
	Decision pdp_model.AccessDecision
	Metadata pdp_model.RequestMetadata
}

// EventHandler is a function that handles an event
type EventHandler func(context.Context, Event) error

// EventBus fans decision events out to asynchronous handlers.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
	errorChan   chan error
	inflight    sync.WaitGroup
}

// NewEventBus creates a new EventBus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[string][]EventHandler),
		errorChan:   make(chan error, 100),
	}
}

// Subscribe adds a new subscriber for a specific event type
func (eb *EventBus) Subscribe(eventType string, handler EventHandler) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.subscribers[eventType] = append(eb.subscribers[eventType], handler)
}

// Publish runs every handler for the event type in its own goroutine. The
// handlers outlive the request, so they get a context without its deadline.
func (eb *EventBus) Publish(ctx context.Context, eventType string, payload DecisionEvent) {
	eb.mu.RLock()
	handlers := eb.subscribers[eventType]
	eb.mu.RUnlock()

	if len(handlers) == 0 {
		return
	}

	event := Event{Type: eventType, Payload: payload}
	hctx := context.WithoutCancel(ctx)
	for _, handler := range handlers {
		eb.inflight.Add(1)
		go func(h EventHandler) {
			defer eb.inflight.Done()
			if err := h(hctx, event); err != nil {
				select {
				case eb.errorChan <- fmt.Errorf("event handler error: %w", err):
				default:
					// If error channel is full, log the error
					logger.Error("Error channel full, logging event handler error",
						zap.Error(err),
						zap.String("eventType", eventType))
				}
			}
		}(handler)
	}
}

// Start begins processing handler errors until ctx is done
func (eb *EventBus) Start(ctx context.Context) {
	go eb.processErrors(ctx)
}

// Wait blocks until every published event has been handled.
func (eb *EventBus) Wait() {
	eb.inflight.Wait()
}

// processErrors handles errors from event handlers
func (eb *EventBus) processErrors(ctx context.Context) {
	for {
		select {
		case err := <-eb.errorChan:
			logger.Error("Event handler error", zap.Error(err))
		case <-ctx.Done():
			return
		}
	}
}
