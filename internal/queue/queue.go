package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Handler consumes one published payload.
type Handler func(ctx context.Context, topic string, payload any) error

// Publisher emits lifecycle events.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}

// Queue is a Publisher that in-process handlers can subscribe to.
type Queue interface {
	Publisher
	Subscribe(topic string, handler Handler) error
}

// AllTopics subscribes a handler to every topic.
const AllTopics = "*"

// InMemoryQueue dispatches synchronously to its subscribers, in subscription order.
type InMemoryQueue struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

var _ Queue = (*InMemoryQueue)(nil)

// NewInMemoryQueue creates a new queue
func NewInMemoryQueue() *InMemoryQueue {
	return &InMemoryQueue{
		handlers: make(map[string][]Handler),
	}
}

// Publish sends a payload to all subscribers of topic and to wildcard subscribers.
func (q *InMemoryQueue) Publish(ctx context.Context, topic string, payload any) error {
	q.mu.RLock()
	handlers := append([]Handler(nil), q.handlers[topic]...)
	handlers = append(handlers, q.handlers[AllTopics]...)
	q.mu.RUnlock()

	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}

	var errs []error
	for _, h := range handlers {
		if err := h(ctx, topic, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Subscribe adds a handler for a topic
func (q *InMemoryQueue) Subscribe(topic string, handler Handler) error {
	if handler == nil {
		return errors.New("nil handler")
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}
