// Package events is the in-process publish/subscribe channel for analytics
// run lifecycle and progress notifications.
package events

import (
	"sync"
	"time"
)

// Type identifies what happened.
type Type string

const (
	// RunStarted is published once per analytics run, before any work.
	RunStarted Type = "run_started"
	// RunProgress carries a monotonic 0-100 progress percentage.
	RunProgress Type = "run_progress"
	// CategoryScored is published as each category's report is finished.
	CategoryScored Type = "category_scored"
	// RunCompleted is published after the report is assembled.
	RunCompleted Type = "run_completed"
	// RunFailed is published when a run ends in a terminal error.
	RunFailed Type = "run_failed"
)

// Event is one notification.
type Event struct {
	Type      Type
	Timestamp time.Time
	Data      map[string]any
}

// Subscriber receives events.
type Subscriber func(Event)

// Bus is a non-blocking publish/subscribe bus. Delivery is asynchronous over
// buffered channels; when a subscriber's buffer is full the event is dropped
// for that subscriber rather than stalling the publisher.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[Type][]chan Event
	bufferSize  int
}

// NewBus creates a bus with the given per-subscriber buffer size.
func NewBus(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Bus{
		subscribers: make(map[Type][]chan Event),
		bufferSize:  bufferSize,
	}
}

// Subscribe registers fn for one event type and returns an unsubscribe
// function. fn runs on its own goroutine; a panic in fn is contained.
func (b *Bus) Subscribe(t Type, fn Subscriber) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, b.bufferSize)
	b.subscribers[t] = append(b.subscribers[t], ch)

	go func() {
		for event := range ch {
			func() {
				defer func() { _ = recover() }()
				fn(event)
			}()
		}
	}()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subscribers[t]
		for i, subCh := range subs {
			if subCh == ch {
				b.subscribers[t] = append(subs[:i], subs[i+1:]...)
				close(ch)
				break
			}
		}
	}
}

// Publish delivers an event to current subscribers of its type.
func (b *Bus) Publish(t Type, data map[string]any) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	event := Event{Type: t, Timestamp: time.Now().UTC(), Data: data}
	for _, ch := range b.subscribers[t] {
		select {
		case ch <- event:
		default:
			// Buffer full; drop rather than block the run.
		}
	}
}

// Close shuts down every subscriber channel.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for t, subs := range b.subscribers {
		for _, ch := range subs {
			close(ch)
		}
		delete(b.subscribers, t)
	}
}
