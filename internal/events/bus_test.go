package events

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := NewBus(8)
	defer bus.Close()

	var mu sync.Mutex
	var got []Event
	done := make(chan struct{})

	bus.Subscribe(RunProgress, func(e Event) {
		mu.Lock()
		got = append(got, e)
		n := len(got)
		mu.Unlock()
		if n == 3 {
			close(done)
		}
	})

	for _, pct := range []int{10, 50, 100} {
		bus.Publish(RunProgress, map[string]any{"percent": pct})
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("events not delivered")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 3)
	assert.Equal(t, 10, got[0].Data["percent"])
	assert.Equal(t, 100, got[2].Data["percent"])
}

func TestBus_TypeIsolation(t *testing.T) {
	bus := NewBus(8)
	defer bus.Close()

	delivered := make(chan Event, 1)
	bus.Subscribe(RunCompleted, func(e Event) { delivered <- e })

	bus.Publish(RunStarted, nil)
	bus.Publish(RunCompleted, map[string]any{"categories": 2})

	select {
	case e := <-delivered:
		assert.Equal(t, RunCompleted, e.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("completion event not delivered")
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus(8)
	defer bus.Close()

	var count int
	var mu sync.Mutex
	unsub := bus.Subscribe(RunProgress, func(Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	unsub()

	bus.Publish(RunProgress, nil)
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, count)
}

func TestBus_PanickingSubscriberIsContained(t *testing.T) {
	bus := NewBus(8)
	defer bus.Close()

	ok := make(chan struct{})
	bus.Subscribe(RunFailed, func(Event) { panic("boom") })
	bus.Subscribe(RunFailed, func(Event) { close(ok) })

	bus.Publish(RunFailed, nil)

	select {
	case <-ok:
	case <-time.After(2 * time.Second):
		t.Fatal("healthy subscriber starved by panicking one")
	}
}
