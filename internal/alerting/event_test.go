package alerting

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_SubscribeAndPublish(t *testing.T) {
	bus := NewEventBus()
	defer bus.Stop()

	var received atomic.Pointer[Event]

	bus.Subscribe(func(event *Event) {
		received.Store(event)
	})

	bus.Publish(&Event{
		Name:       EventEnrollmentChanged,
		TenantID:   "tenant-a",
		EntityType: EntityTypeClass,
		EntityID:   "class-1",
	})

	require.Eventually(t, func() bool { return received.Load() != nil }, time.Second, 5*time.Millisecond)
	got := received.Load()
	assert.Equal(t, EventEnrollmentChanged, got.Name)
	assert.Equal(t, "class-1", got.EntityID)
}

func TestEventBus_MultipleHandlers(t *testing.T) {
	bus := NewEventBus()
	defer bus.Stop()

	var count atomic.Int32
	for range 3 {
		bus.Subscribe(func(_ *Event) {
			count.Add(1)
		})
	}

	bus.Publish(&Event{Name: EventStudentUpdated})

	assert.Eventually(t, func() bool { return count.Load() == 3 }, time.Second, 5*time.Millisecond)
}

func TestEventBus_PublishSetsTimestamp(t *testing.T) {
	bus := NewEventBus()
	defer bus.Stop()

	var received atomic.Pointer[Event]
	bus.Subscribe(func(event *Event) {
		received.Store(event)
	})

	before := time.Now()
	bus.Publish(&Event{Name: EventCapacityChanged})

	require.Eventually(t, func() bool { return received.Load() != nil }, time.Second, 5*time.Millisecond)
	got := received.Load()
	assert.False(t, got.Timestamp.IsZero())
	assert.False(t, got.Timestamp.Before(before))
}

func TestEventBus_PanickingHandlerDoesNotKillBus(t *testing.T) {
	bus := NewEventBus()
	defer bus.Stop()

	var count atomic.Int32
	bus.Subscribe(func(_ *Event) {
		panic("handler bug")
	})
	bus.Subscribe(func(_ *Event) {
		count.Add(1)
	})

	bus.Publish(&Event{Name: EventStudentUpdated})
	bus.Publish(&Event{Name: EventStudentUpdated})

	assert.Eventually(t, func() bool { return count.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func TestEventBus_PublishAfterStopIsDiscarded(t *testing.T) {
	bus := NewEventBus()

	var count atomic.Int32
	bus.Subscribe(func(_ *Event) {
		count.Add(1)
	})

	bus.Stop()
	bus.Publish(&Event{Name: EventStudentUpdated})

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), count.Load())
}

func TestEventBus_ConcurrentPublish(t *testing.T) {
	bus := NewEventBus()
	defer bus.Stop()

	var count atomic.Int32
	bus.Subscribe(func(_ *Event) {
		count.Add(1)
	})

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 10 {
				bus.Publish(&Event{Name: EventStudentUpdated})
			}
		}()
	}
	wg.Wait()

	assert.Eventually(t, func() bool { return count.Load() == 100 }, 2*time.Second, 10*time.Millisecond)
}

func TestTryPublish_NoGlobalBus(t *testing.T) {
	SetGlobalBus(nil)
	assert.False(t, TryPublish(&Event{Name: EventStudentUpdated}))
}

func TestTryPublish_WithGlobalBus(t *testing.T) {
	bus := NewEventBus()
	defer bus.Stop()
	SetGlobalBus(bus)
	defer SetGlobalBus(nil)

	var received atomic.Int32
	bus.Subscribe(func(_ *Event) { received.Add(1) })

	assert.True(t, TryPublish(&Event{Name: EventEnrollmentChanged}))
	assert.Eventually(t, func() bool { return received.Load() == 1 }, time.Second, 5*time.Millisecond)
}
