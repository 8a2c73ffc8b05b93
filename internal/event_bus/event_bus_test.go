package event_bus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublish_RunsHandlersInSubscriptionOrder(t *testing.T) {
	bus := NewEventBus()
	var calls []int
	for i := 1; i <= 5; i++ {
		n := i
		bus.Subscribe(TimerStarted, func(Event) error {
			calls = append(calls, n)
			return nil
		})
	}

	err := bus.Publish(NewEvent(context.Background(), TimerStarted, TimerStartedPayload{EntryId: 1}))

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, calls)
}

func TestSubscribeTyped(t *testing.T) {
	bus := NewEventBus()
	var received []TimeEntryCompleted
	SubscribeTyped(bus, TimerStopped, func(e EventT[TimeEntryCompleted]) error {
		received = append(received, e.Data)
		return nil
	})

	end := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, bus.Publish(NewEvent(context.Background(), TimerStopped, TimeEntryCompleted{EntryId: 4, EndTime: end})))
	require.NoError(t, bus.Publish(NewEvent(context.Background(), TimerStopped, "wrong payload")))
	require.NoError(t, bus.Publish(NewEvent(context.Background(), TimerStopped, nil)))

	require.Len(t, received, 1)
	assert.Equal(t, 4, received[0].EntryId)
	assert.Equal(t, end, received[0].EndTime)
}

func TestPublish_CollectsErrorsAndPanics(t *testing.T) {
	bus := NewEventBus()
	failure := errors.New("boom")
	called := false
	bus.Subscribe(EntryDeleted, func(Event) error { return failure })
	bus.Subscribe(EntryDeleted, func(Event) error { panic("oops") })
	bus.Subscribe(EntryDeleted, func(Event) error {
		called = true
		return nil
	})

	err := bus.Publish(NewEvent(context.Background(), EntryDeleted, TimeEntryDeleted{EntryId: 1}))

	require.Error(t, err)
	assert.ErrorIs(t, err, failure)
	assert.Contains(t, err.Error(), "2 handler(s) failed")
	assert.Contains(t, err.Error(), "handler panic")
	assert.True(t, called)
}

func TestUnsubscribe(t *testing.T) {
	bus := NewEventBus()
	count := 0
	unsubscribe := bus.Subscribe(EntryLogged, func(Event) error {
		count++
		return nil
	})

	require.NoError(t, bus.Publish(NewEvent(context.Background(), EntryLogged, nil)))
	unsubscribe()
	require.NoError(t, bus.Publish(NewEvent(context.Background(), EntryLogged, nil)))

	assert.Equal(t, 1, count)
}

func TestPublish_CancelledContext(t *testing.T) {
	bus := NewEventBus()
	bus.Subscribe(TimerStarted, func(Event) error {
		t.Fatal("handler must not run")
		return nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := bus.Publish(NewEvent(ctx, TimerStarted, TimerStartedPayload{}))

	assert.ErrorIs(t, err, context.Canceled)
}

type ctxKey struct{}

func TestEventContext(t *testing.T) {
	t.Run("typed handlers see the publishing context", func(t *testing.T) {
		bus := NewEventBus()
		var seen any
		SubscribeTyped(bus, EntryDeleted, func(e EventT[TimeEntryDeleted]) error {
			seen = e.Context().Value(ctxKey{})
			return nil
		})

		ctx := context.WithValue(context.Background(), ctxKey{}, "request-1")
		require.NoError(t, bus.Publish(NewEvent(ctx, EntryDeleted, TimeEntryDeleted{EntryId: 1})))

		assert.Equal(t, "request-1", seen)
	})

	t.Run("missing context falls back to background", func(t *testing.T) {
		assert.Equal(t, context.Background(), Event{}.Context())
		assert.Equal(t, context.Background(), EventT[TimeEntryDeleted]{}.Context())
	})
}
