package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"nurture_backend/platform/logger"
)

type testEvent struct {
	BaseEvent
}

func (testEvent) EventName() string { return "test.happened" }

func TestPublishSyncRunsHandlersAndJoinsErrors(t *testing.T) {
	bus := NewInMemoryBus(logger.Nop())
	calls := 0
	bus.Subscribe("test.happened", HandlerFunc(func(context.Context, Event) error {
		calls++
		return nil
	}))
	boom := errors.New("boom")
	bus.Subscribe("test.happened", HandlerFunc(func(context.Context, Event) error {
		calls++
		return boom
	}))

	err := bus.PublishSync(context.Background(), testEvent{BaseEvent: NewBaseEvent()})
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error to contain boom, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 handler calls, got %d", calls)
	}
}

func TestPublishRunsHandlersAsynchronously(t *testing.T) {
	bus := NewInMemoryBus(logger.Nop())
	var calls atomic.Int32
	bus.Subscribe("test.happened", HandlerFunc(func(context.Context, Event) error {
		calls.Add(1)
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	bus.Publish(ctx, testEvent{BaseEvent: NewBaseEvent()})
	cancel()
	bus.Wait()

	if calls.Load() != 1 {
		t.Fatalf("expected handler to run once, got %d", calls.Load())
	}
}

func TestPublishWithoutSubscribersIsNoop(t *testing.T) {
	bus := NewInMemoryBus(logger.Nop())
	if err := bus.PublishSync(context.Background(), testEvent{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

type otherEvent struct {
	BaseEvent
}

func (otherEvent) EventName() string { return "test.happened" }

func TestOnFiltersByType(t *testing.T) {
	bus := NewInMemoryBus(logger.Nop())
	var got []testEvent
	On(bus, func(_ context.Context, e testEvent) error {
		got = append(got, e)
		return nil
	})

	first := testEvent{BaseEvent: NewBaseEvent()}
	if err := bus.PublishSync(context.Background(), first); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := bus.PublishSync(context.Background(), otherEvent{BaseEvent: NewBaseEvent()}); err != nil {
		t.Fatalf("publish other: %v", err)
	}

	if len(got) != 1 || got[0].EventID != first.EventID {
		t.Fatalf("expected only the typed event, got %+v", got)
	}
}
