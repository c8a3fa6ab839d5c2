package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"contract_workflow_backend/platform/logger"
)

type pinged struct {
	BaseEvent
	N int
}

func (pinged) EventName() string { return "test.pinged" }

type other struct{ BaseEvent }

func (other) EventName() string { return "test.other" }

func TestOnDeliversTypedEvent(t *testing.T) {
	bus := NewInMemoryBus(logger.Discard())
	var got atomic.Int64
	On(bus, func(_ context.Context, e pinged) error {
		got.Add(int64(e.N))
		return nil
	})
	bus.Publish(context.Background(), pinged{BaseEvent: NewBaseEvent(), N: 3})
	bus.Publish(context.Background(), other{BaseEvent: NewBaseEvent()})
	bus.Wait()
	if got.Load() != 3 {
		t.Fatalf("handler saw %d, want 3", got.Load())
	}
}

func TestPublishSyncJoinsErrorsAndRecoversPanics(t *testing.T) {
	bus := NewInMemoryBus(logger.Discard())
	boom := errors.New("boom")
	On(bus, func(context.Context, pinged) error { return boom })
	On(bus, func(context.Context, pinged) error { panic("bad handler") })

	err := bus.PublishSync(context.Background(), pinged{BaseEvent: NewBaseEvent()})
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined boom error, got %v", err)
	}
}

func TestPublishDetachesFromCallerCancellation(t *testing.T) {
	bus := NewInMemoryBus(logger.Discard())
	bus.SetAsyncTimeout(time.Second)
	var ctxErr atomic.Value
	On(bus, func(ctx context.Context, _ pinged) error {
		time.Sleep(10 * time.Millisecond)
		if err := ctx.Err(); err != nil {
			ctxErr.Store(err)
		}
		return nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	bus.Publish(ctx, pinged{BaseEvent: NewBaseEvent()})
	cancel()
	bus.Wait()
	if v := ctxErr.Load(); v != nil {
		t.Fatalf("handler context cancelled with publisher: %v", v)
	}
}

func TestNewBaseEventHasID(t *testing.T) {
	a, b := NewBaseEvent(), NewBaseEvent()
	if a.ID == b.ID {
		t.Fatal("expected distinct event ids")
	}
}
