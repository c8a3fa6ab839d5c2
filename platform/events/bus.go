package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"contract_workflow_backend/platform/logger"
)

const defaultAsyncTimeout = 5 * time.Minute

// InMemoryBus dispatches events to handlers inside the current process.
// Asynchronous deliveries run on their own goroutine with a bounded timeout;
// a handler error or panic is logged and never reaches the publisher.
type InMemoryBus struct {
	mu           sync.RWMutex
	handlers     map[string][]Handler
	log          *logger.Logger
	asyncTimeout time.Duration
	wg           sync.WaitGroup
}

// NewInMemoryBus creates a new in-memory event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return &InMemoryBus{
		handlers:     make(map[string][]Handler),
		log:          log,
		asyncTimeout: defaultAsyncTimeout,
	}
}

// SetAsyncTimeout bounds every asynchronous handler invocation.
func (b *InMemoryBus) SetAsyncTimeout(d time.Duration) {
	if d > 0 {
		b.asyncTimeout = d
	}
}

// Subscribe registers a handler for eventName.
func (b *InMemoryBus) Subscribe(eventName string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventName] = append(b.handlers[eventName], handler)
}

// Publish runs every handler for the event on its own goroutine.
func (b *InMemoryBus) Publish(ctx context.Context, event Event) {
	for _, h := range b.handlersFor(event.EventName()) {
		b.wg.Add(1)
		go func(h Handler) {
			defer b.wg.Done()
			hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.asyncTimeout)
			defer cancel()
			if err := b.invoke(hctx, h, event); err != nil {
				b.log.Error("event handler failed", "event", event.EventName(), "error", err)
			}
		}(h)
	}
}

// PublishSync runs the handlers in registration order and joins their errors.
func (b *InMemoryBus) PublishSync(ctx context.Context, event Event) error {
	var errs []error
	for _, h := range b.handlersFor(event.EventName()) {
		if err := b.invoke(ctx, h, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Wait blocks until all in-flight asynchronous handlers have returned.
func (b *InMemoryBus) Wait() {
	b.wg.Wait()
}

func (b *InMemoryBus) handlersFor(name string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	hs := b.handlers[name]
	out := make([]Handler, len(hs))
	copy(out, hs)
	return out
}

func (b *InMemoryBus) invoke(ctx context.Context, h Handler, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h.Handle(ctx, event)
}

var _ Bus = (*InMemoryBus)(nil)
