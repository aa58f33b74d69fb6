package events

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

var (
	// ErrQueueFull is returned when the queued dispatcher drops an event.
	ErrQueueFull = errors.New("events: queue full")
	// ErrDispatcherClosed is returned by Publish after Close.
	ErrDispatcherClosed = errors.New("events: dispatcher closed")
)

// EventHandler handles a published event.
type EventHandler func(context.Context, Event) error

// Dispatcher interface allows event publication/subscription.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler)
}

// inMemoryDispatcher is a simple synchronous dispatcher.
type inMemoryDispatcher struct {
	mu        sync.RWMutex
	listeners map[EventType][]EventHandler
	logger    *zap.Logger
}

// NewInMemoryDispatcher creates a dispatcher instance.
func NewInMemoryDispatcher(logger *zap.Logger) Dispatcher {
	return newInMemoryDispatcher(logger)
}

func newInMemoryDispatcher(logger *zap.Logger) *inMemoryDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &inMemoryDispatcher{
		listeners: make(map[EventType][]EventHandler),
		logger:    logger,
	}
}

// Publish synchronously invokes handlers for the given event.
func (d *inMemoryDispatcher) Publish(ctx context.Context, event Event) error {
	d.mu.RLock()
	handlers := append([]EventHandler{}, d.listeners[event.Type]...)
	d.mu.RUnlock()

	for _, handler := range handlers {
		// continue processing other handlers despite errors
		if err := handler(ctx, event); err != nil {
			d.logger.Warn("event handler failed",
				zap.String("event_id", event.ID),
				zap.String("event_type", string(event.Type)),
				zap.Error(err))
		}
	}
	return nil
}

// Subscribe registers a handler for the given event type.
func (d *inMemoryDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[eventType] = append(d.listeners[eventType], handler)
}

type queuedEvent struct {
	ctx   context.Context
	event Event
}

// QueuedDispatcher hands events to a single worker goroutine through a bounded
// buffer, so publishers never wait on slow handlers. Events are delivered in
// publication order. When the buffer is full the event is dropped.
type QueuedDispatcher struct {
	inner  *inMemoryDispatcher
	logger *zap.Logger
	queue  chan queuedEvent

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewQueuedDispatcher starts the worker goroutine. Call Close to stop it.
func NewQueuedDispatcher(size int, logger *zap.Logger) *QueuedDispatcher {
	if size <= 0 {
		size = 256
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &QueuedDispatcher{
		inner:  newInMemoryDispatcher(logger),
		logger: logger,
		queue:  make(chan queuedEvent, size),
		done:   make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *QueuedDispatcher) run() {
	defer close(d.done)
	for item := range d.queue {
		_ = d.inner.Publish(item.ctx, item.event)
	}
}

// Subscribe registers a handler for the given event type.
func (d *QueuedDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	d.inner.Subscribe(eventType, handler)
}

// Publish enqueues the event. The handler context keeps the caller's values
// but not its cancellation, since handlers run after the caller returns.
func (d *QueuedDispatcher) Publish(ctx context.Context, event Event) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.logger.Debug("dispatcher closed, dropping event",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)))
		return ErrDispatcherClosed
	}
	select {
	case d.queue <- queuedEvent{ctx: context.WithoutCancel(ctx), event: event}:
		return nil
	default:
		d.logger.Warn("event queue full, dropping event",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)))
		return ErrQueueFull
	}
}

// Close stops accepting events, drains the queue and waits for the worker.
func (d *QueuedDispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	<-d.done
}
