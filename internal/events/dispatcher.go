package events

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// EventHandler consumes one published event. Handler errors are logged and
// never stop delivery to the remaining subscribers.
type EventHandler func(context.Context, Event) error

// Dispatcher fans ticket events out to in-process subscribers. Publishing is
// synchronous: notification side effects run on the publisher's goroutine,
// after the originating mutation has committed.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler)
}

type memoryDispatcher struct {
	mu       sync.RWMutex
	handlers map[EventType][]EventHandler
	logger   *zap.Logger
}

// NewInMemoryDispatcher builds the process-local dispatcher.
func NewInMemoryDispatcher(logger *zap.Logger) Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &memoryDispatcher{
		handlers: make(map[EventType][]EventHandler),
		logger:   logger,
	}
}

func (d *memoryDispatcher) Publish(ctx context.Context, event Event) error {
	d.mu.RLock()
	subscribed := make([]EventHandler, len(d.handlers[event.Type]))
	copy(subscribed, d.handlers[event.Type])
	d.mu.RUnlock()

	for _, handler := range subscribed {
		if err := handler(ctx, event); err != nil {
			d.logger.Warn("event handler failed",
				zap.String("event_type", string(event.Type)),
				zap.String("ticket_id", event.TicketID),
				zap.Error(err))
		}
	}
	return nil
}

func (d *memoryDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[eventType] = append(d.handlers[eventType], handler)
}
