package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// AnyEvent subscribes a handler to every event type.
const AnyEvent EventType = "*"

// ResourceEvents matches every action of one resource, e.g. "team.*".
func ResourceEvents(resource string) EventType {
	return EventType(resource + ".*")
}

// EventHandler handles a published event.
type EventHandler func(context.Context, Event) error

// Dispatcher fans events out to subscribers. Subscribe accepts a concrete
// type, ResourceEvents(resource) or AnyEvent.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(pattern EventType, handler EventHandler)
}

type subscription struct {
	pattern EventType
	handler EventHandler
}

func (s subscription) matches(eventType EventType) bool {
	switch {
	case s.pattern == AnyEvent:
		return true
	case strings.HasSuffix(string(s.pattern), ".*"):
		return strings.HasPrefix(string(eventType), strings.TrimSuffix(string(s.pattern), "*"))
	default:
		return s.pattern == eventType
	}
}

// bus delivers synchronously, in subscription order.
type bus struct {
	mu   sync.RWMutex
	subs []subscription
}

// NewInMemoryDispatcher creates a dispatcher instance.
func NewInMemoryDispatcher() Dispatcher {
	return &bus{}
}

// Publish invokes every matching handler. A failing or panicking handler
// does not stop the others; all failures are joined.
func (b *bus) Publish(ctx context.Context, event Event) error {
	b.mu.RLock()
	subs := b.subs
	b.mu.RUnlock()

	var errs []error
	for _, sub := range subs {
		if !sub.matches(event.Type) {
			continue
		}
		if err := invoke(ctx, sub.handler, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func invoke(ctx context.Context, handler EventHandler, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler for %s panicked: %v", event.Type, r)
		}
	}()
	return handler(ctx, event)
}

// Subscribe registers a handler for the given pattern.
func (b *bus) Subscribe(pattern EventType, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	// copy on write so Publish can iterate without holding the lock
	subs := make([]subscription, len(b.subs), len(b.subs)+1)
	copy(subs, b.subs)
	b.subs = append(subs, subscription{pattern: pattern, handler: handler})
}

// SubscribeAll registers handler for every event type.
func SubscribeAll(d Dispatcher, handler EventHandler) {
	d.Subscribe(AnyEvent, handler)
}
