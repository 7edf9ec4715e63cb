package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/chatdesk-admin/internal/events"
)

// EventQueue accepts events for asynchronous delivery. Enqueue must not
// block; it reports false when the event was dropped.
type EventQueue interface {
	Enqueue(event events.Event) bool
}

// ChangeFeedService forwards every resource event to the delivery queue.
type ChangeFeedService struct {
	dispatcher events.Dispatcher
	queue      EventQueue
	logger     *zap.Logger
}

// NewChangeFeedService creates the service.
func NewChangeFeedService(dispatcher events.Dispatcher, queue EventQueue, logger *zap.Logger) *ChangeFeedService {
	return &ChangeFeedService{
		dispatcher: dispatcher,
		queue:      queue,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to every resource event.
func (f *ChangeFeedService) RegisterHandlers() {
	if f.dispatcher == nil || f.queue == nil {
		return
	}
	events.SubscribeAll(f.dispatcher, f.forward)
}

func (f *ChangeFeedService) forward(_ context.Context, event events.Event) error {
	if !f.queue.Enqueue(event) {
		f.logger.Warn("change feed full; event dropped",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)))
	}
	return nil
}
