package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/chatdesk-admin/internal/events"
	"github.com/spec-kit/chatdesk-admin/internal/observability"
	"github.com/spec-kit/chatdesk-admin/internal/service"
)

const sendTimeout = 5 * time.Second

// ChangeFeedWorker drains a bounded event buffer into a sink on one goroutine.
type ChangeFeedWorker struct {
	sink    events.Sink
	logger  *zap.Logger
	metrics *observability.Metrics

	mu     sync.RWMutex
	closed bool
	queue  chan events.Event
	done   chan struct{}
}

// NewChangeFeedWorker builds a worker with the given buffer size.
func NewChangeFeedWorker(sink events.Sink, bufferSize int, logger *zap.Logger, metrics *observability.Metrics) *ChangeFeedWorker {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &ChangeFeedWorker{
		sink:    sink,
		logger:  logger,
		metrics: metrics,
		queue:   make(chan events.Event, bufferSize),
		done:    make(chan struct{}),
	}
}

// Enqueue buffers event without blocking. It returns false when the buffer
// is full or the worker has stopped.
func (w *ChangeFeedWorker) Enqueue(event events.Event) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		w.metrics.RecordEvent(string(event.Type), "dropped")
		return false
	}
	select {
	case w.queue <- event:
		return true
	default:
		w.metrics.RecordEvent(string(event.Type), "dropped")
		return false
	}
}

// Run delivers events until Stop is called and the buffer is drained.
func (w *ChangeFeedWorker) Run(ctx context.Context) {
	defer close(w.done)
	for event := range w.queue {
		w.deliver(ctx, event)
	}
}

// Stop closes the buffer and waits for Run to drain it.
func (w *ChangeFeedWorker) Stop() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.queue)
	w.mu.Unlock()
	<-w.done
}

func (w *ChangeFeedWorker) deliver(ctx context.Context, event events.Event) {
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
	defer cancel()

	if err := w.sink.Send(sendCtx, event); err != nil {
		w.metrics.RecordEvent(string(event.Type), "failed")
		w.logger.Warn("change feed delivery failed",
			zap.String("sink", w.sink.Name()),
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		return
	}
	w.metrics.RecordEvent(string(event.Type), "published")
}

// StartChangeFeedWorker subscribes the change feed and starts delivery.
func StartChangeFeedWorker(ctx context.Context, w *ChangeFeedWorker, feed *service.ChangeFeedService) {
	if w == nil || feed == nil {
		return
	}
	feed.RegisterHandlers()
	go w.Run(ctx)
}
