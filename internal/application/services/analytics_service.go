package services

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/ecowell/eco-engine-go/internal/domain/events"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/observability/logging"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/observability/performance"
)

// EventSink persists interaction events. Satisfied by the SQL event
// repository; tests substitute a mock.
type EventSink interface {
	StoreBatch(batch []*events.Event) error
}

// AnalyticsService is the non-blocking event sink between the request path
// and event persistence. Enqueue never blocks a request: when the buffer is
// full the event is dropped and counted, engagement state having already
// been applied upstream.
type AnalyticsService struct {
	buffer  chan *events.Event
	sink    EventSink
	logger  *logging.ChanneledLogger
	perf    *performance.Tracker
	dropped atomic.Int64
}

// NewAnalyticsService creates the analytics sink with the given buffer size.
func NewAnalyticsService(bufferSize int, sink EventSink, logger *logging.ChanneledLogger, perf *performance.Tracker) *AnalyticsService {
	return &AnalyticsService{
		buffer: make(chan *events.Event, bufferSize),
		sink:   sink,
		logger: logger,
		perf:   perf,
	}
}

// Enqueue hands an event to the sink without blocking.
func (s *AnalyticsService) Enqueue(event *events.Event) {
	select {
	case s.buffer <- event:
	default:
		dropped := s.dropped.Add(1)
		s.logger.Analytics().Warn("Analytics buffer full, event dropped",
			"type", string(event.Type),
			"guestId", event.GuestID,
			"totalDropped", dropped)
	}
}

// Dropped returns the count of events discarded due to backpressure.
func (s *AnalyticsService) Dropped() int64 {
	return s.dropped.Load()
}

// Start drains the buffer into the sink, batching what is immediately
// available. Blocks until ctx is cancelled, then flushes what remains.
func (s *AnalyticsService) Start(ctx context.Context) {
	s.logger.Analytics().Info("Analytics sink started", "bufferSize", cap(s.buffer))

	for {
		select {
		case <-ctx.Done():
			s.flushRemaining()
			s.logger.Analytics().Info("Analytics sink stopped", "dropped", s.dropped.Load())
			return
		case first := <-s.buffer:
			s.drainBatch(first)
		}
	}
}

// drainBatch stores the received event together with anything else already
// buffered, up to a cap per write.
func (s *AnalyticsService) drainBatch(first *events.Event) {
	const maxBatch = 128

	marker := s.perf.StartOperation("analytics_drain")
	defer marker.Complete()

	batch := []*events.Event{first}
	for len(batch) < maxBatch {
		select {
		case event := <-s.buffer:
			batch = append(batch, event)
		default:
			goto store
		}
	}
store:
	start := time.Now()
	if err := s.sink.StoreBatch(batch); err != nil {
		marker.SetError(err)
		s.logger.Analytics().Error("Failed to persist event batch", "count", len(batch), "error", err.Error())
		return
	}
	s.logger.Analytics().Debug("Event batch persisted", "count", len(batch), "duration", time.Since(start))
	marker.SetSuccess(true)
}

func (s *AnalyticsService) flushRemaining() {
	var batch []*events.Event
	for {
		select {
		case event := <-s.buffer:
			batch = append(batch, event)
		default:
			if len(batch) > 0 {
				if err := s.sink.StoreBatch(batch); err != nil {
					s.logger.Analytics().Error("Final flush failed", "count", len(batch), "error", err.Error())
				}
			}
			return
		}
	}
}
