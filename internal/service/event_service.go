package service

import (
	"context"
	"sync"
	"time"

	"github.com/dmehra2102/prod-golang-projects/apptsched/internal/events"
	"github.com/dmehra2102/prod-golang-projects/apptsched/pkg/metrics"
	"go.uber.org/zap"
)

const (
	defaultEventBufferSize = 10_000
	eventPublishTimeout    = 5 * time.Second
)

// EventService delivers lifecycle events off the request path. Delivery
// failures are logged and counted; they never change an operation's result.
type EventService struct {
	pub     events.Publisher
	metrics *metrics.Collector
	log     *zap.Logger
	queue   chan events.Event
	done    chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewEventService(pub events.Publisher, bufferSize int, m *metrics.Collector, log *zap.Logger) *EventService {
	if bufferSize <= 0 {
		bufferSize = defaultEventBufferSize
	}
	svc := &EventService{
		pub:     pub,
		metrics: m,
		log:     log,
		queue:   make(chan events.Event, bufferSize),
		done:    make(chan struct{}),
	}
	go svc.worker()
	return svc
}

// Emit enqueues ev for async delivery.
// If the buffer is full or the service is shut down, the event is dropped
// and a warning is emitted.
func (s *EventService) Emit(ev events.Event) {
	if s == nil {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.drop(ev, "event service stopped, dropping event")
		return
	}
	select {
	case s.queue <- ev:
	default:
		s.drop(ev, "event buffer full, dropping event")
	}
}

func (s *EventService) drop(ev events.Event, msg string) {
	s.metrics.EventDropped()
	s.log.Warn(msg,
		zap.String("event_type", string(ev.Type)),
		zap.Int64("appointment_id", ev.AppointmentID),
	)
}

// Shutdown drains queued events, waiting at most timeout, then closes the
// publisher. Calls after the first are no-ops.
func (s *EventService) Shutdown(timeout time.Duration) {
	if s == nil {
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	select {
	case <-s.done:
	case <-time.After(timeout):
		s.log.Warn("event service shutdown timed out; some events may be lost")
	}
	if err := s.pub.Close(); err != nil {
		s.log.Error("failed to close event publisher", zap.Error(err))
	}
}

func (s *EventService) worker() {
	defer close(s.done)
	for ev := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), eventPublishTimeout)
		if err := s.pub.Publish(ctx, ev); err != nil {
			s.metrics.ObserveEvent(string(ev.Type), "error")
			s.log.Error("failed to publish event",
				zap.String("event_id", ev.ID.String()),
				zap.String("event_type", string(ev.Type)),
				zap.Error(err),
			)
		} else {
			s.metrics.ObserveEvent(string(ev.Type), "ok")
		}
		cancel()
	}
}
