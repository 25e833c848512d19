// Package progress relays extraction milestones from the single producer (the
// extraction state machine) to any number of observers.
//
// Emit never blocks: every subscriber owns a bounded buffer and, when it is
// full, the oldest undelivered event is discarded. Close publishes a single
// StageDone sentinel which is always delivered, then closes every subscriber
// channel.
package progress

import (
	"sync"
	"time"

	"github.com/yourusername/yt-audio-extract/internal/domain"
)

const (
	DefaultBufferSize  = 64
	DefaultHistorySize = 128
)

// Option configures a Stream
type Option func(*Stream)

// WithBufferSize sets the per-subscriber buffer
func WithBufferSize(n int) Option {
	return func(s *Stream) {
		if n > 0 {
			s.bufferSize = n
		}
	}
}

// WithHistorySize sets how many past events are replayed to late subscribers.
// Zero disables replay.
func WithHistorySize(n int) Option {
	return func(s *Stream) {
		if n >= 0 {
			s.historySize = n
		}
	}
}

// WithClock overrides the event timestamp source
func WithClock(now func() time.Time) Option {
	return func(s *Stream) {
		s.now = now
	}
}

// Stream is a per-attempt event stream
type Stream struct {
	mu          sync.Mutex
	subs        map[*Subscription]struct{}
	history     []domain.ExtractionEvent
	historySize int
	bufferSize  int
	seq         uint64
	closed      bool
	done        chan struct{}
	now         func() time.Time
}

// New creates an open stream
func New(opts ...Option) *Stream {
	s := &Stream{
		subs:        make(map[*Subscription]struct{}),
		historySize: DefaultHistorySize,
		bufferSize:  DefaultBufferSize,
		done:        make(chan struct{}),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Emit publishes a stage change and returns the stamped event. Emits after
// Close are dropped and return a zero event.
func (s *Stream) Emit(stage domain.Stage, message string) domain.ExtractionEvent {
	return s.Publish(domain.ExtractionEvent{Stage: stage, Message: message})
}

// Publish stamps ev with the next sequence number and delivers it. A caller
// supplied StageDone is treated like Close.
func (s *Stream) Publish(ev domain.ExtractionEvent) domain.ExtractionEvent {
	if ev.Stage == domain.StageDone {
		return s.closeWith(ev.Message)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ExtractionEvent{}
	}

	ev = s.stamp(ev)
	s.remember(ev)
	for sub := range s.subs {
		sub.offer(ev)
	}
	return ev
}

// Close emits the sentinel once and closes all subscriptions. Later calls are
// no-ops.
func (s *Stream) Close() {
	s.closeWith("")
}

// CloseWith is Close with a message attached to the sentinel
func (s *Stream) CloseWith(message string) {
	s.closeWith(message)
}

func (s *Stream) closeWith(message string) domain.ExtractionEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ExtractionEvent{}
	}
	s.closed = true

	sentinel := s.stamp(domain.ExtractionEvent{Stage: domain.StageDone, Message: message})
	s.remember(sentinel)
	for sub := range s.subs {
		sub.finish(sentinel)
	}
	s.subs = make(map[*Subscription]struct{})
	close(s.done)
	return sentinel
}

// Subscribe registers an observer. Buffered history is replayed first; a
// subscription to a closed stream receives the history (ending with the
// sentinel) and is then closed.
func (s *Stream) Subscribe() *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	size := s.bufferSize
	if len(s.history)+1 > size {
		size = len(s.history) + 1
	}
	sub := &Subscription{
		ch:     make(chan domain.ExtractionEvent, size),
		stream: s,
	}
	for _, ev := range s.history {
		sub.ch <- ev
	}

	if s.closed {
		if len(s.history) == 0 || !s.history[len(s.history)-1].IsSentinel() {
			// history was trimmed past the sentinel or disabled
			sub.ch <- domain.ExtractionEvent{Seq: s.seq, Stage: domain.StageDone, Time: s.now()}
		}
		close(sub.ch)
		return sub
	}

	s.subs[sub] = struct{}{}
	return sub
}

// Done is closed once the sentinel has been emitted
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Closed reports whether the sentinel has been emitted
func (s *Stream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// History returns a copy of the retained events
func (s *Stream) History() []domain.ExtractionEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ExtractionEvent(nil), s.history...)
}

func (s *Stream) unsubscribe(sub *Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subs[sub]; !ok {
		return
	}
	delete(s.subs, sub)
	close(sub.ch)
}

// stamp and remember require s.mu
func (s *Stream) stamp(ev domain.ExtractionEvent) domain.ExtractionEvent {
	s.seq++
	ev.Seq = s.seq
	if ev.Time.IsZero() {
		ev.Time = s.now()
	}
	return ev
}

func (s *Stream) remember(ev domain.ExtractionEvent) {
	if s.historySize == 0 {
		return
	}
	s.history = append(s.history, ev)
	if over := len(s.history) - s.historySize; over > 0 {
		s.history = append(s.history[:0:0], s.history[over:]...)
	}
}

// Subscription is one observer's view of a Stream
type Subscription struct {
	ch      chan domain.ExtractionEvent
	stream  *Stream
	dropped int
}

// Events yields events in emission order. The last value is the sentinel,
// after which the channel is closed.
func (sub *Subscription) Events() <-chan domain.ExtractionEvent {
	return sub.ch
}

// Dropped returns how many events were discarded because the buffer was full
func (sub *Subscription) Dropped() int {
	sub.stream.mu.Lock()
	defer sub.stream.mu.Unlock()
	return sub.dropped
}

// Cancel detaches the observer without affecting the producer
func (sub *Subscription) Cancel() {
	sub.stream.unsubscribe(sub)
}

// offer and finish are called with the stream lock held, which makes the
// stream the only sender on sub.ch.
func (sub *Subscription) offer(ev domain.ExtractionEvent) {
	select {
	case sub.ch <- ev:
		return
	default:
	}

	select {
	case <-sub.ch:
		sub.dropped++
	default:
	}

	select {
	case sub.ch <- ev:
	default:
		sub.dropped++
	}
}

func (sub *Subscription) finish(sentinel domain.ExtractionEvent) {
	sub.offer(sentinel)
	close(sub.ch)
}
