// Package stream provides the ordered, cancellable step event stream consumed
// by the task manager while a pipeline runs.
package stream

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/gethired/jobagents/internal/domain"
)

// Event is one unit of progress emitted by a running pipeline. It may carry a
// partial session state update, a role-tagged content payload, or both. Final
// marks the terminal event of the run.
type Event struct {
	Author     string                 `json:"author,omitempty"`
	Content    *domain.Content        `json:"content,omitempty"`
	StateDelta map[string]interface{} `json:"state_delta,omitempty"`
	Final      bool                   `json:"final,omitempty"`
	Ts         int64                  `json:"ts"` // Unix milliseconds
}

// ErrClosed is returned by Emit and Next after the stream has been closed.
var ErrClosed = errors.New("stream closed")

// Stream is a single-producer, ordered event sequence. The consumer owns the
// stream and is its sole closer; Close is idempotent and cancels the producer.
type Stream struct {
	ch   chan Event
	done chan struct{}

	ctx    context.Context
	cancel context.CancelFunc

	closeOnce  sync.Once
	finishOnce sync.Once

	mu  sync.Mutex
	err error
}

// New creates a stream with the given buffer size.
func New(buffer int) *Stream {
	ctx, cancel := context.WithCancel(context.Background())
	return &Stream{
		ch:     make(chan Event, buffer),
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Produce creates a stream and runs fn as its producer in a goroutine. The
// context passed to fn is canceled when the stream is closed; the error
// returned by fn terminates the stream.
func Produce(buffer int, fn func(ctx context.Context, s *Stream) error) *Stream {
	s := New(buffer)
	go func() {
		s.Finish(fn(s.ctx, s))
	}()
	return s
}

// Emit delivers one event to the consumer. It fails once the stream is closed
// or the context is canceled.
func (s *Stream) Emit(ctx context.Context, ev Event) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	select {
	case s.ch <- ev:
		return nil
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Finish ends the stream from the producer side. A nil error means normal
// completion; Next reports io.EOF once all buffered events are drained.
func (s *Stream) Finish(err error) {
	s.finishOnce.Do(func() {
		s.mu.Lock()
		if err != nil && !errors.Is(err, ErrClosed) && !errors.Is(err, context.Canceled) {
			s.err = err
		}
		s.mu.Unlock()
		close(s.ch)
	})
}

// Next returns the next event in emission order. It returns io.EOF on normal
// completion, the producer's error on failure, ErrClosed after Close, and the
// context error on cancellation.
func (s *Stream) Next(ctx context.Context) (Event, error) {
	select {
	case ev, ok := <-s.ch:
		if !ok {
			return Event{}, s.finalErr()
		}
		return ev, nil
	case <-s.done:
		return Event{}, ErrClosed
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
}

// Close cancels the producer and releases the stream. Safe to call multiple
// times and from any exit path.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		close(s.done)
	})
	return nil
}

func (s *Stream) finalErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	return io.EOF
}
