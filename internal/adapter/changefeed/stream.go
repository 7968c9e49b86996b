// Package changefeed holds the pieces the change feed transports share: the
// subscription stream, the event codec and the scope relevance check.
package changefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/YelzhanWeb/ordertrack/internal/domain"
)

// Stream implements interfaces.Subscription on top of a transport-specific
// read loop. The loop calls Emit for each event and Fail when the
// connection is lost.
type Stream struct {
	events chan domain.ChangeEvent
	done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	stop   func() error

	mu       sync.Mutex
	err      error
	doneOnce sync.Once
	stopOnce sync.Once
	stopErr  error
}

// NewStream returns a stream whose Context ends on Close or Fail. stop
// releases the transport resources and runs once, on the first Close. Fail
// never runs it, so stop may wait for the read loop that calls Fail.
func NewStream(parent context.Context, buffer int, stop func() error) *Stream {
	if buffer <= 0 {
		buffer = 64
	}
	ctx, cancel := context.WithCancel(parent)
	return &Stream{
		events: make(chan domain.ChangeEvent, buffer),
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
		stop:   stop,
	}
}

// Context is cancelled when the stream is closed; read loops select on it.
func (s *Stream) Context() context.Context {
	return s.ctx
}

// Emit queues ev. It returns false once the stream is closed.
func (s *Stream) Emit(ev domain.ChangeEvent) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	case <-s.ctx.Done():
		return false
	}
}

// Fail records why the connection dropped and ends the stream.
func (s *Stream) Fail(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
	s.end()
}

func (s *Stream) Events() <-chan domain.ChangeEvent { return s.events }
func (s *Stream) Done() <-chan struct{}             { return s.done }

func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close ends the stream and releases the transport. Safe to call twice.
func (s *Stream) Close() error {
	s.end()
	s.stopOnce.Do(func() {
		if s.stop == nil {
			return
		}
		err := s.stop()
		s.mu.Lock()
		s.stopErr = err
		s.mu.Unlock()
	})
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopErr
}

func (s *Stream) end() {
	s.doneOnce.Do(func() {
		s.cancel()
		close(s.done)
	})
}

// Encode serializes an event for the wire.
func Encode(ev domain.ChangeEvent) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to encode change event: %w", err)
	}
	return data, nil
}

// Decode parses an event from the wire.
func Decode(data []byte) (domain.ChangeEvent, error) {
	var ev domain.ChangeEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return ev, fmt.Errorf("failed to decode change event: %w", err)
	}
	if ev.ID() == "" {
		return ev, fmt.Errorf("change event without order id")
	}
	return ev, nil
}

// Relevant reports whether an event may concern scope. It matches on the
// routing keys of the record so a row leaving the scope is still delivered;
// the subscriber decides what to do with it. Events without a record are
// always relevant.
func Relevant(scope domain.OrderScope, ev domain.ChangeEvent) bool {
	if ev.Record == nil {
		return true
	}
	key := scope.Key()
	for _, k := range domain.RoutingKeys(ev.Record) {
		if k == key {
			return true
		}
	}
	return false
}
