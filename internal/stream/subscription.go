package stream

import (
	"context"
	"maps"
	"sync"
)

// Subscription is a live history fetch. It must have a single consumer
// reading Batches.
type Subscription struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc

	batches chan Batch
	done    chan struct{}

	// sendMu serializes deliveries so that Unsubscribe can act as a barrier.
	sendMu sync.Mutex

	mu     sync.RWMutex
	order  []string
	states map[string]State
	errs   map[string]error
}

// ID identifies the subscription in logs.
func (s *Subscription) ID() string {
	return s.id
}

// Channels returns the subscribed channel IDs in submission order.
func (s *Subscription) Channels() []string {
	return append([]string(nil), s.order...)
}

// Batches yields pages in per-channel order. The channel is closed once every
// channel is terminal.
func (s *Subscription) Batches() <-chan Batch {
	return s.batches
}

// Done is closed after Batches is closed.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Unsubscribe stops issuing page requests. Pages already in flight complete
// and are discarded. Once Unsubscribe returns no further batch is delivered.
// It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.cancel()

	// Any delivery that started before cancel has now either completed or
	// observed the cancellation.
	s.sendMu.Lock()
	s.sendMu.Unlock() //nolint:staticcheck
}

// State returns the state of a channel. Unknown channels report StateIdle.
func (s *Subscription) State(channelID string) State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.states[channelID]
}

// States returns a snapshot of every channel state.
func (s *Subscription) States() map[string]State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.states)
}

// Err returns the error that failed a channel, or nil.
func (s *Subscription) Err(channelID string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errs[channelID]
}

// Failed returns the errors of every failed channel keyed by channel ID.
func (s *Subscription) Failed() map[string]error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.errs)
}

func (s *Subscription) setState(channelID string, state State, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.states[channelID] = state
	if err != nil {
		s.errs[channelID] = err
	}
}

// emit delivers b to the consumer. It returns false if the subscription was
// cancelled first.
func (s *Subscription) emit(b Batch) bool {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	if s.ctx.Err() != nil {
		return false
	}

	select {
	case s.batches <- b:
		return true
	case <-s.ctx.Done():
		return false
	}
}

// finish marks every channel that never reached a terminal state as
// cancelled.
func (s *Subscription) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, st := range s.states {
		if !st.Terminal() {
			s.states[id] = StateCancelled
		}
	}
}
