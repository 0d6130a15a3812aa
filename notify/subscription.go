/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package notify

import (
	"context"
	"sync"

	"github.com/suparena/livestore/errors"
	"github.com/suparena/livestore/storagemodels"
)

// Subscription is a live handle on the Bus. Events queue until drained.
type Subscription struct {
	id        string
	relations []string
	filter    map[string]struct{}

	mu     sync.Mutex
	queue  []storagemodels.Changes
	ready  chan struct{}
	done   chan struct{}
	once   sync.Once
	closed bool

	onCancel func()
}

func newSubscription(id string, relations []string) *Subscription {
	filter := make(map[string]struct{}, len(relations))
	for _, r := range relations {
		filter[r] = struct{}{}
	}
	return &Subscription{
		id:        id,
		relations: relations,
		filter:    filter,
		ready:     make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
}

// ID returns the subscription identifier.
func (s *Subscription) ID() string { return s.id }

// Relations returns the relation filter.
func (s *Subscription) Relations() []string { return s.relations }

func (s *Subscription) enqueue(c storagemodels.Changes) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.queue = append(s.queue, c)
	s.mu.Unlock()

	select {
	case s.ready <- struct{}{}:
	default:
	}
	return true
}

// Ready is signalled when at least one event may be queued. A single signal
// can stand for any number of events; call Drain after receiving it.
func (s *Subscription) Ready() <-chan struct{} { return s.ready }

// Done is closed when the subscription is cancelled.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Drain removes and returns every queued event in publish order.
func (s *Subscription) Drain() []storagemodels.Changes {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.queue
	s.queue = nil
	return out
}

// Pending returns the number of queued events.
func (s *Subscription) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Next blocks until an event is available, the subscription is cancelled
// or ctx is done.
func (s *Subscription) Next(ctx context.Context) (storagemodels.Changes, error) {
	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return storagemodels.Changes{}, errors.ErrSubscriptionClosed
		}
		if len(s.queue) > 0 {
			c := s.queue[0]
			s.queue = s.queue[1:]
			more := len(s.queue) > 0
			s.mu.Unlock()
			if more {
				select {
				case s.ready <- struct{}{}:
				default:
				}
			}
			return c, nil
		}
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return storagemodels.Changes{}, ctx.Err()
		case <-s.done:
		case <-s.ready:
		}
	}
}

// Cancel stops delivery and discards queued events. It is idempotent and
// never blocks.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.queue = nil
		s.mu.Unlock()
		close(s.done)
		if s.onCancel != nil {
			s.onCancel()
		}
	})
}

// Cancelled reports whether Cancel has been called.
func (s *Subscription) Cancelled() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}
