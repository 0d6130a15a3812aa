/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package notify

import (
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/suparena/livestore/storagemodels"
)

// Bus fans Changes out to subscribers filtered by relation name. Publish
// never blocks and never drops: each subscriber owns an unbounded queue.
type Bus struct {
	subs   *xsync.MapOf[string, *Subscription]
	logger *slog.Logger
	closed atomic.Bool
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets the logger used for delivery diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bus) {
		b.logger = logger
	}
}

// NewBus creates an empty bus.
func NewBus(opts ...Option) *Bus {
	b := &Bus{subs: xsync.NewMapOf[string, *Subscription]()}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	return b
}

// Publish delivers changes to every current subscriber whose filter
// intersects changes.Relations. Events without relations are ignored.
// It returns the number of subscribers the event was queued for.
func (b *Bus) Publish(changes storagemodels.Changes) int {
	if b.closed.Load() || len(changes.Relations) == 0 {
		return 0
	}

	delivered := 0
	b.subs.Range(func(id string, sub *Subscription) bool {
		if !changes.Touches(sub.filter) {
			return true
		}
		if sub.enqueue(changes) {
			delivered++
		}
		return true
	})

	b.logger.Debug("changes published",
		slog.Any("relations", changes.Relations),
		slog.Int("subscribers", delivered))
	return delivered
}

// Subscribe returns a subscription receiving Changes that touch any of
// relations. An empty relation set yields a subscription that never fires
// and is not registered on the bus.
func (b *Bus) Subscribe(relations ...string) *Subscription {
	rels := storagemodels.NormalizeRelations(relations)
	sub := newSubscription(uuid.NewString(), rels)
	if len(rels) == 0 || b.closed.Load() {
		sub.Cancel()
		return sub
	}

	sub.onCancel = func() { b.subs.Delete(sub.id) }
	b.subs.Store(sub.id, sub)
	if b.closed.Load() {
		sub.Cancel()
		return sub
	}

	b.logger.Debug("subscription registered",
		slog.String("id", sub.id),
		slog.Any("relations", rels))
	return sub
}

// Len returns the number of live subscriptions.
func (b *Bus) Len() int {
	return b.subs.Size()
}

// Close cancels every subscription. Later publishes are ignored and later
// subscriptions are returned already cancelled.
func (b *Bus) Close() {
	if !b.closed.CompareAndSwap(false, true) {
		return
	}
	b.subs.Range(func(id string, sub *Subscription) bool {
		sub.Cancel()
		return true
	})
}
