/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package livestore

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/suparena/livestore/notify"
	"github.com/suparena/livestore/storagemodels"
)

// LiveState is the lifecycle state of a LiveQuery.
type LiveState int32

const (
	LiveCreated LiveState = iota
	LivePendingFirst
	LiveSteady
	LiveExecuting
	LiveCancelled
	LiveCompleted
)

func (s LiveState) String() string {
	switch s {
	case LiveCreated:
		return "created"
	case LivePendingFirst:
		return "pending_first"
	case LiveSteady:
		return "steady"
	case LiveExecuting:
		return "executing"
	case LiveCancelled:
		return "cancelled"
	case LiveCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

func (s LiveState) terminal() bool {
	return s == LiveCancelled || s == LiveCompleted
}

// Snapshot is one emission of a LiveQuery. Exactly one of Value and Err is
// meaningful.
type Snapshot[T any] struct {
	Value T
	Err   error
	// Seq numbers emissions from 1.
	Seq uint64
	At  time.Time
}

// LiveQuery re-executes a read every time one of its observed relations
// changes and emits each result on Results. Notifications that pile up while
// the query is busy collapse into a single re-execution.
type LiveQuery[T any] struct {
	id        string
	relations []string
	run       func(context.Context) (T, error)
	opts      storagemodels.ObserveOptions
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	sub    *notify.Subscription

	results chan Snapshot[T]
	done    chan struct{}
	state   atomic.Int32
	once    sync.Once
	seq     uint64
}

// startLiveQuery subscribes before returning, so any change published after
// Observe returns is seen by the query.
func startLiveQuery[T any](ctx context.Context, s *Store, relations []string, run func(context.Context) (T, error), opts []storagemodels.ObserveOption) *LiveQuery[T] {
	options := storagemodels.ApplyObserveOptions(append(slices.Clone(s.observeDefaults), opts...)...)
	lctx, cancel := context.WithCancel(ctx)

	q := &LiveQuery[T]{
		id:        uuid.NewString(),
		relations: relations,
		run:       run,
		opts:      options,
		ctx:       lctx,
		cancel:    cancel,
		results:   make(chan Snapshot[T], options.BufferSize),
		done:      make(chan struct{}),
	}
	q.logger = s.logger.With(slog.String("live_query", q.id))
	if len(relations) > 0 {
		q.sub = s.bus.Subscribe(relations...)
	}

	go q.loop()
	return q
}

// ID returns the live query identifier used in logs.
func (q *LiveQuery[T]) ID() string { return q.id }

// Relations returns the observed relations. Empty means one-shot.
func (q *LiveQuery[T]) Relations() []string { return q.relations }

// Results returns the snapshot channel. It is closed when the query stops.
func (q *LiveQuery[T]) Results() <-chan Snapshot[T] { return q.results }

// Done is closed once the query goroutine has exited.
func (q *LiveQuery[T]) Done() <-chan struct{} { return q.done }

// State returns the current lifecycle state.
func (q *LiveQuery[T]) State() LiveState { return LiveState(q.state.Load()) }

// Cancel stops the query. It is idempotent and never blocks. An execution
// in flight when Cancel is called is not emitted.
func (q *LiveQuery[T]) Cancel() {
	q.once.Do(func() {
		q.setState(LiveCancelled)
		if q.sub != nil {
			q.sub.Cancel()
		}
		q.cancel()
	})
}

// setState moves to next unless a terminal state has been reached.
func (q *LiveQuery[T]) setState(next LiveState) {
	for {
		cur := q.state.Load()
		if LiveState(cur).terminal() {
			return
		}
		if q.state.CompareAndSwap(cur, int32(next)) {
			return
		}
	}
}

func (q *LiveQuery[T]) loop() {
	defer close(q.done)
	defer close(q.results)
	defer q.cancel()
	if q.sub != nil {
		defer q.sub.Cancel()
	}

	q.setState(LivePendingFirst)
	if !q.executeAndEmit() {
		q.setState(LiveCancelled)
		return
	}
	if q.sub == nil {
		q.setState(LiveCompleted)
		return
	}

	for {
		q.setState(LiveSteady)
		select {
		case <-q.ctx.Done():
			q.setState(LiveCancelled)
			return
		case <-q.sub.Done():
			q.setState(LiveCancelled)
			return
		case <-q.sub.Ready():
			pending := q.sub.Drain()
			if len(pending) == 0 {
				continue
			}
			q.logger.Debug("re-executing live query",
				slog.Int("notifications", len(pending)),
				slog.Any("relations", q.relations))
			if !q.executeAndEmit() {
				q.setState(LiveCancelled)
				return
			}
		}
	}
}

// executeAndEmit runs the query and sends the snapshot. It reports false when
// the query must stop.
func (q *LiveQuery[T]) executeAndEmit() bool {
	q.setState(LiveExecuting)
	value, err := q.execWithRetry()

	if q.ctx.Err() != nil {
		return false
	}

	q.seq++
	snap := Snapshot[T]{Value: value, Err: err, Seq: q.seq, At: time.Now()}
	// Cancellation wins over a ready receiver; a single select picks at random.
	select {
	case <-q.ctx.Done():
		return false
	default:
	}
	select {
	case <-q.ctx.Done():
		return false
	case q.results <- snap:
	}

	if err != nil {
		q.logger.Warn("live query execution failed", slog.Any("error", err))
		if q.opts.ErrorHandler != nil && !q.opts.ErrorHandler(err) {
			return false
		}
	}
	return true
}

func (q *LiveQuery[T]) execWithRetry() (T, error) {
	for attempt := 0; ; attempt++ {
		value, err := q.run(q.ctx)
		if err == nil || attempt >= q.opts.MaxRetries || q.ctx.Err() != nil {
			return value, err
		}

		backoff := q.opts.RetryBackoff * time.Duration(attempt+1)
		q.logger.Debug("retrying live query",
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", backoff),
			slog.Any("error", err))

		select {
		case <-time.After(backoff):
		case <-q.ctx.Done():
			return value, err
		}
	}
}
