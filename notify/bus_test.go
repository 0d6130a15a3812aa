/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package notify

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/suparena/livestore/errors"
	"github.com/suparena/livestore/storagemodels"
)

func changes(relations ...string) storagemodels.Changes {
	return storagemodels.NewChanges(relations)
}

func TestPublishFiltersByRelation(t *testing.T) {
	bus := NewBus()
	users := bus.Subscribe("users")
	tweets := bus.Subscribe("tweets")
	both := bus.Subscribe("users", "tweets")
	defer users.Cancel()
	defer tweets.Cancel()
	defer both.Cancel()

	if n := bus.Publish(changes("users")); n != 2 {
		t.Fatalf("expected delivery to 2 subscribers, got %d", n)
	}

	if users.Pending() != 1 || both.Pending() != 1 {
		t.Fatalf("matching subscribers should have one event, users=%d both=%d", users.Pending(), both.Pending())
	}
	if tweets.Pending() != 0 {
		t.Fatalf("disjoint subscriber received %d events", tweets.Pending())
	}
}

func TestEmptyFilterNeverFires(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe()

	if bus.Len() != 0 {
		t.Fatal("empty filter must not register on the bus")
	}
	bus.Publish(changes("users"))

	if sub.Pending() != 0 {
		t.Fatal("empty filter subscription received an event")
	}
	if _, err := sub.Next(context.Background()); !stderrors.Is(err, errors.ErrSubscriptionClosed) {
		t.Fatalf("expected closed subscription, got %v", err)
	}
}

func TestNoRetroactiveDelivery(t *testing.T) {
	bus := NewBus()
	bus.Publish(changes("users"))

	sub := bus.Subscribe("users")
	defer sub.Cancel()
	if sub.Pending() != 0 {
		t.Fatal("late subscriber must not see earlier events")
	}
}

func TestDrainPreservesOrder(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe("users")
	defer sub.Cancel()

	for _, id := range []string{"1", "2", "3"} {
		bus.Publish(storagemodels.NewChanges([]string{"users"}, id))
	}

	select {
	case <-sub.Ready():
	case <-time.After(time.Second):
		t.Fatal("ready was not signalled")
	}

	got := sub.Drain()
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}
	for i, c := range got {
		if c.AffectedIDs[0] != []string{"1", "2", "3"}[i] {
			t.Fatalf("event %d out of order: %v", i, c.AffectedIDs)
		}
	}
	if sub.Pending() != 0 {
		t.Fatal("drain should empty the queue")
	}
}

func TestNext(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe("users")

	go func() {
		time.Sleep(10 * time.Millisecond)
		bus.Publish(changes("users"))
		bus.Publish(changes("users"))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for i := 0; i < 2; i++ {
		if _, err := sub.Next(ctx); err != nil {
			t.Fatalf("Next %d failed: %v", i, err)
		}
	}

	short, cancelShort := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancelShort()
	if _, err := sub.Next(short); !stderrors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline, got %v", err)
	}

	sub.Cancel()
	if _, err := sub.Next(ctx); !stderrors.Is(err, errors.ErrSubscriptionClosed) {
		t.Fatalf("expected closed subscription, got %v", err)
	}
}

func TestCancel(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe("users")
	bus.Publish(changes("users"))

	sub.Cancel()
	sub.Cancel()

	if !sub.Cancelled() {
		t.Fatal("subscription should report cancelled")
	}
	if bus.Len() != 0 {
		t.Fatal("cancel should remove the subscription from the bus")
	}
	if sub.Pending() != 0 {
		t.Fatal("cancel should discard queued events")
	}
	if n := bus.Publish(changes("users")); n != 0 {
		t.Fatalf("cancelled subscription received %d events", n)
	}
}

func TestClose(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe("users")
	bus.Close()
	bus.Close()

	if !sub.Cancelled() {
		t.Fatal("close should cancel existing subscriptions")
	}
	if late := bus.Subscribe("users"); !late.Cancelled() {
		t.Fatal("subscriptions after close should be cancelled")
	}
	if n := bus.Publish(changes("users")); n != 0 {
		t.Fatal("publish after close should be ignored")
	}
}

func TestConcurrentPublishSubscribe(t *testing.T) {
	bus := NewBus()
	const writers, readers, events = 8, 8, 50

	subs := make([]*Subscription, readers)
	for i := range subs {
		subs[i] = bus.Subscribe("users")
	}

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < events; i++ {
				bus.Publish(changes("users"))
			}
		}()
	}
	// churn unrelated subscriptions while writers run
	for c := 0; c < 4; c++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < events; i++ {
				bus.Subscribe("tweets").Cancel()
			}
		}()
	}
	wg.Wait()

	for i, sub := range subs {
		if got := len(sub.Drain()); got != writers*events {
			t.Fatalf("subscriber %d got %d events, want %d", i, got, writers*events)
		}
		sub.Cancel()
	}
	if bus.Len() != 0 {
		t.Fatalf("expected no live subscriptions, got %d", bus.Len())
	}
}
