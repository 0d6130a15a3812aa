/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddbstream

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"github.com/suparena/livestore/storagemodels"
)

type recordingNotifier struct {
	changes []storagemodels.Changes
}

func (r *recordingNotifier) NotifyChanges(c storagemodels.Changes) {
	r.changes = append(r.changes, c)
}

func streamARN(table string) string {
	return "arn:aws:dynamodb:us-east-1:123456789012:table/" + table + "/stream/2025-01-01T00:00:00.000"
}

func record(table, eventName string, keys map[string]events.DynamoDBAttributeValue, at time.Time) events.DynamoDBEventRecord {
	return events.DynamoDBEventRecord{
		EventID:        table + "-" + eventName,
		EventName:      eventName,
		EventSourceArn: streamARN(table),
		Change: events.DynamoDBStreamRecord{
			Keys:                        keys,
			ApproximateCreationDateTime: events.SecondsEpochTime{Time: at},
		},
	}
}

func TestTableFromARN(t *testing.T) {
	tests := []struct {
		arn  string
		want string
	}{
		{arn: streamARN("users"), want: "users"},
		{arn: "arn:aws:dynamodb:eu-west-1:1:table/orders", want: "orders"},
		{arn: "arn:aws:sqs:us-east-1:1:queue", want: ""},
		{arn: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.arn, func(t *testing.T) {
			if got := TableFromARN(tt.arn); got != tt.want {
				t.Errorf("TableFromARN(%q) = %q, want %q", tt.arn, got, tt.want)
			}
		})
	}
}

func TestKeyValue(t *testing.T) {
	keys := map[string]events.DynamoDBAttributeValue{
		"id":    events.NewStringAttribute("u1"),
		"seq":   events.NewNumberAttribute("42"),
		"flags": events.NewBooleanAttribute(true),
	}
	if got := keyValue(keys, "id"); got != "u1" {
		t.Errorf("expected u1, got %q", got)
	}
	if got := keyValue(keys, "seq"); got != "42" {
		t.Errorf("expected 42, got %q", got)
	}
	if got := keyValue(keys, "flags"); got != "" {
		t.Errorf("non-scalar key should be ignored, got %q", got)
	}
	if got := keyValue(nil, "id"); got != "" {
		t.Errorf("expected empty for nil keys, got %q", got)
	}
}

func TestHandleEventGroupsByTable(t *testing.T) {
	n := &recordingNotifier{}
	f := NewForwarder(n, nil, WithRelation("prod-users", "users"))

	t0 := time.Unix(1700000000, 0).UTC()
	event := events.DynamoDBEvent{Records: []events.DynamoDBEventRecord{
		record("prod-users", "INSERT", map[string]events.DynamoDBAttributeValue{"id": events.NewStringAttribute("u1")}, t0),
		record("tweets", "MODIFY", map[string]events.DynamoDBAttributeValue{"id": events.NewStringAttribute("t1")}, t0),
		record("prod-users", "REMOVE", map[string]events.DynamoDBAttributeValue{"id": events.NewStringAttribute("u2")}, t0.Add(time.Second)),
		{EventID: "bad", EventSourceArn: "not-an-arn"},
	}}

	if err := f.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("HandleEvent failed: %v", err)
	}

	if len(n.changes) != 2 {
		t.Fatalf("expected one change per table, got %d", len(n.changes))
	}

	users := n.changes[0]
	if users.Relations[0] != "users" || len(users.AffectedIDs) != 2 || users.AffectedIDs[1] != "u2" {
		t.Fatalf("unexpected users change %+v", users)
	}
	if !time.Time(users.At).Equal(t0.Add(time.Second)) {
		t.Fatalf("expected latest record time, got %v", time.Time(users.At))
	}

	if n.changes[1].Relations[0] != "tweets" {
		t.Fatalf("unmapped table should be its own relation, got %v", n.changes[1].Relations)
	}
}

func TestHandleEventCustomKeyAndCancellation(t *testing.T) {
	n := &recordingNotifier{}
	f := NewForwarder(n, nil, WithKeyAttribute("pk"))

	event := events.DynamoDBEvent{Records: []events.DynamoDBEventRecord{
		record("orders", "INSERT", map[string]events.DynamoDBAttributeValue{"pk": events.NewNumberAttribute("7")}, time.Time{}),
	}}
	if err := f.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("HandleEvent failed: %v", err)
	}
	if len(n.changes) != 1 || n.changes[0].AffectedIDs[0] != "7" {
		t.Fatalf("unexpected changes %+v", n.changes)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := f.HandleEvent(ctx, event); err == nil {
		t.Fatal("expected context error")
	}
	if len(n.changes) != 1 {
		t.Fatal("nothing should be forwarded after cancellation")
	}
}
