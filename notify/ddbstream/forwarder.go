/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package ddbstream turns DynamoDB stream events into store change
// notifications, so live queries follow writes made by other processes.
package ddbstream

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/go-openapi/strfmt"

	"github.com/suparena/livestore/storagemodels"
)

// Notifier receives the changes found in a stream batch. *livestore.Store
// implements it.
type Notifier interface {
	NotifyChanges(changes storagemodels.Changes)
}

// Forwarder forwards DynamoDB stream records to a Notifier.
type Forwarder struct {
	notifier     Notifier
	logger       *slog.Logger
	keyAttribute string
	relations    map[string]string
}

// Option configures a Forwarder.
type Option func(*Forwarder)

// WithKeyAttribute sets the key attribute reported as the affected ID.
func WithKeyAttribute(name string) Option {
	return func(f *Forwarder) {
		f.keyAttribute = name
	}
}

// WithRelation maps a table name to a relation name. Unmapped tables use
// the table name as the relation.
func WithRelation(table, relation string) Option {
	return func(f *Forwarder) {
		f.relations[table] = relation
	}
}

// NewForwarder creates a forwarder.
func NewForwarder(n Notifier, logger *slog.Logger, opts ...Option) *Forwarder {
	if logger == nil {
		logger = slog.Default()
	}
	f := &Forwarder{
		notifier:     n,
		logger:       logger,
		keyAttribute: "id",
		relations:    make(map[string]string),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

type batch struct {
	ids []string
	at  time.Time
}

// HandleEvent publishes one change per relation touched by event. It is
// shaped as an AWS Lambda handler. Records whose source table cannot be
// determined are logged and skipped since a retry would not fix them.
func (f *Forwarder) HandleEvent(ctx context.Context, event events.DynamoDBEvent) error {
	var order []string
	batches := make(map[string]*batch)

	for _, record := range event.Records {
		if err := ctx.Err(); err != nil {
			return err
		}

		table := TableFromARN(record.EventSourceArn)
		if table == "" {
			f.logger.Warn("skipping stream record without table",
				slog.String("event_id", record.EventID),
				slog.String("event_source_arn", record.EventSourceArn))
			continue
		}
		relation := f.relation(table)

		b, ok := batches[relation]
		if !ok {
			b = &batch{}
			batches[relation] = b
			order = append(order, relation)
		}
		if id := keyValue(record.Change.Keys, f.keyAttribute); id != "" {
			b.ids = append(b.ids, id)
		}
		if at := record.Change.ApproximateCreationDateTime.Time; at.After(b.at) {
			b.at = at
		}
	}

	for _, relation := range order {
		b := batches[relation]
		changes := storagemodels.NewChanges([]string{relation}, b.ids...)
		if !b.at.IsZero() {
			changes.At = strfmt.DateTime(b.at)
		}
		f.notifier.NotifyChanges(changes)

		f.logger.Debug("stream changes forwarded",
			slog.String("relation", relation),
			slog.Int("ids", len(b.ids)))
	}
	return nil
}

func (f *Forwarder) relation(table string) string {
	if rel, ok := f.relations[table]; ok {
		return rel
	}
	return table
}

// TableFromARN extracts the table name from a DynamoDB stream ARN of the
// form arn:aws:dynamodb:region:account:table/NAME/stream/LABEL.
func TableFromARN(arn string) string {
	_, rest, ok := strings.Cut(arn, ":table/")
	if !ok {
		return ""
	}
	table, _, _ := strings.Cut(rest, "/")
	return table
}

// keyValue renders a scalar key attribute as a string.
func keyValue(keys map[string]events.DynamoDBAttributeValue, name string) string {
	v, ok := keys[name]
	if !ok {
		return ""
	}
	switch v.DataType() {
	case events.DataTypeString:
		return v.String()
	case events.DataTypeNumber:
		return v.Number()
	default:
		return ""
	}
}
