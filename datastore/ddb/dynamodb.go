/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/suparena/livestore/errors"
	"github.com/suparena/livestore/storagemodels"
)

// Store implements datastore.DataStore on DynamoDB. Each relation is a table
// whose partition key is KeyAttribute.
type Store struct {
	client       API
	keyAttribute string
	pageSize     int32
	maxRetries   int
	retryBackoff time.Duration
	logger       *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithKeyAttribute sets the partition key attribute (default "id").
func WithKeyAttribute(attr string) Option {
	return func(s *Store) {
		s.keyAttribute = attr
	}
}

// WithPageSize sets the Scan page size
func WithPageSize(size int32) Option {
	return func(s *Store) {
		s.pageSize = size
	}
}

// WithMaxRetries sets the retry attempts for throttled requests
func WithMaxRetries(retries int) Option {
	return func(s *Store) {
		s.maxRetries = retries
	}
}

// WithRetryBackoff sets the backoff between retries
func WithRetryBackoff(backoff time.Duration) Option {
	return func(s *Store) {
		s.retryBackoff = backoff
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New constructs a Store over client.
func New(client API, opts ...Option) *Store {
	s := &Store{
		client:       client,
		keyAttribute: "id",
		pageSize:     100,
		maxRetries:   3,
		retryBackoff: time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Query scans q.Relation with q.Where as the filter expression. Ordering,
// offset and limit are applied after the scan. Grouping is not supported.
func (s *Store) Query(ctx context.Context, q storagemodels.Query) (storagemodels.Cursor, error) {
	if err := q.Validate(); err != nil {
		return nil, errors.NewValidationError("query", err.Error())
	}
	if q.GroupBy != "" || q.Distinct {
		return nil, errors.NewValidationError("query", "group by and distinct are not supported by DynamoDB")
	}

	expr := newExpression()
	input := &sdk.ScanInput{
		TableName: aws.String(q.Relation),
		Limit:     aws.Int32(s.pageSize),
	}
	if q.Where != "" {
		filter, err := expr.filter(q.Where, q.WhereArgs)
		if err != nil {
			return nil, err
		}
		input.FilterExpression = aws.String(filter)
	}
	if proj := expr.projection(q.Columns); proj != "" {
		input.ProjectionExpression = aws.String(proj)
	}
	input.ExpressionAttributeNames = expr.attrNames()
	input.ExpressionAttributeValues = expr.attrValues()

	// without ordering the scan can stop once enough rows are collected
	want := 0
	if q.OrderBy == "" && q.Limit > 0 {
		want = q.Offset + q.Limit
	}

	items, err := s.scan(ctx, input, want)
	if err != nil {
		return nil, err
	}

	rows := make([]storagemodels.Row, 0, len(items))
	for _, item := range items {
		row, err := toRow(item)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}

	if q.OrderBy != "" {
		orderRows(rows, q.OrderBy)
	}
	if q.Offset > 0 {
		if q.Offset >= len(rows) {
			rows = nil
		} else {
			rows = rows[q.Offset:]
		}
	}
	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}

	return storagemodels.NewRowsCursor(q.Columns, rows), nil
}

// RawQuery runs q.Statement as a PartiQL statement.
func (s *Store) RawQuery(ctx context.Context, q storagemodels.RawQuery) (storagemodels.Cursor, error) {
	params, err := marshalParams(q.Args)
	if err != nil {
		return nil, err
	}

	var rows []storagemodels.Row
	var next *string
	for {
		out, err := withRetry(ctx, s, func() (*sdk.ExecuteStatementOutput, error) {
			return s.client.ExecuteStatement(ctx, &sdk.ExecuteStatementInput{
				Statement:  aws.String(q.Statement),
				Parameters: params,
				NextToken:  next,
			})
		})
		if err != nil {
			return nil, fmt.Errorf("ExecuteStatement failed: %w", err)
		}
		for _, item := range out.Items {
			row, err := toRow(item)
			if err != nil {
				return nil, err
			}
			rows = append(rows, row)
		}
		if out.NextToken == nil || *out.NextToken == "" {
			break
		}
		next = out.NextToken
	}

	return storagemodels.NewRowsCursor(nil, rows), nil
}

// Insert puts row into q.Relation, failing if the key already exists. A UUID
// key is assigned when row has none.
func (s *Store) Insert(ctx context.Context, q storagemodels.InsertQuery, row storagemodels.Row) (storagemodels.InsertResult, error) {
	stored := row.Clone()
	key, ok := stored[s.keyAttribute]
	if !ok || key == nil || key == "" {
		key = uuid.NewString()
		stored[s.keyAttribute] = key
	}
	id := fmt.Sprint(key)

	item, err := attributevalue.MarshalMap(map[string]any(stored))
	if err != nil {
		return storagemodels.InsertResult{}, fmt.Errorf("failed to marshal row: %w", err)
	}

	expr := newExpression()
	cond := fmt.Sprintf("attribute_not_exists(%s)", expr.name(s.keyAttribute))

	_, err = withRetry(ctx, s, func() (*sdk.PutItemOutput, error) {
		return s.client.PutItem(ctx, &sdk.PutItemInput{
			TableName:                aws.String(q.Relation),
			Item:                     item,
			ConditionExpression:      aws.String(cond),
			ExpressionAttributeNames: expr.attrNames(),
		})
	})
	if err != nil {
		var cfe *types.ConditionalCheckFailedException
		if stderrors.As(err, &cfe) {
			return storagemodels.InsertResult{}, errors.NewAlreadyExistsError(q.Relation, id)
		}
		return storagemodels.InsertResult{}, fmt.Errorf("PutItem failed: %w", err)
	}
	return storagemodels.InsertResult{ID: id}, nil
}

// Update applies the columns of row to every item matching q. The key
// attribute itself is never rewritten.
func (s *Store) Update(ctx context.Context, q storagemodels.UpdateQuery, row storagemodels.Row) (int64, error) {
	keys, err := s.matchingKeys(ctx, q.Relation, q.Where, q.WhereArgs)
	if err != nil {
		return 0, err
	}

	columns := make([]string, 0, len(row))
	for c := range row {
		columns = append(columns, c)
	}
	sort.Strings(columns)

	var n int64
	for _, key := range keys {
		expr := newExpression()
		set, err := expr.update(row, columns, s.keyAttribute)
		if err != nil {
			return n, err
		}
		cond := fmt.Sprintf("attribute_exists(%s)", expr.name(s.keyAttribute))

		_, err = withRetry(ctx, s, func() (*sdk.UpdateItemOutput, error) {
			return s.client.UpdateItem(ctx, &sdk.UpdateItemInput{
				TableName:                 aws.String(q.Relation),
				Key:                       key,
				UpdateExpression:          aws.String(set),
				ConditionExpression:       aws.String(cond),
				ExpressionAttributeNames:  expr.attrNames(),
				ExpressionAttributeValues: expr.attrValues(),
			})
		})
		if err != nil {
			var cfe *types.ConditionalCheckFailedException
			if stderrors.As(err, &cfe) {
				// deleted between scan and update
				continue
			}
			return n, fmt.Errorf("UpdateItem failed: %w", err)
		}
		n++
	}
	return n, nil
}

// Delete removes every item matching q.
func (s *Store) Delete(ctx context.Context, q storagemodels.DeleteQuery) (int64, error) {
	keys, err := s.matchingKeys(ctx, q.Relation, q.Where, q.WhereArgs)
	if err != nil {
		return 0, err
	}

	var n int64
	for _, key := range keys {
		_, err := withRetry(ctx, s, func() (*sdk.DeleteItemOutput, error) {
			return s.client.DeleteItem(ctx, &sdk.DeleteItemInput{
				TableName: aws.String(q.Relation),
				Key:       key,
			})
		})
		if err != nil {
			return n, fmt.Errorf("failed to delete item in DynamoDB: %w", err)
		}
		n++
	}
	return n, nil
}

// Exec runs q.Statement as a PartiQL write. DynamoDB does not report
// affected rows, so a successful statement counts as one.
func (s *Store) Exec(ctx context.Context, q storagemodels.RawQuery) (int64, error) {
	params, err := marshalParams(q.Args)
	if err != nil {
		return 0, err
	}
	_, err = withRetry(ctx, s, func() (*sdk.ExecuteStatementOutput, error) {
		return s.client.ExecuteStatement(ctx, &sdk.ExecuteStatementInput{
			Statement:  aws.String(q.Statement),
			Parameters: params,
		})
	})
	if err != nil {
		return 0, fmt.Errorf("ExecuteStatement failed: %w", err)
	}
	return 1, nil
}

// matchingKeys scans relation for items matching where and returns their keys.
func (s *Store) matchingKeys(ctx context.Context, relation, where string, args []any) ([]map[string]types.AttributeValue, error) {
	expr := newExpression()
	input := &sdk.ScanInput{
		TableName: aws.String(relation),
		Limit:     aws.Int32(s.pageSize),
	}
	input.ProjectionExpression = aws.String(expr.name(s.keyAttribute))
	if where != "" {
		filter, err := expr.filter(where, args)
		if err != nil {
			return nil, err
		}
		input.FilterExpression = aws.String(filter)
	}
	input.ExpressionAttributeNames = expr.attrNames()
	input.ExpressionAttributeValues = expr.attrValues()

	items, err := s.scan(ctx, input, 0)
	if err != nil {
		return nil, err
	}

	keys := make([]map[string]types.AttributeValue, 0, len(items))
	for _, item := range items {
		v, ok := item[s.keyAttribute]
		if !ok {
			continue
		}
		keys = append(keys, map[string]types.AttributeValue{s.keyAttribute: v})
	}
	return keys, nil
}

// scan pages through input until exhausted or at least want items are
// collected (want of zero means all).
func (s *Store) scan(ctx context.Context, input *sdk.ScanInput, want int) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue
	pages := 0
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		out, err := withRetry(ctx, s, func() (*sdk.ScanOutput, error) {
			return s.client.Scan(ctx, input)
		})
		if err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		pages++
		items = append(items, out.Items...)

		if want > 0 && len(items) >= want {
			break
		}
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}

	s.logger.Debug("dynamodb scan complete",
		slog.String("table", aws.ToString(input.TableName)),
		slog.Int("pages", pages),
		slog.Int("items", len(items)))
	return items, nil
}

func marshalParams(args []any) ([]types.AttributeValue, error) {
	if len(args) == 0 {
		return nil, nil
	}
	params := make([]types.AttributeValue, 0, len(args))
	for _, a := range args {
		av, err := attributevalue.Marshal(a)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal statement parameter: %w", err)
		}
		params = append(params, av)
	}
	return params, nil
}

func toRow(item map[string]types.AttributeValue) (storagemodels.Row, error) {
	var m map[string]any
	if err := attributevalue.UnmarshalMap(item, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	return storagemodels.Row(m), nil
}

func orderRows(rows []storagemodels.Row, orderBy string) {
	fields := strings.Fields(orderBy)
	col := fields[0]
	desc := len(fields) > 1 && strings.EqualFold(fields[1], "desc")
	sort.SliceStable(rows, func(i, j int) bool {
		c := compareValues(rows[i][col], rows[j][col])
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func compareValues(a, b any) int {
	as, bs := fmt.Sprint(a), fmt.Sprint(b)
	af, aerr := strconv.ParseFloat(as, 64)
	bf, berr := strconv.ParseFloat(bs, 64)
	if aerr == nil && berr == nil {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(as, bs)
}
