/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// withRetry runs fn, retrying throttling and transient server errors with a
// linear backoff.
func withRetry[O any](ctx context.Context, s *Store, fn func() (O, error)) (O, error) {
	var zero O
	var lastErr error

	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}

		out, err := fn()
		if err == nil {
			return out, nil
		}
		lastErr = err

		if !isRetryableError(err) {
			return zero, err
		}

		if attempt < s.maxRetries {
			backoff := time.Duration(attempt+1) * s.retryBackoff
			s.logger.Warn("retrying dynamodb request",
				slog.Int("attempt", attempt+1),
				slog.Duration("backoff", backoff),
				slog.Any("error", err))
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}

	return zero, fmt.Errorf("request failed after %d retries: %w", s.maxRetries, lastErr)
}

// isRetryableError determines if a DynamoDB error is retryable
func isRetryableError(err error) bool {
	var pte *types.ProvisionedThroughputExceededException
	var rle *types.RequestLimitExceeded
	var ise *types.InternalServerError
	if stderrors.As(err, &pte) || stderrors.As(err, &rle) || stderrors.As(err, &ise) {
		return true
	}

	var retryable interface{ IsRetryable() bool }
	if stderrors.As(err, &retryable) {
		return retryable.IsRetryable()
	}

	return false
}
