/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"time"
)

// ObserveOptions configures a live query
type ObserveOptions struct {
	BufferSize   int              // Result channel buffer size (default: 0, unbuffered)
	MaxRetries   int              // Retry attempts for a failed execution before emitting the error (default: 0)
	RetryBackoff time.Duration    // Backoff between retries (default: 100ms)
	ErrorHandler func(error) bool // Return true to keep observing after an error, false to stop
}

// ObserveOption is a functional option for configuring a live query
type ObserveOption func(*ObserveOptions)

// DefaultObserveOptions returns default observe options
func DefaultObserveOptions() ObserveOptions {
	return ObserveOptions{
		BufferSize:   0,
		MaxRetries:   0,
		RetryBackoff: 100 * time.Millisecond,
	}
}

// ApplyObserveOptions folds opts over the defaults
func ApplyObserveOptions(opts ...ObserveOption) ObserveOptions {
	options := DefaultObserveOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if options.BufferSize < 0 {
		options.BufferSize = 0
	}
	if options.MaxRetries < 0 {
		options.MaxRetries = 0
	}
	return options
}

// WithBufferSize sets the result channel buffer size
func WithBufferSize(size int) ObserveOption {
	return func(opts *ObserveOptions) {
		opts.BufferSize = size
	}
}

// WithMaxRetries sets the retry attempts for a failed execution
func WithMaxRetries(retries int) ObserveOption {
	return func(opts *ObserveOptions) {
		opts.MaxRetries = retries
	}
}

// WithRetryBackoff sets the retry backoff duration
func WithRetryBackoff(backoff time.Duration) ObserveOption {
	return func(opts *ObserveOptions) {
		opts.RetryBackoff = backoff
	}
}

// WithErrorHandler sets an error handler that can decide whether to continue
func WithErrorHandler(handler func(error) bool) ObserveOption {
	return func(opts *ObserveOptions) {
		opts.ErrorHandler = handler
	}
}
