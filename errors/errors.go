/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Common sentinel errors
var (
	// ErrNotFound is returned when a row or object is not found
	ErrNotFound = errors.New("entity not found")

	// ErrAlreadyExists is returned when inserting a row whose key is taken
	ErrAlreadyExists = errors.New("entity already exists")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrConfiguration is the class of every error raised before a storage call
	// because the operation could not be set up.
	ErrConfiguration = errors.New("configuration error")

	// ErrNoTypeMapping is returned when no resolver is registered for a type
	// and none was supplied explicitly.
	ErrNoTypeMapping = errors.New("no type mapping registered for type")

	// ErrNoQuery is returned when a read is executed without a query.
	ErrNoQuery = errors.New("please specify query")

	// ErrAlreadyRegistered is returned when registering a type twice
	ErrAlreadyRegistered = errors.New("type mapping already registered")

	// ErrNotRegistered is returned when replacing a mapping that does not exist
	ErrNotRegistered = errors.New("type mapping not registered")

	// ErrStorage is the class of errors propagated from the storage collaborator
	ErrStorage = errors.New("storage error")

	// ErrSubscriptionClosed is returned when reading from a cancelled subscription
	ErrSubscriptionClosed = errors.New("subscription closed")
)

// NotFoundError represents an error when an entity is not found
type NotFoundError struct {
	Type string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with key %q not found", e.Type, e.Key)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// AlreadyExistsError represents an error when an entity already exists
type AlreadyExistsError struct {
	Type string
	Key  string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s with key %q already exists", e.Type, e.Key)
}

func (e *AlreadyExistsError) Is(target error) bool {
	return target == ErrAlreadyExists
}

// ValidationError represents an input validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %q: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// ConfigurationError reports an operation that failed before touching storage.
// Cause is one of ErrNoTypeMapping, ErrNoQuery or a registry error.
type ConfigurationError struct {
	Op    string
	Type  string
	Cause error
}

func (e *ConfigurationError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("%s: %v: %s", e.Op, e.Cause, e.Type)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Cause)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

func (e *ConfigurationError) Unwrap() error {
	return e.Cause
}

// StorageError wraps an error returned by the storage collaborator
type StorageError struct {
	Op       string
	Relation string
	Err      error
}

func (e *StorageError) Error() string {
	if e.Relation != "" {
		return fmt.Sprintf("%s %q: %v", e.Op, e.Relation, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// BatchError lists the elements of a collection operation that failed.
// Failed is keyed by the element's index in the input slice.
type BatchError struct {
	Op     string
	Total  int
	Failed map[int]error
}

func (e *BatchError) Error() string {
	idx := make([]int, 0, len(e.Failed))
	for i := range e.Failed {
		idx = append(idx, i)
	}
	sort.Ints(idx)

	parts := make([]string, 0, len(idx))
	for _, i := range idx {
		parts = append(parts, fmt.Sprintf("[%d] %v", i, e.Failed[i]))
	}
	return fmt.Sprintf("%s: %d of %d elements failed: %s", e.Op, len(e.Failed), e.Total, strings.Join(parts, "; "))
}

// Unwrap exposes the element errors to errors.Is and errors.As
func (e *BatchError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed))
	for _, err := range e.Failed {
		errs = append(errs, err)
	}
	return errs
}

// Helper functions for creating errors

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(entityType, key string) error {
	return &NotFoundError{Type: entityType, Key: key}
}

// NewAlreadyExistsError creates a new AlreadyExistsError
func NewAlreadyExistsError(entityType, key string) error {
	return &AlreadyExistsError{Type: entityType, Key: key}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewConfigurationError creates a new ConfigurationError
func NewConfigurationError(op, typeName string, cause error) error {
	return &ConfigurationError{Op: op, Type: typeName, Cause: cause}
}

// NewNoTypeMappingError reports a missing resolver for typeName
func NewNoTypeMappingError(op, typeName string) error {
	return &ConfigurationError{Op: op, Type: typeName, Cause: ErrNoTypeMapping}
}

// NewNoQueryError reports a read executed without a query
func NewNoQueryError(op string) error {
	return &ConfigurationError{Op: op, Cause: ErrNoQuery}
}

// NewStorageError wraps err as a StorageError. A nil err yields nil.
func NewStorageError(op, relation string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Relation: relation, Err: err}
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsConfiguration checks if an error was raised before any storage call
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsStorage checks if an error came from the storage collaborator
func IsStorage(err error) bool {
	return errors.Is(err, ErrStorage)
}

// IsNoTypeMapping checks if an error reports a missing type mapping
func IsNoTypeMapping(err error) bool {
	return errors.Is(err, ErrNoTypeMapping)
}
