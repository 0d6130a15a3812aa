/*
Package errors provides semantic error types for the LiveStore library.

The package defines common error scenarios with specific types that can be
checked using the standard errors.Is() function or the provided helper functions.

Error classes:

	ErrConfiguration  // raised before any storage call (no type mapping, no query)
	ErrStorage        // propagated from the storage collaborator
	ErrNotFound       // row or object not found
	ErrInvalidInput   // validation failure

Usage:

	results, err := livestore.PutCollection(store, users).Execute(ctx)
	if errors.IsConfiguration(err) {
	    // nothing was written
	}
	var batch *errors.BatchError
	if stderrors.As(err, &batch) {
	    for idx, cause := range batch.Failed {
	        log.Printf("element %d: %v", idx, cause)
	    }
	}

The error types implement the error interface and support wrapping,
making them compatible with Go's standard error handling patterns.
*/
package errors
