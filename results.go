/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package livestore

import (
	"reflect"

	"github.com/suparena/livestore/storagemodels"
)

// Outcome is the result of one element of a collection operation.
type Outcome[T, R any] struct {
	Object T
	Result R
	// Err is set when this element's storage call failed.
	Err error
}

// Results holds one Outcome per input element, in input order.
type Results[T, R any] struct {
	outcomes []Outcome[T, R]
}

// Len returns the number of elements.
func (r *Results[T, R]) Len() int { return len(r.outcomes) }

// At returns the outcome of the i-th input element.
func (r *Results[T, R]) At(i int) Outcome[T, R] { return r.outcomes[i] }

// All returns every outcome in input order.
func (r *Results[T, R]) All() []Outcome[T, R] { return r.outcomes }

// Lookup finds the outcome for obj by equality. Objects that cannot be
// compared, including structs holding a slice or map in an interface field,
// are only reachable through At.
func (r *Results[T, R]) Lookup(obj T) (Outcome[T, R], bool) {
	target := any(obj)
	t := reflect.TypeOf(target)
	if t == nil || !t.Comparable() {
		return Outcome[T, R]{}, false
	}
	for _, o := range r.outcomes {
		if reflect.TypeOf(any(o.Object)) == t && equal(any(o.Object), target) {
			return o, true
		}
	}
	return Outcome[T, R]{}, false
}

// equal compares a and b with ==, reporting false where the comparison
// would panic on an uncomparable dynamic value.
func equal(a, b any) (eq bool) {
	defer func() {
		if recover() != nil {
			eq = false
		}
	}()
	return a == b
}

// Succeeded returns the number of elements without an error.
func (r *Results[T, R]) Succeeded() int {
	n := 0
	for _, o := range r.outcomes {
		if o.Err == nil {
			n++
		}
	}
	return n
}

// Failed returns the number of elements with an error.
func (r *Results[T, R]) Failed() int { return len(r.outcomes) - r.Succeeded() }

// PutResults is the outcome of a collection put.
type PutResults[T any] = Results[T, storagemodels.PutResult]

// DeleteResults is the outcome of a collection delete.
type DeleteResults[T any] = Results[T, storagemodels.DeleteResult]
