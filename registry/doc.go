/*
Package registry maps runtime types to the resolvers that persist them.

A TypeRegistry is an explicit object owned by a store. Each entry binds one
exact Go type to a TypeMapping of put, get and delete resolvers:

	reg := registry.New()
	err := registry.Register(reg, registry.TypeMapping[User]{
	    Put:    userPut,
	    Get:    userGet,
	    Delete: userDelete,
	})

Lookup is by exact type: User and *User are distinct, and interface types
cannot be registered. A second Register for the same type fails with
ErrAlreadyRegistered; Replace swaps a mapping explicitly.

Heterogeneous collections dispatch through LookupObject, which returns a
type-erased Entry for the dynamic type of each element.

The registry is thread-safe and should be populated during initialization.
*/
package registry
