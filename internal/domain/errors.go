package domain

import "errors"

// Error categories shared by every package. Packages wrap them with context
// and callers match with errors.Is.
var (
	ErrUnauthenticated     = errors.New("user not authenticated")
	ErrNotFound            = errors.New("not found")
	ErrForbidden           = errors.New("forbidden")
	ErrEmptyCart           = errors.New("cart is empty, nothing to checkout")
	ErrProductUnavailable  = errors.New("product unavailable")
	ErrPersistenceConflict = errors.New("persistence conflict, safe to retry")
	ErrInvalidArgument     = errors.New("invalid argument")
)
