package category

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingScopeParameter is returned when a reference scope has no team id.
	ErrMissingScopeParameter = errors.New("reference categories require a team id")

	// ErrCategoryLoadFailed matches every *LoadError.
	ErrCategoryLoadFailed = errors.New("category load failed")
)

// LoadError wraps the fetcher's error for a scope.
type LoadError struct {
	Scope Scope
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s categories: %v", e.Scope, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

func (e *LoadError) Is(target error) bool {
	return target == ErrCategoryLoadFailed
}
