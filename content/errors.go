package content

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means no published post matched the slug, even after the
	// trailing-slash retry.
	ErrNotFound = errors.New("content: post not found")

	// ErrFetchFailed matches every *FetchError.
	ErrFetchFailed = errors.New("content: fetch failed")
)

// FetchError wraps a backend failure with the operation that hit it.
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("content: %s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrFetchFailed) match any FetchError.
func (e *FetchError) Is(target error) bool {
	return target == ErrFetchFailed
}

// IsNotFound reports whether err is the not-found condition.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
