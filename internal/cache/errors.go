package cache

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrLockTimeout is wrapped when the lock was not acquired within the allowed wait.
	ErrLockTimeout = errors.New("cache lock timeout")

	// ErrNotInitialized is returned by Open when the directory is not a cache.
	ErrNotInitialized = errors.New("cache not initialized")
)

// LockError is returned when the cache lock could not be acquired.
type LockError struct {
	Path string
	Err  error
}

func (e *LockError) Error() string {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return fmt.Sprintf("timed out waiting for cache lock %s", e.Path)
	}
	return fmt.Sprintf("acquiring cache lock %s: %v", e.Path, e.Err)
}

func (e *LockError) Unwrap() []error {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return []error{ErrLockTimeout, e.Err}
	}
	return []error{e.Err}
}
