package lock

import "errors"

// Lock-related errors.
var (
	// ErrLockTimeout is returned when a key cannot be acquired in time.
	ErrLockTimeout = errors.New("lock acquisition timeout")
)
