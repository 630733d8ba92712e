// Package repository provides data access layer implementations.
package repository

import (
	"errors"
	"fmt"
)

// ErrPersistence is the kind every store failure wraps. Callers treat the
// operation as failed and ask the user to retry.
var ErrPersistence = errors.New("persistence failure")

// Common errors for repository operations.
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrWalletNotFound  = errors.New("wallet not found")
	ErrWalletExists    = errors.New("wallet already exists")
	ErrSessionNotFound = errors.New("game session not found")
	ErrSessionExists   = errors.New("game session already exists")
	ErrVersionConflict = errors.New("game session was modified concurrently")
	ErrConfigNotFound  = errors.New("config key not found")
)

// storeError wraps a driver error with ErrPersistence.
func storeError(op string, err error) error {
	return fmt.Errorf("%w: failed to %s: %w", ErrPersistence, op, err)
}
