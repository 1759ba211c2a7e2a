// Package storage defines the persisted trade records and the store
// interfaces their implementations satisfy.
package storage

import "errors"

// Every store here is append-only: closed positions and PnL samples are
// written once and never updated.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when inserting a record whose key
	// already exists. Append-only stores do not allow updates.
	ErrDuplicateKey = errors.New("duplicate key: append-only store does not allow updates")

	// ErrInvalidInput is returned when a record fails validation before
	// it reaches the backend.
	ErrInvalidInput = errors.New("invalid input")
)
