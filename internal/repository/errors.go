package repository

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no document matches.
var ErrNotFound = errors.New("document not found")

// ErrDuplicateKey matches every *DuplicateKeyError.
var ErrDuplicateKey = errors.New("duplicate key")

// DuplicateKeyError reports a unique-index violation raised by the store.
// Field is empty when the backend cannot tell which index fired.
type DuplicateKeyError struct {
	Collection string
	Field      string
	Err        error
}

func (e *DuplicateKeyError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: duplicate key", e.Collection)
	}
	return fmt.Sprintf("%s: duplicate key on %s", e.Collection, e.Field)
}

func (e *DuplicateKeyError) Is(target error) bool {
	return target == ErrDuplicateKey
}

func (e *DuplicateKeyError) Unwrap() error {
	return e.Err
}
