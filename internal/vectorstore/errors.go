package vectorstore

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrUnavailable       = errors.New("vectorstore: store unavailable")
	ErrUnknownCollection = errors.New("vectorstore: unknown collection")
	ErrDimMismatch       = errors.New("vectorstore: vector dimension mismatch")
	ErrEmptyID           = errors.New("vectorstore: empty entry id")
	ErrEmptyVector       = errors.New("vectorstore: empty vector")
	ErrBadField          = errors.New("vectorstore: invalid metadata field")
)

// Error wraps errors with operation context.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("vectorstore.%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// wrapError wraps an error with operation context.
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

func checkCollection(name string) error {
	for _, c := range Collections() {
		if c == name {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownCollection, name)
}

// validateWrite checks ids, vectors and that every entry of a write shares one
// dimensionality. It returns that dimensionality.
func validateWrite(w Write) (int, error) {
	if err := checkCollection(w.Collection); err != nil {
		return 0, err
	}
	dim := 0
	for _, e := range w.Entries {
		if e.ID == "" {
			return 0, ErrEmptyID
		}
		if len(e.Embedding) == 0 {
			return 0, fmt.Errorf("%w: %s", ErrEmptyVector, e.ID)
		}
		if dim == 0 {
			dim = len(e.Embedding)
		} else if len(e.Embedding) != dim {
			return 0, fmt.Errorf("%w: %s has %d, expected %d", ErrDimMismatch, e.ID, len(e.Embedding), dim)
		}
	}
	return dim, nil
}
