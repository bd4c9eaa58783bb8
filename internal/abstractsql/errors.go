package abstractsql

import (
	"errors"
	"fmt"
)

// ErrShape is wrapped by every error caused by a malformed tree.
var ErrShape = errors.New("malformed abstract sql")

// ShapeError reports a node that violates the shape its tag requires.
type ShapeError struct {
	Tag    string
	Reason string
}

func (e *ShapeError) Error() string {
	if e.Tag == "" {
		return fmt.Sprintf("%s: %s", ErrShape, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrShape, e.Tag, e.Reason)
}

func (e *ShapeError) Unwrap() error { return ErrShape }

// Shapef builds a ShapeError for tag.
func Shapef(tag, format string, args ...any) error {
	return &ShapeError{Tag: tag, Reason: fmt.Sprintf(format, args...)}
}
