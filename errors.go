package seqpack

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is returned when a Packer or collator is constructed with
	// unusable parameters (non-positive capacity, non-positive target bin count).
	ErrInvalidConfig = errors.New("invalid packer configuration")

	// ErrStateMismatch is returned when restoring a State captured from a Packer
	// with a different capacity or target bin count.
	ErrStateMismatch = errors.New("packer state does not match configuration")
)

// ErrSampleTooLong indicates a sample that cannot fit into any bin, even alone.
//
// This is a configuration error: the underlying sequence exceeds the bin
// capacity it was supposed to fit. It is fatal to the batch.
type ErrSampleTooLong struct {
	Row      int
	Length   int
	Capacity int
}

func (e *ErrSampleTooLong) Error() string {
	return fmt.Sprintf("sample %d has length %d, exceeds bin capacity %d", e.Row, e.Length, e.Capacity)
}

// Is reports whether target is ErrInvalidConfig.
func (e *ErrSampleTooLong) Is(target error) bool { return target == ErrInvalidConfig }

// ErrShapeMismatch indicates a batch field whose shape does not line up with
// the primary token field.
type ErrShapeMismatch struct {
	Field    string
	Row      int
	Expected int
	Actual   int
}

func (e *ErrShapeMismatch) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("shape mismatch: field %s has %d rows, expected %d", e.Field, e.Actual, e.Expected)
	}
	return fmt.Sprintf("shape mismatch: field %s row %d has width %d, expected %d", e.Field, e.Row, e.Actual, e.Expected)
}
