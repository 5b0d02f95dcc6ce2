package picovec

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyStore is returned by BuildIndex when the store holds no vectors.
	ErrEmptyStore = errors.New("picovec: store is empty")

	// ErrEmptyVector is returned by Add for a zero-length vector.
	ErrEmptyVector = errors.New("picovec: empty vector")
)

// ErrDimensionMismatch indicates a vector/query dimensionality mismatch.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}
