package ratio

import (
	"errors"
	"fmt"
)

var (
	// ErrProfile is returned when profiling fails.
	ErrProfile = errors.New("packing ratio profiling failed")

	// ErrNoCandidates is returned when profiling yields no candidate ratios.
	ErrNoCandidates = fmt.Errorf("%w: no candidate ratios", ErrProfile)
)
