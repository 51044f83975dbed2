package collective

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrCollective is the root of every rendezvous failure.
	ErrCollective = errors.New("collective operation failed")

	// ErrRankConflict is returned when a rank contributes twice to the same round.
	ErrRankConflict = fmt.Errorf("%w: rank already contributed", ErrCollective)

	// ErrParticipantMismatch is returned when a contribution comes from a rank
	// outside [0, world) or a stored contribution names the wrong rank.
	ErrParticipantMismatch = fmt.Errorf("%w: participant mismatch", ErrCollective)
)

// Gatherer is an all-gather over a fixed set of ranks.
//
// AllGather contributes v for the caller's rank and returns the contributions
// of all ranks indexed by rank. Successive calls form successive rounds.
// A single Gatherer must not be used for concurrent gathers.
type Gatherer interface {
	Rank() int
	WorldSize() int
	AllGather(ctx context.Context, v float64) ([]float64, error)
}

// Min contributes v and returns the minimum over all ranks.
func Min(ctx context.Context, g Gatherer, v float64) (float64, error) {
	values, err := g.AllGather(ctx, v)
	if err != nil {
		return 0, err
	}
	if len(values) != g.WorldSize() {
		return 0, fmt.Errorf("%w: gathered %d values, world size %d", ErrParticipantMismatch, len(values), g.WorldSize())
	}

	out := values[0]
	for _, x := range values[1:] {
		out = min(out, x)
	}
	return out, nil
}

func wrap(op string, err error) error {
	if errors.Is(err, ErrCollective) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrCollective, op, err)
}
