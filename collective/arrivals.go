package collective

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
)

// Arrivals tracks which ranks have contributed to a round.
type Arrivals struct {
	world int
	seen  *roaring.Bitmap
}

// NewArrivals returns an empty tracker for world ranks.
func NewArrivals(world int) *Arrivals {
	return &Arrivals{
		world: world,
		seen:  roaring.New(),
	}
}

// Add records rank. It fails with ErrParticipantMismatch for ranks outside
// [0, world) and with ErrRankConflict for a rank that already arrived.
func (a *Arrivals) Add(rank int) error {
	if rank < 0 || rank >= a.world {
		return fmt.Errorf("%w: rank %d outside world of %d", ErrParticipantMismatch, rank, a.world)
	}
	if !a.seen.CheckedAdd(uint32(rank)) { //nolint:gosec // bounded by world
		return fmt.Errorf("%w: rank %d", ErrRankConflict, rank)
	}
	return nil
}

// Count returns the number of ranks that arrived.
func (a *Arrivals) Count() int {
	return int(a.seen.GetCardinality()) //nolint:gosec // at most world
}

// Complete reports whether every rank arrived.
func (a *Arrivals) Complete() bool {
	return a.Count() == a.world
}

// Missing returns the ranks that have not arrived, ascending.
func (a *Arrivals) Missing() []int {
	var out []int
	for r := range a.world {
		if !a.seen.Contains(uint32(r)) { //nolint:gosec // bounded by world
			out = append(out, r)
		}
	}
	return out
}
