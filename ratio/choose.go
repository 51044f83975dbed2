package ratio

import (
	"cmp"
	"context"
	"math"
	"slices"
)

// zeroTolerance is the largest waste still treated as zero.
const zeroTolerance = 1e-9

// Result is the profile of one candidate ratio.
type Result struct {
	// Ratio is the candidate packing ratio.
	Ratio float64 `json:"ratio"`
	// Padding is the fraction of emitted row capacity filled with padding.
	Padding float64 `json:"padding"`
	// Waste is the fraction of profiled tokens left unemitted.
	Waste float64 `json:"waste"`
	// Empty reports that the candidate emitted no rows at all, which makes
	// its zero waste meaningless.
	Empty bool `json:"empty,omitempty"`
}

// ProfileFunc profiles candidate ratios for a bin capacity and device batch
// size. Results may come in any order.
type ProfileFunc func(ctx context.Context, capacity, deviceBatchSize int, ratios []float64) ([]Result, error)

// Choose returns the largest non-empty ratio whose waste is zero.
//
// When no candidate qualifies it falls back to the lowest ratio and reports
// fallback. An empty result set is ErrNoCandidates.
func Choose(results []Result) (ratio float64, fallback bool, err error) {
	if len(results) == 0 {
		return 0, false, ErrNoCandidates
	}

	sorted := slices.Clone(results)
	slices.SortStableFunc(sorted, func(a, b Result) int {
		return cmp.Compare(a.Ratio, b.Ratio)
	})

	found := false
	for _, r := range sorted {
		if !r.Empty && math.Abs(r.Waste) <= zeroTolerance {
			ratio = r.Ratio
			found = true
		}
	}
	if !found {
		return sorted[0].Ratio, true, nil
	}
	return ratio, false, nil
}
