package ratio

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hupe1980/seqpack"
	"github.com/hupe1980/seqpack/collective"
)

const (
	// DefaultNumRatios is the default number of swept candidates.
	DefaultNumRatios = 20

	// minSearchCapacity is the capacity at or below which packing is not searched.
	minSearchCapacity = 100
)

// Config configures Select.
type Config struct {
	// Capacity is the bin capacity (maximum sequence length).
	Capacity int
	// DeviceBatchSize is the number of packed rows per device batch.
	DeviceBatchSize int
	// NumRatios is the number of swept candidates. Default: DefaultNumRatios.
	NumRatios int
	// Logger receives selection progress. Default: discard.
	Logger *slog.Logger
}

// Select chooses the packing ratio for this worker and reconciles it with all
// other workers, returning the minimum choice.
//
// Capacities of at most 100 return 1 without profiling. Otherwise candidates
// are swept over [1, Capacity/100]. A nil gatherer skips reconciliation.
// Profiling and collective failures are returned; nothing is retried.
func Select(ctx context.Context, profile ProfileFunc, g collective.Gatherer, cfg Config) (float64, error) {
	if cfg.Capacity <= 0 || cfg.DeviceBatchSize <= 0 {
		return 0, fmt.Errorf("%w: capacity %d, device batch size %d", seqpack.ErrInvalidConfig, cfg.Capacity, cfg.DeviceBatchSize)
	}
	if cfg.NumRatios <= 0 {
		cfg.NumRatios = DefaultNumRatios
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if cfg.Capacity <= minSearchCapacity {
		return 1, nil
	}

	maxRatio := float64(cfg.Capacity) / minSearchCapacity
	ratios := Sweep(1, maxRatio, cfg.NumRatios, cfg.DeviceBatchSize)

	results, err := profile(ctx, cfg.Capacity, cfg.DeviceBatchSize, ratios)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrProfile, err)
	}

	local, fallback, err := Choose(results)
	if err != nil {
		return 0, err
	}
	if fallback {
		logger.Warn("no packing ratio without waste, using lowest candidate",
			"ratio", local,
			"candidates", len(results),
		)
	}

	if g == nil {
		logger.Info("packing ratio selected", "ratio", local)
		return local, nil
	}

	agreed, err := collective.Min(ctx, g, local)
	if err != nil {
		return 0, err
	}
	logger.Info("packing ratio selected",
		"ratio", agreed,
		"local_ratio", local,
		"rank", g.Rank(),
		"world", g.WorldSize(),
	)
	return agreed, nil
}
