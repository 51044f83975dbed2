package ratio

import (
	"fmt"
	"math"

	"github.com/hupe1980/seqpack"
	"github.com/hupe1980/seqpack/internal/conv"
	"gonum.org/v1/gonum/floats"
)

// RawBatchSize returns the number of raw samples per Packer call for ratio:
// floor(ratio * deviceBatchSize).
func RawBatchSize(ratio float64, deviceBatchSize int) (int, error) {
	if deviceBatchSize <= 0 {
		return 0, fmt.Errorf("%w: device batch size %d", seqpack.ErrInvalidConfig, deviceBatchSize)
	}
	n, err := conv.FloorToInt(ratio * float64(deviceBatchSize))
	if err != nil {
		return 0, fmt.Errorf("%w: ratio %v: %w", seqpack.ErrInvalidConfig, ratio, err)
	}
	return n, nil
}

// Sweep returns up to n candidate ratios evenly spaced over [minRatio, maxRatio],
// rounded to tenths and ascending. Candidates that yield the same raw batch
// size as an earlier candidate are dropped.
func Sweep(minRatio, maxRatio float64, n, deviceBatchSize int) []float64 {
	if n < 1 || maxRatio < minRatio {
		return nil
	}

	var raw []float64
	if n == 1 || minRatio == maxRatio {
		raw = []float64{minRatio}
	} else {
		raw = floats.Span(make([]float64, n), minRatio, maxRatio)
	}

	out := make([]float64, 0, len(raw))
	seen := make(map[int]struct{}, len(raw))
	for _, r := range raw {
		r = math.Round(r*10) / 10
		width, err := RawBatchSize(r, deviceBatchSize)
		if err != nil {
			continue
		}
		if _, ok := seen[width]; ok {
			continue
		}
		seen[width] = struct{}{}
		out = append(out, r)
	}
	return out
}
