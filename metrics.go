package seqpack

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting packing metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordPack is called after each Pack call.
	// rows is the number of emitted rows, leftover the number of bins carried
	// to the next call, dataTokens the tokens presented in this call and
	// paddingTokens the pad tokens added to emitted rows.
	RecordPack(rows, leftover, dataTokens, paddingTokens int, duration time.Duration, err error)

	// RecordDrop is called when leftover bins are discarded by the leftover cap.
	RecordDrop(bins, tokens int)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordPack(int, int, int, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordDrop(int, int)                                {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	PackCount     atomic.Int64
	PackErrors    atomic.Int64
	ShortBatches  atomic.Int64
	RowsEmitted   atomic.Int64
	DataTokens    atomic.Int64
	PaddingTokens atomic.Int64
	LeftoverBins  atomic.Int64
	DroppedBins   atomic.Int64
	DroppedTokens atomic.Int64
	PackNanos     atomic.Int64

	// Target is the expected number of rows per call; zero disables short
	// batch detection.
	Target int
}

// RecordPack implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPack(rows, leftover, dataTokens, paddingTokens int, duration time.Duration, err error) {
	b.PackCount.Add(1)
	b.PackNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.PackErrors.Add(1)
		return
	}
	b.RowsEmitted.Add(int64(rows))
	b.DataTokens.Add(int64(dataTokens))
	b.PaddingTokens.Add(int64(paddingTokens))
	b.LeftoverBins.Store(int64(leftover))
	if b.Target > 0 && rows < b.Target {
		b.ShortBatches.Add(1)
	}
}

// RecordDrop implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDrop(bins, tokens int) {
	b.DroppedBins.Add(int64(bins))
	b.DroppedTokens.Add(int64(tokens))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	count := b.PackCount.Load()
	var avg int64
	if count > 0 {
		avg = b.PackNanos.Load() / count
	}
	return BasicMetricsStats{
		PackCount:     count,
		PackErrors:    b.PackErrors.Load(),
		ShortBatches:  b.ShortBatches.Load(),
		RowsEmitted:   b.RowsEmitted.Load(),
		DataTokens:    b.DataTokens.Load(),
		PaddingTokens: b.PaddingTokens.Load(),
		LeftoverBins:  b.LeftoverBins.Load(),
		DroppedBins:   b.DroppedBins.Load(),
		DroppedTokens: b.DroppedTokens.Load(),
		PackAvgNanos:  avg,
	}
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	PackCount     int64
	PackErrors    int64
	ShortBatches  int64
	RowsEmitted   int64
	DataTokens    int64
	PaddingTokens int64
	LeftoverBins  int64
	DroppedBins   int64
	DroppedTokens int64
	PackAvgNanos  int64
}
