package ratio

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"slices"

	"github.com/hupe1980/seqpack"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"golang.org/x/sync/errgroup"
)

// Profiler profiles candidate ratios by packing a fixed corpus.
//
// For every candidate it feeds the corpus to a fresh Packer in raw batches of
// RawBatchSize(ratio, deviceBatchSize) samples, skipping a trailing batch
// smaller than the device batch size. Padding is the Packer's waste and Waste
// is the fraction of corpus tokens that were not emitted.
type Profiler struct {
	corpus          []seqpack.Sample
	concurrency     int
	maxLeftoverBins int
	logger          *slog.Logger
}

// ProfilerOption configures a Profiler.
type ProfilerOption func(*Profiler)

// WithConcurrency bounds the number of candidates profiled in parallel.
// Default: GOMAXPROCS.
func WithConcurrency(n int) ProfilerOption {
	return func(p *Profiler) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithMaxLeftoverBins sets the leftover cap of the profiling Packers.
// Negative means unlimited (the default).
func WithMaxLeftoverBins(n int) ProfilerOption {
	return func(p *Profiler) {
		p.maxLeftoverBins = n
	}
}

// WithProfilerLogger sets the logger. Default: discard.
func WithProfilerLogger(l *slog.Logger) ProfilerOption {
	return func(p *Profiler) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewProfiler creates a profiler over corpus. The corpus is not copied and
// must not be modified while profiling.
func NewProfiler(corpus []seqpack.Sample, optFns ...ProfilerOption) *Profiler {
	p := &Profiler{
		corpus:          corpus,
		concurrency:     runtime.GOMAXPROCS(0),
		maxLeftoverBins: -1,
		logger:          slog.New(slog.DiscardHandler),
	}
	for _, fn := range optFns {
		fn(p)
	}
	return p
}

// Profile implements ProfileFunc. Results are in ascending ratio order.
func (p *Profiler) Profile(ctx context.Context, capacity, deviceBatchSize int, ratios []float64) ([]Result, error) {
	sorted := slices.Clone(ratios)
	slices.Sort(sorted)

	results := make([]Result, len(sorted))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(p.concurrency)

	for i, r := range sorted {
		eg.Go(func() error {
			res, err := p.profileOne(ctx, capacity, deviceBatchSize, r)
			if err != nil {
				return fmt.Errorf("ratio %v: %w", r, err)
			}
			results[i] = res
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (p *Profiler) profileOne(ctx context.Context, capacity, deviceBatchSize int, r float64) (Result, error) {
	width, err := RawBatchSize(r, deviceBatchSize)
	if err != nil {
		return Result{}, err
	}
	if width < deviceBatchSize {
		return Result{}, fmt.Errorf("%w: raw batch size %d below device batch size %d", seqpack.ErrInvalidConfig, width, deviceBatchSize)
	}

	packer, err := seqpack.NewPacker(capacity, deviceBatchSize,
		seqpack.WithMaxLeftoverBins(p.maxLeftoverBins),
		seqpack.WithLogger(seqpack.NoopLogger()),
	)
	if err != nil {
		return Result{}, err
	}

	for start := 0; start < len(p.corpus); start += width {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		chunk := p.corpus[start:min(start+width, len(p.corpus))]
		if len(chunk) < deviceBatchSize {
			break
		}
		if _, err := packer.PackSamples(chunk); err != nil {
			return Result{}, err
		}
	}

	stats := packer.Stats()
	res := Result{
		Ratio:   r,
		Padding: stats.Waste(),
		Waste:   stats.Backlog(),
		Empty:   stats.EmittedRows == 0,
	}
	p.logger.Debug("profiled packing ratio",
		"ratio", r,
		"raw_batch_size", width,
		"padding", res.Padding,
		"waste", res.Waste,
	)
	return res, nil
}

// CorpusStats summarizes the sample lengths of a profiling corpus.
type CorpusStats struct {
	Samples int     `json:"samples"`
	Tokens  int64   `json:"tokens"`
	Mean    float64 `json:"mean"`
	StdDev  float64 `json:"std_dev"`
	Median  float64 `json:"median"`
	P90     float64 `json:"p90"`
	Max     float64 `json:"max"`
}

// Summarize returns length statistics of corpus.
func Summarize(corpus []seqpack.Sample) CorpusStats {
	if len(corpus) == 0 {
		return CorpusStats{}
	}

	lengths := make([]float64, len(corpus))
	var tokens int64
	for i, s := range corpus {
		lengths[i] = float64(s.Len())
		tokens += int64(s.Len())
	}
	slices.Sort(lengths)

	mean, std := stat.MeanStdDev(lengths, nil)
	return CorpusStats{
		Samples: len(corpus),
		Tokens:  tokens,
		Mean:    mean,
		StdDev:  std,
		Median:  stat.Quantile(0.5, stat.Empirical, lengths, nil),
		P90:     stat.Quantile(0.9, stat.Empirical, lengths, nil),
		Max:     floats.Max(lengths),
	}
}
