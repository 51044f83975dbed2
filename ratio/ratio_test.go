package ratio

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/hupe1980/seqpack"
	"github.com/hupe1980/seqpack/collective"
	"github.com/hupe1980/seqpack/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func staticProfile(results ...Result) ProfileFunc {
	return func(context.Context, int, int, []float64) ([]Result, error) {
		return results, nil
	}
}

func TestChoose(t *testing.T) {
	tests := []struct {
		name     string
		results  []Result
		want     float64
		fallback bool
	}{
		{
			name: "largest zero waste",
			results: []Result{
				{Ratio: 1, Padding: .9, Waste: 0},
				{Ratio: 2, Padding: .8, Waste: 0},
				{Ratio: 3, Padding: .7, Waste: .5},
			},
			want: 2,
		},
		{
			name: "unsorted input",
			results: []Result{
				{Ratio: 3.5, Waste: .2},
				{Ratio: 1.5, Waste: 0},
				{Ratio: 2.5, Waste: 1e-12},
			},
			want: 2.5,
		},
		{
			name: "empty candidates do not qualify",
			results: []Result{
				{Ratio: 1, Waste: 0},
				{Ratio: 2, Waste: 0, Empty: true},
			},
			want: 1,
		},
		{
			name: "fallback to lowest",
			results: []Result{
				{Ratio: 2, Waste: .1},
				{Ratio: 1.2, Waste: .05},
			},
			want:     1.2,
			fallback: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, fallback, err := Choose(tt.results)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.fallback, fallback)
		})
	}

	t.Run("empty", func(t *testing.T) {
		_, _, err := Choose(nil)
		assert.ErrorIs(t, err, ErrNoCandidates)
		assert.ErrorIs(t, err, ErrProfile)
	})
}

func TestRawBatchSize(t *testing.T) {
	n, err := RawBatchSize(2.5, 8)
	require.NoError(t, err)
	assert.Equal(t, 20, n)

	n, err = RawBatchSize(1.9, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = RawBatchSize(1, 0)
	assert.ErrorIs(t, err, seqpack.ErrInvalidConfig)

	_, err = RawBatchSize(math.NaN(), 8)
	assert.ErrorIs(t, err, seqpack.ErrInvalidConfig)
}

func TestSweep(t *testing.T) {
	assert.Equal(t, []float64{1, 1.5, 2, 2.5, 3}, Sweep(1, 3, 5, 10))

	// Every tenth from 1 to 2 maps to a raw batch of 1 or 2 samples.
	assert.Equal(t, []float64{1, 2}, Sweep(1, 2, 11, 1))

	assert.Equal(t, []float64{1}, Sweep(1, 5, 1, 8))
	assert.Nil(t, Sweep(1, 5, 0, 8))
	assert.Nil(t, Sweep(3, 2, 4, 8))

	got := Sweep(1, 20.48, 20, 8)
	require.NotEmpty(t, got)
	assert.Equal(t, 1.0, got[0])
	assert.Equal(t, 20.5, got[len(got)-1])
	assert.IsIncreasing(t, got)
}

func TestSelect(t *testing.T) {
	ctx := context.Background()
	candidates := []Result{
		{Ratio: 1, Padding: .9, Waste: 0},
		{Ratio: 2, Padding: .8, Waste: 0},
		{Ratio: 3, Padding: .7, Waste: .5},
	}

	t.Run("picks largest zero waste ratio", func(t *testing.T) {
		got, err := Select(ctx, staticProfile(candidates...), nil, Config{Capacity: 2048, DeviceBatchSize: 8})
		require.NoError(t, err)
		assert.Equal(t, 2.0, got)
	})

	t.Run("plain ratio padding waste triples qualify", func(t *testing.T) {
		got, err := Select(ctx, staticProfile(
			Result{Ratio: 1, Padding: .9, Waste: 0},
			Result{Ratio: 2, Padding: .8, Waste: 0},
			Result{Ratio: 3, Padding: .7, Waste: .5},
		), nil, Config{Capacity: 2048, DeviceBatchSize: 1})
		require.NoError(t, err)
		assert.Equal(t, 2.0, got)
	})

	t.Run("small capacity skips profiling", func(t *testing.T) {
		profile := func(context.Context, int, int, []float64) ([]Result, error) {
			t.Fatal("profile must not be called")
			return nil, nil
		}
		got, err := Select(ctx, profile, nil, Config{Capacity: 100, DeviceBatchSize: 8})
		require.NoError(t, err)
		assert.Equal(t, 1.0, got)
	})

	t.Run("sweeps up to capacity over 100", func(t *testing.T) {
		var swept []float64
		profile := func(_ context.Context, capacity, device int, ratios []float64) ([]Result, error) {
			assert.Equal(t, 500, capacity)
			assert.Equal(t, 4, device)
			swept = ratios
			return candidates, nil
		}
		_, err := Select(ctx, profile, nil, Config{Capacity: 500, DeviceBatchSize: 4, NumRatios: 5})
		require.NoError(t, err)
		assert.Equal(t, []float64{1, 2, 3, 4, 5}, swept)
	})

	t.Run("profile failure", func(t *testing.T) {
		boom := errors.New("boom")
		profile := func(context.Context, int, int, []float64) ([]Result, error) {
			return nil, boom
		}
		_, err := Select(ctx, profile, nil, Config{Capacity: 2048, DeviceBatchSize: 8})
		assert.ErrorIs(t, err, ErrProfile)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("no candidates", func(t *testing.T) {
		_, err := Select(ctx, staticProfile(), nil, Config{Capacity: 2048, DeviceBatchSize: 8})
		assert.ErrorIs(t, err, ErrNoCandidates)
	})

	t.Run("invalid config", func(t *testing.T) {
		_, err := Select(ctx, staticProfile(candidates...), nil, Config{Capacity: 2048})
		assert.ErrorIs(t, err, seqpack.ErrInvalidConfig)
	})
}

func TestSelect_ReconcilesMinimumAcrossWorkers(t *testing.T) {
	perRank := [][]Result{
		{{Ratio: 1, Waste: 0}, {Ratio: 2, Waste: 0}, {Ratio: 3, Waste: .5}},
		{{Ratio: 1, Waste: 0}, {Ratio: 2, Waste: 0}, {Ratio: 3, Waste: 0}},
		{{Ratio: 1, Waste: 0}, {Ratio: 2, Waste: .1}, {Ratio: 3, Waste: .5}},
	}

	tests := []struct {
		name  string
		ranks int
		want  float64
	}{
		{"two workers", 2, 2},
		{"three workers", 3, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			group, err := collective.NewGroup(tt.ranks)
			require.NoError(t, err)

			got := make([]float64, tt.ranks)
			var eg errgroup.Group
			for r, m := range group.Members() {
				eg.Go(func() error {
					v, err := Select(context.Background(), staticProfile(perRank[r]...), m, Config{
						Capacity:        2048,
						DeviceBatchSize: 8,
					})
					got[r] = v
					return err
				})
			}
			require.NoError(t, eg.Wait())

			for r, v := range got {
				assert.Equal(t, tt.want, v, "rank %d", r)
			}
		})
	}
}

func uniformCorpus(n, length int) []seqpack.Sample {
	corpus := make([]seqpack.Sample, n)
	for i := range corpus {
		corpus[i] = seqpack.Sample{InputIDs: testutil.Repeat(1, length)}
	}
	return corpus
}

func TestProfiler(t *testing.T) {
	p := NewProfiler(uniformCorpus(8, 4), WithConcurrency(2))

	results, err := p.Profile(context.Background(), 8, 2, []float64{4, 1, 2})
	require.NoError(t, err)

	assert.Equal(t, []Result{
		{Ratio: 1, Padding: .5, Waste: 0},
		{Ratio: 2, Padding: 0, Waste: 0},
		{Ratio: 4, Padding: 0, Waste: .5},
	}, results)

	got, fallback, err := Choose(results)
	require.NoError(t, err)
	assert.False(t, fallback)
	assert.Equal(t, 2.0, got)
}

func TestProfiler_LeftoverCap(t *testing.T) {
	p := NewProfiler(uniformCorpus(8, 4), WithMaxLeftoverBins(0))

	results, err := p.Profile(context.Background(), 8, 2, []float64{4})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, .5, results[0].Waste)
	assert.Zero(t, results[0].Padding)
}

func TestProfiler_SmallCorpus(t *testing.T) {
	p := NewProfiler(uniformCorpus(1, 4))

	results, err := p.Profile(context.Background(), 8, 2, []float64{1})
	require.NoError(t, err)
	assert.Equal(t, []Result{{Ratio: 1, Empty: true}}, results)

	_, fallback, err := Choose(results)
	require.NoError(t, err)
	assert.True(t, fallback)
}

func TestProfiler_Errors(t *testing.T) {
	t.Run("sample too long", func(t *testing.T) {
		p := NewProfiler(uniformCorpus(4, 9))
		_, err := p.Profile(context.Background(), 8, 2, []float64{1, 2})
		var tooLong *seqpack.ErrSampleTooLong
		assert.ErrorAs(t, err, &tooLong)

		_, err = Select(context.Background(), p.Profile, nil, Config{Capacity: 8, DeviceBatchSize: 2})
		require.NoError(t, err, "capacities of at most 100 are not profiled")
	})

	t.Run("ratio below one", func(t *testing.T) {
		p := NewProfiler(uniformCorpus(4, 2))
		_, err := p.Profile(context.Background(), 8, 2, []float64{0.4})
		assert.ErrorIs(t, err, seqpack.ErrInvalidConfig)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		p := NewProfiler(uniformCorpus(8, 4))
		_, err := p.Profile(ctx, 8, 2, []float64{1})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestSelect_WithProfiler(t *testing.T) {
	rng := testutil.NewRNG(3)
	corpus := make([]seqpack.Sample, 0, 512)
	for _, seq := range rng.Sequences(512, 1, 256, 1000) {
		corpus = append(corpus, seqpack.Sample{InputIDs: seq})
	}

	p := NewProfiler(corpus)
	got, err := Select(context.Background(), p.Profile, nil, Config{Capacity: 512, DeviceBatchSize: 4})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, got, 1.0)
	assert.LessOrEqual(t, got, 5.1)
}

func TestSummarize(t *testing.T) {
	corpus := []seqpack.Sample{
		{InputIDs: testutil.Repeat(1, 3)},
		{InputIDs: testutil.Repeat(1, 1)},
		{InputIDs: testutil.Repeat(1, 4)},
		{InputIDs: testutil.Repeat(1, 2)},
	}

	s := Summarize(corpus)
	assert.Equal(t, 4, s.Samples)
	assert.Equal(t, int64(10), s.Tokens)
	assert.InDelta(t, 2.5, s.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(5.0/3.0), s.StdDev, 1e-12)
	assert.Equal(t, 2.0, s.Median)
	assert.Equal(t, 4.0, s.P90)
	assert.Equal(t, 4.0, s.Max)

	assert.Equal(t, CorpusStats{}, Summarize(nil))
}
