package seqpack

import (
	"errors"
	"testing"

	"github.com/hupe1980/seqpack/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawBatch(seqs [][]int32, width int, pad int32) *Batch {
	rows, mask := testutil.PadRight(seqs, width, pad)
	return &Batch{InputIDs: rows, AttentionMask: mask}
}

func TestPack_SingleBatch(t *testing.T) {
	p, err := NewPacker(5, 2)
	require.NoError(t, err)

	out, err := p.Pack(rawBatch([][]int32{
		{1},
		{2, 2},
		{4, 4, 4, 4},
		{3, 3, 3},
	}, 5, 0))
	require.NoError(t, err)

	assert.Equal(t, [][]int32{
		{4, 4, 4, 4, 1},
		{3, 3, 3, 2, 2},
	}, out.InputIDs)
	assert.Equal(t, [][]int32{
		{1, 1, 1, 1, 1},
		{1, 1, 1, 1, 1},
	}, out.AttentionMask)
	assert.Equal(t, [][]int32{
		{0, 0, 0, 0, 1},
		{0, 0, 0, 1, 1},
	}, out.SequenceID)

	assert.Empty(t, p.Leftover())
	assert.Zero(t, p.Waste())
	assert.Equal(t, 1.0, p.Efficiency())
}

func TestPack_WithLeftovers(t *testing.T) {
	p, err := NewPacker(5, 2)
	require.NoError(t, err)

	out, err := p.Pack(rawBatch([][]int32{
		{1},
		{2, 2},
		{4, 4, 4, 4},
		{4, 4, 4, 4},
	}, 5, 0))
	require.NoError(t, err)

	assert.Equal(t, [][]int32{
		{4, 4, 4, 4, 1},
		{4, 4, 4, 4, 0},
	}, out.InputIDs)
	assert.Equal(t, [][]int32{
		{1, 1, 1, 1, 1},
		{1, 1, 1, 1, 0},
	}, out.AttentionMask)

	leftover := p.Leftover()
	require.Len(t, leftover, 1)
	assert.Equal(t, 2, leftover[0].Used())
	assert.Equal(t, []int32{2, 2}, leftover[0].Samples()[0].InputIDs)

	stats := p.Stats()
	assert.Equal(t, int64(11), stats.DataTokens)
	assert.Equal(t, int64(9), stats.EmittedTokens)
	assert.Equal(t, int64(1), stats.PaddingTokens)
	assert.InDelta(t, 1.0/10.0, p.Waste(), 1e-12)
	assert.InDelta(t, 2.0/11.0, stats.Backlog(), 1e-12)

	// The leftover bin is emitted unchanged; the new sample gets its own bin.
	out, err = p.Pack(rawBatch([][]int32{{1}}, 5, 0))
	require.NoError(t, err)

	assert.Equal(t, [][]int32{
		{2, 2, 0, 0, 0},
		{1, 0, 0, 0, 0},
	}, out.InputIDs)
	assert.Equal(t, [][]int32{
		{1, 1, 0, 0, 0},
		{1, 0, 0, 0, 0},
	}, out.AttentionMask)
	assert.Empty(t, p.Leftover())
	assert.Zero(t, p.Stats().Backlog())
}

func TestPack_LeftoverBinsAreTriedFirst(t *testing.T) {
	p, err := NewPacker(6, 1)
	require.NoError(t, err)

	_, err = p.Pack(rawBatch([][]int32{{5, 5, 5, 5}, {3, 3, 3, 3}}, 6, 0))
	require.NoError(t, err)
	require.Len(t, p.Leftover(), 1)

	// The 5-token sample does not fit the leftover bin and opens a new one;
	// the 2-token sample then fills the leftover bin, which is emitted first.
	out, err := p.Pack(rawBatch([][]int32{{7, 7}, {8, 8, 8, 8, 8}}, 6, 0))
	require.NoError(t, err)

	assert.Equal(t, [][]int32{{3, 3, 3, 3, 7, 7}}, out.InputIDs)
	require.Len(t, p.Leftover(), 1)
	assert.Equal(t, []int{5}, p.Leftover()[0].Lengths())
}

func TestPack_LeftPadding(t *testing.T) {
	p, err := NewPacker(4, 2, WithPadValue(9), WithPaddingSide(PaddingLeft))
	require.NoError(t, err)

	// No attention mask: pad tokens are stripped from the left.
	out, err := p.Pack(&Batch{InputIDs: [][]int32{
		{9, 9, 1, 2},
		{9, 9, 9, 3},
		{9, 4, 4, 4},
	}})
	require.NoError(t, err)

	assert.Equal(t, [][]int32{
		{4, 4, 4, 3},
		{9, 9, 1, 2},
	}, out.InputIDs)
	assert.Equal(t, [][]int32{
		{1, 1, 1, 1},
		{0, 0, 1, 1},
	}, out.AttentionMask)
	assert.Equal(t, [][]int32{
		{0, 0, 0, 1},
		{-1, -1, 0, 0},
	}, out.SequenceID)
}

func TestPack_LabelsAndBidirectionalMask(t *testing.T) {
	p, err := NewPacker(6, 1)
	require.NoError(t, err)

	out, err := p.PackSamples([]Sample{
		{InputIDs: []int32{1, 2, 3}, Labels: []int32{2, 3, 4}, BidirectionalMask: []int32{1, 1, 0}},
		{InputIDs: []int32{5, 6}, Labels: []int32{6, 7}, BidirectionalMask: []int32{1, 0}},
	})
	require.NoError(t, err)

	assert.Equal(t, [][]int32{{1, 2, 3, 5, 6, 0}}, out.InputIDs)
	assert.Equal(t, [][]int32{{2, 3, 4, IgnoreIndex, 7, IgnoreIndex}}, out.Labels)
	assert.Equal(t, [][]int32{{1, 1, 0, 1, 0, 0}}, out.BidirectionalMask)
	assert.Equal(t, [][]int32{{0, 0, 0, 1, 1, -1}}, out.SequenceID)
}

func TestPack_SkipsEmptyRows(t *testing.T) {
	p, err := NewPacker(4, 2)
	require.NoError(t, err)

	out, err := p.Pack(rawBatch([][]int32{{}, {1, 2}, {3}}, 4, 0))
	require.NoError(t, err)

	assert.Equal(t, [][]int32{{1, 2, 0, 0}, {3, 0, 0, 0}}, out.InputIDs)
	assert.Equal(t, int64(3), p.Stats().DataTokens)
}

func TestPack_ShortBatch(t *testing.T) {
	metrics := &BasicMetricsCollector{Target: 4}
	p, err := NewPacker(8, 4, WithMetricsCollector(metrics))
	require.NoError(t, err)

	out, err := p.Pack(rawBatch([][]int32{{1, 2}, {3}}, 8, 0))
	require.NoError(t, err)

	assert.Equal(t, 2, out.Rows())
	stats := metrics.GetStats()
	assert.Equal(t, int64(1), stats.ShortBatches)
	assert.Equal(t, int64(2), stats.RowsEmitted)
	assert.Equal(t, int64(13), stats.PaddingTokens)
}

func TestPack_SampleTooLong(t *testing.T) {
	p, err := NewPacker(4, 2)
	require.NoError(t, err)

	_, err = p.Pack(rawBatch([][]int32{{1, 2, 3}, {4, 4, 4}}, 4, 0))
	require.NoError(t, err)
	before := p.State()

	_, err = p.Pack(&Batch{InputIDs: [][]int32{{1, 2}, {1, 2, 3, 4, 5}}})
	require.Error(t, err)

	var tooLong *ErrSampleTooLong
	require.ErrorAs(t, err, &tooLong)
	assert.Equal(t, 1, tooLong.Row)
	assert.Equal(t, 5, tooLong.Length)
	assert.Equal(t, 4, tooLong.Capacity)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	assert.Equal(t, before, p.State(), "failed call must not change state")
}

func TestPack_ShapeMismatch(t *testing.T) {
	p, err := NewPacker(4, 1)
	require.NoError(t, err)

	t.Run("row count", func(t *testing.T) {
		_, err := p.Pack(&Batch{
			InputIDs: [][]int32{{1, 0}, {2, 0}},
			Labels:   [][]int32{{1, 0}},
		})
		var sm *ErrShapeMismatch
		require.ErrorAs(t, err, &sm)
		assert.Equal(t, "labels", sm.Field)
		assert.Equal(t, -1, sm.Row)
	})

	t.Run("row width", func(t *testing.T) {
		_, err := p.Pack(&Batch{
			InputIDs:      [][]int32{{1, 0}, {2, 0}},
			AttentionMask: [][]int32{{1, 0}, {1}},
		})
		var sm *ErrShapeMismatch
		require.ErrorAs(t, err, &sm)
		assert.Equal(t, "attention_mask", sm.Field)
		assert.Equal(t, 1, sm.Row)
	})

	t.Run("sample", func(t *testing.T) {
		_, err := p.PackSamples([]Sample{
			{InputIDs: []int32{1}},
			{InputIDs: []int32{1, 2}, Labels: []int32{1}},
		})
		var sm *ErrShapeMismatch
		require.ErrorAs(t, err, &sm)
		assert.Equal(t, 1, sm.Row)
	})

	assert.Zero(t, p.Stats().Calls)
}

func TestPack_MaxLeftoverBins(t *testing.T) {
	metrics := &BasicMetricsCollector{}
	p, err := NewPacker(4, 1, WithMaxLeftoverBins(1), WithMetricsCollector(metrics))
	require.NoError(t, err)

	_, err = p.Pack(rawBatch([][]int32{{1, 1, 1}, {2, 2, 2}, {3, 3}, {4, 4, 4}}, 4, 0))
	require.NoError(t, err)

	// Bins: {1,1,1}, {2,2,2}, {4,4,4}, {3,3}; one emitted, one kept, two dropped.
	require.Len(t, p.Leftover(), 1)
	assert.Equal(t, int64(5), p.Stats().DroppedTokens)
	assert.Equal(t, int64(2), metrics.GetStats().DroppedBins)
}

func TestNewPacker_InvalidConfig(t *testing.T) {
	_, err := NewPacker(0, 1)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewPacker(8, 0)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewPacker(8, 1, WithPaddingSide(PaddingSide(7)))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestParsePaddingSide(t *testing.T) {
	side, err := ParsePaddingSide("Left")
	require.NoError(t, err)
	assert.Equal(t, PaddingLeft, side)

	side, err = ParsePaddingSide("right")
	require.NoError(t, err)
	assert.Equal(t, PaddingRight, side)

	_, err = ParsePaddingSide("middle")
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}
