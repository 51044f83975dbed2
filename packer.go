package seqpack

import (
	"fmt"
	"sort"
	"time"
)

// Packer is an online first-fit-decreasing bin packer.
//
// Each call to Pack consumes one batch, emits up to TargetBins rows of width
// Capacity and keeps bins that could not be emitted as leftovers for the next
// call. A Packer is not safe for concurrent use; each data-loading worker owns
// its own instance.
type Packer struct {
	capacity   int
	targetBins int
	opts       options

	leftover []*Bin
	stats    Stats
}

// NewPacker creates a Packer that emits targetBins rows of capacity tokens per call.
func NewPacker(capacity, targetBins int, optFns ...Option) (*Packer, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: capacity must be positive, got %d", ErrInvalidConfig, capacity)
	}
	if targetBins <= 0 {
		return nil, fmt.Errorf("%w: target bin count must be positive, got %d", ErrInvalidConfig, targetBins)
	}
	o := applyOptions(optFns)
	if o.paddingSide != PaddingLeft && o.paddingSide != PaddingRight {
		return nil, fmt.Errorf("%w: unknown padding side %s", ErrInvalidConfig, o.paddingSide)
	}
	return &Packer{
		capacity:   capacity,
		targetBins: targetBins,
		opts:       o,
	}, nil
}

// Capacity returns the bin capacity (maximum sequence length).
func (p *Packer) Capacity() int { return p.capacity }

// TargetBins returns the number of rows emitted per call.
func (p *Packer) TargetBins() int { return p.targetBins }

// PadValue returns the configured pad token id.
func (p *Packer) PadValue() int32 { return p.opts.padValue }

// PaddingSide returns the configured padding side.
func (p *Packer) PaddingSide() PaddingSide { return p.opts.paddingSide }

// Stats returns the running accounting.
func (p *Packer) Stats() Stats { return p.stats }

// Waste is shorthand for Stats().Waste().
func (p *Packer) Waste() float64 { return p.stats.Waste() }

// Efficiency is shorthand for Stats().Efficiency().
func (p *Packer) Efficiency() float64 { return p.stats.Efficiency() }

// Leftover returns the bins carried to the next call, oldest first.
// The returned bins must not be modified.
func (p *Packer) Leftover() []*Bin {
	out := make([]*Bin, len(p.leftover))
	copy(out, p.leftover)
	return out
}

// Reset drops leftover bins and clears the accounting.
func (p *Packer) Reset() {
	p.leftover = nil
	p.stats = Stats{}
}

// Pack depads the rows of batch and packs them together with the leftover bins
// of previous calls.
//
// The batch is validated as a whole before any state changes: a shape mismatch
// or a row longer than the capacity fails the call and leaves the Packer as it
// was. Rows that depad to zero tokens are ignored.
func (p *Packer) Pack(batch *Batch) (*Batch, error) {
	start := time.Now()

	samples, err := p.depad(batch)
	if err != nil {
		return nil, p.fail(err, start)
	}

	withLabels := batch != nil && batch.Labels != nil
	withBidir := batch != nil && batch.BidirectionalMask != nil
	return p.pack(samples, withLabels, withBidir, start), nil
}

// PackSamples packs already depadded samples.
//
// It follows the same rules as Pack; samples with zero tokens are ignored.
func (p *Packer) PackSamples(samples []Sample) (*Batch, error) {
	start := time.Now()

	kept := make([]Sample, 0, len(samples))
	withLabels, withBidir := false, false
	for i, s := range samples {
		if err := s.Validate(); err != nil {
			if sm, ok := err.(*ErrShapeMismatch); ok {
				sm.Row = i
			}
			return nil, p.fail(err, start)
		}
		if s.Len() > p.capacity {
			return nil, p.fail(&ErrSampleTooLong{Row: i, Length: s.Len(), Capacity: p.capacity}, start)
		}
		if s.Len() == 0 {
			continue
		}
		withLabels = withLabels || s.HasLabels()
		withBidir = withBidir || s.BidirectionalMask != nil
		kept = append(kept, s.clone())
	}
	return p.pack(kept, withLabels, withBidir, start), nil
}

func (p *Packer) fail(err error, start time.Time) error {
	p.opts.logger.LogPack(0, p.targetBins, len(p.leftover), p.stats.Waste(), err)
	p.opts.metricsCollector.RecordPack(0, len(p.leftover), 0, 0, time.Since(start), err)
	return err
}

func (p *Packer) depad(batch *Batch) ([]Sample, error) {
	if batch == nil {
		return nil, nil
	}
	if err := batch.Validate(); err != nil {
		return nil, err
	}
	samples := make([]Sample, 0, batch.Rows())
	for i := range batch.InputIDs {
		s := batch.depad(i, p.opts.padValue, p.opts.paddingSide)
		if s.Len() > p.capacity {
			return nil, &ErrSampleTooLong{Row: i, Length: s.Len(), Capacity: p.capacity}
		}
		if s.Len() == 0 {
			continue
		}
		samples = append(samples, s)
	}
	return samples, nil
}

func (p *Packer) pack(samples []Sample, withLabels, withBidir bool, start time.Time) *Batch {
	dataTokens := 0
	for _, s := range samples {
		dataTokens += s.Len()
	}

	bins := firstFitDecreasing(samples, p.leftover, p.capacity, p.targetBins)

	n := min(p.targetBins, len(bins))
	emitted := bins[:n]
	leftover := bins[n:]

	if limit := p.opts.maxLeftoverBins; limit >= 0 && len(leftover) > limit {
		dropped := 0
		for _, b := range leftover[limit:] {
			dropped += b.Used()
		}
		p.stats.DroppedTokens += int64(dropped)
		p.opts.logger.LogDrop(len(leftover)-limit, dropped)
		p.opts.metricsCollector.RecordDrop(len(leftover)-limit, dropped)
		leftover = leftover[:limit]
	}
	p.leftover = append([]*Bin(nil), leftover...)

	for _, b := range emitted {
		withLabels = withLabels || b.hasLabels()
		withBidir = withBidir || b.hasBidirectionalMask()
	}

	out := &Batch{
		InputIDs:      make([][]int32, 0, n),
		AttentionMask: make([][]int32, 0, n),
		SequenceID:    make([][]int32, 0, n),
	}
	if withLabels {
		out.Labels = make([][]int32, 0, n)
	}
	if withBidir {
		out.BidirectionalMask = make([][]int32, 0, n)
	}

	emittedTokens, padding := 0, 0
	for _, b := range emitted {
		r := b.render(p.opts.padValue, p.opts.paddingSide, withLabels, withBidir)
		out.InputIDs = append(out.InputIDs, r.inputIDs)
		out.AttentionMask = append(out.AttentionMask, r.attention)
		out.SequenceID = append(out.SequenceID, r.sequenceID)
		if withLabels {
			out.Labels = append(out.Labels, r.labels)
		}
		if withBidir {
			out.BidirectionalMask = append(out.BidirectionalMask, r.bidir)
		}
		emittedTokens += b.Used()
		padding += b.Remaining()
	}

	p.stats.Calls++
	p.stats.DataTokens += int64(dataTokens)
	p.stats.EmittedTokens += int64(emittedTokens)
	p.stats.PaddingTokens += int64(padding)
	p.stats.EmittedRows += int64(n)

	p.opts.logger.LogPack(n, p.targetBins, len(p.leftover), p.stats.Waste(), nil)
	p.opts.metricsCollector.RecordPack(n, len(p.leftover), dataTokens, padding, time.Since(start), nil)

	return out
}

// firstFitDecreasing places samples into existing bins (oldest first) or new
// bins and returns every bin in creation order.
//
// Samples are placed longest first. Once the samples still to place are no more
// than the bins still missing to reach target, each remaining sample opens its
// own bin so the call can emit a full batch.
func firstFitDecreasing(samples []Sample, existing []*Bin, capacity, target int) []*Bin {
	sorted := make([]Sample, len(samples))
	copy(sorted, samples)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Len() > sorted[j].Len()
	})

	bins := make([]*Bin, len(existing), len(existing)+len(sorted))
	copy(bins, existing)

	for i, s := range sorted {
		missing := target - len(bins)
		if len(sorted)-i <= missing {
			for _, rest := range sorted[i:] {
				bins = append(bins, newBin(capacity, rest))
			}
			break
		}

		placed := false
		for _, b := range bins {
			if b.Remaining() >= s.Len() {
				b.add(s)
				placed = true
				break
			}
		}
		if !placed {
			bins = append(bins, newBin(capacity, s))
		}
	}
	return bins
}
