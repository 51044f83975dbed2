package seqpack

import "fmt"

// Stats is the running accounting of a Packer over its lifetime.
type Stats struct {
	Calls         int64 `json:"calls"`
	DataTokens    int64 `json:"data_tokens"`
	EmittedTokens int64 `json:"emitted_tokens"`
	PaddingTokens int64 `json:"padding_tokens"`
	EmittedRows   int64 `json:"emitted_rows"`
	DroppedTokens int64 `json:"dropped_tokens"`
}

// Waste returns the fraction of emitted row capacity occupied by padding.
//
// It is in [0, 1] and is zero only when every emitted row was full. Before any
// row has been emitted it is zero.
func (s Stats) Waste() float64 {
	if s.EmittedTokens+s.PaddingTokens == 0 {
		return 0
	}
	return float64(s.PaddingTokens) / float64(s.EmittedTokens+s.PaddingTokens)
}

// Efficiency returns 1 - Waste().
func (s Stats) Efficiency() float64 { return 1 - s.Waste() }

// Backlog returns the fraction of presented data tokens that have not been
// emitted, either because they still sit in leftover bins or because they were
// dropped by the leftover cap.
func (s Stats) Backlog() float64 {
	if s.DataTokens == 0 {
		return 0
	}
	return 1 - float64(s.EmittedTokens)/float64(s.DataTokens)
}

// State is the resumable state of a Packer.
//
// Restoring a State reproduces every future packing decision exactly; dropping
// it on restart only loses that guarantee.
type State struct {
	Capacity   int        `json:"capacity"`
	TargetBins int        `json:"target_bins"`
	Leftover   []BinState `json:"leftover"`
	Stats      Stats      `json:"stats"`
}

// BinState is a serialized leftover bin.
type BinState struct {
	Samples []Sample `json:"samples"`
}

// Used returns the number of data tokens held by the bin.
func (b BinState) Used() int {
	n := 0
	for _, s := range b.Samples {
		n += s.Len()
	}
	return n
}

// State captures the leftover bins and counters. The result shares no memory
// with the Packer.
func (p *Packer) State() State {
	st := State{
		Capacity:   p.capacity,
		TargetBins: p.targetBins,
		Leftover:   make([]BinState, len(p.leftover)),
		Stats:      p.stats,
	}
	for i, b := range p.leftover {
		st.Leftover[i] = BinState{Samples: b.Samples()}
	}
	return st
}

// Restore replaces the Packer's leftover bins and counters with st.
//
// The state must come from a Packer with the same capacity and target bin
// count, and every leftover bin must fit the capacity.
func (p *Packer) Restore(st State) error {
	err := p.restore(st)
	p.opts.logger.LogRestore(len(st.Leftover), err)
	return err
}

func (p *Packer) restore(st State) error {
	if st.Capacity != p.capacity || st.TargetBins != p.targetBins {
		return fmt.Errorf("%w: state has capacity %d and target %d, packer has %d and %d",
			ErrStateMismatch, st.Capacity, st.TargetBins, p.capacity, p.targetBins)
	}

	bins := make([]*Bin, 0, len(st.Leftover))
	for i, bs := range st.Leftover {
		if len(bs.Samples) == 0 {
			return fmt.Errorf("%w: leftover bin %d is empty", ErrStateMismatch, i)
		}
		b := &Bin{capacity: p.capacity}
		for _, s := range bs.Samples {
			if err := s.Validate(); err != nil {
				return fmt.Errorf("leftover bin %d: %w", i, err)
			}
			if s.Len() == 0 {
				return fmt.Errorf("%w: leftover bin %d holds an empty sample", ErrStateMismatch, i)
			}
			b.add(s.clone())
		}
		if b.Used() > p.capacity {
			return fmt.Errorf("%w: leftover bin %d holds %d tokens, capacity is %d",
				ErrStateMismatch, i, b.Used(), p.capacity)
		}
		bins = append(bins, b)
	}

	p.leftover = bins
	p.stats = st.Stats
	return nil
}
