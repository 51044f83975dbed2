package seqpack

// Bin accumulates samples up to a fixed token capacity.
//
// Samples are kept in placement order; that order decides how their fields are
// concatenated when the bin is rendered into a row.
type Bin struct {
	capacity int
	used     int
	samples  []Sample
}

func newBin(capacity int, first Sample) *Bin {
	b := &Bin{capacity: capacity}
	b.add(first)
	return b
}

// Capacity returns the fixed token capacity of the bin.
func (b *Bin) Capacity() int { return b.capacity }

// Used returns the number of data tokens held.
func (b *Bin) Used() int { return b.used }

// Remaining returns Capacity() - Used().
func (b *Bin) Remaining() int { return b.capacity - b.used }

// Len returns the number of samples held.
func (b *Bin) Len() int { return len(b.samples) }

// Lengths returns the lengths of the contained samples in placement order.
func (b *Bin) Lengths() []int {
	out := make([]int, len(b.samples))
	for i, s := range b.samples {
		out[i] = s.Len()
	}
	return out
}

// Samples returns a copy of the contained samples in placement order.
func (b *Bin) Samples() []Sample {
	out := make([]Sample, len(b.samples))
	for i, s := range b.samples {
		out[i] = s.clone()
	}
	return out
}

func (b *Bin) add(s Sample) {
	b.samples = append(b.samples, s)
	b.used += s.Len()
}

// row is one rendered bin, every field exactly capacity wide.
type row struct {
	inputIDs   []int32
	attention  []int32
	labels     []int32
	bidir      []int32
	sequenceID []int32
}

// render concatenates the samples and pads the result to capacity.
func (b *Bin) render(pad int32, side PaddingSide, withLabels, withBidir bool) row {
	r := row{
		inputIDs:   make([]int32, 0, b.capacity),
		attention:  make([]int32, 0, b.capacity),
		sequenceID: make([]int32, 0, b.capacity),
	}
	if withLabels {
		r.labels = make([]int32, 0, b.capacity)
	}
	if withBidir {
		r.bidir = make([]int32, 0, b.capacity)
	}

	for k, s := range b.samples {
		n := s.Len()
		r.inputIDs = append(r.inputIDs, s.InputIDs...)
		r.attention = appendFill(r.attention, 1, n)
		r.sequenceID = appendFill(r.sequenceID, int32(k), n)

		if withLabels {
			start := len(r.labels)
			if s.Labels != nil {
				r.labels = append(r.labels, s.Labels...)
			} else {
				r.labels = appendFill(r.labels, IgnoreIndex, n)
			}
			// The previous sample's last token must not learn to predict this
			// sample's first token.
			if k > 0 && n > 0 {
				r.labels[start] = IgnoreIndex
			}
		}
		if withBidir {
			if s.BidirectionalMask != nil {
				r.bidir = append(r.bidir, s.BidirectionalMask...)
			} else {
				r.bidir = appendFill(r.bidir, 0, n)
			}
		}
	}

	r.inputIDs = padRow(r.inputIDs, b.capacity, pad, side)
	r.attention = padRow(r.attention, b.capacity, 0, side)
	r.sequenceID = padRow(r.sequenceID, b.capacity, -1, side)
	if withLabels {
		r.labels = padRow(r.labels, b.capacity, IgnoreIndex, side)
	}
	if withBidir {
		r.bidir = padRow(r.bidir, b.capacity, 0, side)
	}
	return r
}

func appendFill(dst []int32, v int32, n int) []int32 {
	for i := 0; i < n; i++ {
		dst = append(dst, v)
	}
	return dst
}

func padRow(data []int32, width int, pad int32, side PaddingSide) []int32 {
	if len(data) >= width {
		return data
	}
	out := make([]int32, width)
	switch side {
	case PaddingLeft:
		off := width - len(data)
		for i := 0; i < off; i++ {
			out[i] = pad
		}
		copy(out[off:], data)
	default:
		copy(out, data)
		for i := len(data); i < width; i++ {
			out[i] = pad
		}
	}
	return out
}

func (b *Bin) hasLabels() bool {
	for _, s := range b.samples {
		if s.Labels != nil {
			return true
		}
	}
	return false
}

func (b *Bin) hasBidirectionalMask() bool {
	for _, s := range b.samples {
		if s.BidirectionalMask != nil {
			return true
		}
	}
	return false
}
