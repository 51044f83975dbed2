package seqpack

import "fmt"

// Collator turns a list of examples into a batch.
type Collator interface {
	Collate(examples []Sample) (*Batch, error)
}

// CollatorFunc adapts a function to the Collator interface.
type CollatorFunc func(examples []Sample) (*Batch, error)

// Collate calls f(examples).
func (f CollatorFunc) Collate(examples []Sample) (*Batch, error) { return f(examples) }

// PaddingCollator pads every example to a fixed width.
//
// The attention mask marks real tokens; labels and bidirectional masks are
// emitted only when at least one example carries them.
type PaddingCollator struct {
	Width       int
	PadValue    int32
	PaddingSide PaddingSide
}

// Collate implements Collator.
func (c PaddingCollator) Collate(examples []Sample) (*Batch, error) {
	if c.Width <= 0 {
		return nil, fmt.Errorf("%w: collator width must be positive, got %d", ErrInvalidConfig, c.Width)
	}

	withLabels, withBidir := false, false
	for i, ex := range examples {
		if err := ex.Validate(); err != nil {
			if sm, ok := err.(*ErrShapeMismatch); ok {
				sm.Row = i
			}
			return nil, err
		}
		if ex.Len() > c.Width {
			return nil, &ErrSampleTooLong{Row: i, Length: ex.Len(), Capacity: c.Width}
		}
		withLabels = withLabels || ex.Labels != nil
		withBidir = withBidir || ex.BidirectionalMask != nil
	}

	b := &Batch{
		InputIDs:      make([][]int32, len(examples)),
		AttentionMask: make([][]int32, len(examples)),
	}
	if withLabels {
		b.Labels = make([][]int32, len(examples))
	}
	if withBidir {
		b.BidirectionalMask = make([][]int32, len(examples))
	}

	for i, ex := range examples {
		// Each example is rendered as a one-sample bin.
		bin := &Bin{capacity: c.Width}
		bin.add(ex)
		r := bin.render(c.PadValue, c.PaddingSide, withLabels, withBidir)
		b.InputIDs[i] = r.inputIDs
		b.AttentionMask[i] = r.attention
		if withLabels {
			b.Labels[i] = r.labels
		}
		if withBidir {
			b.BidirectionalMask[i] = r.bidir
		}
	}
	return b, nil
}

// PackingCollator collates examples with a base collator and packs the result.
type PackingCollator struct {
	base   Collator
	packer *Packer
}

// NewPackingCollator wraps base so that every collated batch is packed by p.
func NewPackingCollator(base Collator, p *Packer) *PackingCollator {
	return &PackingCollator{base: base, packer: p}
}

// Packer returns the underlying Packer.
func (c *PackingCollator) Packer() *Packer { return c.packer }

// Collate implements Collator.
func (c *PackingCollator) Collate(examples []Sample) (*Batch, error) {
	batch, err := c.base.Collate(examples)
	if err != nil {
		return nil, fmt.Errorf("collate: %w", err)
	}
	return c.packer.Pack(batch)
}
