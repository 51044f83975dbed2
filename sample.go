package seqpack

// IgnoreIndex is the label value excluded from the training loss.
const IgnoreIndex int32 = -100

// Sample is one depadded training sequence plus its aligned auxiliary fields.
//
// Labels and BidirectionalMask are optional; when present they have the same
// length as InputIDs. A Sample is never mutated once it enters a Packer.
type Sample struct {
	InputIDs          []int32 `json:"input_ids"`
	Labels            []int32 `json:"labels,omitempty"`
	BidirectionalMask []int32 `json:"bidirectional_mask,omitempty"`
}

// Len returns the number of real (non-padding) tokens.
func (s Sample) Len() int { return len(s.InputIDs) }

// HasLabels reports whether the sample carries labels.
func (s Sample) HasLabels() bool { return s.Labels != nil }

// Validate checks that every auxiliary field is aligned with InputIDs.
func (s Sample) Validate() error {
	if s.Labels != nil && len(s.Labels) != len(s.InputIDs) {
		return &ErrShapeMismatch{Field: "labels", Row: 0, Expected: len(s.InputIDs), Actual: len(s.Labels)}
	}
	if s.BidirectionalMask != nil && len(s.BidirectionalMask) != len(s.InputIDs) {
		return &ErrShapeMismatch{Field: "bidirectional_mask", Row: 0, Expected: len(s.InputIDs), Actual: len(s.BidirectionalMask)}
	}
	return nil
}

func (s Sample) clone() Sample {
	return Sample{
		InputIDs:          cloneInts(s.InputIDs),
		Labels:            cloneInts(s.Labels),
		BidirectionalMask: cloneInts(s.BidirectionalMask),
	}
}

func cloneInts(v []int32) []int32 {
	if v == nil {
		return nil
	}
	out := make([]int32, len(v))
	copy(out, v)
	return out
}
