package seqpack

import (
	"fmt"
	"strings"
)

// PaddingSide selects where pad tokens sit in a fixed-width row.
type PaddingSide uint8

const (
	// PaddingRight places real tokens first and pad tokens at the end.
	PaddingRight PaddingSide = iota
	// PaddingLeft places pad tokens first and real tokens at the end.
	PaddingLeft
)

func (p PaddingSide) String() string {
	switch p {
	case PaddingRight:
		return "right"
	case PaddingLeft:
		return "left"
	default:
		return fmt.Sprintf("PaddingSide(%d)", uint8(p))
	}
}

// ParsePaddingSide parses "left" or "right" (case-insensitive).
func ParsePaddingSide(s string) (PaddingSide, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "right":
		return PaddingRight, nil
	case "left":
		return PaddingLeft, nil
	default:
		return 0, fmt.Errorf("%w: padding side must be 'left' or 'right', got %q", ErrInvalidConfig, s)
	}
}

// Batch is a collection of fixed-width rows, one per example.
//
// Raw batches fed to a Packer need InputIDs; every other field is optional.
// Packed batches always carry InputIDs, AttentionMask and SequenceID, and carry
// Labels and BidirectionalMask when the packed samples had them.
type Batch struct {
	InputIDs          [][]int32 `json:"input_ids"`
	AttentionMask     [][]int32 `json:"attention_mask,omitempty"`
	Labels            [][]int32 `json:"labels,omitempty"`
	BidirectionalMask [][]int32 `json:"bidirectional_mask,omitempty"`
	SequenceID        [][]int32 `json:"sequence_id,omitempty"`
}

// Rows returns the number of rows in the batch.
func (b *Batch) Rows() int {
	if b == nil {
		return 0
	}
	return len(b.InputIDs)
}

// Validate checks that every present auxiliary field has one row per InputIDs
// row and that each row has the same width as its InputIDs row.
func (b *Batch) Validate() error {
	fields := []struct {
		name string
		rows [][]int32
	}{
		{"attention_mask", b.AttentionMask},
		{"labels", b.Labels},
		{"bidirectional_mask", b.BidirectionalMask},
		{"sequence_id", b.SequenceID},
	}
	for _, f := range fields {
		if f.rows == nil {
			continue
		}
		if len(f.rows) != len(b.InputIDs) {
			return &ErrShapeMismatch{Field: f.name, Row: -1, Expected: len(b.InputIDs), Actual: len(f.rows)}
		}
		for i, row := range f.rows {
			if len(row) != len(b.InputIDs[i]) {
				return &ErrShapeMismatch{Field: f.name, Row: i, Expected: len(b.InputIDs[i]), Actual: len(row)}
			}
		}
	}
	return nil
}

// depad extracts row i as a Sample.
//
// With an attention mask, positions where the mask is 1 are kept. Without one,
// pad tokens are stripped from the padding side.
func (b *Batch) depad(i int, pad int32, side PaddingSide) Sample {
	ids := b.InputIDs[i]

	if b.AttentionMask != nil {
		mask := b.AttentionMask[i]
		keep := make([]int, 0, len(ids))
		for j, m := range mask {
			if m == 1 {
				keep = append(keep, j)
			}
		}
		s := Sample{InputIDs: gather(ids, keep)}
		if b.Labels != nil {
			s.Labels = gather(b.Labels[i], keep)
		}
		if b.BidirectionalMask != nil {
			s.BidirectionalMask = gather(b.BidirectionalMask[i], keep)
		}
		return s
	}

	lo, hi := 0, len(ids)
	switch side {
	case PaddingLeft:
		for lo < hi && ids[lo] == pad {
			lo++
		}
	default:
		for hi > lo && ids[hi-1] == pad {
			hi--
		}
	}
	s := Sample{InputIDs: cloneInts(ids[lo:hi])}
	if b.Labels != nil {
		s.Labels = cloneInts(b.Labels[i][lo:hi])
	}
	if b.BidirectionalMask != nil {
		s.BidirectionalMask = cloneInts(b.BidirectionalMask[i][lo:hi])
	}
	return s
}

func gather(src []int32, idx []int) []int32 {
	out := make([]int32, len(idx))
	for k, j := range idx {
		out[k] = src[j]
	}
	return out
}
