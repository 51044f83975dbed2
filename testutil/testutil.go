package testutil

import (
	"math"
	"math/rand"
	"sync"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Lengths returns n sequence lengths drawn uniformly from [minLen, maxLen].
func (r *RNG) Lengths(n, minLen, maxLen int) []int {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]int, n)
	for i := range n {
		out[i] = minLen + r.rand.Intn(maxLen-minLen+1)
	}
	return out
}

// ZipfLengths returns n lengths in [1, maxLen] following Zipf's law:
// P(k) ∝ 1/k^s. Real instruction-tuning corpora look like this: many short
// examples and a long tail.
func (r *RNG) ZipfLengths(n, maxLen int, s float64) []int {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]int, n)
	for i := range n {
		out[i] = r.zipfLocked(maxLen, s) + 1
	}
	return out
}

// zipfLocked is the internal implementation (caller must hold lock).
func (r *RNG) zipfLocked(n int, s float64) int {
	if n <= 1 {
		return 0
	}

	var hns float64
	for i := 1; i <= n; i++ {
		hns += 1.0 / math.Pow(float64(i), s)
	}

	u := r.rand.Float64() * hns
	var cumulative float64
	for k := 1; k <= n; k++ {
		cumulative += 1.0 / math.Pow(float64(k), s)
		if u <= cumulative {
			return k - 1 // 0-indexed
		}
	}

	return n - 1
}

// Sequences returns n token sequences with lengths uniform in [minLen, maxLen].
// Token ids are in [1, vocab) so that 0 never appears as a real token.
func (r *RNG) Sequences(n, minLen, maxLen, vocab int) [][]int32 {
	return r.SequencesWithLengths(r.Lengths(n, minLen, maxLen), vocab)
}

// SequencesWithLengths returns one token sequence per length.
// Token ids are in [1, vocab).
func (r *RNG) SequencesWithLengths(lengths []int, vocab int) [][]int32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := 0
	for _, l := range lengths {
		total += l
	}
	data := make([]int32, total)
	out := make([][]int32, len(lengths))

	off := 0
	for i, l := range lengths {
		seq := data[off : off+l : off+l]
		for j := range seq {
			seq[j] = int32(1 + r.rand.Intn(vocab-1))
		}
		out[i] = seq
		off += l
	}
	return out
}

// Repeat returns a sequence of n copies of v.
func Repeat(v int32, n int) []int32 {
	out := make([]int32, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// PadRight pads every sequence to width with pad at the end and returns the
// rows and the matching attention mask.
func PadRight(seqs [][]int32, width int, pad int32) (rows, mask [][]int32) {
	return padRows(seqs, width, pad, false)
}

// PadLeft pads every sequence to width with pad at the front and returns the
// rows and the matching attention mask.
func PadLeft(seqs [][]int32, width int, pad int32) (rows, mask [][]int32) {
	return padRows(seqs, width, pad, true)
}

func padRows(seqs [][]int32, width int, pad int32, left bool) (rows, mask [][]int32) {
	rows = make([][]int32, len(seqs))
	mask = make([][]int32, len(seqs))
	for i, s := range seqs {
		row := make([]int32, width)
		m := make([]int32, width)
		off := 0
		if left {
			off = width - len(s)
		}
		for j := range row {
			row[j] = pad
		}
		copy(row[off:], s)
		for j := off; j < off+len(s); j++ {
			m[j] = 1
		}
		rows[i] = row
		mask[i] = m
	}
	return rows, mask
}
