package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLengths(t *testing.T) {
	rng := NewRNG(4711)

	l := rng.Lengths(100, 3, 9)

	require.Len(t, l, 100)
	for _, v := range l {
		assert.GreaterOrEqual(t, v, 3)
		assert.LessOrEqual(t, v, 9)
	}
}

func TestZipfLengths(t *testing.T) {
	rng := NewRNG(4711)

	l := rng.ZipfLengths(500, 64, 1.2)

	short := 0
	for _, v := range l {
		assert.GreaterOrEqual(t, v, 1)
		assert.LessOrEqual(t, v, 64)
		if v <= 8 {
			short++
		}
	}
	assert.Greater(t, short, 250, "zipf should favour short sequences")
}

func TestSequencesDeterministic(t *testing.T) {
	a := NewRNG(7).Sequences(10, 1, 20, 100)
	b := NewRNG(7).Sequences(10, 1, 20, 100)

	assert.Equal(t, a, b)
	for _, s := range a {
		for _, tok := range s {
			assert.NotZero(t, tok)
		}
	}
}

func TestPadRows(t *testing.T) {
	seqs := [][]int32{{7, 8}, {9}}

	rows, mask := PadRight(seqs, 4, 0)
	assert.Equal(t, [][]int32{{7, 8, 0, 0}, {9, 0, 0, 0}}, rows)
	assert.Equal(t, [][]int32{{1, 1, 0, 0}, {1, 0, 0, 0}}, mask)

	rows, mask = PadLeft(seqs, 4, 0)
	assert.Equal(t, [][]int32{{0, 0, 7, 8}, {0, 0, 0, 9}}, rows)
	assert.Equal(t, [][]int32{{0, 0, 1, 1}, {0, 0, 0, 1}}, mask)
}
