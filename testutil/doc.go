// Package testutil provides testing utilities for seqpack.
//
// This package is intended for use in tests and benchmarks only.
// It provides a deterministic RNG and generators for synthetic token
// sequences with realistic length distributions.
//
// # Synthetic Corpora
//
//	rng := testutil.NewRNG(seed)
//	seqs := rng.Sequences(1000, 1, 512, 32000) // uniform lengths in [1, 512]
//	skewed := rng.ZipfLengths(1000, 512, 1.2)  // many short, few long
//
// # Padded Rows
//
//	rows, mask := testutil.PadRight(seqs, 512, 0)
package testutil
