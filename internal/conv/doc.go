// Package conv provides safe numeric type conversion utilities.
//
// These functions perform bounds checking to prevent overflow when converting
// between signed/unsigned integers of different widths, and from float64 to
// int.
//
// Use cases:
//   - Validating untrusted data from storage (checkpoint headers, sizes)
//   - Turning a packing ratio times a batch size into a row count
package conv
