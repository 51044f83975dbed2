// Package hash provides the checksum used to detect corrupted checkpoints.
//
// Checkpoint frames carry a CRC32-Castagnoli (CRC32C) checksum of their
// payload. Go's crc32 package uses hardware instructions for this polynomial
// where available (SSE4.2 on x86-64, the CRC extension on ARM64).
//
// CRC32C is NOT cryptographically secure. It detects accidental corruption,
// not tampering.
package hash
