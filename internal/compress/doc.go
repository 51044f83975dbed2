// Package compress implements block compression for checkpoint payloads.
//
// A block is an 8-byte header followed by the payload:
//
//	[UncompressedSize uint32][CompressedSize uint32][Data...]
//
// A CompressedSize of zero marks a block stored uncompressed, which happens when
// compression does not shrink the payload by at least 10%.
package compress
