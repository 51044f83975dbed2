// Package checkpoint persists Packer state to a blobstore.Store.
//
// Leftover bins are part of the data stream: restoring them on restart makes
// every later packing decision identical to an uninterrupted run.
//
// # Layout
//
// Each Save writes a new immutable checkpoint blob and then atomically updates
// the CURRENT pointer:
//
//	<prefix>checkpoint-000001.bin
//	<prefix>checkpoint-000002.bin
//	<prefix>CURRENT              -> "checkpoint-000002.bin"
//
// # Frame
//
// A checkpoint blob is self-describing:
//
//	[magic "SQPK"][version u16][compression u8][codec name len u8][codec name]
//	[crc32c u32][payload]
//
// The payload is the codec-encoded State, compressed as recorded in the header
// (see internal/compress). The checksum covers the payload.
//
// # Usage
//
//	cs := checkpoint.NewStore(store, checkpoint.WithCompression(checkpoint.CompressionZSTD))
//	if _, err := cs.Save(ctx, packer.State()); err != nil {
//	    return err
//	}
//	st, err := cs.Load(ctx)
//	if errors.Is(err, blobstore.ErrNotFound) {
//	    // fresh start
//	}
package checkpoint
