// Package seqpack packs variable-length training sequences into fixed-capacity
// rows so that padding is minimized.
//
// # Quick Start
//
//	p, _ := seqpack.NewPacker(2048, 8,
//	    seqpack.WithPadValue(tokenizer.PadID()),
//	    seqpack.WithPaddingSide(seqpack.PaddingRight),
//	)
//	packed, err := p.Pack(rawBatch) // rawBatch has N >= 8 padded rows
//	if err != nil {
//	    return err
//	}
//	// packed has 8 rows of 2048 tokens
//
// # Algorithm
//
// Each call depads the rows of the incoming batch and places them longest
// first into the first bin with room: leftover bins from earlier calls are
// tried before bins opened in this call. The first TargetBins bins in creation
// order are emitted; the rest are carried to the next call. Output depends only
// on the sequence of batches, so identical input yields identical rows.
//
// # Accounting
//
// Stats.Waste is the fraction of emitted row capacity occupied by padding,
// accumulated over the Packer's lifetime. Stats.Backlog is the fraction of
// presented tokens not yet emitted.
//
// # Checkpointing
//
// Packer.State and Packer.Restore capture leftover bins and counters; see the
// checkpoint package for durable storage on a blobstore.Store.
//
// # Packing Ratio
//
// The ratio package profiles candidate packing ratios over a sample corpus and
// reconciles the choice across workers with the collective package.
package seqpack
