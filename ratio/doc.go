// Package ratio selects the packing ratio for a Packer.
//
// The packing ratio is the multiplier applied to the per-device batch size to
// obtain the number of raw samples fed to the Packer per call. A higher ratio
// gives the Packer more samples to fill each bin with, so rows carry less
// padding, but once the ratio exceeds what the data can sustain, leftover
// bins accumulate and samples are delayed.
//
// Select sweeps candidate ratios, profiles each one, keeps the largest ratio
// whose leftover backlog is zero and then agrees on the minimum across all
// workers through a collective.Gatherer:
//
//	profiler := ratio.NewProfiler(corpus)
//	r, err := ratio.Select(ctx, profiler.Profile, gatherer, ratio.Config{
//	    Capacity:        2048,
//	    DeviceBatchSize: 8,
//	})
//	if err != nil {
//	    return err
//	}
//	rawBatch, err := ratio.RawBatchSize(r, 8)
package ratio
