package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/seqpack/collective"
	"github.com/hupe1980/seqpack/ratio"
)

func newRatioCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ratio CORPUS",
		Short: "Select the packing ratio and agree on it with all workers",
		Long: `Ratio profiles candidate packing ratios on CORPUS, picks the largest ratio
that packs without backlog and, with a collective backend configured, waits
for every worker and adopts the minimum of all choices.

Every worker of a run must execute this command with the same run name and
world size, or the rendezvous never completes.`,
		Args: cobra.ExactArgs(1),
		RunE: ratioHandler,
	}
}

func ratioHandler(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	corpus, err := readCorpus(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Collective.Timeout)
	defer cancel()

	var gatherer collective.Gatherer
	if cfg.Collective.Backend != "none" {
		store, err := openStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		gatherer, err = newGatherer(ctx, cfg, store, logger.WithWorker(cfg.Collective.Rank).Logger)
		if err != nil {
			return err
		}
	}

	selected, err := ratio.Select(ctx, newProfiler(cfg, corpus).Profile, gatherer, ratio.Config{
		Capacity:        cfg.Packer.Capacity,
		DeviceBatchSize: cfg.Packer.TargetBins,
		NumRatios:       cfg.Ratio.NumRatios,
		Logger:          logger.Logger,
	})
	if err != nil {
		return err
	}

	width, err := ratio.RawBatchSize(selected, cfg.Packer.TargetBins)
	if err != nil {
		return err
	}

	table := newTable(cmd.OutOrStdout(), "RATIO", "RAW BATCH", "TARGET BINS", "CAPACITY")
	table.Append([]string{
		fmt.Sprintf("%.1f", selected),
		fmt.Sprint(width),
		fmt.Sprint(cfg.Packer.TargetBins),
		fmt.Sprint(cfg.Packer.Capacity),
	})
	table.Render()
	return nil
}
