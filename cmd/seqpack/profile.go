package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/hupe1980/seqpack"
	"github.com/hupe1980/seqpack/internal/config"
	"github.com/hupe1980/seqpack/ratio"
)

func newProfileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profile CORPUS",
		Short: "Profile candidate packing ratios on a corpus",
		Args:  cobra.ExactArgs(1),
		RunE:  profileHandler,
	}
}

func newProfiler(cfg *config.Config, corpus []seqpack.Sample) *ratio.Profiler {
	return ratio.NewProfiler(corpus,
		ratio.WithConcurrency(cfg.Ratio.Concurrency),
		ratio.WithMaxLeftoverBins(cfg.Packer.MaxLeftoverBins),
	)
}

func profileHandler(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	corpus, err := readCorpus(args[0])
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	printCorpusStats(w, ratio.Summarize(corpus))
	fmt.Fprintln(w)

	maxRatio := max(1, float64(cfg.Packer.Capacity)/100)
	ratios := ratio.Sweep(1, maxRatio, cfg.Ratio.NumRatios, cfg.Packer.TargetBins)

	results, err := newProfiler(cfg, corpus).Profile(cmd.Context(), cfg.Packer.Capacity, cfg.Packer.TargetBins, ratios)
	if err != nil {
		return err
	}
	chosen, fallback, err := ratio.Choose(results)
	if err != nil {
		return err
	}

	table := newTable(w, "RATIO", "RAW BATCH", "PADDING", "WASTE", "EMPTY", "")
	for _, r := range results {
		width, err := ratio.RawBatchSize(r.Ratio, cfg.Packer.TargetBins)
		if err != nil {
			return err
		}
		mark := ""
		if r.Ratio == chosen {
			mark = "<- selected"
			if fallback {
				mark = "<- fallback"
			}
		}
		table.Append([]string{
			strconv.FormatFloat(r.Ratio, 'f', 1, 64),
			strconv.Itoa(width),
			formatFraction(r.Padding),
			formatFraction(r.Waste),
			strconv.FormatBool(r.Empty),
			mark,
		})
	}
	table.Render()
	return nil
}

func printCorpusStats(w io.Writer, s ratio.CorpusStats) {
	table := newTable(w, "SAMPLES", "TOKENS", "MEAN", "STDDEV", "MEDIAN", "P90", "MAX")
	table.Append([]string{
		strconv.Itoa(s.Samples),
		strconv.FormatInt(s.Tokens, 10),
		strconv.FormatFloat(s.Mean, 'f', 1, 64),
		strconv.FormatFloat(s.StdDev, 'f', 1, 64),
		strconv.FormatFloat(s.Median, 'f', 0, 64),
		strconv.FormatFloat(s.P90, 'f', 0, 64),
		strconv.FormatFloat(s.Max, 'f', 0, 64),
	})
	table.Render()
}
