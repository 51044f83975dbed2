package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/hupe1980/seqpack"
	"github.com/hupe1980/seqpack/codec"
	"github.com/hupe1980/seqpack/internal/config"
	"github.com/hupe1980/seqpack/ratio"
)

func newPackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pack CORPUS",
		Short: "Pack a corpus into fixed-width batches",
		Long: `Pack reads samples from CORPUS (JSON Lines, "-" for stdin), feeds them to a
Packer in raw batches and writes one packed batch per line.

With checkpoint.enabled the packer state is restored before packing and saved
afterwards. The state holds the leftover bins and statistics, not a position in
CORPUS: feed each run the next shard and its samples fill the bins the previous
run left behind.`,
		Args: cobra.ExactArgs(1),
		RunE: packHandler,
	}
	cmd.Flags().StringP("output", "o", "-", "Output file for packed batches (- for stdout)")
	return cmd
}

func rawBatchSize(cfg *config.Config) (int, error) {
	if cfg.Packer.RawBatchSize > 0 {
		return cfg.Packer.RawBatchSize, nil
	}
	if cfg.Ratio.Value > 0 {
		return ratio.RawBatchSize(cfg.Ratio.Value, cfg.Packer.TargetBins)
	}
	return cfg.Packer.TargetBins, nil
}

func packHandler(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	metrics := &seqpack.BasicMetricsCollector{Target: cfg.Packer.TargetBins}
	opts, err := packerOptions(cfg, logger, metrics)
	if err != nil {
		return err
	}
	packer, err := seqpack.NewPacker(cfg.Packer.Capacity, cfg.Packer.TargetBins, opts...)
	if err != nil {
		return err
	}

	var saveCheckpoint func() error
	if cfg.Checkpoint.Enabled {
		store, err := openStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		cs, err := newCheckpointStore(store, cfg.Checkpoint)
		if err != nil {
			return err
		}
		restored, err := cs.Restore(ctx, packer)
		if err != nil {
			return fmt.Errorf("failed to restore checkpoint: %w", err)
		}
		logger.Info("checkpoint", "restored", restored)

		saveCheckpoint = func() error {
			id, err := cs.Save(ctx, packer.State())
			if err != nil {
				return err
			}
			pruned, err := cs.Prune(ctx, cfg.Checkpoint.Keep)
			if err != nil {
				return err
			}
			logger.Info("checkpoint saved", "id", id, "pruned", pruned)
			return nil
		}
	}

	corpus, err := readCorpus(args[0])
	if err != nil {
		return err
	}
	width, err := rawBatchSize(cfg)
	if err != nil {
		return err
	}

	output, _ := cmd.Flags().GetString("output")
	var w io.Writer = cmd.OutOrStdout()
	if output != "-" {
		f, err := os.Create(output) //nolint:gosec // G304: output path is user input
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		w = f
	}
	bw := bufio.NewWriter(w)

	for start := 0; start < len(corpus); start += width {
		if err := ctx.Err(); err != nil {
			return err
		}

		out, err := packer.PackSamples(corpus[start:min(start+width, len(corpus))])
		if err != nil {
			return err
		}
		if out.Rows() == 0 {
			continue
		}
		data, err := codec.Default.Marshal(out)
		if err != nil {
			return err
		}
		if _, err := bw.Write(append(data, '\n')); err != nil {
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		return err
	}

	if saveCheckpoint != nil {
		if err := saveCheckpoint(); err != nil {
			return fmt.Errorf("failed to save checkpoint: %w", err)
		}
	}

	printPackSummary(cmd.ErrOrStderr(), packer, metrics.GetStats(), width)
	return nil
}

func printPackSummary(w io.Writer, p *seqpack.Packer, m seqpack.BasicMetricsStats, width int) {
	stats := p.Stats()
	table := newTable(w, "METRIC", "VALUE")
	table.AppendBulk([][]string{
		{"raw batch size", strconv.Itoa(width)},
		{"calls", strconv.FormatInt(stats.Calls, 10)},
		{"rows", strconv.FormatInt(stats.EmittedRows, 10)},
		{"short batches", strconv.FormatInt(m.ShortBatches, 10)},
		{"data tokens", strconv.FormatInt(stats.DataTokens, 10)},
		{"emitted tokens", strconv.FormatInt(stats.EmittedTokens, 10)},
		{"padding tokens", strconv.FormatInt(stats.PaddingTokens, 10)},
		{"dropped tokens", strconv.FormatInt(stats.DroppedTokens, 10)},
		{"leftover bins", strconv.Itoa(len(p.Leftover()))},
		{"waste", formatFraction(stats.Waste())},
		{"efficiency", formatFraction(stats.Efficiency())},
		{"backlog", formatFraction(stats.Backlog())},
	})
	table.Render()
}

func formatFraction(f float64) string {
	return strconv.FormatFloat(f*100, 'f', 2, 64) + "%"
}
