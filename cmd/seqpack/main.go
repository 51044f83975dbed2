// Command seqpack packs tokenized samples into fixed-width training batches.
//
//	seqpack profile corpus.jsonl      profile candidate packing ratios
//	seqpack ratio corpus.jsonl        select and reconcile the packing ratio
//	seqpack pack corpus.jsonl         pack a corpus into batches
//	seqpack checkpoint list|show|prune
//
// Corpora are JSON Lines files with one {"input_ids": [...], "labels": [...]}
// object per sample.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cobra.EnableCommandSorting = false

	rootCmd := &cobra.Command{
		Use:           "seqpack",
		Short:         "Sequence packing for language model training",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Path to the config file (default ./config.yaml)")
	flags.Int("capacity", 0, "Bin capacity (maximum sequence length)")
	flags.Int("target-bins", 0, "Packed rows per batch (device batch size)")
	flags.String("log-level", "", "Log level: debug, info, warn, error")
	flags.String("log-format", "", "Log format: text or json")

	rootCmd.AddCommand(
		newProfileCmd(),
		newRatioCmd(),
		newPackCmd(),
		newCheckpointCmd(),
	)

	appendEnvDocs(rootCmd)
	return rootCmd
}

func appendEnvDocs(cmd *cobra.Command) {
	envUsage := `
Environment Variables:
      SEQPACK_<SECTION>_<KEY>    Override any config key, e.g. SEQPACK_PACKER_CAPACITY
      AWS_*                      AWS credentials and region for the s3 store and dynamo backend
`
	cmd.SetUsageTemplate(cmd.UsageTemplate() + envUsage)
}
