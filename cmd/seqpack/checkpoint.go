package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/hupe1980/seqpack/blobstore"
	"github.com/hupe1980/seqpack/checkpoint"
)

func newCheckpointCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Inspect and prune packer checkpoints",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List checkpoints",
		Args:  cobra.NoArgs,
		RunE:  checkpointListHandler,
	}

	showCmd := &cobra.Command{
		Use:   "show [ID]",
		Short: "Show the current or a specific checkpoint",
		Args:  cobra.MaximumNArgs(1),
		RunE:  checkpointShowHandler,
	}

	pruneCmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove old checkpoints",
		Args:  cobra.NoArgs,
		RunE:  checkpointPruneHandler,
	}
	pruneCmd.Flags().Int("keep", 0, "Checkpoints to keep (default checkpoint.keep)")

	cmd.AddCommand(listCmd, showCmd, pruneCmd)
	return cmd
}

func openCheckpointStore(cmd *cobra.Command) (*checkpoint.Store, int, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, 0, err
	}
	store, err := openStore(cmd.Context(), cfg.Store)
	if err != nil {
		return nil, 0, err
	}
	cs, err := newCheckpointStore(store, cfg.Checkpoint)
	if err != nil {
		return nil, 0, err
	}
	return cs, cfg.Checkpoint.Keep, nil
}

func checkpointListHandler(cmd *cobra.Command, _ []string) error {
	cs, _, err := openCheckpointStore(cmd)
	if err != nil {
		return err
	}
	ids, err := cs.List(cmd.Context())
	if err != nil {
		return err
	}

	table := newTable(cmd.OutOrStdout(), "ID", "NAME")
	for _, id := range ids {
		table.Append([]string{strconv.FormatUint(id, 10), checkpoint.FileName(id)})
	}
	table.Render()
	return nil
}

func checkpointShowHandler(cmd *cobra.Command, args []string) error {
	cs, _, err := openCheckpointStore(cmd)
	if err != nil {
		return err
	}

	var id uint64
	if len(args) == 1 {
		id, err = strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid checkpoint id %q: %w", args[0], err)
		}
	}

	st, err := cs.LoadVersion(cmd.Context(), id)
	if errors.Is(err, blobstore.ErrNotFound) {
		return errors.New("no checkpoint found")
	}
	if err != nil {
		return err
	}

	held := 0
	for _, b := range st.Leftover {
		held += b.Used()
	}

	table := newTable(cmd.OutOrStdout(), "FIELD", "VALUE")
	table.AppendBulk([][]string{
		{"capacity", strconv.Itoa(st.Capacity)},
		{"target bins", strconv.Itoa(st.TargetBins)},
		{"leftover bins", strconv.Itoa(len(st.Leftover))},
		{"leftover tokens", strconv.Itoa(held)},
		{"calls", strconv.FormatInt(st.Stats.Calls, 10)},
		{"rows", strconv.FormatInt(st.Stats.EmittedRows, 10)},
		{"waste", formatFraction(st.Stats.Waste())},
		{"backlog", formatFraction(st.Stats.Backlog())},
	})
	table.Render()
	return nil
}

func checkpointPruneHandler(cmd *cobra.Command, _ []string) error {
	cs, keep, err := openCheckpointStore(cmd)
	if err != nil {
		return err
	}
	if k, _ := cmd.Flags().GetInt("keep"); k > 0 {
		keep = k
	}

	removed, err := cs.Prune(cmd.Context(), keep)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "removed %d checkpoint(s)\n", removed)
	return nil
}
