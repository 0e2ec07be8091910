package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/devkit/internal/dedupe"
)

var (
	dedupeCooldown time.Duration
	dedupeAll      bool
)

var dedupeCmd = &cobra.Command{
	Use:   "dedupe",
	Short: "Inspect and reset duplicate suppression state",
}

var dedupeCheckCmd = &cobra.Command{
	Use:   "check <key>",
	Short: "Check a key against the gate, recording it when admitted",
	Args:  cobra.ExactArgs(1),
	RunE:  runDedupeCheck,
}

var dedupeRecordCmd = &cobra.Command{
	Use:   "record <key>",
	Short: "Mark a key as just sent without checking it",
	Args:  cobra.ExactArgs(1),
	RunE:  runDedupeRecord,
}

var dedupeClearCmd = &cobra.Command{
	Use:   "clear [key]",
	Short: "Forget a key, or every key with --all",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDedupeClear,
}

func init() {
	dedupeCheckCmd.Flags().DurationVar(&dedupeCooldown, "cooldown", dedupe.DefaultCooldown, "suppression window")
	dedupeClearCmd.Flags().BoolVar(&dedupeAll, "all", false, "clear every key")

	dedupeCmd.AddCommand(dedupeCheckCmd, dedupeRecordCmd, dedupeClearCmd)
	rootCmd.AddCommand(dedupeCmd)
}

func runDedupeCheck(cmd *cobra.Command, args []string) error {
	a, err := getApp(cmd.Context())
	if err != nil {
		return err
	}

	res := a.Gate.Check(cmd.Context(), args[0], dedupeCooldown)
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", dedupe.HashKey(args[0]), res.Message)
	return err
}

func runDedupeRecord(cmd *cobra.Command, args []string) error {
	a, err := getApp(cmd.Context())
	if err != nil {
		return err
	}

	a.Gate.Record(cmd.Context(), args[0])
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s\n", dedupe.HashKey(args[0]))
	return err
}

func runDedupeClear(cmd *cobra.Command, args []string) error {
	switch {
	case dedupeAll && len(args) > 0:
		return errors.New("pass a key or --all, not both")
	case !dedupeAll && len(args) == 0:
		return errors.New("a key or --all is required")
	}

	a, err := getApp(cmd.Context())
	if err != nil {
		return err
	}

	if dedupeAll {
		a.Gate.ClearAll(cmd.Context())
		_, err = fmt.Fprintln(cmd.OutOrStdout(), "Cleared all dedupe records")
		return err
	}
	a.Gate.Clear(cmd.Context(), args[0])
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", dedupe.HashKey(args[0]))
	return err
}
