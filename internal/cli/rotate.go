package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vietddude/devkit/internal/core/domain"
	"github.com/vietddude/devkit/internal/redact"
)

var (
	rotateGroup string
	rotateKeys  string
	rotateEnv   string
)

var rotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Drive and inspect credential rotation",
}

var rotateNextCmd = &cobra.Command{
	Use:     "next",
	Short:   "Select the next credential of a group and print it anonymized",
	Example: `  devkit rotate next --group serper --env SERPER_API_KEYS`,
	Args:    cobra.NoArgs,
	RunE:    runRotateNext,
}

var rotateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the index last handed out for a group",
	Args:  cobra.NoArgs,
	RunE:  runRotateStatus,
}

func init() {
	for _, c := range []*cobra.Command{rotateNextCmd, rotateStatusCmd} {
		c.Flags().StringVarP(&rotateGroup, "group", "g", string(domain.DefaultGroup), "rotation group")
	}
	rotateNextCmd.Flags().StringVar(&rotateKeys, "keys", "", "credentials separated by ';' or newlines")
	rotateNextCmd.Flags().StringVar(&rotateEnv, "env", "", "environment variable holding the credentials")
	rotateNextCmd.MarkFlagsMutuallyExclusive("keys", "env")

	rotateCmd.AddCommand(rotateNextCmd, rotateStatusCmd)
	rootCmd.AddCommand(rotateCmd)
}

func runRotateNext(cmd *cobra.Command, args []string) error {
	raw := rotateKeys
	if rotateEnv != "" {
		raw = os.Getenv(rotateEnv)
	}
	keys := domain.SplitCredentials(raw)
	if len(keys) == 0 {
		return errors.New("no credentials given, use --keys or --env")
	}

	a, err := getApp(cmd.Context())
	if err != nil {
		return err
	}
	a.Redactor.Add(keys...)

	key := a.Rotator.Next(cmd.Context(), keys, rotateGroup)
	_, err = fmt.Fprintln(cmd.OutOrStdout(), redact.Anonymize(key, redact.DefaultVisible))
	return err
}

func runRotateStatus(cmd *cobra.Command, args []string) error {
	a, err := getApp(cmd.Context())
	if err != nil {
		return err
	}

	idx := a.Rotator.Current(cmd.Context(), rotateGroup)
	if idx < 0 {
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\tunset\n", rotateGroup)
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", rotateGroup, idx)
	return err
}
