package cli

import (
	"log/slog"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the state schema to the sqlite or postgres backend",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := getApp(cmd.Context())
		if err != nil {
			return err
		}
		if err := a.Migrate(cmd.Context()); err != nil {
			return err
		}
		slog.Info("State schema is up to date", "backend", cfg.State.Backend)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
