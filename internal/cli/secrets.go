package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vietddude/devkit/internal/infra/secrets"
)

var secretValue string

var secretsCmd = &cobra.Command{
	Use:   "secrets",
	Short: "Manage credentials in the OS keyring",
}

var secretsSetCmd = &cobra.Command{
	Use:   "set <service> <user>",
	Short: "Store a credential, referenced in config as keyring:<service>/<user>",
	Example: `  printf 'key1;key2' | devkit secrets set devkit serper
  # then in devkit.yaml: serper.api_keys: keyring:devkit/serper`,
	Args: cobra.ExactArgs(2),
	RunE: runSecretsSet,
}

func init() {
	secretsSetCmd.Flags().StringVar(&secretValue, "value", "", "credential value, read from stdin when omitted")

	secretsCmd.AddCommand(secretsSetCmd)
	rootCmd.AddCommand(secretsCmd)
}

func runSecretsSet(cmd *cobra.Command, args []string) error {
	value := secretValue
	if value == "" {
		data, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), 1<<16))
		if err != nil {
			return fmt.Errorf("failed to read credential: %w", err)
		}
		value = strings.TrimRight(string(data), "\r\n")
	}
	if strings.TrimSpace(value) == "" {
		return errors.New("credential is empty")
	}

	service, user := args[0], args[1]
	if err := secrets.Store(service, user, value); err != nil {
		return err
	}
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "Stored keyring:%s/%s\n", service, user)
	return err
}
