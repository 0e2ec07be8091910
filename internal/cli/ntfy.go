package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/devkit/internal/clients/ntfy"
	"github.com/vietddude/devkit/internal/core/domain"
)

var ntfyOpts struct {
	title        string
	message      string
	priority     string
	tags         []string
	emoji        string
	click        string
	attach       string
	topic        string
	baseURL      string
	apiKey       string
	timeout      time.Duration
	dedupe       bool
	dedupeKey    string
	cooldown     time.Duration
	includeCwd   string
	noCwd        bool
	stdinContext bool
}

var ntfyCmd = &cobra.Command{
	Use:   "ntfy",
	Short: "Send a push notification through ntfy",
	Example: `  devkit ntfy --title "Build" --message "done" --priority high --tags ci --emoji rocket
  echo '{"cwd":"/work/app"}' | devkit ntfy --title Done --message ok --stdin-context --dedupe`,
	Args: cobra.NoArgs,
	RunE: runNtfy,
}

func init() {
	f := ntfyCmd.Flags()
	f.StringVarP(&ntfyOpts.title, "title", "t", "", "notification title (required)")
	f.StringVarP(&ntfyOpts.message, "message", "m", "", "notification body (required)")
	f.StringVarP(&ntfyOpts.priority, "priority", "p", string(ntfy.PriorityDefault), "min, low, default, high, max or urgent")
	f.StringSliceVar(&ntfyOpts.tags, "tags", nil, "comma separated tags")
	f.StringVar(&ntfyOpts.emoji, "emoji", "", "emoji shortcode appended as a tag")
	f.StringVar(&ntfyOpts.click, "click", "", "URL opened when the notification is clicked")
	f.StringVar(&ntfyOpts.attach, "attach", "", "URL of an attachment")
	f.StringVar(&ntfyOpts.topic, "topic", "", "topic, overrides ntfy.topic")
	f.StringVar(&ntfyOpts.baseURL, "base-url", "", "server URL, overrides ntfy.base_url")
	f.StringVar(&ntfyOpts.apiKey, "api-key", "", "access token, overrides ntfy.api_key")
	f.DurationVar(&ntfyOpts.timeout, "timeout", 0, "request timeout, overrides ntfy.timeout")
	f.BoolVar(&ntfyOpts.dedupe, "dedupe", false, "skip the message if it was sent within the cooldown")
	f.StringVar(&ntfyOpts.dedupeKey, "dedupe-key", "", "dedupe key, defaults to title:message")
	f.DurationVar(&ntfyOpts.cooldown, "cooldown", 0, "dedupe cooldown, overrides ntfy.cooldown")
	f.StringVar(&ntfyOpts.includeCwd, "include-cwd", string(ntfy.IncludeAuto), "append hook context: auto, yes or no")
	f.BoolVar(&ntfyOpts.noCwd, "no-cwd", false, "never append hook context")
	f.BoolVar(&ntfyOpts.stdinContext, "stdin-context", false, "read hook context JSON from stdin")

	_ = ntfyCmd.MarkFlagRequired("title")
	_ = ntfyCmd.MarkFlagRequired("message")

	rootCmd.AddCommand(ntfyCmd)
}

func runNtfy(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	mode := ntfy.IncludeCwd(strings.ToLower(ntfyOpts.includeCwd))
	switch mode {
	case ntfy.IncludeAuto, ntfy.IncludeYes, ntfy.IncludeNo:
	default:
		return fmt.Errorf("invalid --include-cwd %q, want auto, yes or no", ntfyOpts.includeCwd)
	}
	if ntfyOpts.noCwd {
		mode = ntfy.IncludeNo
	}

	var hc domain.HookContext
	if ntfyOpts.stdinContext {
		hc = ntfy.ReadHookContext(cmd.InOrStdin())
	}
	home, _ := os.UserHomeDir()

	if ntfyOpts.cooldown > 0 {
		cfg.Ntfy.Cooldown = ntfyOpts.cooldown
	}

	a, err := getApp(ctx)
	if err != nil {
		return err
	}

	msg := ntfy.Message{
		Title:    ntfyOpts.title,
		Message:  ntfy.EnhanceMessage(ntfyOpts.message, hc, mode, home),
		Priority: ntfy.Priority(ntfyOpts.priority),
		Tags:     ntfyOpts.tags,
		Emoji:    ntfyOpts.emoji,
		Click:    ntfyOpts.click,
		Attach:   ntfyOpts.attach,
		Topic:    ntfyOpts.topic,
		BaseURL:  ntfyOpts.baseURL,
		APIKey:   ntfyOpts.apiKey,
		Timeout:  ntfyOpts.timeout,
	}

	var resp *ntfy.Response
	if ntfyOpts.dedupe || ntfyOpts.dedupeKey != "" {
		resp, err = a.Ntfy.SendWithDedupe(ctx, msg, ntfyOpts.dedupeKey)
	} else {
		resp, err = a.Ntfy.Send(ctx, msg)
	}
	if errors.Is(err, ntfy.ErrSkipped) {
		slog.Info("Skipped duplicate notification", "reason", err)
		return nil
	}
	if err != nil {
		return err
	}

	return printJSON(cmd.OutOrStdout(), nil, resp)
}
