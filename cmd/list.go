package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/k3a/html2text"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/LucasBadico/mailbook/config"
	"github.com/LucasBadico/mailbook/document"
	"github.com/LucasBadico/mailbook/extract"
	"github.com/LucasBadico/mailbook/mailbox"
	"github.com/LucasBadico/mailbook/model"
)

const snippetLimit = 80

// NewListCommand returns the "list" subcommand. It runs the same query
// as an export, prints one line per matching message and writes no
// files.
func NewListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List matching messages without exporting them",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cmd)
			if err != nil {
				return err
			}
			return runList(cmd, cfg)
		},
	}

	if err := config.RegisterFlags(cmd); err != nil {
		panic(err)
	}
	return cmd
}

func runList(cmd *cobra.Command, cfg config.Config) error {
	ctx := cmd.Context()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	client, closeClient, _, err := NewSourceClient(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		_ = closeClient()
	}()

	limiter := rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1)

	ids, err := mailbox.ListAll(ctx, client, cfg.Query, cfg.Max, limiter)
	if err != nil {
		return fmt.Errorf("list messages: %w", err)
	}
	if len(ids) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "no messages match %q\n", cfg.Query)
		return nil
	}

	results := mailbox.FetchAll(ctx, client, ids, limiter, logger, nil)
	msgs := mailbox.Successes(results)
	mailbox.SortByReceipt(msgs)

	out := cmd.OutOrStdout()
	for i, msg := range msgs {
		date := document.FormatReceiptTimestamp(msg.InternalDate)
		if date == "" {
			date = "unknown date"
		}
		subject := msg.Header("Subject")
		if subject == "" {
			subject = fmt.Sprintf("Untitled %d", i+1)
		}
		fmt.Fprintf(out, "%3d  %s  %s  %s\n", i+1, date, msg.Header("From"), subject)
		if s := snippet(msg); s != "" {
			fmt.Fprintf(out, "     %s\n", s)
		}
	}
	fmt.Fprintf(out, "%d message(s)\n", len(msgs))
	return nil
}

// snippet renders the first line of the preferred body, plain text for
// HTML bodies included.
func snippet(msg model.Message) string {
	body := extract.BestBody(msg.Payload)
	text := body.Text
	if body.HTML != "" {
		text = html2text.HTML2Text(body.HTML)
	}

	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) > snippetLimit {
		text = string(runes[:snippetLimit]) + "…"
	}
	return text
}
