package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/LucasBadico/mailbook/config"
	"github.com/LucasBadico/mailbook/gmail"
	"github.com/LucasBadico/mailbook/imapsource"
	"github.com/LucasBadico/mailbook/mailbox"
)

// NewSourceClient builds the mailbox backend selected by cfg.Source and
// returns it together with a close func and the source tag written into
// document front matter. The close func is always non-nil.
func NewSourceClient(ctx context.Context, cfg config.Config, logger *slog.Logger) (mailbox.Client, func() error, string, error) {
	switch cfg.Source {
	case config.SourceGmail:
		client, err := gmail.NewClient(ctx, gmail.Options{
			CredentialsPath: cfg.CredentialsPath,
			TokenPath:       cfg.TokenPath,
		})
		if err != nil {
			return nil, nil, "", fmt.Errorf("gmail.NewClient: %w", err)
		}
		return client, func() error { return nil }, gmail.SourceTag, nil
	case config.SourceIMAP:
		client, err := imapsource.Dial(imapsource.Options{
			Host:               cfg.IMAPHost,
			Port:               cfg.IMAPPort,
			Username:           cfg.IMAPUser,
			Password:           cfg.IMAPPass,
			UseTLS:             cfg.UseTLS,
			InsecureSkipVerify: cfg.InsecureSkipVerify,
			Folder:             cfg.Folder,
		}, logger)
		if err != nil {
			return nil, nil, "", fmt.Errorf("imapsource.Dial: %w", err)
		}
		return client, client.Close, imapsource.SourceTag, nil
	default:
		return nil, nil, "", fmt.Errorf("unknown source %q", cfg.Source)
	}
}
