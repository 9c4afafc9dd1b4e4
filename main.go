package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/LucasBadico/mailbook/cmd"
	"github.com/LucasBadico/mailbook/config"
	"github.com/LucasBadico/mailbook/runner"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "mailbook",
		Short: "Export mailbox messages as numbered Markdown chapters",
		RunE: func(c *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(c)
			if err != nil {
				return err
			}

			logger, cleanup, err := setupLogger(cfg)
			if err != nil {
				return err
			}
			defer func() {
				_ = cleanup()
			}()

			slog.SetDefault(logger)
			logger.Info("starting mailbook", "source", cfg.Source, "query", cfg.Query, "out", cfg.OutDir, "max", cfg.Max)

			return run(c, cfg, logger)
		},
	}

	if err := config.RegisterFlags(rootCmd); err != nil {
		fmt.Fprintf(os.Stderr, "failed to register CLI flags: %v\n", err)
		os.Exit(1)
	}
	rootCmd.AddCommand(cmd.NewListCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(c *cobra.Command, cfg config.Config, logger *slog.Logger) error {
	ctx := c.Context()

	client, closeClient, sourceTag, err := cmd.NewSourceClient(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeClient(); err != nil {
			logger.Warn("close source client", "err", err)
		}
	}()

	r, err := runner.New(runner.Options{
		Config:    cfg,
		Client:    client,
		Logger:    logger,
		SourceTag: sourceTag,
	})
	if err != nil {
		return fmt.Errorf("runner.New: %w", err)
	}

	return r.Run(ctx)
}

func setupLogger(cfg config.Config) (*slog.Logger, func() error, error) {
	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)

	switch cfg.LogLevel {
	case "debug":
		level.Set(slog.LevelDebug)
	case "info":
		level.Set(slog.LevelInfo)
	case "warn":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	}

	opts := &slog.HandlerOptions{Level: level}
	cleanup := func() error { return nil }

	if cfg.LogDir != "" {
		if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
			return nil, cleanup, err
		}

		logFilePath := filepath.Join(cfg.LogDir, fmt.Sprintf("mailbook-%s.log", time.Now().Format("20060102T150405")))
		file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, cleanup, err
		}

		handler := slog.NewTextHandler(io.MultiWriter(os.Stdout, file), opts)
		cleanup = func() error {
			return file.Close()
		}
		return slog.New(handler), cleanup, nil
	}

	handler := slog.NewTextHandler(os.Stdout, opts)
	return slog.New(handler), cleanup, nil
}
