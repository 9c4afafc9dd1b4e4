package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// Source selects the remote mailbox backend.
const (
	SourceGmail = "gmail"
	SourceIMAP  = "imap"
)

// Config captures all command-line options required to run the exporter.
type Config struct {
	Query      string
	OutDir     string
	Max        int
	Prefix     string
	Source     string
	MboxPath   string
	LogLevel   string
	LogDir     string
	RatePerSec float64

	// Gmail backend
	CredentialsPath string
	TokenPath       string

	// IMAP backend
	IMAPHost           string
	IMAPPort           int
	IMAPUser           string
	IMAPPass           string
	UseTLS             bool
	InsecureSkipVerify bool
	Folder             string

	// Local post-fetch filters
	IncludeHeader []string
	IncludeBody   []string
	ExcludeHeader []string
	ExcludeBody   []string
}

// RegisterFlags attaches all CLI flags to the provided command.
func RegisterFlags(cmd *cobra.Command) error {
	flags := cmd.Flags()
	flags.String("query", "", `Mailbox search filter, e.g. 'subject:"Chapter" from:me newer_than:1y'`)
	flags.String("out", "chapters_md", "Output directory for the Markdown documents")
	flags.Int("max", 500, "Maximum number of messages to export")
	flags.String("prefix", "", "Optional filename prefix")
	flags.String("source", SourceGmail, "Mailbox backend: gmail or imap")
	flags.String("mbox", "", "Optional mbox file to archive raw messages into")
	flags.String("credentials", "credentials.json", "OAuth desktop client secret file (gmail source)")
	flags.String("token", "token.json", "Cached OAuth user token file (gmail source)")
	flags.String("imap-host", "", "IMAP server hostname (imap source)")
	flags.Int("imap-port", 993, "IMAP server port")
	flags.String("imap-user", "", "IMAP username")
	flags.String("imap-pass", "", "IMAP password (falls back to IMAP_PASS env var)")
	flags.Bool("use-tls", true, "Use TLS for the IMAP connection")
	flags.Bool("insecure-skip-verify", false, "Skip TLS certificate verification (not recommended)")
	flags.String("folder", "INBOX", "IMAP folder to export from")
	flags.Float64("rate", 10, "Remote calls per second limit")
	flags.String("log-level", "info", "Logging level: debug, info, warn, error")
	flags.String("log-dir", "", "Directory for log files (optional)")
	flags.StringArray("include-header", nil, "Regex allow-list applied to message headers (mutually exclusive with exclude flags)")
	flags.StringArray("include-body", nil, "Regex allow-list applied to extracted bodies (mutually exclusive with exclude flags)")
	flags.StringArray("exclude-header", nil, "Regex block-list applied to message headers (mutually exclusive with include flags)")
	flags.StringArray("exclude-body", nil, "Regex block-list applied to extracted bodies (mutually exclusive with include flags)")

	return cmd.MarkFlagRequired("query")
}

// LoadConfig converts the parsed Cobra flags into a Config struct with
// validation.
func LoadConfig(cmd *cobra.Command) (Config, error) {
	flags := cmd.Flags()

	query, err := flags.GetString("query")
	if err != nil {
		return Config{}, err
	}
	outDir, err := flags.GetString("out")
	if err != nil {
		return Config{}, err
	}
	max, err := flags.GetInt("max")
	if err != nil {
		return Config{}, err
	}
	prefix, err := flags.GetString("prefix")
	if err != nil {
		return Config{}, err
	}
	source, err := flags.GetString("source")
	if err != nil {
		return Config{}, err
	}
	mboxPath, err := flags.GetString("mbox")
	if err != nil {
		return Config{}, err
	}
	credentialsPath, err := flags.GetString("credentials")
	if err != nil {
		return Config{}, err
	}
	tokenPath, err := flags.GetString("token")
	if err != nil {
		return Config{}, err
	}
	imapHost, err := flags.GetString("imap-host")
	if err != nil {
		return Config{}, err
	}
	imapPort, err := flags.GetInt("imap-port")
	if err != nil {
		return Config{}, err
	}
	imapUser, err := flags.GetString("imap-user")
	if err != nil {
		return Config{}, err
	}
	imapPass, err := flags.GetString("imap-pass")
	if err != nil {
		return Config{}, err
	}
	useTLS, err := flags.GetBool("use-tls")
	if err != nil {
		return Config{}, err
	}
	insecureSkipVerify, err := flags.GetBool("insecure-skip-verify")
	if err != nil {
		return Config{}, err
	}
	folder, err := flags.GetString("folder")
	if err != nil {
		return Config{}, err
	}
	ratePerSec, err := flags.GetFloat64("rate")
	if err != nil {
		return Config{}, err
	}
	logLevel, err := flags.GetString("log-level")
	if err != nil {
		return Config{}, err
	}
	logDir, err := flags.GetString("log-dir")
	if err != nil {
		return Config{}, err
	}
	includeHeader, err := flags.GetStringArray("include-header")
	if err != nil {
		return Config{}, err
	}
	includeBody, err := flags.GetStringArray("include-body")
	if err != nil {
		return Config{}, err
	}
	excludeHeader, err := flags.GetStringArray("exclude-header")
	if err != nil {
		return Config{}, err
	}
	excludeBody, err := flags.GetStringArray("exclude-body")
	if err != nil {
		return Config{}, err
	}

	if imapPass == "" {
		imapPass = os.Getenv("IMAP_PASS")
	}

	logLevel = strings.ToLower(logLevel)
	if logLevel == "warning" {
		logLevel = "warn"
	}

	cfg := Config{
		Query:              query,
		OutDir:             outDir,
		Max:                max,
		Prefix:             prefix,
		Source:             strings.ToLower(source),
		MboxPath:           mboxPath,
		CredentialsPath:    credentialsPath,
		TokenPath:          tokenPath,
		IMAPHost:           imapHost,
		IMAPPort:           imapPort,
		IMAPUser:           imapUser,
		IMAPPass:           imapPass,
		UseTLS:             useTLS,
		InsecureSkipVerify: insecureSkipVerify,
		Folder:             folder,
		RatePerSec:         ratePerSec,
		LogLevel:           logLevel,
		LogDir:             logDir,
		IncludeHeader:      includeHeader,
		IncludeBody:        includeBody,
		ExcludeHeader:      excludeHeader,
		ExcludeBody:        excludeBody,
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func validateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.Query) == "" {
		return fmt.Errorf("--query is required")
	}
	if cfg.Max <= 0 {
		return fmt.Errorf("--max must be positive")
	}
	if cfg.OutDir == "" {
		return fmt.Errorf("--out is required")
	}
	if cfg.RatePerSec <= 0 {
		return fmt.Errorf("--rate must be positive")
	}

	switch cfg.Source {
	case SourceGmail:
		if cfg.CredentialsPath == "" {
			return fmt.Errorf("--credentials is required for the gmail source")
		}
		if _, err := os.Stat(cfg.CredentialsPath); err != nil {
			return fmt.Errorf("OAuth credentials file %q not found; download the desktop client secret first", cfg.CredentialsPath)
		}
		if cfg.TokenPath == "" {
			return fmt.Errorf("--token is required for the gmail source")
		}
	case SourceIMAP:
		if cfg.IMAPHost == "" {
			return fmt.Errorf("--imap-host is required for the imap source")
		}
		if cfg.IMAPUser == "" {
			return fmt.Errorf("--imap-user is required for the imap source")
		}
		if cfg.IMAPPass == "" {
			return fmt.Errorf("IMAP password must be provided via --imap-pass or IMAP_PASS env var")
		}
		if cfg.IMAPPort <= 0 || cfg.IMAPPort > 65535 {
			return fmt.Errorf("--imap-port must be between 1 and 65535")
		}
	default:
		return fmt.Errorf("invalid --source: %s", cfg.Source)
	}

	includeActive := len(cfg.IncludeHeader) > 0 || len(cfg.IncludeBody) > 0
	excludeActive := len(cfg.ExcludeHeader) > 0 || len(cfg.ExcludeBody) > 0
	if includeActive && excludeActive {
		return fmt.Errorf("include and exclude flags are mutually exclusive")
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid --log-level: %s", cfg.LogLevel)
	}

	return nil
}
