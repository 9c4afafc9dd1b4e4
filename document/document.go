// Package document assembles the final Markdown documents: a YAML
// front-matter block, a level-1 title heading and the converted body.
package document

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/LucasBadico/mailbook/model"
)

const (
	maxTitleLen      = 140
	fallbackFilename = "untitled"
	displayDateFmt   = "2006-01-02 15:04:05 -0700"
)

const forbiddenFilenameChars = `\/:*?"<>|`

// Options control document assembly for a whole run.
type Options struct {
	// Prefix is prepended verbatim to every filename.
	Prefix string
	// SourceTag is the fixed front-matter source value, e.g. "gmail".
	SourceTag string
}

// Build assembles the document for msg at the given 1-based ordinal.
// Assembly is pure: the same message and ordinal always produce
// byte-identical output.
func Build(ordinal int, msg model.Message, body string, opts Options) model.Document {
	title := strings.TrimSpace(msg.Header("Subject"))
	if title == "" {
		title = fmt.Sprintf("Untitled %d", ordinal)
	}

	safeTitle := yamlSafe(title)

	lines := []string{
		"---",
		`title: "` + safeTitle + `"`,
		`from: "` + yamlSafe(msg.Header("From")) + `"`,
		`to: "` + yamlSafe(msg.Header("To")) + `"`,
		`date: "` + yamlSafe(displayDate(msg)) + `"`,
		`message_id: "` + yamlSafe(msg.Header("Message-Id")) + `"`,
		"source: " + opts.SourceTag,
		"---",
		"",
		"# " + safeTitle,
	}

	content := strings.Join(lines, "\n")
	if trimmed := strings.TrimSpace(body); trimmed != "" {
		content += "\n\n" + trimmed
	}
	content += "\n"

	filename := fmt.Sprintf("%03d - %s.md", ordinal, SanitizeFilename(title))
	if opts.Prefix != "" {
		filename = opts.Prefix + filename
	}

	return model.Document{
		Ordinal:  ordinal,
		Filename: filename,
		Content:  content,
	}
}

// displayDate prefers the self-reported Date header and falls back to
// the receipt timestamp rendered in the local timezone. An absent or
// unparsable timestamp yields the empty string.
func displayDate(msg model.Message) string {
	if date := msg.Header("Date"); date != "" {
		return date
	}
	return FormatReceiptTimestamp(msg.InternalDate)
}

// FormatReceiptTimestamp renders an epoch-milliseconds string as a
// local-timezone "YYYY-MM-DD HH:MM:SS ±HHMM" timestamp. Invalid input
// yields the empty string, never an error.
func FormatReceiptTimestamp(ms string) string {
	if ms == "" {
		return ""
	}
	n, err := strconv.ParseInt(ms, 10, 64)
	if err != nil {
		return ""
	}
	return time.UnixMilli(n).Local().Format(displayDateFmt)
}

// yamlSafe makes a value safe for the double-quoted front-matter
// fields: double quotes become single quotes, surrounding whitespace is
// trimmed.
func yamlSafe(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, `"`, "'"))
}

// SanitizeFilename makes a title safe for use as a filename. Each
// forbidden character is replaced 1:1 with '-', whitespace runs
// collapse to a single space, the result is truncated to maxTitleLen
// runes and trimmed. An empty result becomes "untitled".
func SanitizeFilename(name string) string {
	name = strings.TrimSpace(name)

	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(forbiddenFilenameChars, r) {
			return '-'
		}
		return r
	}, name)

	name = strings.Join(strings.Fields(name), " ")

	runes := []rune(name)
	if len(runes) > maxTitleLen {
		name = string(runes[:maxTitleLen])
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return fallbackFilename
	}
	return name
}
