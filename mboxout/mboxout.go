// Package mboxout appends exported messages' raw RFC 822 bytes to an
// mbox archive next to the Markdown output.
package mboxout

import (
	"bytes"
	"fmt"
	"net/mail"
	"os"
	"strings"
	"time"

	mboxlib "github.com/emersion/go-mbox"
)

const fallbackSender = "MAILER-DAEMON"

// Archive is an append-only mbox file.
type Archive struct {
	file *os.File
	w    *mboxlib.Writer
}

// Open creates or appends to the mbox file at path.
func Open(path string) (*Archive, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open mbox %s: %w", path, err)
	}
	return &Archive{file: file, w: mboxlib.NewWriter(file)}, nil
}

// Append writes one raw message to the archive. The separator line's
// envelope sender and date are taken from the message headers when
// parsable.
func (a *Archive) Append(raw []byte) error {
	from, date := envelope(raw)

	mw, err := a.w.CreateMessage(from, date)
	if err != nil {
		return fmt.Errorf("create mbox message: %w", err)
	}
	if _, err := mw.Write(raw); err != nil {
		return fmt.Errorf("write mbox message: %w", err)
	}
	return nil
}

// Close flushes the mbox writer and closes the file.
func (a *Archive) Close() error {
	var firstErr error
	if err := a.w.Close(); err != nil {
		firstErr = fmt.Errorf("close mbox writer: %w", err)
	}
	if err := a.file.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close mbox file: %w", err)
	}
	return firstErr
}

// envelope extracts the separator-line sender address and date from a
// raw message, with safe fallbacks for unparsable input.
func envelope(raw []byte) (string, time.Time) {
	from := fallbackSender
	date := time.Now()

	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return from, date
	}

	if header := strings.TrimSpace(msg.Header.Get("From")); header != "" {
		if addr, err := mail.ParseAddress(header); err == nil {
			from = addr.Address
		}
	}
	if header := msg.Header.Get("Date"); header != "" {
		if t, err := mail.ParseDate(header); err == nil {
			date = t
		}
	}

	return from, date
}
