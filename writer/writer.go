// Package writer persists assembled documents to the output directory.
package writer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/LucasBadico/mailbook/model"
)

// Writer writes documents into a single output directory.
type Writer struct {
	dir string
}

// New creates the output directory if needed and returns a Writer.
func New(dir string) (*Writer, error) {
	if dir == "" {
		return nil, fmt.Errorf("output directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory %s: %w", dir, err)
	}
	return &Writer{dir: dir}, nil
}

// Dir returns the output directory.
func (w *Writer) Dir() string {
	return w.dir
}

// Write stores one document and returns its path.
func (w *Writer) Write(doc model.Document) (string, error) {
	path := filepath.Join(w.dir, doc.Filename)
	if err := os.WriteFile(path, []byte(doc.Content), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
