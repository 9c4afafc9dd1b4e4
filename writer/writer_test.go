package writer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/LucasBadico/mailbook/model"
)

func TestWriter_CreatesDirAndWrites(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "chapters", "book")

	w, err := New(dir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	doc := model.Document{
		Ordinal:  1,
		Filename: "001 - Chapter One.md",
		Content:  "---\ntitle: \"Chapter One\"\n---\n",
	}

	path, err := w.Write(doc)
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != doc.Content {
		t.Errorf("written content = %q, want %q", data, doc.Content)
	}
}

func TestWriter_EmptyDir(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Error("New(\"\") should fail")
	}
}
