package runner

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/LucasBadico/mailbook/config"
	"github.com/LucasBadico/mailbook/model"
)

type fakeClient struct {
	ids      []string
	messages map[string]model.Message
	failIDs  map[string]bool
	raw      map[string][]byte
}

func (f *fakeClient) ListMessageIDs(_ context.Context, _ string, pageToken string, pageSize int64) ([]string, string, error) {
	if pageToken != "" {
		return nil, "", nil
	}
	ids := f.ids
	if int64(len(ids)) > pageSize {
		ids = ids[:pageSize]
	}
	return ids, "", nil
}

func (f *fakeClient) GetMessage(_ context.Context, id string) (model.Message, error) {
	if f.failIDs[id] {
		return model.Message{}, errors.New("transient remote error")
	}
	return f.messages[id], nil
}

func (f *fakeClient) GetRawMessage(_ context.Context, id string) ([]byte, error) {
	raw, ok := f.raw[id]
	if !ok {
		return nil, errors.New("raw not available")
	}
	return raw, nil
}

func b64(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func textMessage(id, internalDate, subject, body string) model.Message {
	return model.Message{
		ID:           id,
		InternalDate: internalDate,
		Headers: []model.Header{
			{Name: "Subject", Value: subject},
			{Name: "From", Value: "author@example.com"},
			{Name: "To", Value: "reader@example.com"},
		},
		Payload: &model.MessagePart{MimeType: "text/plain", Data: b64(body)},
	}
}

func testConfig(outDir string) config.Config {
	return config.Config{
		Query:      "subject:chapter",
		OutDir:     outDir,
		Max:        500,
		RatePerSec: 1000,
		LogLevel:   "error",
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestRun_ExportsInReceiptOrder(t *testing.T) {
	outDir := t.TempDir()
	client := &fakeClient{
		ids: []string{"A", "B", "C"},
		messages: map[string]model.Message{
			"A": textMessage("A", "300", "Third", "body three"),
			"B": textMessage("B", "100", "First", "body one"),
			"C": textMessage("C", "200", "Second", "body two"),
		},
	}

	r, err := New(Options{Config: testConfig(outDir), Client: client, Logger: quietLogger(), SourceTag: "gmail"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	names := listDir(t, outDir)
	want := []string{"001 - First.md", "002 - Second.md", "003 - Third.md"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("files = %v, want %v", names, want)
	}

	data, err := os.ReadFile(filepath.Join(outDir, "001 - First.md"))
	if err != nil {
		t.Fatalf("read document: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, `title: "First"`) {
		t.Errorf("document %q missing front matter title", content)
	}
	if !strings.Contains(content, "source: gmail") {
		t.Errorf("document %q missing source tag", content)
	}
	if !strings.Contains(content, "body one") {
		t.Errorf("document %q missing body", content)
	}
}

func TestRun_FetchFailureSkipsMessage(t *testing.T) {
	outDir := t.TempDir()
	client := &fakeClient{
		ids: []string{"A", "B", "C"},
		messages: map[string]model.Message{
			"A": textMessage("A", "300", "Kept A", "aaa"),
			"C": textMessage("C", "200", "Kept C", "ccc"),
		},
		failIDs: map[string]bool{"B": true},
	}

	r, err := New(Options{Config: testConfig(outDir), Client: client, Logger: quietLogger(), SourceTag: "gmail"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	names := listDir(t, outDir)
	want := []string{"001 - Kept C.md", "002 - Kept A.md"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("files = %v, want %v", names, want)
	}

	summary := r.Summary()
	if summary.FetchErrors != 1 {
		t.Errorf("FetchErrors = %d, want 1", summary.FetchErrors)
	}
	if summary.Written != 2 {
		t.Errorf("Written = %d, want 2", summary.Written)
	}
}

func TestRun_NoMatches(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "never-created")
	client := &fakeClient{}

	r, err := New(Options{Config: testConfig(outDir), Client: client, Logger: quietLogger(), SourceTag: "gmail"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if _, err := os.Stat(outDir); !os.IsNotExist(err) {
		t.Error("output directory should not be created for a zero-result run")
	}
}

func TestRun_HTMLWinsOverText(t *testing.T) {
	outDir := t.TempDir()
	msg := model.Message{
		ID:           "A",
		InternalDate: "100",
		Headers:      []model.Header{{Name: "Subject", Value: "Rich"}},
		Payload: &model.MessagePart{
			MimeType: "multipart/alternative",
			Parts: []*model.MessagePart{
				{MimeType: "text/plain", Data: b64("plain version")},
				{MimeType: "text/html", Data: b64("<h1>Heading</h1><p>rich version</p>")},
			},
		},
	}
	client := &fakeClient{ids: []string{"A"}, messages: map[string]model.Message{"A": msg}}

	r, err := New(Options{Config: testConfig(outDir), Client: client, Logger: quietLogger(), SourceTag: "gmail"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(outDir, "001 - Rich.md"))
	if err != nil {
		t.Fatalf("read document: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "rich version") {
		t.Errorf("document %q should contain the converted HTML body", content)
	}
	if strings.Contains(content, "plain version") {
		t.Errorf("document %q should not fall back to plain text when HTML exists", content)
	}
}

func TestRun_FilterKeepsNumberingDense(t *testing.T) {
	outDir := t.TempDir()
	cfg := testConfig(outDir)
	cfg.ExcludeHeader = []string{"Subject: Skip"}

	client := &fakeClient{
		ids: []string{"A", "B", "C"},
		messages: map[string]model.Message{
			"A": textMessage("A", "100", "Keep One", "a"),
			"B": textMessage("B", "200", "Skip Me", "b"),
			"C": textMessage("C", "300", "Keep Two", "c"),
		},
	}

	r, err := New(Options{Config: cfg, Client: client, Logger: quietLogger(), SourceTag: "gmail"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	names := listDir(t, outDir)
	want := []string{"001 - Keep One.md", "002 - Keep Two.md"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("files = %v, want dense numbering %v", names, want)
	}
	if r.Summary().Filtered != 1 {
		t.Errorf("Filtered = %d, want 1", r.Summary().Filtered)
	}
}

func TestRun_MboxArchive(t *testing.T) {
	outDir := t.TempDir()
	mboxPath := filepath.Join(t.TempDir(), "raw.mbox")
	cfg := testConfig(outDir)
	cfg.MboxPath = mboxPath

	raw := []byte("From: author@example.com\r\nSubject: Keep\r\n\r\nraw body\r\n")
	client := &fakeClient{
		ids:      []string{"A"},
		messages: map[string]model.Message{"A": textMessage("A", "100", "Keep", "body")},
		raw:      map[string][]byte{"A": raw},
	}

	r, err := New(Options{Config: cfg, Client: client, Logger: quietLogger(), SourceTag: "gmail"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	data, err := os.ReadFile(mboxPath)
	if err != nil {
		t.Fatalf("read mbox: %v", err)
	}
	if !strings.Contains(string(data), "raw body") {
		t.Errorf("mbox %q missing raw message", data)
	}
	if r.Summary().Archived != 1 {
		t.Errorf("Archived = %d, want 1", r.Summary().Archived)
	}
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}
