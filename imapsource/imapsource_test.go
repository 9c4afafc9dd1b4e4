package imapsource

import (
	"bytes"
	"strings"
	"testing"

	"github.com/emersion/go-message"

	"github.com/LucasBadico/mailbook/extract"
)

const rawAlternative = `From: author@example.com
To: reader@example.com
Subject: Chapter Two
Date: Wed, 15 Nov 2023 10:00:00 +0000
Message-Id: <two@example.com>
MIME-Version: 1.0
Content-Type: multipart/alternative; boundary="BOUNDARY"

--BOUNDARY
Content-Type: text/plain; charset=utf-8

plain body
--BOUNDARY
Content-Type: text/html; charset=utf-8

<p>html body</p>
--BOUNDARY--
`

func parseRaw(t *testing.T, raw string) *message.Entity {
	t.Helper()
	raw = strings.ReplaceAll(raw, "\n", "\r\n")
	entity, err := message.Read(bytes.NewReader([]byte(raw)))
	if err != nil && !message.IsUnknownCharset(err) {
		t.Fatalf("message.Read() error = %v", err)
	}
	return entity
}

func TestBuildPart_MultipartAlternative(t *testing.T) {
	entity := parseRaw(t, rawAlternative)

	part := buildPart(entity)
	if part.MimeType != "multipart/alternative" {
		t.Errorf("root mime type = %q, want multipart/alternative", part.MimeType)
	}
	if len(part.Parts) != 2 {
		t.Fatalf("child count = %d, want 2", len(part.Parts))
	}
	if part.Parts[0].MimeType != "text/plain" || part.Parts[1].MimeType != "text/html" {
		t.Errorf("child mime types = [%s %s], want [text/plain text/html]",
			part.Parts[0].MimeType, part.Parts[1].MimeType)
	}

	// The tree must feed the extractor the same way a Gmail payload does.
	body := extract.BestBody(part)
	if !strings.Contains(body.HTML, "<p>html body</p>") {
		t.Errorf("extracted HTML = %q, want the html part", body.HTML)
	}
	if !strings.Contains(body.Text, "plain body") {
		t.Errorf("extracted Text = %q, want the plain part", body.Text)
	}
}

func TestCollectHeaders_WireOrder(t *testing.T) {
	entity := parseRaw(t, rawAlternative)

	headers := collectHeaders(entity)
	if len(headers) == 0 {
		t.Fatal("no headers collected")
	}
	if headers[0].Name != "From" {
		t.Errorf("first header = %q, want From (wire order)", headers[0].Name)
	}

	var subject string
	for _, h := range headers {
		if strings.EqualFold(h.Name, "Subject") {
			subject = h.Value
			break
		}
	}
	if subject != "Chapter Two" {
		t.Errorf("Subject = %q, want %q", subject, "Chapter Two")
	}
}

func TestBuildPart_SinglePartPlainText(t *testing.T) {
	raw := `From: a@example.com
Subject: plain
Content-Type: text/plain; charset=utf-8

just text
`
	entity := parseRaw(t, raw)

	part := buildPart(entity)
	if part.MimeType != "text/plain" {
		t.Errorf("mime type = %q, want text/plain", part.MimeType)
	}
	if len(part.Parts) != 0 {
		t.Errorf("child count = %d, want 0", len(part.Parts))
	}

	body := extract.BestBody(part)
	if !strings.Contains(body.Text, "just text") {
		t.Errorf("extracted Text = %q, want payload", body.Text)
	}
}
