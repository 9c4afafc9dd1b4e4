package extract

import (
	"encoding/base64"
	"strings"

	"github.com/LucasBadico/mailbook/model"
)

const (
	mimeHTML = "text/html"
	mimeText = "text/plain"
)

// BestBody walks a message part tree depth-first and returns the first
// text/html payload and the first text/plain payload found anywhere in
// the tree. A leaf match terminates the walk at that node; among
// children the first non-empty candidate of each kind wins and is never
// overwritten. A nil part yields two empty strings.
func BestBody(part *model.MessagePart) model.ExtractedBody {
	if part == nil {
		return model.ExtractedBody{}
	}

	if part.MimeType == mimeHTML && part.Data != "" {
		return model.ExtractedBody{HTML: DecodeBase64URL(part.Data)}
	}
	if part.MimeType == mimeText && part.Data != "" {
		return model.ExtractedBody{Text: DecodeBase64URL(part.Data)}
	}

	var body model.ExtractedBody
	for _, child := range part.Parts {
		candidate := BestBody(child)
		if candidate.HTML != "" && body.HTML == "" {
			body.HTML = candidate.HTML
		}
		if candidate.Text != "" && body.Text == "" {
			body.Text = candidate.Text
		}
	}
	return body
}

// DecodeBase64URL decodes a URL-safe base64 payload. Missing padding is
// tolerated by right-padding with '=' to the next multiple of four.
// Decoding never fails: on a corrupt byte the valid prefix is kept, and
// invalid UTF-8 sequences in the result are replaced with U+FFFD.
func DecodeBase64URL(data string) string {
	if data == "" {
		return ""
	}

	if rem := len(data) % 4; rem != 0 {
		data += strings.Repeat("=", 4-rem)
	}

	decoded, err := base64.URLEncoding.DecodeString(data)
	if err != nil && len(decoded) == 0 {
		return ""
	}

	return strings.ToValidUTF8(string(decoded), "�")
}
