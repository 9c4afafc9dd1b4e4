package model

import "strings"

// Header is a single name/value header pair. Names are compared
// case-insensitively on lookup; duplicates are permitted.
type Header struct {
	Name  string
	Value string
}

// MessagePart is one node of a message's MIME content tree. A part is
// either a leaf carrying a base64url-encoded payload or a container
// holding ordered child parts; both may legally be absent.
type MessagePart struct {
	MimeType string
	Data     string
	Parts    []*MessagePart
}

// Message represents a single mailbox entry as returned by a remote fetch.
// InternalDate is the mailbox-assigned receipt timestamp in epoch
// milliseconds, carried as the decimal string the wire provides.
type Message struct {
	ID           string
	InternalDate string
	Headers      []Header
	Payload      *MessagePart
}

// Header returns the value of the first header matching name
// (case-insensitive), or the empty string if no such header exists.
func (m Message) Header(name string) string {
	for _, h := range m.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// HeaderBlock renders all headers as "Name: value" lines, one per header.
func (m Message) HeaderBlock() string {
	var sb strings.Builder
	for _, h := range m.Headers {
		sb.WriteString(h.Name)
		sb.WriteString(": ")
		sb.WriteString(h.Value)
		sb.WriteString("\n")
	}
	return sb.String()
}

// ExtractedBody holds the best candidates found while walking a
// message's part tree. HTML wins over Text downstream when both are set.
type ExtractedBody struct {
	HTML string
	Text string
}

// FetchResult wraps one per-identifier fetch outcome. Err is set when
// the fetch failed; the batch continues regardless.
type FetchResult struct {
	ID      string
	Message Message
	Err     error
}

// Document is the final output unit handed to the filesystem writer.
type Document struct {
	Ordinal  int
	Filename string
	Content  string
}
