// Package markdown turns raw message HTML into portable Markdown.
//
// Input HTML is parsed permissively, stripped of script, style and
// noscript subtrees, serialized back and handed to the html-to-markdown
// converter configured for ATX-style headings.
package markdown

import (
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"golang.org/x/net/html"
)

// Converter sanitizes HTML and converts it to Markdown.
type Converter struct {
	md *md.Converter
}

// NewConverter creates a Converter with ATX heading style.
func NewConverter() *Converter {
	opts := &md.Options{HeadingStyle: "atx"}
	return &Converter{md: md.NewConverter("", true, opts)}
}

// Convert returns the Markdown rendition of raw HTML. An empty input
// yields an empty string. Malformed markup is recovered, not rejected.
func (c *Converter) Convert(rawHTML string) (string, error) {
	if strings.TrimSpace(rawHTML) == "" {
		return "", nil
	}

	cleaned, err := Sanitize(rawHTML)
	if err != nil {
		return "", fmt.Errorf("sanitize html: %w", err)
	}

	out, err := c.md.ConvertString(cleaned)
	if err != nil {
		return "", fmt.Errorf("convert html: %w", err)
	}

	return out, nil
}

// Sanitize parses HTML permissively, removes every script, style and
// noscript element together with its subtree, and serializes the rest
// back to HTML.
func Sanitize(rawHTML string) (string, error) {
	root, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return "", err
	}

	stripUnwanted(root)

	var sb strings.Builder
	if err := html.Render(&sb, root); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func stripUnwanted(n *html.Node) {
	var next *html.Node
	for child := n.FirstChild; child != nil; child = next {
		next = child.NextSibling
		if child.Type == html.ElementNode && isUnwanted(child.Data) {
			n.RemoveChild(child)
			continue
		}
		stripUnwanted(child)
	}
}

func isUnwanted(tag string) bool {
	switch tag {
	case "script", "style", "noscript":
		return true
	}
	return false
}
