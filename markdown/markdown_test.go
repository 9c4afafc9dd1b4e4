package markdown

import (
	"strings"
	"testing"
)

func TestConvert_Empty(t *testing.T) {
	c := NewConverter()

	for _, in := range []string{"", "   ", "\n\t"} {
		got, err := c.Convert(in)
		if err != nil {
			t.Fatalf("Convert(%q) error = %v", in, err)
		}
		if got != "" {
			t.Errorf("Convert(%q) = %q, want empty string", in, got)
		}
	}
}

func TestConvert_ScriptStyleNoscriptRemoved(t *testing.T) {
	c := NewConverter()

	in := `<html><head><style>body { color: red }</style></head><body>` +
		`<script>alert(1)</script>` +
		`<p>visible paragraph</p>` +
		`<noscript>enable javascript</noscript>` +
		`</body></html>`

	got, err := c.Convert(in)
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}

	if !strings.Contains(got, "visible paragraph") {
		t.Errorf("output %q missing visible content", got)
	}
	for _, leak := range []string{"alert(1)", "color: red", "enable javascript", "<script", "<style", "<noscript"} {
		if strings.Contains(got, leak) {
			t.Errorf("output %q leaked %q", got, leak)
		}
	}
}

func TestConvert_ATXHeadings(t *testing.T) {
	c := NewConverter()

	got, err := c.Convert("<h1>Chapter One</h1><h2>Scene</h2><p>text</p>")
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}

	if !strings.Contains(got, "# Chapter One") {
		t.Errorf("output %q missing ATX h1", got)
	}
	if !strings.Contains(got, "## Scene") {
		t.Errorf("output %q missing ATX h2", got)
	}
	if strings.Contains(got, "====") || strings.Contains(got, "----") {
		t.Errorf("output %q uses setext-style heading underline", got)
	}
}

func TestConvert_LinksAndEmphasis(t *testing.T) {
	c := NewConverter()

	got, err := c.Convert(`<p>Read <a href="https://example.com/a">the story</a> in <em>full</em>, it is <strong>worth it</strong>.</p>`)
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}

	if !strings.Contains(got, "[the story](https://example.com/a)") {
		t.Errorf("output %q missing markdown link", got)
	}
	if !strings.Contains(got, "*full*") && !strings.Contains(got, "_full_") {
		t.Errorf("output %q missing emphasis", got)
	}
	if !strings.Contains(got, "**worth it**") && !strings.Contains(got, "__worth it__") {
		t.Errorf("output %q missing strong emphasis", got)
	}
}

func TestConvert_Lists(t *testing.T) {
	c := NewConverter()

	got, err := c.Convert("<ul><li>alpha</li><li>beta</li></ul>")
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}

	if !strings.Contains(got, "alpha") || !strings.Contains(got, "beta") {
		t.Errorf("output %q missing list items", got)
	}
}

func TestConvert_MalformedHTMLRecovers(t *testing.T) {
	c := NewConverter()

	got, err := c.Convert("<p>unclosed <b>tags<p>second para")
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if !strings.Contains(got, "unclosed") || !strings.Contains(got, "second para") {
		t.Errorf("output %q lost content of malformed input", got)
	}
}

func TestSanitize_NestedScript(t *testing.T) {
	got, err := Sanitize(`<div><div><script type="text/javascript">steal()</script><span>kept</span></div></div>`)
	if err != nil {
		t.Fatalf("Sanitize() error = %v", err)
	}
	if strings.Contains(got, "steal()") || strings.Contains(got, "<script") {
		t.Errorf("Sanitize() = %q, script survived", got)
	}
	if !strings.Contains(got, "kept") {
		t.Errorf("Sanitize() = %q, dropped legitimate content", got)
	}
}
