// Package richtext renders Prismic rich text fields: a list of blocks, each
// with plain text and formatting spans, as HTML or as plain text.
package richtext

import (
	"bytes"
	"context"
	"html"
	"io"
	"net/url"
	"sort"
	"strings"
	"unicode/utf16"

	"github.com/a-h/templ"
)

// Block is one rich text element, e.g. a paragraph or a heading.
type Block struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Spans []Span `json:"spans,omitempty"`

	// Image blocks only.
	URL string `json:"url,omitempty"`
	Alt string `json:"alt,omitempty"`
}

// Span formats Text[Start:End]. Offsets count UTF-16 code units, as the
// Prismic API reports them.
type Span struct {
	Start int      `json:"start"`
	End   int      `json:"end"`
	Type  string   `json:"type"`
	Data  SpanData `json:"data,omitempty"`
}

// SpanData carries the link target of hyperlink spans.
type SpanData struct {
	URL    string `json:"url,omitempty"`
	Target string `json:"target,omitempty"`
}

const (
	TypeParagraph    = "paragraph"
	TypePreformatted = "preformatted"
	TypeListItem     = "list-item"
	TypeOListItem    = "o-list-item"
	TypeImage        = "image"

	SpanStrong    = "strong"
	SpanEm        = "em"
	SpanHyperlink = "hyperlink"
)

// Paragraphs returns the text of every non-image block, one entry per block.
func Paragraphs(blocks []Block) []string {
	out := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if b.Type == TypeImage {
			continue
		}
		out = append(out, b.Text)
	}
	return out
}

// AsText joins the text of all blocks with newlines.
func AsText(blocks []Block) string {
	return strings.Join(Paragraphs(blocks), "\n")
}

// Component returns a templ.Component that renders blocks as HTML.
func Component(blocks []Block) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var buf bytes.Buffer
		Render(&buf, blocks)
		_, err := w.Write(buf.Bytes())
		return err
	})
}

// Render writes the HTML representation of blocks to buf.
func Render(buf *bytes.Buffer, blocks []Block) {
	list := ""
	flushList := func() {
		if list != "" {
			buf.WriteString("</" + list + ">")
			list = ""
		}
	}
	openList := func(tag string) {
		if list == tag {
			return
		}
		flushList()
		buf.WriteString("<" + tag + ">")
		list = tag
	}

	for _, b := range blocks {
		switch b.Type {
		case TypeListItem:
			openList("ul")
			buf.WriteString("<li>" + FormatSpans(b.Text, b.Spans) + "</li>")
			continue
		case TypeOListItem:
			openList("ol")
			buf.WriteString("<li>" + FormatSpans(b.Text, b.Spans) + "</li>")
			continue
		}
		flushList()

		switch {
		case b.Type == TypeImage:
			src := SafeURL(b.URL)
			if src == "" {
				continue
			}
			buf.WriteString(`<img src="` + src + `" alt="` + html.EscapeString(b.Alt) + `" loading="lazy" decoding="async"/>`)
		case b.Type == TypePreformatted:
			buf.WriteString("<pre>" + FormatSpans(b.Text, b.Spans) + "</pre>")
		case headingLevel(b.Type) > 0:
			tag := "h" + b.Type[len("heading"):]
			buf.WriteString("<" + tag + ">" + FormatSpans(b.Text, b.Spans) + "</" + tag + ">")
		default:
			buf.WriteString("<p>" + FormatSpans(b.Text, b.Spans) + "</p>")
		}
	}
	flushList()
}

func headingLevel(t string) int {
	if len(t) != len("heading1") || !strings.HasPrefix(t, "heading") {
		return 0
	}
	n := int(t[len(t)-1] - '0')
	if n < 1 || n > 6 {
		return 0
	}
	return n
}

// FormatSpans escapes text and wraps the spanned ranges in their tags.
// Overlapping spans are closed and reopened so the output stays well formed.
// Unknown span types and out-of-range spans are ignored.
func FormatSpans(text string, spans []Span) string {
	units := utf16.Encode([]rune(text))
	var valid []Span
	for _, s := range spans {
		if s.Start < 0 || s.End > len(units) || s.Start >= s.End || openTag(s) == "" {
			continue
		}
		valid = append(valid, s)
	}
	if len(valid) == 0 {
		return html.EscapeString(text)
	}
	sort.SliceStable(valid, func(i, j int) bool {
		if valid[i].Start != valid[j].Start {
			return valid[i].Start < valid[j].Start
		}
		return valid[i].End > valid[j].End
	})

	cuts := map[int]struct{}{0: {}, len(units): {}}
	for _, s := range valid {
		cuts[s.Start] = struct{}{}
		cuts[s.End] = struct{}{}
	}
	bounds := make([]int, 0, len(cuts))
	for c := range cuts {
		bounds = append(bounds, c)
	}
	sort.Ints(bounds)

	var b strings.Builder
	var open []Span
	for i := 0; i+1 < len(bounds); i++ {
		from, to := bounds[i], bounds[i+1]
		var active []Span
		for _, s := range valid {
			if s.Start <= from && s.End >= to {
				active = append(active, s)
			}
		}
		common := 0
		for common < len(open) && common < len(active) && open[common] == active[common] {
			common++
		}
		for j := len(open) - 1; j >= common; j-- {
			b.WriteString(closeTag(open[j]))
		}
		for _, s := range active[common:] {
			b.WriteString(openTag(s))
		}
		open = active
		b.WriteString(html.EscapeString(string(utf16.Decode(units[from:to]))))
	}
	for j := len(open) - 1; j >= 0; j-- {
		b.WriteString(closeTag(open[j]))
	}
	return b.String()
}

func openTag(s Span) string {
	switch s.Type {
	case SpanStrong:
		return "<strong>"
	case SpanEm:
		return "<em>"
	case SpanHyperlink:
		href := SafeURL(s.Data.URL)
		if href == "" {
			return ""
		}
		if s.Data.Target == "_blank" {
			return `<a href="` + href + `" target="_blank" rel="noopener noreferrer">`
		}
		return `<a href="` + href + `">`
	}
	return ""
}

func closeTag(s Span) string {
	switch s.Type {
	case SpanStrong:
		return "</strong>"
	case SpanEm:
		return "</em>"
	case SpanHyperlink:
		return "</a>"
	}
	return ""
}

// SafeURL validates and escapes a URL for use in an HTML attribute. It
// returns "" for anything but relative, http(s), mailto and tel URLs.
func SafeURL(raw string) string {
	val := strings.TrimSpace(raw)
	if val == "" {
		return ""
	}
	if strings.HasPrefix(val, "/") || strings.HasPrefix(val, "#") {
		return html.EscapeString(val)
	}
	parsed, err := url.Parse(val)
	if err != nil || parsed.Scheme == "" {
		return ""
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https", "mailto", "tel":
		return html.EscapeString(val)
	default:
		return ""
	}
}
