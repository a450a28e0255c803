package ui

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// blockElements start and end on their own line in the text preview
var blockElements = map[string]bool{
	"p": true, "div": true, "h1": true, "h2": true, "h3": true, "h4": true,
	"h5": true, "h6": true, "ul": true, "ol": true, "li": true, "pre": true,
	"blockquote": true, "table": true, "tr": true, "caption": true,
	"figure": true, "figcaption": true, "hr": true, "header": true, "footer": true,
}

var (
	spaceRe      = regexp.MustCompile(`\s+`)
	blankLinesRe = regexp.MustCompile(`\n{3,}`)
)

// textWriter accumulates preview text and tracks the line start
type textWriter struct {
	b strings.Builder
}

func (w *textWriter) atLineStart() bool {
	s := w.b.String()
	return s == "" || strings.HasSuffix(s, "\n")
}

func (w *textWriter) newline() {
	if !w.atLineStart() {
		w.b.WriteString("\n")
	}
}

func (w *textWriter) inline(s string) {
	s = spaceRe.ReplaceAllString(s, " ")
	if w.atLineStart() {
		s = strings.TrimLeft(s, " ")
	}
	w.b.WriteString(s)
}

// plainText converts rendered slide HTML into terminal text. Line breaks are
// kept inside <pre>, list items get a bullet, and table cells are joined
// with " | ".
func plainText(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return ""
	}
	doc.Find("script, style, .code-background").Remove()

	w := &textWriter{}
	var walk func(s *goquery.Selection, pre bool)
	walk = func(s *goquery.Selection, pre bool) {
		s.Contents().Each(func(_ int, c *goquery.Selection) {
			name := goquery.NodeName(c)
			switch name {
			case "#text":
				if pre {
					w.b.WriteString(c.Text())
				} else {
					w.inline(c.Text())
				}
				return
			case "#comment", "#document", "#doctype":
				return
			case "br":
				w.b.WriteString("\n")
				return
			case "img":
				if alt, _ := c.Attr("alt"); alt != "" {
					w.inline("[" + alt + "]")
				}
				return
			case "td", "th":
				if !w.atLineStart() {
					w.b.WriteString(" | ")
				}
			}

			block := blockElements[name]
			if block {
				w.newline()
			}
			if name == "li" {
				w.b.WriteString("• ")
			}
			walk(c, pre || name == "pre")
			if block {
				w.newline()
			}
		})
	}
	walk(doc.Find("body"), false)

	lines := strings.Split(w.b.String(), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	out := blankLinesRe.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.Trim(out, "\n")
}

// slideTitle returns the first heading of a slide, falling back to its
// first line of text
func slideTitle(fragment, raw string) string {
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment)); err == nil {
		if title := strings.TrimSpace(doc.Find("h1, h2, h3, h4, h5, h6").First().Text()); title != "" {
			return title
		}
	}
	for _, line := range strings.Split(plainText(fragment), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "<!--") {
			return line
		}
	}
	return "(empty)"
}
