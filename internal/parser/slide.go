package parser

import (
	"regexp"
	"strings"
)

// DefaultPageClass is the CSS class of a slide without @pageclass or @cover
const DefaultPageClass = "normal"

// Prepared is a slide block with its slide-local directives extracted
type Prepared struct {
	Markdown  string   // Text handed to the markdown renderer
	Notes     []string // @note: bodies in order
	PageClass string
	Header    *string // nil inherits the global header
	Footer    *string // nil inherits the global footer
	Hidden    bool
	Cover     bool
}

// NoteMarkdown joins the speaker notes into one markdown document
func (p Prepared) NoteMarkdown() string {
	return strings.Join(p.Notes, "\n\n")
}

var (
	noteRe      = regexp.MustCompile(`<!--\s*@note:\s*([\s\S]*?)\s*-->`)
	pageClassRe = regexp.MustCompile(`<!--\s*@pageclass\s*([\s\S]*?)\s*-->`)
	coverMarkRe = regexp.MustCompile(`<!--\s*@cover\s*-->`)
	hideMarkRe  = regexp.MustCompile(`<!--\s*@hide\s*-->`)
	localHdrRe  = regexp.MustCompile(`<!--\s*@header\s*([\s\S]*?)\s*-->`)
	localFtrRe  = regexp.MustCompile(`<!--\s*@footer\s*([\s\S]*?)\s*-->`)

	displayMathRe = regexp.MustCompile(`\\\[([\s\S]*?)\\\]`)
	inlineMathRe  = regexp.MustCompile(`\\\(([\s\S]*?)\\\)`)
)

// Preprocess strips notes, page class and header/footer overrides from a
// slide block before markdown rendering sees it.
func Preprocess(raw string) Prepared {
	p := Prepared{PageClass: DefaultPageClass}
	text := raw

	text = noteRe.ReplaceAllStringFunc(text, func(match string) string {
		m := noteRe.FindStringSubmatch(match)
		p.Notes = append(p.Notes, strings.TrimSpace(m[1]))
		return ""
	})

	text = pageClassRe.ReplaceAllStringFunc(text, func(match string) string {
		m := pageClassRe.FindStringSubmatch(match)
		p.PageClass = strings.TrimSpace(m[1])
		return ""
	})

	if IsCover(text) {
		p.PageClass = "cover"
		p.Cover = true
	}
	p.Hidden = IsHidden(text)

	if m := localHdrRe.FindStringSubmatch(text); m != nil {
		h := strings.TrimSpace(m[1])
		p.Header = &h
		text = strings.Replace(text, m[0], "", 1)
	}
	if m := localFtrRe.FindStringSubmatch(text); m != nil {
		f := strings.TrimSpace(m[1])
		p.Footer = &f
		text = strings.Replace(text, m[0], "", 1)
	}

	p.Markdown = NormalizeMath(text)
	return p
}

// NormalizeMath rewrites \[..\] and \(..\) delimiters to $$..$$ and $..$
func NormalizeMath(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	s = displayMathRe.ReplaceAllString(s, `$$$$${1}$$$$`)
	return inlineMathRe.ReplaceAllString(s, `$$${1}$$`)
}

// IsHidden reports whether a raw block is excluded from numbering and navigation
func IsHidden(raw string) bool {
	return hideMarkRe.MatchString(raw)
}

// IsCover reports whether a raw block is a cover slide
func IsCover(raw string) bool {
	return coverMarkRe.MatchString(raw)
}
