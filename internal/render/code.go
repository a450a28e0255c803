package render

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/yuin/goldmark/util"
)

// Reserved fence tags for diagram sources. Blocks carrying them are emitted as
// placeholders for the diagram stage instead of being highlighted.
const (
	MermaidTag  = "@mermaid"
	PlantUMLTag = "@plantuml"
)

// DiagramClasses maps a reserved fence tag to its placeholder class
var DiagramClasses = map[string]string{
	MermaidTag:  "mermaid",
	PlantUMLTag: "plantuml",
}

// CodeInfo is the parsed info string of a fenced code block
type CodeInfo struct {
	Lang      string
	File      string
	Highlight map[int]bool
	Start     int
}

var (
	infoLangRe  = regexp.MustCompile(`^([^:\s\\{]+)(?::([^:\s\\{]+))?`)
	infoRangeRe = regexp.MustCompile(`\{([\d,\-\s]+)\}`)
	infoStartRe = regexp.MustCompile(`start[=:](\d+)`)
	codeLineRe  = regexp.MustCompile(`\r?\n`)
)

// ParseCodeInfo parses `lang:file {1,3-4} start=10`
func ParseCodeInfo(info string) CodeInfo {
	ci := CodeInfo{Lang: PlainLanguage, Start: 1}
	info = strings.TrimSpace(info)

	if m := infoLangRe.FindStringSubmatch(info); m != nil {
		ci.Lang = m[1]
		ci.File = m[2]
	}
	if m := infoRangeRe.FindStringSubmatch(info); m != nil {
		ci.Highlight = ParseLineRanges(m[1])
	} else {
		ci.Highlight = map[int]bool{}
	}
	if m := infoStartRe.FindStringSubmatch(info); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			ci.Start = n
		}
	}
	return ci
}

// ParseLineRanges parses "2,4-5" into a set of line numbers. Bad entries are skipped.
func ParseLineRanges(spec string) map[int]bool {
	lines := make(map[int]bool)
	spec = strings.Trim(strings.TrimSpace(spec), "{}")
	if spec == "" {
		return lines
	}
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if lo, hi, ok := strings.Cut(part, "-"); ok {
			start, err1 := strconv.Atoi(strings.TrimSpace(lo))
			end, err2 := strconv.Atoi(strings.TrimSpace(hi))
			if err1 != nil || err2 != nil {
				continue
			}
			for i := start; i <= end; i++ {
				lines[i] = true
			}
			continue
		}
		if n, err := strconv.Atoi(part); err == nil {
			lines[n] = true
		}
	}
	return lines
}

// codeLines splits code into lines, dropping the empty line after a final newline
func codeLines(code string) []string {
	lines := codeLineRe.Split(code, -1)
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines
}

// backgroundRows renders one row div per source line for highlight bands
func backgroundRows(code string, ci CodeInfo) string {
	var b strings.Builder
	for i := range codeLines(code) {
		n := i + ci.Start
		b.WriteString(`<div class="code-bg-row`)
		if ci.Highlight[n] {
			b.WriteString(` highlighted-line`)
		}
		b.WriteString(`" data-line-number="`)
		b.WriteString(strconv.Itoa(n))
		b.WriteString(`"></div>`)
	}
	return b.String()
}

// diagramPlaceholder returns the placeholder markup for a diagram fence, or
// false when the info string is not a diagram tag.
func diagramPlaceholder(info, code string) (string, bool) {
	fields := strings.Fields(info)
	if len(fields) == 0 {
		return "", false
	}
	class, ok := DiagramClasses[fields[0]]
	if !ok {
		return "", false
	}
	return `<div class="` + class + `">` + string(util.EscapeHTML([]byte(code))) + "</div>\n", true
}

// codeHTML renders a highlighted code block with its background rows
func codeHTML(h Highlighter, info, code, attrs string) string {
	ci := ParseCodeInfo(info)

	lang := PlainLanguage
	if h != nil && h.HasLanguage(ci.Lang) {
		lang = ci.Lang
	}

	highlighted := ""
	if h != nil {
		if out, err := h.Highlight(code, lang); err == nil {
			highlighted = out
		}
	}
	if highlighted == "" && code != "" {
		highlighted = string(util.EscapeHTML([]byte(code)))
	}

	var b strings.Builder
	b.WriteString("<div")
	b.WriteString(attrs)
	b.WriteString(`><div class="code-block-wrapper">`)
	if ci.File != "" {
		b.WriteString(`<div class="code-filename">`)
		b.Write(util.EscapeHTML([]byte(ci.File)))
		b.WriteString(`</div>`)
	}
	b.WriteString(`<div class="code-background">`)
	b.WriteString(backgroundRows(code, ci))
	b.WriteString(`</div><pre><code class="chroma language-`)
	b.Write(util.EscapeHTML([]byte(lang)))
	b.WriteString(`">`)
	b.WriteString(highlighted)
	b.WriteString("</code></pre></div></div>\n")
	return b.String()
}
