package parser

import (
	"regexp"
	"strconv"
	"strings"
)

// Scope says whether a directive affects the whole deck or the current slide
type Scope string

const (
	ScopeGlobal Scope = "GLOBAL"
	ScopeLocal  Scope = "LOCAL"
)

// CommandType identifies a directive
type CommandType string

const (
	CmdAspect           CommandType = "ASPECT"
	CmdTheme            CommandType = "THEME"
	CmdMeta             CommandType = "META"
	CmdHeader           CommandType = "HEADER"
	CmdFooter           CommandType = "FOOTER"
	CmdCaption          CommandType = "CAPTION"
	CmdMulticolumnBegin CommandType = "MULTICOLUMN_BEGIN"
	CmdMulticolumnNext  CommandType = "MULTICOLUMN_NEXT"
	CmdMulticolumnEnd   CommandType = "MULTICOLUMN_END"
	CmdAddClass         CommandType = "ADD_CLASS"
	CmdAddStyle         CommandType = "ADD_STYLE"
	CmdCover            CommandType = "COVER"
)

// Command is a parsed directive. Which fields are set depends on Type:
//
//	ASPECT            Aspect
//	THEME             Value (path or URL)
//	META              Key (title, subtitle, ...), Value
//	HEADER, FOOTER    Value
//	CAPTION           Value
//	MULTICOLUMN_BEGIN Ratios
//	ADD_CLASS/STYLE   Key (lower-cased tag), Value
type Command struct {
	Type   CommandType
	Scope  Scope
	Aspect [2]int
	Key    string
	Value  string
	Ratios []float64
}

// DefaultColumnRatios is used by `@begin multicolumn` without a ratio list
var DefaultColumnRatios = []float64{1, 1}

var (
	commentRe = regexp.MustCompile(`^<!--\s*([\s\S]*?)\s*-->$`)

	aspectRe   = regexp.MustCompile(`^@aspect\s+(\d+):(\d+)$`)
	themeRe    = regexp.MustCompile(`^@theme\s+(.+)$`)
	metaRe     = regexp.MustCompile(`^@(date|title|subtitle|presenter|contact|affiliation)\s+(.*)$`)
	headerRe   = regexp.MustCompile(`^@header\s*([\s\S]*)$`)
	footerRe   = regexp.MustCompile(`^@footer\s*([\s\S]*)$`)
	captionRe  = regexp.MustCompile(`^@caption\s+(.*)$`)
	multiRe    = regexp.MustCompile(`^@begin\s+multicolumn(?:\s+(.*))?$`)
	nextColRe  = regexp.MustCompile(`^@nextcolumn$`)
	endMultiRe = regexp.MustCompile(`^@end\s+multicolumn$`)
	addClassRe = regexp.MustCompile(`^@addclass\s+(\S+)\s+(.*)$`)
	addStyleRe = regexp.MustCompile(`^@addstyle\s+(\S+)\s+(.*)$`)
	coverRe    = regexp.MustCompile(`^@cover$`)
)

// ParseCommand matches a directive against the fixed grammar. Input may be the
// bare comment content or a whole `<!-- ... -->` comment. Returns nil when the
// text is not a directive.
func ParseCommand(input string) *Command {
	text := strings.TrimSpace(input)
	if m := commentRe.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}
	if text == "" {
		return nil
	}

	if m := aspectRe.FindStringSubmatch(text); m != nil {
		w, _ := strconv.Atoi(m[1])
		h, _ := strconv.Atoi(m[2])
		return &Command{Type: CmdAspect, Scope: ScopeGlobal, Aspect: [2]int{w, h}}
	}
	if m := themeRe.FindStringSubmatch(text); m != nil {
		return &Command{Type: CmdTheme, Scope: ScopeGlobal, Value: strings.TrimSpace(m[1])}
	}
	if m := metaRe.FindStringSubmatch(text); m != nil {
		return &Command{Type: CmdMeta, Scope: ScopeGlobal, Key: m[1], Value: m[2]}
	}
	if m := headerRe.FindStringSubmatch(text); m != nil {
		return &Command{Type: CmdHeader, Scope: ScopeGlobal, Value: strings.TrimSpace(m[1])}
	}
	if m := footerRe.FindStringSubmatch(text); m != nil {
		return &Command{Type: CmdFooter, Scope: ScopeGlobal, Value: strings.TrimSpace(m[1])}
	}

	if m := captionRe.FindStringSubmatch(text); m != nil {
		return &Command{Type: CmdCaption, Scope: ScopeLocal, Value: m[1]}
	}
	if m := multiRe.FindStringSubmatch(text); m != nil {
		return &Command{Type: CmdMulticolumnBegin, Scope: ScopeLocal, Ratios: parseRatios(m[1])}
	}
	if nextColRe.MatchString(text) {
		return &Command{Type: CmdMulticolumnNext, Scope: ScopeLocal}
	}
	if endMultiRe.MatchString(text) {
		return &Command{Type: CmdMulticolumnEnd, Scope: ScopeLocal}
	}
	if m := addClassRe.FindStringSubmatch(text); m != nil {
		return &Command{Type: CmdAddClass, Scope: ScopeLocal, Key: strings.ToLower(m[1]), Value: m[2]}
	}
	if m := addStyleRe.FindStringSubmatch(text); m != nil {
		return &Command{Type: CmdAddStyle, Scope: ScopeLocal, Key: strings.ToLower(m[1]), Value: m[2]}
	}
	if coverRe.MatchString(text) {
		return &Command{Type: CmdCover, Scope: ScopeLocal}
	}
	return nil
}

// parseRatios turns "2:1:1" into weights. Unparseable entries become 1.
func parseRatios(s string) []float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return append([]float64(nil), DefaultColumnRatios...)
	}
	parts := strings.Split(s, ":")
	ratios := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || v <= 0 {
			v = 1
		}
		ratios[i] = v
	}
	return ratios
}
