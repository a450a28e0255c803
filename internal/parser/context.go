package parser

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Meta holds the deck metadata shown on cover slides
type Meta struct {
	Title       string `json:"title,omitempty"`
	Subtitle    string `json:"subtitle,omitempty"`
	Date        string `json:"date,omitempty"`
	Presenter   string `json:"presenter,omitempty"`
	Affiliation string `json:"affiliation,omitempty"`
	Contact     string `json:"contact,omitempty"`
}

// MetaField is a named metadata value
type MetaField struct {
	Name  string
	Value string
}

// Set assigns a metadata value by directive key
func (m *Meta) Set(key, value string) {
	switch key {
	case "title":
		m.Title = value
	case "subtitle":
		m.Subtitle = value
	case "date":
		m.Date = value
	case "presenter":
		m.Presenter = value
	case "affiliation":
		m.Affiliation = value
	case "contact":
		m.Contact = value
	}
}

// Fields returns the metadata in cover-slide order
func (m Meta) Fields() []MetaField {
	return []MetaField{
		{"date", m.Date},
		{"title", m.Title},
		{"subtitle", m.Subtitle},
		{"presenter", m.Presenter},
		{"affiliation", m.Affiliation},
		{"contact", m.Contact},
	}
}

// Global is the deck-wide context built from the preamble
type Global struct {
	AspectRatio [2]int `json:"aspectRatio"`
	Meta        Meta   `json:"meta"`
	ThemeCSS    string `json:"themeCss,omitempty"`
	Header      string `json:"header,omitempty"`
	Footer      string `json:"footer,omitempty"`
}

// DefaultGlobal returns the context used when the preamble sets nothing
func DefaultGlobal() Global {
	return Global{AspectRatio: [2]int{16, 9}}
}

var anyCommentRe = regexp.MustCompile(`<!--\s*([\s\S]*?)\s*-->`)

// ParseGlobal scans the preamble for GLOBAL directives and applies them in
// document order; later occurrences overwrite earlier ones.
func ParseGlobal(preamble string) Global {
	g := DefaultGlobal()
	for _, m := range anyCommentRe.FindAllStringSubmatch(preamble, -1) {
		cmd := ParseCommand(m[1])
		if cmd == nil || cmd.Scope != ScopeGlobal {
			continue
		}
		g.Apply(cmd)
	}
	return g
}

// Apply applies a single GLOBAL command
func (g *Global) Apply(cmd *Command) {
	switch cmd.Type {
	case CmdAspect:
		g.AspectRatio = cmd.Aspect
	case CmdTheme:
		g.ThemeCSS = cmd.Value
	case CmdMeta:
		g.Meta.Set(cmd.Key, cmd.Value)
	case CmdHeader:
		g.Header = cmd.Value
	case CmdFooter:
		g.Footer = cmd.Value
	}
}

// Fingerprint serializes the context for cache invalidation
func (g Global) Fingerprint() string {
	data, err := json.Marshal(g)
	if err != nil {
		return ""
	}
	return string(data)
}

// CanvasSize returns the slide canvas for a base height, falling back to 16:9
// for a zero aspect component.
func (g Global) CanvasSize(baseHeight float64) (width, height float64) {
	w, h := g.AspectRatio[0], g.AspectRatio[1]
	if w == 0 {
		w = 16
	}
	if h == 0 {
		h = 9
	}
	return baseHeight * float64(w) / float64(h), baseHeight
}

// Local is the per-slide render state. It starts as a copy of Global and is
// mutated by node handlers in document order. Queued fields are read once:
// every Take* call removes what it returns.
type Local struct {
	Global
	PageIndex int

	caption    string
	hasCaption bool

	columns     []float64
	columnIndex int
	inColumns   bool

	addClasses map[string]string
	addStyles  map[string]string
}

// NewLocal creates a clean local context for slide index (1-based)
func NewLocal(g Global, index int) *Local {
	return &Local{
		Global:     g,
		PageIndex:  index,
		addClasses: make(map[string]string),
		addStyles:  make(map[string]string),
	}
}

// SetCaption stores a caption for the next table or image
func (l *Local) SetCaption(text string) {
	l.caption = text
	l.hasCaption = true
}

// TakeCaption returns and clears the pending caption
func (l *Local) TakeCaption() (string, bool) {
	if !l.hasCaption || l.caption == "" {
		return "", false
	}
	c := l.caption
	l.caption, l.hasCaption = "", false
	return c, true
}

// QueueClass appends classes for the next element with the given tag
func (l *Local) QueueClass(tag, classes string) {
	queue(l.addClasses, tag, classes)
}

// QueueStyle appends inline CSS for the next element with the given tag
func (l *Local) QueueStyle(tag, css string) {
	queue(l.addStyles, tag, css)
}

func queue(m map[string]string, tag, value string) {
	tag = strings.ToLower(tag)
	if prev, ok := m[tag]; ok && prev != "" {
		m[tag] = prev + " " + value
		return
	}
	m[tag] = value
}

// TakeAttrs returns and clears the queued class and style for a tag
func (l *Local) TakeAttrs(tag string) (class, style string) {
	tag = strings.ToLower(tag)
	class, style = l.addClasses[tag], l.addStyles[tag]
	delete(l.addClasses, tag)
	delete(l.addStyles, tag)
	return class, style
}

// BeginColumns opens a column layout and returns the first column weight
func (l *Local) BeginColumns(ratios []float64) float64 {
	if len(ratios) == 0 {
		ratios = DefaultColumnRatios
	}
	l.columns = append([]float64(nil), ratios...)
	l.columnIndex = 0
	l.inColumns = true
	return l.columns[0]
}

// NextColumn advances to the next column. Weights past the end of the ratio
// list are 1. ok is false when no layout is open.
func (l *Local) NextColumn() (weight float64, ok bool) {
	if !l.inColumns {
		return 0, false
	}
	l.columnIndex++
	if l.columnIndex < len(l.columns) {
		return l.columns[l.columnIndex], true
	}
	return 1, true
}

// EndColumns closes the column layout
func (l *Local) EndColumns() {
	l.columns = nil
	l.columnIndex = 0
	l.inColumns = false
}

// InColumns reports whether a column layout is open
func (l *Local) InColumns() bool {
	return l.inColumns
}
