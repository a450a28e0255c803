package render

import (
	"bytes"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"github.com/gubarz/mdslides/internal/parser"
)

// Range is the 1-based inclusive source line span of a slide
type Range struct {
	StartLine int `json:"startLine"`
	EndLine   int `json:"endLine"`
}

// Contains reports whether a document line falls inside the range
func (r Range) Contains(line int) bool {
	return line >= r.StartLine && line <= r.EndLine
}

// Slide is the base render result of one block. HTML may still hold diagram
// placeholders for the diagram stage.
type Slide struct {
	HTML      string `json:"html"`
	NoteHTML  string `json:"noteHtml"`
	Raw       string `json:"raw"`
	ClassName string `json:"className"`
	Range     Range  `json:"range"`
	Header    string `json:"header,omitempty"`
	Footer    string `json:"footer,omitempty"`
	Hidden    bool   `json:"hidden,omitempty"`
	Cover     bool   `json:"cover,omitempty"`
}

// Renderer turns slide blocks into HTML. It holds no per-slide state; every
// RenderSlide call gets a fresh LOCAL context.
type Renderer struct {
	md          goldmark.Markdown
	highlighter Highlighter
	log         zerolog.Logger
}

// Option configures a Renderer
type Option func(*Renderer)

// WithHighlighter sets the code highlighter. nil disables highlighting.
func WithHighlighter(h Highlighter) Option {
	return func(r *Renderer) {
		r.highlighter = h
	}
}

// WithLogger sets the logger used for degraded input
func WithLogger(log zerolog.Logger) Option {
	return func(r *Renderer) {
		r.log = log
	}
}

// New creates a Renderer. The default highlighter uses the "github" chroma style.
func New(opts ...Option) *Renderer {
	r := &Renderer{
		highlighter: NewChromaHighlighter("github"),
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.md = goldmark.New(
		goldmark.WithExtensions(extension.GFM, MathExtension),
		goldmark.WithRendererOptions(html.WithUnsafe(), html.WithHardWraps()),
	)
	return r
}

// RenderSlide renders one slide block. index is the 1-based slide position,
// baseURL resolves relative images and bust (when > 0) is appended to them.
func (r *Renderer) RenderSlide(b parser.Block, g parser.Global, index int, baseURL string, bust int64) Slide {
	prep := parser.Preprocess(b.Raw)
	local := parser.NewLocal(g, index)

	slide := Slide{
		HTML:      r.renderBody(prep.Markdown, local, baseURL, bust),
		Raw:       b.Raw,
		ClassName: prep.PageClass,
		Range:     Range{StartLine: b.StartLine, EndLine: b.EndLine},
		Hidden:    prep.Hidden,
		Cover:     prep.Cover,
	}

	if notes := prep.NoteMarkdown(); notes != "" {
		slide.NoteHTML = r.RenderMarkdown(notes)
	}

	header, footer := g.Header, g.Footer
	if prep.Header != nil {
		header = *prep.Header
	}
	if prep.Footer != nil {
		footer = *prep.Footer
	}
	slide.Header = r.RenderInline(header)
	slide.Footer = r.RenderInline(footer)
	return slide
}

func (r *Renderer) renderBody(markdown string, local *parser.Local, baseURL string, bust int64) string {
	src := []byte(markdown)
	doc := r.md.Parser().Parse(text.NewReader(src))

	nodes := &slideNodes{
		local:       local,
		baseURL:     baseURL,
		bust:        bust,
		highlighter: r.highlighter,
		inline:      r.RenderInline,
		log:         r.log,
	}
	nodes.inner = renderer.NewRenderer(renderer.WithNodeRenderers(
		util.Prioritized(html.NewRenderer(html.WithUnsafe(), html.WithHardWraps()), 1000),
		util.Prioritized(extension.NewTableHTMLRenderer(), 500),
		util.Prioritized(extension.NewStrikethroughHTMLRenderer(), 500),
		util.Prioritized(extension.NewTaskCheckBoxHTMLRenderer(), 500),
		util.Prioritized(&mathHTMLRenderer{}, 500),
		util.Prioritized(nodes, 100),
	))

	var buf bytes.Buffer
	if err := nodes.inner.Render(&buf, src, doc); err != nil {
		r.log.Warn().Err(err).Int("slide", local.PageIndex).Msg("render slide")
	}
	return buf.String()
}

// RenderMarkdown renders a markdown document without slide directives
func (r *Renderer) RenderMarkdown(markdown string) string {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(parser.NormalizeMath(markdown)), &buf); err != nil {
		r.log.Warn().Err(err).Msg("render markdown")
		return ""
	}
	return buf.String()
}

// RenderInline renders a short text without block wrappers. Used for
// header, footer, captions and cover metadata.
func (r *Renderer) RenderInline(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	src := []byte(parser.NormalizeMath(s))
	doc := r.md.Parser().Parse(text.NewReader(src))

	var buf bytes.Buffer
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if n.Kind() != ast.KindParagraph {
			_ = r.md.Renderer().Render(&buf, src, n)
			continue
		}
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			_ = r.md.Renderer().Render(&buf, src, c)
		}
	}
	return strings.TrimSpace(buf.String())
}
