package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// PlainLanguage is the highlighting mode for unknown languages
const PlainLanguage = "plaintext"

// Highlighter turns source code into highlighted HTML
type Highlighter interface {
	Highlight(code, lang string) (string, error)
	HasLanguage(lang string) bool
}

// ChromaHighlighter highlights with chroma using CSS classes
type ChromaHighlighter struct {
	style     *chroma.Style
	formatter *chromahtml.Formatter
}

// NewChromaHighlighter creates a highlighter for the given chroma style name
func NewChromaHighlighter(styleName string) *ChromaHighlighter {
	return &ChromaHighlighter{
		style: styles.Get(styleName),
		formatter: chromahtml.New(
			chromahtml.WithClasses(true),
			chromahtml.PreventSurroundingPre(true),
		),
	}
}

// HasLanguage reports whether chroma knows a lexer for lang
func (h *ChromaHighlighter) HasLanguage(lang string) bool {
	if strings.TrimSpace(lang) == "" {
		return false
	}
	return lexers.Get(lang) != nil
}

// Highlight returns the code as highlighted HTML spans without a <pre> wrapper
func (h *ChromaHighlighter) Highlight(code, lang string) (string, error) {
	lexer := lexers.Get(lang)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return "", fmt.Errorf("tokenise %s: %w", lang, err)
	}

	var buf bytes.Buffer
	if err := h.formatter.Format(&buf, h.style, iterator); err != nil {
		return "", fmt.Errorf("format %s: %w", lang, err)
	}
	return buf.String(), nil
}

// CSS returns the stylesheet for the configured style
func (h *ChromaHighlighter) CSS() (string, error) {
	var buf bytes.Buffer
	if err := h.formatter.WriteCSS(&buf, h.style); err != nil {
		return "", err
	}
	return buf.String(), nil
}
