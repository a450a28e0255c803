package deck

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"

	"github.com/gubarz/mdslides/internal/parser"
)

// Format selects the build output
type Format string

const (
	FormatJSON Format = "json"
	FormatHTML Format = "html"
)

// ParseFormat validates a format name
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatJSON, FormatHTML:
		return Format(s), nil
	case "":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unknown format %q (want json or html)", s)
}

// OutputOptions controls asset references in written decks
type OutputOptions struct {
	BaseURL      string
	Bust         int64
	HighlightCSS string
	BaseHeight   float64
}

type jsonDeck struct {
	AspectRatio [2]int      `json:"aspectRatio"`
	ThemeCSS    string      `json:"themeCss,omitempty"`
	Meta        parser.Meta `json:"meta"`
	Pages       int         `json:"pages"`
	Slides      []Slide     `json:"slides"`
}

// WriteJSON writes the deck as indented JSON
func WriteJSON(w io.Writer, d *Deck, opts OutputOptions) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonDeck{
		AspectRatio: d.Global.AspectRatio,
		ThemeCSS:    d.ThemeURL(opts.BaseURL, opts.Bust),
		Meta:        d.Global.Meta,
		Pages:       d.PageCount(),
		Slides:      d.Slides,
	})
}

var deckTemplate = template.Must(template.New("deck").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
{{if .Theme}}<link rel="stylesheet" href="{{.Theme}}">
{{end}}<style>
.slide { position: relative; width: {{.Width}}px; height: {{.Height}}px; margin: 24px auto; overflow: hidden; box-shadow: 0 2px 8px rgba(0,0,0,.2); }
.slide-header, .slide-footer { position: absolute; left: 0; right: 0; }
.slide-header { top: 0; }
.slide-footer { bottom: 0; }
.page-number { position: absolute; right: 12px; bottom: 8px; }
.multicolumn-container { display: flex; gap: 1em; }
.code-block-wrapper { position: relative; }
.code-background { position: absolute; inset: 0; pointer-events: none; }
.code-bg-row.highlighted-line { background: rgba(255, 230, 0, .25); }
{{.HighlightCSS}}
</style>
</head>
<body>
{{range .Slides}}{{if not .Hidden}}<section class="slide {{.ClassName}}" data-start-line="{{.Range.StartLine}}">
{{if .Header}}<header class="slide-header">{{.Header}}</header>
{{end}}<div class="slide-body">
{{.HTML}}
</div>
{{if .Footer}}<footer class="slide-footer">{{.Footer}}</footer>
{{end}}{{if .Page}}<div class="page-number">{{.Page}}</div>
{{end}}{{if .Notes}}<aside class="notes">{{.Notes}}</aside>
{{end}}</section>
{{end}}{{end}}</body>
</html>
`))

type htmlSlide struct {
	HTML      template.HTML
	Notes     template.HTML
	Header    template.HTML
	Footer    template.HTML
	ClassName string
	Page      int
	Hidden    bool
	Range     struct{ StartLine int }
}

type htmlDeck struct {
	Title        string
	Theme        string
	Width        float64
	Height       float64
	HighlightCSS template.CSS
	Slides       []htmlSlide
}

// WriteHTML writes a standalone HTML page holding every visible slide. Slide
// HTML is trusted output of the renderer.
func WriteHTML(w io.Writer, d *Deck, opts OutputOptions) error {
	height := opts.BaseHeight
	if height <= 0 {
		height = 540
	}
	width, height := d.Global.CanvasSize(height)

	data := htmlDeck{
		Title:        d.Global.Meta.Title,
		Theme:        d.ThemeURL(opts.BaseURL, opts.Bust),
		Width:        width,
		Height:       height,
		HighlightCSS: template.CSS(opts.HighlightCSS),
		Slides:       make([]htmlSlide, len(d.Slides)),
	}
	for i, s := range d.Slides {
		hs := htmlSlide{
			HTML:      template.HTML(s.HTML),
			Notes:     template.HTML(s.NoteHTML),
			Header:    template.HTML(s.Header),
			Footer:    template.HTML(s.Footer),
			ClassName: s.ClassName,
			Page:      s.Page,
			Hidden:    s.Hidden,
		}
		hs.Range.StartLine = s.Range.StartLine
		data.Slides[i] = hs
	}

	if err := deckTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("write html deck: %w", err)
	}
	return nil
}

// Write dispatches on format
func Write(w io.Writer, d *Deck, format Format, opts OutputOptions) error {
	switch format {
	case FormatHTML:
		return WriteHTML(w, d, opts)
	default:
		return WriteJSON(w, d, opts)
	}
}
