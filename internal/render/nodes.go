package render

import (
	"bytes"
	"encoding/base64"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yuin/goldmark/ast"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"

	"github.com/gubarz/mdslides/internal/parser"
)

// DrawioMarker is the image alt text marking an embedded diagram-editor payload
const DrawioMarker = "@drawio"

var (
	absoluteURLRe = regexp.MustCompile(`^(https?:|/|data:)`)
	whitespaceRe  = regexp.MustCompile(`[\r\n\s]`)
)

// slideNodes overrides goldmark's node renderers for one slide. Handlers read
// and mutate the slide's LOCAL context in document order.
type slideNodes struct {
	local       *parser.Local
	baseURL     string
	bust        int64
	highlighter Highlighter
	inline      func(string) string
	inner       renderer.Renderer
	log         zerolog.Logger
}

func (s *slideNodes) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindHTMLBlock, s.renderHTMLBlock)
	reg.Register(ast.KindRawHTML, s.renderRawHTML)
	reg.Register(ast.KindHeading, s.renderHeading)
	reg.Register(ast.KindParagraph, s.renderParagraph)
	reg.Register(ast.KindList, s.renderList)
	reg.Register(ast.KindListItem, s.renderListItem)
	reg.Register(ast.KindBlockquote, s.renderBlockquote)
	reg.Register(east.KindTable, s.renderTable)
	reg.Register(ast.KindImage, s.renderImage)
	reg.Register(ast.KindFencedCodeBlock, s.renderFencedCode)
	reg.Register(ast.KindCodeBlock, s.renderCodeBlock)
}

// ============================================================================
// Helpers
// ============================================================================

// children renders the child nodes of n into a separate buffer so queued
// attributes are consumed after the subtree, as nested elements come first.
func (s *slideNodes) children(source []byte, n ast.Node) []byte {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if err := s.inner.Render(&buf, source, c); err != nil {
			s.log.Warn().Err(err).Str("node", c.Kind().String()).Msg("render node")
		}
	}
	return buf.Bytes()
}

// attrs consumes the queued class and style for tag
func (s *slideNodes) attrs(tag string) string {
	class, style := s.local.TakeAttrs(tag)
	var b strings.Builder
	if class != "" {
		b.WriteString(` class="`)
		b.Write(util.EscapeHTML([]byte(class)))
		b.WriteByte('"')
	}
	if style != "" {
		b.WriteString(` style="`)
		b.Write(util.EscapeHTML([]byte(style)))
		b.WriteByte('"')
	}
	return b.String()
}

func plainText(n ast.Node, source []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(source))
		case *ast.String:
			b.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}

func formatWeight(w float64) string {
	return strconv.FormatFloat(w, 'f', -1, 64)
}

// ============================================================================
// Directives
// ============================================================================

func (s *slideNodes) renderHTMLBlock(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*ast.HTMLBlock)

	var raw bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		raw.Write(seg.Value(source))
	}
	if n.HasClosure() {
		raw.Write(n.ClosureLine.Value(source))
	}

	_, _ = w.WriteString(s.directive(raw.String()))
	return ast.WalkSkipChildren, nil
}

func (s *slideNodes) renderRawHTML(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*ast.RawHTML)

	var raw bytes.Buffer
	for i := 0; i < n.Segments.Len(); i++ {
		seg := n.Segments.At(i)
		raw.Write(seg.Value(source))
	}

	_, _ = w.WriteString(s.directive(raw.String()))
	return ast.WalkSkipChildren, nil
}

// directive executes a comment directive and returns its markup. Anything
// that is not a directive is returned verbatim.
func (s *slideNodes) directive(raw string) string {
	if !strings.HasPrefix(strings.TrimSpace(raw), "<!--") {
		return raw
	}
	cmd := parser.ParseCommand(raw)
	if cmd == nil {
		return raw
	}
	if cmd.Scope == parser.ScopeGlobal {
		return ""
	}

	switch cmd.Type {
	case parser.CmdMulticolumnBegin:
		first := s.local.BeginColumns(cmd.Ratios)
		return `<div class="multicolumn-container"><div class="multicolumn-col" style="flex: ` + formatWeight(first) + `">`
	case parser.CmdMulticolumnNext:
		weight, ok := s.local.NextColumn()
		if !ok {
			return ""
		}
		return `</div><div class="multicolumn-col" style="flex: ` + formatWeight(weight) + `">`
	case parser.CmdMulticolumnEnd:
		if !s.local.InColumns() {
			return ""
		}
		s.local.EndColumns()
		return "</div></div>"
	case parser.CmdAddClass:
		s.local.QueueClass(cmd.Key, cmd.Value)
		return ""
	case parser.CmdAddStyle:
		s.local.QueueStyle(cmd.Key, cmd.Value)
		return ""
	case parser.CmdCaption:
		s.local.SetCaption(cmd.Value)
		return ""
	case parser.CmdCover:
		return s.cover()
	}
	return raw
}

func (s *slideNodes) cover() string {
	var b strings.Builder
	for _, f := range s.local.Meta.Fields() {
		if f.Value == "" {
			continue
		}
		b.WriteString(`<div class="`)
		b.WriteString(f.Name)
		b.WriteString(`">`)
		b.WriteString(s.inline(f.Value))
		b.WriteString(`</div>`)
	}
	return b.String()
}

// ============================================================================
// Block elements
// ============================================================================

func (s *slideNodes) renderHeading(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*ast.Heading)
	tag := "h" + strconv.Itoa(n.Level)

	body := s.children(source, n)
	_, _ = w.WriteString("<" + tag + s.attrs(tag) + ">")
	_, _ = w.Write(body)
	_, _ = w.WriteString("</" + tag + ">\n")
	return ast.WalkSkipChildren, nil
}

func (s *slideNodes) renderParagraph(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	body := s.children(source, node)
	_, _ = w.WriteString("<p" + s.attrs("p") + ">")
	_, _ = w.Write(body)
	_, _ = w.WriteString("</p>\n")
	return ast.WalkSkipChildren, nil
}

func (s *slideNodes) renderList(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*ast.List)
	tag := "ul"
	if n.IsOrdered() {
		tag = "ol"
	}

	body := s.children(source, n)
	_, _ = w.WriteString("<" + tag)
	if n.IsOrdered() && n.Start != 1 {
		_, _ = w.WriteString(` start="` + strconv.Itoa(n.Start) + `"`)
	}
	_, _ = w.WriteString(s.attrs(tag) + ">\n")
	_, _ = w.Write(body)
	_, _ = w.WriteString("</" + tag + ">\n")
	return ast.WalkSkipChildren, nil
}

func (s *slideNodes) renderListItem(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	body := s.children(source, node)
	_, _ = w.WriteString("<li" + s.attrs("li") + ">")
	if fc := node.FirstChild(); fc != nil {
		if _, ok := fc.(*ast.TextBlock); !ok {
			_ = w.WriteByte('\n')
		}
	}
	_, _ = w.Write(body)
	_, _ = w.WriteString("</li>\n")
	return ast.WalkSkipChildren, nil
}

func (s *slideNodes) renderBlockquote(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	body := s.children(source, node)
	_, _ = w.WriteString("<blockquote" + s.attrs("blockquote") + ">\n")
	_, _ = w.Write(body)
	_, _ = w.WriteString("</blockquote>\n")
	return ast.WalkSkipChildren, nil
}

// renderTable replaces only the outer element; header and rows keep
// goldmark's table renderer.
func (s *slideNodes) renderTable(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	body := s.children(source, node)
	_, _ = w.WriteString("<table" + s.attrs("table") + ">\n")
	if caption, ok := s.local.TakeCaption(); ok {
		_, _ = w.WriteString("<caption>" + s.inline(caption) + "</caption>\n")
	}
	_, _ = w.Write(body)
	_, _ = w.WriteString("</table>\n")
	return ast.WalkSkipChildren, nil
}

// ============================================================================
// Images
// ============================================================================

func (s *slideNodes) renderImage(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*ast.Image)
	alt := plainText(n, source)

	var src string
	if alt == DrawioMarker {
		src = s.drawioPayload(string(n.Destination))
		alt = ""
	} else {
		src = s.resolve(string(n.Destination))
	}

	_, _ = w.WriteString(`<figure><img src="`)
	_, _ = w.Write(util.EscapeHTML(util.URLEscape([]byte(src), true)))
	_, _ = w.WriteString(`"`)
	if alt != "" {
		_, _ = w.WriteString(` alt="`)
		_, _ = w.Write(util.EscapeHTML([]byte(alt)))
		_, _ = w.WriteString(`"`)
	}
	if n.Title != nil {
		_, _ = w.WriteString(` title="`)
		_, _ = w.Write(util.EscapeHTML(n.Title))
		_, _ = w.WriteString(`"`)
	}
	_, _ = w.WriteString(s.attrs("img") + " />")
	if caption, ok := s.local.TakeCaption(); ok {
		_, _ = w.WriteString("<figcaption>" + s.inline(caption) + "</figcaption>")
	}
	_, _ = w.WriteString("</figure>")
	return ast.WalkSkipChildren, nil
}

// resolve prefixes relative paths with the base URL and appends the cache bust
func (s *slideNodes) resolve(href string) string {
	if s.baseURL != "" && !absoluteURLRe.MatchString(href) {
		base := s.baseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		href = base + strings.TrimPrefix(href, "./")
	}
	if s.bust > 0 {
		sep := "?"
		if strings.Contains(href, "?") {
			sep = "&"
		}
		href += sep + "_t=" + strconv.FormatInt(s.bust, 10)
	}
	return href
}

// drawioPayload passes an embedded editor payload through without path
// resolution. A base64 payload that does not decode is dropped.
func (s *slideNodes) drawioPayload(href string) string {
	payload := whitespaceRe.ReplaceAllString(href, "")
	_, data, ok := strings.Cut(payload, ";base64,")
	if !ok {
		return payload
	}
	if _, err := base64.StdEncoding.DecodeString(data); err != nil {
		s.log.Warn().Err(err).Int("slide", s.local.PageIndex).Msg("malformed drawio payload")
		return ""
	}
	return payload
}

// ============================================================================
// Code
// ============================================================================

func (s *slideNodes) renderFencedCode(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*ast.FencedCodeBlock)
	info := ""
	if n.Info != nil {
		info = string(n.Info.Segment.Value(source))
	}
	code := blockText(n, source)

	if out, ok := diagramPlaceholder(info, strings.TrimRight(code, "\n")); ok {
		_, _ = w.WriteString(out)
		return ast.WalkSkipChildren, nil
	}
	_, _ = w.WriteString(codeHTML(s.highlighter, info, code, s.attrs("code")))
	return ast.WalkSkipChildren, nil
}

func (s *slideNodes) renderCodeBlock(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	_, _ = w.WriteString(codeHTML(s.highlighter, "", blockText(node, source), s.attrs("code")))
	return ast.WalkSkipChildren, nil
}

func blockText(n ast.Node, source []byte) string {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(source))
	}
	return b.String()
}
