package render

import (
	"strconv"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// KindMath is the node kind of inline and display math spans
var KindMath = ast.NewNodeKind("Math")

// Math is a $..$ or $$..$$ span, typeset client side
type Math struct {
	ast.BaseInline
	Display bool
	Value   []byte
}

// Kind implements ast.Node
func (n *Math) Kind() ast.NodeKind {
	return KindMath
}

// Dump implements ast.Node
func (n *Math) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{
		"Display": strconv.FormatBool(n.Display),
		"Value":   string(n.Value),
	}, nil)
}

type mathParser struct{}

func (p *mathParser) Trigger() []byte {
	return []byte{'$'}
}

func (p *mathParser) Parse(parent ast.Node, block text.Reader, pc parser.Context) ast.Node {
	line, _ := block.PeekLine()
	if len(line) < 2 {
		return nil
	}

	delim := 1
	if line[1] == '$' {
		delim = 2
	}
	rest := line[delim:]

	end := -1
	for i := 0; i < len(rest); i++ {
		if rest[i] == '\\' {
			i++
			continue
		}
		if rest[i] != '$' {
			continue
		}
		if delim == 2 {
			if i+1 < len(rest) && rest[i+1] == '$' {
				end = i
				break
			}
			continue
		}
		end = i
		break
	}
	if end <= 0 {
		return nil
	}

	value := rest[:end]
	// "$5 and $10" is prose, not math
	if delim == 1 && (util.IsSpace(value[0]) || util.IsSpace(value[len(value)-1])) {
		return nil
	}

	block.Advance(delim + end + delim)
	return &Math{Display: delim == 2, Value: append([]byte(nil), value...)}
}

type mathHTMLRenderer struct{}

func (r *mathHTMLRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindMath, r.renderMath)
}

func (r *mathHTMLRenderer) renderMath(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*Math)
	if n.Display {
		_, _ = w.WriteString(`<span class="math display">\[`)
		_, _ = w.Write(util.EscapeHTML(n.Value))
		_, _ = w.WriteString(`\]</span>`)
	} else {
		_, _ = w.WriteString(`<span class="math inline">\(`)
		_, _ = w.Write(util.EscapeHTML(n.Value))
		_, _ = w.WriteString(`\)</span>`)
	}
	return ast.WalkSkipChildren, nil
}

type mathExtension struct{}

// MathExtension adds $..$ and $$..$$ spans to a goldmark instance
var MathExtension goldmark.Extender = &mathExtension{}

func (e *mathExtension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(parser.WithInlineParsers(
		util.Prioritized(&mathParser{}, 500),
	))
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(&mathHTMLRenderer{}, 500),
	))
}
