package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected *Command
	}{
		{
			name:     "aspect",
			input:    "@aspect 4:3",
			expected: &Command{Type: CmdAspect, Scope: ScopeGlobal, Aspect: [2]int{4, 3}},
		},
		{
			name:     "whole comment is unwrapped",
			input:    "  <!--   @aspect 16:10  -->  ",
			expected: &Command{Type: CmdAspect, Scope: ScopeGlobal, Aspect: [2]int{16, 10}},
		},
		{
			name:     "theme trims path",
			input:    "@theme  themes/dark.css ",
			expected: &Command{Type: CmdTheme, Scope: ScopeGlobal, Value: "themes/dark.css"},
		},
		{
			name:     "meta title",
			input:    "@title Slides *in* Go",
			expected: &Command{Type: CmdMeta, Scope: ScopeGlobal, Key: "title", Value: "Slides *in* Go"},
		},
		{
			name:     "meta affiliation",
			input:    "@affiliation ACME",
			expected: &Command{Type: CmdMeta, Scope: ScopeGlobal, Key: "affiliation", Value: "ACME"},
		},
		{
			name:     "header",
			input:    "@header Chapter **1**",
			expected: &Command{Type: CmdHeader, Scope: ScopeGlobal, Value: "Chapter **1**"},
		},
		{
			name:     "empty footer",
			input:    "@footer",
			expected: &Command{Type: CmdFooter, Scope: ScopeGlobal, Value: ""},
		},
		{
			name:     "caption",
			input:    "@caption Figure 1",
			expected: &Command{Type: CmdCaption, Scope: ScopeLocal, Value: "Figure 1"},
		},
		{
			name:     "multicolumn with ratios",
			input:    "@begin multicolumn 2:1:1",
			expected: &Command{Type: CmdMulticolumnBegin, Scope: ScopeLocal, Ratios: []float64{2, 1, 1}},
		},
		{
			name:     "multicolumn defaults to two equal columns",
			input:    "@begin multicolumn",
			expected: &Command{Type: CmdMulticolumnBegin, Scope: ScopeLocal, Ratios: []float64{1, 1}},
		},
		{
			name:     "multicolumn bad ratio degrades to one",
			input:    "@begin multicolumn 3:x",
			expected: &Command{Type: CmdMulticolumnBegin, Scope: ScopeLocal, Ratios: []float64{3, 1}},
		},
		{
			name:     "next column",
			input:    "@nextcolumn",
			expected: &Command{Type: CmdMulticolumnNext, Scope: ScopeLocal},
		},
		{
			name:     "end multicolumn",
			input:    "@end  multicolumn",
			expected: &Command{Type: CmdMulticolumnEnd, Scope: ScopeLocal},
		},
		{
			name:     "addclass lowercases the tag",
			input:    "@addclass TD color-red wide",
			expected: &Command{Type: CmdAddClass, Scope: ScopeLocal, Key: "td", Value: "color-red wide"},
		},
		{
			name:     "addstyle",
			input:    "@addstyle p color:red;",
			expected: &Command{Type: CmdAddStyle, Scope: ScopeLocal, Key: "p", Value: "color:red;"},
		},
		{
			name:     "cover",
			input:    "@cover",
			expected: &Command{Type: CmdCover, Scope: ScopeLocal},
		},
		{name: "empty", input: "", expected: nil},
		{name: "empty comment", input: "<!-- -->", expected: nil},
		{name: "plain comment", input: "TODO fix layout", expected: nil},
		{name: "hide is handled by the caller", input: "@hide", expected: nil},
		{name: "notes are handled by preprocessing", input: "@note: say hi", expected: nil},
		{name: "pageclass is handled by preprocessing", input: "@pageclass wide", expected: nil},
		{name: "directives are case sensitive", input: "@Cover", expected: nil},
		{name: "aspect needs integers", input: "@aspect wide", expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseCommand(tt.input))
		})
	}
}

func TestParseGlobal(t *testing.T) {
	preamble := `<!-- @aspect 4:3 -->
<!-- @title First -->
<!-- @title Second -->
<!-- @theme theme.css -->
<!-- @header Top -->
<!-- @footer © me -->
<!-- @caption ignored: local scope -->
<!-- just a comment -->
<!-- @presenter Ada -->`

	g := ParseGlobal(preamble)
	assert.Equal(t, [2]int{4, 3}, g.AspectRatio)
	assert.Equal(t, "Second", g.Meta.Title)
	assert.Equal(t, "Ada", g.Meta.Presenter)
	assert.Equal(t, "theme.css", g.ThemeCSS)
	assert.Equal(t, "Top", g.Header)
	assert.Equal(t, "© me", g.Footer)
}

func TestParseGlobalDefaults(t *testing.T) {
	g := ParseGlobal("no directives here")
	assert.Equal(t, DefaultGlobal(), g)
	assert.Equal(t, [2]int{16, 9}, g.AspectRatio)
}

func TestParseGlobalIsPure(t *testing.T) {
	preamble := "<!-- @aspect 4:3 -->\n<!-- @date 2026-10-17 -->"
	a, b := ParseGlobal(preamble), ParseGlobal(preamble)
	assert.Equal(t, a, b)
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), ParseGlobal("<!-- @aspect 16:9 -->").Fingerprint())
}

func TestCanvasSize(t *testing.T) {
	w, h := Global{AspectRatio: [2]int{4, 3}}.CanvasSize(540)
	assert.Equal(t, 720.0, w)
	assert.Equal(t, 540.0, h)

	w, _ = Global{}.CanvasSize(900)
	assert.Equal(t, 1600.0, w)
}

func TestLocalIsolation(t *testing.T) {
	g := ParseGlobal("<!-- @title Deck -->")

	first := NewLocal(g, 1)
	first.QueueClass("p", "red")
	first.SetCaption("leftover")
	first.BeginColumns([]float64{2, 1})
	first.Meta.Title = "mutated"

	second := NewLocal(g, 2)
	class, style := second.TakeAttrs("p")
	assert.Empty(t, class)
	assert.Empty(t, style)
	_, ok := second.TakeCaption()
	assert.False(t, ok)
	assert.False(t, second.InColumns())
	assert.Equal(t, "Deck", second.Meta.Title)
	assert.Equal(t, 2, second.PageIndex)
}

func TestLocalQueuedAttrsAreConsumedOnce(t *testing.T) {
	l := NewLocal(DefaultGlobal(), 1)
	l.QueueClass("P", "a")
	l.QueueClass("p", "b")
	l.QueueStyle("p", "color:red;")

	class, style := l.TakeAttrs("p")
	assert.Equal(t, "a b", class)
	assert.Equal(t, "color:red;", style)

	class, style = l.TakeAttrs("p")
	assert.Empty(t, class)
	assert.Empty(t, style)
}

func TestLocalColumns(t *testing.T) {
	l := NewLocal(DefaultGlobal(), 1)

	_, ok := l.NextColumn()
	assert.False(t, ok, "next without begin")

	assert.Equal(t, 3.0, l.BeginColumns([]float64{3, 2}))
	w, ok := l.NextColumn()
	require.True(t, ok)
	assert.Equal(t, 2.0, w)

	w, ok = l.NextColumn()
	require.True(t, ok)
	assert.Equal(t, 1.0, w, "exhausted ratio list falls back to 1")

	l.EndColumns()
	assert.False(t, l.InColumns())
}

func TestLocalCaption(t *testing.T) {
	l := NewLocal(DefaultGlobal(), 1)
	l.SetCaption("one")
	l.SetCaption("two")

	c, ok := l.TakeCaption()
	require.True(t, ok)
	assert.Equal(t, "two", c)

	_, ok = l.TakeCaption()
	assert.False(t, ok)
}
