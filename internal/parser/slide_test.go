package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreprocess(t *testing.T) {
	raw := `<!-- @pageclass wide -->
# Title
<!-- @note: first note -->
Body
<!-- @note:
second
note -->
<!-- @header Local **top** -->
<!-- @footer -->`

	p := Preprocess(raw)
	assert.Equal(t, "wide", p.PageClass)
	assert.Equal(t, []string{"first note", "second\nnote"}, p.Notes)
	assert.Equal(t, "first note\n\nsecond\nnote", p.NoteMarkdown())
	require.NotNil(t, p.Header)
	assert.Equal(t, "Local **top**", *p.Header)
	require.NotNil(t, p.Footer)
	assert.Equal(t, "", *p.Footer)
	assert.NotContains(t, p.Markdown, "@note")
	assert.NotContains(t, p.Markdown, "@pageclass")
	assert.NotContains(t, p.Markdown, "@header")
	assert.NotContains(t, p.Markdown, "@footer")
	assert.Contains(t, p.Markdown, "# Title")
	assert.False(t, p.Cover)
	assert.False(t, p.Hidden)
}

func TestPreprocessDefaults(t *testing.T) {
	p := Preprocess("# Plain")
	assert.Equal(t, DefaultPageClass, p.PageClass)
	assert.Nil(t, p.Header)
	assert.Nil(t, p.Footer)
	assert.Empty(t, p.Notes)
	assert.Equal(t, "# Plain", p.Markdown)
}

func TestPreprocessCoverAndHide(t *testing.T) {
	p := Preprocess("<!-- @pageclass wide -->\n<!-- @cover -->")
	assert.Equal(t, "cover", p.PageClass)
	assert.True(t, p.Cover)
	assert.Contains(t, p.Markdown, "@cover", "cover stays for the renderer")

	p = Preprocess("<!-- @hide -->\ntext")
	assert.True(t, p.Hidden)
	assert.True(t, IsHidden("<!-- @hide -->"))
	assert.False(t, IsHidden("@hide"))
	assert.True(t, IsCover("<!--@cover-->"))
}

func TestCoverMarkerIsCaseSensitive(t *testing.T) {
	p := Preprocess("<!-- @COVER -->\n# Title")
	assert.False(t, p.Cover)
	assert.Equal(t, DefaultPageClass, p.PageClass)
	assert.False(t, IsCover("<!-- @Cover -->"))
	assert.Nil(t, ParseCommand("@COVER"), "directive parser agrees")
}

func TestPreprocessOnlyFirstHeaderIsTaken(t *testing.T) {
	p := Preprocess("<!-- @header one -->\n<!-- @header two -->")
	require.NotNil(t, p.Header)
	assert.Equal(t, "one", *p.Header)
	assert.Contains(t, p.Markdown, "@header two")
}

func TestNormalizeMath(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"no math", "plain", "plain"},
		{"inline", `area \(\pi r^2\)`, `area $\pi r^2$`},
		{"display", `\[E = mc^2\]`, `$$E = mc^2$$`},
		{"both", `\(a\) and \[b\]`, `$a$ and $$b$$`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeMath(tt.input))
		})
	}
}
