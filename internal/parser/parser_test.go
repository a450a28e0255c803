package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitBlocks(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		expected []Block
	}{
		{
			name:     "empty document yields one empty block",
			doc:      "",
			expected: []Block{{Raw: "", StartLine: 1, EndLine: 1}},
		},
		{
			name: "preamble and two slides",
			doc:  "<!-- @aspect 4:3 -->\n---\n# Hi\n---\n## Two",
			expected: []Block{
				{Raw: "<!-- @aspect 4:3 -->", StartLine: 1, EndLine: 1},
				{Raw: "# Hi", StartLine: 3, EndLine: 3},
				{Raw: "## Two", StartLine: 5, EndLine: 5},
			},
		},
		{
			name:     "separator inside open fence is content",
			doc:      "```\n---\n```",
			expected: []Block{{Raw: "```\n---\n```", StartLine: 1, EndLine: 3}},
		},
		{
			name: "separator with surrounding whitespace",
			doc:  "a\n  ---  \nb",
			expected: []Block{
				{Raw: "a", StartLine: 1, EndLine: 1},
				{Raw: "b", StartLine: 3, EndLine: 3},
			},
		},
		{
			name: "consecutive separators produce an empty slide",
			doc:  "pre\n---\n---\nlast",
			expected: []Block{
				{Raw: "pre", StartLine: 1, EndLine: 1},
				{Raw: "", StartLine: 3, EndLine: 2},
				{Raw: "last", StartLine: 4, EndLine: 4},
			},
		},
		{
			name: "trailing separator emits empty trailing block",
			doc:  "pre\n---\n",
			expected: []Block{
				{Raw: "pre", StartLine: 1, EndLine: 1},
				{Raw: "", StartLine: 3, EndLine: 3},
			},
		},
		{
			name: "crlf line endings",
			doc:  "pre\r\n---\r\nslide",
			expected: []Block{
				{Raw: "pre", StartLine: 1, EndLine: 1},
				{Raw: "slide", StartLine: 3, EndLine: 3},
			},
		},
		{
			name: "longer dash runs are not separators",
			doc:  "a\n----\nb",
			expected: []Block{
				{Raw: "a\n----\nb", StartLine: 1, EndLine: 3},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SplitBlocks(tt.doc))
		})
	}
}

func TestSplitBlocksFenceToggleIsTextual(t *testing.T) {
	// A closing fence with trailing text still toggles the state.
	doc := "```go\n---\n```oops\n---\nafter"
	blocks := SplitBlocks(doc)
	require.Len(t, blocks, 2)
	assert.Equal(t, "```go\n---\n```oops", blocks[0].Raw)
	assert.Equal(t, "after", blocks[1].Raw)
}

func TestSplitBlocksLineAccounting(t *testing.T) {
	doc := "pre\n---\none\ntwo\n---\nthree\n\n---\nfour"
	blocks := SplitBlocks(doc)
	require.Len(t, blocks, 4)

	for i := 0; i+1 < len(blocks); i++ {
		assert.Equal(t, blocks[i].EndLine+2, blocks[i+1].StartLine, "block %d", i)
	}
	assert.True(t, blocks[1].Contains(4))
	assert.False(t, blocks[1].Contains(5))
}

func TestJoinBlocksRoundTrip(t *testing.T) {
	docs := []string{
		"",
		"pre\n---\n# A\n---\n## B",
		"```\n---\n```\n---\ntext",
		"pre\n---\n---\nlast\n",
	}
	raws := func(blocks []Block) []string {
		out := make([]string, len(blocks))
		for i, b := range blocks {
			out[i] = b.Raw
		}
		return out
	}
	for _, doc := range docs {
		blocks := SplitBlocks(doc)
		assert.Equal(t, raws(blocks), raws(SplitBlocks(JoinBlocks(blocks))), "doc %q", doc)
	}
}

func TestPreamble(t *testing.T) {
	assert.Equal(t, "", Preamble(nil))
	assert.Equal(t, "x", Preamble([]Block{{Raw: "x"}}))
}
