package parser

import (
	"regexp"
	"strings"
)

// Block is a contiguous run of source lines between slide separators
type Block struct {
	Raw       string `json:"raw"`       // Source text, separator lines excluded
	StartLine int    `json:"startLine"` // 1-based, inclusive
	EndLine   int    `json:"endLine"`   // 1-based, inclusive
}

// Contains reports whether a 1-based document line falls inside the block
func (b Block) Contains(line int) bool {
	return line >= b.StartLine && line <= b.EndLine
}

var (
	lineBreakRe = regexp.MustCompile(`\r?\n`)
	separatorRe = regexp.MustCompile(`^---$`)
)

const codeFence = "```"

// SplitBlocks splits a document into blocks on `---` lines outside fenced code.
// Block 0 is the preamble. The result always holds at least one block.
func SplitBlocks(doc string) []Block {
	lines := lineBreakRe.Split(doc, -1)
	blocks := make([]Block, 0, 8)

	var current []string
	startLine := 1
	inCodeBlock := false

	for i, line := range lines {
		lineNo := i + 1
		trimmed := strings.TrimSpace(line)

		// Textual toggle: any line opening with a fence flips the state,
		// whatever its info string.
		if strings.HasPrefix(trimmed, codeFence) {
			inCodeBlock = !inCodeBlock
		}

		if !inCodeBlock && separatorRe.MatchString(trimmed) {
			blocks = append(blocks, Block{
				Raw:       strings.Join(current, "\n"),
				StartLine: startLine,
				EndLine:   lineNo - 1,
			})
			current = nil
			startLine = lineNo + 1
			continue
		}
		current = append(current, line)
	}

	blocks = append(blocks, Block{
		Raw:       strings.Join(current, "\n"),
		StartLine: startLine,
		EndLine:   len(lines),
	})
	return blocks
}

// Preamble returns the raw text of block 0, or "" for an empty slice
func Preamble(blocks []Block) string {
	if len(blocks) == 0 {
		return ""
	}
	return blocks[0].Raw
}

// JoinBlocks restores a document from blocks by re-inserting separators
func JoinBlocks(blocks []Block) string {
	parts := make([]string, len(blocks))
	for i, b := range blocks {
		parts[i] = b.Raw
	}
	return strings.Join(parts, "\n---\n")
}
