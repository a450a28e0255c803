package diagram

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/gubarz/mdslides/internal/executor"
)

const mermaidImgStyle = "max-width: 100%; height: auto; display: block; margin: 0 auto;"

// MermaidCLI renders with mermaid-cli reading stdin and writing SVG to stdout
type MermaidCLI struct {
	Command string
	Args    []string
	Runner  executor.Runner
}

// DefaultMermaidArgs makes mmdc read stdin and write SVG to stdout
var DefaultMermaidArgs = []string{"--input", "-", "--output", "-", "--outputFormat", "svg"}

// NewMermaidCLI creates a mermaid backend. command defaults to "mmdc".
func NewMermaidCLI(command string, args []string, runner executor.Runner) *MermaidCLI {
	if command == "" {
		command = "mmdc"
	}
	if len(args) == 0 {
		args = DefaultMermaidArgs
	}
	return &MermaidCLI{Command: command, Args: args, Runner: runner}
}

// Render implements Renderer. The SVG comes back as a data URI image.
func (m *MermaidCLI) Render(ctx context.Context, source string) (string, error) {
	if strings.TrimSpace(source) == "" {
		return "", ErrEmptySource
	}

	out, err := m.Runner.Run(ctx, strings.NewReader(source), m.Command, m.Args...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRendererUnavailable, err)
	}
	return SVGImage(string(out), "Mermaid Diagram"), nil
}

// SVGImage wraps an SVG document in an <img> with a base64 data URI
func SVGImage(svg, alt string) string {
	uri := "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(svg))
	return `<img src="` + uri + `" alt="` + alt + `" style="` + mermaidImgStyle + `" />`
}
