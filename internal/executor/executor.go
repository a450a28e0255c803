package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// ErrCommandNotFound is returned when the executable is not in PATH
var ErrCommandNotFound = errors.New("command not found")

// ============================================================================
// Runner Interface
// ============================================================================

// Runner runs an external program, feeding stdin and returning stdout
type Runner interface {
	Run(ctx context.Context, stdin io.Reader, name string, args ...string) ([]byte, error)
}

// ============================================================================
// Clipboard Interface
// ============================================================================

// Clipboard defines the interface for clipboard operations
type Clipboard interface {
	Copy(text string) error
}

// systemClipboard implements Clipboard using system commands
type systemClipboard struct {
	runner Runner
}

// SystemClipboard returns a clipboard backed by the first available tool
func SystemClipboard() Clipboard {
	return &systemClipboard{runner: &Executor{}}
}

// Copy copies text to the system clipboard
func (c *systemClipboard) Copy(text string) error {
	name, args := findClipboardCommand()
	if name == "" {
		return fmt.Errorf("clipboard: %w", ErrCommandNotFound)
	}
	_, err := c.runner.Run(context.Background(), strings.NewReader(text), name, args...)
	return err
}

// findClipboardCommand returns the clipboard command for the system
func findClipboardCommand() (string, []string) {
	switch {
	case CommandExists("wl-copy"):
		return "wl-copy", nil
	case CommandExists("xclip"):
		return "xclip", []string{"-selection", "clipboard"}
	case CommandExists("xsel"):
		return "xsel", []string{"--clipboard", "--input"}
	case CommandExists("pbcopy"):
		return "pbcopy", nil
	default:
		return "", nil
	}
}

// CommandExists reports whether a command is available in PATH
func CommandExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// ============================================================================
// Executor
// ============================================================================

// Executor runs processes with os/exec
type Executor struct {
	// Env is appended to the inherited environment
	Env []string
}

// New creates an executor with the inherited environment
func New() *Executor {
	return &Executor{}
}

// Run executes name with args. The process is killed when ctx is done.
func (e *Executor) Run(ctx context.Context, stdin io.Reader, name string, args ...string) ([]byte, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, ErrCommandNotFound)
	}

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Env = append(os.Environ(), e.Env...)
	if stdin != nil {
		cmd.Stdin = stdin
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s: %w", name, ctxErr)
		}
		return nil, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}

	return stdout.Bytes(), nil
}
