package oracle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// CommandBackend runs a local CLI assistant with the prompt as last argument
// and reads the reply from stdout.
type CommandBackend struct {
	Path string
	Args []string
}

// NewCommandBackend creates a backend for the given executable.
func NewCommandBackend(path string, args ...string) *CommandBackend {
	return &CommandBackend{Path: path, Args: args}
}

func (b *CommandBackend) Name() string { return "command:" + b.Path }

func (b *CommandBackend) Call(ctx context.Context, prompt string) (string, error) {
	bin, err := exec.LookPath(b.Path)
	if err != nil {
		return "", fmt.Errorf("%w: %s not found: %v", ErrUnavailable, b.Path, err)
	}

	args := append(append([]string(nil), b.Args...), prompt)
	cmd := exec.CommandContext(ctx, bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("run %s: %w", b.Path, ctx.Err())
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("%s exited with %d: %s", b.Path, exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
		}
		return "", fmt.Errorf("run %s: %w", b.Path, err)
	}
	return stdout.String(), nil
}
