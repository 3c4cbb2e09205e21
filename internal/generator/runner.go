package generator

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"git.home.luguber.info/inful/umlgen/internal/logfields"
)

// DefaultCommand is the diagram generator invoked when none is configured.
const DefaultCommand = "pyreverse"

// DefaultTimeout bounds a single generator invocation.
const DefaultTimeout = 2 * time.Minute

// Runner generates UML diagram artifacts for a module into dir.
// Implementations return the tool's combined stdout+stderr.
type Runner interface {
	Generate(ctx context.Context, dir, module, project, format string) ([]byte, error)
}

// RunError is returned when the external generator exits non-zero.
// It preserves the captured output so callers can surface it.
type RunError struct {
	Cmd    string
	Output []byte
	Err    error
}

func (e *RunError) Error() string {
	msg := fmt.Sprintf("%s failed: %v", e.Cmd, e.Err)
	if out := strings.TrimSpace(string(e.Output)); out != "" {
		msg += ": " + out
	}
	return msg
}

func (e *RunError) Unwrap() error { return e.Err }

// CommandRunner shells out to an external class-diagram generator.
// The argument convention follows pyreverse: -o <format> -p <project> <module>.
type CommandRunner struct {
	Command string
	Timeout time.Duration
}

// NewCommandRunner returns a CommandRunner with defaults applied.
func NewCommandRunner(command string, timeout time.Duration) *CommandRunner {
	if command == "" {
		command = DefaultCommand
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &CommandRunner{Command: command, Timeout: timeout}
}

// Generate runs the generator inside dir with combined output captured.
func (r *CommandRunner) Generate(ctx context.Context, dir, module, project, format string) ([]byte, error) {
	if _, err := exec.LookPath(r.Command); err != nil {
		return nil, fmt.Errorf("diagram generator not found in PATH: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	args := []string{"-o", format, "-p", project, module}
	cmd := exec.CommandContext(ctx, r.Command, args...)
	cmd.Dir = dir

	slog.Debug("Running diagram generator",
		logfields.Command(r.Command),
		logfields.Module(module),
		slog.String("format", format),
		slog.String("dir", dir))

	out, err := cmd.CombinedOutput()
	if err != nil {
		return out, &RunError{Cmd: r.Command, Output: out, Err: err}
	}
	return out, nil
}
