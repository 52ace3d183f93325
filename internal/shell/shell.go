// Package shell runs external tools behind a small interface so that callers
// can be tested with a fake instead of real subprocesses.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/oshokin/linux-deps/internal/logger"
)

// maxStderr bounds the stderr excerpt kept in a ToolError.
const maxStderr = 2048

// Command describes one tool invocation.
type Command struct {
	Name  string
	Args  []string
	Dir   string
	Stdin string
}

// String renders the command line for logs and errors.
func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Runner executes a Command and returns its standard output.
type Runner interface {
	Run(ctx context.Context, cmd Command) ([]byte, error)
}

// ToolError reports a tool that could not start or exited with a non-zero status.
type ToolError struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

// Error implements error.
func (e *ToolError) Error() string {
	msg := fmt.Sprintf("%s failed with exit code %d", e.Command, e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}

	return msg
}

// Unwrap returns the underlying exec error.
func (e *ToolError) Unwrap() error {
	return e.Err
}

// Exec runs commands with os/exec.
type Exec struct{}

// Run implements Runner.
func (Exec) Run(ctx context.Context, cmd Command) ([]byte, error) {
	//nolint:gosec // The command line is assembled from configuration, not user input.
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir

	if cmd.Stdin != "" {
		c.Stdin = strings.NewReader(cmd.Stdin)
	}

	var stdout, stderr bytes.Buffer

	c.Stdout = &stdout
	c.Stderr = &stderr

	logger.DebugKV(ctx, "Exec", "command", cmd.String(), "dir", cmd.Dir)

	if err := c.Run(); err != nil {
		exitCode := -1

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}

		return stdout.Bytes(), &ToolError{
			Command:  cmd.String(),
			ExitCode: exitCode,
			Stderr:   trimOutput(stderr.String()),
			Err:      err,
		}
	}

	return stdout.Bytes(), nil
}

func trimOutput(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxStderr {
		return s[:maxStderr] + "..."
	}

	return s
}
