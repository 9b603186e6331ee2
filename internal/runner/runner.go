// Package runner invokes external programs and captures their output.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// Command describes one process invocation.
type Command struct {
	Name string
	Args []string
	Dir  string
	// Timeout of zero waits for the process indefinitely.
	Timeout time.Duration
}

func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Result is the outcome of a finished process.
type Result struct {
	ExitCode int
	Output   string
}

// Runner runs commands and resolves executables.
type Runner interface {
	// Run executes cmd to completion. A non-zero exit status is reported
	// as an *ExitError alongside the captured output.
	Run(ctx context.Context, cmd Command) (Result, error)
	// LookPath searches PATH for an executable.
	LookPath(name string) (string, error)
}

// ExitError reports a process that ran but exited unsuccessfully.
type ExitError struct {
	Command string
	Code    int
	Output  string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Command, e.Code)
}

// Exec runs commands with os/exec.
type Exec struct {
	Logger *slog.Logger
}

// New returns an Exec runner. A nil logger uses slog.Default.
func New(logger *slog.Logger) *Exec {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exec{Logger: logger}
}

func (r *Exec) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

func (r *Exec) Run(ctx context.Context, c Command) (Result, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir

	output, err := runCommand(cmd)
	result := Result{Output: output}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
		err = &ExitError{Command: c.String(), Code: result.ExitCode, Output: output}
	default:
		result.ExitCode = -1
		err = fmt.Errorf("%s: %w", c.Name, err)
	}

	r.Logger.Debug("command finished", "cmd", c.String(), "dir", c.Dir, "exit", result.ExitCode)
	return result, err
}

// runCommand runs a command and returns combined stdout/stderr.
func runCommand(cmd *exec.Cmd) (string, error) {
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	return out.String(), err
}
