// Package runner executes external tools with a fail-fast policy: the first
// failing subprocess stops the task and its exit status becomes the status
// of the whole run.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// SignalStatus is reported when a subprocess has no exit code, either
// because it could not be started or because it was killed by a signal.
const SignalStatus = 255

// FailureStatus is reported for errors that did not come from a subprocess
const FailureStatus = 1

// ExitError describes a failed step
type ExitError struct {
	Step    string
	Command string
	Code    int
	Err     error
}

func (e *ExitError) Error() string {
	if e.Command == "" {
		return fmt.Sprintf("%s: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Step, e.Command, e.Err)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// Status returns the process exit status the failure maps to
func (e *ExitError) Status() int {
	return e.Code
}

// ExitStatus maps an error returned by a task to a process exit status
func ExitStatus(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return FailureStatus
}

// Fail wraps a non-subprocess error so that it carries the failing step
func Fail(step string, err error) error {
	return &ExitError{Step: step, Code: FailureStatus, Err: err}
}

// Cmd is a single subprocess invocation
type Cmd struct {
	// Step names the task stage for error reporting
	Step string
	Name string
	Args []string
	// Dir is relative to the runner's working directory
	Dir string
	// Env is appended to the runner's environment
	Env []string
}

func (c Cmd) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Runner executes commands in a fixed working directory
type Runner struct {
	workDir string
	logger  zerolog.Logger

	Stdout io.Writer
	Stderr io.Writer
}

// New creates a runner rooted at workDir
func New(workDir string, logger zerolog.Logger) *Runner {
	return &Runner{
		workDir: workDir,
		logger:  logger.With().Str("component", "runner").Logger(),
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
}

// WorkDir returns the directory commands run in
func (r *Runner) WorkDir() string {
	return r.workDir
}

// Run executes the command and waits for it. Any failure is returned as *ExitError.
func (r *Runner) Run(ctx context.Context, c Cmd) error {
	start := time.Now()

	cmd := exec.CommandContext(ctx, r.Resolve(c.Name), c.Args...)
	cmd.Dir = r.workDir
	if c.Dir != "" {
		cmd.Dir = joinDir(r.workDir, c.Dir)
	}
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr

	r.logger.Debug().
		Str("step", c.Step).
		Str("dir", cmd.Dir).
		Str("cmd", c.Name).
		Strs("args", c.Args).
		Msg("running")

	err := cmd.Run()
	if err == nil {
		r.logger.Debug().
			Str("step", c.Step).
			Dur("duration", time.Since(start)).
			Msg("finished")
		return nil
	}

	code := SignalStatus
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 {
		code = exitErr.ExitCode()
	}

	r.logger.Error().
		Str("step", c.Step).
		Str("cmd", c.String()).
		Int("status", code).
		Err(err).
		Msg("subprocess failed")

	return &ExitError{Step: c.Step, Command: c.String(), Code: code, Err: err}
}

// LookPath reports an environment error when a tool is not invocable.
// Relative paths are resolved the same way Run resolves them.
func (r *Runner) LookPath(step, name string) error {
	if _, err := exec.LookPath(r.Resolve(name)); err != nil {
		return &ExitError{Step: step, Command: name, Code: SignalStatus, Err: fmt.Errorf("tool not found: %w", err)}
	}
	return nil
}

// Resolve anchors a relative tool path at the working directory.
// Bare names are left for PATH lookup.
func (r *Runner) Resolve(name string) string {
	if !strings.ContainsRune(name, '/') && !strings.ContainsRune(name, filepath.Separator) {
		return name
	}
	return joinDir(r.workDir, name)
}

func joinDir(base, dir string) string {
	if base == "" || filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(base, dir)
}
