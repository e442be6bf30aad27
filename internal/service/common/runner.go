//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/oshokin/eb-packager/internal/domain/build"
	"github.com/oshokin/eb-packager/internal/logger"
)

// Runner executes a shell command line in a directory.
// A process that ran and exited non-zero yields its exit code and a nil error;
// the error is reserved for commands that could not be run at all.
type Runner interface {
	Run(ctx context.Context, dir, command string) (int, error)
}

// ShellRunner runs commands through the host shell.
type ShellRunner struct {
	// stdout receives the child's standard output.
	stdout io.Writer
	// stderr receives the child's standard error.
	stderr io.Writer
}

// Option configures ShellRunner behaviour.
type Option func(*ShellRunner)

// WithOutput redirects the child's output streams.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(r *ShellRunner) {
		if stdout != nil {
			r.stdout = stdout
		}

		if stderr != nil {
			r.stderr = stderr
		}
	}
}

// errEmptyCommand is returned when a blank command line is passed to Run.
var errEmptyCommand = errors.New("command must be provided")

// NewShellRunner creates a runner attached to the terminal by default.
func NewShellRunner(opts ...Option) *ShellRunner {
	r := &ShellRunner{
		stdout: os.Stdout,
		stderr: os.Stderr,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Run executes command via "sh -c" ("cmd /C" on Windows) and waits for it.
func (r *ShellRunner) Run(ctx context.Context, dir, command string) (int, error) {
	if strings.TrimSpace(command) == "" {
		return -1, errEmptyCommand
	}

	name, args := shellCommand(command)

	//nolint:gosec // Running operator-configured commands is the purpose of this tool.
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdin = os.Stdin
	cmd.Stdout = r.stdout
	cmd.Stderr = r.stderr

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && ctx.Err() == nil {
		return exitErr.ExitCode(), nil
	}

	return -1, fmt.Errorf("run %q: %w", command, err)
}

// shellCommand returns the host shell invocation for command.
func shellCommand(command string) (string, []string) {
	if strings.Contains(strings.ToLower(runtime.GOOS), "windows") {
		return "cmd.exe", []string{"/C", command}
	}

	return "sh", []string{"-c", command}
}

// RunChecked runs command and turns a non-zero exit into a *build.CommandError.
func RunChecked(ctx context.Context, runner Runner, dir, command string) error {
	logger.Infof(ctx, "Running command: %s", command)

	exitCode, err := runner.Run(ctx, dir, command)
	if err != nil {
		logger.Errorf(ctx, "Command could not be started: %v", err)

		return err
	}

	if exitCode != 0 {
		logger.Errorf(ctx, "Command failed with exit code %d", exitCode)

		return &build.CommandError{
			Command:  command,
			ExitCode: exitCode,
		}
	}

	return nil
}
