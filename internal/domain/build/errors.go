package build

import (
	"errors"
	"fmt"
)

var (
	// ErrExternalCommand marks a failed package manager or shell invocation.
	ErrExternalCommand = errors.New("external command failed")
	// ErrMissingOutput marks a build that succeeded without producing the dist directory.
	ErrMissingOutput = errors.New("build output is missing")
	// ErrManifest marks a missing or malformed manifest during the merge.
	ErrManifest = errors.New("manifest error")
)

// CommandError reports a command that exited with a non-zero status.
type CommandError struct {
	// Command is the shell command line as it was run.
	Command string
	// ExitCode is the status the process exited with.
	ExitCode int
}

// Error implements error.
func (e *CommandError) Error() string {
	return fmt.Sprintf("command %q failed with exit code %d", e.Command, e.ExitCode)
}

// Is reports whether target is ErrExternalCommand.
func (e *CommandError) Is(target error) bool {
	return target == ErrExternalCommand
}
