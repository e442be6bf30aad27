//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/eb-packager/internal/domain/build"
)

func skipWithoutShell(t *testing.T) {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("shell tests use POSIX sh")
	}
}

// TestShellRunner_ExitCodes verifies exit code capture and working directory handling.
func TestShellRunner_ExitCodes(t *testing.T) {
	t.Parallel()
	skipWithoutShell(t)

	var stdout bytes.Buffer

	dir := t.TempDir()
	r := NewShellRunner(WithOutput(&stdout, &bytes.Buffer{}))

	code, err := r.Run(context.Background(), dir, "echo hello > out.txt && echo done")
	require.NoError(t, err)
	require.Equal(t, 0, code)
	require.Equal(t, "done\n", stdout.String())

	contents, err := os.ReadFile(filepath.Join(dir, "out.txt"))
	require.NoError(t, err)
	require.Equal(t, "hello\n", string(contents))

	code, err = r.Run(context.Background(), dir, "exit 3")
	require.NoError(t, err)
	require.Equal(t, 3, code)
}

// TestShellRunner_EmptyCommand rejects blank command lines.
func TestShellRunner_EmptyCommand(t *testing.T) {
	t.Parallel()

	code, err := NewShellRunner().Run(context.Background(), t.TempDir(), " ")
	require.ErrorIs(t, err, errEmptyCommand)
	require.Equal(t, -1, code)
}

// TestShellRunner_MissingDirectory reports a start failure as an error.
func TestShellRunner_MissingDirectory(t *testing.T) {
	t.Parallel()
	skipWithoutShell(t)

	code, err := NewShellRunner().Run(context.Background(), filepath.Join(t.TempDir(), "absent"), "true")
	require.Error(t, err)
	require.Equal(t, -1, code)
}

// TestRunChecked maps exit codes and start failures to errors.
func TestRunChecked(t *testing.T) {
	t.Parallel()

	r := NewRecordingRunner()
	r.Handle("npm run build", func(string) (int, error) { return 2, nil })
	r.Handle("broken", func(string) (int, error) { return -1, errors.New("boom") })

	ctx := context.Background()

	require.NoError(t, RunChecked(ctx, r, "/project", "npm install"))

	err := RunChecked(ctx, r, "/project", "npm run build")
	require.ErrorIs(t, err, build.ErrExternalCommand)

	var commandErr *build.CommandError
	require.ErrorAs(t, err, &commandErr)
	require.Equal(t, 2, commandErr.ExitCode)

	err = RunChecked(ctx, r, "/project", "broken")
	require.Error(t, err)
	require.NotErrorIs(t, err, build.ErrExternalCommand)

	require.Equal(t, []Invocation{
		{Dir: "/project", Command: "npm install"},
		{Dir: "/project", Command: "npm run build"},
		{Dir: "/project", Command: "broken"},
	}, r.Invocations())
}
