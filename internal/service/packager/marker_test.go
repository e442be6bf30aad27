package packager

import (
	"context"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestAcquireMarker writes the current PID and removes it on release.
func TestAcquireMarker(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, MarkerFilename)

	release, err := acquireMarker(context.Background(), dir)
	require.NoError(t, err)

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, strconv.Itoa(os.Getpid()), string(contents))

	// A second acquisition by the same program is refused.
	_, err = acquireMarker(context.Background(), dir)
	require.ErrorIs(t, err, ErrAlreadyRunning)

	release()
	require.NoFileExists(t, path)
}

// TestAcquireMarker_ReplacesForeignMarkers accepts unreadable markers and markers of other programs.
func TestAcquireMarker_ReplacesForeignMarkers(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("PID 1 is not a stable process on Windows")
	}

	for name, contents := range map[string]string{
		"garbage":       "not a pid",
		"other program": "1",
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			path := filepath.Join(dir, MarkerFilename)
			require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

			release, err := acquireMarker(context.Background(), dir)
			require.NoError(t, err)

			defer release()

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			require.Equal(t, strconv.Itoa(os.Getpid()), string(data))
		})
	}
}

// TestAcquireMarker_ReplacesDeadProcess replaces a marker left by a process that has exited.
func TestAcquireMarker_ReplacesDeadProcess(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}

	child := exec.Command("sh", "-c", "true")
	require.NoError(t, child.Run())

	var (
		dir  = t.TempDir()
		path = filepath.Join(dir, MarkerFilename)
	)

	require.NoError(t, os.WriteFile(path, []byte(strconv.Itoa(child.Process.Pid)), 0o644))

	release, err := acquireMarker(context.Background(), dir)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, strconv.Itoa(os.Getpid()), string(data))

	release()
	require.NoFileExists(t, path)
}

// TestAcquireMarker_ReleaseKeepsForeignMarker leaves a marker that another run has taken over.
func TestAcquireMarker_ReleaseKeepsForeignMarker(t *testing.T) {
	t.Parallel()

	var (
		dir  = t.TempDir()
		path = filepath.Join(dir, MarkerFilename)
	)

	release, err := acquireMarker(context.Background(), dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("4242"), 0o644))

	release()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "4242", string(data))
}

// TestCreateMarker_Exclusive never overwrites an existing marker.
func TestCreateMarker_Exclusive(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), MarkerFilename)

	require.NoError(t, createMarker(path, []byte("1")))
	require.ErrorIs(t, createMarker(path, []byte("2")), fs.ErrExist)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "1", string(data))
}

// TestRemoveMarkerIfUnchanged keeps a marker rewritten after it was judged stale.
func TestRemoveMarkerIfUnchanged(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), MarkerFilename)

	require.NoError(t, os.WriteFile(path, []byte("4242"), 0o644))
	require.NoError(t, removeMarkerIfUnchanged(path, []byte("1")))
	require.FileExists(t, path)

	require.NoError(t, removeMarkerIfUnchanged(path, []byte("4242")))
	require.NoFileExists(t, path)

	require.NoError(t, removeMarkerIfUnchanged(path, []byte("4242")))
}
