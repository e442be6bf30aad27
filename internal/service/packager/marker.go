package packager

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/eb-packager/internal/logger"
)

const (
	// MarkerFilename marks that a run is in progress in the directory.
	MarkerFilename = ".eb-packager.lock"

	// DefaultMarkerMode is the permission of the marker file.
	DefaultMarkerMode os.FileMode = 0o644

	// markerAttempts bounds how many times a stale marker is replaced
	// before giving up to a concurrent run.
	markerAttempts = 2
)

// errSelfNotListed is returned when the process table does not list the current process.
var errSelfNotListed = errors.New("current process is not in the process list")

// acquireMarker creates the marker for this process and returns a function removing it.
// The marker is created exclusively. A marker left by a process that is no
// longer alive is removed and the exclusive create is retried.
func acquireMarker(ctx context.Context, dir string) (func(), error) {
	var (
		path = filepath.Join(dir, MarkerFilename)
		pid  = []byte(strconv.Itoa(os.Getpid()))
	)

	for range markerAttempts {
		err := createMarker(path, pid)
		if err == nil {
			return func() {
				releaseMarker(ctx, path, pid)
			}, nil
		}

		if !errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("create marker: %w", err)
		}

		contents, err := os.ReadFile(filepath.Clean(path))
		if errors.Is(err, fs.ErrNotExist) {
			// The owner released it between our create and read.
			continue
		}

		if err != nil {
			return nil, fmt.Errorf("read marker: %w", err)
		}

		running, err := isPackagerRunning(ctx, contents)
		if err != nil {
			return nil, err
		}

		if running {
			return nil, ErrAlreadyRunning
		}

		if err = removeMarkerIfUnchanged(path, contents); err != nil {
			return nil, err
		}
	}

	return nil, ErrAlreadyRunning
}

// createMarker writes pid to a new file at path and fails with fs.ErrExist if one is present.
func createMarker(path string, pid []byte) error {
	file, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_EXCL|os.O_WRONLY, DefaultMarkerMode)
	if err != nil {
		return err
	}

	if _, err = file.Write(pid); err != nil {
		_ = file.Close()
		_ = os.Remove(path)

		return err
	}

	if err = file.Close(); err != nil {
		_ = os.Remove(path)

		return err
	}

	return nil
}

// removeMarkerIfUnchanged deletes the stale marker unless another run has replaced it meanwhile.
func removeMarkerIfUnchanged(path string, stale []byte) error {
	current, err := os.ReadFile(filepath.Clean(path))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("read marker: %w", err)
	}

	if !bytes.Equal(current, stale) {
		return nil
	}

	if err = os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove stale marker: %w", err)
	}

	return nil
}

// releaseMarker removes the marker only while it still holds pid.
func releaseMarker(ctx context.Context, path string, pid []byte) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if errors.Is(err, fs.ErrNotExist) {
		return
	}

	if err != nil {
		logger.Warnf(ctx, "Unable to read marker '%s': %v", path, err)
		return
	}

	if !bytes.Equal(bytes.TrimSpace(contents), pid) {
		logger.Warnf(ctx, "Marker '%s' was taken over by PID %s, leaving it in place",
			path, strings.TrimSpace(string(contents)))

		return
	}

	if err = os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warnf(ctx, "Unable to remove marker '%s': %v", path, err)
	}
}

// isPackagerRunning reports whether the marker contents name a live packager process.
func isPackagerRunning(ctx context.Context, contents []byte) (bool, error) {
	pid, err := strconv.Atoi(strings.TrimSpace(string(contents)))
	if err != nil {
		logger.Info(ctx, "The run marker is unreadable, replacing it")
		return false, nil
	}

	owner, err := ps.FindProcess(pid)
	if err != nil {
		return false, fmt.Errorf("find process %d: %w", pid, err)
	}

	if owner == nil {
		logger.Info(ctx, "The run marker is stale, replacing it")
		return false, nil
	}

	self, err := ps.FindProcess(os.Getpid())
	if err != nil {
		return false, fmt.Errorf("find current process: %w", err)
	}

	if self == nil {
		return false, errSelfNotListed
	}

	if owner.Executable() != self.Executable() {
		logger.Info(ctx, "The run marker belongs to another program, replacing it")
		return false, nil
	}

	return true, nil
}
