package packager

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/oshokin/eb-packager/internal/config"
	"github.com/oshokin/eb-packager/internal/logger"
)

// InitOptions contains inputs for writing a starter settings file.
type InitOptions struct {
	// ConfigPath is the settings file to write; relative paths are resolved against the working directory.
	ConfigPath string
	// WorkingDirectory is the project root (defaults to the current directory).
	WorkingDirectory string
	// Force overwrites an existing settings file.
	Force bool
}

// ErrConfigExists indicates that the settings file is already present and Force is not set.
var ErrConfigExists = errors.New("settings file already exists")

// WriteDefaultConfig saves the default settings so they can be edited before the first run.
func WriteDefaultConfig(ctx context.Context, opts *InitOptions) (string, error) {
	ctx = logger.WithName(ctx, "eb-packager")

	if opts == nil {
		opts = new(InitOptions)
	}

	workingDirectory := opts.WorkingDirectory
	if workingDirectory == "" {
		workingDirectory = "."
	}

	workingDirectory, err := filepath.Abs(workingDirectory)
	if err != nil {
		return "", fmt.Errorf("resolve working directory: %w", err)
	}

	path := opts.ConfigPath
	if path == "" {
		path = config.DefaultConfigFilename
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(workingDirectory, path)
	}

	_, err = os.Stat(path)

	switch {
	case err == nil && !opts.Force:
		return "", fmt.Errorf("%s: %w", path, ErrConfigExists)
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return "", fmt.Errorf("stat %s: %w", path, err)
	}

	if err = config.Save(path, config.Default()); err != nil {
		return "", fmt.Errorf("save settings: %w", err)
	}

	logger.Infof(ctx, "Settings written to '%s'", path)

	return path, nil
}
