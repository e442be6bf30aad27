package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// Config holds the commands and paths used by a packaging run.
type Config struct {
	// VersionCommand prints the toolchain version; its result is informational.
	VersionCommand string `yaml:"version_command"`
	// InstallCommand installs dependencies, once at the root and once in dist.
	InstallCommand string `yaml:"install_command"`
	// BuildCommand produces the dist directory.
	BuildCommand string `yaml:"build_command"`
	// Manifest is the root package descriptor.
	Manifest string `yaml:"manifest"`
	// EBManifest is the descriptor whose scripts replace the root ones.
	EBManifest string `yaml:"eb_manifest"`
	// Lockfile is copied next to the merged manifest.
	Lockfile string `yaml:"lockfile"`
	// DistDir is the build output directory, relative to the project root.
	DistDir string `yaml:"dist_dir"`
	// ArchiveDir holds the archive before it is moved into DistDir.
	ArchiveDir string `yaml:"archive_dir"`
}

const (
	// DefaultConfigFilename is the default filename for packaging settings.
	DefaultConfigFilename = "eb-packager.yaml"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errEmptyCommand is returned when one of the commands is blank.
	errEmptyCommand = errors.New("command must not be empty")
	// errBadPath is returned for absolute paths or paths escaping the project root.
	errBadPath = errors.New("path must be relative to the project root")
	// errNestedDirectories is returned when dist and archive directories coincide or contain each other.
	errNestedDirectories = errors.New("dist_dir and archive_dir must not contain each other")
)

// Default returns the settings matching the npm convention.
func Default() *Config {
	return &Config{
		VersionCommand: "node -v",
		InstallCommand: "npm install",
		BuildCommand:   "npm run build",
		Manifest:       "package.json",
		EBManifest:     filepath.Join("eb", "package.json"),
		Lockfile:       "package-lock.json",
		DistDir:        "dist",
		ArchiveDir:     "zip",
	}
}

// Load reads configuration from the provided path, fills the fields it leaves
// empty with defaults and validates the result.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	cfg := new(Config)

	contents, err := os.ReadFile(filepath.Clean(path))

	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read settings: %w", err)
	default:
		if err = yaml.Unmarshal(contents, cfg); err != nil {
			return nil, fmt.Errorf("unmarshal settings: %w", err)
		}
	}

	if err = mergo.Merge(cfg, Default()); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}

	if err = Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes Config to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for required fields and formatting.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	commands := map[string]string{
		"version_command": cfg.VersionCommand,
		"install_command": cfg.InstallCommand,
		"build_command":   cfg.BuildCommand,
	}

	for name, command := range commands {
		if strings.TrimSpace(command) == "" {
			return fmt.Errorf("%s: %w", name, errEmptyCommand)
		}
	}

	paths := map[string]string{
		"manifest":    cfg.Manifest,
		"eb_manifest": cfg.EBManifest,
		"lockfile":    cfg.Lockfile,
		"dist_dir":    cfg.DistDir,
		"archive_dir": cfg.ArchiveDir,
	}

	for name, path := range paths {
		if !isLocalPath(path) {
			return fmt.Errorf("%s %q: %w", name, path, errBadPath)
		}
	}

	// The dist directory is removed while the archive is pending, and the
	// archive is written while dist is walked.
	if isWithin(cfg.DistDir, cfg.ArchiveDir) || isWithin(cfg.ArchiveDir, cfg.DistDir) {
		return fmt.Errorf("dist_dir %q, archive_dir %q: %w", cfg.DistDir, cfg.ArchiveDir, errNestedDirectories)
	}

	return nil
}

// isWithin reports whether child is parent itself or lies below it.
func isWithin(parent, child string) bool {
	rel, err := filepath.Rel(filepath.Clean(parent), filepath.Clean(child))

	return err == nil && filepath.IsLocal(rel)
}

// isLocalPath reports whether path stays inside the project root.
func isLocalPath(path string) bool {
	if path == "" || filepath.Clean(path) == "." {
		return false
	}

	return filepath.IsLocal(path)
}
