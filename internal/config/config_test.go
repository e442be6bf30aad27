package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestValidate checks required fields and path validations for Config.
func TestValidate(t *testing.T) {
	t.Parallel()

	require.Error(t, Validate(nil))
	require.NoError(t, Validate(Default()))

	// Blank command.
	cfg := Default()
	cfg.BuildCommand = "  "
	require.ErrorIs(t, Validate(cfg), errEmptyCommand)

	// Escaping path.
	cfg = Default()
	cfg.DistDir = "../dist"
	require.ErrorIs(t, Validate(cfg), errBadPath)

	// Absolute path.
	cfg = Default()
	cfg.Lockfile = filepath.Join(t.TempDir(), "package-lock.json")
	require.ErrorIs(t, Validate(cfg), errBadPath)

	// Same or nested directories.
	for _, dirs := range [][2]string{
		{"dist", "dist/"},
		{"dist", "dist/zip"},
		{"dist", filepath.Join("dist", "nested", "zip")},
		{"build/dist", "build"},
		{"./out", "out/archives"},
	} {
		cfg = Default()
		cfg.DistDir, cfg.ArchiveDir = dirs[0], dirs[1]
		require.ErrorIs(t, Validate(cfg), errNestedDirectories, "dist_dir=%s archive_dir=%s", dirs[0], dirs[1])
	}

	// Siblings sharing a prefix are fine.
	cfg = Default()
	cfg.DistDir, cfg.ArchiveDir = "dist", "dist-zip"
	require.NoError(t, Validate(cfg))
}

// TestLoad_NestedArchiveDirectory rejects an archive directory inside dist read from file.
func TestLoad_NestedArchiveDirectory(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), DefaultConfigFilename)
	require.NoError(t, os.WriteFile(path, []byte("archive_dir: dist/zip\n"), 0o600))

	_, err := Load(path)
	require.ErrorIs(t, err, errNestedDirectories)
}

// TestLoad_MissingFileYieldsDefaults ensures absent settings behave like the plain convention.
func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

// TestLoad_PartialFileKeepsDefaults checks that file values override only what they set.
func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), DefaultConfigFilename)
	require.NoError(t, os.WriteFile(path, []byte("build_command: yarn build\ndist_dir: out\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "yarn build", cfg.BuildCommand)
	require.Equal(t, "out", cfg.DistDir)
	require.Equal(t, "npm install", cfg.InstallCommand)
	require.Equal(t, "zip", cfg.ArchiveDir)
}

// TestLoad_InvalidYAML reports unmarshal failures.
func TestLoad_InvalidYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), DefaultConfigFilename)
	require.NoError(t, os.WriteFile(path, []byte("build_command: [unterminated\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")

	cfg := Default()
	cfg.InstallCommand = "npm ci"

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, loaded)

	require.ErrorIs(t, Save(path, nil), errConfigIsNotSet)

	_, err = os.Stat(path)
	require.NoError(t, err)
}
