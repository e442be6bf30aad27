package packager

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/eb-packager/internal/config"
)

// TestWriteDefaultConfig writes loadable defaults and refuses to overwrite without Force.
func TestWriteDefaultConfig(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	ctx, logs := testContext()

	path, err := WriteDefaultConfig(ctx, &InitOptions{WorkingDirectory: root})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, config.DefaultConfigFilename), path)
	require.Contains(t, logs.String(), "[INFO] Settings written to '"+path+"'")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, config.Default(), cfg)

	require.NoError(t, os.WriteFile(path, []byte("build_command: make\n"), 0o600))

	_, err = WriteDefaultConfig(ctx, &InitOptions{WorkingDirectory: root})
	require.ErrorIs(t, err, ErrConfigExists)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "build_command: make\n", string(data))

	_, err = WriteDefaultConfig(ctx, &InitOptions{WorkingDirectory: root, Force: true})
	require.NoError(t, err)

	cfg, err = config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "npm run build", cfg.BuildCommand)
}

// TestWriteDefaultConfig_CustomPath resolves a relative path against the working directory.
func TestWriteDefaultConfig_CustomPath(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "ci"), 0o755))

	ctx, _ := testContext()

	path, err := WriteDefaultConfig(ctx, &InitOptions{WorkingDirectory: root, ConfigPath: filepath.Join("ci", "packager.yaml")})
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(root, "ci", "packager.yaml"))
	require.Equal(t, filepath.Join(root, "ci", "packager.yaml"), path)
}
