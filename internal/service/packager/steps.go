package packager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/oshokin/eb-packager/internal/domain/build"
	"github.com/oshokin/eb-packager/internal/logger"
	"github.com/oshokin/eb-packager/internal/repository/archive"
	"github.com/oshokin/eb-packager/internal/repository/manifest"
	"github.com/oshokin/eb-packager/internal/service/common"
)

// DefaultDirectoryMode is used when the dist directory is re-created.
const DefaultDirectoryMode os.FileMode = 0o755

// initialize fixes the run context and logs it.
func (p *packager) initialize(ctx context.Context) error {
	bctx, err := build.NewContext(p.workingDirectory, p.cfg.DistDir, p.cfg.ArchiveDir, p.startedAt)
	if err != nil {
		return err
	}

	p.bctx = bctx

	logger.Infof(ctx, "Build process started at: %s", bctx.Timestamp)
	logger.Infof(ctx, "Current working directory: %s", bctx.WorkingDirectory)
	logger.Infof(ctx, "Distribution directory: %s", bctx.DistDirectory)
	logger.Infof(ctx, "Archive directory: %s", bctx.ArchiveDirectory)
	logger.Infof(ctx, "Archive file: %s", bctx.ArchiveFile)

	return nil
}

// verifyToolchain prints the toolchain version. Its outcome never stops the run.
func (p *packager) verifyToolchain(ctx context.Context) error {
	logger.Info(ctx, "Checking Node version:")
	logger.Infof(ctx, "Running command: %s", p.cfg.VersionCommand)

	exitCode, err := p.runner.Run(ctx, p.bctx.WorkingDirectory, p.cfg.VersionCommand)

	switch {
	case err != nil:
		logger.Warnf(ctx, "Version check could not run: %v", err)
	case exitCode != 0:
		logger.Warnf(ctx, "Version check exited with code %d", exitCode)
	}

	return nil
}

func (p *packager) installDependencies(ctx context.Context) error {
	logger.Infof(ctx, "Installing 'node_modules' in '%s'...", p.bctx.WorkingDirectory)

	return common.RunChecked(ctx, p.runner, p.bctx.WorkingDirectory, p.cfg.InstallCommand)
}

func (p *packager) build(ctx context.Context) error {
	logger.Info(ctx, "Generating build...")

	return common.RunChecked(ctx, p.runner, p.bctx.WorkingDirectory, p.cfg.BuildCommand)
}

// verifyOutput guards against a build that reports success without producing dist.
func (p *packager) verifyOutput(ctx context.Context) error {
	info, err := os.Stat(p.bctx.DistDirectory)

	switch {
	case errors.Is(err, fs.ErrNotExist) || (err == nil && !info.IsDir()):
		logger.Errorf(ctx, "Build failed: '%s' does not exist", p.bctx.DistDirectory)

		return fmt.Errorf("%w: %s", build.ErrMissingOutput, p.bctx.DistDirectory)
	case err != nil:
		return fmt.Errorf("stat %s: %w", p.bctx.DistDirectory, err)
	}

	return nil
}

func (p *packager) mergeManifest(ctx context.Context) error {
	logger.Infof(ctx, "Updating %s in '%s'...", filepath.Base(p.cfg.Manifest), p.bctx.DistDirectory)

	return manifest.MergeFiles(
		p.projectPath(p.cfg.Manifest),
		p.projectPath(p.cfg.EBManifest),
		filepath.Join(p.bctx.DistDirectory, filepath.Base(p.cfg.Manifest)),
	)
}

func (p *packager) copyLockfile(ctx context.Context) error {
	name := filepath.Base(p.cfg.Lockfile)

	logger.Infof(ctx, "Copying '%s' to '%s'...", name, p.bctx.DistDirectory)

	return copyFile(p.projectPath(p.cfg.Lockfile), filepath.Join(p.bctx.DistDirectory, name))
}

// reinstallDependencies installs from the merged manifest and lockfile only,
// so the packed output does not depend on the project tree.
func (p *packager) reinstallDependencies(ctx context.Context) error {
	logger.Infof(ctx, "Changed directory to: %s", p.bctx.DistDirectory)
	logger.Infof(ctx, "Installing 'node_modules' in '%s'...", p.bctx.DistDirectory)

	return common.RunChecked(ctx, p.runner, p.bctx.DistDirectory, p.cfg.InstallCommand)
}

// archive zips dist, empties it and moves the archive inside.
func (p *packager) archive(ctx context.Context) error {
	logger.Infof(ctx, "Generating archive in '%s'...", p.bctx.WorkingDirectory)

	count, err := archive.ZipDirectory(ctx, p.bctx.DistDirectory, p.bctx.ArchiveFile)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}

	logger.DebugKV(ctx, "Archive written", "path", p.bctx.ArchiveFile, "files", count)

	logger.Infof(ctx, "Removing '%s'...", p.bctx.DistDirectory)

	if err = os.RemoveAll(p.bctx.DistDirectory); err != nil {
		return fmt.Errorf("remove %s: %w", p.bctx.DistDirectory, err)
	}

	logger.Infof(ctx, "Re-creating '%s'...", p.bctx.DistDirectory)

	if err = os.Mkdir(p.bctx.DistDirectory, DefaultDirectoryMode); err != nil {
		return fmt.Errorf("create %s: %w", p.bctx.DistDirectory, err)
	}

	logger.Infof(ctx, "Moving '%s' to '%s'...", p.bctx.ArchiveFile, p.bctx.DistDirectory)

	checksum, err := moveArchive(p.bctx.ArchiveFile, p.bctx.FinalArchiveFile())
	if err != nil {
		return fmt.Errorf("move archive: %w", err)
	}

	logger.DebugKV(ctx, "Archive moved", "path", p.bctx.FinalArchiveFile(), "sha512", checksum)

	return nil
}

// projectPath resolves a configured relative path against the project root.
func (p *packager) projectPath(rel string) string {
	return filepath.Join(p.bctx.WorkingDirectory, rel)
}

// copyFile copies src to dst, keeping the source permissions. src is left untouched.
func copyFile(src, dst string) error {
	in, err := os.Open(filepath.Clean(src))
	if err != nil {
		return err
	}

	defer func() {
		_ = in.Close()
	}()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(filepath.Clean(dst), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err = io.Copy(out, in); err != nil {
		_ = out.Close()

		return fmt.Errorf("copy %s: %w", src, err)
	}

	return out.Close()
}
