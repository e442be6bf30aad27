package archive

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/flate"

	"github.com/oshokin/eb-packager/internal/logger"
)

// DefaultDirectoryMode is used for the archive's parent directory.
const DefaultDirectoryMode os.FileMode = 0o755

// errNotDirectory is returned when the source is not a directory.
var errNotDirectory = errors.New("source is not a directory")

// ZipDirectory writes the contents of sourceDir into a new zip file at archivePath,
// creating its parent directory when needed. It returns the number of files stored.
// archivePath must not be inside sourceDir. A symlinked sourceDir is archived
// through its target.
func ZipDirectory(ctx context.Context, sourceDir, archivePath string) (int, error) {
	root, err := filepath.EvalSymlinks(sourceDir)
	if err != nil {
		return 0, fmt.Errorf("resolve %s: %w", sourceDir, err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", sourceDir, err)
	}

	if !info.IsDir() {
		return 0, fmt.Errorf("%s: %w", sourceDir, errNotDirectory)
	}

	if err = os.MkdirAll(filepath.Dir(archivePath), DefaultDirectoryMode); err != nil {
		return 0, fmt.Errorf("create archive directory: %w", err)
	}

	file, err := os.Create(filepath.Clean(archivePath))
	if err != nil {
		return 0, fmt.Errorf("create archive: %w", err)
	}

	w := zip.NewWriter(file)
	w.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.DefaultCompression)
	})

	count, walkErr := addTree(ctx, w, root)

	closeErr := w.Close()
	if err = file.Close(); closeErr == nil {
		closeErr = err
	}

	if walkErr == nil {
		walkErr = closeErr
	}

	if walkErr != nil {
		_ = os.Remove(archivePath)

		return 0, walkErr
	}

	return count, nil
}

// addTree walks root and adds every entry below it.
func addTree(ctx context.Context, w *zip.Writer, root string) (int, error) {
	count := 0

	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if err = ctx.Err(); err != nil {
			return err
		}

		if path == root {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		name := filepath.ToSlash(rel)

		info, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) && entry.Type()&fs.ModeSymlink != 0 {
			logger.Debugf(ctx, "Skipping dangling link '%s'", name)
			return nil
		}

		if err != nil {
			return err
		}

		if info.IsDir() {
			return addDirectory(w, name, info)
		}

		if !info.Mode().IsRegular() {
			logger.Debugf(ctx, "Skipping special file '%s'", name)
			return nil
		}

		if err = addFile(w, path, name, info); err != nil {
			return err
		}

		count++

		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("archive %s: %w", root, err)
	}

	return count, nil
}

// addDirectory stores an empty directory entry; linked directories are not descended into.
func addDirectory(w *zip.Writer, name string, info fs.FileInfo) error {
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}

	header.Name = name + "/"
	header.Method = zip.Store

	_, err = w.CreateHeader(header)

	return err
}

func addFile(w *zip.Writer, path, name string, info fs.FileInfo) error {
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}

	header.Name = name
	header.Method = zip.Deflate

	dst, err := w.CreateHeader(header)
	if err != nil {
		return err
	}

	src, err := os.Open(filepath.Clean(path))
	if err != nil {
		return err
	}

	defer func() {
		_ = src.Close()
	}()

	if _, err = io.Copy(dst, src); err != nil {
		return fmt.Errorf("compress %s: %w", name, err)
	}

	return nil
}
