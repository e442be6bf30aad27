package packager

import (
	"crypto"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	goupdate "github.com/doitdistributed/go-update"

	// Ensure SHA512 available for checksum calculation.
	_ "crypto/sha512"
)

const (
	// DefaultArchiveMode is the permission of the relocated archive.
	DefaultArchiveMode os.FileMode = 0o644

	// DefaultChecksumFunction verifies the relocated archive.
	DefaultChecksumFunction crypto.Hash = crypto.SHA512
)

// moveArchive moves src to dst. The checksum is streamed from the file on
// disk and go-update verifies the bytes it writes against it.
// It returns the base64 checksum.
func moveArchive(src, dst string) (string, error) {
	file, err := os.Open(filepath.Clean(src))
	if err != nil {
		return "", err
	}

	defer func() {
		_ = file.Close()
	}()

	checksum, err := fileChecksum(file)
	if err != nil {
		return "", fmt.Errorf("checksum %s: %w", src, err)
	}

	if _, err = file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	// go-update swaps an existing target, so start from an empty one.
	placeholder, err := os.OpenFile(filepath.Clean(dst), os.O_CREATE|os.O_EXCL|os.O_WRONLY, DefaultArchiveMode)
	if err != nil {
		return "", err
	}

	if err = placeholder.Close(); err != nil {
		return "", err
	}

	options := goupdate.Options{
		TargetPath: dst,
		TargetMode: DefaultArchiveMode,
		Checksum:   checksum,
		Hash:       DefaultChecksumFunction,
	}

	if err = goupdate.Apply(file, options); err != nil {
		_ = os.Remove(dst)

		return "", fmt.Errorf("apply %s: %w", dst, err)
	}

	// On Windows the previous target is hidden instead of removed.
	oldPath := filepath.Join(filepath.Dir(dst), "."+filepath.Base(dst)+".old")
	if err = os.Remove(oldPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}

	// Windows refuses to remove an open file.
	if err = file.Close(); err != nil {
		return "", err
	}

	if err = os.Remove(src); err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(checksum), nil
}

// fileChecksum hashes r with DefaultChecksumFunction without buffering it.
func fileChecksum(r io.Reader) ([]byte, error) {
	hasher := DefaultChecksumFunction.New()
	if _, err := io.Copy(hasher, r); err != nil {
		return nil, err
	}

	return hasher.Sum(nil), nil
}
