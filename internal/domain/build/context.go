package build

import (
	"errors"
	"path/filepath"
	"time"
)

const (
	// TimestampLayout renders the run timestamp as DD-MM-YYYY-HH-MM.
	TimestampLayout = "02-01-2006-15-04"

	// ArchivePrefix starts the name of every produced archive.
	ArchivePrefix = "build-"

	// ArchiveExtension is appended to the archive directory to get the archive file.
	ArchiveExtension = ".zip"
)

// errRelativeWorkingDirectory is returned when the working directory is not absolute.
var errRelativeWorkingDirectory = errors.New("working directory must be absolute")

// Context holds everything a run derives once at start.
// It is passed by value and never modified afterwards.
type Context struct {
	// Timestamp is the start time rendered with TimestampLayout.
	Timestamp string
	// WorkingDirectory is the absolute project root.
	WorkingDirectory string
	// DistDirectory is the build output directory.
	DistDirectory string
	// ArchiveDirectory is the archive path without extension.
	ArchiveDirectory string
	// ArchiveFile is ArchiveDirectory with ArchiveExtension appended.
	ArchiveFile string
}

// NewContext derives the run paths from the working directory, the configured
// dist and archive directory names and the start time.
func NewContext(workingDirectory, distDir, archiveDir string, startedAt time.Time) (Context, error) {
	if !filepath.IsAbs(workingDirectory) {
		return Context{}, errRelativeWorkingDirectory
	}

	var (
		timestamp        = startedAt.Format(TimestampLayout)
		archiveDirectory = filepath.Join(workingDirectory, archiveDir, ArchivePrefix+timestamp)
	)

	return Context{
		Timestamp:        timestamp,
		WorkingDirectory: filepath.Clean(workingDirectory),
		DistDirectory:    filepath.Join(workingDirectory, distDir),
		ArchiveDirectory: archiveDirectory,
		ArchiveFile:      archiveDirectory + ArchiveExtension,
	}, nil
}

// ArchiveName returns the base name of the produced archive.
func (c Context) ArchiveName() string {
	return ArchivePrefix + c.Timestamp + ArchiveExtension
}

// FinalArchiveFile returns where the archive lives once the run completes.
func (c Context) FinalArchiveFile() string {
	return filepath.Join(c.DistDirectory, c.ArchiveName())
}
