package port

import (
	"io"
	"time"

	"github.com/tapestry/safefetch/internal/domain/vo"
)

// DiskUsage represents disk usage statistics
type DiskUsage struct {
	Total   uint64  // Total disk space in bytes
	Used    uint64  // Used disk space in bytes
	Free    uint64  // Free disk space in bytes
	UsedPct float64 // Used percentage (0-100)
}

// FileSystem stages downloads inside a single output directory
type FileSystem interface {
	// RootDir returns the output directory
	RootDir() string

	// Destination returns the final path for name, guaranteed to sit
	// directly inside RootDir
	Destination(name vo.SafeName) (string, error)

	// Exists reports whether anything (file, dir or symlink) is at path
	Exists(path string) bool

	// WriteTemp streams reader into a fresh temp file in RootDir.
	// On error the temp file is already removed.
	// Returns: temp path, bytes written, error
	WriteTemp(reader io.Reader) (string, int64, error)

	// Commit publishes a temp file at its destination. Without overwrite an
	// existing destination fails with domain.ErrDestinationExists.
	// tempPath may survive a successful commit; callers Discard it.
	Commit(tempPath, destination string, overwrite bool) error

	// Discard removes the given files, ignoring ones already gone
	Discard(paths ...string) error

	// GetDiskUsage returns disk usage statistics
	GetDiskUsage() (*DiskUsage, error)

	// CleanOldTempFiles removes temp files older than the specified duration
	// Returns the number of files deleted
	CleanOldTempFiles(olderThan time.Duration) (int, error)
}
