package filesystem

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	securejoin "github.com/cyphar/filepath-securejoin"
	"go.uber.org/multierr"

	"github.com/tapestry/safefetch/internal/domain"
	"github.com/tapestry/safefetch/internal/domain/vo"
	"github.com/tapestry/safefetch/internal/port"
)

// Temp files are hidden and live next to their destination so that the
// final rename or link never crosses a filesystem boundary.
const (
	TempPrefix  = ".download_"
	TempSuffix  = ".tmp"
	tempPattern = TempPrefix + "*" + TempSuffix
)

const defaultBufferSize = 32 * 1024

// Manager handles local filesystem operations for one output directory
type Manager struct {
	rootDir    string
	bufferSize int
}

// Ensure Manager implements port.FileSystem
var _ port.FileSystem = (*Manager)(nil)

// NewManager creates a new filesystem manager
func NewManager(rootDir string) (*Manager, error) {
	return NewManagerWithBufferSize(rootDir, defaultBufferSize)
}

// NewManagerWithBufferSize creates a new filesystem manager with custom buffer size
func NewManagerWithBufferSize(rootDir string, bufferSize int) (*Manager, error) {
	abs, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}

	return &Manager{
		rootDir:    abs,
		bufferSize: bufferSize,
	}, nil
}

// RootDir returns the absolute output directory
func (m *Manager) RootDir() string {
	return m.rootDir
}

// Destination joins name onto the output directory. Symlinks already
// present under the directory are resolved inside it, so a planted link
// cannot redirect the write elsewhere.
func (m *Manager) Destination(name vo.SafeName) (string, error) {
	if name.IsZero() {
		return "", fmt.Errorf("%w: empty name", domain.ErrOutsideOutputDir)
	}
	p, err := securejoin.SecureJoin(m.rootDir, name.String())
	if err != nil {
		return "", fmt.Errorf("failed to resolve destination: %w", err)
	}
	if filepath.Dir(p) != m.rootDir {
		return "", fmt.Errorf("%w: %s", domain.ErrOutsideOutputDir, p)
	}
	return p, nil
}

// Exists reports whether anything is at path, without following symlinks
func (m *Manager) Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// WriteTemp copies reader into a new temp file in the output directory.
// Any failure removes the temp file before returning.
func (m *Manager) WriteTemp(reader io.Reader) (string, int64, error) {
	f, err := os.CreateTemp(m.rootDir, tempPattern)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := f.Name()

	buf := make([]byte, m.bufferSize)
	written, err := io.CopyBuffer(f, reader, buf)
	if err != nil {
		err = multierr.Combine(
			fmt.Errorf("failed to write file: %w", err),
			f.Close(),
			removeIfExists(tempPath),
		)
		return "", written, err
	}

	if err := f.Close(); err != nil {
		return "", written, multierr.Append(
			fmt.Errorf("failed to close file: %w", err),
			removeIfExists(tempPath),
		)
	}

	return tempPath, written, nil
}

// Commit publishes tempPath at destination. Without overwrite the commit is
// a hard link, which fails atomically if the destination already exists,
// so two writers racing for one name cannot both win. The temp file is left
// in place after a link or copy.
func (m *Manager) Commit(tempPath, destination string, overwrite bool) error {
	if filepath.Dir(destination) != m.rootDir {
		return fmt.Errorf("%w: %s", domain.ErrOutsideOutputDir, destination)
	}

	if overwrite {
		if err := os.Rename(tempPath, destination); err != nil {
			return fmt.Errorf("failed to rename temp file: %w", err)
		}
		return nil
	}

	// tempPath stays behind for the caller's Discard.
	err := os.Link(tempPath, destination)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrExist):
		return fmt.Errorf("%w: %s", domain.ErrDestinationExists, destination)
	default:
		// Some filesystems have no hard links; exclusive create still
		// keeps the no-clobber guarantee.
		return copyExclusive(tempPath, destination)
	}
}

// Discard removes files, ignoring ones that no longer exist
func (m *Manager) Discard(paths ...string) error {
	var err error
	for _, p := range paths {
		if p == "" {
			continue
		}
		err = multierr.Append(err, removeIfExists(p))
	}
	return err
}

// CleanOldTempFiles removes temp files older than the specified duration.
// Only the top level of the output directory is scanned since temp files
// are never created below it.
func (m *Manager) CleanOldTempFiles(olderThan time.Duration) (int, error) {
	count := 0
	threshold := time.Now().Add(-olderThan)

	entries, err := os.ReadDir(m.rootDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read output dir: %w", err)
	}

	var errs error
	for _, e := range entries {
		if !e.Type().IsRegular() || !IsTempName(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(threshold) {
			if err := os.Remove(filepath.Join(m.rootDir, e.Name())); err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			count++
		}
	}
	return count, errs
}

// IsTempName reports whether name looks like a download temp file
func IsTempName(name string) bool {
	return strings.HasPrefix(name, TempPrefix) && strings.HasSuffix(name, TempSuffix)
}

func copyExclusive(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open temp file: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", domain.ErrDestinationExists, dst)
		}
		return fmt.Errorf("failed to create destination: %w", err)
	}

	if _, err = io.Copy(out, in); err != nil {
		return multierr.Combine(
			fmt.Errorf("failed to copy to destination: %w", err),
			out.Close(),
			removeIfExists(dst),
		)
	}
	if err := out.Close(); err != nil {
		return multierr.Append(fmt.Errorf("failed to close destination: %w", err), removeIfExists(dst))
	}
	return nil
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete %s: %w", filepath.Base(path), err)
	}
	return nil
}
