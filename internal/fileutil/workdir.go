package fileutil

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

// EnsureDir creates path and any missing parents.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", path, err)
	}
	return nil
}

// RunDir is a locked per-run working directory under the staging root.
// The lock guards against two runs sharing one build directory; Release
// drops the lock and removes the directory.
type RunDir struct {
	Path string
	lock *flock.Flock
}

// CreateRunDir creates staging/<uuid> and takes an exclusive lock on
// it. The uuid keeps concurrent runs for the same book apart.
func CreateRunDir(stagingDir string) (*RunDir, error) {
	if err := EnsureDir(stagingDir); err != nil {
		return nil, err
	}

	dir := filepath.Join(stagingDir, uuid.NewString())
	if err := os.Mkdir(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create run directory %q: %w", dir, err)
	}

	lock := flock.New(filepath.Join(dir, ".lock"))
	locked, err := lock.TryLock()
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("lock run directory %q: %w", dir, err)
	}
	if !locked {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("run directory %q already locked", dir)
	}

	return &RunDir{Path: dir, lock: lock}, nil
}

// Release unlocks and removes the run directory. Safe to call once.
func (r *RunDir) Release() error {
	if r == nil {
		return nil
	}
	if r.lock != nil {
		if err := r.lock.Unlock(); err != nil {
			return fmt.Errorf("unlock run directory: %w", err)
		}
		r.lock = nil
	}
	if r.Path != "" {
		if err := os.RemoveAll(r.Path); err != nil {
			return fmt.Errorf("remove run directory: %w", err)
		}
	}
	return nil
}

// MoveFile renames src to dst, falling back to a verified copy plus
// delete when the rename crosses filesystems.
func MoveFile(src, dst string) error {
	if err := EnsureDir(filepath.Dir(dst)); err != nil {
		return err
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := CopyFileVerified(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}
