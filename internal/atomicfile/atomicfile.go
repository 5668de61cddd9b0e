// ABOUTME: Crash-safe file replacement via temp file and rename
// ABOUTME: Temp files are created with the final mode in the target directory

// Package atomicfile replaces files so that readers observe either the old or
// the new content, never a partial write.
package atomicfile

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

// TempPrefix starts the name of every temporary file created by Write.
// Directory listings skip names with this prefix.
const TempPrefix = "."

// Write atomically replaces path with data. The temporary file lives in the
// same directory as path and is created with perm, ignoring the umask, so a
// 0600 file is never visible with wider permissions.
func Write(path string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(path)

	t, err := renameio.NewPendingFile(path,
		renameio.WithTempDir(dir),
		renameio.WithPermissions(perm.Perm()),
		renameio.IgnoreUmask(),
	)
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer t.Cleanup()

	if _, err := t.Write(data); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := t.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replacing %s: %w", filepath.Base(path), err)
	}

	syncDir(dir)
	return nil
}

// IsTemp reports whether name looks like a file created by Write
// (or any other hidden file).
func IsTemp(name string) bool {
	return len(name) > 0 && name[:1] == TempPrefix
}

// syncDir flushes the directory entry after a rename. Failure is ignored:
// some filesystems do not support fsync on directories.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
