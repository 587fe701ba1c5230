// Package fileutil holds small file helpers shared by the file-backed stores.
package fileutil

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
)

// rename is replaced in tests to simulate a failing final step.
var rename = os.Rename

// WriteAtomic replaces path with data using the temp-file, fsync, rename
// pattern. The temp file lives in the target directory so the rename never
// crosses file systems. On any error the previous file is left untouched.
//
// data is written as one payload rather than streamed record by record, and
// the temp file is set to 0644 before the rename since CreateTemp makes it
// 0600. The rename step goes through the package-level rename hook.
func WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	w := bufio.NewWriter(tmp)
	if _, err := w.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("flushing buffer: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
