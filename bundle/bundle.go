// Package bundle locates plugin bundles on disk and backs them up before
// they are rewritten.
package bundle

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// DefaultName is the file name Obsidian loads a plugin's code from.
const DefaultName = "main.js"

// DefaultBackupSuffix is appended to a bundle path to form its backup path.
const DefaultBackupSuffix = ".bak"

// Locate recursively finds every regular file, or symlink to one, under root
// whose base name is exactly name. Symlinked directories are not followed. Unreadable subdirectories are skipped. The result is sorted;
// it is empty, not an error, when nothing matches.
func Locate(root, name string) ([]string, error) {
	if name == "" {
		name = DefaultName
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() && path != root {
				return filepath.SkipDir
			}
			return nil // skip unreadable entries
		}
		if d.Name() == name && isRegular(path, d) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}

	sort.Strings(files)
	return files, nil
}

// isRegular reports whether d is a regular file or a symlink to one.
func isRegular(path string, d fs.DirEntry) bool {
	if d.Type().IsRegular() {
		return true
	}
	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// BackupError is returned when a bundle cannot be copied to its backup path.
// The bundle must not be modified in that case.
type BackupError struct {
	Path   string
	Backup string
	Err    error
}

func (e *BackupError) Error() string {
	return fmt.Sprintf("backing up %s to %s: %v", e.Path, e.Backup, e.Err)
}

func (e *BackupError) Unwrap() error { return e.Err }

// Backup copies path to path+suffix, including its permission bits and
// modification time, and returns the backup path. An existing backup is
// overwritten.
func Backup(path, suffix string) (string, error) {
	if suffix == "" {
		suffix = DefaultBackupSuffix
	}
	dst := path + suffix

	if err := copyFile(path, dst); err != nil {
		return "", &BackupError{Path: path, Backup: dst, Err: err}
	}
	return dst, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return errors.New("not a regular file")
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	// OpenFile keeps the mode of a pre-existing backup.
	if err := out.Chmod(info.Mode().Perm()); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
