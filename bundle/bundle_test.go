package bundle

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("os.MkdirAll() error: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("os.WriteFile() error: %v", err)
	}
}

func TestLocate(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "calendar", "main.js"), "a")
	writeFile(t, filepath.Join(root, "dataview", "main.js"), "b")
	writeFile(t, filepath.Join(root, "dataview", "lib", "deep", "main.js"), "c")
	writeFile(t, filepath.Join(root, "dataview", "main.js.bak"), "backup")
	writeFile(t, filepath.Join(root, "dataview", "Main.js"), "wrong case")
	writeFile(t, filepath.Join(root, "dataview", "styles.css"), "css")
	if err := os.MkdirAll(filepath.Join(root, "weird", "main.js"), 0755); err != nil {
		t.Fatal(err)
	}

	got, err := Locate(root, "")
	if err != nil {
		t.Fatalf("Locate() error: %v", err)
	}
	want := []string{
		filepath.Join(root, "calendar", "main.js"),
		filepath.Join(root, "dataview", "lib", "deep", "main.js"),
		filepath.Join(root, "dataview", "main.js"),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Locate() mismatch (-want +got):\n%s", diff)
	}
}

func TestLocateFollowsFileSymlinks(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	shared := filepath.Join(t.TempDir(), "build", "main.js")
	writeFile(t, shared, "bundle")
	if err := os.MkdirAll(filepath.Join(root, "linked"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(shared, filepath.Join(root, "linked", "main.js")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(root, "dangling"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(filepath.Join(root, "nowhere.js"), filepath.Join(root, "dangling", "main.js")); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(filepath.Dir(shared), filepath.Join(root, "dirlink")); err != nil {
		t.Fatal(err)
	}

	got, err := Locate(root, DefaultName)
	if err != nil {
		t.Fatalf("Locate() error: %v", err)
	}
	want := []string{filepath.Join(root, "linked", "main.js")}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Locate() mismatch (-want +got):\n%s", diff)
	}
}

func TestLocateNoMatches(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "plugin", "manifest.json"), "{}")

	got, err := Locate(root, DefaultName)
	if err != nil {
		t.Fatalf("Locate() error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("Locate() = %v, want empty", got)
	}
}

func TestLocateBadRoot(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if _, err := Locate(filepath.Join(dir, "missing"), DefaultName); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Locate(missing) error = %v, want os.ErrNotExist", err)
	}

	file := filepath.Join(dir, "main.js")
	writeFile(t, file, "x")
	if _, err := Locate(file, DefaultName); err == nil {
		t.Fatal("Locate(file) error = nil, want error")
	}
}

func TestBackupCopiesContentModeAndTime(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "main.js")
	content := "setName(\"Show language name\");\nsetDesc(\"Displays the active language\");\n"
	writeFile(t, src, content)
	if err := os.Chmod(src, 0640); err != nil {
		t.Fatal(err)
	}
	mtime := time.Date(2023, 6, 8, 18, 45, 0, 0, time.UTC)
	if err := os.Chtimes(src, mtime, mtime); err != nil {
		t.Fatal(err)
	}

	// A stale backup with different content and mode is replaced.
	writeFile(t, src+DefaultBackupSuffix, "stale")

	dst, err := Backup(src, "")
	if err != nil {
		t.Fatalf("Backup() error: %v", err)
	}
	if dst != src+".bak" {
		t.Fatalf("Backup() = %q, want %q", dst, src+".bak")
	}

	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("os.ReadFile() error: %v", err)
	}
	if string(data) != content {
		t.Fatalf("backup content = %q, want %q", data, content)
	}

	info, err := os.Stat(dst)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0640 {
		t.Errorf("backup mode = %v, want %v", info.Mode().Perm(), os.FileMode(0640))
	}
	if !info.ModTime().Equal(mtime) {
		t.Errorf("backup mtime = %v, want %v", info.ModTime(), mtime)
	}
}

func TestBackupCustomSuffix(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "main.js")
	writeFile(t, src, "x")

	dst, err := Backup(src, ".orig")
	if err != nil {
		t.Fatalf("Backup() error: %v", err)
	}
	if dst != src+".orig" {
		t.Fatalf("Backup() = %q, want %q", dst, src+".orig")
	}
}

func TestBackupErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	t.Run("missing source", func(t *testing.T) {
		_, err := Backup(filepath.Join(dir, "missing.js"), "")
		var be *BackupError
		if !errors.As(err, &be) {
			t.Fatalf("Backup() error = %v, want *BackupError", err)
		}
		if !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("Backup() error = %v, want os.ErrNotExist in chain", err)
		}
	})

	t.Run("unwritable destination", func(t *testing.T) {
		src := filepath.Join(dir, "main.js")
		writeFile(t, src, "x")
		// A directory where the backup should go cannot be opened for writing.
		if err := os.MkdirAll(src+".bak", 0755); err != nil {
			t.Fatal(err)
		}
		_, err := Backup(src, "")
		var be *BackupError
		if !errors.As(err, &be) {
			t.Fatalf("Backup() error = %v, want *BackupError", err)
		}
		if be.Path != src {
			t.Errorf("BackupError.Path = %q, want %q", be.Path, src)
		}
	})
}
