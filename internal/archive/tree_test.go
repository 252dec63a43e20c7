package archive

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
)

// writeTree creates files under root from a map of slash-joined relative
// paths to contents, creating parent directories as needed.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

// runArchiver walks root into an in-memory zip and returns the archiver,
// the decoded zip and the count.
func runArchiver(t *testing.T, root, tempDir string) (*Archiver, map[string]string, int) {
	t.Helper()
	var buf bytes.Buffer
	zs := NewZipStream(&buf)
	a := &Archiver{Sink: zs, Snapshots: &Snapshotter{Dir: tempDir}}
	count, err := a.Archive(root)
	if err != nil {
		t.Fatal(err)
	}
	if err := zs.Finish(); err != nil {
		t.Fatal(err)
	}

	zr := readZip(t, buf.Bytes())
	entries := make(map[string]string, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatal(err)
		}
		entries[f.Name] = string(content)
	}
	return a, entries, count
}

func assertTempDirEmpty(t *testing.T, tempDir string) {
	t.Helper()
	left, err := os.ReadDir(tempDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(left) != 0 {
		t.Fatalf("snapshots left behind: %v", left)
	}
}

func TestArchiveLogDirectory(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"catalina.log":    "0123456789",
		"archive/old.log": "01234567890123456789",
	})
	tempDir := t.TempDir()

	a, entries, count := runArchiver(t, root, tempDir)

	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}
	if entries["catalina.log"] != "0123456789" {
		t.Errorf("catalina.log = %q", entries["catalina.log"])
	}
	if entries["archive/old.log"] != "01234567890123456789" {
		t.Errorf("archive/old.log = %q", entries["archive/old.log"])
	}
	if len(a.Results()) != 2 {
		t.Fatalf("results = %d, want 2", len(a.Results()))
	}
	for _, res := range a.Results() {
		if res.Status != EntryArchived || res.Err != nil {
			t.Errorf("result %s: status %v, err %v", res.Name, res.Status, res.Err)
		}
	}
	assertTempDirEmpty(t, tempDir)
}

func TestArchiveDeepTree(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{
		"a.log":         "a",
		"x/b.log":       "b",
		"x/y/c.log":     "c",
		"x/y/z/d.log":   "d",
		"w/e.log":       "e",
		"w/v/u/t/f.log": "f",
	}
	writeTree(t, root, files)
	tempDir := t.TempDir()

	_, entries, count := runArchiver(t, root, tempDir)

	if count != len(files) {
		t.Fatalf("count = %d, want %d", count, len(files))
	}
	for name, content := range files {
		if entries[name] != content {
			t.Errorf("entry %s = %q, want %q", name, entries[name], content)
		}
	}
	assertTempDirEmpty(t, tempDir)
}

func TestArchiveEmptyDirectory(t *testing.T) {
	root := t.TempDir()
	tempDir := t.TempDir()

	_, entries, count := runArchiver(t, root, tempDir)

	if count != 0 {
		t.Fatalf("count = %d, want 0", count)
	}
	if len(entries) != 0 {
		t.Fatalf("entries = %v, want none", entries)
	}
	assertTempDirEmpty(t, tempDir)
}

func TestArchiveDirectoriesOnly(t *testing.T) {
	root := t.TempDir()
	for _, dir := range []string{"a/b/c", "d/e", "f"} {
		if err := os.MkdirAll(filepath.Join(root, filepath.FromSlash(dir)), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	tempDir := t.TempDir()

	_, entries, count := runArchiver(t, root, tempDir)

	if count != 0 {
		t.Fatalf("count = %d, want 0", count)
	}
	if len(entries) != 0 {
		t.Fatalf("entries = %v, want none", entries)
	}
}

func TestArchiveSkipsSymlinks(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"real.log": "real"})
	if err := os.Symlink(
		filepath.Join(root, "real.log"),
		filepath.Join(root, "link.log"),
	); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	_, entries, count := runArchiver(t, root, t.TempDir())

	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
	if _, ok := entries["link.log"]; ok {
		t.Fatal("symlink was archived")
	}
}

func TestArchiveSkipsUnreadableFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("running as root, permission bits are not enforced")
	}
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"good.log": "good",
		"bad.log":  "bad",
	})
	if err := os.Chmod(filepath.Join(root, "bad.log"), 0o000); err != nil {
		t.Fatal(err)
	}
	tempDir := t.TempDir()

	a, entries, count := runArchiver(t, root, tempDir)

	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
	if _, ok := entries["bad.log"]; ok {
		t.Fatal("unreadable file produced an entry")
	}
	if entries["good.log"] != "good" {
		t.Errorf("good.log = %q", entries["good.log"])
	}

	var skipped *EntryResult
	for i := range a.Results() {
		if a.Results()[i].Status == EntrySkipped {
			skipped = &a.Results()[i]
		}
	}
	if skipped == nil {
		t.Fatal("no skipped result recorded")
	}
	if skipped.Name != "bad.log" || skipped.Err == nil {
		t.Fatalf("skipped result = %+v", skipped)
	}
	assertTempDirEmpty(t, tempDir)
}

func TestArchiveMissingRoot(t *testing.T) {
	tempDir := t.TempDir()
	var buf bytes.Buffer
	zs := NewZipStream(&buf)
	a := &Archiver{Sink: zs, Snapshots: &Snapshotter{Dir: tempDir}}

	_, err := a.Archive(filepath.Join(t.TempDir(), "nope"))
	if err == nil {
		t.Fatal("expected error for missing root")
	}
	assertTempDirEmpty(t, tempDir)
}
