package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func tempRoot(t *testing.T) *FS {
	t.Helper()
	fs, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func mustWrite(t *testing.T, s *FS, files map[string]string) {
	t.Helper()
	for p, c := range files {
		if err := s.Write(p, []byte(c)); err != nil {
			t.Fatalf("Write %s: %v", p, err)
		}
	}
}

func TestWriteAndRead(t *testing.T) {
	s := tempRoot(t)
	content := []byte("# Hello\n[World](http://w)\n")
	if err := s.Write("a/b/doc.md", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("a/b/doc.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestList(t *testing.T) {
	s := tempRoot(t)
	mustWrite(t, s, map[string]string{
		"a.md":       "a",
		"sub/b.md":   "b",
		"readme.txt": "not md",
	})

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	for _, it := range items {
		if it.Checksum == "" || it.UpdatedAt.IsZero() {
			t.Errorf("incomplete metadata: %+v", it)
		}
	}
}

func TestGlob(t *testing.T) {
	s := tempRoot(t)
	mustWrite(t, s, map[string]string{
		"z.md":             "z",
		"docs/a.md":        "a",
		"docs/deep/b.md":   "b",
		"drafts/c.md":      "c",
		"docs/notes.txt":   "t",
		"docs/deep/x.mkd":  "x",
		"vendor/lib/l.md":  "l",
		"docs/README.text": "r",
	})

	got, err := s.Glob(nil, []string{"drafts/**", "vendor/**"})
	if err != nil {
		t.Fatalf("Glob: %v", err)
	}
	want := []string{"docs/a.md", "docs/deep/b.md", "z.md"}
	if len(got) != len(want) {
		t.Fatalf("Glob = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Glob[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	only, err := s.Glob([]string{"docs/*.md", "**/*.mkd"}, nil)
	if err != nil {
		t.Fatalf("Glob: %v", err)
	}
	if len(only) != 2 || only[0] != "docs/a.md" || only[1] != "docs/deep/x.mkd" {
		t.Errorf("Glob = %v", only)
	}
}

func TestGlob_InvalidPattern(t *testing.T) {
	s := tempRoot(t)
	if _, err := s.Glob([]string{"[unclosed"}, nil); err == nil {
		t.Error("expected error for invalid pattern")
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempRoot(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.md",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicWriteLeavesNoTempFiles(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("out.tsv", []byte("original"))
	if err := s.Write("out.tsv", []byte("updated")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("out.tsv")
	if string(got) != "updated" {
		t.Errorf("expected updated content, got %q", got)
	}

	matches, _ := filepath.Glob(filepath.Join(s.Root(), ".linkmark-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestChecksum(t *testing.T) {
	const emptySHA = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := Checksum(nil); got != emptySHA {
		t.Errorf("Checksum(nil) = %s", got)
	}
	if Checksum([]byte("a")) == Checksum([]byte("b")) {
		t.Error("different content, same checksum")
	}
}

func TestNewFS_Errors(t *testing.T) {
	if _, err := NewFS(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for non-existent dir")
	}

	f, err := os.CreateTemp(t.TempDir(), "linkmark-test-*")
	if err != nil {
		t.Fatal(err)
	}
	_ = f.Close()
	if _, err := NewFS(f.Name()); err == nil {
		t.Error("expected error when root is a file")
	}
}
