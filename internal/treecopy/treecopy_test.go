package treecopy

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestCopyDir(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{
		"a.lua":       "return 1",
		"sub/b.lua":   "return 2",
		"sub/c/d.txt": "deep",
	})

	dest := filepath.Join(t.TempDir(), "copy")
	if err := CopyDir(src, dest); err != nil {
		t.Fatalf("CopyDir: %v", err)
	}
	for _, rel := range []string{"a.lua", "sub/b.lua", "sub/c/d.txt"} {
		if _, err := os.Stat(filepath.Join(dest, rel)); err != nil {
			t.Errorf("%s missing: %v", rel, err)
		}
	}
}

func TestIsDirIsRegular(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if ok, err := IsDir(dir); !ok || err != nil {
		t.Errorf("IsDir(dir) = %v, %v", ok, err)
	}
	if ok, err := IsDir(file); ok || err != nil {
		t.Errorf("IsDir(file) = %v, %v", ok, err)
	}
	if ok, err := IsDir(filepath.Join(dir, "nope")); ok || err != nil {
		t.Errorf("IsDir(missing) = %v, %v", ok, err)
	}
	if ok, err := IsRegular(file); !ok || err != nil {
		t.Errorf("IsRegular(file) = %v, %v", ok, err)
	}
}

func TestHashTree(t *testing.T) {
	a := t.TempDir()
	writeTree(t, a, map[string]string{"x.lua": "return 1", "sub/y.lua": "return 2"})

	h1, err := HashTree(a)
	if err != nil {
		t.Fatalf("HashTree: %v", err)
	}
	h2, err := HashTree(a)
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Errorf("HashTree not deterministic: %s != %s", h1, h2)
	}

	// An identical tree elsewhere hashes identically.
	b := t.TempDir()
	writeTree(t, b, map[string]string{"x.lua": "return 1", "sub/y.lua": "return 2"})
	h3, err := HashTree(b)
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h3 {
		t.Errorf("identical trees hash differently")
	}

	// Changing content changes the hash.
	writeTree(t, b, map[string]string{"x.lua": "return 99"})
	h4, err := HashTree(b)
	if err != nil {
		t.Fatal(err)
	}
	if h4 == h1 {
		t.Errorf("content change not reflected in hash")
	}
}

func TestHashTreeSkipsVCS(t *testing.T) {
	a := t.TempDir()
	writeTree(t, a, map[string]string{"x.lua": "return 1"})
	h1, err := HashTree(a)
	if err != nil {
		t.Fatal(err)
	}

	writeTree(t, a, map[string]string{".git/config": "[core]"})
	h2, err := HashTree(a)
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Errorf("VCS bookkeeping should not affect the hash")
	}
}

func TestRenameWithFallback(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{"f.txt": "hello"})

	dest := filepath.Join(t.TempDir(), "moved")
	if err := RenameWithFallback(src, dest); err != nil {
		t.Fatalf("RenameWithFallback: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, "f.txt")); err != nil {
		t.Errorf("moved file missing: %v", err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Errorf("src should be gone after rename")
	}
}
