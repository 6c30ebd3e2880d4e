package fetch

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func zipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := io.WriteString(w, content); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func targzBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, content := range files {
		if err := tw.WriteHeader(&tar.Header{
			Name: name,
			Mode: 0o644,
			Size: int64(len(content)),
		}); err != nil {
			t.Fatal(err)
		}
		if _, err := io.WriteString(tw, content); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestUnpackZipFlattensSingleRoot(t *testing.T) {
	data := zipBytes(t, map[string]string{
		"foo-1.0/init.lua":    "return {}",
		"foo-1.0/sub/mod.lua": "return 1",
	})
	dest := filepath.Join(t.TempDir(), "out")

	if err := Unpack(data, dest, "foo-1.0.zip", nil); err != nil {
		t.Fatalf("Unpack: %v", err)
	}

	// The single root dir "foo-1.0" is a prefix of the archive stem, so
	// its contents land directly in dest.
	if _, err := os.Stat(filepath.Join(dest, "init.lua")); err != nil {
		t.Errorf("init.lua not flattened: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, "sub", "mod.lua")); err != nil {
		t.Errorf("sub/mod.lua not flattened: %v", err)
	}
}

func TestUnpackZipMultiRoot(t *testing.T) {
	data := zipBytes(t, map[string]string{
		"a.lua": "return 1",
		"b.lua": "return 2",
	})
	dest := filepath.Join(t.TempDir(), "out")

	if err := Unpack(data, dest, "multi.zip", nil); err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	for _, f := range []string{"a.lua", "b.lua"} {
		if _, err := os.Stat(filepath.Join(dest, f)); err != nil {
			t.Errorf("%s missing: %v", f, err)
		}
	}
}

func TestUnpackTarGz(t *testing.T) {
	data := targzBytes(t, map[string]string{
		"pkg-2.0/main.lua": "return {}",
	})
	dest := filepath.Join(t.TempDir(), "out")

	if err := Unpack(data, dest, "pkg-2.0.tar.gz", nil); err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, "main.lua")); err != nil {
		t.Errorf("main.lua missing: %v", err)
	}
}

func TestUnpackUnrelatedRootDirNotFlattened(t *testing.T) {
	data := zipBytes(t, map[string]string{
		"unrelated/init.lua": "return {}",
	})
	dest := filepath.Join(t.TempDir(), "out")

	if err := Unpack(data, dest, "foo-1.0.zip", nil); err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, "unrelated", "init.lua")); err != nil {
		t.Errorf("unrelated dir should be kept as-is: %v", err)
	}
}
