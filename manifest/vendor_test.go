package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

func writeVendorFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := []string{
		"foo-1.0.0-1.rockspec",
		"foo-2.0.0-1.rockspec",
		"baz@1.0-1.rock",
	}
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(dir, f), []byte("stub"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.MkdirAll(filepath.Join(dir, "bar@2.0-1"), 0o755); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestVendorDBFind(t *testing.T) {
	db := NewVendorDB(writeVendorFixture(t))

	got, err := db.Find(mustReq(t, "foo"), DefaultFilter)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Spec.Version.String() != "2.0.0-1" || got.Kind != TypeRockspec {
		t.Errorf("foo: %+v", got)
	}

	constrained, err := db.Find(mustReq(t, "foo < 2.0"), DefaultFilter)
	if err != nil {
		t.Fatal(err)
	}
	if constrained == nil || constrained.Spec.Version.String() != "1.0.0-1" {
		t.Errorf("foo < 2.0: %+v", constrained)
	}

	srcDir, err := db.Find(mustReq(t, "bar"), DefaultFilter)
	if err != nil {
		t.Fatal(err)
	}
	if srcDir == nil || srcDir.Kind != TypeSrc {
		t.Errorf("bar: %+v", srcDir)
	}

	binary, err := db.Find(mustReq(t, "baz"), DefaultFilter)
	if err != nil {
		t.Fatal(err)
	}
	if binary == nil || binary.Kind != TypeBinary {
		t.Errorf("baz: %+v", binary)
	}

	missing, err := db.Find(mustReq(t, "quux"), DefaultFilter)
	if err != nil || missing != nil {
		t.Errorf("quux: %+v, %v", missing, err)
	}
}

func TestVendorDBFindFilter(t *testing.T) {
	db := NewVendorDB(writeVendorFixture(t))

	// A src-only filter must skip foo's rockspec entries entirely.
	got, err := db.Find(mustReq(t, "foo"), Filter{TypeSrc})
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("src-only filter matched a rockspec: %+v", got)
	}
}

func TestVendorDBSearch(t *testing.T) {
	db := NewVendorDB(writeVendorFixture(t))

	results, err := db.Search(mustReq(t, "foo"))
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || len(results[0].Versions) != 2 {
		t.Errorf("Search(foo) = %v", results)
	}

	all, err := db.Search(mustReq(t, "ba"))
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("Search(ba) = %v", all)
	}
}

func TestVendorDBMissingDir(t *testing.T) {
	db := NewVendorDB(filepath.Join(t.TempDir(), "nope"))
	got, err := db.Find(mustReq(t, "foo"), DefaultFilter)
	if err != nil || got != nil {
		t.Errorf("missing vendor dir: %+v, %v", got, err)
	}
}
