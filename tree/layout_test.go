package tree

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/lumen-oss/lux/rockspec"
)

func testPackage(t *testing.T, name, version, constraint string, pinned bool, kind Kind) LocalPackage {
	t.Helper()
	n, err := rockspec.NewPackageName(name)
	if err != nil {
		t.Fatal(err)
	}
	v, err := rockspec.ParsePackageVersion(version)
	if err != nil {
		t.Fatal(err)
	}
	c, err := rockspec.ParsePackageVersionReq(constraint)
	if err != nil {
		t.Fatal(err)
	}
	source := rockspec.SourceSpec{Kind: rockspec.SourceURL, URL: "https://example.com/" + name + ".tar.gz"}
	return NewLocalPackage(rockspec.PackageSpec{Name: n, Version: v}, c, pinned, false, kind, source, "")
}

func TestComputeIDDeterministic(t *testing.T) {
	a := testPackage(t, "foo", "1.0.0-1", ">= 1.0", false, KindEntry)
	b := testPackage(t, "foo", "1.0.0-1", ">= 1.0", false, KindEntry)
	if a.ID != b.ID {
		t.Errorf("equal inputs produced different ids: %s != %s", a.ID, b.ID)
	}

	c := testPackage(t, "foo", "1.0.0-2", ">= 1.0", false, KindEntry)
	if a.ID == c.ID {
		t.Errorf("different versions share an id: %s", a.ID)
	}

	d := testPackage(t, "foo", "1.0.0-1", ">= 1.1", false, KindEntry)
	if a.ID == d.ID {
		t.Errorf("different constraints share an id: %s", a.ID)
	}
}

func TestWithPinnedChangesID(t *testing.T) {
	pkg := testPackage(t, "baz", "1.0.0-1", "", false, KindEntry)
	pinned := pkg.WithPinned(true)
	if pinned.ID == pkg.ID {
		t.Errorf("pinning did not change the id")
	}
	if !pinned.Pinned {
		t.Errorf("WithPinned(true) left Pinned false")
	}
	back := pinned.WithPinned(false)
	if back.ID != pkg.ID {
		t.Errorf("unpinning did not restore the id: %s != %s", back.ID, pkg.ID)
	}
}

func TestLayout(t *testing.T) {
	tr := New("/opt/lux", "5.4")
	pkg := testPackage(t, "foo", "1.0.0-1", "", false, KindEntry)
	layout := tr.Layout(pkg)

	wantRoot := filepath.Join("/opt/lux", "5.4", "entry", "foo", "1.0.0-1-"+string(pkg.ID))
	if layout.Root != wantRoot {
		t.Errorf("Root = %q, want %q", layout.Root, wantRoot)
	}
	if layout.Bin != filepath.Join("/opt/lux", "5.4", "entry", "bin") {
		t.Errorf("Bin = %q", layout.Bin)
	}
	if !strings.HasPrefix(layout.SrcDir(), layout.Root) {
		t.Errorf("SrcDir outside root: %q", layout.SrcDir())
	}

	rp := layout.RockspecPath(pkg.Spec.Name, pkg.Spec.Version)
	if filepath.Base(rp) != "rockspec-foo-1.0.0-1.rockspec" {
		t.Errorf("RockspecPath = %q", rp)
	}

	dep := testPackage(t, "bar", "2.0-1", "", false, KindDep)
	depLayout := tr.Layout(dep)
	if !strings.Contains(depLayout.Root, filepath.Join("5.4", "dep", "bar")) {
		t.Errorf("dep Root = %q", depLayout.Root)
	}
	// Bin dirs are shared per tree-kind, not per package.
	if depLayout.Bin == layout.Bin {
		t.Errorf("entry and dep should not share a bin dir")
	}
}
