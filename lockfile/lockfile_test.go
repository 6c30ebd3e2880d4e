package lockfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lumen-oss/lux/rockspec"
	"github.com/lumen-oss/lux/tree"
)

func testPackage(t *testing.T, name, version, constraint string, pinned bool, kind tree.Kind) tree.LocalPackage {
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
	return tree.NewLocalPackage(rockspec.PackageSpec{Name: n, Version: v}, c, pinned, false, kind, source, "")
}

func TestLockfileBasics(t *testing.T) {
	lf := newEmpty(filepath.Join(t.TempDir(), "lux.lock"))

	foo := testPackage(t, "foo", "1.0.0-1", ">= 1.0", false, tree.KindEntry)
	bar := testPackage(t, "bar", "2.0-1", "", false, tree.KindDep)

	lf.AddEntrypoint(Regular, foo)
	lf.Add(Regular, bar)

	if got, ok := lf.Get(Regular, foo.ID); !ok || got.Spec.Name != "foo" {
		t.Errorf("Get(foo) = %+v, %v", got, ok)
	}
	if !lf.IsEntrypoint(Regular, foo.ID) {
		t.Errorf("foo should be an entrypoint")
	}
	if lf.IsEntrypoint(Regular, bar.ID) {
		t.Errorf("bar should not be an entrypoint")
	}
	if len(lf.Rocks(Regular)) != 2 {
		t.Errorf("Rocks = %d entries", len(lf.Rocks(Regular)))
	}
	if len(lf.Rocks(Test)) != 0 {
		t.Errorf("Test sub-lock should be empty")
	}
	if got := lf.RocksByName(Regular, "bar"); len(got) != 1 {
		t.Errorf("RocksByName(bar) = %v", got)
	}

	// Invariant 1: every entrypoint id has a backing package.
	for id := range lf.subOrNew(Regular).Entrypoints {
		if _, ok := lf.Get(Regular, id); !ok {
			t.Errorf("entrypoint %s has no package", id)
		}
	}

	lf.Remove(Regular, foo)
	if _, ok := lf.Get(Regular, foo.ID); ok {
		t.Errorf("foo still present after Remove")
	}
	if lf.IsEntrypoint(Regular, foo.ID) {
		t.Errorf("foo still an entrypoint after Remove")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lux.lock")
	lf := newEmpty(path)

	foo := testPackage(t, "foo", "1.0.0-1", ">= 1.0", true, tree.KindEntry)
	foo.Binaries = []string{"foo-cli"}
	foo.Hashes = tree.Hashes{Rockspec: "sha256-aaaa", Source: "sha256-bbbb"}
	bar := testPackage(t, "bar", "2.0-1", "", false, tree.KindDep)

	lf.AddEntrypoint(Regular, foo)
	lf.Add(Regular, bar)
	lf.Add(Test, testPackage(t, "busted", "2.2.0-1", "", false, tree.KindEntry))

	data, err := lf.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	again, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	gotFoo, ok := again.Get(Regular, foo.ID)
	if !ok {
		t.Fatalf("foo missing after round-trip; rocks = %v", again.Rocks(Regular))
	}
	if !gotFoo.Pinned || gotFoo.Spec.Version.String() != "1.0.0-1" {
		t.Errorf("foo = %+v", gotFoo)
	}
	if gotFoo.Hashes.Source != "sha256-bbbb" || gotFoo.Hashes.Rockspec != "sha256-aaaa" {
		t.Errorf("hashes = %+v", gotFoo.Hashes)
	}
	if len(gotFoo.Binaries) != 1 || gotFoo.Binaries[0] != "foo-cli" {
		t.Errorf("binaries = %v", gotFoo.Binaries)
	}
	if !again.IsEntrypoint(Regular, foo.ID) {
		t.Errorf("foo lost entrypoint status")
	}
	if _, ok := again.Get(Regular, bar.ID); !ok {
		t.Errorf("bar missing after round-trip")
	}
	if len(again.Rocks(Test)) != 1 {
		t.Errorf("test sub-lock lost: %v", again.Rocks(Test))
	}
	if len(again.Rocks(Build)) != 0 {
		t.Errorf("build sub-lock should be empty")
	}
}

func TestOpenMissingFile(t *testing.T) {
	lf, err := Open(filepath.Join(t.TempDir(), "does-not-exist.lock"))
	if err != nil {
		t.Fatalf("Open on a missing file: %v", err)
	}
	if len(lf.Rocks(Regular)) != 0 {
		t.Errorf("missing file should open empty")
	}
}

func TestDiffSync(t *testing.T) {
	lf := newEmpty(filepath.Join(t.TempDir(), "lux.lock"))
	lf.Add(Regular, testPackage(t, "a", "1.0-1", "", false, tree.KindDep))
	lf.Add(Regular, testPackage(t, "b", "1.0-1", "", false, tree.KindDep))

	reqA, _ := rockspec.ParsePackageReq("a >= 1.0")
	reqC, _ := rockspec.ParsePackageReq("c")

	spec := lf.DiffSync(Regular, []rockspec.PackageReq{reqA, reqC})
	if len(spec.ToAdd) != 1 || spec.ToAdd[0].Name != "c" {
		t.Errorf("ToAdd = %v", spec.ToAdd)
	}
	if len(spec.ToRemove) != 1 || spec.ToRemove[0].Spec.Name != "b" {
		t.Errorf("ToRemove = %v", spec.ToRemove)
	}

	// A narrowed constraint evicts the locked version and re-adds the
	// requirement.
	reqA2, _ := rockspec.ParsePackageReq("a >= 2.0")
	spec = lf.DiffSync(Regular, []rockspec.PackageReq{reqA2})
	var names []string
	for _, r := range spec.ToAdd {
		names = append(names, r.Name.String())
	}
	if len(spec.ToAdd) != 1 || names[0] != "a" {
		t.Errorf("narrowed ToAdd = %v", spec.ToAdd)
	}
	if len(spec.ToRemove) != 2 {
		t.Errorf("narrowed ToRemove = %v", spec.ToRemove)
	}
}

func TestSyncReplacesOneSubLock(t *testing.T) {
	lf := newEmpty(filepath.Join(t.TempDir(), "a.lock"))
	lf.Add(Regular, testPackage(t, "a", "1.0-1", "", false, tree.KindDep))
	lf.Add(Test, testPackage(t, "busted", "2.2.0-1", "", false, tree.KindEntry))

	other := newEmpty(filepath.Join(t.TempDir(), "b.lock"))
	other.Add(Regular, testPackage(t, "z", "9.0-1", "", false, tree.KindDep))

	lf.Sync(Regular, other.SubLockFor(Regular))

	if len(lf.Rocks(Regular)) != 1 {
		t.Fatalf("Regular = %v", lf.Rocks(Regular))
	}
	for _, pkg := range lf.Rocks(Regular) {
		if pkg.Spec.Name != "z" {
			t.Errorf("Regular holds %s, want z", pkg.Spec.Name)
		}
	}
	if len(lf.Rocks(Test)) != 1 {
		t.Errorf("Test sub-lock was clobbered")
	}
}
