package manifest

import (
	"path/filepath"
	"testing"

	"github.com/lumen-oss/lux/lockfile"
	"github.com/lumen-oss/lux/rockspec"
	"github.com/lumen-oss/lux/tree"
)

func lockWith(t *testing.T, names ...string) *lockfile.Lockfile {
	t.Helper()
	lf, err := lockfile.Open(filepath.Join(t.TempDir(), "lux.lock"))
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range names {
		n, err := rockspec.NewPackageName(name)
		if err != nil {
			t.Fatal(err)
		}
		v, err := rockspec.ParsePackageVersion("1.0-1")
		if err != nil {
			t.Fatal(err)
		}
		source := rockspec.SourceSpec{Kind: rockspec.SourceURL, URL: "https://example.com/" + name + ".tar.gz"}
		pkg := tree.NewLocalPackage(rockspec.PackageSpec{Name: n, Version: v}, rockspec.PackageVersionReq{}, false, false, tree.KindEntry, source, "https://example.com/"+name+".src.rock")
		lf.AddEntrypoint(lockfile.Regular, pkg)
	}
	return lf
}

func TestLocalLockFind(t *testing.T) {
	src := NewLocalLock(lockWith(t, "foo"), lockfile.Regular)

	got, err := src.Find(mustReq(t, "foo"), DefaultFilter)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Spec.Name != "foo" {
		t.Fatalf("Find(foo) = %+v", got)
	}
	if got.SourceURL == "" {
		t.Errorf("locked source_url should be carried through")
	}

	missing, err := src.Find(mustReq(t, "bar"), DefaultFilter)
	if err != nil || missing != nil {
		t.Errorf("Find(bar) = %+v, %v", missing, err)
	}
}

func TestLocalLockShortCircuitsRemotes(t *testing.T) {
	remote := &stubSource{name: "remote", pkg: remotePkg(t, "foo", "9.0-1")}
	db := NewDB(NewLocalLock(lockWith(t, "foo"), lockfile.Regular), remote)

	got, err := db.Find(mustReq(t, "foo"), DefaultFilter)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Spec.Version.String() != "1.0-1" {
		t.Errorf("lockfile should win over remotes: %+v", got)
	}
	if remote.calls != 0 {
		t.Errorf("remote consulted despite lockfile hit")
	}
}
