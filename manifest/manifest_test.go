package manifest

import (
	"testing"

	"github.com/lumen-oss/lux/rockspec"
)

func mustReq(t *testing.T, s string) rockspec.PackageReq {
	t.Helper()
	req, err := rockspec.ParsePackageReq(s)
	if err != nil {
		t.Fatal(err)
	}
	return req
}

func TestFilterRank(t *testing.T) {
	if !DefaultFilter.accepts(TypeRockspec) || !DefaultFilter.accepts(TypeBinary) {
		t.Errorf("DefaultFilter should accept every type")
	}
	if DefaultFilter.rank(TypeRockspec) != 0 {
		t.Errorf("DefaultFilter prefers rockspecs")
	}
	if PackFilter.rank(TypeBinary) != 0 {
		t.Errorf("PackFilter prefers binaries")
	}
	narrow := Filter{TypeSrc}
	if narrow.accepts(TypeBinary) || narrow.rank(TypeBinary) != -1 {
		t.Errorf("narrow filter should reject binaries")
	}
}

// stubSource is a Source with canned results, for DB ordering tests.
type stubSource struct {
	name  string
	pkg   *RemotePackage
	calls int
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Find(req rockspec.PackageReq, filter Filter) (*RemotePackage, error) {
	s.calls++
	return s.pkg, nil
}

func (s *stubSource) Search(req rockspec.PackageReq) ([]SearchResult, error) {
	if s.pkg == nil {
		return nil, nil
	}
	return []SearchResult{{Name: s.pkg.Spec.Name, Versions: []rockspec.PackageVersion{s.pkg.Spec.Version}}}, nil
}

func remotePkg(t *testing.T, name, version string) *RemotePackage {
	t.Helper()
	n, err := rockspec.NewPackageName(name)
	if err != nil {
		t.Fatal(err)
	}
	v, err := rockspec.ParsePackageVersion(version)
	if err != nil {
		t.Fatal(err)
	}
	return &RemotePackage{Spec: rockspec.PackageSpec{Name: n, Version: v}, Kind: TypeRockspec}
}

func TestDBFindShortCircuits(t *testing.T) {
	first := &stubSource{name: "first", pkg: remotePkg(t, "foo", "1.0-1")}
	second := &stubSource{name: "second", pkg: remotePkg(t, "foo", "9.0-1")}
	db := NewDB(first, second)

	got, err := db.Find(mustReq(t, "foo"), DefaultFilter)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Spec.Version.String() != "1.0-1" {
		t.Errorf("Find = %+v, want the first source's package", got)
	}
	if second.calls != 0 {
		t.Errorf("second source consulted despite first match")
	}
}

func TestDBFindFallsThrough(t *testing.T) {
	empty := &stubSource{name: "empty"}
	full := &stubSource{name: "full", pkg: remotePkg(t, "foo", "2.0-1")}
	db := NewDB(empty, full)

	got, err := db.Find(mustReq(t, "foo"), DefaultFilter)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Spec.Version.String() != "2.0-1" {
		t.Errorf("Find = %+v", got)
	}
}

func TestDBFindEmpty(t *testing.T) {
	db := NewDB(&stubSource{name: "empty"})
	got, err := db.Find(mustReq(t, "foo"), DefaultFilter)
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("empty DB should find nothing, got %+v", got)
	}

	spec, err := db.LatestMatch(mustReq(t, "foo"), DefaultFilter)
	if err != nil || spec != nil {
		t.Errorf("LatestMatch on empty DB = %+v, %v", spec, err)
	}
}

func TestDecodeManifestLua(t *testing.T) {
	content := `
repository = {
   ["lua-cjson"] = {
      ["2.1.0-1"] = {
         { arch = "rockspec" },
         { arch = "src" },
      },
      ["2.0.0-1"] = {
         { arch = "rockspec" },
         { arch = "linux-x86_64" },
      },
   },
   lpeg = {
      ["1.0.2-1"] = {
         { arch = "rockspec" },
      },
   },
}
`
	entries, err := decodeManifestLua([]byte(content))
	if err != nil {
		t.Fatalf("decodeManifestLua: %v", err)
	}
	cjson, ok := entries["lua-cjson"]
	if !ok {
		t.Fatalf("entries = %v", entries)
	}
	if len(cjson["2.1.0-1"]) != 2 || cjson["2.1.0-1"][0] != TypeRockspec || cjson["2.1.0-1"][1] != TypeSrc {
		t.Errorf("2.1.0-1 types = %v", cjson["2.1.0-1"])
	}
	if cjson["2.0.0-1"][1] != TypeBinary {
		t.Errorf("2.0.0-1 types = %v", cjson["2.0.0-1"])
	}
	if _, ok := entries["lpeg"]; !ok {
		t.Errorf("lpeg missing")
	}
}

func TestDecodeManifestEmpty(t *testing.T) {
	entries, err := decodeManifestLua([]byte(""))
	if err != nil {
		t.Fatalf("empty manifest should parse: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("empty manifest should yield an empty DB")
	}
}
