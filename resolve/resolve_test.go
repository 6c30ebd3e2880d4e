package resolve

import (
	"fmt"
	"io"
	"testing"

	"github.com/lumen-oss/lux/fetch"
	"github.com/lumen-oss/lux/internal/log"
	"github.com/lumen-oss/lux/manifest"
	"github.com/lumen-oss/lux/rockspec"
	"github.com/lumen-oss/lux/tree"
)

// fakeSource serves canned rockspec text keyed by package name, the way
// a Luanox source serves rockspec content directly.
type fakeSource struct {
	rockspecs map[string]string // name -> rockspec text
	versions  map[string]string // name -> version
}

func (s *fakeSource) Name() string { return "fake" }

func (s *fakeSource) Find(req rockspec.PackageReq, filter manifest.Filter) (*manifest.RemotePackage, error) {
	text, ok := s.rockspecs[req.Name.String()]
	if !ok {
		return nil, nil
	}
	v, err := rockspec.ParsePackageVersion(s.versions[req.Name.String()])
	if err != nil {
		return nil, err
	}
	if !req.VersionReq.Matches(v) {
		return nil, nil
	}
	return &manifest.RemotePackage{
		Spec:            rockspec.PackageSpec{Name: req.Name, Version: v},
		Kind:            manifest.TypeRockspec,
		RockspecContent: text,
	}, nil
}

func (s *fakeSource) Search(req rockspec.PackageReq) ([]manifest.SearchResult, error) {
	return nil, nil
}

func rockspecText(name, version string, deps ...string) string {
	text := fmt.Sprintf("package = %q\nversion = %q\nsource = { url = %q }\n",
		name, version, "https://example.com/"+name+".tar.gz")
	if len(deps) > 0 {
		text += "dependencies = {\n"
		for _, d := range deps {
			text += fmt.Sprintf("   %q,\n", d)
		}
		text += "}\n"
	}
	return text
}

func testResolver(t *testing.T, src *fakeSource) *Resolver {
	t.Helper()
	return &Resolver{
		DB:       manifest.NewDB(src),
		Fetcher:  fetch.NewFetcher(t.TempDir()),
		Platform: "linux",
		Logger:   log.New(io.Discard, io.Discard),
	}
}

func mustSpec(t *testing.T, req string) PackageInstallSpec {
	t.Helper()
	r, err := rockspec.ParsePackageReq(req)
	if err != nil {
		t.Fatal(err)
	}
	return PackageInstallSpec{Req: r, EntryType: Entrypoint}
}

func TestResolveTransitive(t *testing.T) {
	src := &fakeSource{
		rockspecs: map[string]string{
			"app": rockspecText("app", "1.0-1", "lib >= 1.0", "lua >= 5.1"),
			"lib": rockspecText("lib", "1.2-1"),
		},
		versions: map[string]string{"app": "1.0-1", "lib": "1.2-1"},
	}

	plan, err := testResolver(t, src).Resolve([]PackageInstallSpec{mustSpec(t, "app")})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(plan) != 2 {
		t.Fatalf("plan = %d entries", len(plan))
	}
	if plan[0].Rockspec.Package.String() != "app" || plan[0].EntryType != Entrypoint {
		t.Errorf("plan[0] = %s (%s)", plan[0].Rockspec.Package, plan[0].EntryType)
	}
	if plan[1].Rockspec.Package.String() != "lib" || plan[1].EntryType != DependencyOnly {
		t.Errorf("plan[1] = %s (%s)", plan[1].Rockspec.Package, plan[1].EntryType)
	}
}

func TestResolveSkipsEnvironmentProvided(t *testing.T) {
	src := &fakeSource{
		rockspecs: map[string]string{
			"app": rockspecText("app", "1.0-1", "lua >= 5.1"),
		},
		versions: map[string]string{"app": "1.0-1"},
	}

	plan, err := testResolver(t, src).Resolve([]PackageInstallSpec{mustSpec(t, "app")})
	if err != nil {
		t.Fatal(err)
	}
	if len(plan) != 1 {
		t.Errorf("lua should not be resolved: plan = %d entries", len(plan))
	}
}

func TestResolveCycleTerminates(t *testing.T) {
	src := &fakeSource{
		rockspecs: map[string]string{
			"a": rockspecText("a", "1.0-1", "b"),
			"b": rockspecText("b", "1.0-1", "a"),
		},
		versions: map[string]string{"a": "1.0-1", "b": "1.0-1"},
	}

	plan, err := testResolver(t, src).Resolve([]PackageInstallSpec{mustSpec(t, "a")})
	if err != nil {
		t.Fatalf("cycle should resolve, not error: %v", err)
	}
	if len(plan) != 2 {
		t.Errorf("plan = %d entries", len(plan))
	}
}

func TestResolveDiamondConflict(t *testing.T) {
	src := &fakeSource{
		rockspecs: map[string]string{
			"left":  rockspecText("left", "1.0-1", "bar >= 1.0, < 2.0"),
			"right": rockspecText("right", "1.0-1", "bar >= 2.0, < 3.0"),
			"bar":   rockspecText("bar", "1.5-1"),
		},
		versions: map[string]string{"left": "1.0-1", "right": "1.0-1", "bar": "1.5-1"},
	}

	_, err := testResolver(t, src).Resolve([]PackageInstallSpec{
		mustSpec(t, "left"), mustSpec(t, "right"),
	})
	if err == nil {
		t.Fatalf("expected a constraint conflict")
	}
	conflict, ok := err.(*RockConstraintUnsatisfied)
	if !ok {
		t.Fatalf("error type = %T: %v", err, err)
	}
	if conflict.Name != "bar" || len(conflict.Constraints) != 2 {
		t.Errorf("conflict = %+v", conflict)
	}
}

func TestResolveNotFound(t *testing.T) {
	src := &fakeSource{rockspecs: map[string]string{}, versions: map[string]string{}}
	_, err := testResolver(t, src).Resolve([]PackageInstallSpec{mustSpec(t, "ghost")})
	if err == nil {
		t.Fatalf("expected not-found error")
	}
}

func TestResolveAlreadyInstalledSkipped(t *testing.T) {
	src := &fakeSource{
		rockspecs: map[string]string{"app": rockspecText("app", "1.0-1")},
		versions:  map[string]string{"app": "1.0-1"},
	}
	r := testResolver(t, src)
	r.AlreadyInstalled = func(req rockspec.PackageReq) (tree.LocalPackage, bool) {
		return tree.LocalPackage{}, req.Name.String() == "app"
	}

	plan, err := r.Resolve([]PackageInstallSpec{mustSpec(t, "app")})
	if err != nil {
		t.Fatal(err)
	}
	if len(plan) != 0 {
		t.Errorf("already-installed package should be skipped: %d entries", len(plan))
	}
}

func TestResolveSourceOverride(t *testing.T) {
	src := &fakeSource{rockspecs: map[string]string{}, versions: map[string]string{}}
	override := rockspec.SourceSpec{Kind: rockspec.SourceGit, URL: "https://github.com/x/y.git"}

	req, err := rockspec.ParsePackageReq("y@0.5-1")
	if err != nil {
		t.Fatal(err)
	}
	plan, err := testResolver(t, src).Resolve([]PackageInstallSpec{{
		Req:       req,
		EntryType: Entrypoint,
		Source:    &override,
	}})
	if err != nil {
		t.Fatalf("source override should bypass the DB: %v", err)
	}
	if len(plan) != 1 {
		t.Fatalf("plan = %d entries", len(plan))
	}
	if plan[0].Source.URL != override.URL {
		t.Errorf("source = %+v", plan[0].Source)
	}
	if plan[0].Rockspec.Version.String() != "0.5-1" {
		t.Errorf("exact version lost: %q", plan[0].Rockspec.Version)
	}
}
