package lux

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lumen-oss/lux/lockfile"
)

const sampleProject = `
package = "my-app"
version = "scm-1"
lua = ">= 5.1"

[dependencies]
foo = ">= 1.0.0"
bar = "~> 2.1"

[build-dependencies]
luafilesystem = ">= 1.8"

[build]
type = "builtin"
`

func writeProject(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, ProjectFileName), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadProject(t *testing.T) {
	dir := t.TempDir()
	writeProject(t, dir, sampleProject)

	p, err := LoadProject(dir)
	if err != nil {
		t.Fatalf("LoadProject: %v", err)
	}
	if p.Package != "my-app" {
		t.Errorf("package = %q", p.Package)
	}
	if !p.Version.IsDev() {
		t.Errorf("version should be dev: %s", p.Version)
	}
	if len(p.Dependencies) != 2 {
		t.Fatalf("dependencies = %v", p.Dependencies)
	}
	// reqTable sorts by name.
	if p.Dependencies[0].Name.String() != "bar" || p.Dependencies[1].Name.String() != "foo" {
		t.Errorf("dependency order = %v", p.Dependencies)
	}
	if len(p.BuildDependencies) != 1 {
		t.Errorf("build-dependencies = %v", p.BuildDependencies)
	}
	if got := p.DependenciesFor(lockfile.Build); len(got) != 1 {
		t.Errorf("DependenciesFor(Build) = %v", got)
	}
	if p.LockfilePath() != filepath.Join(dir, LockFileName) {
		t.Errorf("LockfilePath = %q", p.LockfilePath())
	}
}

func TestLoadProjectMissingFields(t *testing.T) {
	for _, content := range []string{
		`version = "1.0-1"` + "\n" + `lua = ">= 5.1"`,
		`package = "x"` + "\n" + `version = "1.0-1"`,
	} {
		dir := t.TempDir()
		writeProject(t, dir, content)
		if _, err := LoadProject(dir); err == nil {
			t.Errorf("LoadProject(%q): expected error", content)
		}
	}
}

func TestFindProjectWalksUp(t *testing.T) {
	root := t.TempDir()
	writeProject(t, root, sampleProject)
	nested := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	p, err := FindProject(nested)
	if err != nil {
		t.Fatalf("FindProject: %v", err)
	}
	if p == nil {
		t.Fatalf("project not found from nested dir")
	}
	if p.Root != root {
		t.Errorf("Root = %q, want %q", p.Root, root)
	}
}

func TestFindProjectNone(t *testing.T) {
	p, err := FindProject(t.TempDir())
	if err != nil {
		t.Fatalf("FindProject: %v", err)
	}
	if p != nil {
		t.Errorf("unexpected project: %+v", p)
	}
}

func TestProjectRockspec(t *testing.T) {
	dir := t.TempDir()
	writeProject(t, dir, sampleProject)
	p, err := LoadProject(dir)
	if err != nil {
		t.Fatal(err)
	}
	rs := p.Rockspec()
	if rs.Package.String() != "my-app" {
		t.Errorf("rockspec package = %q", rs.Package)
	}
	if len(rs.Dependencies) != 2 {
		t.Errorf("rockspec dependencies = %v", rs.Dependencies)
	}
}
