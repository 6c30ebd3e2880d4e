package lux

import (
	"os"
	"path/filepath"
	"sort"

	toml "github.com/pelletier/go-toml"
	"github.com/pkg/errors"

	"github.com/lumen-oss/lux/lockfile"
	"github.com/lumen-oss/lux/rockspec"
)

// ProjectFileName is the project manifest at a project root.
const ProjectFileName = "lux.toml"

// LockFileName is the project lockfile next to lux.toml.
const LockFileName = "lux.lock"

// Project is a parsed lux.toml plus the directory it was found in.
type Project struct {
	Root string

	Package string
	Version rockspec.PackageVersion
	Lua     rockspec.PackageVersionReq

	Dependencies      []rockspec.PackageReq
	BuildDependencies []rockspec.PackageReq
	TestDependencies  []rockspec.PackageReq

	Build rockspec.BuildSpec
}

type rawProject struct {
	Package string `toml:"package"`
	Version string `toml:"version"`
	Lua     string `toml:"lua"`

	Dependencies      map[string]string `toml:"dependencies"`
	BuildDependencies map[string]string `toml:"build-dependencies"`
	TestDependencies  map[string]string `toml:"test-dependencies"`

	Build map[string]interface{} `toml:"build"`
}

// FindProject walks upward from dir looking for lux.toml. Returns
// (nil, nil) when no project file exists on the path to the filesystem
// root.
func FindProject(dir string) (*Project, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	for {
		candidate := filepath.Join(dir, ProjectFileName)
		if _, err := os.Stat(candidate); err == nil {
			return LoadProject(dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// LoadProject parses <root>/lux.toml.
func LoadProject(root string) (*Project, error) {
	path := filepath.Join(root, ProjectFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}

	var raw rawProject
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}

	if raw.Package == "" {
		return nil, errors.Errorf("%s: missing required field: package", path)
	}
	if raw.Lua == "" {
		return nil, errors.Errorf("%s: missing required field: lua", path)
	}

	p := &Project{Root: root, Package: raw.Package}

	p.Version, err = rockspec.ParsePackageVersion(raw.Version)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: version", path)
	}
	p.Lua, err = rockspec.ParsePackageVersionReq(raw.Lua)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: lua", path)
	}

	p.Dependencies, err = reqTable(raw.Dependencies)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: dependencies", path)
	}
	p.BuildDependencies, err = reqTable(raw.BuildDependencies)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: build-dependencies", path)
	}
	p.TestDependencies, err = reqTable(raw.TestDependencies)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: test-dependencies", path)
	}

	p.Build, err = projectBuildSpec(raw.Build)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: build", path)
	}

	return p, nil
}

// reqTable turns a [dependencies]-style TOML table into PackageReqs,
// sorted by name so downstream plans are deterministic.
func reqTable(m map[string]string) ([]rockspec.PackageReq, error) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]rockspec.PackageReq, 0, len(names))
	for _, name := range names {
		pkgName, err := rockspec.NewPackageName(name)
		if err != nil {
			return nil, err
		}
		verReq, err := rockspec.ParsePackageVersionReq(m[name])
		if err != nil {
			return nil, errors.Wrapf(err, "dependency %s", name)
		}
		out = append(out, rockspec.PackageReq{Name: pkgName, VersionReq: verReq})
	}
	return out, nil
}

func projectBuildSpec(raw map[string]interface{}) (rockspec.BuildSpec, error) {
	b := rockspec.BuildSpec{Type: rockspec.BackendBuiltin}
	if raw == nil {
		return b, nil
	}
	if t, ok := raw["type"].(string); ok && t != "" {
		bt := rockspec.BackendType(t)
		if !rockspec.KnownBackends[bt] {
			return b, errors.Errorf("unsupported build backend %q", t)
		}
		b.Type = bt
	}
	if mods, ok := raw["modules"].(map[string]interface{}); ok {
		b.Modules = make(map[string]string, len(mods))
		for k, v := range mods {
			if s, ok := v.(string); ok {
				b.Modules[k] = s
			}
		}
	}
	if cmd, ok := raw["command"].(string); ok {
		b.Command = cmd
	}
	return b, nil
}

// DependenciesFor returns the dependency list backing one LockType.
func (p *Project) DependenciesFor(t lockfile.LockType) []rockspec.PackageReq {
	switch t {
	case lockfile.Build:
		return p.BuildDependencies
	case lockfile.Test:
		return p.TestDependencies
	default:
		return p.Dependencies
	}
}

// LockfilePath is <root>/lux.lock.
func (p *Project) LockfilePath() string {
	return filepath.Join(p.Root, LockFileName)
}

// Rockspec synthesizes a Rockspec describing the project itself, with
// the project root as a file source.
func (p *Project) Rockspec() *rockspec.Rockspec {
	name, _ := rockspec.NewPackageName(p.Package)
	return &rockspec.Rockspec{
		Format:       "3.0",
		Package:      name,
		Version:      p.Version,
		Source:       rockspec.SourceSpec{Kind: rockspec.SourceFile, URL: p.Root},
		Dependencies: p.Dependencies,
		Build:        p.Build,
	}
}
