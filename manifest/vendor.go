package manifest

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/lumen-oss/lux/rockspec"
)

// VendorDB scans a local directory for rockspecs, source directories, and
// binary rocks:
//
//	<vendor>/<name>-<ver>.rockspec
//	<vendor>/<name>@<ver>/       (source dir)
//	<vendor>/<name>@<ver>.rock   (binary)
//
// Used as an offline, deterministic source when the user configures a
// vendor directory.
type VendorDB struct {
	Dir string
}

func NewVendorDB(dir string) *VendorDB { return &VendorDB{Dir: dir} }

func (v *VendorDB) Name() string { return "vendor:" + v.Dir }

type vendorEntry struct {
	name    string
	version rockspec.PackageVersion
	kind    RockType
	path    string
}

func (v *VendorDB) scan() ([]vendorEntry, error) {
	entries, err := os.ReadDir(v.Dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "scanning vendor dir %s", v.Dir)
	}

	var out []vendorEntry
	for _, e := range entries {
		name := e.Name()
		switch {
		case !e.IsDir() && strings.HasSuffix(name, ".rockspec"):
			pkg, ver, ok := splitDash(strings.TrimSuffix(name, ".rockspec"))
			if ok {
				out = append(out, vendorEntry{name: pkg, version: ver, kind: TypeRockspec, path: filepath.Join(v.Dir, name)})
			}
		case e.IsDir() && strings.Contains(name, "@"):
			pkg, ver, ok := splitAt(name)
			if ok {
				out = append(out, vendorEntry{name: pkg, version: ver, kind: TypeSrc, path: filepath.Join(v.Dir, name)})
			}
		case !e.IsDir() && strings.HasSuffix(name, ".rock") && strings.Contains(name, "@"):
			pkg, ver, ok := splitAt(strings.TrimSuffix(name, ".rock"))
			if ok {
				out = append(out, vendorEntry{name: pkg, version: ver, kind: TypeBinary, path: filepath.Join(v.Dir, name)})
			}
		}
	}
	return out, nil
}

func splitDash(base string) (name string, ver rockspec.PackageVersion, ok bool) {
	idx := strings.LastIndex(base, "-")
	if idx < 0 {
		return "", rockspec.PackageVersion{}, false
	}
	// version may itself contain a "-<rockrev>" suffix, so try splitting
	// at each dash from the right and keep the leftmost split whose tail
	// still parses as a version ("foo-1.0.0-1" -> "foo", "1.0.0-1").
	for i := idx; i >= 0; i = strings.LastIndex(base[:i], "-") {
		if v, err := rockspec.ParsePackageVersion(base[i+1:]); err == nil {
			name, ver, ok = base[:i], v, true
		} else if ok {
			break
		}
		if i == 0 {
			break
		}
	}
	return name, ver, ok
}

func splitAt(base string) (name string, ver rockspec.PackageVersion, ok bool) {
	idx := strings.Index(base, "@")
	if idx < 0 {
		return "", rockspec.PackageVersion{}, false
	}
	v, err := rockspec.ParsePackageVersion(base[idx+1:])
	if err != nil {
		return "", rockspec.PackageVersion{}, false
	}
	return base[:idx], v, true
}

func (v *VendorDB) Find(req rockspec.PackageReq, filter Filter) (*RemotePackage, error) {
	entries, err := v.scan()
	if err != nil {
		return nil, err
	}

	var best *vendorEntry
	bestRank := len(filter)
	for i, e := range entries {
		if !strings.EqualFold(e.name, req.Name.String()) {
			continue
		}
		if !req.VersionReq.Matches(e.version) {
			continue
		}
		rank := filter.rank(e.kind)
		if rank < 0 {
			continue
		}
		if best == nil || e.version.Compare(best.version) > 0 || (e.version.Equal(best.version) && rank < bestRank) {
			best = &entries[i]
			bestRank = rank
		}
	}
	if best == nil {
		return nil, nil
	}

	name, err := rockspec.NewPackageName(best.name)
	if err != nil {
		return nil, err
	}
	return &RemotePackage{
		Spec:      rockspec.PackageSpec{Name: name, Version: best.version},
		Kind:      best.kind,
		SourceURL: "file://" + best.path,
	}, nil
}

func (v *VendorDB) Search(req rockspec.PackageReq) ([]SearchResult, error) {
	entries, err := v.scan()
	if err != nil {
		return nil, err
	}
	byName := make(map[string][]rockspec.PackageVersion)
	needle := strings.ToLower(req.Name.String())
	for _, e := range entries {
		if needle != "" && !strings.Contains(strings.ToLower(e.name), needle) {
			continue
		}
		if !req.VersionReq.Matches(e.version) {
			continue
		}
		byName[e.name] = append(byName[e.name], e.version)
	}
	var out []SearchResult
	for name, versions := range byName {
		pkgName, err := rockspec.NewPackageName(name)
		if err != nil {
			continue
		}
		out = append(out, SearchResult{Name: pkgName, Versions: versions})
	}
	return out, nil
}
