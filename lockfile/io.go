package lockfile

import (
	"os"

	toml "github.com/pelletier/go-toml"
	"github.com/pkg/errors"

	"github.com/lumen-oss/lux/rockspec"
	"github.com/lumen-oss/lux/tree"
)

type rawLockfile struct {
	Version string     `toml:"version"`
	Regular rawSubLock `toml:"regular"`
	Test    rawSubLock `toml:"test"`
	Build   rawSubLock `toml:"build"`
}

type rawSubLock struct {
	Entrypoints []string              `toml:"entrypoints"`
	Rocks       map[string]rawPackage `toml:"rocks"`
}

type rawPackage struct {
	Name         string   `toml:"name"`
	Version      string   `toml:"version"`
	Constraint   string   `toml:"constraint"`
	Pinned       bool     `toml:"pinned"`
	Opt          bool     `toml:"opt"`
	Kind         string   `toml:"kind"`
	SourceKind   int      `toml:"source_kind"`
	SourceURL    string   `toml:"source_url,omitempty"`
	CheckoutRef  string   `toml:"checkout_ref,omitempty"`
	Dir          string   `toml:"dir,omitempty"`
	ArchiveName  string   `toml:"archive_name,omitempty"`
	Integrity    string   `toml:"integrity,omitempty"`
	Binaries     []string `toml:"binaries,omitempty"`
	RockspecHash string   `toml:"rockspec_hash,omitempty"`
	SourceHash   string   `toml:"source_hash,omitempty"`
}

// Open reads the lockfile at path read-only. A missing file is not an
// error: it returns a fresh empty lockfile, the state before any
// install has ever run.
func Open(path string) (*Lockfile, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return newEmpty(path), nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading lockfile %s", path)
	}

	var raw rawLockfile
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrapf(err, "parsing lockfile %s", path)
	}

	l := newEmpty(path)
	if raw.Version != "" {
		l.version = raw.Version
	}
	for t, rs := range map[LockType]rawSubLock{Regular: raw.Regular, Test: raw.Test, Build: raw.Build} {
		sub, err := decodeSubLock(rs)
		if err != nil {
			return nil, errors.Wrapf(err, "decoding %s sub-lock", t)
		}
		l.sub[t] = sub
	}
	return l, nil
}

func decodeSubLock(rs rawSubLock) (*SubLock, error) {
	sub := newSubLock()
	for idStr, rp := range rs.Rocks {
		pkg, err := decodePackage(rp)
		if err != nil {
			return nil, errors.Wrapf(err, "rock %s", idStr)
		}
		sub.Rocks[tree.PackageID(idStr)] = pkg
	}
	for _, idStr := range rs.Entrypoints {
		sub.Entrypoints[tree.PackageID(idStr)] = true
	}
	return sub, nil
}

func decodePackage(rp rawPackage) (tree.LocalPackage, error) {
	name, err := rockspec.NewPackageName(rp.Name)
	if err != nil {
		return tree.LocalPackage{}, err
	}
	version, err := rockspec.ParsePackageVersion(rp.Version)
	if err != nil {
		return tree.LocalPackage{}, err
	}
	constraint, err := rockspec.ParsePackageVersionReq(rp.Constraint)
	if err != nil {
		return tree.LocalPackage{}, err
	}

	source := rockspec.SourceSpec{
		Kind:        rockspec.SourceKind(rp.SourceKind),
		URL:         rp.SourceURL,
		CheckoutRef: rp.CheckoutRef,
		Dir:         rp.Dir,
		ArchiveName: rp.ArchiveName,
		Integrity:   rp.Integrity,
	}

	kind := tree.KindDep
	if rp.Kind == string(tree.KindEntry) {
		kind = tree.KindEntry
	}

	pkg := tree.NewLocalPackage(rockspec.PackageSpec{Name: name, Version: version}, constraint, rp.Pinned, rp.Opt, kind, source, rp.SourceURL)
	pkg.Binaries = rp.Binaries
	pkg.Hashes = tree.Hashes{Rockspec: rp.RockspecHash, Source: rp.SourceHash}
	return pkg, nil
}

// Encode serializes l to its canonical TOML text. Rocks are keyed by id
// and written in id order, and entrypoint ids are sorted, so the output
// is stable; rocks are not ordered by name or version.
func (l *Lockfile) Encode() ([]byte, error) {
	raw := rawLockfile{Version: l.version}
	raw.Regular = encodeSubLock(l.subOrNew(Regular))
	raw.Test = encodeSubLock(l.subOrNew(Test))
	raw.Build = encodeSubLock(l.subOrNew(Build))
	return toml.Marshal(raw)
}

func encodeSubLock(s *SubLock) rawSubLock {
	out := rawSubLock{Rocks: make(map[string]rawPackage, len(s.Rocks))}
	for id, p := range s.Rocks {
		out.Rocks[string(id)] = encodePackage(p)
	}
	for id := range s.Entrypoints {
		out.Entrypoints = append(out.Entrypoints, string(id))
	}
	sortStrings(out.Entrypoints)
	return out
}

func encodePackage(p tree.LocalPackage) rawPackage {
	return rawPackage{
		Name:         p.Spec.Name.String(),
		Version:      p.Spec.Version.String(),
		Constraint:   p.Constraint.String(),
		Pinned:       p.Pinned,
		Opt:          p.Opt,
		Kind:         string(p.Kind),
		SourceKind:   int(p.Source.Kind),
		SourceURL:    p.Source.URL,
		CheckoutRef:  p.Source.CheckoutRef,
		Dir:          p.Source.Dir,
		ArchiveName:  p.Source.ArchiveName,
		Integrity:    p.Source.Integrity,
		Binaries:     p.Binaries,
		RockspecHash: p.Hashes.Rockspec,
		SourceHash:   p.Hashes.Source,
	}
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j] < s[j-1]; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}
