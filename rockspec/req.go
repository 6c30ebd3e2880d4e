package rockspec

import (
	"strings"

	"github.com/pkg/errors"
)

// PackageReq is a (name, version requirement) pair, parsed from either
// of the two textual forms "name@ver" and "name ver-constraint".
type PackageReq struct {
	Name       PackageName
	VersionReq PackageVersionReq
}

// ParsePackageReq parses s into a PackageReq. An empty name, or a
// version-only string, is rejected.
func ParsePackageReq(s string) (PackageReq, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return PackageReq{}, errors.New("empty package requirement")
	}

	if idx := strings.Index(s, "@"); idx >= 0 {
		name := strings.TrimSpace(s[:idx])
		ver := strings.TrimSpace(s[idx+1:])
		return newPackageReq(name, ver)
	}

	if idx := strings.IndexAny(s, " \t"); idx >= 0 {
		name := strings.TrimSpace(s[:idx])
		constraint := strings.TrimSpace(s[idx+1:])
		return newPackageReq(name, constraint)
	}

	// Bare name, no constraint: but reject a string that parses as a
	// version and nothing else (the "rejects ... version-only strings"
	// invariant).
	if _, err := ParsePackageVersion(s); err == nil {
		return PackageReq{}, errors.Errorf("%q looks like a version, not a package name", s)
	}

	return newPackageReq(s, "")
}

func newPackageReq(name, constraint string) (PackageReq, error) {
	n, err := NewPackageName(name)
	if err != nil {
		return PackageReq{}, err
	}
	req, err := ParsePackageVersionReq(constraint)
	if err != nil {
		return PackageReq{}, err
	}
	return PackageReq{Name: n, VersionReq: req}, nil
}

// String renders the requirement back as "name ver-constraint", or just
// "name" when the constraint is empty.
func (r PackageReq) String() string {
	if r.VersionReq.IsEmpty() {
		return r.Name.String()
	}
	return r.Name.String() + " " + r.VersionReq.String()
}

// PackageSpec is a concrete (name, version) pair - the identity of one
// specific rock, as opposed to a PackageReq's range of acceptable
// versions.
type PackageSpec struct {
	Name    PackageName
	Version PackageVersion
}

// NewPackageSpec builds a PackageSpec.
func NewPackageSpec(name PackageName, version PackageVersion) PackageSpec {
	return PackageSpec{Name: name, Version: version}
}

// String renders "name version".
func (s PackageSpec) String() string {
	return s.Name.String() + " " + s.Version.String()
}

// Satisfies reports whether the spec's version matches req, and the names
// are equal.
func (s PackageSpec) Satisfies(req PackageReq) bool {
	return s.Name.Equal(req.Name) && req.VersionReq.Matches(s.Version)
}

// ToPackageReq converts a concrete spec into a requirement pinned to
// exactly this version.
func (s PackageSpec) ToPackageReq() PackageReq {
	req, _ := ParsePackageVersionReq("== " + s.Version.String())
	return PackageReq{Name: s.Name, VersionReq: req}
}
