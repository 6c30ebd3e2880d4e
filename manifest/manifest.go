// Package manifest implements the unified remote package database:
// Luarocks manifest zips, the Luanox REST API, a local vendor
// directory, and the lockfile-as-database fallback, searched in a
// configured order and short-circuited on first match.
package manifest

import (
	"github.com/lumen-oss/lux/rockspec"
)

// RockType classifies what kind of artifact a manifest entry offers for
// one package version.
type RockType int

const (
	TypeRockspec RockType = iota
	TypeSrc
	TypeBinary
)

// Filter selects which RockTypes a lookup will accept, in preference
// order (index 0 is most preferred).
type Filter []RockType

// DefaultFilter prefers a rockspec (always buildable) over prebuilt
// artifacts.
var DefaultFilter = Filter{TypeRockspec, TypeSrc, TypeBinary}

// PackFilter prefers a prebuilt binary, for packing an installed rock.
var PackFilter = Filter{TypeBinary, TypeSrc, TypeRockspec}

func (f Filter) accepts(t RockType) bool {
	for _, a := range f {
		if a == t {
			return true
		}
	}
	return false
}

// rank returns the index of t within f, or -1 if not accepted. Lower is
// more preferred.
func (f Filter) rank(t RockType) int {
	for i, a := range f {
		if a == t {
			return i
		}
	}
	return -1
}

// RemotePackage is a resolved (spec, source) pair returned by a Source
// lookup.
type RemotePackage struct {
	Spec      rockspec.PackageSpec
	Kind      RockType
	SourceURL string // URL (or server handle) this package's artifact can be fetched from
	// RockspecContent carries rockspec text directly, for sources (e.g.
	// Luanox) whose download endpoint returns text rather than a URL to
	// refetch later.
	RockspecContent string
}

// Source is one backing package database.
type Source interface {
	// Name identifies the source for diagnostics and --server ordering.
	Name() string
	// Find returns the best RemotePackage satisfying req under filter, or
	// nil if this source has nothing for req.
	Find(req rockspec.PackageReq, filter Filter) (*RemotePackage, error)
	// Search returns every package name (substring-matching req.Name)
	// with the versions available, regardless of filter.
	Search(req rockspec.PackageReq) ([]SearchResult, error)
}

// SearchResult is one package's available versions, as returned by
// Search.
type SearchResult struct {
	Name     rockspec.PackageName
	Versions []rockspec.PackageVersion
}

// DB unifies an ordered list of Sources behind one find/search/
// latest-match surface. Explicit --server overrides come first, then
// extra_servers, then the dev-enabled subset, then the default; a
// LocalLock source, when present, always short-circuits everything
// after it.
type DB struct {
	sources []Source
}

// NewDB builds a DB from sources in lookup-priority order.
func NewDB(sources ...Source) *DB {
	return &DB{sources: sources}
}

// Find iterates sources in configured order and returns the first
// match.
func (db *DB) Find(req rockspec.PackageReq, filter Filter) (*RemotePackage, error) {
	for _, src := range db.sources {
		pkg, err := src.Find(req, filter)
		if err != nil {
			return nil, err
		}
		if pkg != nil {
			return pkg, nil
		}
	}
	return nil, nil
}

// Search substring-matches req.Name across every source and merges the
// results.
func (db *DB) Search(req rockspec.PackageReq) ([]SearchResult, error) {
	var out []SearchResult
	for _, src := range db.sources {
		results, err := src.Search(req)
		if err != nil {
			return nil, err
		}
		out = append(out, results...)
	}
	return out, nil
}

// LatestMatch is Find followed by taking just the spec.
func (db *DB) LatestMatch(req rockspec.PackageReq, filter Filter) (*rockspec.PackageSpec, error) {
	pkg, err := db.Find(req, filter)
	if err != nil || pkg == nil {
		return nil, err
	}
	return &pkg.Spec, nil
}
