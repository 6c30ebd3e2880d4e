package tree

import (
	"github.com/lumen-oss/lux/rockspec"
)

// MatchResult is the outcome of matching a PackageReq against a set of
// LocalPackages match_rocks(req).
type MatchResult struct {
	// Kind is NotFound, Single, or Many.
	Kind   MatchKind
	Single LocalPackage
	Many   []LocalPackage
}

type MatchKind int

const (
	NotFound MatchKind = iota
	Single
	Many
)

// MatchRocks scans rocks (typically a lockfile's Regular sub-lock) for
// packages matching req.Name and req.VersionReq, breaking ties by
// highest version then by entrypoint status.
func MatchRocks(rocks []LocalPackage, req rockspec.PackageReq) MatchResult {
	var matched []LocalPackage
	for _, p := range rocks {
		if !p.Spec.Name.Equal(req.Name) {
			continue
		}
		if !req.VersionReq.Matches(p.Spec.Version) {
			continue
		}
		matched = append(matched, p)
	}

	switch len(matched) {
	case 0:
		return MatchResult{Kind: NotFound}
	case 1:
		return MatchResult{Kind: Single, Single: matched[0]}
	}

	sortByVersionThenEntrypoint(matched)
	return MatchResult{Kind: Many, Many: matched, Single: matched[0]}
}

func sortByVersionThenEntrypoint(pkgs []LocalPackage) {
	for i := 1; i < len(pkgs); i++ {
		for j := i; j > 0 && less(pkgs[j], pkgs[j-1]); j-- {
			pkgs[j], pkgs[j-1] = pkgs[j-1], pkgs[j]
		}
	}
}

// less orders a before b when a should sort first: higher version first,
// then entrypoints before dependency-only installs.
func less(a, b LocalPackage) bool {
	if c := a.Spec.Version.Compare(b.Spec.Version); c != 0 {
		return c > 0
	}
	aEntry := a.Kind == KindEntry
	bEntry := b.Kind == KindEntry
	return aEntry && !bEntry
}
