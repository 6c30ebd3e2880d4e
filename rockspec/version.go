package rockspec

import (
	"strconv"
	"strings"

	"github.com/Masterminds/semver"
	"github.com/pkg/errors"
)

// PackageVersion is a parsed "<semver-or-dotted> [ '-' <rockrev:int> ]"
// version scm/dev is a distinguished value that sorts
// lower than any concrete version.
type PackageVersion struct {
	raw        string
	components []int64
	rockrev    int64 // -1 means "no rockrev specified"
	dev        bool
}

// IsDev reports whether this is the distinguished scm/dev version.
func (v PackageVersion) IsDev() bool { return v.dev }

// ParsePackageVersion parses a version string such as "1.0.0-1", "2.3",
// "scm", or "dev".
func ParsePackageVersion(s string) (PackageVersion, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return PackageVersion{}, errors.New("version cannot be empty")
	}

	base, rockrev, err := splitRockrev(s)
	if err != nil {
		return PackageVersion{}, err
	}

	if base == "scm" || base == "dev" {
		return PackageVersion{raw: s, dev: true, rockrev: rockrev}, nil
	}

	comps, err := parseDottedComponents(base)
	if err != nil {
		return PackageVersion{}, errors.Wrapf(err, "parsing version %q", s)
	}

	return PackageVersion{raw: s, components: comps, rockrev: rockrev}, nil
}

// splitRockrev splits a trailing "-<int>" rockrev suffix, if present.
func splitRockrev(s string) (base string, rockrev int64, err error) {
	idx := strings.LastIndex(s, "-")
	if idx < 0 {
		return s, -1, nil
	}
	suffix := s[idx+1:]
	n, convErr := strconv.ParseInt(suffix, 10, 64)
	if convErr != nil {
		// Not a rockrev suffix (e.g. a pre-release tag) - treat the whole
		// string as the base.
		return s, -1, nil
	}
	return s[:idx], n, nil
}

// parseDottedComponents splits a dotted-integer version, preserving how
// many components were actually written ("1.2" stays two components, so
// the "~>" upper bound lands on the right digit). Strings the plain
// split rejects ("1.0.0-rc1" and friends) fall back to the
// Masterminds/semver parser.
func parseDottedComponents(base string) ([]int64, error) {
	parts := strings.Split(base, ".")
	comps := make([]int64, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			comps = nil
			break
		}
		comps = append(comps, n)
	}
	if len(comps) > 0 {
		return comps, nil
	}

	if sv, err := semver.NewVersion(base); err == nil {
		return []int64{int64(sv.Major()), int64(sv.Minor()), int64(sv.Patch())}, nil
	}
	return nil, errors.Errorf("%q is not a dotted numeric version", base)
}

// String returns the original textual form.
func (v PackageVersion) String() string { return v.raw }

// Compare returns -1, 0, or 1 as v is less than, equal to, or greater
// than other: dotted numeric lexicographic, then rockrev breaking ties
// (higher rockrev wins), with dev/scm sorting below any concrete
// version.
func (v PackageVersion) Compare(other PackageVersion) int {
	if v.dev != other.dev {
		if v.dev {
			return -1
		}
		return 1
	}
	if v.dev && other.dev {
		return 0
	}

	n := len(v.components)
	if len(other.components) > n {
		n = len(other.components)
	}
	for i := 0; i < n; i++ {
		a, b := comp(v.components, i), comp(other.components, i)
		if a != b {
			if a < b {
				return -1
			}
			return 1
		}
	}

	ar, br := v.rockrev, other.rockrev
	if ar == br {
		return 0
	}
	if ar < br {
		return -1
	}
	return 1
}

func comp(s []int64, i int) int64 {
	if i >= len(s) {
		return 0
	}
	return s[i]
}

// Less reports whether v sorts before other.
func (v PackageVersion) Less(other PackageVersion) bool { return v.Compare(other) < 0 }

// Equal reports whether v and other compare equal.
func (v PackageVersion) Equal(other PackageVersion) bool { return v.Compare(other) == 0 }

func (v PackageVersion) withoutRockrev() string {
	if v.rockrev < 0 {
		return v.raw
	}
	idx := strings.LastIndex(v.raw, "-")
	if idx < 0 {
		return v.raw
	}
	return v.raw[:idx]
}
