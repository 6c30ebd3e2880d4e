package rockspec

import (
	"strings"

	"github.com/pkg/errors"
)

type compOp int

const (
	opGE compOp = iota
	opGT
	opLE
	opLT
	opEQ
	opCompatible // "~>"
)

type clause struct {
	op compOp
	v  PackageVersion
}

// PackageVersionReq is a set of AND-ed comparator clauses, e.g.
// ">= 1.0, < 2.0". An empty requirement matches any concrete non-dev
// version; the distinguished "any" requirement also matches dev versions.
type PackageVersionReq struct {
	clauses []clause
	any     bool
}

// Any returns the requirement that matches every version, including dev.
func Any() PackageVersionReq { return PackageVersionReq{any: true} }

// ParsePackageVersionReq parses a comma-separated list of clauses such as
// ">= 1.0", "== 2.0.0", "~> 3.1", or ">= 1.0, < 2.0". The empty string
// parses to the empty (match-any-concrete) requirement.
func ParsePackageVersionReq(s string) (PackageVersionReq, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return PackageVersionReq{}, nil
	}
	if s == "any" {
		return Any(), nil
	}

	parts := strings.Split(s, ",")
	clauses := make([]clause, 0, len(parts))
	for _, p := range parts {
		c, err := parseClause(strings.TrimSpace(p))
		if err != nil {
			return PackageVersionReq{}, errors.Wrapf(err, "parsing constraint %q", s)
		}
		clauses = append(clauses, c)
	}
	return PackageVersionReq{clauses: clauses}, nil
}

func parseClause(s string) (clause, error) {
	ops := []struct {
		prefix string
		op     compOp
	}{
		{">=", opGE}, {"<=", opLE}, {"~>", opCompatible},
		{"==", opEQ}, {">", opGT}, {"<", opLT}, {"=", opEQ},
	}

	for _, o := range ops {
		if strings.HasPrefix(s, o.prefix) {
			rest := strings.TrimSpace(s[len(o.prefix):])
			v, err := ParsePackageVersion(rest)
			if err != nil {
				return clause{}, err
			}
			return clause{op: o.op, v: v}, nil
		}
	}

	// Bare version string implies exact match, matching luarocks'
	// "name ver-constraint" shorthand when no operator is given.
	v, err := ParsePackageVersion(s)
	if err != nil {
		return clause{}, errors.Errorf("invalid constraint clause %q", s)
	}
	return clause{op: opEQ, v: v}, nil
}

// Matches reports whether v satisfies the requirement.
func (r PackageVersionReq) Matches(v PackageVersion) bool {
	if r.any {
		return true
	}
	if v.IsDev() {
		// An empty/concrete requirement never matches dev unless "any".
		return false
	}
	for _, c := range r.clauses {
		if !clauseMatches(c, v) {
			return false
		}
	}
	return true
}

func clauseMatches(c clause, v PackageVersion) bool {
	switch c.op {
	case opGE:
		return !v.Less(c.v)
	case opGT:
		return c.v.Less(v)
	case opLE:
		return !c.v.Less(v)
	case opLT:
		return v.Less(c.v)
	case opEQ:
		return v.Equal(c.v)
	case opCompatible:
		return compatibleRange(c.v, v)
	}
	return false
}

// compatibleRange implements "~>": v must be >= base and below the next
// increment of base's last written component - "~> 1.2" allows [1.2,
// 1.3), "~> 1.2.3" allows [1.2.3, 1.2.4), "~> 1" allows [1, 2).
func compatibleRange(base, v PackageVersion) bool {
	if v.Less(base) {
		return false
	}
	comps := base.components
	if len(comps) == 0 {
		return true
	}
	upper := make([]int64, len(comps))
	copy(upper, comps)
	upper[len(upper)-1]++
	upperV := PackageVersion{components: upper, rockrev: -1}
	return v.Less(upperV)
}

// String renders the requirement back to the textual comparator form.
func (r PackageVersionReq) String() string {
	if r.any {
		return "any"
	}
	if len(r.clauses) == 0 {
		return ""
	}
	parts := make([]string, len(r.clauses))
	for i, c := range r.clauses {
		var op string
		switch c.op {
		case opGE:
			op = ">="
		case opGT:
			op = ">"
		case opLE:
			op = "<="
		case opLT:
			op = "<"
		case opEQ:
			op = "=="
		case opCompatible:
			op = "~>"
		}
		parts[i] = op + " " + c.v.String()
	}
	return strings.Join(parts, ", ")
}

// IsEmpty reports whether this requirement carries no clauses (matches any
// concrete version).
func (r PackageVersionReq) IsEmpty() bool { return !r.any && len(r.clauses) == 0 }

// ExactVersion returns the version a single "==" requirement names, when
// the requirement is exactly that shape - the form PackageSpec.ToPackageReq
// produces and the resolver's source-override path consumes.
func (r PackageVersionReq) ExactVersion() (PackageVersion, bool) {
	if r.any || len(r.clauses) != 1 || r.clauses[0].op != opEQ {
		return PackageVersion{}, false
	}
	return r.clauses[0].v, true
}

// bounds computes the intersection of r's AND-ed clauses as a (possibly
// open) [lower, upper] interval. A nil bound means unbounded on that
// side. "~>" and "==" each contribute both a lower and an upper bound.
func (r PackageVersionReq) bounds() (lower *PackageVersion, lowerIncl bool, upper *PackageVersion, upperIncl bool) {
	lowerIncl, upperIncl = true, true
	for _, c := range r.clauses {
		switch c.op {
		case opGE:
			lower = tightenLower(lower, &lowerIncl, c.v, true)
		case opGT:
			lower = tightenLower(lower, &lowerIncl, c.v, false)
		case opLE:
			upper = tightenUpper(upper, &upperIncl, c.v, true)
		case opLT:
			upper = tightenUpper(upper, &upperIncl, c.v, false)
		case opEQ:
			lower = tightenLower(lower, &lowerIncl, c.v, true)
			upper = tightenUpper(upper, &upperIncl, c.v, true)
		case opCompatible:
			lower = tightenLower(lower, &lowerIncl, c.v, true)
			if n := len(c.v.components); n > 0 {
				next := make([]int64, n)
				copy(next, c.v.components)
				next[n-1]++
				upper = tightenUpper(upper, &upperIncl, PackageVersion{components: next, rockrev: -1}, false)
			}
		}
	}
	return
}

func tightenLower(cur *PackageVersion, curIncl *bool, v PackageVersion, incl bool) *PackageVersion {
	if cur == nil || v.Compare(*cur) > 0 {
		*curIncl = incl
		return &v
	}
	return cur
}

func tightenUpper(cur *PackageVersion, curIncl *bool, v PackageVersion, incl bool) *PackageVersion {
	if cur == nil || v.Compare(*cur) < 0 {
		*curIncl = incl
		return &v
	}
	return cur
}

// Overlaps reports whether some concrete version could satisfy both r and
// other simultaneously - used by the resolver to distinguish a genuine
// diamond conflict (disjoint ranges) from two differently-worded but
// compatible constraints on the same dependency.
func (r PackageVersionReq) Overlaps(other PackageVersionReq) bool {
	if r.any || other.any || r.IsEmpty() || other.IsEmpty() {
		return true
	}
	lo1, loIncl1, hi1, hiIncl1 := r.bounds()
	lo2, loIncl2, hi2, hiIncl2 := other.bounds()

	lo, loIncl := maxLower(lo1, loIncl1, lo2, loIncl2)
	hi, hiIncl := minUpper(hi1, hiIncl1, hi2, hiIncl2)

	if lo == nil || hi == nil {
		return true
	}
	c := lo.Compare(*hi)
	if c < 0 {
		return true
	}
	if c == 0 {
		return loIncl && hiIncl
	}
	return false
}

func maxLower(a *PackageVersion, aIncl bool, b *PackageVersion, bIncl bool) (*PackageVersion, bool) {
	if a == nil {
		return b, bIncl
	}
	if b == nil {
		return a, aIncl
	}
	if a.Compare(*b) > 0 {
		return a, aIncl
	}
	if a.Compare(*b) < 0 {
		return b, bIncl
	}
	return a, aIncl && bIncl
}

func minUpper(a *PackageVersion, aIncl bool, b *PackageVersion, bIncl bool) (*PackageVersion, bool) {
	if a == nil {
		return b, bIncl
	}
	if b == nil {
		return a, aIncl
	}
	if a.Compare(*b) < 0 {
		return a, aIncl
	}
	if a.Compare(*b) > 0 {
		return b, bIncl
	}
	return a, aIncl && bIncl
}
