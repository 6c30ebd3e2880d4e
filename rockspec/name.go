// Package rockspec implements package identity and versioning and the
// rockspec model: typed parsing of names, versions, constraints and
// requirements, and of the rockspec document itself.
package rockspec

import (
	"strings"

	"github.com/pkg/errors"
)

// PackageName is a lower-cased rock name. Comparison and lookup are
// case-insensitive: two names are equal iff their lower-cased forms are
// byte-equal.
type PackageName string

// NewPackageName lower-cases n and rejects the empty string.
func NewPackageName(n string) (PackageName, error) {
	n = strings.TrimSpace(n)
	if n == "" {
		return "", errors.New("package name cannot be empty")
	}
	return PackageName(strings.ToLower(n)), nil
}

// String implements fmt.Stringer.
func (n PackageName) String() string { return string(n) }

// Equal reports whether two names denote the same package.
func (n PackageName) Equal(other PackageName) bool {
	return strings.EqualFold(string(n), string(other))
}
