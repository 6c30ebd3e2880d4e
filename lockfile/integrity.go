package lockfile

import (
	"github.com/pkg/errors"

	"github.com/lumen-oss/lux/internal/treecopy"
	"github.com/lumen-oss/lux/tree"
)

// IntegrityMismatch is returned by ValidateIntegrity when a recorded hash
// doesn't match what's on disk.
type IntegrityMismatch struct {
	Package  string
	Field    string // "rockspec" or "source"
	Expected string
	Actual   string
}

func (e *IntegrityMismatch) Error() string {
	return "integrity mismatch for " + e.Package + " (" + e.Field + "): expected " +
		e.Expected + ", got " + e.Actual
}

// ValidateIntegrity recomputes pkg's source hash from the on-disk
// layout and compares it against the recorded one.
func ValidateIntegrity(layout tree.RockLayout, pkg tree.LocalPackage) error {
	if pkg.Hashes.Source != "" {
		actual, err := treecopy.HashTree(layout.Root)
		if err != nil {
			return errors.Wrapf(err, "hashing %s", layout.Root)
		}
		if actual != pkg.Hashes.Source {
			return &IntegrityMismatch{
				Package:  pkg.Spec.Name.String(),
				Field:    "source",
				Expected: pkg.Hashes.Source,
				Actual:   actual,
			}
		}
	}
	return nil
}
