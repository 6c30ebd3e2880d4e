// Package ops implements the high-level operations - Install, Remove,
// Sync, Update, pinning, purge, pack, and vendor export - over the
// lockfile, resolver, fetch, and build layers. Each operation that
// changes the tree acquires the write guard, computes a plan and applies
// it: new package directories are in place before the lockfile is
// committed, and directories of removed packages are deleted only after
// the commit, so readers never observe a lockfile entry without its
// on-disk tree.
package ops

import (
	"strings"

	"github.com/lumen-oss/lux/tree"
)

// PackageError is one package's failure within a multi-package operation.
type PackageError struct {
	Name    string
	Version string
	Err     error
}

func (e *PackageError) Error() string {
	return e.Name + " " + e.Version + ": " + e.Err.Error()
}

func (e *PackageError) Unwrap() error { return e.Err }

// MultiError aggregates per-package failures. Successful packages stay
// installed; only the failures are reported.
type MultiError struct {
	Errors []*PackageError
}

func (e *MultiError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, pe := range e.Errors {
		msgs[i] = pe.Error()
	}
	return "failed packages:\n\t" + strings.Join(msgs, "\n\t")
}

// orNil returns e, or nil when it holds no failures.
func (e *MultiError) orNil() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}

func rocksSlice(m map[tree.PackageID]tree.LocalPackage) []tree.LocalPackage {
	out := make([]tree.LocalPackage, 0, len(m))
	for _, p := range m {
		out = append(out, p)
	}
	return out
}
