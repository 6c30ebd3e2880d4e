// Package tree implements the on-disk tree layout and the LocalPackage
// record that identifies one installed package.
package tree

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/lumen-oss/lux/rockspec"
)

// PackageID is the content hash identifying one LocalPackage: a digest
// of (name, version, constraint, pinned, source).
type PackageID string

// Kind is the tree-kind a package is installed under.
type Kind string

const (
	KindEntry Kind = "entry"
	KindDep   Kind = "dep"
)

// Hashes records the integrity digests a LocalPackage was installed with.
type Hashes struct {
	Rockspec string
	Source   string
}

// LocalPackage is one installed package, as recorded in a lockfile
// sub-lock.
type LocalPackage struct {
	ID         PackageID
	Spec       rockspec.PackageSpec
	Constraint rockspec.PackageVersionReq
	Pinned     bool
	Opt        bool
	Kind       Kind
	Source     rockspec.SourceSpec
	SourceURL  string
	Binaries   []string
	Hashes     Hashes
}

// ComputeID derives a LocalPackage's id from its identity-bearing fields.
// Equal inputs always yield equal ids; the id
// changes when any of name/version/constraint/pinned/source changes -
// notably, toggling pinned relocates the package on disk.
func ComputeID(name rockspec.PackageName, version rockspec.PackageVersion, constraint rockspec.PackageVersionReq, pinned bool, source rockspec.SourceSpec) PackageID {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00%v\x00%d\x00%s\x00%s\n",
		name.String(), version.String(), constraint.String(), pinned,
		source.Kind, source.URL, source.CheckoutRef)
	return PackageID(hex.EncodeToString(h.Sum(nil))[:16])
}

// NewLocalPackage builds a LocalPackage and computes its id.
func NewLocalPackage(spec rockspec.PackageSpec, constraint rockspec.PackageVersionReq, pinned, opt bool, kind Kind, source rockspec.SourceSpec, sourceURL string) LocalPackage {
	return LocalPackage{
		ID:         ComputeID(spec.Name, spec.Version, constraint, pinned, source),
		Spec:       spec,
		Constraint: constraint,
		Pinned:     pinned,
		Opt:        opt,
		Kind:       kind,
		Source:     source,
		SourceURL:  sourceURL,
	}
}

// WithPinned returns a copy of p with Pinned set to pinned and the id
// recomputed; toggling the pin changes the id and therefore relocates
// the package's directory.
func (p LocalPackage) WithPinned(pinned bool) LocalPackage {
	p.Pinned = pinned
	p.ID = ComputeID(p.Spec.Name, p.Spec.Version, p.Constraint, pinned, p.Source)
	return p
}
