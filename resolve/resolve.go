// Package resolve implements the requirement-set-to-install-plan
// resolver: seed a work set, consult the manifest DB or an explicit
// source override, download each rockspec, recurse into its
// platform-merged dependencies, and detect diamond conflicts and
// cycles.
package resolve

import (
	"github.com/pkg/errors"

	"github.com/lumen-oss/lux/fetch"
	"github.com/lumen-oss/lux/internal/log"
	"github.com/lumen-oss/lux/manifest"
	"github.com/lumen-oss/lux/rockspec"
	"github.com/lumen-oss/lux/tree"
)

// EntryType classifies whether a resolved package was requested directly
// or pulled in transitively.
type EntryType string

const (
	Entrypoint     EntryType = "entry"
	DependencyOnly EntryType = "dependency"
)

// PackageInstallSpec is one user-requested install target.
type PackageInstallSpec struct {
	Req        rockspec.PackageReq
	EntryType  EntryType
	Pin        bool
	Opt        bool
	Constraint *rockspec.PackageVersionReq // overrides Req.VersionReq once locked, if set
	Source     *rockspec.SourceSpec        // explicit source override, bypassing the DB
}

// PlannedPackage is one entry in the resolver's output plan.
type PlannedPackage struct {
	Rockspec *rockspec.Rockspec
	Source   rockspec.SourceSpec
	// Kind records what artifact the manifest offered (rockspec, src
	// rock, binary rock), steering how the fetch layer materializes the
	// source bytes.
	Kind manifest.RockType
	// SourceURL, when non-empty, overrides Source.URL - set when the
	// artifact itself carries the source bytes (src.rock, binary rock,
	// vendored dir).
	SourceURL  string
	EntryType  EntryType
	Pin        bool
	Opt        bool
	Constraint rockspec.PackageVersionReq
}

// providedByEnvironment are dependency names the resolver never recurses
// into: "lua" is supplied by the Lua installation itself, and the two
// named built-in backends bundle their own runtime rather than depending
// on a separately resolved rock.
var providedByEnvironment = map[string]bool{
	"lua":               true,
	"rust-mlua":         true,
	"treesitter-parser": true,
}

// Resolver turns a requirement set into an install plan against a
// manifest DB.
type Resolver struct {
	DB       *manifest.DB
	Fetcher  *fetch.Fetcher
	Platform rockspec.Platform
	Logger   *log.Logger
	// AlreadyInstalled reports whether a (name, version) is already
	// satisfied by the tree and not forced.
	AlreadyInstalled func(rockspec.PackageReq) (tree.LocalPackage, bool)
}

// RockConstraintUnsatisfied reports two incompatible constraints
// requested for the same package within one resolution.
type RockConstraintUnsatisfied struct {
	Name        string
	Constraints []string
}

func (e *RockConstraintUnsatisfied) Error() string {
	msg := "conflicting version constraints for " + e.Name + ":"
	for _, c := range e.Constraints {
		msg += " [" + c + "]"
	}
	return msg
}

type seenKey struct {
	name       string
	constraint string
}

// Resolve turns specs into a topologically ordered install plan,
// including transitive dependencies.
func (r *Resolver) Resolve(specs []PackageInstallSpec) ([]PlannedPackage, error) {
	var plan []PlannedPackage
	seen := make(map[seenKey]bool)
	constraintsByName := make(map[string][]rockspec.PackageVersionReq)

	var visit func(spec PackageInstallSpec) error
	visit = func(spec PackageInstallSpec) error {
		key := seenKey{name: spec.Req.Name.String(), constraint: spec.Req.VersionReq.String()}
		// A (name, version_req) pair already seen within this resolution
		// is satisfied; stop recursing rather than looping forever on a
		// dependency cycle.
		if seen[key] {
			return nil
		}
		seen[key] = true

		name := spec.Req.Name.String()
		for _, existing := range constraintsByName[name] {
			if !existing.Overlaps(spec.Req.VersionReq) {
				texts := make([]string, 0, len(constraintsByName[name])+1)
				for _, c := range constraintsByName[name] {
					texts = append(texts, c.String())
				}
				texts = append(texts, spec.Req.VersionReq.String())
				return &RockConstraintUnsatisfied{Name: name, Constraints: texts}
			}
		}
		constraintsByName[name] = append(constraintsByName[name], spec.Req.VersionReq)

		if r.AlreadyInstalled != nil {
			if _, ok := r.AlreadyInstalled(spec.Req); ok {
				return nil
			}
		}

		rs, source, kind, sourceURL, err := r.fetchRockspecFor(spec)
		if err != nil {
			return err
		}

		constraint := spec.Req.VersionReq
		if spec.Constraint != nil {
			// A locked constraint override keeps the resulting package's
			// content-addressed id stable across reinstalls (Sync).
			constraint = *spec.Constraint
		}

		view := rs.CurrentPlatform(r.Platform)
		plan = append(plan, PlannedPackage{
			Rockspec:   rs,
			Source:     source,
			Kind:       kind,
			SourceURL:  sourceURL,
			EntryType:  spec.EntryType,
			Pin:        spec.Pin,
			Opt:        spec.Opt,
			Constraint: constraint,
		})

		for _, dep := range view.Dependencies {
			if providedByEnvironment[dep.Name.String()] {
				continue
			}
			if err := visit(PackageInstallSpec{Req: dep, EntryType: DependencyOnly}); err != nil {
				return err
			}
		}
		return nil
	}

	for _, spec := range specs {
		if err := visit(spec); err != nil {
			return nil, err
		}
	}
	return plan, nil
}

func (r *Resolver) fetchRockspecFor(spec PackageInstallSpec) (*rockspec.Rockspec, rockspec.SourceSpec, manifest.RockType, string, error) {
	if spec.Source != nil {
		// An explicit source override synthesizes a rockspec rather
		// than consulting the DB.
		pkgSpec := rockspec.PackageSpec{Name: spec.Req.Name}
		if v, ok := spec.Req.VersionReq.ExactVersion(); ok {
			pkgSpec.Version = v
		}
		rs := rockspec.FromSourceOverride(pkgSpec, *spec.Source)
		return rs, *spec.Source, manifest.TypeRockspec, "", nil
	}

	remote, err := r.DB.Find(spec.Req, manifest.DefaultFilter)
	if err != nil {
		return nil, rockspec.SourceSpec{}, 0, "", errors.Wrapf(err, "looking up %s", spec.Req.Name)
	}
	if remote == nil {
		return nil, rockspec.SourceSpec{}, 0, "", errors.Errorf("no package satisfies %s %s", spec.Req.Name, spec.Req.VersionReq.String())
	}

	rs, err := r.Fetcher.FetchRockspec(remote)
	if err != nil {
		return nil, rockspec.SourceSpec{}, 0, "", errors.Wrapf(err, "fetching rockspec for %s", spec.Req.Name)
	}

	// A rockspec-only artifact's source bytes come from the rockspec's
	// own source table; the manifest URL only located the rockspec text.
	// src/binary rocks and vendored dirs carry the bytes themselves, so
	// their URL overrides the rockspec's default.
	sourceURL := ""
	if remote.Kind != manifest.TypeRockspec {
		sourceURL = remote.SourceURL
	}
	return rs, rs.Source, remote.Kind, sourceURL, nil
}
