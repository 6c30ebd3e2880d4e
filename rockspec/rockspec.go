package rockspec

// PlatformOverride holds the subset of a rockspec's fields that differ for
// one platform tag. Any nil/zero field means "inherit the generic value".
type PlatformOverride struct {
	Source            *SourceSpec
	Build             *BuildSpec
	Dependencies      []PackageReq
	BuildDependencies []PackageReq
	TestDependencies  []PackageReq
}

// Rockspec is the typed, immutable representation of one package's
// rockspec. It is produced either by parsing rockspec text
// (ParseRockspec) or synthesized from a (PackageSpec, SourceSpec) pair for
// a source supplied directly via a CLI override (see resolve.Resolver).
type Rockspec struct {
	Format  string
	Package PackageName
	Version PackageVersion

	Description Description
	Source      SourceSpec

	Dependencies      []PackageReq
	BuildDependencies []PackageReq
	TestDependencies  []PackageReq

	Build  BuildSpec
	Deploy DeploySpec

	Platforms map[Platform]PlatformOverride

	// Unknown preserves fields the parser didn't recognize, so that
	// re-serialization doesn't silently drop user data.
	Unknown map[string]interface{}
}

// Spec returns the concrete (name, version) identity of this rockspec.
func (r *Rockspec) Spec() PackageSpec {
	return PackageSpec{Name: r.Package, Version: r.Version}
}

// PlatformView is the result of merging a Rockspec's generic fields
// with the override for one platform tag - the value every
// build/resolve codepath should read through.
type PlatformView struct {
	Source            SourceSpec
	Build             BuildSpec
	Dependencies      []PackageReq
	BuildDependencies []PackageReq
	TestDependencies  []PackageReq
}

// CurrentPlatform deep-merges the generic rockspec entries with the
// override registered for host (if any), preferring an exact platform tag
// match over the "unix" umbrella tag.
func (r *Rockspec) CurrentPlatform(host Platform) PlatformView {
	view := PlatformView{
		Source:            r.Source,
		Build:             r.Build,
		Dependencies:      r.Dependencies,
		BuildDependencies: r.BuildDependencies,
		TestDependencies:  r.TestDependencies,
	}

	var override *PlatformOverride
	if o, ok := r.Platforms[host]; ok {
		override = &o
	} else if host != "windows" {
		if o, ok := r.Platforms["unix"]; ok {
			override = &o
		}
	}
	if override == nil {
		return view
	}

	view.Source = view.Source.merge(override.Source)
	view.Build = view.Build.merge(override.Build)
	if override.Dependencies != nil {
		view.Dependencies = override.Dependencies
	}
	if override.BuildDependencies != nil {
		view.BuildDependencies = override.BuildDependencies
	}
	if override.TestDependencies != nil {
		view.TestDependencies = override.TestDependencies
	}
	return view
}

// FromSourceOverride synthesizes a minimal Rockspec for a
// PackageReq+SourceSpec pair supplied directly on the command line,
// bypassing the manifest DB entirely.
func FromSourceOverride(spec PackageSpec, source SourceSpec) *Rockspec {
	return &Rockspec{
		Format:  "1.0",
		Package: spec.Name,
		Version: spec.Version,
		Source:  source,
		Build:   BuildSpec{Type: BackendBuiltin},
	}
}
