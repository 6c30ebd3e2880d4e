package ops

import (
	"context"

	lux "github.com/lumen-oss/lux"
	"github.com/lumen-oss/lux/lockfile"
	"github.com/lumen-oss/lux/manifest"
	"github.com/lumen-oss/lux/resolve"
	"github.com/lumen-oss/lux/rockspec"
	"github.com/lumen-oss/lux/tree"
)

// UpdateResult reports one package's outcome from Update.
type UpdateResult struct {
	Name string
	From rockspec.PackageVersion
	To   rockspec.PackageVersion
}

// Update asks the manifest DB, for each unpinned installed package,
// whether a version satisfying the original constraint exists that is
// newer than the current one; if so, the package is removed and
// reinstalled. names, when non-empty, restricts the update to that
// subset. Pinned packages are never touched.
func Update(ctx context.Context, cfg lux.Config, t lockfile.LockType, names []string) ([]UpdateResult, error) {
	guard, err := lockfile.OpenWritable(cfg.TreeLockfilePath())
	if err != nil {
		return nil, err
	}
	lf := guard.Lockfile()

	subset := make(map[string]bool, len(names))
	for _, n := range names {
		subset[n] = true
	}

	db := cfg.DB(nil, t)
	var results []UpdateResult
	var stale []tree.LocalPackage

	for _, pkg := range lf.Rocks(t) {
		if pkg.Pinned {
			continue
		}
		name := pkg.Spec.Name.String()
		if len(subset) > 0 && !subset[name] {
			continue
		}
		req := rockspec.PackageReq{Name: pkg.Spec.Name, VersionReq: pkg.Constraint}
		latest, err := db.LatestMatch(req, manifest.DefaultFilter)
		if err != nil {
			guard.Discard()
			return nil, err
		}
		if latest == nil || !pkg.Spec.Version.Less(latest.Version) {
			continue
		}
		results = append(results, UpdateResult{Name: name, From: pkg.Spec.Version, To: latest.Version})
		stale = append(stale, pkg)
	}

	if len(stale) == 0 {
		guard.Discard()
		return nil, nil
	}

	var staleIDs []tree.PackageID
	specs := make([]resolve.PackageInstallSpec, 0, len(stale))
	for _, pkg := range stale {
		staleIDs = append(staleIDs, pkg.ID)
		entryType := resolve.DependencyOnly
		if lf.IsEntrypoint(t, pkg.ID) {
			entryType = resolve.Entrypoint
		}
		specs = append(specs, resolve.PackageInstallSpec{
			Req:       rockspec.PackageReq{Name: pkg.Spec.Name, VersionReq: pkg.Constraint},
			EntryType: entryType,
			Opt:       pkg.Opt,
		})
	}

	removed := removeLocked(cfg, lf, t, staleIDs)
	if _, err := installLocked(ctx, cfg, lf, t, specs, InstallOpts{Force: true}); err != nil {
		guard.Discard()
		return nil, err
	}

	if err := guard.Commit(); err != nil {
		return nil, err
	}
	return results, deleteLayouts(cfg, removed)
}
