package ops

import (
	"context"

	lux "github.com/lumen-oss/lux"
	"github.com/lumen-oss/lux/lockfile"
	"github.com/lumen-oss/lux/resolve"
	"github.com/lumen-oss/lux/rockspec"
	"github.com/lumen-oss/lux/tree"
)

// SyncOpts tune one Sync invocation.
type SyncOpts struct {
	// ValidateIntegrity re-hashes every already-present package against
	// its recorded hashes before accepting it as in sync.
	ValidateIntegrity bool
	// ExtraReqs are new requirements not yet in the project lockfile;
	// they are resolved, installed, and written back.
	ExtraReqs []rockspec.PackageReq
}

// Sync aligns the tree's lockfile with projectLockPath for lock type t:
// rocks present in the project lock but absent from the tree are
// installed (pinned to their locked identity and source), rocks present
// in the tree but absent from the project lock are removed. After a
// successful Sync the tree's t sub-lock equals the project lock's.
func Sync(ctx context.Context, cfg lux.Config, projectLockPath string, t lockfile.LockType, opts SyncOpts) error {
	projectLock, err := lockfile.Open(projectLockPath)
	if err != nil {
		return err
	}

	guard, err := lockfile.OpenWritable(cfg.TreeLockfilePath())
	if err != nil {
		return err
	}
	lf := guard.Lockfile()
	tr := cfg.Tree()

	want := projectLock.Rocks(t)
	have := lf.Rocks(t)

	var toRemove []tree.PackageID
	for id := range have {
		if _, ok := want[id]; !ok {
			toRemove = append(toRemove, id)
		}
	}

	var toInstall []tree.LocalPackage
	for id, pkg := range want {
		if _, ok := have[id]; !ok {
			toInstall = append(toInstall, pkg)
			continue
		}
		if opts.ValidateIntegrity {
			if err := lockfile.ValidateIntegrity(tr.Layout(pkg), pkg); err != nil {
				guard.Discard()
				return err
			}
		}
	}

	removed := removeLocked(cfg, lf, t, toRemove)

	for _, pkg := range toInstall {
		pkg := pkg
		spec := resolve.PackageInstallSpec{
			Req:        pkg.Spec.ToPackageReq(),
			EntryType:  resolve.DependencyOnly,
			Pin:        pkg.Pinned,
			Opt:        pkg.Opt,
			Constraint: &pkg.Constraint,
			Source:     &pkg.Source,
		}
		if pkg.Kind == tree.KindEntry || projectLock.IsEntrypoint(t, pkg.ID) {
			spec.EntryType = resolve.Entrypoint
		}
		if _, err := installLocked(ctx, cfg, lf, t, []resolve.PackageInstallSpec{spec}, InstallOpts{}); err != nil {
			guard.Discard()
			return err
		}
	}

	// Replace the sub-lock wholesale so it is record-for-record equal to
	// the project lock's.
	lf.Sync(t, projectLock.SubLockFor(t))

	if len(opts.ExtraReqs) > 0 {
		specs := make([]resolve.PackageInstallSpec, len(opts.ExtraReqs))
		for i, req := range opts.ExtraReqs {
			specs[i] = resolve.PackageInstallSpec{Req: req, EntryType: resolve.Entrypoint}
		}
		installed, err := installLocked(ctx, cfg, lf, t, specs, InstallOpts{})
		if err != nil {
			guard.Discard()
			return err
		}
		// Write the new requirements back into the project lockfile.
		projectGuard, err := lockfile.OpenWritable(projectLockPath)
		if err != nil {
			guard.Discard()
			return err
		}
		for _, pkg := range installed {
			projectGuard.Lockfile().AddEntrypoint(t, pkg)
		}
		if err := projectGuard.Commit(); err != nil {
			guard.Discard()
			return err
		}
	}

	if err := guard.Commit(); err != nil {
		return err
	}
	return deleteLayouts(cfg, removed)
}
