package ops

import (
	"os"

	lux "github.com/lumen-oss/lux"
	"github.com/lumen-oss/lux/lockfile"
	"github.com/lumen-oss/lux/tree"
)

// Remove deletes each named package's RockLayout and wrapper binaries and
// drops it from the lockfile. It is idempotent: an id with no record is
// skipped silently. Dependents are not checked: a package that others
// still require is removed all the same, and each removal is only logged
// at debug level.
func Remove(cfg lux.Config, t lockfile.LockType, ids []tree.PackageID) error {
	guard, err := lockfile.OpenWritable(cfg.TreeLockfilePath())
	if err != nil {
		return err
	}
	lf := guard.Lockfile()

	removed := removeLocked(cfg, lf, t, ids)

	// The lockfile commit happens before the directories disappear, so
	// readers never observe missing files for an id still listed in the
	// lockfile.
	if err := guard.Commit(); err != nil {
		return err
	}

	return deleteLayouts(cfg, removed)
}

// removeLocked drops the records for ids from lf and returns the packages
// whose on-disk layouts still need deleting.
func removeLocked(cfg lux.Config, lf *lockfile.Lockfile, t lockfile.LockType, ids []tree.PackageID) []tree.LocalPackage {
	var removed []tree.LocalPackage
	for _, id := range ids {
		pkg, ok := lf.Get(t, id)
		if !ok {
			continue
		}
		cfg.Logger.Debugf("removing %s %s", pkg.Spec.Name, pkg.Spec.Version)
		lf.RemoveByID(t, id)
		removed = append(removed, pkg)
	}
	return removed
}

// deleteLayouts removes each package's tree directory and wrapper
// binaries.
func deleteLayouts(cfg lux.Config, pkgs []tree.LocalPackage) error {
	tr := cfg.Tree()
	var firstErr error
	for _, pkg := range pkgs {
		layout := tr.Layout(pkg)
		for _, bin := range pkg.Binaries {
			if err := os.Remove(layout.WrapperPath(bin)); err != nil && !os.IsNotExist(err) && firstErr == nil {
				firstErr = err
			}
		}
		if err := os.RemoveAll(layout.Root); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
