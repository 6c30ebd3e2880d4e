package ops

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	lux "github.com/lumen-oss/lux"
	"github.com/lumen-oss/lux/internal/treecopy"
	"github.com/lumen-oss/lux/lockfile"
	"github.com/lumen-oss/lux/tree"
)

// SetPinned toggles a package's pinned state: the id is
// recomputed, a collision with an existing rock of the new id is an
// error, the on-disk directory is renamed, and the lockfile entry is
// replaced atomically. The collision check happens before anything moves.
func SetPinned(cfg lux.Config, t lockfile.LockType, id tree.PackageID, pinned bool) (tree.LocalPackage, error) {
	guard, err := lockfile.OpenWritable(cfg.TreeLockfilePath())
	if err != nil {
		return tree.LocalPackage{}, err
	}
	lf := guard.Lockfile()

	pkg, ok := lf.Get(t, id)
	if !ok {
		guard.Discard()
		return tree.LocalPackage{}, errors.Errorf("no installed package with id %s", id)
	}
	if pkg.Pinned == pinned {
		guard.Discard()
		return pkg, nil
	}

	newPkg := pkg.WithPinned(pinned)
	if _, exists := lf.Get(t, newPkg.ID); exists {
		guard.Discard()
		return tree.LocalPackage{}, errors.Errorf("a rock with id %s already exists; cannot re-pin %s %s",
			newPkg.ID, pkg.Spec.Name, pkg.Spec.Version)
	}

	tr := cfg.Tree()
	oldLayout := tr.Layout(pkg)
	newLayout := tr.Layout(newPkg)

	// Create the new root first, then move every existing top-level
	// entry - not a recursive merge.
	if err := os.MkdirAll(newLayout.Root, 0o755); err != nil {
		guard.Discard()
		return tree.LocalPackage{}, err
	}
	entries, err := os.ReadDir(oldLayout.Root)
	if err != nil {
		guard.Discard()
		return tree.LocalPackage{}, errors.Wrapf(err, "reading %s", oldLayout.Root)
	}
	for _, e := range entries {
		if err := treecopy.RenameWithFallback(
			filepath.Join(oldLayout.Root, e.Name()),
			filepath.Join(newLayout.Root, e.Name()),
		); err != nil {
			guard.Discard()
			return tree.LocalPackage{}, errors.Wrap(err, "relocating package directory")
		}
	}

	wasEntrypoint := lf.IsEntrypoint(t, pkg.ID)
	lf.RemoveByID(t, pkg.ID)
	if wasEntrypoint {
		lf.AddEntrypoint(t, newPkg)
	} else {
		lf.Add(t, newPkg)
	}

	if err := guard.Commit(); err != nil {
		return tree.LocalPackage{}, err
	}
	_ = os.RemoveAll(oldLayout.Root)

	// Entrypoint wrappers point at the package root; rewrite them so the
	// binaries still resolve after the move.
	if wasEntrypoint {
		for _, bin := range newPkg.Binaries {
			if err := rewriteWrapper(oldLayout, newLayout, bin); err != nil {
				return newPkg, err
			}
		}
	}

	return newPkg, nil
}

// rewriteWrapper repoints bin's launcher from the old package root to the
// new one. The wrapper path itself is stable (shared bin dir), only its
// contents embed the root.
func rewriteWrapper(oldLayout, newLayout tree.RockLayout, bin string) error {
	path := newLayout.WrapperPath(bin)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	updated := strings.ReplaceAll(string(data), oldLayout.Root, newLayout.Root)
	return os.WriteFile(path, []byte(updated), 0o755)
}
