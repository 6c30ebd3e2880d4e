package ops

import (
	"os"

	"github.com/pkg/errors"

	lux "github.com/lumen-oss/lux"
	"github.com/lumen-oss/lux/lockfile"
)

// Purge deletes the entire tree root - every Lua version, every
// tree-kind, and the install lockfile. Distinct from Remove: nothing is
// diffed, everything goes. The caller is responsible for any
// confirmation gate; Purge itself only takes the lock so no concurrent
// install is half-done when the tree vanishes.
func Purge(cfg lux.Config) error {
	guard, err := lockfile.OpenWritable(cfg.TreeLockfilePath())
	if err != nil {
		return err
	}
	if err := guard.Discard(); err != nil {
		return err
	}
	if err := os.RemoveAll(cfg.TreeRoot); err != nil {
		return errors.Wrapf(err, "purging tree %s", cfg.TreeRoot)
	}
	return nil
}
