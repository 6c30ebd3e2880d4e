package lockfile

import (
	"github.com/lumen-oss/lux/rockspec"
	"github.com/lumen-oss/lux/tree"
)

// PackageSyncSpec is the diff between a requested dependency list and a
// lockfile's current sub-lock contents.
type PackageSyncSpec struct {
	ToAdd    []rockspec.PackageReq
	ToRemove []tree.LocalPackage
}

// DiffSync computes the PackageSyncSpec for requested against the current
// contents of sub-lock t: requirements present in the request but absent
// from the lock go in ToAdd; rocks present in the lock but not satisfying
// any requested constraint go in ToRemove.
func (l *Lockfile) DiffSync(t LockType, requested []rockspec.PackageReq) PackageSyncSpec {
	var spec PackageSyncSpec

	satisfiedNames := make(map[string]bool)
	for _, req := range requested {
		satisfied := false
		for _, pkg := range l.RocksByName(t, req.Name.String()) {
			if req.VersionReq.Matches(pkg.Spec.Version) {
				satisfied = true
				break
			}
		}
		if satisfied {
			satisfiedNames[req.Name.String()] = true
		} else {
			spec.ToAdd = append(spec.ToAdd, req)
		}
	}

	requestedNames := make(map[string]bool, len(requested))
	for _, req := range requested {
		requestedNames[req.Name.String()] = true
	}

	for _, pkg := range l.Rocks(t) {
		name := pkg.Spec.Name.String()
		if !requestedNames[name] {
			spec.ToRemove = append(spec.ToRemove, pkg)
			continue
		}
		if !satisfiedNames[name] {
			// The name is requested but no locked version for it
			// satisfies the (possibly new/narrowed) constraint - the
			// stale version must go, and the new constraint is already
			// queued in ToAdd above.
			spec.ToRemove = append(spec.ToRemove, pkg)
		}
	}

	return spec
}

// Sync replaces the named sub-lock with newSub wholesale, preserving
// the other two sub-locks.
func (l *Lockfile) Sync(t LockType, newSub *SubLock) {
	l.sub[t] = newSub.Clone()
}
