package manifest

import (
	"github.com/lumen-oss/lux/lockfile"
	"github.com/lumen-oss/lux/rockspec"
	"github.com/lumen-oss/lux/tree"
)

// LocalLock treats an existing lockfile as the source of truth -
// callers install it first in a DB's source list so it short-circuits
// every remote when resolving against an already-installed tree.
type LocalLock struct {
	Lock *lockfile.Lockfile
	Type lockfile.LockType
}

func NewLocalLock(lock *lockfile.Lockfile, t lockfile.LockType) *LocalLock {
	return &LocalLock{Lock: lock, Type: t}
}

func (l *LocalLock) Name() string { return "lockfile:" + string(l.Type) }

func (l *LocalLock) Find(req rockspec.PackageReq, filter Filter) (*RemotePackage, error) {
	result := tree.MatchRocks(rocksSlice(l.Lock.Rocks(l.Type)), req)
	if result.Kind == tree.NotFound {
		return nil, nil
	}
	pkg := result.Single
	return &RemotePackage{
		Spec:      pkg.Spec,
		Kind:      TypeSrc,
		SourceURL: pkg.SourceURL,
	}, nil
}

func (l *LocalLock) Search(req rockspec.PackageReq) ([]SearchResult, error) {
	var out []SearchResult
	for _, pkg := range l.Lock.RocksByName(l.Type, req.Name.String()) {
		out = append(out, SearchResult{Name: pkg.Spec.Name, Versions: []rockspec.PackageVersion{pkg.Spec.Version}})
	}
	return out, nil
}

func rocksSlice(m map[tree.PackageID]tree.LocalPackage) []tree.LocalPackage {
	out := make([]tree.LocalPackage, 0, len(m))
	for _, p := range m {
		out = append(out, p)
	}
	return out
}
