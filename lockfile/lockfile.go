// Package lockfile implements the content-addressed install record: an
// ordered mapping from package id to LocalPackage, partitioned into
// Regular/Test/Build sub-locks, with a write guard that serializes
// mutation across processes via an advisory file lock.
package lockfile

import (
	"github.com/lumen-oss/lux/tree"
)

// LockType partitions a lockfile into independently tracked requirement
// sets.
type LockType string

const (
	Regular LockType = "regular"
	Test    LockType = "test"
	Build   LockType = "build"
)

var allLockTypes = []LockType{Regular, Test, Build}

// SubLock is the portion of a lockfile for one LockType: its rocks plus
// its own entrypoint set.
type SubLock struct {
	Rocks       map[tree.PackageID]tree.LocalPackage
	Entrypoints map[tree.PackageID]bool
}

func newSubLock() *SubLock {
	return &SubLock{
		Rocks:       make(map[tree.PackageID]tree.LocalPackage),
		Entrypoints: make(map[tree.PackageID]bool),
	}
}

// Clone returns a deep-enough copy of s for Sync's replace-one-sublock
// semantics.
func (s *SubLock) Clone() *SubLock {
	out := newSubLock()
	for id, p := range s.Rocks {
		out.Rocks[id] = p
	}
	for id, v := range s.Entrypoints {
		out.Entrypoints[id] = v
	}
	return out
}

// CurrentSchemaVersion is bumped whenever the on-disk encoding changes in
// a way that requires migration.
const CurrentSchemaVersion = "1"

// Lockfile is the in-memory, mutable lockfile record. Obtain one with
// Open (read-only) or OpenWritable (acquires the advisory lock and
// returns a Guard).
type Lockfile struct {
	path    string
	version string
	sub     map[LockType]*SubLock
}

func newEmpty(path string) *Lockfile {
	l := &Lockfile{path: path, version: CurrentSchemaVersion, sub: make(map[LockType]*SubLock)}
	for _, t := range allLockTypes {
		l.sub[t] = newSubLock()
	}
	return l
}

func (l *Lockfile) subOrNew(t LockType) *SubLock {
	if s, ok := l.sub[t]; ok {
		return s
	}
	s := newSubLock()
	l.sub[t] = s
	return s
}

// Get looks up a package by id in the given sub-lock.
func (l *Lockfile) Get(t LockType, id tree.PackageID) (tree.LocalPackage, bool) {
	p, ok := l.subOrNew(t).Rocks[id]
	return p, ok
}

// Rocks returns every package recorded in the given sub-lock.
func (l *Lockfile) Rocks(t LockType) map[tree.PackageID]tree.LocalPackage {
	return l.subOrNew(t).Rocks
}

// RocksByName returns every package in the given sub-lock with the given
// name, in no particular order.
func (l *Lockfile) RocksByName(t LockType, name string) []tree.LocalPackage {
	var out []tree.LocalPackage
	for _, p := range l.subOrNew(t).Rocks {
		if p.Spec.Name.String() == name {
			out = append(out, p)
		}
	}
	return out
}

// IsEntrypoint reports whether id is an entrypoint of the given sub-lock.
func (l *Lockfile) IsEntrypoint(t LockType, id tree.PackageID) bool {
	return l.subOrNew(t).Entrypoints[id]
}

// Add records pkg in the given sub-lock as a dependency-only install.
func (l *Lockfile) Add(t LockType, pkg tree.LocalPackage) {
	l.subOrNew(t).Rocks[pkg.ID] = pkg
}

// AddEntrypoint records pkg and marks it as an entrypoint.
func (l *Lockfile) AddEntrypoint(t LockType, pkg tree.LocalPackage) {
	s := l.subOrNew(t)
	s.Rocks[pkg.ID] = pkg
	s.Entrypoints[pkg.ID] = true
}

// Remove deletes pkg's record and entrypoint flag from the given sub-lock.
func (l *Lockfile) Remove(t LockType, pkg tree.LocalPackage) {
	l.RemoveByID(t, pkg.ID)
}

// RemoveByID deletes the record for id from the given sub-lock.
func (l *Lockfile) RemoveByID(t LockType, id tree.PackageID) {
	s := l.subOrNew(t)
	delete(s.Rocks, id)
	delete(s.Entrypoints, id)
}

// Path returns the on-disk path this lockfile was opened from.
func (l *Lockfile) Path() string { return l.path }

// SubLockFor exposes the named sub-lock, for Sync's replace-wholesale
// semantics between two lockfiles.
func (l *Lockfile) SubLockFor(t LockType) *SubLock { return l.subOrNew(t) }
