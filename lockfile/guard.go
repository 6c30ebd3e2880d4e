package lockfile

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	flock "github.com/theckman/go-flock"
)

// WriteGuard is the exclusive handle required to mutate a Lockfile:
// mutation flushes atomically on Commit, and concurrent writers are
// excluded via an advisory lock on a sibling ".lock" file held for the
// duration of the mutation, so two installs against the same tree
// block each other at acquisition time.
type WriteGuard struct {
	lf    *Lockfile
	flock *flock.Flock
}

// OpenWritable opens (or creates) the lockfile at path and blocks until
// the advisory lock is acquired, returning a WriteGuard over it.
func OpenWritable(path string) (*WriteGuard, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating directory for %s", path)
	}
	fl := flock.NewFlock(path + ".lock")
	if err := fl.Lock(); err != nil {
		return nil, errors.Wrapf(err, "acquiring lock for %s", path)
	}

	lf, err := Open(path)
	if err != nil {
		fl.Unlock()
		return nil, err
	}
	return &WriteGuard{lf: lf, flock: fl}, nil
}

// Lockfile returns the guarded, mutable Lockfile.
func (g *WriteGuard) Lockfile() *Lockfile { return g.lf }

// Commit serializes the lockfile to a temp file in the same directory
// and renames it into place, then releases the advisory lock.
func (g *WriteGuard) Commit() error {
	data, err := g.lf.Encode()
	if err != nil {
		return errors.Wrap(err, "encoding lockfile")
	}

	dir := filepath.Dir(g.lf.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "creating lockfile directory")
	}

	tmp, err := os.CreateTemp(dir, ".lux.lock.tmp-*")
	if err != nil {
		return errors.Wrap(err, "creating temp lockfile")
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.Wrap(err, "writing temp lockfile")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.Wrap(err, "closing temp lockfile")
	}
	if err := os.Rename(tmpPath, g.lf.path); err != nil {
		os.Remove(tmpPath)
		return errors.Wrap(err, "renaming temp lockfile into place")
	}

	return g.flock.Unlock()
}

// Discard releases the advisory lock without writing any changes back.
func (g *WriteGuard) Discard() error {
	return g.flock.Unlock()
}
