// Package treecopy holds the filesystem primitives shared by the tree
// layout, the build install step, and the source/vendor-copy backend:
// copying directories, renaming with a cross-device fallback, and
// hashing a directory tree for lockfile integrity checks.
package treecopy

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"syscall"

	"github.com/karrick/godirwalk"
	"github.com/pkg/errors"
	shutil "github.com/termie/go-shutil"
)

// IsDir reports whether name exists and is a directory.
func IsDir(name string) (bool, error) {
	fi, err := os.Stat(name)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return fi.IsDir(), nil
}

// IsRegular reports whether name exists and is a regular file.
func IsRegular(name string) (bool, error) {
	fi, err := os.Stat(name)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if fi.IsDir() {
		return false, errors.Errorf("%q is a directory, expected a file", name)
	}
	return true, nil
}

// CopyFile copies src to dest, preserving the permission bits.
func CopyFile(src, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return errors.Wrapf(err, "creating parent of %s", dest)
	}
	if _, err := shutil.Copy(src, dest, true); err != nil {
		return errors.Wrapf(err, "copying %s to %s", src, dest)
	}
	return nil
}

// CopyDir recursively copies src into dest, skipping symlinks, walked
// with godirwalk so large rock trees (vendor copies, copy_directories)
// don't pay per-directory os.Open costs.
func CopyDir(src, dest string) error {
	fi, err := os.Lstat(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dest, fi.Mode()); err != nil {
		return err
	}

	return godirwalk.Walk(src, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			if path == src {
				return nil
			}
			rel, err := filepath.Rel(src, path)
			if err != nil {
				return err
			}
			target := filepath.Join(dest, rel)

			if de.IsSymlink() {
				return godirwalk.SkipThis
			}
			if de.IsDir() {
				info, err := os.Lstat(path)
				if err != nil {
					return err
				}
				return os.MkdirAll(target, info.Mode())
			}
			return CopyFile(path, target)
		},
		Unsorted: true,
	})
}

// RenameWithFallback renames src to dest, falling back to a copy+remove
// when the rename crosses a filesystem boundary (EXDEV). Used by
// pin/unpin to relocate a package's RockLayout root after its id
// changes.
func RenameWithFallback(src, dest string) error {
	fi, err := os.Lstat(src)
	if err != nil {
		return err
	}

	if runtime.GOOS == "windows" && fi.IsDir() {
		if err := CopyDir(src, dest); err != nil {
			return err
		}
		return os.RemoveAll(src)
	}

	err = os.Rename(src, dest)
	if err == nil {
		return nil
	}

	linkErr, ok := err.(*os.LinkError)
	if !ok {
		return err
	}

	var copyErr error
	if linkErr.Err == syscall.EXDEV {
		if fi.IsDir() {
			copyErr = CopyDir(src, dest)
		} else {
			copyErr = CopyFile(src, dest)
		}
	} else {
		return linkErr
	}

	if copyErr != nil {
		return copyErr
	}
	return os.RemoveAll(src)
}

// skipNames are directories treecopy never mirrors into a RockLayout: they
// are VCS bookkeeping, never rock payload.
var skipNames = map[string]bool{
	".git": true, ".hg": true, ".svn": true, ".bzr": true,
}

// HashTree computes a deterministic sha256 digest of a directory's
// contents: pathnames (relative to root) and file bytes, sorted so that
// the digest doesn't depend on directory iteration order. Used by the
// lockfile to record and later verify a LocalPackage's source hash.
func HashTree(root string) (string, error) {
	h := sha256.New()

	var paths []string
	err := godirwalk.Walk(root, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			if skipNames[de.Name()] {
				return godirwalk.SkipThis
			}
			if path == root {
				return nil
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			paths = append(paths, rel)
			return nil
		},
		Unsorted: true,
	})
	if err != nil {
		return "", err
	}
	sort.Strings(paths)

	for _, rel := range paths {
		full := filepath.Join(root, rel)
		fi, err := os.Lstat(full)
		if err != nil {
			return "", err
		}
		io.WriteString(h, rel)
		if fi.Mode()&os.ModeSymlink != 0 {
			target, err := os.Readlink(full)
			if err != nil {
				return "", err
			}
			io.WriteString(h, target)
			continue
		}
		if fi.IsDir() {
			continue
		}
		f, err := os.Open(full)
		if err != nil {
			return "", err
		}
		_, err = io.Copy(h, f)
		f.Close()
		if err != nil {
			return "", err
		}
	}

	return "sha256-" + hex.EncodeToString(h.Sum(nil)), nil
}
