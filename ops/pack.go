package ops

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"

	lux "github.com/lumen-oss/lux"
	"github.com/lumen-oss/lux/fetch"
	"github.com/lumen-oss/lux/lockfile"
	"github.com/lumen-oss/lux/rockspec"
	"github.com/lumen-oss/lux/tree"
)

// Pack produces a packed .rock archive for an installed package matching
// req: the rockspec plus the package's installed artifacts, written to
// destDir as <name>-<ver>.<arch>.rock. Returns the written path.
func Pack(cfg lux.Config, req rockspec.PackageReq, destDir string) (string, error) {
	lf, err := lockfile.Open(cfg.TreeLockfilePath())
	if err != nil {
		return "", err
	}

	result := tree.MatchRocks(rocksSlice(lf.Rocks(lockfile.Regular)), req)
	if result.Kind == tree.NotFound {
		return "", errors.Errorf("no installed package matches %s", req)
	}
	pkg := result.Single

	layout := cfg.Tree().Layout(pkg)
	outName := fmt.Sprintf("%s-%s.%s.rock", pkg.Spec.Name, pkg.Spec.Version, fetch.LuarocksArch)
	outPath := filepath.Join(destDir, outName)

	f, err := os.Create(outPath)
	if err != nil {
		return "", errors.Wrapf(err, "creating %s", outPath)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	if err := zipTree(zw, layout.Root); err != nil {
		zw.Close()
		return "", errors.Wrap(err, "packing rock")
	}
	if err := zw.Close(); err != nil {
		return "", err
	}
	return outPath, nil
}

// zipTree writes every regular file under root into zw, with paths
// relative to root and sorted for a deterministic archive.
func zipTree(zw *zip.Writer, root string) error {
	var paths []string
	err := filepath.Walk(root, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.Mode().IsRegular() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return err
	}
	sort.Strings(paths)

	for _, path := range paths {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		w, err := zw.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		in, err := os.Open(path)
		if err != nil {
			return err
		}
		_, copyErr := io.Copy(w, in)
		in.Close()
		if copyErr != nil {
			return copyErr
		}
	}
	return nil
}
