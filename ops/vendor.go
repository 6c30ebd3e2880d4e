package ops

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	lux "github.com/lumen-oss/lux"
	"github.com/lumen-oss/lux/internal/treecopy"
	"github.com/lumen-oss/lux/lockfile"
	"github.com/lumen-oss/lux/resolve"
)

// Vendor resolves specs and writes each planned package's rockspec and
// source into destDir using the vendor directory layout
// (<name>-<ver>.rockspec next to <name>@<ver>/), so a later install with
// the vendor dir configured runs fully offline.
func Vendor(ctx context.Context, cfg lux.Config, t lockfile.LockType, specs []resolve.PackageInstallSpec, destDir string) error {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return errors.Wrapf(err, "creating vendor dir %s", destDir)
	}

	fetcher := cfg.Fetcher()
	resolver := &resolve.Resolver{
		DB:       cfg.DB(nil, t),
		Fetcher:  fetcher,
		Platform: cfg.Platform(),
		Logger:   cfg.Logger,
	}
	plan, err := resolver.Resolve(specs)
	if err != nil {
		return err
	}

	for _, pp := range plan {
		if err := ctx.Err(); err != nil {
			return err
		}
		rs := pp.Rockspec
		name, version := rs.Package.String(), rs.Version.String()

		rockspecPath := filepath.Join(destDir, fmt.Sprintf("%s-%s.rockspec", name, version))
		if err := os.WriteFile(rockspecPath, []byte(rs.Serialize()), 0o644); err != nil {
			return errors.Wrapf(err, "vendoring rockspec for %s", name)
		}

		srcDir := filepath.Join(destDir, name+"@"+version)
		if err := os.RemoveAll(srcDir); err != nil {
			return err
		}
		if err := os.MkdirAll(srcDir, 0o755); err != nil {
			return err
		}
		if existing := filepath.Join(cfg.VendorDir, name+"@"+version); cfg.VendorDir != "" {
			if ok, _ := treecopy.IsDir(existing); ok {
				if err := treecopy.CopyDir(existing, srcDir); err != nil {
					return errors.Wrapf(err, "vendoring source for %s", name)
				}
				continue
			}
		}
		if err := fetcher.FetchSource(pp.Source, srcDir, pp.SourceURL, cfg.Logger); err != nil {
			return errors.Wrapf(err, "vendoring source for %s", name)
		}
	}
	return nil
}
