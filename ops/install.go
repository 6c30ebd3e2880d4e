package ops

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	lux "github.com/lumen-oss/lux"
	"github.com/lumen-oss/lux/build"
	"github.com/lumen-oss/lux/fetch"
	"github.com/lumen-oss/lux/internal/treecopy"
	"github.com/lumen-oss/lux/lockfile"
	"github.com/lumen-oss/lux/manifest"
	"github.com/lumen-oss/lux/probe"
	"github.com/lumen-oss/lux/resolve"
	"github.com/lumen-oss/lux/rockspec"
	"github.com/lumen-oss/lux/tree"
)

// InstallOpts tune one Install invocation.
type InstallOpts struct {
	// Force reinstalls packages the tree already satisfies.
	Force bool
	// NoInstall runs the backends but skips the shared install step.
	NoInstall bool
}

// Install resolves specs, fetches sources in parallel bounded by
// cfg.MaxJobs, builds in dependency order, and records the results in
// the tree's lockfile. Partial failure leaves successful packages
// committed and failed ones cleaned up; the aggregate error lists
// every (package, reason).
func Install(ctx context.Context, cfg lux.Config, t lockfile.LockType, specs []resolve.PackageInstallSpec, opts InstallOpts) ([]tree.LocalPackage, error) {
	guard, err := lockfile.OpenWritable(cfg.TreeLockfilePath())
	if err != nil {
		return nil, err
	}
	lf := guard.Lockfile()

	installed, err := installLocked(ctx, cfg, lf, t, specs, opts)
	if err != nil {
		// Successful packages are still committed; the lockfile reflects
		// only the successes.
		if commitErr := guard.Commit(); commitErr != nil {
			return installed, commitErr
		}
		return installed, err
	}
	return installed, guard.Commit()
}

// installLocked is Install's body, factored out so Sync and Update can
// run it under a guard they already hold.
func installLocked(ctx context.Context, cfg lux.Config, lf *lockfile.Lockfile, t lockfile.LockType, specs []resolve.PackageInstallSpec, opts InstallOpts) ([]tree.LocalPackage, error) {
	fetcher := cfg.Fetcher()
	resolver := &resolve.Resolver{
		DB:       cfg.DB(nil, t),
		Fetcher:  fetcher,
		Platform: cfg.Platform(),
		Logger:   cfg.Logger,
	}
	if !opts.Force {
		resolver.AlreadyInstalled = func(req rockspec.PackageReq) (tree.LocalPackage, bool) {
			result := tree.MatchRocks(rocksSlice(lf.Rocks(t)), req)
			if result.Kind == tree.NotFound {
				return tree.LocalPackage{}, false
			}
			return result.Single, true
		}
	}

	plan, err := resolver.Resolve(specs)
	if err != nil {
		return nil, err
	}

	buildDirs := make([]string, len(plan))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.MaxJobs)
	for i := range plan {
		i, pp := i, plan[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			dir, err := fetchSource(cfg, fetcher, pp)
			if err != nil {
				return errors.Wrapf(err, "fetching source for %s", pp.Rockspec.Package)
			}
			buildDirs[i] = dir
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	tr := cfg.Tree()
	var installed []tree.LocalPackage
	multi := &MultiError{}

	// The resolver emits dependents before their dependencies; building
	// in reverse plan order guarantees every package's dependencies
	// finish first.
	failed := make(map[string]bool)
	for i := len(plan) - 1; i >= 0; i-- {
		pp := plan[i]
		if err := ctx.Err(); err != nil {
			// Cancelled: packages built so far stay committed, the rest
			// are never started and the lockfile is untouched for them.
			return installed, err
		}
		if dependencyFailed(pp, failed) {
			continue
		}
		pkg, err := buildOne(ctx, cfg, tr, pp, buildDirs[i], opts)
		if err != nil {
			failed[pp.Rockspec.Package.String()] = true
			multi.Errors = append(multi.Errors, &PackageError{
				Name:    pp.Rockspec.Package.String(),
				Version: pp.Rockspec.Version.String(),
				Err:     err,
			})
			continue
		}
		if pp.EntryType == resolve.Entrypoint {
			lf.AddEntrypoint(t, pkg)
		} else {
			lf.Add(t, pkg)
		}
		installed = append(installed, pkg)
	}

	return installed, multi.orNil()
}

func dependencyFailed(pp resolve.PlannedPackage, failed map[string]bool) bool {
	for _, dep := range pp.Rockspec.Dependencies {
		if failed[dep.Name.String()] {
			return true
		}
	}
	return false
}

// fetchSource materializes one planned package's source into a scratch
// build dir. A configured vendor directory with a matching <name>@<ver>
// entry wins over any remote URL.
func fetchSource(cfg lux.Config, fetcher *fetch.Fetcher, pp resolve.PlannedPackage) (string, error) {
	rs := pp.Rockspec
	dir := filepath.Join(cfg.CacheDir, "build", rs.Package.String()+"-"+rs.Version.String())
	if err := os.RemoveAll(dir); err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	if cfg.VendorDir != "" {
		vendorSrc := filepath.Join(cfg.VendorDir, rs.Package.String()+"@"+rs.Version.String())
		if ok, _ := treecopy.IsDir(vendorSrc); ok {
			if err := treecopy.CopyDir(vendorSrc, dir); err != nil {
				return "", err
			}
			return dir, nil
		}
	}

	// src.rock and binary rock artifacts carry their own bytes; unpack
	// those rather than dereferencing the rockspec's source URL.
	if pp.Kind == manifest.TypeSrc && pp.SourceURL != "" {
		remote := &manifest.RemotePackage{Spec: rs.Spec(), Kind: pp.Kind, SourceURL: pp.SourceURL}
		if _, err := fetcher.FetchSrcRock(remote, dir, cfg.Logger); err != nil {
			return "", err
		}
		return dir, nil
	}
	if pp.Kind == manifest.TypeBinary && pp.SourceURL != "" {
		server := pp.SourceURL
		if idx := strings.LastIndex(server, "/"); idx > 0 {
			server = server[:idx]
		}
		if _, err := fetcher.FetchBinaryRock(server, rs.Spec(), dir, cfg.Logger); err != nil {
			return "", err
		}
		return dir, nil
	}

	if err := fetcher.FetchSource(pp.Source, dir, pp.SourceURL, cfg.Logger); err != nil {
		return "", err
	}
	return dir, nil
}

// buildOne drives one package through patch, probe, backend, and the
// shared install step, producing the LocalPackage to record. On any
// failure the partially populated RockLayout root is removed.
func buildOne(ctx context.Context, cfg lux.Config, tr *tree.Tree, pp resolve.PlannedPackage, buildDir string, opts InstallOpts) (tree.LocalPackage, error) {
	rs := pp.Rockspec
	view := rs.CurrentPlatform(cfg.Platform())

	kind := tree.KindDep
	if pp.EntryType == resolve.Entrypoint {
		kind = tree.KindEntry
	}
	pkg := tree.NewLocalPackage(rs.Spec(), pp.Constraint, pp.Pin, pp.Opt, kind, pp.Source, pp.SourceURL)
	layout := tr.Layout(pkg)

	cleanup := func(err error) (tree.LocalPackage, error) {
		os.RemoveAll(layout.Root)
		return tree.LocalPackage{}, err
	}

	if err := os.MkdirAll(layout.RockPathDir(), 0o755); err != nil {
		return cleanup(err)
	}
	rockspecText := rs.Serialize()
	if err := os.WriteFile(layout.RockspecPath(rs.Package, rs.Version), []byte(rockspecText), 0o644); err != nil {
		return cleanup(err)
	}

	if len(view.Build.Patches) > 0 {
		if err := build.ApplyPatches(buildDir, view.Build.Patches); err != nil {
			return cleanup(err)
		}
	}

	extDeps := map[string]probe.Result{}
	if len(view.Build.ExternalDeps) > 0 {
		var pspecs []probe.Spec
		for name, d := range view.Build.ExternalDeps {
			pspecs = append(pspecs, probe.Spec{Name: name, Header: d.Header, Library: d.Library})
		}
		var err error
		extDeps, err = probe.NewProber().Probe(pspecs)
		if err != nil {
			return cleanup(err)
		}
	}

	backend, err := build.Dispatch(view.Build.Type)
	if err != nil {
		return cleanup(err)
	}

	args := build.Args{
		Output:               layout,
		NoInstall:            opts.NoInstall,
		Lua:                  cfg.LuaInstallation(),
		ExternalDependencies: extDeps,
		Config:               cfg.BuildConfig(),
		BuildDir:             buildDir,
		Logger:               cfg.Logger,
		Platform:             cfg.Platform(),
	}

	info, err := backend.Run(args, rs, view)
	if err != nil {
		if be, ok := err.(*build.BuildError); ok {
			cfg.Logger.Captured(string(be.Backend), be.Stdout, be.Stderr)
		}
		return cleanup(err)
	}

	if !opts.NoInstall {
		if err := build.RunInstallStep(args, view.Build, info.Binaries); err != nil {
			return cleanup(err)
		}
	}

	pkg.Binaries = append(pkg.Binaries, info.Binaries...)
	for bin := range view.Build.Install.Bin {
		pkg.Binaries = append(pkg.Binaries, bin)
	}

	pkg.Hashes.Rockspec = fetch.HashBytes([]byte(rockspecText))
	if !cfg.NoIntegrityCheck {
		srcHash, err := treecopy.HashTree(layout.Root)
		if err != nil {
			return cleanup(err)
		}
		pkg.Hashes.Source = srcHash
	}

	return pkg, nil
}
