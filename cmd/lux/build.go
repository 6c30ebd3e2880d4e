package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/pkg/errors"

	"github.com/lumen-oss/lux/lockfile"
	"github.com/lumen-oss/lux/ops"
	"github.com/lumen-oss/lux/resolve"
)

// buildCommand installs the enclosing project's dependencies as
// entrypoints and, unless -no-lock is given, records them in the project
// lockfile. The project's own sources are not built or installed.
type buildCommand struct {
	noLock bool
}

func (cmd *buildCommand) Name() string      { return "build" }
func (cmd *buildCommand) Args() string      { return "" }
func (cmd *buildCommand) ShortHelp() string { return "install the current project's dependencies" }

func (cmd *buildCommand) Register(fs *flag.FlagSet) {
	fs.BoolVar(&cmd.noLock, "no-lock", false, "do not update the project lockfile")
}

func (cmd *buildCommand) Run(e *env, args []string) error {
	if e.project == nil {
		return errors.New("no lux.toml found; run inside a project or pass packages to install")
	}
	p := e.project

	specs := make([]resolve.PackageInstallSpec, 0, len(p.Dependencies))
	for _, dep := range p.Dependencies {
		specs = append(specs, resolve.PackageInstallSpec{Req: dep, EntryType: resolve.Entrypoint})
	}

	installed, err := ops.Install(context.Background(), e.cfg, lockfile.Regular, specs, ops.InstallOpts{})
	if err != nil {
		return err
	}
	for _, pkg := range installed {
		fmt.Fprintf(e.stdout, "installed %s %s\n", pkg.Spec.Name, pkg.Spec.Version)
	}

	if !cmd.noLock {
		guard, err := lockfile.OpenWritable(p.LockfilePath())
		if err != nil {
			return err
		}
		for _, pkg := range installed {
			guard.Lockfile().AddEntrypoint(lockfile.Regular, pkg)
		}
		if err := guard.Commit(); err != nil {
			return err
		}
	}

	fmt.Fprintf(e.stdout, "built %s %s\n", p.Package, p.Version)
	return nil
}
