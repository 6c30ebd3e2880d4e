package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/lumen-oss/lux/lockfile"
	"github.com/lumen-oss/lux/ops"
	"github.com/lumen-oss/lux/resolve"
	"github.com/lumen-oss/lux/rockspec"
	"github.com/lumen-oss/lux/tree"
)

type installCommand struct {
	pin   bool
	force bool
	test  bool
}

func (cmd *installCommand) Name() string      { return "install" }
func (cmd *installCommand) Args() string      { return "<package[@version]> [package...]" }
func (cmd *installCommand) ShortHelp() string { return "install packages into the tree" }

func (cmd *installCommand) Register(fs *flag.FlagSet) {
	fs.BoolVar(&cmd.pin, "pin", false, "pin the installed versions")
	fs.BoolVar(&cmd.force, "force", false, "reinstall even if already satisfied")
	fs.BoolVar(&cmd.test, "test", false, "install into the test sub-lock")
}

func (cmd *installCommand) Run(e *env, args []string) error {
	if len(args) == 0 {
		return errors.New("install requires at least one package")
	}
	specs := make([]resolve.PackageInstallSpec, 0, len(args))
	for _, arg := range args {
		req, err := rockspec.ParsePackageReq(arg)
		if err != nil {
			return err
		}
		specs = append(specs, resolve.PackageInstallSpec{
			Req:       req,
			EntryType: resolve.Entrypoint,
			Pin:       cmd.pin,
		})
	}

	t := lockfile.Regular
	if cmd.test {
		t = lockfile.Test
	}
	installed, err := ops.Install(context.Background(), e.cfg, t, specs, ops.InstallOpts{Force: cmd.force})
	for _, pkg := range installed {
		fmt.Fprintf(e.stdout, "installed %s %s\n", pkg.Spec.Name, pkg.Spec.Version)
	}
	return err
}

type removeCommand struct{}

func (cmd *removeCommand) Name() string           { return "remove" }
func (cmd *removeCommand) Args() string           { return "<package> [package...]" }
func (cmd *removeCommand) ShortHelp() string      { return "remove installed packages" }
func (cmd *removeCommand) Register(*flag.FlagSet) {}

func (cmd *removeCommand) Run(e *env, args []string) error {
	if len(args) == 0 {
		return errors.New("remove requires at least one package")
	}
	lf, err := lockfile.Open(e.cfg.TreeLockfilePath())
	if err != nil {
		return err
	}
	var ids []tree.PackageID
	for _, arg := range args {
		req, err := rockspec.ParsePackageReq(arg)
		if err != nil {
			return err
		}
		result := tree.MatchRocks(rocksOf(lf, lockfile.Regular), req)
		if result.Kind == tree.NotFound {
			fmt.Fprintf(e.stderr, "warning: %s is not installed\n", arg)
			continue
		}
		ids = append(ids, result.Single.ID)
	}
	return ops.Remove(e.cfg, lockfile.Regular, ids)
}

type pinCommand struct {
	pin bool
}

func (cmd *pinCommand) Name() string {
	if cmd.pin {
		return "pin"
	}
	return "unpin"
}

func (cmd *pinCommand) Args() string { return "<package>" }

func (cmd *pinCommand) ShortHelp() string {
	if cmd.pin {
		return "pin an installed package's version"
	}
	return "unpin an installed package"
}

func (cmd *pinCommand) Register(*flag.FlagSet) {}

func (cmd *pinCommand) Run(e *env, args []string) error {
	if len(args) != 1 {
		return errors.Errorf("%s requires exactly one package", cmd.Name())
	}
	req, err := rockspec.ParsePackageReq(args[0])
	if err != nil {
		return err
	}
	lf, err := lockfile.Open(e.cfg.TreeLockfilePath())
	if err != nil {
		return err
	}
	result := tree.MatchRocks(rocksOf(lf, lockfile.Regular), req)
	if result.Kind == tree.NotFound {
		return errors.Errorf("%s is not installed", args[0])
	}
	pkg, err := ops.SetPinned(e.cfg, lockfile.Regular, result.Single.ID, cmd.pin)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "%s %s %s\n", cmd.Name()+"ned", pkg.Spec.Name, pkg.Spec.Version)
	return nil
}

type purgeCommand struct {
	yes bool
}

func (cmd *purgeCommand) Name() string      { return "purge" }
func (cmd *purgeCommand) Args() string      { return "" }
func (cmd *purgeCommand) ShortHelp() string { return "delete the entire install tree" }

func (cmd *purgeCommand) Register(fs *flag.FlagSet) {
	fs.BoolVar(&cmd.yes, "yes", false, "skip the confirmation prompt")
}

func (cmd *purgeCommand) Run(e *env, args []string) error {
	if !cmd.yes {
		fmt.Fprintf(e.stdout, "purge %s and everything in it? [y/N] ", e.cfg.TreeRoot)
		var answer string
		fmt.Scanln(&answer)
		if answer != "y" && answer != "Y" {
			fmt.Fprintln(e.stdout, "aborted")
			return nil
		}
	}
	return ops.Purge(e.cfg)
}

func rocksOf(lf *lockfile.Lockfile, t lockfile.LockType) []tree.LocalPackage {
	m := lf.Rocks(t)
	out := make([]tree.LocalPackage, 0, len(m))
	for _, p := range m {
		out = append(out, p)
	}
	return out
}

type installRockspecCommand struct {
	pin bool
}

func (cmd *installRockspecCommand) Name() string { return "install-rockspec" }
func (cmd *installRockspecCommand) Args() string { return "<file.rockspec>" }
func (cmd *installRockspecCommand) ShortHelp() string {
	return "install a package from a local rockspec file"
}

func (cmd *installRockspecCommand) Register(fs *flag.FlagSet) {
	fs.BoolVar(&cmd.pin, "pin", false, "pin the installed version")
}

func (cmd *installRockspecCommand) Run(e *env, args []string) error {
	if len(args) != 1 {
		return errors.New("install-rockspec requires exactly one rockspec file")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	rs, err := rockspec.ParseRockspec(string(data))
	if err != nil {
		return err
	}

	source := rs.Source
	spec := resolve.PackageInstallSpec{
		Req:       rs.Spec().ToPackageReq(),
		EntryType: resolve.Entrypoint,
		Pin:       cmd.pin,
		Source:    &source,
	}
	installed, err := ops.Install(context.Background(), e.cfg, lockfile.Regular,
		[]resolve.PackageInstallSpec{spec}, ops.InstallOpts{})
	for _, pkg := range installed {
		fmt.Fprintf(e.stdout, "installed %s %s\n", pkg.Spec.Name, pkg.Spec.Version)
	}
	return err
}
