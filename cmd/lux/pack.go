package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/pkg/errors"

	"github.com/lumen-oss/lux/lockfile"
	"github.com/lumen-oss/lux/ops"
	"github.com/lumen-oss/lux/resolve"
	"github.com/lumen-oss/lux/rockspec"
)

type packCommand struct {
	output string
}

func (cmd *packCommand) Name() string      { return "pack" }
func (cmd *packCommand) Args() string      { return "<package[@version]>" }
func (cmd *packCommand) ShortHelp() string { return "pack an installed package into a .rock archive" }

func (cmd *packCommand) Register(fs *flag.FlagSet) {
	fs.StringVar(&cmd.output, "output", ".", "directory to write the rock into")
}

func (cmd *packCommand) Run(e *env, args []string) error {
	if len(args) != 1 {
		return errors.New("pack requires exactly one package")
	}
	req, err := rockspec.ParsePackageReq(args[0])
	if err != nil {
		return err
	}
	path, err := ops.Pack(e.cfg, req, cmd.output)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "packed %s\n", path)
	return nil
}

type vendorCommand struct {
	dest string
}

func (cmd *vendorCommand) Name() string      { return "vendor" }
func (cmd *vendorCommand) Args() string      { return "[package...]" }
func (cmd *vendorCommand) ShortHelp() string { return "write resolved sources into a vendor directory" }

func (cmd *vendorCommand) Register(fs *flag.FlagSet) {
	fs.StringVar(&cmd.dest, "dest", "vendor", "vendor directory to write into")
}

func (cmd *vendorCommand) Run(e *env, args []string) error {
	var specs []resolve.PackageInstallSpec
	if len(args) > 0 {
		for _, arg := range args {
			req, err := rockspec.ParsePackageReq(arg)
			if err != nil {
				return err
			}
			specs = append(specs, resolve.PackageInstallSpec{Req: req, EntryType: resolve.Entrypoint})
		}
	} else {
		if e.project == nil {
			return errors.New("vendor requires a project or explicit packages")
		}
		for _, dep := range e.project.Dependencies {
			specs = append(specs, resolve.PackageInstallSpec{Req: dep, EntryType: resolve.Entrypoint})
		}
	}
	return ops.Vendor(context.Background(), e.cfg, lockfile.Regular, specs, cmd.dest)
}
