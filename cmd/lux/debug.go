package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/lumen-oss/lux/fetch"
	"github.com/lumen-oss/lux/lockfile"
	"github.com/lumen-oss/lux/manifest"
	"github.com/lumen-oss/lux/resolve"
	"github.com/lumen-oss/lux/rockspec"
)

// debugCommand exposes internals for local troubleshooting:
// `lux debug <fetch|unpack|project|dependencies> ...`.
type debugCommand struct{}

func (cmd *debugCommand) Name() string           { return "debug" }
func (cmd *debugCommand) Args() string           { return "<fetch|unpack|project|dependencies> [args]" }
func (cmd *debugCommand) ShortHelp() string      { return "inspect fetch, unpack, and resolution internals" }
func (cmd *debugCommand) Register(*flag.FlagSet) {}

func (cmd *debugCommand) Run(e *env, args []string) error {
	if len(args) == 0 {
		return errors.New("debug requires a sub-command: fetch, unpack, project, dependencies")
	}
	switch args[0] {
	case "fetch":
		return cmd.fetch(e, args[1:])
	case "unpack":
		return cmd.unpack(e, args[1:])
	case "project":
		return cmd.project(e)
	case "dependencies":
		return cmd.dependencies(e, args[1:])
	}
	return errors.Errorf("unknown debug sub-command %q", args[0])
}

func (cmd *debugCommand) fetch(e *env, args []string) error {
	if len(args) != 1 {
		return errors.New("debug fetch requires a package")
	}
	req, err := rockspec.ParsePackageReq(args[0])
	if err != nil {
		return err
	}
	remote, err := e.cfg.DB(nil, lockfile.Regular).Find(req, manifest.DefaultFilter)
	if err != nil {
		return err
	}
	if remote == nil {
		return errors.Errorf("no package satisfies %s", args[0])
	}
	fmt.Fprintf(e.stdout, "spec:\t%s\n", remote.Spec)
	fmt.Fprintf(e.stdout, "kind:\t%d\n", remote.Kind)
	fmt.Fprintf(e.stdout, "url:\t%s\n", remote.SourceURL)
	rs, err := e.cfg.Fetcher().FetchRockspec(remote)
	if err != nil {
		return err
	}
	fmt.Fprint(e.stdout, rs.Serialize())
	return nil
}

func (cmd *debugCommand) unpack(e *env, args []string) error {
	if len(args) != 2 {
		return errors.New("debug unpack requires <archive> <dest>")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	return fetch.Unpack(data, args[1], args[0], e.cfg.Logger)
}

func (cmd *debugCommand) project(e *env) error {
	if e.project == nil {
		return errors.New("no enclosing project")
	}
	p := e.project
	fmt.Fprintf(e.stdout, "root:\t%s\n", p.Root)
	fmt.Fprintf(e.stdout, "package:\t%s %s\n", p.Package, p.Version)
	fmt.Fprintf(e.stdout, "lua:\t%s\n", p.Lua)
	for _, dep := range p.Dependencies {
		fmt.Fprintf(e.stdout, "dependency:\t%s\n", dep)
	}
	return nil
}

func (cmd *debugCommand) dependencies(e *env, args []string) error {
	var specs []resolve.PackageInstallSpec
	if len(args) > 0 {
		for _, arg := range args {
			req, err := rockspec.ParsePackageReq(arg)
			if err != nil {
				return err
			}
			specs = append(specs, resolve.PackageInstallSpec{Req: req, EntryType: resolve.Entrypoint})
		}
	} else if e.project != nil {
		for _, dep := range e.project.Dependencies {
			specs = append(specs, resolve.PackageInstallSpec{Req: dep, EntryType: resolve.Entrypoint})
		}
	} else {
		return errors.New("debug dependencies requires a project or explicit packages")
	}

	resolver := &resolve.Resolver{
		DB:       e.cfg.DB(nil, lockfile.Regular),
		Fetcher:  e.cfg.Fetcher(),
		Platform: e.cfg.Platform(),
		Logger:   e.cfg.Logger,
	}
	plan, err := resolver.Resolve(specs)
	if err != nil {
		return err
	}
	for _, pp := range plan {
		fmt.Fprintf(e.stdout, "%s %s (%s)\n", pp.Rockspec.Package, pp.Rockspec.Version, pp.EntryType)
	}
	return nil
}
