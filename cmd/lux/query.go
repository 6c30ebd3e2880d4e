package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/pkg/errors"

	"github.com/lumen-oss/lux/lockfile"
	"github.com/lumen-oss/lux/manifest"
	"github.com/lumen-oss/lux/rockspec"
	"github.com/lumen-oss/lux/tree"
)

type searchCommand struct{}

func (cmd *searchCommand) Name() string           { return "search" }
func (cmd *searchCommand) Args() string           { return "<query>" }
func (cmd *searchCommand) ShortHelp() string      { return "search the configured servers for packages" }
func (cmd *searchCommand) Register(*flag.FlagSet) {}

func (cmd *searchCommand) Run(e *env, args []string) error {
	if len(args) != 1 {
		return errors.New("search requires exactly one query")
	}
	req, err := rockspec.ParsePackageReq(args[0])
	if err != nil {
		return err
	}
	results, err := e.cfg.DB(nil, lockfile.Regular).Search(req)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(e.stdout, 0, 4, 2, ' ', 0)
	for _, r := range results {
		versions := make([]string, len(r.Versions))
		for i, v := range r.Versions {
			versions[i] = v.String()
		}
		sort.Strings(versions)
		fmt.Fprintf(w, "%s\t%v\n", r.Name, versions)
	}
	return w.Flush()
}

type listCommand struct{}

func (cmd *listCommand) Name() string           { return "list" }
func (cmd *listCommand) Args() string           { return "" }
func (cmd *listCommand) ShortHelp() string      { return "list installed packages" }
func (cmd *listCommand) Register(*flag.FlagSet) {}

func (cmd *listCommand) Run(e *env, args []string) error {
	lf, err := lockfile.Open(e.cfg.TreeLockfilePath())
	if err != nil {
		return err
	}
	pkgs := rocksOf(lf, lockfile.Regular)
	sort.Slice(pkgs, func(i, j int) bool {
		if pkgs[i].Spec.Name != pkgs[j].Spec.Name {
			return pkgs[i].Spec.Name < pkgs[j].Spec.Name
		}
		return pkgs[i].Spec.Version.Less(pkgs[j].Spec.Version)
	})
	w := tabwriter.NewWriter(e.stdout, 0, 4, 2, ' ', 0)
	for _, pkg := range pkgs {
		flags := ""
		if lf.IsEntrypoint(lockfile.Regular, pkg.ID) {
			flags += " (entrypoint)"
		}
		if pkg.Pinned {
			flags += " (pinned)"
		}
		fmt.Fprintf(w, "%s\t%s%s\n", pkg.Spec.Name, pkg.Spec.Version, flags)
	}
	return w.Flush()
}

type infoCommand struct{}

func (cmd *infoCommand) Name() string           { return "info" }
func (cmd *infoCommand) Args() string           { return "<package>" }
func (cmd *infoCommand) ShortHelp() string      { return "show details of an installed package" }
func (cmd *infoCommand) Register(*flag.FlagSet) {}

func (cmd *infoCommand) Run(e *env, args []string) error {
	if len(args) != 1 {
		return errors.New("info requires exactly one package")
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
	pkg := result.Single
	layout := e.cfg.Tree().Layout(pkg)
	fmt.Fprintf(e.stdout, "name:\t%s\n", pkg.Spec.Name)
	fmt.Fprintf(e.stdout, "version:\t%s\n", pkg.Spec.Version)
	fmt.Fprintf(e.stdout, "id:\t%s\n", pkg.ID)
	fmt.Fprintf(e.stdout, "pinned:\t%v\n", pkg.Pinned)
	fmt.Fprintf(e.stdout, "tree:\t%s\n", layout.Root)
	if len(pkg.Binaries) > 0 {
		fmt.Fprintf(e.stdout, "binaries:\t%v\n", pkg.Binaries)
	}
	return nil
}

// pathCommand prints the LUA_PATH/LUA_CPATH/PATH additions for the tree,
// for eval'ing into a shell.
type pathCommand struct{}

func (cmd *pathCommand) Name() string           { return "path" }
func (cmd *pathCommand) Args() string           { return "" }
func (cmd *pathCommand) ShortHelp() string      { return "print shell exports for using the tree" }
func (cmd *pathCommand) Register(*flag.FlagSet) {}

func (cmd *pathCommand) Run(e *env, args []string) error {
	lf, err := lockfile.Open(e.cfg.TreeLockfilePath())
	if err != nil {
		return err
	}
	tr := e.cfg.Tree()
	var luaPath, luaCPath string
	for _, pkg := range rocksOf(lf, lockfile.Regular) {
		layout := tr.Layout(pkg)
		luaPath += layout.SrcDir() + "/?.lua;" + layout.SrcDir() + "/?/init.lua;"
		luaCPath += layout.LibDir() + "/?." + e.cfg.DylibExt() + ";"
	}
	fmt.Fprintf(e.stdout, "export LUA_PATH=\"%s$LUA_PATH\"\n", luaPath)
	fmt.Fprintf(e.stdout, "export LUA_CPATH=\"%s$LUA_CPATH\"\n", luaCPath)
	fmt.Fprintf(e.stdout, "export PATH=\"%s:$PATH\"\n", tr.BinDir(tree.KindEntry))
	return nil
}

type downloadCommand struct {
	output string
}

func (cmd *downloadCommand) Name() string      { return "download" }
func (cmd *downloadCommand) Args() string      { return "<package[@version]>" }
func (cmd *downloadCommand) ShortHelp() string { return "download a rockspec without installing" }

func (cmd *downloadCommand) Register(fs *flag.FlagSet) {
	fs.StringVar(&cmd.output, "output", ".", "directory to write the rockspec into")
}

func (cmd *downloadCommand) Run(e *env, args []string) error {
	if len(args) != 1 {
		return errors.New("download requires exactly one package")
	}
	req, err := rockspec.ParsePackageReq(args[0])
	if err != nil {
		return err
	}
	db := e.cfg.DB(nil, lockfile.Regular)
	remote, err := db.Find(req, manifest.DefaultFilter)
	if err != nil {
		return err
	}
	if remote == nil {
		return errors.Errorf("no package satisfies %s", args[0])
	}
	rs, err := e.cfg.Fetcher().FetchRockspec(remote)
	if err != nil {
		return err
	}
	path := fmt.Sprintf("%s/%s-%s.rockspec", cmd.output, rs.Package, rs.Version)
	if err := os.WriteFile(path, []byte(rs.Serialize()), 0o644); err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "wrote %s\n", path)
	return nil
}
