// Command lux is a package manager and project tool for Lua.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	lux "github.com/lumen-oss/lux"
)

type command interface {
	Name() string           // "install"
	Args() string           // "<package> [package...]"
	ShortHelp() string      // one-line description
	Register(*flag.FlagSet) // command-specific flags
	Run(*env, []string) error
}

// env is the fully assembled invocation state every command receives.
type env struct {
	cfg     lux.Config
	project *lux.Project
	stdout  io.Writer
	stderr  io.Writer
}

func main() {
	c := &cli{
		args:   os.Args,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	os.Exit(c.run())
}

type cli struct {
	args           []string
	stdout, stderr io.Writer
}

func (c *cli) run() int {
	commands := []command{
		&buildCommand{},
		&installCommand{},
		&installRockspecCommand{},
		&removeCommand{},
		&updateCommand{},
		&syncCommand{},
		&packCommand{},
		&vendorCommand{},
		&searchCommand{},
		&listCommand{},
		&infoCommand{},
		&pathCommand{},
		&downloadCommand{},
		&pinCommand{pin: true},
		&pinCommand{pin: false},
		&purgeCommand{},
		&debugCommand{},
	}

	usage := func() {
		fmt.Fprintln(c.stderr, "lux is a package manager and project tool for Lua")
		fmt.Fprintln(c.stderr)
		fmt.Fprintln(c.stderr, "Usage: lux <command> [arguments]")
		fmt.Fprintln(c.stderr)
		fmt.Fprintln(c.stderr, "Commands:")
		w := tabwriter.NewWriter(c.stderr, 0, 4, 2, ' ', 0)
		for _, cmd := range commands {
			fmt.Fprintf(w, "\t%s\t%s\n", cmd.Name(), cmd.ShortHelp())
		}
		w.Flush()
	}

	if len(c.args) < 2 || c.args[1] == "help" || c.args[1] == "-h" || c.args[1] == "--help" {
		usage()
		return 2
	}
	cmdName := c.args[1]

	for _, cmd := range commands {
		if cmd.Name() != cmdName {
			continue
		}
		fs := flag.NewFlagSet(cmdName, flag.ContinueOnError)
		fs.SetOutput(c.stderr)
		common := registerCommonFlags(fs)
		cmd.Register(fs)
		if err := fs.Parse(c.args[2:]); err != nil {
			return 2
		}

		e, err := c.newEnv(common)
		if err != nil {
			fmt.Fprintf(c.stderr, "lux: %v\n", err)
			return 1
		}
		if err := cmd.Run(e, fs.Args()); err != nil {
			fmt.Fprintf(c.stderr, "lux: %s: %v\n", cmdName, err)
			return 1
		}
		return 0
	}

	fmt.Fprintf(c.stderr, "lux: %s: no such command\n", cmdName)
	usage()
	return 2
}

// commonFlags are the flags shared by every sub-command.
type commonFlags struct {
	servers       stringSlice
	extraServers  stringSlice
	luanoxServers stringSlice
	dev           bool
	luaVersion    string
	luaDir        string
	tree          string
	namespace     string
	vendorDir     string
	timeout       time.Duration
	verbose       bool
	noProject     bool
	onlySources   bool
}

func registerCommonFlags(fs *flag.FlagSet) *commonFlags {
	f := &commonFlags{}
	fs.Var(&f.servers, "server", "fetch rocks and rockspecs from this server (may repeat)")
	fs.Var(&f.extraServers, "extra-server", "also fetch from this server (may repeat)")
	fs.Var(&f.luanoxServers, "luanox-server", "also fetch from this REST manifest server (may repeat)")
	fs.BoolVar(&f.dev, "dev", false, "enable the dev-rocks server")
	fs.StringVar(&f.luaVersion, "lua-version", "", "use this Lua version (5.1|5.2|5.3|5.4|jit|jit52)")
	fs.StringVar(&f.luaDir, "lua-dir", "", "Lua installation prefix")
	fs.StringVar(&f.tree, "tree", "", "install tree root")
	fs.StringVar(&f.namespace, "namespace", "", "rock namespace")
	fs.StringVar(&f.vendorDir, "vendor", "", "use a vendor directory as the package source")
	fs.DurationVar(&f.timeout, "timeout", 0, "network request timeout")
	fs.BoolVar(&f.verbose, "verbose", false, "verbose output")
	fs.BoolVar(&f.noProject, "no-project", false, "ignore any enclosing project")
	fs.BoolVar(&f.onlySources, "only-sources", false, "only install from source rocks")
	return f
}

func (c *cli) newEnv(f *commonFlags) (*env, error) {
	cfg := lux.NewConfig()
	cfg.Servers = f.servers
	cfg.ExtraServers = f.extraServers
	cfg.LuanoxServers = f.luanoxServers
	cfg.Dev = f.dev
	if f.luaVersion != "" {
		cfg.LuaVersion = f.luaVersion
	}
	cfg.LuaDir = f.luaDir
	if f.tree != "" {
		cfg.TreeRoot = f.tree
	}
	cfg.Namespace = f.namespace
	cfg.VendorDir = f.vendorDir
	if f.timeout > 0 {
		cfg.Timeout = f.timeout
	}
	cfg.Verbose = f.verbose
	cfg.NoProject = f.noProject
	cfg.OnlySources = f.onlySources
	cfg.Logger.SetVerbose(f.verbose)

	e := &env{cfg: cfg, stdout: c.stdout, stderr: c.stderr}

	if !f.noProject {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		project, err := lux.FindProject(wd)
		if err != nil {
			return nil, err
		}
		e.project = project
	}
	return e, nil
}

// stringSlice is a repeatable string flag.
type stringSlice []string

func (s *stringSlice) String() string { return strings.Join(*s, ",") }

func (s *stringSlice) Set(v string) error {
	*s = append(*s, v)
	return nil
}
