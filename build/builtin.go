package build

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/lumen-oss/lux/rockspec"
)

// builtinBackend compiles every .c file named in the rockspec's modules
// table into a shared library and leaves pure-Lua modules for the
// shared install step to copy.
type builtinBackend struct{}

func (builtinBackend) Run(args Args, rs *rockspec.Rockspec, view rockspec.PlatformView) (Info, error) {
	modules := view.Build.Modules
	names := make([]string, 0, len(modules))
	for name := range modules {
		names = append(names, name)
	}
	sortStrings(names)

	for _, name := range names {
		src := modules[name]
		if !strings.HasSuffix(src, ".c") {
			// Pure-Lua or pre-resolved module: the shared install step
			// copies it from install.lua/install.lib, this backend only
			// compiles C sources named directly as a module target.
			continue
		}
		dest := filepath.Join(args.Output.LibDir(), modulePathToFile(name, "."+args.Config.DylibExt))
		if err := compileModule(args, filepath.Join(args.BuildDir, src), dest); err != nil {
			return Info{}, errors.Wrapf(err, "compiling module %s", name)
		}
	}

	return Info{}, nil
}

func compileModule(args Args, src, dest string) error {
	cc := "cc"
	cflags := strings.Fields(args.Config.CFlags)
	libflag := args.Config.LibFlag
	if libflag == "" {
		libflag = "-shared"
	}
	invocArgs := append([]string{}, cflags...)
	invocArgs = append(invocArgs, libflag, "-I"+args.Lua.IncDir, "-o", dest, src)
	_, _, err := runTool(context.Background(), rockspec.BackendBuiltin, filepath.Dir(src), cc, nil, invocArgs...)
	return err
}
