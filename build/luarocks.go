package build

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/pkg/errors"

	"github.com/lumen-oss/lux/rockspec"
)

// luaRocksBackend drives an external luarocks executable for the build
// backends the core cannot run itself: the rockspec is written out, a
// .luarocks/config-<lua-ver>.lua hard-coding the Lua toolchain is
// generated inside an isolated HOME and named by LUAROCKS_CONFIG, and
// `luarocks make --deps-mode none --tree <dest> <rockspec>` runs in the
// source directory.

type luaRocksBackend struct{}

func (luaRocksBackend) Run(args Args, rs *rockspec.Rockspec, view rockspec.PlatformView) (Info, error) {
	bin, err := findLuarocks(args)
	if err != nil {
		return Info{}, err
	}

	home := filepath.Join(args.BuildDir, "lux-luarocks-home")
	confDir := filepath.Join(home, ".luarocks")
	if err := os.MkdirAll(confDir, 0o755); err != nil {
		return Info{}, err
	}
	confPath := filepath.Join(confDir, "config-"+args.Lua.Version+".lua")
	if err := os.WriteFile(confPath, []byte(luarocksConfig(args)), 0o644); err != nil {
		return Info{}, errors.Wrap(err, "writing luarocks config")
	}

	rockspecPath := filepath.Join(args.BuildDir, fmt.Sprintf("%s-%s.rockspec", rs.Package, rs.Version))
	if _, statErr := os.Stat(rockspecPath); statErr != nil {
		if err := os.WriteFile(rockspecPath, []byte(rs.Serialize()), 0o644); err != nil {
			return Info{}, errors.Wrap(err, "writing rockspec for luarocks")
		}
	}

	env := append(os.Environ(),
		"HOME="+home,
		"LUAROCKS_CONFIG="+confPath,
	)

	_, _, err = runTool(context.Background(), rockspec.BackendLuaRocks, args.BuildDir, bin, env,
		"make", "--deps-mode", "none", "--tree", args.Output.Root, rockspecPath)
	if err != nil {
		return Info{}, errors.Wrap(err, "running luarocks make")
	}
	return Info{}, nil
}

// findLuarocks locates the luarocks executable: a vendored copy in a
// luarocks-vendor directory beside the build scratch dir first, then PATH. A missing executable is reported as
// Unsupported rather than BuildFailure, since the backend itself is fine
// but the environment cannot drive it.
func findLuarocks(args Args) (string, error) {
	name := "luarocks"
	if runtime.GOOS == "windows" {
		name = "luarocks.exe"
	}
	vendored := filepath.Join(filepath.Dir(args.BuildDir), "luarocks-vendor", name)
	if _, err := os.Stat(vendored); err == nil {
		return vendored, nil
	}
	if path, err := exec.LookPath(name); err == nil {
		return path, nil
	}
	return "", &UnsupportedBackendError{Type: rockspec.BackendLuaRocks}
}

// luarocksConfig renders the generated luarocks-config.lua hard-coding
// LUA_VERSION, LUA_LIBDIR, LUA_INCDIR, and MAKE.
func luarocksConfig(args Args) string {
	makeBin := "make"
	return fmt.Sprintf(`lua_version = %q
variables = {
   LUA_VERSION = %q,
   LUA_DIR = %q,
   LUA_LIBDIR = %q,
   LUA_INCDIR = %q,
   MAKE = %q,
}
`, args.Lua.Version, args.Lua.Version, args.Lua.Dir, args.Lua.LibDir, args.Lua.IncDir, makeBin)
}
