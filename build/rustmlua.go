package build

import (
	"context"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pkg/errors"

	"github.com/lumen-oss/lux/internal/treecopy"
	"github.com/lumen-oss/lux/rockspec"
)

// rustMluaBackend builds a mlua-based Rust crate with cargo and copies
// the resulting cdylib artifacts into lib/ 5.
type rustMluaBackend struct{}

func (rustMluaBackend) Run(args Args, rs *rockspec.Rockspec, view rockspec.PlatformView) (Info, error) {
	targetDir := filepath.Join(args.BuildDir, "lux-cargo-target")

	features := []string{luaFeature(args.Lua.Version, view.Build.LuaVersionFlag)}
	features = append(features, view.Build.Features...)

	cargoArgs := []string{"build", "--release", "--target-dir=" + targetDir}
	if !view.Build.DefaultFeatures {
		cargoArgs = append(cargoArgs, "--no-default-features")
	}
	cargoArgs = append(cargoArgs, "--features", strings.Join(features, ","))

	if _, _, err := runTool(context.Background(), rockspec.BackendRustMlua, args.BuildDir, "cargo", nil, cargoArgs...); err != nil {
		return Info{}, errors.Wrap(err, "running cargo build")
	}

	releaseDir := filepath.Join(targetDir, "release")
	for modName, crateName := range view.Build.Modules {
		artifact := filepath.Join(releaseDir, cdylibName(crateName, args.Config.DylibExt))
		dest := filepath.Join(args.Output.LibDir(), modulePathToFile(modName, "."+args.Config.DylibExt))
		if err := treecopy.CopyFile(artifact, dest); err != nil {
			return Info{}, errors.Wrapf(err, "copying rust-mlua artifact for module %s", modName)
		}
	}

	return Info{}, nil
}

// luaFeature maps a LuaInstallation version string (or an explicit
// rockspec override) to the mlua crate feature name it needs.
func luaFeature(version, override string) string {
	if override != "" {
		return override
	}
	switch version {
	case "5.1":
		return "lua51"
	case "5.2":
		return "lua52"
	case "5.3":
		return "lua53"
	case "5.4":
		return "lua54"
	case "jit", "jit52":
		return "luajit"
	default:
		return "lua54"
	}
}

func cdylibName(crateName, dylibExt string) string {
	if dylibExt == "" {
		dylibExt = "so"
	}
	prefix := "lib"
	if runtime.GOOS == "windows" {
		prefix = ""
	}
	return prefix + strings.ReplaceAll(crateName, "-", "_") + "." + dylibExt
}
