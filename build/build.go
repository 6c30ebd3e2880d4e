// Package build implements the build backends plus the shared install
// step, dispatched through a closed sum type: a Backend interface
// implemented by exactly the known BackendTypes. External tools are
// invoked with their stdout and stderr captured separately into a typed
// error on non-zero exit.
package build

import (
	"github.com/lumen-oss/lux/internal/log"
	"github.com/lumen-oss/lux/probe"
	"github.com/lumen-oss/lux/rockspec"
	"github.com/lumen-oss/lux/tree"
)

// LuaInstallation describes the Lua toolchain a build runs against.
type LuaInstallation struct {
	Version string // "5.1", "5.2", "5.3", "5.4", "jit", "jit52"
	Dir     string
	IncDir  string
	LibDir  string
}

// Config is the subset of top-level configuration build backends need.
// Kept narrow (rather than importing the root package's Config) so
// build has no dependency on the orchestration layer above it.
type Config struct {
	MaxJobs  int
	CFlags   string
	LibFlag  string
	DylibExt string // "so", "dylib", "dll"
}

// Args is the shared per-backend invocation context.
type Args struct {
	Output               tree.RockLayout
	NoInstall            bool
	Lua                  LuaInstallation
	ExternalDependencies map[string]probe.Result
	Config               Config
	BuildDir             string
	Logger               *log.Logger
	// Platform is the host platform tag used to re-derive a
	// current-platform view when a backend (the source/copy backend)
	// needs to re-parse and dispatch an inner rockspec.
	Platform rockspec.Platform
}

// Info is a backend's result.
type Info struct {
	Binaries []string
}

// Backend is the common contract every build strategy implements.
type Backend interface {
	Run(args Args, rs *rockspec.Rockspec, view rockspec.PlatformView) (Info, error)
}

// Dispatch returns the Backend implementing t, or an Unsupported-flavored
// error if the core cannot drive it - this is checked at resolve/plan
// time too, but Dispatch is the single source of
// truth for "known backends."
func Dispatch(t rockspec.BackendType) (Backend, error) {
	switch t {
	case rockspec.BackendBuiltin:
		return builtinBackend{}, nil
	case rockspec.BackendMake:
		return makeBackend{}, nil
	case rockspec.BackendCMake:
		return cmakeBackend{}, nil
	case rockspec.BackendCommand:
		return commandBackend{}, nil
	case rockspec.BackendRustMlua:
		return rustMluaBackend{}, nil
	case rockspec.BackendTreesitterParse:
		return treesitterBackend{}, nil
	case rockspec.BackendSource:
		return sourceBackend{}, nil
	case rockspec.BackendLuaRocks:
		return luaRocksBackend{}, nil
	default:
		return nil, &UnsupportedBackendError{Type: t}
	}
}

// UnsupportedBackendError reports a backend this core cannot drive.
type UnsupportedBackendError struct {
	Type rockspec.BackendType
}

func (e *UnsupportedBackendError) Error() string {
	return "unsupported build backend: " + string(e.Type)
}

// BuildError reports a backend or external tool that exited non-zero.
type BuildError struct {
	Backend rockspec.BackendType
	Stdout  string
	Stderr  string
	Cause   error
}

func (e *BuildError) Error() string {
	return string(e.Backend) + " build failed: " + e.Cause.Error()
}

func (e *BuildError) Unwrap() error { return e.Cause }
