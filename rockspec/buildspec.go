package rockspec

// BackendType enumerates the built-in build backends plus the
// external-luarocks shim. Adding a backend means adding a case here and
// in build.Dispatch, nothing more.
type BackendType string

const (
	BackendBuiltin         BackendType = "builtin"
	BackendMake            BackendType = "make"
	BackendCMake           BackendType = "cmake"
	BackendCommand         BackendType = "command"
	BackendRustMlua        BackendType = "rust-mlua"
	BackendTreesitterParse BackendType = "treesitter-parser"
	BackendSource          BackendType = "source"
	BackendLuaRocks        BackendType = "luarocks"
)

// KnownBackends lists every backend type this core can drive, so that an
// unrecognized type in a rockspec can be rejected as Unsupported at plan
// time rather than build time.
var KnownBackends = map[BackendType]bool{
	BackendBuiltin: true, BackendMake: true, BackendCMake: true,
	BackendCommand: true, BackendRustMlua: true, BackendTreesitterParse: true,
	BackendSource: true, BackendLuaRocks: true,
}

// InstallSpec is the shared per-backend "install" map consumed by the
// common install step after a backend runs.
type InstallSpec struct {
	Lua  map[string]string // target (dotted module) -> source file
	Lib  map[string]string // target -> source .c/.so
	Bin  map[string]string // target -> source binary (entrypoints only)
	Conf map[string]string // target -> source config file
}

func (s InstallSpec) merge(o InstallSpec) InstallSpec {
	merged := InstallSpec{
		Lua:  mergeStrMap(s.Lua, o.Lua),
		Lib:  mergeStrMap(s.Lib, o.Lib),
		Bin:  mergeStrMap(s.Bin, o.Bin),
		Conf: mergeStrMap(s.Conf, o.Conf),
	}
	return merged
}

func mergeStrMap(base, override map[string]string) map[string]string {
	if base == nil && override == nil {
		return nil
	}
	out := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

// ExternalDependencySpec names a header and/or library a build backend
// needs resolved via probe.Probe before it runs.
type ExternalDependencySpec struct {
	Header  string
	Library string
}

// BuildSpec is the typed, backend-classified "build" table of a rockspec.
type BuildSpec struct {
	Type BackendType

	// Builtin.
	Modules map[string]string // module name -> source file or file list marker

	// Make/CMake/Command: raw variable substitutions and invocation text.
	Variables map[string]string
	BuildPass map[string]string // make: build_pass target vars; cmake: cmake defines
	Command   string            // Command backend's shell line

	// RustMlua.
	DefaultFeatures bool
	Features        []string
	LuaVersionFlag  string // "lua51" | "lua52" | "lua53" | "lua54" | "luajit"

	// TreesitterParser.
	Lang              string
	ABIVersion        string
	RegenerateGrammar bool
	Queries           map[string]string // path -> query text

	// LuaRocks shim: no extra fields, dispatches to external luarocks.

	CopyDirectories []string
	Patches         map[string]string // patch name -> unified diff text
	Install         InstallSpec
	ExternalDeps    map[string]ExternalDependencySpec
}

func (b BuildSpec) merge(o *BuildSpec) BuildSpec {
	if o == nil {
		return b
	}
	merged := b
	if o.Type != "" {
		merged.Type = o.Type
	}
	if o.Modules != nil {
		merged.Modules = mergeStrMap(b.Modules, o.Modules)
	}
	if o.Variables != nil {
		merged.Variables = mergeStrMap(b.Variables, o.Variables)
	}
	if o.Command != "" {
		merged.Command = o.Command
	}
	if len(o.CopyDirectories) > 0 {
		merged.CopyDirectories = o.CopyDirectories
	}
	if o.Patches != nil {
		merged.Patches = mergeStrMap(b.Patches, o.Patches)
	}
	merged.Install = b.Install.merge(o.Install)
	if o.ExternalDeps != nil {
		merged.ExternalDeps = mergeExtDeps(b.ExternalDeps, o.ExternalDeps)
	}
	return merged
}

func mergeExtDeps(base, override map[string]ExternalDependencySpec) map[string]ExternalDependencySpec {
	out := make(map[string]ExternalDependencySpec, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

// DeploySpec controls per-platform entrypoint wrapping.
type DeploySpec struct {
	WrapBinScripts bool
}

// Description carries the human-facing rockspec metadata.
type Description struct {
	Summary    string
	Detailed   string
	License    string
	Maintainer string
	Homepage   string
}
