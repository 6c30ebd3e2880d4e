// Package lux ties the package-resolution-and-build pipeline together: a
// Config value threaded explicitly through every operation (no global
// state), the lux.toml project model, and the construction of the
// manifest DB, fetcher, and tree the operations in ops/ consume.
package lux

import (
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/lumen-oss/lux/build"
	"github.com/lumen-oss/lux/fetch"
	"github.com/lumen-oss/lux/internal/log"
	"github.com/lumen-oss/lux/lockfile"
	"github.com/lumen-oss/lux/manifest"
	"github.com/lumen-oss/lux/rockspec"
	"github.com/lumen-oss/lux/tree"
)

// DefaultServer is the canonical luarocks manifest server.
const DefaultServer = "https://luarocks.org"

// DevServer carries dev/scm rockspecs; consulted only with Dev set.
const DevServer = DefaultServer + "/dev"

// Config is the full configuration for one lux invocation, built once in
// cmd/lux from flags, environment, and lux.toml, then passed by value to
// every operation.
type Config struct {
	// Servers are explicit --server overrides, consulted first.
	Servers []string
	// ExtraServers are --extra-server additions, consulted after Servers.
	ExtraServers []string
	// LuanoxServers are REST-protocol manifest servers, consulted after the luarocks-protocol servers.
	LuanoxServers []string
	// Dev enables the dev-server subset between extras and the default.
	Dev bool

	LuaVersion string // "5.1" | "5.2" | "5.3" | "5.4" | "jit" | "jit52"
	LuaDir     string

	// TreeRoot is where installed packages live. Defaults to
	// <UserDataDir>/lux/tree.
	TreeRoot string

	// VendorDir, when set, makes the vendor directory the first package
	// source and the install fully offline-capable.
	VendorDir string

	Namespace string

	Timeout          time.Duration
	MaxJobs          int
	Verbose          bool
	NoProject        bool
	OnlySources      bool
	NoIntegrityCheck bool

	// CacheDir holds downloaded manifest zips and unpack scratch space.
	CacheDir string

	CFlags  string
	LibFlag string

	Logger *log.Logger
}

// NewConfig returns a Config with defaults filled in: Lua 5.4, a 30s
// network timeout, the host's CPU count for MaxJobs, CFLAGS and LIBFLAG
// from the environment, and cache/tree roots under the user's cache and
// home directories. No server is set here; DB falls back to the default
// server when none is configured.
func NewConfig() Config {
	cache, _ := os.UserCacheDir()
	home, _ := os.UserHomeDir()
	c := Config{
		LuaVersion: "5.4",
		Timeout:    30 * time.Second,
		MaxJobs:    runtime.NumCPU(),
		CacheDir:   filepath.Join(cache, "lux"),
		TreeRoot:   filepath.Join(home, ".local", "share", "lux", "tree"),
		Logger:     log.New(os.Stdout, os.Stderr),
		CFlags:     os.Getenv("CFLAGS"),
		LibFlag:    os.Getenv("LIBFLAG"),
	}
	return c
}

// Tree returns the install tree for this configuration's Lua version.
func (c Config) Tree() *tree.Tree {
	return tree.New(c.TreeRoot, c.LuaVersion)
}

// TreeLockfilePath is the install lockfile for the configured tree.
func (c Config) TreeLockfilePath() string {
	return filepath.Join(c.TreeRoot, c.LuaVersion, "lux.lock")
}

// HTTPClient returns a client bounded by the configured timeout, so no
// single network request can hang an operation.
func (c Config) HTTPClient() *http.Client {
	return &http.Client{Timeout: c.Timeout}
}

// Fetcher builds the fetch layer against this configuration's scratch
// space and HTTP client.
func (c Config) Fetcher() *fetch.Fetcher {
	f := fetch.NewFetcher(filepath.Join(c.CacheDir, "src"))
	f.Client = c.HTTPClient()
	return f
}

// Platform is the host platform tag used for rockspec platform merges.
func (c Config) Platform() rockspec.Platform {
	switch runtime.GOOS {
	case "windows":
		return "windows"
	case "darwin":
		return "macosx"
	default:
		return rockspec.Platform(runtime.GOOS)
	}
}

// DylibExt is the shared-library extension for the host platform.
func (c Config) DylibExt() string {
	switch runtime.GOOS {
	case "windows":
		return "dll"
	case "darwin":
		return "dylib"
	default:
		return "so"
	}
}

// BuildConfig narrows this Config to the subset build backends consume.
func (c Config) BuildConfig() build.Config {
	return build.Config{
		MaxJobs:  c.MaxJobs,
		CFlags:   c.CFlags,
		LibFlag:  c.LibFlag,
		DylibExt: c.DylibExt(),
	}
}

// LuaInstallation locates the Lua toolchain the configured LuaDir (or the
// conventional system prefix) provides.
func (c Config) LuaInstallation() build.LuaInstallation {
	dir := c.LuaDir
	if dir == "" {
		dir = "/usr"
	}
	return build.LuaInstallation{
		Version: c.LuaVersion,
		Dir:     dir,
		IncDir:  filepath.Join(dir, "include"),
		LibDir:  filepath.Join(dir, "lib"),
	}
}

// DB assembles the manifest database in lookup-priority order: vendor
// directory first when configured, then explicit --server
// overrides, extra servers, the dev subset, the default server (only
// when no --server override is given), and last the Luanox servers.
// localLock, when non-nil, short-circuits every remote and is
// installed at the very front.
func (c Config) DB(localLock *lockfile.Lockfile, lockType lockfile.LockType) *manifest.DB {
	var sources []manifest.Source

	if localLock != nil {
		sources = append(sources, manifest.NewLocalLock(localLock, lockType))
	}
	if c.VendorDir != "" {
		sources = append(sources, manifest.NewVendorDB(c.VendorDir))
	}

	manifestCache := filepath.Join(c.CacheDir, "manifests")
	addServer := func(server string) {
		m := manifest.NewLuarocksManifest(server, c.LuaVersion, manifestCache)
		m.Client = c.HTTPClient()
		sources = append(sources, m)
	}

	for _, s := range c.Servers {
		addServer(s)
	}
	for _, s := range c.ExtraServers {
		addServer(s)
	}
	if c.Dev {
		addServer(DevServer)
	}
	if len(c.Servers) == 0 {
		addServer(DefaultServer)
	}

	for _, s := range c.LuanoxServers {
		d := manifest.NewLuanoxRemoteDB(s)
		d.Client = c.HTTPClient()
		sources = append(sources, d)
	}

	return manifest.NewDB(sources...)
}
