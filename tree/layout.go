package tree

import (
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/lumen-oss/lux/rockspec"
)

// Tree is a directory holding installed packages for one Lua version.
type Tree struct {
	Root       string
	LuaVersion string
}

// New returns a Tree rooted at root for the given Lua version string
// ("5.1", "5.4", "jit", ...).
func New(root, luaVersion string) *Tree {
	return &Tree{Root: root, LuaVersion: luaVersion}
}

// versionDir is the <root>/<lua-ver> segment shared by every tree-kind.
func (t *Tree) versionDir() string {
	return filepath.Join(t.Root, t.LuaVersion)
}

// KindDir is the <root>/<lua-ver>/<tree-kind> segment.
func (t *Tree) KindDir(kind Kind) string {
	return filepath.Join(t.versionDir(), string(kind))
}

// BinDir is the bin/ directory shared by every package in one
// lua-version/tree-kind, so wrappers resolve deterministically.
func (t *Tree) BinDir(kind Kind) string {
	return filepath.Join(t.KindDir(kind), "bin")
}

// RockLayout is the on-disk layout of one installed package.
type RockLayout struct {
	Root string // <root>/<lua-ver>/<tree-kind>/<pkg-name>/<pkg-version>-<hash>/
	Bin  string // shared bin dir for this tree/lua-version/tree-kind
	Kind Kind
}

// Layout computes the RockLayout for pkg installed as kind.
func (t *Tree) Layout(pkg LocalPackage) RockLayout {
	dirName := fmt.Sprintf("%s-%s", pkg.Spec.Version.String(), pkg.ID)
	root := filepath.Join(t.KindDir(pkg.Kind), pkg.Spec.Name.String(), dirName)
	return RockLayout{Root: root, Bin: t.BinDir(pkg.Kind), Kind: pkg.Kind}
}

func (l RockLayout) RockPathDir() string { return filepath.Join(l.Root, "rock_path") }
func (l RockLayout) EtcDir() string      { return filepath.Join(l.Root, "etc") }
func (l RockLayout) LibDir() string      { return filepath.Join(l.Root, "lib") }
func (l RockLayout) SrcDir() string      { return filepath.Join(l.Root, "src") }
func (l RockLayout) ConfDir() string     { return filepath.Join(l.Root, "conf") }
func (l RockLayout) DocDir() string      { return filepath.Join(l.Root, "doc") }

// RockspecPath is the rock_path/rockspec-<pkg>-<ver>.rockspec file.
func (l RockLayout) RockspecPath(name rockspec.PackageName, version rockspec.PackageVersion) string {
	return filepath.Join(l.RockPathDir(), fmt.Sprintf("rockspec-%s-%s.rockspec", name, version))
}

// WrapperPath is where an entrypoint binary's launcher wrapper lives.
// Binaries only exist for KindEntry layouts.
func (l RockLayout) WrapperPath(binName string) string {
	if runtime.GOOS == "windows" {
		return filepath.Join(l.Bin, binName+".bat")
	}
	return filepath.Join(l.Bin, binName)
}
