// Package probe implements external C dependency probing: given a map
// of name -> {header?, library?}, locate each dependency by searching,
// in order, a user-configured prefix, pkg-config, then a set of
// standard system prefixes.
package probe

import (
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/karrick/godirwalk"
	"github.com/pkg/errors"
)

// Spec is one external dependency to probe for.
type Spec struct {
	Name    string
	Header  string // e.g. "zlib.h"
	Library string // e.g. "z" (for libz.so / libz.dylib / z.dll)
}

// Result is what backend argument substitution consumes for one probed
// dependency.
type Result struct {
	IncludeDirs []string
	LibDirs     []string
	Libs        []string
}

// StandardPrefixes are searched, in order, after pkg-config fails to
// resolve a dependency - the conventional Unix install locations plus
// whatever Homebrew uses on macOS.
var StandardPrefixes = []string{
	"/usr/local",
	"/usr",
	"/opt/homebrew",
	"/opt/local",
}

// Prober locates external C dependencies for one build invocation.
type Prober struct {
	// UserPrefixes are consulted before pkg-config and the standard
	// prefixes "user-configured prefix" first.
	UserPrefixes []string
	// PkgConfig overrides the pkg-config binary name, mainly for tests.
	PkgConfig string
}

// NewProber returns a Prober with the default pkg-config binary name.
func NewProber(userPrefixes ...string) *Prober {
	return &Prober{UserPrefixes: userPrefixes, PkgConfig: "pkg-config"}
}

// NotFoundError is returned when no candidate location satisfies a Spec.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return "external dependency not found: " + e.Name
}

// Probe resolves every spec in specs into a name -> Result map.
func (p *Prober) Probe(specs []Spec) (map[string]Result, error) {
	out := make(map[string]Result, len(specs))
	for _, spec := range specs {
		res, err := p.probeOne(spec)
		if err != nil {
			return nil, err
		}
		out[spec.Name] = res
	}
	return out, nil
}

func (p *Prober) probeOne(spec Spec) (Result, error) {
	for _, prefix := range p.UserPrefixes {
		if res, ok := p.searchPrefix(prefix, spec); ok {
			return res, nil
		}
	}

	if res, ok := p.pkgConfig(spec); ok {
		return res, nil
	}

	for _, prefix := range StandardPrefixes {
		if res, ok := p.searchPrefix(prefix, spec); ok {
			return res, nil
		}
	}

	return Result{}, errors.WithStack(&NotFoundError{Name: spec.Name})
}

// pkgConfig shells out to `pkg-config --cflags --libs <name>` and parses
// the -I/-L/-l flags out of its output.
func (p *Prober) pkgConfig(spec Spec) (Result, bool) {
	bin := p.PkgConfig
	if bin == "" {
		bin = "pkg-config"
	}
	cmd := exec.Command(bin, "--cflags", "--libs", spec.Name)
	out, err := cmd.Output()
	if err != nil {
		return Result{}, false
	}
	return parsePkgConfigFlags(string(out)), true
}

func parsePkgConfigFlags(flags string) Result {
	var res Result
	for _, tok := range strings.Fields(flags) {
		switch {
		case strings.HasPrefix(tok, "-I"):
			res.IncludeDirs = append(res.IncludeDirs, tok[2:])
		case strings.HasPrefix(tok, "-L"):
			res.LibDirs = append(res.LibDirs, tok[2:])
		case strings.HasPrefix(tok, "-l"):
			res.Libs = append(res.Libs, tok[2:])
		}
	}
	return res
}

// searchPrefix checks whether prefix/include holds spec.Header and
// prefix/lib (or prefix/lib64) holds a library file matching
// spec.Library, walking each directory with godirwalk.
func (p *Prober) searchPrefix(prefix string, spec Spec) (Result, bool) {
	var res Result
	found := spec.Header == "" && spec.Library == ""

	incDir := filepath.Join(prefix, "include")
	if spec.Header != "" {
		if ok := findFile(incDir, spec.Header); ok {
			res.IncludeDirs = append(res.IncludeDirs, incDir)
			found = true
		} else {
			return Result{}, false
		}
	}

	for _, libSub := range []string{"lib", "lib64"} {
		libDir := filepath.Join(prefix, libSub)
		if spec.Library == "" {
			continue
		}
		if ok := findLibrary(libDir, spec.Library); ok {
			res.LibDirs = append(res.LibDirs, libDir)
			res.Libs = append(res.Libs, spec.Library)
			found = true
			break
		}
	}
	if spec.Library != "" && len(res.Libs) == 0 {
		return Result{}, false
	}

	return res, found
}

func findFile(dir, name string) bool {
	found := false
	_ = godirwalk.Walk(dir, &godirwalk.Options{
		Unsorted: true,
		Callback: func(path string, de *godirwalk.Dirent) error {
			if !de.IsDir() && filepath.Base(path) == name {
				found = true
				return filepath.SkipDir
			}
			return nil
		},
		ErrorCallback: func(string, error) godirwalk.ErrorAction {
			return godirwalk.SkipNode
		},
	})
	return found
}

func findLibrary(dir, name string) bool {
	candidates := []string{
		"lib" + name + ".so", "lib" + name + ".a",
		"lib" + name + ".dylib", name + ".dll", name + ".lib",
	}
	found := false
	_ = godirwalk.Walk(dir, &godirwalk.Options{
		Unsorted: true,
		Callback: func(path string, de *godirwalk.Dirent) error {
			if de.IsDir() {
				return nil
			}
			base := filepath.Base(path)
			for _, c := range candidates {
				if base == c || strings.HasPrefix(base, c+".") {
					found = true
					return filepath.SkipDir
				}
			}
			return nil
		},
		ErrorCallback: func(string, error) godirwalk.ErrorAction {
			return godirwalk.SkipNode
		},
	})
	return found
}
