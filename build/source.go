package build

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/lumen-oss/lux/internal/treecopy"
	"github.com/lumen-oss/lux/rockspec"
)

// sourceBackend handles a package installed directly from a project tree
// or vendor source 7: if an inner rockspec is
// present it is re-parsed and dispatched to the backend it names;
// otherwise the non-doc subdirectories of the source are mirrored as-is.
type sourceBackend struct{}

func (sourceBackend) Run(args Args, rs *rockspec.Rockspec, view rockspec.PlatformView) (Info, error) {
	innerPath, err := findInnerRockspec(args.BuildDir)
	if err != nil {
		return Info{}, errors.Wrap(err, "scanning for inner rockspec")
	}
	if innerPath != "" {
		text, err := os.ReadFile(innerPath)
		if err != nil {
			return Info{}, errors.Wrapf(err, "reading inner rockspec %s", innerPath)
		}
		inner, err := rockspec.ParseRockspec(string(text))
		if err != nil {
			return Info{}, errors.Wrapf(err, "parsing inner rockspec %s", innerPath)
		}
		if inner.Build.Type == rockspec.BackendSource {
			// An inner rockspec naming the source backend again would
			// recurse forever; fall through to the plain mirror.
			return Info{}, mirrorNonDoc(args, args.BuildDir)
		}
		backend, err := Dispatch(inner.Build.Type)
		if err != nil {
			return Info{}, err
		}
		innerArgs := args
		innerArgs.BuildDir = filepath.Dir(innerPath)
		return backend.Run(innerArgs, inner, inner.CurrentPlatform(args.Platform))
	}

	return Info{}, mirrorNonDoc(args, args.BuildDir)
}

// findInnerRockspec returns the path of the single *.rockspec file at the
// top level of dir, or "" when there is none. Multiple rockspecs are
// ambiguous and treated as none.
func findInnerRockspec(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	var found string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".rockspec") {
			continue
		}
		if found != "" {
			return "", nil
		}
		found = filepath.Join(dir, e.Name())
	}
	return found, nil
}

func mirrorNonDoc(args Args, src string) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, e := range entries {
		base := e.Name()
		if base == "doc" || base == "docs" {
			continue
		}
		if !e.IsDir() {
			continue
		}
		if err := treecopy.CopyDir(filepath.Join(src, base), filepath.Join(args.Output.EtcDir(), base)); err != nil {
			return errors.Wrapf(err, "mirroring %s", base)
		}
	}
	return nil
}
