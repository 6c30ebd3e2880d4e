package build

import (
	"context"

	"github.com/pkg/errors"

	"github.com/lumen-oss/lux/rockspec"
)

// makeBackend runs the configured make binary with the rockspec's
// variables substituted as command-line VAR=value arguments.
type makeBackend struct{}

func (makeBackend) Run(args Args, rs *rockspec.Rockspec, view rockspec.PlatformView) (Info, error) {
	makeBin := view.Build.Variables["MAKE"]
	if makeBin == "" {
		makeBin = "make"
	}

	invocArgs := variableArgs(view.Build.Variables, "MAKE")
	if target, ok := view.Build.BuildPass["target"]; ok && target != "" {
		invocArgs = append([]string{target}, invocArgs...)
	}

	_, _, err := runTool(context.Background(), rockspec.BackendMake, args.BuildDir, makeBin, nil, invocArgs...)
	if err != nil {
		return Info{}, errors.Wrap(err, "running make")
	}

	if installTarget := view.Build.BuildPass["install_target"]; installTarget != "" {
		installArgs := append([]string{installTarget}, variableArgs(view.Build.Variables, "MAKE")...)
		if _, _, err := runTool(context.Background(), rockspec.BackendMake, args.BuildDir, makeBin, nil, installArgs...); err != nil {
			return Info{}, errors.Wrap(err, "running make install")
		}
	}

	return Info{}, nil
}

// variableArgs turns a rockspec build.variables map into sorted
// "KEY=value" arguments, skipping the named keys that are consumed
// elsewhere (e.g. the MAKE binary name itself).
func variableArgs(vars map[string]string, skip ...string) []string {
	skipSet := make(map[string]bool, len(skip))
	for _, k := range skip {
		skipSet[k] = true
	}
	keys := make([]string, 0, len(vars))
	for k := range vars {
		if !skipSet[k] {
			keys = append(keys, k)
		}
	}
	sortStrings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+vars[k])
	}
	return out
}
