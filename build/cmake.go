package build

import (
	"context"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/lumen-oss/lux/rockspec"
)

// cmakeBackend runs `cmake -S <src> -B <build> <defines>` then
// `cmake --build <build>`, then an optional configured install step.
type cmakeBackend struct{}

func (cmakeBackend) Run(args Args, rs *rockspec.Rockspec, view rockspec.PlatformView) (Info, error) {
	buildDir := filepath.Join(args.BuildDir, "lux-cmake-build")

	configureArgs := []string{"-S", args.BuildDir, "-B", buildDir}
	configureArgs = append(configureArgs, defineArgs(view.Build.Variables)...)
	if _, _, err := runTool(context.Background(), rockspec.BackendCMake, args.BuildDir, "cmake", nil, configureArgs...); err != nil {
		return Info{}, errors.Wrap(err, "running cmake configure")
	}

	if _, _, err := runTool(context.Background(), rockspec.BackendCMake, args.BuildDir, "cmake", nil, "--build", buildDir); err != nil {
		return Info{}, errors.Wrap(err, "running cmake --build")
	}

	if installTarget, ok := view.Build.BuildPass["install_target"]; ok && installTarget != "" {
		if _, _, err := runTool(context.Background(), rockspec.BackendCMake, args.BuildDir, "cmake", nil, "--build", buildDir, "--target", installTarget); err != nil {
			return Info{}, errors.Wrap(err, "running cmake install target")
		}
	}

	return Info{}, nil
}

// defineArgs turns a rockspec build.variables map into sorted
// "-DKEY=value" cmake defines.
func defineArgs(vars map[string]string) []string {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sortStrings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, "-D"+k+"="+vars[k])
	}
	return out
}
