package build

import (
	"context"
	"runtime"

	"github.com/pkg/errors"

	"github.com/lumen-oss/lux/rockspec"
)

// commandBackend executes a rockspec-provided shell command in the
// source directory 4.
type commandBackend struct{}

func (commandBackend) Run(args Args, rs *rockspec.Rockspec, view rockspec.PlatformView) (Info, error) {
	if view.Build.Command == "" {
		return Info{}, errors.New("command backend requires build.command")
	}

	shell, flag := "/bin/sh", "-c"
	if runtime.GOOS == "windows" {
		shell, flag = "cmd", "/C"
	}

	_, _, err := runTool(context.Background(), rockspec.BackendCommand, args.BuildDir, shell, nil, flag, view.Build.Command)
	if err != nil {
		return Info{}, errors.Wrap(err, "running build.command")
	}
	return Info{}, nil
}
