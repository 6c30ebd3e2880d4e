package build

import (
	"bytes"
	"context"
	"os/exec"

	"github.com/lumen-oss/lux/rockspec"
)

// runTool executes name with args in dir, capturing stdout/stderr
// separately and returning a *BuildError on non-zero exit.
func runTool(ctx context.Context, backend rockspec.BackendType, dir, name string, env []string, args ...string) (stdout, stderr string, err error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	if env != nil {
		cmd.Env = env
	}
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	runErr := cmd.Run()
	stdout, stderr = outBuf.String(), errBuf.String()
	if runErr != nil {
		return stdout, stderr, &BuildError{Backend: backend, Stdout: stdout, Stderr: stderr, Cause: runErr}
	}
	return stdout, stderr, nil
}
