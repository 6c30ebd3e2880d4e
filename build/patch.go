package build

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// ApplyPatches writes each named unified diff to a temp file and applies
// it to dir via the `patch` tool, before a backend runs.
func ApplyPatches(dir string, patches map[string]string) error {
	names := make([]string, 0, len(patches))
	for name := range patches {
		names = append(names, name)
	}
	sortStrings(names)

	for _, name := range names {
		diff := patches[name]
		f, err := os.CreateTemp("", "lux-patch-*.diff")
		if err != nil {
			return errors.Wrapf(err, "applying patch %s", name)
		}
		path := f.Name()
		_, writeErr := f.WriteString(diff)
		closeErr := f.Close()
		defer os.Remove(path)
		if writeErr != nil {
			return errors.Wrapf(writeErr, "writing patch %s", name)
		}
		if closeErr != nil {
			return errors.Wrapf(closeErr, "writing patch %s", name)
		}

		_, _, err = runTool(context.Background(), "", dir, "patch", nil, "-p1", "-i", path)
		if err != nil {
			return errors.Wrapf(err, "applying patch %s", name)
		}
	}
	return nil
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

var _ = filepath.Join
