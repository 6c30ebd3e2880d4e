package lockfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lumen-oss/lux/tree"
)

func TestWriteGuardCommit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lux.lock")

	guard, err := OpenWritable(path)
	if err != nil {
		t.Fatalf("OpenWritable: %v", err)
	}
	pkg := testPackage(t, "foo", "1.0.0-1", "", false, tree.KindEntry)
	guard.Lockfile().AddEntrypoint(Regular, pkg)
	if err := guard.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("lockfile not written: %v", err)
	}

	again, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := again.Get(Regular, pkg.ID); !ok {
		t.Errorf("committed package missing on re-open")
	}
	if !again.IsEntrypoint(Regular, pkg.ID) {
		t.Errorf("entrypoint status missing on re-open")
	}
}

func TestWriteGuardDiscard(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lux.lock")

	guard, err := OpenWritable(path)
	if err != nil {
		t.Fatal(err)
	}
	guard.Lockfile().Add(Regular, testPackage(t, "foo", "1.0.0-1", "", false, tree.KindDep))
	if err := guard.Discard(); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("Discard should not write the lockfile; stat err = %v", err)
	}

	// The advisory lock must be free again.
	guard2, err := OpenWritable(path)
	if err != nil {
		t.Fatalf("re-acquiring after Discard: %v", err)
	}
	guard2.Discard()
}
