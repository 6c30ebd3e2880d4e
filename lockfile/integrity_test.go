package lockfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lumen-oss/lux/internal/treecopy"
	"github.com/lumen-oss/lux/tree"
)

func TestValidateIntegrity(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "init.lua"), []byte("return {}"), 0o644); err != nil {
		t.Fatal(err)
	}
	layout := tree.RockLayout{Root: root, Kind: tree.KindEntry}

	pkg := testPackage(t, "foo", "1.0.0-1", "", false, tree.KindEntry)
	hash, err := treecopy.HashTree(root)
	if err != nil {
		t.Fatal(err)
	}
	pkg.Hashes.Source = hash

	if err := ValidateIntegrity(layout, pkg); err != nil {
		t.Errorf("matching hash should validate: %v", err)
	}

	// No recorded hash means nothing to validate.
	unhashed := pkg
	unhashed.Hashes.Source = ""
	if err := ValidateIntegrity(layout, unhashed); err != nil {
		t.Errorf("empty hash should validate: %v", err)
	}

	// Tamper with the tree and the recorded hash no longer matches.
	if err := os.WriteFile(filepath.Join(root, "init.lua"), []byte("return 666"), 0o644); err != nil {
		t.Fatal(err)
	}
	err = ValidateIntegrity(layout, pkg)
	if err == nil {
		t.Fatalf("tampered tree should fail validation")
	}
	mismatch, ok := err.(*IntegrityMismatch)
	if !ok {
		t.Fatalf("error type = %T", err)
	}
	if mismatch.Package != "foo" || mismatch.Field != "source" {
		t.Errorf("mismatch = %+v", mismatch)
	}
}
