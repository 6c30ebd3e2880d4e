package tree

import (
	"testing"

	"github.com/lumen-oss/lux/rockspec"
)

func mustReq(t *testing.T, s string) rockspec.PackageReq {
	t.Helper()
	req, err := rockspec.ParsePackageReq(s)
	if err != nil {
		t.Fatal(err)
	}
	return req
}

func TestMatchRocks(t *testing.T) {
	rocks := []LocalPackage{
		testPackage(t, "foo", "1.0.0-1", "", false, KindDep),
		testPackage(t, "foo", "2.0.0-1", "", false, KindDep),
		testPackage(t, "foo", "2.0.0-1", ">= 2.0", false, KindEntry),
		testPackage(t, "bar", "1.0.0-1", "", false, KindEntry),
	}

	if got := MatchRocks(rocks, mustReq(t, "quux")); got.Kind != NotFound {
		t.Errorf("quux: kind = %d", got.Kind)
	}

	if got := MatchRocks(rocks, mustReq(t, "bar")); got.Kind != Single || got.Single.Spec.Name != "bar" {
		t.Errorf("bar: %+v", got)
	}

	got := MatchRocks(rocks, mustReq(t, "foo"))
	if got.Kind != Many || len(got.Many) != 3 {
		t.Fatalf("foo: kind = %d, many = %d", got.Kind, len(got.Many))
	}
	// Highest version first, entrypoint breaking the tie.
	if got.Many[0].Spec.Version.String() != "2.0.0-1" || got.Many[0].Kind != KindEntry {
		t.Errorf("foo[0] = %s %s (%s)", got.Many[0].Spec.Name, got.Many[0].Spec.Version, got.Many[0].Kind)
	}
	if got.Single.ID != got.Many[0].ID {
		t.Errorf("Single should mirror the best of Many")
	}

	constrained := MatchRocks(rocks, mustReq(t, "foo < 2.0"))
	if constrained.Kind != Single || constrained.Single.Spec.Version.String() != "1.0.0-1" {
		t.Errorf("foo < 2.0: %+v", constrained)
	}
}
