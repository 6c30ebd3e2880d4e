package rockspec

import "testing"

func TestParsePackageReq(t *testing.T) {
	cases := []struct {
		in      string
		wantErr bool
		name    string
		req     string
	}{
		{in: "foo", name: "foo", req: ""},
		{in: "Foo", name: "foo", req: ""},
		{in: "foo@1.0", name: "foo", req: "== 1.0"},
		{in: "foo >= 1.0", name: "foo", req: ">= 1.0"},
		{in: "foo >= 1.0, < 2.0", name: "foo", req: ">= 1.0, < 2.0"},
		{in: "lua-cjson ~> 2.1", name: "lua-cjson", req: "~> 2.1"},
		{in: "", wantErr: true},
		{in: "1.0.0", wantErr: true},
		{in: "@1.0", wantErr: true},
	}

	for _, c := range cases {
		req, err := ParsePackageReq(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("ParsePackageReq(%q): expected error", c.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParsePackageReq(%q): %v", c.in, err)
			continue
		}
		if req.Name.String() != c.name {
			t.Errorf("ParsePackageReq(%q): name = %q, want %q", c.in, req.Name, c.name)
		}
		if req.VersionReq.String() != c.req {
			t.Errorf("ParsePackageReq(%q): req = %q, want %q", c.in, req.VersionReq, c.req)
		}
	}
}

func TestPackageSpecSatisfies(t *testing.T) {
	spec := NewPackageSpec("foo", mustVersion(t, "1.5.0-1"))

	for _, c := range []struct {
		req  string
		want bool
	}{
		{"foo", true},
		{"foo >= 1.0", true},
		{"foo >= 2.0", false},
		{"bar >= 1.0", false},
	} {
		req, err := ParsePackageReq(c.req)
		if err != nil {
			t.Fatal(err)
		}
		if got := spec.Satisfies(req); got != c.want {
			t.Errorf("Satisfies(%q) = %v, want %v", c.req, got, c.want)
		}
	}
}

func TestToPackageReqRoundTrip(t *testing.T) {
	spec := NewPackageSpec("foo", mustVersion(t, "1.2.3-1"))
	req := spec.ToPackageReq()
	if !spec.Satisfies(req) {
		t.Errorf("spec does not satisfy its own ToPackageReq: %s", req)
	}
	v, ok := req.VersionReq.ExactVersion()
	if !ok || !v.Equal(spec.Version) {
		t.Errorf("ToPackageReq lost the exact version: %q, %v", v, ok)
	}
}
