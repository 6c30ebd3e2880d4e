package rockspec

import "testing"

func TestParsePackageVersion(t *testing.T) {
	cases := []struct {
		in      string
		wantErr bool
		dev     bool
	}{
		{in: "1.0.0-1"},
		{in: "2.3"},
		{in: "5"},
		{in: "0.10.0-2"},
		{in: "scm", dev: true},
		{in: "dev", dev: true},
		{in: "scm-1", dev: true},
		{in: "", wantErr: true},
		{in: "abc", wantErr: true},
	}

	for _, c := range cases {
		v, err := ParsePackageVersion(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("ParsePackageVersion(%q): expected error", c.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParsePackageVersion(%q): %v", c.in, err)
			continue
		}
		if v.IsDev() != c.dev {
			t.Errorf("ParsePackageVersion(%q): IsDev = %v, want %v", c.in, v.IsDev(), c.dev)
		}
		if v.String() != c.in {
			t.Errorf("ParsePackageVersion(%q): String = %q", c.in, v.String())
		}
	}
}

func TestPackageVersionCompare(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"1.0.0-1", "1.0.0-1", 0},
		{"1.0", "1.0.0", 0},
		{"1.0.0-1", "1.0.0-2", -1},
		{"1.0.0-2", "1.0.0-1", 1},
		{"2.0", "1.9.9", 1},
		{"1.9.9", "2.0", -1},
		{"0.10.0", "0.9.0", 1},
		{"scm", "0.0.1", -1},
		{"1.0.0", "scm", 1},
		{"scm", "dev", 0},
	}

	for _, c := range cases {
		a := mustVersion(t, c.a)
		b := mustVersion(t, c.b)
		if got := a.Compare(b); got != c.want {
			t.Errorf("Compare(%q, %q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func mustVersion(t *testing.T, s string) PackageVersion {
	t.Helper()
	v, err := ParsePackageVersion(s)
	if err != nil {
		t.Fatalf("ParsePackageVersion(%q): %v", s, err)
	}
	return v
}
