package rockspec

import "testing"

func TestClassifySource(t *testing.T) {
	cases := []struct {
		url     string
		kind    SourceKind
		wantURL string
		wantErr bool
	}{
		{url: "git+https://github.com/x/y.git", kind: SourceGit, wantURL: "https://github.com/x/y.git"},
		{url: "git://github.com/x/y.git", kind: SourceGit, wantURL: "git://github.com/x/y.git"},
		{url: "https://example.com/x-1.0.tar.gz", kind: SourceURL, wantURL: "https://example.com/x-1.0.tar.gz"},
		{url: "http://example.com/x.zip", kind: SourceURL, wantURL: "http://example.com/x.zip"},
		{url: "file:///tmp/x", kind: SourceFile, wantURL: "/tmp/x"},
		{url: "file:/tmp/x", kind: SourceFile, wantURL: "/tmp/x"},
		{url: "…stub", kind: SourceURL, wantURL: "…stub"},
		{url: "", wantErr: true},
	}

	for _, c := range cases {
		spec, err := ClassifySource(c.url, "", "", "", "", "", "")
		if c.wantErr {
			if err == nil {
				t.Errorf("ClassifySource(%q): expected error", c.url)
			}
			continue
		}
		if err != nil {
			t.Errorf("ClassifySource(%q): %v", c.url, err)
			continue
		}
		if spec.Kind != c.kind {
			t.Errorf("ClassifySource(%q): kind = %d, want %d", c.url, spec.Kind, c.kind)
		}
		if spec.URL != c.wantURL {
			t.Errorf("ClassifySource(%q): url = %q, want %q", c.url, spec.URL, c.wantURL)
		}
	}
}

func TestClassifySourceCheckoutRef(t *testing.T) {
	cases := []struct {
		tag, branch, commit string
		want                string
	}{
		{commit: "abc123", tag: "v1.0", branch: "main", want: "abc123"},
		{tag: "v1.0", branch: "main", want: "v1.0"},
		{branch: "main", want: "main"},
		{want: ""},
	}

	for _, c := range cases {
		spec, err := ClassifySource("git+https://github.com/x/y.git", c.tag, c.branch, c.commit, "", "", "")
		if err != nil {
			t.Fatal(err)
		}
		if spec.CheckoutRef != c.want {
			t.Errorf("tag=%q branch=%q commit=%q: ref = %q, want %q", c.tag, c.branch, c.commit, spec.CheckoutRef, c.want)
		}
	}
}
