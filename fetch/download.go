// Package fetch materializes rockspec text and source bytes from
// manifest archives, git URLs, plain URLs, vendored directories, or
// in-memory rockspec text, with integrity verification.
package fetch

import (
	"archive/zip"
	"bytes"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/lumen-oss/lux/manifest"
	"github.com/lumen-oss/lux/rockspec"
)

// RemoteRockDownload is the shared output of every fetch mode.
type RemoteRockDownload struct {
	Rockspec *rockspec.Rockspec
	Kind     manifest.RockType
	// BuildDir is set once source bytes have been unpacked (src.rock,
	// URL, git, vendor). Empty for a rockspec-only fetch.
	BuildDir string
}

// Fetcher drives every fetch mode, sharing an HTTP client and a scratch
// directory root for unpacked sources.
type Fetcher struct {
	Client     *http.Client
	ScratchDir string
}

// NewFetcher builds a Fetcher that unpacks sources under scratchDir.
func NewFetcher(scratchDir string) *Fetcher {
	return &Fetcher{Client: http.DefaultClient, ScratchDir: scratchDir}
}

// FetchRockspec materializes a rockspec from a RemotePackage: parsing
// RockspecContent directly (Luanox), extracting the in-archive rockspec
// of a src.rock, scanning a vendored source directory, or downloading
// SourceURL as plain rockspec text (Luarocks manifest, vendor rockspec
// file) 1.
func (f *Fetcher) FetchRockspec(pkg *manifest.RemotePackage) (*rockspec.Rockspec, error) {
	if pkg.RockspecContent != "" {
		return rockspec.ParseRockspec(pkg.RockspecContent)
	}

	if path, ok := fileURLPath(pkg.SourceURL); ok {
		if fi, err := os.Stat(path); err == nil && fi.IsDir() {
			return rockspecFromDir(path, pkg.Spec.Name.String())
		}
	}

	if pkg.Kind == manifest.TypeSrc || pkg.Kind == manifest.TypeBinary {
		data, err := f.download(pkg.SourceURL)
		if err != nil {
			return nil, errors.Wrapf(err, "downloading rock for %s", pkg.Spec.Name)
		}
		text, err := rockspecTextFromRock(data)
		if err != nil {
			return nil, errors.Wrapf(err, "extracting rockspec for %s", pkg.Spec.Name)
		}
		return rockspec.ParseRockspec(text)
	}

	text, err := f.getText(pkg.SourceURL)
	if err != nil {
		return nil, errors.Wrapf(err, "fetching rockspec for %s", pkg.Spec.Name)
	}
	return rockspec.ParseRockspec(text)
}

// rockspecFromDir parses the first *.rockspec, in file-name order, at the
// top of a vendored source directory. No rockspec means an error.
func rockspecFromDir(dir, pkgName string) (*rockspec.Rockspec, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".rockspec") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		return rockspec.ParseRockspec(string(data))
	}
	return nil, errors.Errorf("no rockspec in vendored source dir for %s", pkgName)
}

// rockspecTextFromRock extracts the rockspec entry of a packed rock zip.
func rockspecTextFromRock(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", errors.Wrap(err, "opening packed rock")
	}
	for _, zf := range zr.File {
		if !strings.HasSuffix(zf.Name, ".rockspec") {
			continue
		}
		rc, err := zf.Open()
		if err != nil {
			return "", err
		}
		b, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	return "", errors.New("packed rock contains no rockspec")
}

func (f *Fetcher) getText(url string) (string, error) {
	if path, ok := fileURLPath(url); ok {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	resp, err := f.Client.Get(url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("GET %s returned %d", url, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
