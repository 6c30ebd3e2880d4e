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

	"github.com/lumen-oss/lux/internal/log"
	"github.com/lumen-oss/lux/manifest"
	"github.com/lumen-oss/lux/rockspec"
)

// LuarocksArch is the platform/arch tag used in binary rock filenames,
// e.g. "linux-x86_64", "macosx-arm64".
var LuarocksArch = "linux-x86_64"

// FetchSrcRock downloads pkg's src.rock (a zip containing a rockspec
// and an archive of sources) and unpacks it into destDir. No checksum of
// the downloaded rock is checked. The in-archive rockspec is
// authoritative.
func (f *Fetcher) FetchSrcRock(pkg *manifest.RemotePackage, destDir string, logger *log.Logger) (*RemoteRockDownload, error) {
	data, err := f.download(pkg.SourceURL)
	if err != nil {
		return nil, errors.Wrapf(err, "downloading src.rock for %s", pkg.Spec.Name)
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errors.Wrap(err, "opening src.rock")
	}

	var rockspecText string
	var archiveFile *zip.File
	for _, zf := range zr.File {
		switch {
		case strings.HasSuffix(zf.Name, ".rockspec"):
			rc, err := zf.Open()
			if err != nil {
				return nil, err
			}
			b, err := io.ReadAll(rc)
			rc.Close()
			if err != nil {
				return nil, err
			}
			rockspecText = string(b)
		case isArchiveName(zf.Name):
			archiveFile = zf
		}
	}
	if rockspecText == "" {
		return nil, errors.Errorf("src.rock for %s contains no rockspec", pkg.Spec.Name)
	}

	rs, err := rockspec.ParseRockspec(rockspecText)
	if err != nil {
		return nil, errors.Wrap(err, "parsing src.rock rockspec")
	}

	if archiveFile != nil {
		rc, err := archiveFile.Open()
		if err != nil {
			return nil, err
		}
		archiveData, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, err
		}
		if err := Unpack(archiveData, destDir, strings.TrimSuffix(filepath.Base(archiveFile.Name), filepath.Ext(archiveFile.Name)), logger); err != nil {
			return nil, err
		}
	}

	return &RemoteRockDownload{Rockspec: rs, Kind: manifest.TypeSrc, BuildDir: destDir}, nil
}

// FetchBinaryRock probes "<name>-<ver>.<arch>.rock" then
// "<name>-<ver>.all.rock", downloads the first hit, and unpacks it.
func (f *Fetcher) FetchBinaryRock(server string, spec rockspec.PackageSpec, destDir string, logger *log.Logger) (*RemoteRockDownload, error) {
	candidates := []string{
		server + "/" + spec.Name.String() + "-" + spec.Version.String() + "." + LuarocksArch + ".rock",
		server + "/" + spec.Name.String() + "-" + spec.Version.String() + ".all.rock",
	}

	var lastErr error
	for _, url := range candidates {
		data, err := f.download(url)
		if err != nil {
			lastErr = err
			continue
		}
		if err := Unpack(data, destDir, spec.Name.String()+"-"+spec.Version.String(), logger); err != nil {
			return nil, err
		}
		return &RemoteRockDownload{Kind: manifest.TypeBinary, BuildDir: destDir}, nil
	}
	return nil, errors.Wrap(lastErr, "no binary rock found")
}

func isArchiveName(name string) bool {
	for _, ext := range []string{".tar.gz", ".tgz", ".tar.bz2", ".tar.xz", ".zip"} {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

func (f *Fetcher) download(url string) ([]byte, error) {
	if path, ok := fileURLPath(url); ok {
		return os.ReadFile(path)
	}
	resp, err := withRetry(4, func() (*http.Response, error) { return f.Client.Get(url) })
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("GET %s returned %d", url, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
