package fetch

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/vcs"
	"github.com/pkg/errors"

	"github.com/lumen-oss/lux/internal/log"
	"github.com/lumen-oss/lux/internal/treecopy"
	"github.com/lumen-oss/lux/rockspec"
)

// FetchSource materializes src into destDir: git clone+checkout, URL
// download+unpack, file copy, or vendored directory copy.
// sourceURLOverride, when non-empty, takes priority over src.URL - a
// lockfile-recorded source_url wins over the rockspec's default URL.
func (f *Fetcher) FetchSource(src rockspec.SourceSpec, destDir, sourceURLOverride string, logger *log.Logger) error {
	url := src.URL
	if sourceURLOverride != "" {
		url = sourceURLOverride
	}

	switch src.Kind {
	case rockspec.SourceGit:
		return f.fetchGit(url, src.CheckoutRef, destDir)
	case rockspec.SourceFile:
		return f.fetchFileOrVendor(url, destDir)
	case rockspec.SourceURL:
		return f.fetchURL(url, destDir, src.Integrity, src.ArchiveName, logger)
	default:
		return errors.Errorf("unrecognized source kind %d", src.Kind)
	}
}

// fetchGit clones url into destDir and checks out ref. An earlier clone
// is not reused.
func (f *Fetcher) fetchGit(url, ref, destDir string) error {
	if err := os.MkdirAll(filepath.Dir(destDir), 0o755); err != nil {
		return err
	}
	repo, err := vcs.NewGitRepo(url, destDir)
	if err != nil {
		return errors.Wrapf(err, "initializing git repo for %s", url)
	}
	if err := repo.Get(); err != nil {
		return errors.Wrapf(err, "cloning %s", url)
	}
	if ref != "" {
		if err := repo.UpdateVersion(ref); err != nil {
			return errors.Wrapf(err, "checking out %s@%s", url, ref)
		}
	}
	return nil
}

func (f *Fetcher) fetchURL(url, destDir, integrity, archiveName string, logger *log.Logger) error {
	resp, err := f.Client.Get(url)
	if err != nil {
		return errors.Wrapf(err, "downloading %s", url)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("GET %s returned %d", url, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if err := VerifyIntegrity(data, integrity); err != nil {
		return err
	}

	stem := archiveName
	if stem == "" {
		stem = strings.TrimSuffix(filepath.Base(url), filepath.Ext(url))
	}
	return Unpack(data, destDir, stem, logger)
}

func (f *Fetcher) fetchFileOrVendor(pathOrURL, destDir string) error {
	path := pathOrURL
	if p, ok := fileURLPath(pathOrURL); ok {
		path = p
	}

	isDir, err := treecopy.IsDir(path)
	if err != nil {
		return errors.Wrapf(err, "stat %s", path)
	}
	if isDir {
		return treecopy.CopyDir(path, destDir)
	}
	return treecopy.CopyFile(path, filepath.Join(destDir, filepath.Base(path)))
}

func fileURLPath(url string) (string, bool) {
	if strings.HasPrefix(url, "file://") {
		return strings.TrimPrefix(url, "file://"), true
	}
	if strings.HasPrefix(url, "file:") {
		return strings.TrimPrefix(url, "file:"), true
	}
	return "", false
}
