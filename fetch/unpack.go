package fetch

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/lumen-oss/lux/internal/log"
)

// Unpack extracts archive bytes into destDir, auto-detecting zip vs
// tar(.gz|.bz2) by content, then flattens a single-root archive into
// destDir directly. Zero or multiple top-level directories use the
// archive root as-is, logging a diagnostic rather than silently
// guessing.
func Unpack(data []byte, destDir string, archiveStem string, logger *log.Logger) error {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return errors.Wrapf(err, "creating %s", destDir)
	}

	scratch := destDir + ".unpack-tmp"
	if err := os.RemoveAll(scratch); err != nil {
		return err
	}
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		return err
	}
	defer os.RemoveAll(scratch)

	switch {
	case len(data) >= 4 && string(data[:2]) == "PK":
		if err := unzip(data, scratch); err != nil {
			return errors.Wrap(err, "unzipping archive")
		}
	case len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b:
		if err := untar(gzipReader(data), scratch); err != nil {
			return errors.Wrap(err, "un-gzipping archive")
		}
	case len(data) >= 3 && string(data[:3]) == "BZh":
		if err := untar(bzip2.NewReader(bytes.NewReader(data)), scratch); err != nil {
			return errors.Wrap(err, "un-bzip2-ing archive")
		}
	default:
		if err := untar(bytes.NewReader(data), scratch); err != nil {
			return errors.Wrap(err, "untarring archive")
		}
	}

	return flattenInto(scratch, destDir, archiveStem, logger)
}

func gzipReader(data []byte) io.Reader {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return bytes.NewReader(nil)
	}
	return r
}

func unzip(data []byte, destDir string) error {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return err
	}
	for _, f := range zr.File {
		target := filepath.Join(destDir, f.Name)
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		rc, err := f.Open()
		if err != nil {
			return err
		}
		out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, f.Mode())
		if err != nil {
			rc.Close()
			return err
		}
		_, copyErr := io.Copy(out, rc)
		rc.Close()
		out.Close()
		if copyErr != nil {
			return copyErr
		}
	}
	return nil
}

func untar(r io.Reader, destDir string) error {
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		target := filepath.Join(destDir, hdr.Name)
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode))
			if err != nil {
				return err
			}
			_, copyErr := io.Copy(out, tr)
			out.Close()
			if copyErr != nil {
				return copyErr
			}
		}
	}
}

// flattenInto moves scratch's contents into destDir, collapsing a
// single top-level directory whose name is a prefix of archiveStem.
// Zero or multiple top-level entries use scratch itself as the build
// dir.
func flattenInto(scratch, destDir, archiveStem string, logger *log.Logger) error {
	entries, err := os.ReadDir(scratch)
	if err != nil {
		return err
	}

	if len(entries) == 1 && entries[0].IsDir() && strings.HasPrefix(archiveStem, entries[0].Name()) {
		return moveContents(filepath.Join(scratch, entries[0].Name()), destDir)
	}

	if logger != nil {
		if len(entries) != 1 {
			logger.Warnf("archive %s unpacked to %d top-level entries; using archive root as build dir", archiveStem, len(entries))
		}
	}
	return moveContents(scratch, destDir)
}

func moveContents(src, dest string) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := os.Rename(filepath.Join(src, e.Name()), filepath.Join(dest, e.Name())); err != nil {
			return err
		}
	}
	return nil
}
