package manifest

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/lumen-oss/lux/rockspec"
)

// LuarocksManifest is a Source backed by a remote luarocks-protocol
// server: manifest-<lua-ver>.zip for listings, and per-package rockspec/
// src.rock/binary.rock downloads.
type LuarocksManifest struct {
	Server     string // base URL, no trailing slash
	LuaVersion string
	CacheDir   string
	Client     *http.Client
}

// NewLuarocksManifest constructs a LuarocksManifest source.
func NewLuarocksManifest(server, luaVersion, cacheDir string) *LuarocksManifest {
	return &LuarocksManifest{Server: server, LuaVersion: luaVersion, CacheDir: cacheDir, Client: http.DefaultClient}
}

func (m *LuarocksManifest) Name() string { return m.Server }

// manifestEntry is one version's available rock types, as decoded from
// the manifest's Lua table.
type manifestEntry map[string][]RockType

func (m *LuarocksManifest) cachePath() string {
	safe := strings.NewReplacer("/", "_", ":", "_").Replace(m.Server)
	return filepath.Join(m.CacheDir, fmt.Sprintf("manifest-%s-%s.zip", safe, m.LuaVersion))
}

// fetchManifest downloads (or reuses the disk cache of) the manifest zip
// and decodes it into {name -> {version -> []RockType}}.
//
// Caching: the cached file's mtime is compared against the server's
// Last-Modified header via If-Modified-Since. A 304 response reuses
// the cache; any other non-200 falls back to the uncached/unzipped
// manifest URL.
func (m *LuarocksManifest) fetchManifest() (map[string]manifestEntry, error) {
	url := fmt.Sprintf("%s/manifest-%s.zip", m.Server, m.LuaVersion)
	cachePath := m.cachePath()

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "building manifest request")
	}
	if fi, err := os.Stat(cachePath); err == nil {
		req.Header.Set("If-Modified-Since", fi.ModTime().UTC().Format(http.TimeFormat))
	}

	resp, err := m.Client.Do(req)
	if err != nil {
		return m.fetchUnzippedFallback(cachePath, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotModified:
		data, err := os.ReadFile(cachePath)
		if err != nil {
			return nil, errors.Wrap(err, "reading cached manifest")
		}
		return decodeManifestZip(data)
	case http.StatusOK:
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, errors.Wrap(err, "downloading manifest")
		}
		if err := os.MkdirAll(m.CacheDir, 0o755); err == nil {
			_ = os.WriteFile(cachePath, data, 0o644)
		}
		return decodeManifestZip(data)
	default:
		return m.fetchUnzippedFallback(cachePath, errors.Errorf("manifest request returned %d", resp.StatusCode))
	}
}

// fetchUnzippedFallback retries against the plain "manifest-<ver>" URL
// (no .zip). If that also fails and a stale cache exists, the stale
// cache is used rather than failing the whole operation.
func (m *LuarocksManifest) fetchUnzippedFallback(cachePath string, cause error) (map[string]manifestEntry, error) {
	url := fmt.Sprintf("%s/manifest-%s", m.Server, m.LuaVersion)
	resp, err := m.Client.Get(url)
	if err == nil && resp.StatusCode == http.StatusOK {
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		if err == nil {
			return decodeManifestLua(data)
		}
	}
	if data, err := os.ReadFile(cachePath); err == nil {
		return decodeManifestZip(data)
	}
	return nil, errors.Wrap(cause, "fetching manifest")
}

func decodeManifestZip(data []byte) (map[string]manifestEntry, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errors.Wrap(err, "opening manifest zip")
	}
	for _, f := range zr.File {
		if !strings.HasPrefix(filepath.Base(f.Name), "manifest") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, err
		}
		return decodeManifestLua(content)
	}
	return nil, errors.New("manifest zip contains no manifest entry")
}

// decodeManifestLua parses the manifest's top-level "repository" Lua
// table using the same sandboxed evaluator rockspecs use - the manifest
// format is the same restricted table-literal subset of Lua.
func decodeManifestLua(content []byte) (map[string]manifestEntry, error) {
	raw, err := rockspec.Evaluate(string(content))
	if err != nil {
		return nil, errors.Wrap(err, "parsing manifest")
	}
	repo, _ := raw["repository"].(map[string]interface{})
	out := make(map[string]manifestEntry, len(repo))
	for name, versionsRaw := range repo {
		versions, _ := versionsRaw.(map[string]interface{})
		entry := make(manifestEntry, len(versions))
		for ver, artifactsRaw := range versions {
			artifacts, _ := artifactsRaw.([]interface{})
			var types []RockType
			for _, a := range artifacts {
				at, _ := a.(map[string]interface{})
				switch fmt.Sprintf("%v", at["arch"]) {
				case "rockspec":
					types = append(types, TypeRockspec)
				case "src":
					types = append(types, TypeSrc)
				default:
					types = append(types, TypeBinary)
				}
			}
			entry[ver] = types
		}
		out[name] = entry
	}
	return out, nil
}

func (m *LuarocksManifest) Find(req rockspec.PackageReq, filter Filter) (*RemotePackage, error) {
	entries, err := m.fetchManifest()
	if err != nil {
		return nil, err
	}
	versions, ok := entries[req.Name.String()]
	if !ok {
		return nil, nil
	}

	var best *rockspec.PackageVersion
	var bestType RockType
	bestRank := len(filter)
	for verStr, types := range versions {
		v, err := rockspec.ParsePackageVersion(verStr)
		if err != nil || !req.VersionReq.Matches(v) {
			continue
		}
		for _, t := range types {
			rank := filter.rank(t)
			if rank < 0 {
				continue
			}
			if best == nil || v.Compare(*best) > 0 || (v.Equal(*best) && rank < bestRank) {
				vv := v
				best = &vv
				bestType = t
				bestRank = rank
			}
		}
	}
	if best == nil {
		return nil, nil
	}

	return &RemotePackage{
		Spec:      rockspec.PackageSpec{Name: req.Name, Version: *best},
		Kind:      bestType,
		SourceURL: m.artifactURL(req.Name, *best, bestType),
	}, nil
}

func (m *LuarocksManifest) artifactURL(name rockspec.PackageName, v rockspec.PackageVersion, t RockType) string {
	switch t {
	case TypeRockspec:
		return fmt.Sprintf("%s/%s-%s.rockspec", m.Server, name, v)
	case TypeSrc:
		return fmt.Sprintf("%s/%s-%s.src.rock", m.Server, name, v)
	default:
		return fmt.Sprintf("%s/%s-%s.all.rock", m.Server, name, v)
	}
}

func (m *LuarocksManifest) Search(req rockspec.PackageReq) ([]SearchResult, error) {
	entries, err := m.fetchManifest()
	if err != nil {
		return nil, err
	}
	var out []SearchResult
	needle := strings.ToLower(req.Name.String())
	for name, versions := range entries {
		if needle != "" && !strings.Contains(strings.ToLower(name), needle) {
			continue
		}
		pkgName, err := rockspec.NewPackageName(name)
		if err != nil {
			continue
		}
		var matched []rockspec.PackageVersion
		for verStr := range versions {
			v, err := rockspec.ParsePackageVersion(verStr)
			if err != nil || !req.VersionReq.Matches(v) {
				continue
			}
			matched = append(matched, v)
		}
		if len(matched) > 0 {
			out = append(out, SearchResult{Name: pkgName, Versions: matched})
		}
	}
	return out, nil
}
