package manifest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/lumen-oss/lux/rockspec"
)

// LuanoxRemoteDB is a Source backed by a REST manifest server:
// GET /api/<name> lists releases, GET /download/<name>/<version>
// returns rockspec text directly.
type LuanoxRemoteDB struct {
	Server string
	Client *http.Client
}

func NewLuanoxRemoteDB(server string) *LuanoxRemoteDB {
	return &LuanoxRemoteDB{Server: server, Client: http.DefaultClient}
}

func (d *LuanoxRemoteDB) Name() string { return d.Server }

type luanoxRelease struct {
	Version      string `json:"version"`
	RockspecPath string `json:"rockspec_path"`
}

type luanoxAPIResponse struct {
	Releases []luanoxRelease `json:"releases"`
}

func (d *LuanoxRemoteDB) releases(name string) ([]luanoxRelease, error) {
	url := fmt.Sprintf("%s/api/%s", d.Server, name)
	resp, err := d.Client.Get(url)
	if err != nil {
		return nil, errors.Wrapf(err, "GET %s", url)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("luanox API %s returned %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var out luanoxAPIResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, errors.Wrap(err, "decoding luanox API response")
	}
	return out.Releases, nil
}

func (d *LuanoxRemoteDB) Find(req rockspec.PackageReq, filter Filter) (*RemotePackage, error) {
	if !filter.accepts(TypeRockspec) {
		// Luanox serves rockspec text only; nothing to offer a
		// binary/src-only filter.
		return nil, nil
	}

	releases, err := d.releases(req.Name.String())
	if err != nil {
		return nil, err
	}

	var best *rockspec.PackageVersion
	var bestRelease luanoxRelease
	for _, rel := range releases {
		v, err := rockspec.ParsePackageVersion(rel.Version)
		if err != nil || !req.VersionReq.Matches(v) {
			continue
		}
		if best == nil || v.Compare(*best) > 0 {
			vv := v
			best = &vv
			bestRelease = rel
		}
	}
	if best == nil {
		return nil, nil
	}

	text, err := d.downloadRockspec(req.Name.String(), best.String())
	if err != nil {
		return nil, err
	}
	_ = bestRelease.RockspecPath // download URL is derived from name+version, not the release path

	return &RemotePackage{
		Spec:            rockspec.PackageSpec{Name: req.Name, Version: *best},
		Kind:            TypeRockspec,
		RockspecContent: text,
	}, nil
}

func (d *LuanoxRemoteDB) downloadRockspec(name, version string) (string, error) {
	url := fmt.Sprintf("%s/download/%s/%s", d.Server, name, version)
	resp, err := d.Client.Get(url)
	if err != nil {
		return "", errors.Wrapf(err, "GET %s", url)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("luanox download %s returned %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (d *LuanoxRemoteDB) Search(req rockspec.PackageReq) ([]SearchResult, error) {
	// Luanox's REST API has no substring-search endpoint in this core's
	// scope; Search degrades to an exact-name lookup, matching how the
	// resolver already treats Luanox as a single-name-at-a-time source.
	releases, err := d.releases(req.Name.String())
	if err != nil || len(releases) == 0 {
		return nil, err
	}
	name, err := rockspec.NewPackageName(req.Name.String())
	if err != nil {
		return nil, nil
	}
	var versions []rockspec.PackageVersion
	for _, rel := range releases {
		v, err := rockspec.ParsePackageVersion(rel.Version)
		if err == nil {
			versions = append(versions, v)
		}
	}
	if !strings.Contains(strings.ToLower(name.String()), strings.ToLower(req.Name.String())) {
		return nil, nil
	}
	return []SearchResult{{Name: name, Versions: versions}}, nil
}
