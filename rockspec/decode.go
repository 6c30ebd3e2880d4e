package rockspec

import (
	"fmt"

	"github.com/pkg/errors"
)

// ParseRockspec evaluates rockspec text and decodes it into a typed
// Rockspec. Parsing is total: malformed input produces an error, never
// a panic.
func ParseRockspec(src string) (*Rockspec, error) {
	raw, err := Evaluate(src)
	if err != nil {
		return nil, errors.Wrap(err, "parsing rockspec")
	}
	return decodeRockspec(raw)
}

func decodeRockspec(raw map[string]interface{}) (r *Rockspec, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.Errorf("malformed rockspec: %v", rec)
		}
	}()

	r = &Rockspec{Unknown: make(map[string]interface{})}

	for k, v := range raw {
		switch k {
		case "rockspec_format":
			r.Format = asString(v)
		case "package":
			name, nerr := NewPackageName(asString(v))
			if nerr != nil {
				return nil, errors.Wrap(nerr, "package")
			}
			r.Package = name
		case "version":
			ver, verr := ParsePackageVersion(asString(v))
			if verr != nil {
				return nil, errors.Wrap(verr, "version")
			}
			r.Version = ver
		case "description":
			r.Description = decodeDescription(asTable(v))
		case "source":
			src, serr := decodeSource(asTable(v))
			if serr != nil {
				return nil, errors.Wrap(serr, "source")
			}
			r.Source = src
		case "dependencies":
			r.Dependencies, err = decodeReqList(asArray(v))
			if err != nil {
				return nil, errors.Wrap(err, "dependencies")
			}
		case "build_dependencies":
			r.BuildDependencies, err = decodeReqList(asArray(v))
			if err != nil {
				return nil, errors.Wrap(err, "build_dependencies")
			}
		case "test_dependencies":
			r.TestDependencies, err = decodeReqList(asArray(v))
			if err != nil {
				return nil, errors.Wrap(err, "test_dependencies")
			}
		case "build":
			bt := asTable(v)
			b, berr := decodeBuild(bt)
			if berr != nil {
				return nil, errors.Wrap(berr, "build")
			}
			r.Build = b
			for tag, ov := range asTable(bt["platforms"]) {
				ovTable := asTable(ov)
				ob, oerr := decodeBuild(ovTable)
				if oerr != nil {
					return nil, errors.Wrapf(oerr, "build.platforms.%s", tag)
				}
				if asString(ovTable["type"]) == "" {
					// The override inherits the generic backend unless it
					// names one itself.
					ob.Type = ""
				}
				if r.Platforms == nil {
					r.Platforms = make(map[Platform]PlatformOverride)
				}
				po := r.Platforms[Platform(tag)]
				po.Build = &ob
				r.Platforms[Platform(tag)] = po
			}
		case "deploy":
			d := asTable(v)
			r.Deploy = DeploySpec{WrapBinScripts: asBool(d["wrap_bin_scripts"])}
		case "external_dependencies":
			if r.Build.ExternalDeps == nil {
				r.Build.ExternalDeps = make(map[string]ExternalDependencySpec)
			}
			for name, spec := range asTable(v) {
				st := asTable(spec)
				r.Build.ExternalDeps[name] = ExternalDependencySpec{
					Header:  asString(st["header"]),
					Library: asString(st["library"]),
				}
			}
		default:
			r.Unknown[k] = v
		}
	}

	if r.Package == "" {
		return nil, errors.New("rockspec missing required field: package")
	}

	return r, nil
}

func decodeDescription(t map[string]interface{}) Description {
	return Description{
		Summary:    asString(t["summary"]),
		Detailed:   asString(t["detailed"]),
		License:    asString(t["license"]),
		Maintainer: asString(t["maintainer"]),
		Homepage:   asString(t["homepage"]),
	}
}

func decodeSource(t map[string]interface{}) (SourceSpec, error) {
	url := asString(t["url"])
	tag := asString(t["tag"])
	branch := asString(t["branch"])
	commit := asString(t["commit"])
	dir := asString(t["dir"])
	archiveName := asString(t["archive_name"])
	integrity := asString(t["integrity"])
	if integrity == "" {
		integrity = asString(t["md5"])
	}
	return ClassifySource(url, tag, branch, commit, dir, archiveName, integrity)
}

func decodeReqList(arr []interface{}) ([]PackageReq, error) {
	out := make([]PackageReq, 0, len(arr))
	for _, item := range arr {
		req, err := ParsePackageReq(asString(item))
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, nil
}

func decodeBuild(t map[string]interface{}) (BuildSpec, error) {
	b := BuildSpec{Type: BackendType(asString(t["type"]))}
	if b.Type == "" {
		b.Type = BackendBuiltin
	}
	if !KnownBackends[b.Type] {
		return BuildSpec{}, errors.Errorf("unsupported build backend %q", b.Type)
	}

	if modules, ok := t["modules"]; ok {
		b.Modules = make(map[string]string)
		for k, v := range asTable(modules) {
			b.Modules[k] = asString(v)
		}
	}

	if install, ok := t["install"]; ok {
		it := asTable(install)
		b.Install = InstallSpec{
			Lua:  asStrMap(it["lua"]),
			Lib:  asStrMap(it["lib"]),
			Bin:  asStrMap(it["bin"]),
			Conf: asStrMap(it["conf"]),
		}
	}

	if patches, ok := t["patches"]; ok {
		b.Patches = asStrMap(patches)
	}

	for _, dir := range asArray(t["copy_directories"]) {
		b.CopyDirectories = append(b.CopyDirectories, asString(dir))
	}

	if cmd, ok := t["build_command"]; ok {
		b.Command = asString(cmd)
	}

	if feats, ok := t["features"]; ok {
		for _, f := range asArray(feats) {
			b.Features = append(b.Features, asString(f))
		}
	}
	b.DefaultFeatures = true
	if df, ok := t["default_features"]; ok {
		b.DefaultFeatures = asBool(df)
	}
	b.LuaVersionFlag = asString(t["lua_version"])

	b.Lang = asString(t["lang"])
	b.ABIVersion = asString(t["abi_version"])
	if queries, ok := t["queries"]; ok {
		b.Queries = asStrMap(queries)
	}

	return b, nil
}

func asString(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func asBool(v interface{}) bool {
	b, _ := v.(bool)
	return b
}

func asTable(v interface{}) map[string]interface{} {
	m, _ := v.(map[string]interface{})
	return m
}

func asArray(v interface{}) []interface{} {
	a, _ := v.([]interface{})
	return a
}

func asStrMap(v interface{}) map[string]string {
	t := asTable(v)
	if t == nil {
		return nil
	}
	out := make(map[string]string, len(t))
	for k, v := range t {
		out[k] = asString(v)
	}
	return out
}
