package rockspec

import (
	"fmt"
	"sort"
	"strings"
)

// Serialize renders r back to canonical rockspec Lua text, used when
// writing vendored or generated rockspecs. Map keys are sorted so the
// output is diff-friendly. Only identity, description, source,
// dependency lists, build type, modules, copy_directories, the install
// map, the deploy flag and unknown fields are written; platform
// overrides, patches, variables, external dependencies and the
// backend-specific build fields are not, and a git source URL is written
// without its "git+" prefix, so ParseRockspec(Serialize(r)) does not
// restore those.
func (r *Rockspec) Serialize() string {
	var b strings.Builder

	if r.Format != "" {
		fmt.Fprintf(&b, "rockspec_format = %s\n", luaString(r.Format))
	}
	fmt.Fprintf(&b, "package = %s\n", luaString(r.Package.String()))
	fmt.Fprintf(&b, "version = %s\n", luaString(r.Version.String()))

	writeDescription(&b, r.Description)
	writeSource(&b, r.Source)
	writeReqList(&b, "dependencies", r.Dependencies)
	writeReqList(&b, "build_dependencies", r.BuildDependencies)
	writeReqList(&b, "test_dependencies", r.TestDependencies)
	writeBuild(&b, r.Build)

	if r.Deploy.WrapBinScripts {
		b.WriteString("deploy = {\n   wrap_bin_scripts = true,\n}\n")
	}

	for _, k := range sortedKeys(r.Unknown) {
		fmt.Fprintf(&b, "%s = %s\n", k, luaValue(r.Unknown[k]))
	}

	return b.String()
}

func luaString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

func luaValue(v interface{}) string {
	switch t := v.(type) {
	case string:
		return luaString(t)
	case bool:
		if t {
			return "true"
		}
		return "false"
	case float64:
		return fmt.Sprintf("%g", t)
	case map[string]interface{}:
		var b strings.Builder
		b.WriteString("{\n")
		for _, k := range sortedKeys(t) {
			fmt.Fprintf(&b, "   %s = %s,\n", k, luaValue(t[k]))
		}
		b.WriteString("}")
		return b.String()
	case []interface{}:
		var b strings.Builder
		b.WriteString("{ ")
		for i, e := range t {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(luaValue(e))
		}
		b.WriteString(" }")
		return b.String()
	default:
		return "nil"
	}
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func writeDescription(b *strings.Builder, d Description) {
	if d == (Description{}) {
		return
	}
	b.WriteString("description = {\n")
	writeKV(b, "summary", d.Summary)
	writeKV(b, "detailed", d.Detailed)
	writeKV(b, "license", d.License)
	writeKV(b, "maintainer", d.Maintainer)
	writeKV(b, "homepage", d.Homepage)
	b.WriteString("}\n")
}

func writeKV(b *strings.Builder, key, val string) {
	if val == "" {
		return
	}
	fmt.Fprintf(b, "   %s = %s,\n", key, luaString(val))
}

func writeSource(b *strings.Builder, s SourceSpec) {
	b.WriteString("source = {\n")
	writeKV(b, "url", s.URL)
	if s.CheckoutRef != "" {
		writeKV(b, "tag", s.CheckoutRef)
	}
	writeKV(b, "dir", s.Dir)
	writeKV(b, "archive_name", s.ArchiveName)
	writeKV(b, "integrity", s.Integrity)
	b.WriteString("}\n")
}

func writeReqList(b *strings.Builder, name string, reqs []PackageReq) {
	if len(reqs) == 0 {
		return
	}
	fmt.Fprintf(b, "%s = {\n", name)
	for _, r := range reqs {
		fmt.Fprintf(b, "   %s,\n", luaString(r.String()))
	}
	b.WriteString("}\n")
}

func writeBuild(b *strings.Builder, build BuildSpec) {
	b.WriteString("build = {\n")
	fmt.Fprintf(b, "   type = %s,\n", luaString(string(build.Type)))

	if len(build.Modules) > 0 {
		b.WriteString("   modules = {\n")
		for _, k := range sortedStrMapKeys(build.Modules) {
			fmt.Fprintf(b, "      %s = %s,\n", luaIdentOrString(k), luaString(build.Modules[k]))
		}
		b.WriteString("   },\n")
	}

	if len(build.CopyDirectories) > 0 {
		b.WriteString("   copy_directories = { ")
		for i, d := range build.CopyDirectories {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(luaString(d))
		}
		b.WriteString(" },\n")
	}

	writeInstall(b, build.Install)

	b.WriteString("}\n")
}

func writeInstall(b *strings.Builder, install InstallSpec) {
	if install.Lua == nil && install.Lib == nil && install.Bin == nil && install.Conf == nil {
		return
	}
	b.WriteString("   install = {\n")
	writeInstallSection(b, "lua", install.Lua)
	writeInstallSection(b, "lib", install.Lib)
	writeInstallSection(b, "bin", install.Bin)
	writeInstallSection(b, "conf", install.Conf)
	b.WriteString("   },\n")
}

func writeInstallSection(b *strings.Builder, name string, m map[string]string) {
	if len(m) == 0 {
		return
	}
	fmt.Fprintf(b, "      %s = {\n", name)
	for _, k := range sortedStrMapKeys(m) {
		fmt.Fprintf(b, "         %s = %s,\n", luaIdentOrString(k), luaString(m[k]))
	}
	b.WriteString("      },\n")
}

func sortedStrMapKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func luaIdentOrString(k string) string {
	for i, r := range k {
		if !(r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (i > 0 && r >= '0' && r <= '9')) {
			return "[" + luaString(k) + "]"
		}
	}
	return k
}
