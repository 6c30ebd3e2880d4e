package build

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/lumen-oss/lux/rockspec"
)

// defaultABIVersion is used when neither the rockspec nor
// TREE_SITTER_LANGUAGE_VERSION names one.
const defaultABIVersion = "14"

// treesitterBackend optionally regenerates a tree-sitter grammar, then
// compiles the parser into etc/parser/<lang>.<dll-ext> and writes any
// supplied queries under etc/queries/.
type treesitterBackend struct{}

func (treesitterBackend) Run(args Args, rs *rockspec.Rockspec, view rockspec.PlatformView) (Info, error) {
	if view.Build.RegenerateGrammar {
		if _, _, err := runTool(context.Background(), rockspec.BackendTreesitterParse, args.BuildDir, "tree-sitter", nil, "generate"); err != nil {
			return Info{}, errors.Wrap(err, "regenerating grammar")
		}
	}

	abi := view.Build.ABIVersion
	if abi == "" {
		abi = os.Getenv("TREE_SITTER_LANGUAGE_VERSION")
	}
	if abi == "" {
		abi = defaultABIVersion
	}

	lang := view.Build.Lang
	if lang == "" {
		lang = rs.Package.String()
	}

	dylibExt := args.Config.DylibExt
	if dylibExt == "" {
		dylibExt = "so"
	}
	parserDir := filepath.Join(args.Output.EtcDir(), "parser")
	if err := os.MkdirAll(parserDir, 0o755); err != nil {
		return Info{}, err
	}
	dest := filepath.Join(parserDir, lang+"."+dylibExt)

	cflags := []string{"-shared", "-fPIC", "-DTREE_SITTER_LANGUAGE_VERSION=" + abi, "-I", filepath.Join(args.BuildDir, "src"), "-o", dest, filepath.Join(args.BuildDir, "src", "parser.c")}
	if _, err := os.Stat(filepath.Join(args.BuildDir, "src", "scanner.c")); err == nil {
		cflags = append(cflags, filepath.Join(args.BuildDir, "src", "scanner.c"))
	}
	if _, _, err := runTool(context.Background(), rockspec.BackendTreesitterParse, args.BuildDir, "cc", nil, cflags...); err != nil {
		return Info{}, errors.Wrap(err, "compiling tree-sitter parser")
	}

	if len(view.Build.Queries) > 0 {
		queriesDir := filepath.Join(args.Output.EtcDir(), "queries")
		if err := os.MkdirAll(queriesDir, 0o755); err != nil {
			return Info{}, err
		}
		for path, text := range view.Build.Queries {
			dest := filepath.Join(queriesDir, path)
			if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
				return Info{}, err
			}
			if err := os.WriteFile(dest, []byte(text), 0o644); err != nil {
				return Info{}, errors.Wrapf(err, "writing query %s", path)
			}
		}
	}

	return Info{}, nil
}
