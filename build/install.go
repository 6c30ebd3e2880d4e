package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/lumen-oss/lux/internal/treecopy"
	"github.com/lumen-oss/lux/rockspec"
	"github.com/lumen-oss/lux/tree"
)

// RunInstallStep performs the common "install" step every backend shares
// after it runs: copy install.lua into src/ (dotted
// module paths become subdirectories), compile/copy install.lib into
// lib/, wrap install.bin entrypoint binaries, copy install.conf into
// conf/, mirror copy_directories (excluding doc/docs) into etc/, and copy
// doc/docs into doc/.
func RunInstallStep(args Args, spec rockspec.BuildSpec, binaries []string) error {
	for target, src := range spec.Install.Lua {
		dest := filepath.Join(args.Output.SrcDir(), modulePathToFile(target, src))
		if err := treecopy.CopyFile(filepath.Join(args.BuildDir, src), dest); err != nil {
			return errors.Wrapf(err, "installing lua module %s", target)
		}
	}

	for target, src := range spec.Install.Lib {
		dest := filepath.Join(args.Output.LibDir(), modulePathToFile(target, libExt(src, args.Config.DylibExt)))
		if strings.HasSuffix(src, ".c") {
			if err := compileSharedLib(args, filepath.Join(args.BuildDir, src), dest); err != nil {
				return errors.Wrapf(err, "compiling lib module %s", target)
			}
			continue
		}
		if err := treecopy.CopyFile(filepath.Join(args.BuildDir, src), dest); err != nil {
			return errors.Wrapf(err, "installing lib module %s", target)
		}
	}

	if args.Output.Kind == tree.KindEntry {
		for target, src := range spec.Install.Bin {
			if err := installBinary(args, target, src); err != nil {
				return errors.Wrapf(err, "installing binary %s", target)
			}
		}
		for _, bin := range binaries {
			if _, ok := spec.Install.Bin[bin]; ok {
				continue
			}
			if err := installBinary(args, bin, bin); err != nil {
				return errors.Wrapf(err, "installing binary %s", bin)
			}
		}
	}

	for target, src := range spec.Install.Conf {
		dest := filepath.Join(args.Output.ConfDir(), target)
		if err := treecopy.CopyFile(filepath.Join(args.BuildDir, src), dest); err != nil {
			return errors.Wrapf(err, "installing conf file %s", target)
		}
	}

	for _, dir := range spec.CopyDirectories {
		base := filepath.Base(dir)
		if base == "doc" || base == "docs" {
			continue
		}
		src := filepath.Join(args.BuildDir, dir)
		if ok, _ := treecopy.IsDir(src); ok {
			if err := treecopy.CopyDir(src, filepath.Join(args.Output.EtcDir(), base)); err != nil {
				return errors.Wrapf(err, "copying directory %s", dir)
			}
		}
	}

	for _, docDir := range []string{"doc", "docs"} {
		src := filepath.Join(args.BuildDir, docDir)
		if ok, _ := treecopy.IsDir(src); ok {
			if err := treecopy.CopyDir(src, args.Output.DocDir()); err != nil {
				return errors.Wrapf(err, "copying %s", docDir)
			}
		}
	}

	return nil
}

// modulePathToFile turns a dotted module target ("foo.bar") into a
// relative file path ("foo/bar<ext>"), preserving src's extension.
func modulePathToFile(target, src string) string {
	ext := filepath.Ext(src)
	rel := strings.ReplaceAll(target, ".", string(filepath.Separator))
	return rel + ext
}

func libExt(src, dylibExt string) string {
	if dylibExt == "" {
		dylibExt = "so"
	}
	return "." + dylibExt
}

// compileSharedLib compiles a single C source into a shared library
// using the configured CFLAGS/LIBFLAG. Shared across backends whose
// install.lib names a .c file directly rather than a prebuilt
// artifact.
func compileSharedLib(args Args, src, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	cc := "cc"
	cflags := strings.Fields(args.Config.CFlags)
	libflag := args.Config.LibFlag
	if libflag == "" {
		libflag = "-shared"
	}
	invocArgs := append([]string{}, cflags...)
	invocArgs = append(invocArgs, libflag, "-I"+args.Lua.IncDir, "-o", dest, src)
	_, _, err := runTool(context.Background(), rockspec.BackendBuiltin, filepath.Dir(src), cc, nil, invocArgs...)
	return err
}

func installBinary(args Args, target, src string) error {
	srcPath := filepath.Join(args.BuildDir, src)
	rawPath := filepath.Join(args.Output.Root, "raw-bin", target)
	if err := treecopy.CopyFile(srcPath, rawPath); err != nil {
		return err
	}
	if err := os.Chmod(rawPath, 0o755); err != nil {
		return err
	}
	return writeWrapper(args.Output.WrapperPath(target), rawPath, args.Output.Root)
}

// writeWrapper writes a launcher script that pre-sets PATH/LUA_PATH/
// LUA_CPATH to treeRoot before exec'ing realBin: POSIX shell on Unix,
// a .bat file on Windows.
func writeWrapper(wrapperPath, realBin, treeRoot string) error {
	if err := os.MkdirAll(filepath.Dir(wrapperPath), 0o755); err != nil {
		return err
	}
	if strings.HasSuffix(wrapperPath, ".bat") {
		content := fmt.Sprintf("@echo off\r\nset PATH=%s\\bin;%%PATH%%\r\nset LUA_PATH=%s\\src\\?.lua;%%LUA_PATH%%\r\nset LUA_CPATH=%s\\lib\\?.dll;%%LUA_CPATH%%\r\n\"%s\" %%*\r\n", treeRoot, treeRoot, treeRoot, realBin)
		return os.WriteFile(wrapperPath, []byte(content), 0o755)
	}
	content := fmt.Sprintf("#!/bin/sh\nexport PATH=\"%s/bin:$PATH\"\nexport LUA_PATH=\"%s/src/?.lua;$LUA_PATH\"\nexport LUA_CPATH=\"%s/lib/?.so;$LUA_CPATH\"\nexec \"%s\" \"$@\"\n", treeRoot, treeRoot, treeRoot, realBin)
	return os.WriteFile(wrapperPath, []byte(content), 0o755)
}
