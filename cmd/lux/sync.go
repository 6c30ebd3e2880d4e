package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/pkg/errors"

	"github.com/lumen-oss/lux/lockfile"
	"github.com/lumen-oss/lux/ops"
)

type syncCommand struct {
	lockType string
	validate bool
}

func (cmd *syncCommand) Name() string      { return "sync" }
func (cmd *syncCommand) Args() string      { return "" }
func (cmd *syncCommand) ShortHelp() string { return "align the tree with the project lockfile" }

func (cmd *syncCommand) Register(fs *flag.FlagSet) {
	fs.StringVar(&cmd.lockType, "lock-type", "regular", "sub-lock to sync (regular|test|build)")
	fs.BoolVar(&cmd.validate, "validate-integrity", false, "re-hash already-installed packages")
}

func (cmd *syncCommand) Run(e *env, args []string) error {
	if e.project == nil {
		return errors.New("sync requires a project (lux.toml)")
	}
	t, err := parseLockType(cmd.lockType)
	if err != nil {
		return err
	}
	return ops.Sync(context.Background(), e.cfg, e.project.LockfilePath(), t, ops.SyncOpts{
		ValidateIntegrity: cmd.validate,
	})
}

type updateCommand struct{}

func (cmd *updateCommand) Name() string { return "update" }
func (cmd *updateCommand) Args() string { return "[package...]" }
func (cmd *updateCommand) ShortHelp() string {
	return "update unpinned packages to newer matching versions"
}
func (cmd *updateCommand) Register(*flag.FlagSet) {}

func (cmd *updateCommand) Run(e *env, args []string) error {
	results, err := ops.Update(context.Background(), e.cfg, lockfile.Regular, args)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Fprintln(e.stdout, "nothing to update")
		return nil
	}
	for _, r := range results {
		fmt.Fprintf(e.stdout, "updated %s %s -> %s\n", r.Name, r.From, r.To)
	}
	return nil
}

func parseLockType(s string) (lockfile.LockType, error) {
	switch s {
	case "regular", "":
		return lockfile.Regular, nil
	case "test":
		return lockfile.Test, nil
	case "build":
		return lockfile.Build, nil
	}
	return "", errors.Errorf("invalid lock type %q", s)
}
