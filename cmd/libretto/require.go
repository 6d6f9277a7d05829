package main

import (
	"context"
	"flag"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/libretto-pm/libretto/internal/config"
	"github.com/libretto-pm/libretto/internal/manifest"
	"github.com/libretto-pm/libretto/internal/planner"
	"github.com/libretto-pm/libretto/internal/resolver"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type requireCommand struct {
	log *logrus.Logger
	dev bool
}

func (c *requireCommand) Name() string     { return "require" }
func (c *requireCommand) Args() string     { return "<owner/name>[:<constraint>]" }
func (c *requireCommand) ShortHelp() string { return "Add a dependency and re-resolve" }
func (c *requireCommand) LongHelp() string {
	return "Require adds or updates a dependency's constraint in the manifest, " +
		"then resolves and installs the updated dependency graph.\n\n" +
		"Example: libretto require vendor/package:^1.0"
}

func (c *requireCommand) Register(fs *flag.FlagSet) {
	fs.BoolVar(&c.dev, "dev", false, "add as a require-dev dependency")
}

func (c *requireCommand) Run(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("require expects exactly one <owner/name>[:<constraint>] argument")
	}

	name, constraintText := args[0], "*"
	if idx := strings.IndexByte(args[0], ':'); idx >= 0 {
		name, constraintText = args[0][:idx], args[0][idx+1:]
	}

	cfg, err := config.Load("")
	if err != nil {
		return err
	}

	manifestPath := filepath.Join(cfg.ProjectRoot, manifest.FileName)
	if err := manifest.AddRequirement(manifestPath, name, constraintText, c.dev); err != nil {
		return err
	}

	pl, err := planner.New(cfg, logrus.NewEntry(c.log))
	if err != nil {
		return err
	}

	lf, err := pl.Install(ctx, planner.Options{DevMode: true, Update: true, Mode: resolver.ModeNewest})
	if err != nil {
		return err
	}

	fmt.Printf("added %s, now installed %d package(s), %d dev package(s)\n", name, len(lf.Packages), len(lf.PackagesDev))
	return nil
}
