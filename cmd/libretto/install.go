package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/libretto-pm/libretto/internal/config"
	"github.com/libretto-pm/libretto/internal/planner"
	"github.com/libretto-pm/libretto/internal/resolver"
	"github.com/sirupsen/logrus"
)

type installCommand struct {
	log     *logrus.Logger
	devMode bool
}

func (c *installCommand) Name() string      { return "install" }
func (c *installCommand) Args() string      { return "" }
func (c *installCommand) ShortHelp() string  { return "Install dependencies from the manifest and lockfile" }
func (c *installCommand) LongHelp() string {
	return "Install resolves the project's dependency graph (reusing the lockfile " +
		"when it is present and still matches the manifest) and materializes " +
		"every resolved package into the vendor directory."
}

func (c *installCommand) Register(fs *flag.FlagSet) {
	fs.BoolVar(&c.devMode, "dev", true, "include require-dev dependencies")
}

func (c *installCommand) Run(ctx context.Context, args []string) error {
	cfg, err := config.Load("")
	if err != nil {
		return err
	}

	pl, err := planner.New(cfg, logrus.NewEntry(c.log))
	if err != nil {
		return err
	}

	lf, err := pl.Install(ctx, planner.Options{DevMode: c.devMode, Mode: resolver.ModeNewest})
	if err != nil {
		return err
	}

	fmt.Printf("installed %d package(s), %d dev package(s)\n", len(lf.Packages), len(lf.PackagesDev))
	return nil
}
