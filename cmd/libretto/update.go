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

type updateCommand struct {
	log     *logrus.Logger
	devMode bool
	lowest  bool
}

func (c *updateCommand) Name() string     { return "update" }
func (c *updateCommand) Args() string     { return "" }
func (c *updateCommand) ShortHelp() string { return "Re-resolve and update all dependencies" }
func (c *updateCommand) LongHelp() string {
	return "Update ignores any existing lockfile hints and re-resolves every " +
		"dependency to the newest version its constraints allow, then " +
		"rewrites the lockfile."
}

func (c *updateCommand) Register(fs *flag.FlagSet) {
	fs.BoolVar(&c.devMode, "dev", true, "include require-dev dependencies")
	fs.BoolVar(&c.lowest, "prefer-lowest", false, "resolve to the lowest versions satisfying constraints")
}

func (c *updateCommand) Run(ctx context.Context, args []string) error {
	cfg, err := config.Load("")
	if err != nil {
		return err
	}

	pl, err := planner.New(cfg, logrus.NewEntry(c.log))
	if err != nil {
		return err
	}

	mode := resolver.ModeNewest
	if c.lowest {
		mode = resolver.ModeLowest
	}

	lf, err := pl.Install(ctx, planner.Options{DevMode: c.devMode, Update: true, Mode: mode})
	if err != nil {
		return err
	}

	fmt.Printf("updated %d package(s), %d dev package(s)\n", len(lf.Packages), len(lf.PackagesDev))
	return nil
}
